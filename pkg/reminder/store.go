package reminder

import (
	"sync"
	"time"
)

// Store holds reminders in insertion order for the life of the process.
// Duplicates are allowed and nothing is ever removed.
type Store struct {
	mu    sync.RWMutex
	items []Reminder
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a reminder.
func (s *Store) Add(r Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
}

// All returns a copy of every reminder in insertion order.
func (s *Store) All() []Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Reminder, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored reminders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// On returns the reminders for the given month and day, in insertion order.
func (s *Store) On(month, day int) []Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Reminder
	for _, r := range s.items {
		if r.Month == month && r.Day == day {
			out = append(out, r)
		}
	}
	return out
}

// Today returns the reminders matching now's month and day.
func (s *Store) Today(now time.Time) []Reminder {
	return s.On(int(now.Month()), now.Day())
}
