// Package reminder parses spoken reminder dates and keeps reminders in memory.
package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// months are matched case-sensitively; index+1 is the month number.
var months = [...]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Reminder is a note attached to a month and day. It recurs every year.
// Month or Day is 0 when the spoken date could not be understood.
type Reminder struct {
	Month   int    `json:"month"`
	Day     int    `json:"day"`
	Content string `json:"content"`
}

// New builds a reminder from a confirmed "<month> <day>" utterance.
func New(date, content string) Reminder {
	month, day := ParseDate(date)
	return Reminder{Month: month, Day: day, Content: content}
}

// ParseDate splits a "<month-word> <day-number>" utterance at the first
// space. An unknown month or unparsable day yields 0 for that field.
// No calendar validation is performed.
func ParseDate(s string) (month, day int) {
	monthTok, dayTok, _ := strings.Cut(s, " ")

	for i, name := range months {
		if monthTok == name {
			month = i + 1
			break
		}
	}

	if n, err := strconv.Atoi(dayTok); err == nil {
		day = n
	}
	return month, day
}

// Matches reports whether the reminder falls on t's month and day.
func (r Reminder) Matches(t time.Time) bool {
	return r.Month == int(t.Month()) && r.Day == t.Day()
}

// Announce renders the spoken lines for the given reminders.
func Announce(list []Reminder) []string {
	if len(list) == 0 {
		return []string{"You have no reminders for today."}
	}
	lines := make([]string, len(list))
	for i, r := range list {
		lines[i] = fmt.Sprintf("Reminder %d: %s.", i+1, r.Content)
	}
	return lines
}
