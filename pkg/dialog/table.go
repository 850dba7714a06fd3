package dialog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Handler runs a command and returns the next mode.
type Handler func(ctx context.Context, text string) Mode

// Command is a named handler reachable through one or more phrases.
type Command struct {
	Name    string
	Phrases []string
	Handle  Handler
}

// FallbackHandler runs when no phrase matches in mode.
type FallbackHandler func(ctx context.Context, mode Mode, text string) Mode

// Table maps (mode, normalized phrase) to a command.
type Table struct {
	commands map[Mode]map[string]*Command
	fallback FallbackHandler
}

// NewTable creates an empty table. A nil fallback returns the background
// counterpart of the mode without side effects.
func NewTable(fallback FallbackHandler) *Table {
	if fallback == nil {
		fallback = func(_ context.Context, mode Mode, _ string) Mode { return mode.Background() }
	}
	return &Table{
		commands: make(map[Mode]map[string]*Command),
		fallback: fallback,
	}
}

// Normalize prepares an utterance for lookup.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Register adds a command for mode under every phrase.
// It panics if a phrase is already registered for that mode.
func (t *Table) Register(mode Mode, name string, h Handler, phrases ...string) {
	if h == nil {
		panic("dialog: nil handler for " + name)
	}
	cmds := t.commands[mode]
	if cmds == nil {
		cmds = make(map[string]*Command)
		t.commands[mode] = cmds
	}

	cmd := &Command{Name: name, Handle: h}
	for _, p := range phrases {
		key := Normalize(p)
		if existing, ok := cmds[key]; ok {
			panic(fmt.Sprintf("dialog: phrase %q in %s already registered by %s", key, mode, existing.Name))
		}
		cmds[key] = cmd
		cmd.Phrases = append(cmd.Phrases, key)
	}
}

// Lookup finds the command for text in mode.
func (t *Table) Lookup(mode Mode, text string) (*Command, bool) {
	cmd, ok := t.commands[mode][Normalize(text)]
	return cmd, ok
}

// Dispatch runs the command matching text, or the fallback.
func (t *Table) Dispatch(ctx context.Context, mode Mode, text string) Mode {
	if cmd, ok := t.Lookup(mode, text); ok {
		return cmd.Handle(ctx, Normalize(text))
	}
	return t.fallback(ctx, mode, text)
}

// Phrases lists the registered phrases for mode, sorted.
func (t *Table) Phrases(mode Mode) []string {
	out := make([]string, 0, len(t.commands[mode]))
	for p := range t.commands[mode] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
