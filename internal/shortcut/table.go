package shortcut

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/waneon/windows-magnifier/internal/combo"
)

var (
	// ErrInvalidFactor is returned when a set or toggle factor is below 1.0
	// or not finite.
	ErrInvalidFactor = errors.New("factor must not be smaller than 1.0")
	// ErrInvalidDelta is returned when an add delta is not finite.
	ErrInvalidDelta = errors.New("factor must be a finite number")
)

// Entry is the uncompiled form of one configured shortcut.
type Entry struct {
	Action   Action
	Cooldown time.Duration
}

// Shortcut is a compiled table entry. LastRun is only written by Table.TryRun.
type Shortcut struct {
	Spec        string
	Combination combo.Combination
	Action      Action
	LastRun     time.Time
	Cooldown    time.Duration
}

// Duplicate records a shortcut shadowed by an earlier structurally equal one.
type Duplicate struct {
	Index    int
	Spec     string
	ShadowOf int
}

// Table is the ordered shortcut collection. The position of a shortcut is
// its correlation id for OS hotkey registration.
//
// A Table is not safe for concurrent use; it belongs to the dispatch loop.
type Table struct {
	shortcuts  []Shortcut
	duplicates []Duplicate
}

// Compile builds a table from entries, iterating specs in lexicographic order
// so indices are stable across runs. Any invalid entry aborts compilation.
// now seeds every LastRun.
func Compile(entries map[string]Entry, now time.Time) (*Table, error) {
	specs := make([]string, 0, len(entries))
	for spec := range entries {
		specs = append(specs, spec)
	}
	slices.Sort(specs)

	t := &Table{shortcuts: make([]Shortcut, 0, len(specs))}
	for _, spec := range specs {
		entry := entries[spec]
		c, err := combo.Parse(spec)
		if err != nil {
			return nil, err
		}
		if err := validateAction(spec, entry); err != nil {
			return nil, err
		}
		t.shortcuts = append(t.shortcuts, Shortcut{
			Spec:        spec,
			Combination: c,
			Action:      entry.Action,
			LastRun:     now,
			Cooldown:    entry.Cooldown,
		})
	}

	for i := range t.shortcuts {
		first, _ := t.Match(t.shortcuts[i].Combination)
		if first != i {
			d := Duplicate{Index: i, Spec: t.shortcuts[i].Spec, ShadowOf: first}
			t.duplicates = append(t.duplicates, d)
			slog.Warn("[WARN-CONFIG] duplicate combination, later shortcut is shadowed",
				"spec", d.Spec, "index", d.Index, "shadowedBy", t.shortcuts[first].Spec)
		}
	}
	return t, nil
}

func validateAction(spec string, entry Entry) error {
	if entry.Cooldown < 0 {
		return fmt.Errorf("cooltime must not be negative: %s", spec)
	}
	switch entry.Action.Kind {
	case ActionSet:
		if !validFactor(entry.Action.Value) {
			return fmt.Errorf("set-%w: %s", ErrInvalidFactor, spec)
		}
	case ActionToggle:
		if !validFactor(entry.Action.Value) {
			return fmt.Errorf("toggle-%w: %s", ErrInvalidFactor, spec)
		}
	case ActionAdd:
		if !finite(entry.Action.Value) {
			return fmt.Errorf("add-%w: %s", ErrInvalidDelta, spec)
		}
	case ActionExit:
	default:
		return fmt.Errorf("unknown action kind %d: %s", entry.Action.Kind, spec)
	}
	return nil
}

// validFactor rejects NaN as well, since every comparison with it is false.
func validFactor(v float32) bool {
	return v >= 1.0 && finite(v)
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Len returns the number of shortcuts.
func (t *Table) Len() int { return len(t.shortcuts) }

// At returns a copy of the shortcut at index i.
func (t *Table) At(i int) Shortcut { return t.shortcuts[i] }

// Match returns the index of the first shortcut whose combination equals c.
func (t *Table) Match(c combo.Combination) (int, bool) {
	for i := range t.shortcuts {
		if t.shortcuts[i].Combination == c {
			return i, true
		}
	}
	return -1, false
}

// KeyIndices lists the shortcuts that need OS hotkey registration.
func (t *Table) KeyIndices() []int {
	var out []int
	for i := range t.shortcuts {
		if t.shortcuts[i].Combination.IsKey() {
			out = append(out, i)
		}
	}
	return out
}

// Duplicates returns the shadowed shortcuts found at compile time.
func (t *Table) Duplicates() []Duplicate {
	return slices.Clone(t.duplicates)
}

// TryRun is the cooldown gate. It reports whether shortcut i may execute at
// now and, if so, records now as its last run. Unknown indices never run.
func (t *Table) TryRun(i int, now time.Time) bool {
	if i < 0 || i >= len(t.shortcuts) {
		return false
	}
	s := &t.shortcuts[i]
	if now.Sub(s.LastRun) < s.Cooldown {
		return false
	}
	s.LastRun = now
	return true
}
