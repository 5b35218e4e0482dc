package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/waneon/windows-magnifier/internal/combo"
	"github.com/waneon/windows-magnifier/internal/magnifier"
	"github.com/waneon/windows-magnifier/internal/shortcut"
)

// ErrTransform wraps failures to query the cursor or screen or to apply the
// magnification. The dispatch loop treats it as fatal.
var ErrTransform = errors.New("transform failed")

// RegistrationError reports that the OS refused the hotkey for Index.
type RegistrationError struct {
	Index int
	Spec  string
	Err   error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register shortcut with idx %d (%s): %v", e.Index, e.Spec, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Queue accepts events for the dispatch loop. Post must not block: pointer
// callbacks post from the dispatch thread itself.
type Queue interface {
	Post(Event) error
}

// Magnifier is the OS magnification primitive.
type Magnifier interface {
	Apply(factor float32, originX, originY int) error
	ApplyInputTransform(src, dst magnifier.Rect) error
}

// Screen reports the cursor position and the screen size.
type Screen interface {
	CursorPos() (magnifier.Point, error)
	Size() (width, height int, err error)
}

// Registrar binds key shortcuts to OS global hotkeys using the table index
// as hotkey id.
type Registrar interface {
	Register(table *shortcut.Table) error
	Unregister() error
}

// Options wires an Engine to its collaborators. Registrar may be nil when
// no OS hotkeys exist (tests, validation).
type Options struct {
	Table     *shortcut.Table
	Queue     Queue
	Magnifier Magnifier
	Screen    Screen
	Registrar Registrar
	// InputTransform also remaps pointer input to the magnified view.
	InputTransform bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine matches input against the shortcut table, applies cooldowns and
// executes actions. Every method must be called from the single dispatch
// thread; the engine holds no locks.
type Engine struct {
	table     *shortcut.Table
	state     *magnifier.State
	queue     Queue
	mag       Magnifier
	screen    Screen
	registrar Registrar
	now       func() time.Time

	inputTransform       bool
	inputTransformWarned bool
	stopped              bool
}

// New validates opts and returns an engine at factor 1.0.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Table == nil:
		return nil, errors.New("dispatch: table is required")
	case opts.Queue == nil:
		return nil, errors.New("dispatch: queue is required")
	case opts.Magnifier == nil:
		return nil, errors.New("dispatch: magnifier is required")
	case opts.Screen == nil:
		return nil, errors.New("dispatch: screen is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		table:          opts.Table,
		state:          magnifier.New(),
		queue:          opts.Queue,
		mag:            opts.Magnifier,
		screen:         opts.Screen,
		registrar:      opts.Registrar,
		now:            now,
		inputTransform: opts.InputTransform,
	}, nil
}

// Start registers the key shortcuts of the initial table.
func (e *Engine) Start() error {
	if e.registrar == nil {
		return nil
	}
	return e.registrar.Register(e.table)
}

// Factor returns the current zoom factor.
func (e *Engine) Factor() float32 { return e.state.Factor() }

// Stopped reports whether an exit action has run.
func (e *Engine) Stopped() bool { return e.stopped }

// HandlePointer matches a pointer notification and reports whether it must be
// swallowed. Matched down transitions post a deferred HotkeyEvent; matched up
// transitions are swallowed silently; unmatched events pass through.
func (e *Engine) HandlePointer(ev PointerEvent) bool {
	if e.stopped {
		return false
	}
	if ev.Kind == PointerMove {
		e.post(RefreshEvent{})
		return false
	}

	idx, ok := e.table.Match(combo.ButtonCombination(ev.Modifiers, ev.Button, ev.Extra))
	if !ok {
		return false
	}
	if ev.Kind != PointerUp {
		e.post(HotkeyEvent{Index: idx})
	}
	return true
}

func (e *Engine) post(ev Event) {
	if err := e.queue.Post(ev); err != nil {
		slog.Warn("[WARN-DISPATCH] dropped event", "event", fmt.Sprintf("%T", ev), "error", err)
	}
}

// Step runs one dispatch step. done is true once an exit action has executed;
// after that every event is ignored.
func (e *Engine) Step(ev Event) (done bool, err error) {
	if e.stopped {
		return true, nil
	}
	switch ev := ev.(type) {
	case HotkeyEvent:
		return e.trigger(ev.Index)
	case PointerEvent:
		e.HandlePointer(ev)
	case RefreshEvent:
		return false, e.refresh()
	case ReloadEvent:
		return false, e.reload(ev.Table)
	default:
		slog.Warn("[WARN-DISPATCH] unknown event ignored", "event", fmt.Sprintf("%T", ev))
	}
	return false, nil
}

func (e *Engine) trigger(idx int) (bool, error) {
	if !e.table.TryRun(idx, e.now()) {
		if idx < 0 || idx >= e.table.Len() {
			slog.Warn("[WARN-DISPATCH] hotkey index out of range", "index", idx, "len", e.table.Len())
		}
		return false, nil
	}
	s := e.table.At(idx)
	slog.Debug("[DEBUG-DISPATCH] running shortcut", "spec", s.Spec, "action", s.Action.String())
	return e.execute(s.Action)
}

// execute applies an action to the state. Exit stops the engine without
// touching the factor.
func (e *Engine) execute(a shortcut.Action) (bool, error) {
	switch a.Kind {
	case shortcut.ActionSet:
		e.state.Set(a.Value)
	case shortcut.ActionAdd:
		e.state.Add(a.Value)
	case shortcut.ActionToggle:
		e.state.Toggle(a.Value)
	case shortcut.ActionExit:
		e.stopped = true
		slog.Info("[DEBUG-DISPATCH] exit requested")
		return true, nil
	default:
		return false, fmt.Errorf("unknown action kind %d", a.Kind)
	}
	return false, e.refresh()
}

// refresh recomputes the viewport from the cursor and pushes it to the OS.
func (e *Engine) refresh() error {
	cursor, err := e.screen.CursorPos()
	if err != nil {
		return fmt.Errorf("%w: get cursor position: %w", ErrTransform, err)
	}
	width, height, err := e.screen.Size()
	if err != nil {
		return fmt.Errorf("%w: get screen size: %w", ErrTransform, err)
	}

	tr := e.state.Transform(cursor, width, height)
	if err := e.mag.Apply(tr.Factor, tr.OriginX, tr.OriginY); err != nil {
		return fmt.Errorf("%w: magnify: %w", ErrTransform, err)
	}
	if !e.inputTransform {
		return nil
	}
	if err := e.mag.ApplyInputTransform(tr.Source(), tr.Dest()); err != nil && !e.inputTransformWarned {
		// Requires uiAccess; keep magnifying without pointer remapping.
		e.inputTransformWarned = true
		slog.Warn("[WARN-DISPATCH] input transform unavailable, pointer is not remapped", "error", err)
	}
	return nil
}

func (e *Engine) reload(table *shortcut.Table) error {
	if table == nil {
		return errors.New("reload: table is nil")
	}
	if e.registrar != nil {
		if err := e.registrar.Unregister(); err != nil {
			slog.Warn("[WARN-DISPATCH] failed to unregister previous hotkeys", "error", err)
		}
		if err := e.registrar.Register(table); err != nil {
			return fmt.Errorf("reload: %w", err)
		}
	}
	e.table = table
	slog.Info("[DEBUG-DISPATCH] shortcut table reloaded", "shortcuts", table.Len())
	return nil
}
