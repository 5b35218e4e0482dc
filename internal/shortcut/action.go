package shortcut

import "fmt"

// ActionKind selects what a shortcut does to the magnifier.
type ActionKind uint8

const (
	ActionSet ActionKind = iota + 1
	ActionAdd
	ActionToggle
	ActionExit
)

// Action is a tagged value. Value is the target factor for Set and Toggle,
// the delta for Add, and unused for Exit.
type Action struct {
	Kind  ActionKind
	Value float32
}

func Set(factor float32) Action    { return Action{Kind: ActionSet, Value: factor} }
func Add(delta float32) Action     { return Action{Kind: ActionAdd, Value: delta} }
func Toggle(factor float32) Action { return Action{Kind: ActionToggle, Value: factor} }
func Exit() Action                 { return Action{Kind: ActionExit} }

func (a Action) String() string {
	switch a.Kind {
	case ActionSet:
		return fmt.Sprintf("set(%g)", a.Value)
	case ActionAdd:
		return fmt.Sprintf("add(%+g)", a.Value)
	case ActionToggle:
		return fmt.Sprintf("toggle(%g)", a.Value)
	case ActionExit:
		return "exit"
	default:
		return fmt.Sprintf("action(%d)", a.Kind)
	}
}

// ParseActionKind maps the configuration tag to an ActionKind.
func ParseActionKind(tag string) (ActionKind, bool) {
	switch tag {
	case "set":
		return ActionSet, true
	case "add":
		return ActionAdd, true
	case "toggle":
		return ActionToggle, true
	case "exit":
		return ActionExit, true
	}
	return 0, false
}
