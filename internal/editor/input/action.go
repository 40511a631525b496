package input

import "fmt"

type ActionType uint8

const (
	NoArgsAction ActionType = iota + 1
	MouseRayCastAction
)

func (t ActionType) String() string {
	switch t {
	case NoArgsAction:
		return "NO_ARGS"
	case MouseRayCastAction:
		return "MOUSE_RAY_CAST"
	default:
		return "UNKNOWN"
	}
}

// Action is a named callback that bindings point at.
type Action struct {
	id    string
	typ   ActionType
	noArg func()
	mouse func(MouseRay, MouseProps)
}

func (a *Action) ID() string       { return a.id }
func (a *Action) Type() ActionType { return a.typ }

// ActionManager mints actions for one session.
type ActionManager struct {
	next    int
	actions map[string]*Action
}

func NewActionManager() *ActionManager {
	return &ActionManager{actions: map[string]*Action{}}
}

func (m *ActionManager) CreateNoArgsAction(fn func()) *Action {
	return m.add(&Action{typ: NoArgsAction, noArg: fn})
}

func (m *ActionManager) CreateMouseRayCastAction(fn func(MouseRay, MouseProps)) *Action {
	return m.add(&Action{typ: MouseRayCastAction, mouse: fn})
}

func (m *ActionManager) Get(id string) (*Action, bool) {
	a, ok := m.actions[id]
	return a, ok
}

func (m *ActionManager) Len() int { return len(m.actions) }

func (m *ActionManager) add(a *Action) *Action {
	m.next++
	a.id = fmt.Sprintf("ACT%04d", m.next)
	m.actions[a.id] = a
	return a
}
