package input

import (
	"errors"
	"fmt"
)

var (
	ErrActionType   = errors.New("action type does not match binding")
	ErrNilAction    = errors.New("nil action")
	ErrDuplicateKey = errors.New("key binding already registered in context")
)

// Context scopes key bindings to an editor mode.
type Context uint8

const (
	// ContextGlobalToolMode bindings fire in every editor mode.
	ContextGlobalToolMode Context = iota
	ContextGlobalEditor
	ContextViewport
)

func (c Context) String() string {
	switch c {
	case ContextGlobalToolMode:
		return "GLOBAL_TOOL_MODE"
	case ContextGlobalEditor:
		return "GLOBAL_EDITOR"
	case ContextViewport:
		return "VIEWPORT"
	default:
		return "UNKNOWN"
	}
}

// Kind identifies a binding table.
type Kind uint8

const (
	KindKey Kind = iota + 1
	KindMouseButton
	KindMouseDrag
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "KEY"
	case KindMouseButton:
		return "MOUSE_BUTTON"
	case KindMouseDrag:
		return "MOUSE_DRAG"
	default:
		return "UNKNOWN"
	}
}

type keyBinding struct {
	ctx    Context
	action *Action
}

type mouseBinding struct {
	owner  string
	action *Action
}

// Manager is the binding table of one session, keyed by event kind.
type Manager struct {
	keys  map[KeyEvent][]keyBinding
	mouse map[Kind][]mouseBinding
}

func NewManager() *Manager {
	return &Manager{
		keys:  map[KeyEvent][]keyBinding{},
		mouse: map[Kind][]mouseBinding{},
	}
}

func (m *Manager) RegisterKeyBinding(ctx Context, a *Action, key Key, mods Modifier) error {
	if a == nil {
		return ErrNilAction
	}
	if a.typ != NoArgsAction {
		return fmt.Errorf("%w: key binding needs %s, got %s", ErrActionType, NoArgsAction, a.typ)
	}
	ev := KeyEvent{Key: key, Modifiers: mods}
	for _, b := range m.keys[ev] {
		if b.ctx == ctx {
			return fmt.Errorf("%w: %s in %s", ErrDuplicateKey, ev, ctx)
		}
	}
	m.keys[ev] = append(m.keys[ev], keyBinding{ctx: ctx, action: a})
	return nil
}

// RegisterMouseBinding binds a ray-cast action to a mouse table. Owner scopes the
// binding (a tool id); an empty owner fires for every owner.
func (m *Manager) RegisterMouseBinding(kind Kind, owner string, a *Action) error {
	if a == nil {
		return ErrNilAction
	}
	if a.typ != MouseRayCastAction {
		return fmt.Errorf("%w: mouse binding needs %s, got %s", ErrActionType, MouseRayCastAction, a.typ)
	}
	if kind != KindMouseButton && kind != KindMouseDrag {
		return fmt.Errorf("mouse binding: bad kind %s", kind)
	}
	m.mouse[kind] = append(m.mouse[kind], mouseBinding{owner: owner, action: a})
	return nil
}

// UnregisterOwner drops every mouse binding of owner.
func (m *Manager) UnregisterOwner(owner string) {
	for k, bs := range m.mouse {
		kept := bs[:0]
		for _, b := range bs {
			if b.owner != owner {
				kept = append(kept, b)
			}
		}
		m.mouse[k] = kept
	}
}

// DispatchKey runs the actions bound to ev in mode and returns how many fired.
func (m *Manager) DispatchKey(ev KeyEvent, mode Context) int {
	n := 0
	for _, b := range m.keys[ev] {
		if b.ctx != ContextGlobalToolMode && b.ctx != mode {
			continue
		}
		if b.action.noArg != nil {
			b.action.noArg()
		}
		n++
	}
	return n
}

// DispatchMouse runs the mouse actions of ev's kind owned by owner.
func (m *Manager) DispatchMouse(owner string, ev MouseEvent) int {
	n := 0
	for _, b := range m.mouse[ev.Kind()] {
		if b.owner != "" && b.owner != owner {
			continue
		}
		if b.action.mouse != nil {
			b.action.mouse(ev.Ray, ev.Props)
		}
		n++
	}
	return n
}

// KeyBindings lists registered key events, for WELCOME manifests.
func (m *Manager) KeyBindings() []KeyEvent {
	out := make([]KeyEvent, 0, len(m.keys))
	for ev := range m.keys {
		out = append(out, ev)
	}
	return out
}
