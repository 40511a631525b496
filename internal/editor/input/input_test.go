package input

import (
	"errors"
	"testing"

	"voxeledit.ai/internal/editor/geom"
)

func TestParseKey(t *testing.T) {
	cases := []struct {
		spec string
		want KeyEvent
	}{
		{"I", KeyEvent{Key: "I"}},
		{"i", KeyEvent{Key: "I"}},
		{"Ctrl+I", KeyEvent{Key: "I", Modifiers: ModControl}},
		{"control+shift+p", KeyEvent{Key: "P", Modifiers: ModControl | ModShift}},
		{"Alt+F4", KeyEvent{Key: "F4", Modifiers: ModAlt}},
		{"Esc", KeyEvent{Key: "ESCAPE"}},
	}
	for _, c := range cases {
		got, err := ParseKey(c.spec)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", c.spec, err)
		}
		if got != c.want {
			t.Fatalf("ParseKey(%q): got %+v want %+v", c.spec, got, c.want)
		}
	}
}

func TestParseKey_Errors(t *testing.T) {
	if _, err := ParseKey(""); !errors.Is(err, ErrEmptySpec) {
		t.Fatalf("expected ErrEmptySpec, got %v", err)
	}
	if _, err := ParseKey("Hyper+I"); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	if _, err := ParseKey("Ctrl+Banana"); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestDispatchKey_GlobalFiresInAnyMode(t *testing.T) {
	am := NewActionManager()
	m := NewManager()
	fired := 0
	a := am.CreateNoArgsAction(func() { fired++ })
	if err := m.RegisterKeyBinding(ContextGlobalToolMode, a, "I", ModControl); err != nil {
		t.Fatalf("RegisterKeyBinding: %v", err)
	}
	m.DispatchKey(KeyEvent{Key: "I", Modifiers: ModControl}, ContextViewport)
	m.DispatchKey(KeyEvent{Key: "I", Modifiers: ModControl}, ContextGlobalEditor)
	if n := m.DispatchKey(KeyEvent{Key: "I"}, ContextViewport); n != 0 {
		t.Fatalf("unmodified key must not fire, fired %d", n)
	}
	if fired != 2 {
		t.Fatalf("expected 2 fires, got %d", fired)
	}
}

func TestDispatchKey_ScopedContext(t *testing.T) {
	am := NewActionManager()
	m := NewManager()
	fired := 0
	a := am.CreateNoArgsAction(func() { fired++ })
	_ = m.RegisterKeyBinding(ContextViewport, a, "X", ModNone)
	m.DispatchKey(KeyEvent{Key: "X"}, ContextGlobalEditor)
	m.DispatchKey(KeyEvent{Key: "X"}, ContextViewport)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}
}

func TestRegister_TypeChecks(t *testing.T) {
	am := NewActionManager()
	m := NewManager()
	mouse := am.CreateMouseRayCastAction(func(MouseRay, MouseProps) {})
	if err := m.RegisterKeyBinding(ContextGlobalToolMode, mouse, "I", ModNone); !errors.Is(err, ErrActionType) {
		t.Fatalf("expected ErrActionType, got %v", err)
	}
	noArgs := am.CreateNoArgsAction(func() {})
	if err := m.RegisterMouseBinding(KindMouseButton, "T1", noArgs); !errors.Is(err, ErrActionType) {
		t.Fatalf("expected ErrActionType, got %v", err)
	}
	if err := m.RegisterKeyBinding(ContextGlobalToolMode, noArgs, "I", ModNone); err != nil {
		t.Fatalf("RegisterKeyBinding: %v", err)
	}
	if err := m.RegisterKeyBinding(ContextGlobalToolMode, noArgs, "I", ModNone); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDispatchMouse_RoutesByKindAndOwner(t *testing.T) {
	am := NewActionManager()
	m := NewManager()
	var buttons, drags []InputType
	btn := am.CreateMouseRayCastAction(func(_ MouseRay, p MouseProps) { buttons = append(buttons, p.InputType) })
	drag := am.CreateMouseRayCastAction(func(_ MouseRay, p MouseProps) { drags = append(drags, p.InputType) })
	_ = m.RegisterMouseBinding(KindMouseButton, "T1", btn)
	_ = m.RegisterMouseBinding(KindMouseDrag, "T1", drag)

	hit := geom.Vec3i{}
	m.DispatchMouse("T1", MouseEvent{Ray: MouseRay{Hit: &hit}, Props: MouseProps{Button: ButtonLeft, InputType: ButtonDown}})
	m.DispatchMouse("T1", MouseEvent{Props: MouseProps{Button: ButtonLeft, InputType: Drag}})
	m.DispatchMouse("T2", MouseEvent{Props: MouseProps{Button: ButtonLeft, InputType: ButtonUp}})

	if len(buttons) != 1 || buttons[0] != ButtonDown {
		t.Fatalf("buttons: %v", buttons)
	}
	if len(drags) != 1 || drags[0] != Drag {
		t.Fatalf("drags: %v", drags)
	}

	m.UnregisterOwner("T1")
	if n := m.DispatchMouse("T1", MouseEvent{Props: MouseProps{InputType: ButtonDown}}); n != 0 {
		t.Fatalf("expected no bindings after unregister, fired %d", n)
	}
}
