package session

import (
	"encoding/json"
	"fmt"

	"voxeledit.ai/internal/editor/geom"
	"voxeledit.ai/internal/editor/input"
	"voxeledit.ai/internal/protocol"
)

// Event is one inbound input for a session.
type Event interface{ isEvent() }

type KeyEvent struct{ Key input.KeyEvent }

type MouseEvent struct{ Mouse input.MouseEvent }

type PaneEditEvent struct {
	PaneID string
	Field  string
	Value  any
}

type ToolSelectEvent struct {
	ToolID string
	Active bool
}

type UndoEvent struct{}

func (KeyEvent) isEvent()        {}
func (MouseEvent) isEvent()      {}
func (PaneEditEvent) isEvent()   {}
func (ToolSelectEvent) isEvent() {}
func (UndoEvent) isEvent()       {}

// DecodeEvent turns a validated wire message into an Event.
func DecodeEvent(typ string, raw []byte) (Event, error) {
	switch typ {
	case protocol.TypeInputKey:
		var m protocol.InputKeyMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		k, err := input.ParseKeyName(m.Key)
		if err != nil {
			return nil, err
		}
		mods, err := parseModifiers(m.Modifiers)
		if err != nil {
			return nil, err
		}
		return KeyEvent{Key: input.KeyEvent{Key: k, Modifiers: mods}}, nil

	case protocol.TypeInputMouse:
		var m protocol.InputMouseMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		btn, err := input.ParseButton(m.Button)
		if err != nil {
			return nil, err
		}
		it, err := input.ParseInputType(m.InputType)
		if err != nil {
			return nil, err
		}
		mods, err := parseModifiers(m.Modifiers)
		if err != nil {
			return nil, err
		}
		ray := input.MouseRay{
			Origin:    geom.Vec3f{X: m.Origin[0], Y: m.Origin[1], Z: m.Origin[2]},
			Direction: geom.Vec3f{X: m.Direction[0], Y: m.Direction[1], Z: m.Direction[2]},
			Face:      geom.FromArray(m.Face),
		}
		if m.Hit != nil {
			hit := geom.FromArray(*m.Hit)
			ray.Hit = &hit
		}
		return MouseEvent{Mouse: input.MouseEvent{
			Ray:   ray,
			Props: input.MouseProps{Button: btn, InputType: it, Modifiers: mods},
		}}, nil

	case protocol.TypePaneEdit:
		var m protocol.PaneEditMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return PaneEditEvent{PaneID: m.PaneID, Field: m.Field, Value: m.Value}, nil

	case protocol.TypeToolSelect:
		var m protocol.ToolSelectMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return ToolSelectEvent{ToolID: m.ToolID, Active: m.Active}, nil

	case protocol.TypeUndo:
		return UndoEvent{}, nil
	}
	return nil, fmt.Errorf("unsupported message type %q", typ)
}

func parseModifiers(names []string) (input.Modifier, error) {
	var mods input.Modifier
	for _, n := range names {
		m, err := input.ParseModifier(n)
		if err != nil {
			return 0, err
		}
		mods = mods.With(m)
	}
	return mods, nil
}
