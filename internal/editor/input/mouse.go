package input

import (
	"fmt"
	"strings"

	"voxeledit.ai/internal/editor/geom"
)

type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "LEFT"
	case ButtonMiddle:
		return "MIDDLE"
	case ButtonRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

func ParseButton(s string) (Button, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEFT":
		return ButtonLeft, nil
	case "MIDDLE":
		return ButtonMiddle, nil
	case "RIGHT":
		return ButtonRight, nil
	case "", "NONE":
		return ButtonNone, nil
	default:
		return ButtonNone, fmt.Errorf("unknown mouse button %q", s)
	}
}

// InputType is the phase of a mouse sample.
type InputType uint8

const (
	InputNone InputType = iota
	ButtonDown
	ButtonUp
	Drag
	WheelIn
	WheelOut
)

func (t InputType) String() string {
	switch t {
	case ButtonDown:
		return "BUTTON_DOWN"
	case ButtonUp:
		return "BUTTON_UP"
	case Drag:
		return "DRAG"
	case WheelIn:
		return "WHEEL_IN"
	case WheelOut:
		return "WHEEL_OUT"
	default:
		return "NONE"
	}
}

func ParseInputType(s string) (InputType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUTTON_DOWN":
		return ButtonDown, nil
	case "BUTTON_UP":
		return ButtonUp, nil
	case "DRAG":
		return Drag, nil
	case "WHEEL_IN":
		return WheelIn, nil
	case "WHEEL_OUT":
		return WheelOut, nil
	default:
		return InputNone, fmt.Errorf("unknown mouse input type %q", s)
	}
}

// MouseRay is the pick ray of a mouse sample. Hit is the block the ray hit, if any;
// Face is the unit normal of the hit face.
type MouseRay struct {
	Origin    geom.Vec3f
	Direction geom.Vec3f
	Hit       *geom.Vec3i
	Face      geom.Vec3i
}

type MouseProps struct {
	Button    Button
	InputType InputType
	Modifiers Modifier
}

type MouseEvent struct {
	Ray   MouseRay
	Props MouseProps
}

// Kind returns the binding table the event is routed to.
func (e MouseEvent) Kind() Kind {
	if e.Props.InputType == Drag {
		return KindMouseDrag
	}
	return KindMouseButton
}
