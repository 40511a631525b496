package cursor

import (
	"voxeledit.ai/internal/editor/color"
	"voxeledit.ai/internal/editor/geom"
)

type ControlMode int

const (
	ControlModeKeyboard ControlMode = iota
	ControlModeMouse
	ControlModeKeyboardAndMouse
	ControlModeFixed
)

func (m ControlMode) String() string {
	switch m {
	case ControlModeKeyboard:
		return "KEYBOARD"
	case ControlModeMouse:
		return "MOUSE"
	case ControlModeKeyboardAndMouse:
		return "KEYBOARD_AND_MOUSE"
	case ControlModeFixed:
		return "FIXED"
	default:
		return "UNKNOWN"
	}
}

type TargetMode int

const (
	// TargetModeBlock targets the block under the ray.
	TargetModeBlock TargetMode = iota
	// TargetModeFace targets the empty cell in front of the hit face.
	TargetModeFace
)

func (m TargetMode) String() string {
	if m == TargetModeFace {
		return "FACE"
	}
	return "BLOCK"
}

// State describes how the cursor looks and how it follows input.
type State struct {
	Color             color.RGBA
	ControlMode       ControlMode
	TargetMode        TargetMode
	Visible           bool
	FixedModeDistance int
}

func DefaultState() State {
	return State{
		Color:             color.White,
		ControlMode:       ControlModeMouse,
		TargetMode:        TargetModeBlock,
		Visible:           true,
		FixedModeDistance: 5,
	}
}

// Cursor is the session's world-space pointer. It is owned by the session loop.
type Cursor struct {
	state State
	pos   *geom.Vec3i

	onChange func(State, *geom.Vec3i)
}

func New() *Cursor {
	return &Cursor{state: DefaultState()}
}

// State returns a copy of the current state; edits do not apply until SetState.
func (c *Cursor) State() State { return c.state }

func (c *Cursor) SetState(s State) {
	c.state = s
	c.changed()
}

// Position returns the targeted block, if any.
func (c *Cursor) Position() (geom.Vec3i, bool) {
	if c.pos == nil {
		return geom.Vec3i{}, false
	}
	return *c.pos, true
}

// Track updates the position from a ray hit. A nil hit clears the target.
func (c *Cursor) Track(hit *geom.Vec3i, face geom.Vec3i) {
	if hit == nil {
		if c.pos == nil {
			return
		}
		c.pos = nil
		c.changed()
		return
	}
	p := *hit
	if c.state.TargetMode == TargetModeFace {
		p = p.Add(face)
	}
	if c.pos != nil && *c.pos == p {
		return
	}
	c.pos = &p
	c.changed()
}

// OnChange installs the observer notified after every state or position change.
func (c *Cursor) OnChange(fn func(State, *geom.Vec3i)) { c.onChange = fn }

func (c *Cursor) changed() {
	if c.onChange != nil {
		c.onChange(c.state, c.pos)
	}
}
