package toolrail

import (
	"errors"
	"fmt"

	"voxeledit.ai/internal/editor/input"
	"voxeledit.ai/internal/editor/pane"
)

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrDuplicateTool = errors.New("tool already on rail")
)

type ToolOptions struct {
	DisplayString string
	Tooltip       string
	Icon          string
}

// ActivationEvent is delivered to a tool when it gains or loses the active slot.
type ActivationEvent struct {
	ToolID       string
	IsActiveTool bool
}

type Tool struct {
	id   string
	opts ToolOptions
	rail *Rail

	pane         *pane.Pane
	onActivation []func(ActivationEvent)
}

func (t *Tool) ID() string                { return t.id }
func (t *Tool) Options() ToolOptions      { return t.opts }
func (t *Tool) PropertyPane() *pane.Pane { return t.pane }

func (t *Tool) OnActivation(fn func(ActivationEvent)) {
	t.onActivation = append(t.onActivation, fn)
}

// BindPropertyPane shows p while the tool is active.
func (t *Tool) BindPropertyPane(p *pane.Pane) { t.pane = p }

// RegisterMouseButtonBinding binds a ray-cast action that only fires while the tool is active.
func (t *Tool) RegisterMouseButtonBinding(a *input.Action) error {
	return t.rail.inputs.RegisterMouseBinding(input.KindMouseButton, t.id, a)
}

func (t *Tool) RegisterMouseDragBinding(a *input.Action) error {
	return t.rail.inputs.RegisterMouseBinding(input.KindMouseDrag, t.id, a)
}

// Rail holds the tools of one session and tracks which one is active.
type Rail struct {
	inputs   *input.Manager
	tools    map[string]*Tool
	order    []string
	selected string

	onSelect func(prev, next string)
}

func New(inputs *input.Manager) *Rail {
	return &Rail{inputs: inputs, tools: map[string]*Tool{}}
}

// AddTool registers a tool under id.
func (r *Rail) AddTool(id string, opts ToolOptions) (*Tool, error) {
	if id == "" {
		return nil, fmt.Errorf("toolrail: empty tool id")
	}
	if _, ok := r.tools[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, id)
	}
	t := &Tool{id: id, opts: opts, rail: r}
	r.tools[id] = t
	r.order = append(r.order, id)
	return t, nil
}

func (r *Rail) Tool(id string) (*Tool, bool) {
	t, ok := r.tools[id]
	return t, ok
}

func (r *Rail) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id])
	}
	return out
}

// Selected returns the active tool id, or "" when none is active.
func (r *Rail) Selected() string { return r.selected }

// SetSelectedOptionID activates or deactivates a tool. Activating the active tool is a
// no-op, so key bindings can call it repeatedly.
func (r *Rail) SetSelectedOptionID(id string, active bool) error {
	t, ok := r.tools[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTool, id)
	}
	prev := r.selected
	if active {
		if prev == id {
			return nil
		}
		if p, ok := r.tools[prev]; ok {
			p.emit(false)
		}
		r.selected = id
		t.emit(true)
	} else {
		if prev != id {
			return nil
		}
		r.selected = ""
		t.emit(false)
	}
	if r.onSelect != nil {
		r.onSelect(prev, r.selected)
	}
	return nil
}

// OnSelect installs the observer notified after the active tool changes.
func (r *Rail) OnSelect(fn func(prev, next string)) { r.onSelect = fn }

func (t *Tool) emit(active bool) {
	ev := ActivationEvent{ToolID: t.id, IsActiveTool: active}
	for _, fn := range t.onActivation {
		fn(ev)
	}
}
