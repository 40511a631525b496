// Package pane implements property panes: typed fields bound to a settings struct.
package pane

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
)

var (
	ErrUnknownField = errors.New("unknown pane field")
	ErrInvalidValue = errors.New("invalid pane value")
	ErrDuplicate    = errors.New("pane field already exists")
)

type FieldKind string

const (
	FieldDropdown FieldKind = "dropdown"
	FieldNumber   FieldKind = "number"
)

type Options struct {
	Title string
	Width int
}

type DropdownItem struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	StringID string `json:"string_id,omitempty"`
}

type DropdownOptions struct {
	Items []DropdownItem
}

type NumberOptions struct {
	Min        float64
	Max        float64
	ShowSlider bool
	Integer    bool
}

// Binding mirrors a settings struct as a map keyed by mapstructure tags. Fields are
// written back into the struct on every accepted edit.
type Binding struct {
	target any
	values map[string]any
}

// NewBinding wraps a pointer to a struct.
func NewBinding(target any) (*Binding, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("pane binding: want pointer to struct, got %T", target)
	}
	values := map[string]any{}
	if err := mapstructure.Decode(rv.Elem().Interface(), &values); err != nil {
		return nil, fmt.Errorf("pane binding: %w", err)
	}
	return &Binding{target: target, values: values}, nil
}

func (b *Binding) has(field string) bool {
	_, ok := b.values[field]
	return ok
}

func (b *Binding) get(field string) any { return b.values[field] }

func (b *Binding) set(field string, v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           b.target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any{field: v}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	b.values[field] = v
	return nil
}

// Field describes one pane control.
type Field struct {
	Name     string
	Kind     FieldKind
	Dropdown *DropdownOptions
	Number   *NumberOptions
}

// Pane is a property pane. It is owned by the session loop.
type Pane struct {
	id      string
	opts    Options
	binding *Binding
	fields  map[string]*Field
	order   []string

	onChange []func(field string, value any)
}

func New(id string, opts Options, b *Binding) *Pane {
	return &Pane{id: id, opts: opts, binding: b, fields: map[string]*Field{}}
}

func (p *Pane) ID() string       { return p.id }
func (p *Pane) Options() Options { return p.opts }

func (p *Pane) AddDropdown(field string, opts DropdownOptions) error {
	return p.add(&Field{Name: field, Kind: FieldDropdown, Dropdown: &opts})
}

func (p *Pane) AddNumber(field string, opts NumberOptions) error {
	if opts.Min > opts.Max {
		return fmt.Errorf("pane %s: number %s: min %v > max %v", p.id, field, opts.Min, opts.Max)
	}
	if err := p.add(&Field{Name: field, Kind: FieldNumber, Number: &opts}); err != nil {
		return err
	}
	// Bring the bound value into range immediately.
	v, err := toFloat(p.binding.get(field))
	if err != nil {
		return fmt.Errorf("pane %s: number %s: %w", p.id, field, err)
	}
	return p.binding.set(field, opts.normalize(v))
}

func (p *Pane) add(f *Field) error {
	if !p.binding.has(f.Name) {
		return fmt.Errorf("%w: %s", ErrUnknownField, f.Name)
	}
	if _, ok := p.fields[f.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, f.Name)
	}
	p.fields[f.Name] = f
	p.order = append(p.order, f.Name)
	return nil
}

// Set applies an edit coming from the UI. Numbers are clamped into range; dropdown
// values must be one of the listed items.
func (p *Pane) Set(field string, raw any) error {
	f, ok := p.fields[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	var v any
	switch f.Kind {
	case FieldNumber:
		n, err := toFloat(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
		}
		v = f.Number.normalize(n)
	case FieldDropdown:
		s, ok := raw.(string)
		if !ok || !f.Dropdown.contains(s) {
			return fmt.Errorf("%w: %s: %v not in list", ErrInvalidValue, field, raw)
		}
		v = s
	}
	if err := p.binding.set(field, v); err != nil {
		return err
	}
	for _, fn := range p.onChange {
		fn(field, v)
	}
	return nil
}

// OnChange registers an observer called after every accepted edit.
func (p *Pane) OnChange(fn func(field string, value any)) {
	p.onChange = append(p.onChange, fn)
}

// Fields returns the controls in insertion order.
func (p *Pane) Fields() []Field {
	out := make([]Field, 0, len(p.order))
	for _, n := range p.order {
		out = append(out, *p.fields[n])
	}
	return out
}

// Values returns the current bound values of every control.
func (p *Pane) Values() map[string]any {
	out := make(map[string]any, len(p.fields))
	for n := range p.fields {
		out[n] = p.binding.get(n)
	}
	return out
}

// FieldNames is sorted.
func (p *Pane) FieldNames() []string {
	out := append([]string(nil), p.order...)
	sort.Strings(out)
	return out
}

func (o NumberOptions) normalize(v float64) any {
	v = math.Max(o.Min, math.Min(o.Max, v))
	if o.Integer {
		return int(math.Round(v))
	}
	return v
}

func (o DropdownOptions) contains(v string) bool {
	for _, it := range o.Items {
		if it.Value == v {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, error) {
	var f float64
	if err := mapstructure.WeakDecode(v, &f); err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}
