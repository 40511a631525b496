package pane

import (
	"errors"
	"testing"
)

type settings struct {
	ItemType string `mapstructure:"itemType"`
	Amount   int    `mapstructure:"amount"`
}

func newPane(t *testing.T, s *settings) *Pane {
	t.Helper()
	b, err := NewBinding(s)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	p := New("PANE0001", Options{Title: "Test", Width: 40}, b)
	if err := p.AddDropdown("itemType", DropdownOptions{Items: []DropdownItem{
		{Value: "minecraft:stick", Label: "minecraft:stick"},
		{Value: "minecraft:diamond_sword", Label: "minecraft:diamond_sword"},
	}}); err != nil {
		t.Fatalf("AddDropdown: %v", err)
	}
	if err := p.AddNumber("amount", NumberOptions{Min: 1, Max: 64, ShowSlider: true, Integer: true}); err != nil {
		t.Fatalf("AddNumber: %v", err)
	}
	return p
}

func TestNumberClamp(t *testing.T) {
	s := &settings{ItemType: "minecraft:stick", Amount: 1}
	p := newPane(t, s)
	cases := []struct {
		in   any
		want int
	}{
		{0, 1},
		{-5, 1},
		{65, 64},
		{1000.0, 64},
		{"32", 32},
		{12.6, 13},
		{64, 64},
	}
	for _, c := range cases {
		if err := p.Set("amount", c.in); err != nil {
			t.Fatalf("Set(amount, %v): %v", c.in, err)
		}
		if s.Amount != c.want {
			t.Fatalf("Set(amount, %v): got %d want %d", c.in, s.Amount, c.want)
		}
	}
}

func TestAddNumber_ClampsInitialValue(t *testing.T) {
	s := &settings{ItemType: "minecraft:stick", Amount: 500}
	newPane(t, s)
	if s.Amount != 64 {
		t.Fatalf("initial amount not clamped: %d", s.Amount)
	}
}

func TestDropdownRejectsUnknown(t *testing.T) {
	s := &settings{ItemType: "minecraft:stick", Amount: 1}
	p := newPane(t, s)
	if err := p.Set("itemType", "minecraft:bedrock_sword"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err := p.Set("itemType", 5); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if s.ItemType != "minecraft:stick" {
		t.Fatalf("rejected value leaked into settings: %q", s.ItemType)
	}
	if err := p.Set("itemType", "minecraft:diamond_sword"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.ItemType != "minecraft:diamond_sword" {
		t.Fatalf("itemType not applied: %q", s.ItemType)
	}
}

func TestSetUnknownField(t *testing.T) {
	p := newPane(t, &settings{ItemType: "minecraft:stick", Amount: 1})
	if err := p.Set("color", "red"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := p.AddNumber("missing", NumberOptions{Min: 0, Max: 1}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestOnChangeFiresOnAcceptedEdits(t *testing.T) {
	p := newPane(t, &settings{ItemType: "minecraft:stick", Amount: 1})
	var got []string
	p.OnChange(func(field string, _ any) { got = append(got, field) })
	_ = p.Set("amount", 3)
	_ = p.Set("itemType", "nope")
	_ = p.Set("itemType", "minecraft:diamond_sword")
	if len(got) != 2 || got[0] != "amount" || got[1] != "itemType" {
		t.Fatalf("observers: %v", got)
	}
	vals := p.Values()
	if vals["amount"] != 3 || vals["itemType"] != "minecraft:diamond_sword" {
		t.Fatalf("values: %v", vals)
	}
}

func TestNewBinding_RejectsNonStruct(t *testing.T) {
	if _, err := NewBinding(settings{}); err == nil {
		t.Fatalf("expected error for non-pointer")
	}
	n := 3
	if _, err := NewBinding(&n); err == nil {
		t.Fatalf("expected error for pointer to int")
	}
}
