package cursor

import (
	"testing"

	"voxeledit.ai/internal/editor/color"
	"voxeledit.ai/internal/editor/geom"
)

func TestTrack_FaceMode(t *testing.T) {
	c := New()
	st := c.State()
	st.TargetMode = TargetModeFace
	c.SetState(st)

	c.Track(&geom.Vec3i{X: 1, Y: 63, Z: 1}, geom.Vec3i{Y: 1})
	p, ok := c.Position()
	if !ok || p != (geom.Vec3i{X: 1, Y: 64, Z: 1}) {
		t.Fatalf("face target: got %+v ok=%v", p, ok)
	}
}

func TestTrack_BlockModeAndClear(t *testing.T) {
	c := New()
	c.Track(&geom.Vec3i{X: 5}, geom.Vec3i{Y: 1})
	if p, ok := c.Position(); !ok || p != (geom.Vec3i{X: 5}) {
		t.Fatalf("block target: got %+v ok=%v", p, ok)
	}
	c.Track(nil, geom.Vec3i{})
	if _, ok := c.Position(); ok {
		t.Fatalf("expected cleared position")
	}
}

func TestStateIsCopy(t *testing.T) {
	c := New()
	st := c.State()
	st.Color = color.Green
	if c.State().Color == color.Green {
		t.Fatalf("state must not change before SetState")
	}
	c.SetState(st)
	if c.State().Color != color.Green {
		t.Fatalf("SetState did not apply")
	}
}

func TestOnChange(t *testing.T) {
	c := New()
	n := 0
	c.OnChange(func(State, *geom.Vec3i) { n++ })
	hit := geom.Vec3i{X: 1}
	c.Track(&hit, geom.Vec3i{})
	c.Track(&hit, geom.Vec3i{})
	if n != 1 {
		t.Fatalf("expected 1 change for repeated sample, got %d", n)
	}
}
