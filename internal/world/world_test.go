package world

import (
	"encoding/json"
	"errors"
	"testing"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/editor/geom"
)

type memAudit struct{ entries []AuditEntry }

func (m *memAudit) WriteAudit(e AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func testBlocks() catalogs.BlockCatalog {
	pal := []string{catalogs.AirID, "minecraft:bedrock", "minecraft:dirt", "minecraft:grass", "minecraft:stone"}
	c := catalogs.BlockCatalog{Palette: pal, Index: map[string]uint16{}, Defs: map[string]catalogs.BlockDef{}}
	for i, id := range pal {
		c.Index[id] = uint16(i)
		c.Defs[id] = catalogs.BlockDef{ID: id, Solid: id != catalogs.AirID}
	}
	return c
}

func newTestDimension(t *testing.T, audit AuditLogger) *Dimension {
	t.Helper()
	d, err := New(Config{Height: 128, BoundaryR: 100, GroundLevel: 64}, testBlocks(), audit)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestGetBlock_FlatLayers(t *testing.T) {
	d := newTestDimension(t, nil)
	cases := []struct {
		y    int
		want string
	}{
		{0, "minecraft:bedrock"},
		{10, "minecraft:stone"},
		{60, "minecraft:dirt"},
		{63, "minecraft:grass"},
		{64, catalogs.AirID},
		{127, catalogs.AirID},
	}
	for _, c := range cases {
		b, ok := d.GetBlock(geom.Vec3i{X: -7, Y: c.y, Z: 33})
		if !ok || b.ID != c.want {
			t.Fatalf("y=%d: got %+v ok=%v want %s", c.y, b, ok, c.want)
		}
	}
	for _, p := range []geom.Vec3i{{Y: -1}, {Y: 128}, {X: 101, Y: 10}, {Z: -101, Y: 10}} {
		if _, ok := d.GetBlock(p); ok {
			t.Fatalf("expected %v out of bounds", p)
		}
	}
}

func TestSetBlock_AuditsChange(t *testing.T) {
	a := &memAudit{}
	d := newTestDimension(t, a)
	p := geom.Vec3i{X: -17, Y: 70, Z: 3}
	if err := d.SetBlock("tester", p, "minecraft:stone"); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}
	if b, _ := d.GetBlock(p); b.ID != "minecraft:stone" {
		t.Fatalf("block not set: %+v", b)
	}
	if err := d.SetBlock("tester", p, "minecraft:stone"); err != nil {
		t.Fatalf("SetBlock again: %v", err)
	}
	if len(a.entries) != 1 || a.entries[0].Action != "SET_BLOCK" {
		t.Fatalf("audit: %+v", a.entries)
	}
	if err := d.SetBlock("tester", geom.Vec3i{Y: 999}, "minecraft:stone"); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestSpawnItem_MergesSameItemInCell(t *testing.T) {
	a := &memAudit{}
	d := newTestDimension(t, a)
	pos := geom.Vec3f{X: 10.5, Y: 64, Z: 10.5}

	id1, err := d.SpawnItem("p1", "minecraft:stick", 3, pos, "EDITOR")
	if err != nil {
		t.Fatalf("SpawnItem: %v", err)
	}
	id2, _ := d.SpawnItem("p1", "minecraft:stick", 2, pos, "EDITOR")
	id3, _ := d.SpawnItem("p1", "minecraft:apple", 1, pos, "EDITOR")
	if id1 != "IT000001" || id2 != id1 || id3 != "IT000002" {
		t.Fatalf("ids: %s %s %s", id1, id2, id3)
	}
	if e, _ := d.Item(id1); e.Count != 5 {
		t.Fatalf("merged count: %d", e.Count)
	}
	if got := d.ItemsAt(geom.Vec3i{X: 10, Y: 64, Z: 10}); len(got) != 2 {
		t.Fatalf("ItemsAt: %+v", got)
	}
	if len(a.entries) != 3 || a.entries[1].Details["merged"] != true {
		t.Fatalf("audit: %+v", a.entries)
	}
}

func TestSpawnItem_Errors(t *testing.T) {
	d := newTestDimension(t, nil)
	if _, err := d.SpawnItem("p1", "", 1, geom.Vec3f{Y: 64}, ""); !errors.Is(err, ErrBadStack) {
		t.Fatalf("expected ErrBadStack, got %v", err)
	}
	if _, err := d.SpawnItem("p1", "minecraft:stick", 0, geom.Vec3f{Y: 64}, ""); !errors.Is(err, ErrBadStack) {
		t.Fatalf("expected ErrBadStack, got %v", err)
	}
	if _, err := d.SpawnItem("p1", "minecraft:stick", 1, geom.Vec3f{Y: 500}, ""); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestDespawnItem(t *testing.T) {
	d := newTestDimension(t, nil)
	pos := geom.Vec3f{X: 0.5, Y: 64, Z: 0.5}
	id, _ := d.SpawnItem("p1", "minecraft:stick", 3, pos, "EDITOR")
	_, _ = d.SpawnItem("p1", "minecraft:stick", 2, pos, "EDITOR")

	if err := d.DespawnItem("p1", id, 2, "UNDO"); err != nil {
		t.Fatalf("DespawnItem: %v", err)
	}
	if e, ok := d.Item(id); !ok || e.Count != 3 {
		t.Fatalf("after partial despawn: %+v ok=%v", e, ok)
	}
	if err := d.View("p1").DespawnItem(id, 3); err != nil {
		t.Fatalf("DespawnItem: %v", err)
	}
	if _, ok := d.Item(id); ok {
		t.Fatalf("entity should be gone")
	}
	if len(d.ItemsAt(geom.Vec3i{Y: 64})) != 0 || len(d.Items()) != 0 {
		t.Fatalf("index not cleaned up")
	}
	if err := d.DespawnItem("p1", id, 1, "UNDO"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNew_RequiresCoreBlocks(t *testing.T) {
	c := testBlocks()
	delete(c.Index, "minecraft:grass")
	if _, err := New(Config{Height: 16, GroundLevel: 8}, c, nil); err == nil {
		t.Fatalf("expected missing block error")
	}
	if _, err := New(Config{Height: 16, GroundLevel: 16}, testBlocks(), nil); err == nil {
		t.Fatalf("expected bad config error")
	}
}

func TestFloorDivMod(t *testing.T) {
	cases := [][4]int{{-1, 16, -1, 15}, {-16, 16, -1, 0}, {-17, 16, -2, 15}, {17, 16, 1, 1}, {0, 16, 0, 0}}
	for _, c := range cases {
		if q, m := floorDiv(c[0], c[1]), mod(c[0], c[1]); q != c[2] || m != c[3] {
			t.Fatalf("%d/%d: got %d,%d want %d,%d", c[0], c[1], q, m, c[2], c[3])
		}
	}
}

func TestApplyAudit_RebuildsItems(t *testing.T) {
	var rec memAudit
	src := newTestDimension(t, &rec)
	v := src.View("alice")
	a, _ := v.SpawnItem("minecraft:stick", 3, geom.Vec3f{X: 1.5, Y: 64, Z: 1.5})
	_, _ = v.SpawnItem("minecraft:stick", 2, geom.Vec3f{X: 1.2, Y: 64, Z: 1.7})
	b, _ := v.SpawnItem("minecraft:apple", 1, geom.Vec3f{X: 4.5, Y: 64, Z: 4.5})
	if err := v.DespawnItem(b, 1); err != nil {
		t.Fatalf("despawn: %v", err)
	}

	// Round-trip through JSON the way the audit log stores entries.
	dst := newTestDimension(t, nil)
	for _, e := range rec.entries {
		raw, _ := json.Marshal(e)
		var back AuditEntry
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := dst.ApplyAudit(back); err != nil {
			t.Fatalf("ApplyAudit(%s): %v", back.Action, err)
		}
	}
	items := dst.Items()
	if len(items) != 1 || items[0].EntityID != a || items[0].Count != 5 {
		t.Fatalf("replayed items: %+v", items)
	}
}

func TestApplyAudit_DetectsDivergence(t *testing.T) {
	dst := newTestDimension(t, nil)
	err := dst.ApplyAudit(AuditEntry{Action: "ITEM_SPAWN", Pos: [3]int{0, 64, 0}, Details: map[string]any{
		"item": "minecraft:stick", "count": float64(1), "entity_id": "IT000042",
	}})
	if !errors.Is(err, ErrReplayMismatch) {
		t.Fatalf("err=%v", err)
	}
}

func TestApplyAudit_WorldStartResetsIDs(t *testing.T) {
	dst := newTestDimension(t, nil)
	spawn := AuditEntry{Action: "ITEM_SPAWN", Pos: [3]int{0, 64, 0}, Details: map[string]any{
		"item": "minecraft:stick", "count": float64(1), "entity_id": "IT000001",
	}}
	for i, e := range []AuditEntry{spawn, {Action: "WORLD_START"}, spawn} {
		if err := dst.ApplyAudit(e); err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
	}
	if items := dst.Items(); len(items) != 1 || items[0].Count != 1 {
		t.Fatalf("items after restart: %+v", items)
	}
}
