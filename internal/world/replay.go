package world

import (
	"errors"
	"fmt"

	"voxeledit.ai/internal/editor/geom"
)

var ErrReplayMismatch = errors.New("replay mismatch")

// MarkStart records that a fresh dimension came up. Entity ids restart after it,
// so replay resets its own state when it sees one.
func (d *Dimension) MarkStart(actor string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.auditLocked(AuditEntry{Actor: actor, Action: "WORLD_START"})
}

func (d *Dimension) resetLocked() {
	d.store = newChunkStore(d.store.gen)
	d.items = map[string]*ItemEntity{}
	d.itemsAt = map[geom.Vec3i][]string{}
	d.nextID = 0
}

// ApplyAudit re-applies a recorded mutation to d. Spawned entity ids must come out
// the same as recorded, which holds when the entries are applied in log order to a
// dimension built from the same config.
func (d *Dimension) ApplyAudit(e AuditEntry) error {
	pos := geom.FromArray(e.Pos)
	switch e.Action {
	case "WORLD_START":
		d.mu.Lock()
		d.resetLocked()
		d.mu.Unlock()
		return nil

	case "SET_BLOCK":
		if int(e.To) >= len(d.blocks.Palette) {
			return fmt.Errorf("%w: palette id %d", ErrReplayMismatch, e.To)
		}
		return d.SetBlock(e.Actor, pos, d.blocks.Palette[e.To])

	case "ITEM_SPAWN":
		item, _ := e.Details["item"].(string)
		count := detailInt(e.Details["count"])
		at := geom.Vec3f{X: float64(pos.X) + 0.5, Y: float64(pos.Y), Z: float64(pos.Z) + 0.5}
		id, err := d.SpawnItem(e.Actor, item, count, at, e.Reason)
		if err != nil {
			return err
		}
		if want, _ := e.Details["entity_id"].(string); want != "" && want != id {
			return fmt.Errorf("%w: spawn at %v got %s want %s", ErrReplayMismatch, pos, id, want)
		}
		return nil

	case "ITEM_DESPAWN":
		id, _ := e.Details["entity_id"].(string)
		return d.DespawnItem(e.Actor, id, detailInt(e.Details["count"]), e.Reason)
	}
	return fmt.Errorf("%w: unknown action %q", ErrReplayMismatch, e.Action)
}

// detailInt reads a count from details that went through JSON.
func detailInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
