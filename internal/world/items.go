package world

import (
	"fmt"
	"sort"

	"voxeledit.ai/internal/editor/geom"
)

// ItemEntity is a dropped item stack. Stacks of the same item in the same block
// cell merge.
type ItemEntity struct {
	EntityID string     `json:"entity_id"`
	Pos      geom.Vec3f `json:"pos"`
	Item     string     `json:"item"`
	Count    int        `json:"count"`
}

func (e *ItemEntity) ID() string { return e.EntityID }

func (d *Dimension) newItemEntityID() string {
	d.nextID++
	return fmt.Sprintf("IT%06d", d.nextID)
}

// SpawnItem drops count units of item at pos and returns the id of the entity that
// holds them.
func (d *Dimension) SpawnItem(actor, item string, count int, pos geom.Vec3f, reason string) (string, error) {
	if item == "" || count <= 0 {
		return "", fmt.Errorf("%w: %q x%d", ErrBadStack, item, count)
	}
	cell := pos.Block()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.store.inBounds(cell) {
		return "", fmt.Errorf("%w: %v", ErrOutOfBounds, cell)
	}

	for _, id := range d.itemsAt[cell] {
		e := d.items[id]
		if e == nil || e.Item != item {
			continue
		}
		e.Count += count
		d.auditLocked(AuditEntry{Actor: actor, Action: "ITEM_SPAWN", Pos: cell.ToArray(), Reason: reason, Details: map[string]any{
			"entity_id": e.EntityID,
			"item":      item,
			"count":     count,
			"merged":    true,
		}})
		return e.EntityID, nil
	}

	id := d.newItemEntityID()
	d.items[id] = &ItemEntity{EntityID: id, Pos: pos, Item: item, Count: count}
	d.itemsAt[cell] = append(d.itemsAt[cell], id)
	d.auditLocked(AuditEntry{Actor: actor, Action: "ITEM_SPAWN", Pos: cell.ToArray(), Reason: reason, Details: map[string]any{
		"entity_id": id,
		"item":      item,
		"count":     count,
		"merged":    false,
	}})
	return id, nil
}

// DespawnItem removes count units from an entity; the entity goes away when empty.
func (d *Dimension) DespawnItem(actor, id string, count int, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.items[id]
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cell := e.Pos.Block()
	if count <= 0 || count > e.Count {
		count = e.Count
	}
	e.Count -= count
	if e.Count == 0 {
		delete(d.items, id)
		ids := removeID(d.itemsAt[cell], id)
		if len(ids) == 0 {
			delete(d.itemsAt, cell)
		} else {
			d.itemsAt[cell] = ids
		}
	}
	d.auditLocked(AuditEntry{Actor: actor, Action: "ITEM_DESPAWN", Pos: cell.ToArray(), Reason: reason, Details: map[string]any{
		"entity_id": id,
		"item":      e.Item,
		"count":     count,
	}})
	return nil
}

func (d *Dimension) Item(id string) (ItemEntity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.items[id]
	if e == nil {
		return ItemEntity{}, false
	}
	return *e, true
}

// ItemsAt returns the entities in the block cell at pos.
func (d *Dimension) ItemsAt(pos geom.Vec3i) []ItemEntity {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ItemEntity, 0, len(d.itemsAt[pos]))
	for _, id := range d.itemsAt[pos] {
		if e := d.items[id]; e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// Items returns every entity sorted by id.
func (d *Dimension) Items() []ItemEntity {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ItemEntity, 0, len(d.items))
	for _, e := range d.items {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
