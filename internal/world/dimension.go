package world

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"voxeledit.ai/internal/catalogs"
	"voxeledit.ai/internal/editor/geom"
)

var (
	ErrOutOfBounds = errors.New("position out of bounds")
	ErrNotFound    = errors.New("entity not found")
	ErrBadStack    = errors.New("invalid item stack")
)

// AuditEntry records one world mutation.
type AuditEntry struct {
	Time    time.Time      `json:"time"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "ITEM_SPAWN"
	Pos     [3]int         `json:"pos"`
	From    uint16         `json:"from,omitempty"`
	To      uint16         `json:"to,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type AuditLogger interface {
	WriteAudit(AuditEntry) error
}

type Block struct {
	ID      string
	Palette uint16
	Solid   bool
}

type Config struct {
	Height      int
	BoundaryR   int
	GroundLevel int
}

// Dimension is the block and item-entity store shared by every editor session.
// All methods are safe for concurrent use.
type Dimension struct {
	mu sync.Mutex

	blocks  catalogs.BlockCatalog
	store   *chunkStore
	items   map[string]*ItemEntity
	itemsAt map[geom.Vec3i][]string
	nextID  int

	audit AuditLogger
	now   func() time.Time
}

func New(cfg Config, blocks catalogs.BlockCatalog, audit AuditLogger) (*Dimension, error) {
	if cfg.Height <= 0 || cfg.GroundLevel < 1 || cfg.GroundLevel >= cfg.Height {
		return nil, fmt.Errorf("world: bad dimension config %+v", cfg)
	}
	pal := func(id string) (uint16, error) {
		v, ok := blocks.Index[id]
		if !ok {
			return 0, fmt.Errorf("world: block catalog missing %s", id)
		}
		return v, nil
	}
	gen := FlatGen{Height: cfg.Height, BoundaryR: cfg.BoundaryR, GroundLevel: cfg.GroundLevel}
	var err error
	for _, f := range []struct {
		dst *uint16
		id  string
	}{
		{&gen.Air, catalogs.AirID},
		{&gen.Bedrock, "minecraft:bedrock"},
		{&gen.Stone, "minecraft:stone"},
		{&gen.Dirt, "minecraft:dirt"},
		{&gen.Grass, "minecraft:grass"},
	} {
		if *f.dst, err = pal(f.id); err != nil {
			return nil, err
		}
	}
	return &Dimension{
		blocks:  blocks,
		store:   newChunkStore(gen),
		items:   map[string]*ItemEntity{},
		itemsAt: map[geom.Vec3i][]string{},
		audit:   audit,
		now:     time.Now,
	}, nil
}

// GetBlock resolves the block at pos. Positions outside the dimension are not found.
func (d *Dimension) GetBlock(pos geom.Vec3i) (Block, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.store.get(pos)
	if !ok {
		return Block{}, false
	}
	return d.block(v), true
}

func (d *Dimension) SetBlock(actor string, pos geom.Vec3i, id string) error {
	v, ok := d.blocks.Index[id]
	if !ok {
		return fmt.Errorf("world: unknown block %s", id)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, ok := d.store.set(pos, v)
	if !ok {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, pos)
	}
	if prev != v {
		d.auditLocked(AuditEntry{Actor: actor, Action: "SET_BLOCK", Pos: pos.ToArray(), From: prev, To: v})
	}
	return nil
}

func (d *Dimension) LoadedChunks() []ChunkKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.loadedKeys()
}

func (d *Dimension) block(v uint16) Block {
	if int(v) >= len(d.blocks.Palette) {
		return Block{Palette: v}
	}
	id := d.blocks.Palette[v]
	return Block{ID: id, Palette: v, Solid: d.blocks.Defs[id].Solid}
}

func (d *Dimension) auditLocked(e AuditEntry) {
	if d.audit == nil {
		return
	}
	e.Time = d.now().UTC()
	_ = d.audit.WriteAudit(e)
}

// View binds an actor to the dimension so callers do not pass it on every call.
type View struct {
	d     *Dimension
	actor string
}

func (d *Dimension) View(actor string) View { return View{d: d, actor: actor} }

func (v View) GetBlock(pos geom.Vec3i) (Block, bool) { return v.d.GetBlock(pos) }

func (v View) SpawnItem(item string, count int, pos geom.Vec3f) (string, error) {
	return v.d.SpawnItem(v.actor, item, count, pos, "EDITOR")
}

func (v View) DespawnItem(id string, count int) error {
	return v.d.DespawnItem(v.actor, id, count, "UNDO")
}
