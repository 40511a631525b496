package world

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"voxeledit.ai/internal/editor/geom"
)

const chunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is a 16x16 column of blocks, height cells tall.
type Chunk struct {
	CX, CZ int
	Blocks []uint16 // len = 16*16*height

	dirty bool
	hash  [32]byte
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*chunkSize + y*chunkSize*chunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 { return c.Blocks[c.index(x, y, z)] }

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// FlatGen describes a flat world: bedrock at y=0, stone, three dirt layers and
// one grass layer ending at GroundLevel-1, air above.
type FlatGen struct {
	Height      int
	BoundaryR   int
	GroundLevel int

	Air     uint16
	Bedrock uint16
	Stone   uint16
	Dirt    uint16
	Grass   uint16
}

func (g FlatGen) blockAt(y int) uint16 {
	switch {
	case y == 0:
		return g.Bedrock
	case y >= g.GroundLevel:
		return g.Air
	case y == g.GroundLevel-1:
		return g.Grass
	case y >= g.GroundLevel-4:
		return g.Dirt
	default:
		return g.Stone
	}
}

type chunkStore struct {
	gen    FlatGen
	chunks map[ChunkKey]*Chunk
}

func newChunkStore(gen FlatGen) *chunkStore {
	return &chunkStore{gen: gen, chunks: map[ChunkKey]*Chunk{}}
}

func (s *chunkStore) inBounds(pos geom.Vec3i) bool {
	if pos.Y < 0 || pos.Y >= s.gen.Height {
		return false
	}
	if r := s.gen.BoundaryR; r > 0 {
		if pos.X < -r || pos.X > r || pos.Z < -r || pos.Z > r {
			return false
		}
	}
	return true
}

func (s *chunkStore) get(pos geom.Vec3i) (uint16, bool) {
	if !s.inBounds(pos) {
		return 0, false
	}
	ch := s.getOrGen(floorDiv(pos.X, chunkSize), floorDiv(pos.Z, chunkSize))
	return ch.Get(mod(pos.X, chunkSize), pos.Y, mod(pos.Z, chunkSize)), true
}

func (s *chunkStore) set(pos geom.Vec3i, b uint16) (uint16, bool) {
	if !s.inBounds(pos) {
		return 0, false
	}
	ch := s.getOrGen(floorDiv(pos.X, chunkSize), floorDiv(pos.Z, chunkSize))
	lx, lz := mod(pos.X, chunkSize), mod(pos.Z, chunkSize)
	prev := ch.Get(lx, pos.Y, lz)
	ch.Set(lx, pos.Y, lz, b)
	return prev, true
}

func (s *chunkStore) getOrGen(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.chunks[k]; ok {
		return ch
	}
	ch := &Chunk{CX: cx, CZ: cz, Blocks: make([]uint16, chunkSize*chunkSize*s.gen.Height), dirty: true}
	for y := 0; y < s.gen.Height; y++ {
		b := s.gen.blockAt(y)
		if b == 0 {
			continue
		}
		for z := 0; z < chunkSize; z++ {
			for x := 0; x < chunkSize; x++ {
				ch.Blocks[ch.index(x, y, z)] = b
			}
		}
	}
	s.chunks[k] = ch
	return ch
}

func (s *chunkStore) loadedKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
