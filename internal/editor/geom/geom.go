package geom

import "math"

type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) Float() Vec3f { return Vec3f{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)} }

type Vec3f struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3f) ToArray() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// Block returns the block cell containing v.
func (v Vec3f) Block() Vec3i {
	return Vec3i{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

// BoundingBox is an inclusive, normalized block-space box (Min <= Max on every axis).
type BoundingBox struct {
	Min Vec3i `json:"min"`
	Max Vec3i `json:"max"`
}

func (b BoundingBox) Equals(o BoundingBox) bool { return b.Min == o.Min && b.Max == o.Max }

func (b BoundingBox) Contains(p Vec3i) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b BoundingBox) Span() Vec3i {
	return Vec3i{X: b.Max.X - b.Min.X + 1, Y: b.Max.Y - b.Min.Y + 1, Z: b.Max.Z - b.Min.Z + 1}
}

// Union returns the smallest box containing both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		Min: Vec3i{X: min(b.Min.X, o.Min.X), Y: min(b.Min.Y, o.Min.Y), Z: min(b.Min.Z, o.Min.Z)},
		Max: Vec3i{X: max(b.Max.X, o.Max.X), Y: max(b.Max.Y, o.Max.Y), Z: max(b.Max.Z, o.Max.Z)},
	}
}

// BlockVolume is an axis-aligned block region given by two corners in any order.
type BlockVolume struct {
	From Vec3i `json:"from"`
	To   Vec3i `json:"to"`
}

func NewBlockVolume(from, to Vec3i) BlockVolume { return BlockVolume{From: from, To: to} }

// SingleBlock is the degenerate volume covering exactly p.
func SingleBlock(p Vec3i) BlockVolume { return BlockVolume{From: p, To: p} }

func (v BlockVolume) BoundingBox() BoundingBox {
	return BoundingBox{
		Min: Vec3i{X: min(v.From.X, v.To.X), Y: min(v.From.Y, v.To.Y), Z: min(v.From.Z, v.To.Z)},
		Max: Vec3i{X: max(v.From.X, v.To.X), Y: max(v.From.Y, v.To.Y), Z: max(v.From.Z, v.To.Z)},
	}
}

func (v BlockVolume) Capacity() int {
	s := v.BoundingBox().Span()
	return s.X * s.Y * s.Z
}

// Locations calls fn for every block in the volume, x fastest then z then y.
// Iteration stops when fn returns false.
func (v BlockVolume) Locations(fn func(Vec3i) bool) {
	bb := v.BoundingBox()
	for y := bb.Min.Y; y <= bb.Max.Y; y++ {
		for z := bb.Min.Z; z <= bb.Max.Z; z++ {
			for x := bb.Min.X; x <= bb.Max.X; x++ {
				if !fn(Vec3i{X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}
