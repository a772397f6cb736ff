package sph

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	vkg "github.com/celer/vksph"
)

// Grid places particles row by row, Columns per row, two radii apart,
// starting at Origin.
type Grid struct {
	Columns int
	Radius  float32
	Origin  mgl32.Vec2
}

// DefaultGrid is 125 columns of particles with radius 0.005 starting at the
// lower left of clip space.
func DefaultGrid() Grid {
	return Grid{
		Columns: 125,
		Radius:  0.005,
		Origin:  mgl32.Vec2{-0.625, -1},
	}
}

// Position is the initial position of particle i.
func (g Grid) Position(i int) mgl32.Vec2 {
	spacing := g.Radius * 2
	return mgl32.Vec2{
		g.Origin.X() + spacing*float32(i%g.Columns),
		g.Origin.Y() + spacing*float32(i/g.Columns),
	}
}

// Positions returns the initial positions of n particles.
func (g Grid) Positions(n int) []mgl32.Vec2 {
	ret := make([]mgl32.Vec2, n)
	for i := range ret {
		ret[i] = g.Position(i)
	}
	return ret
}

func (g Grid) validate() error {
	if g.Columns <= 0 {
		return errors.Errorf("grid needs at least one column, got %d", g.Columns)
	}
	if g.Radius <= 0 {
		return errors.Errorf("particle radius must be positive, got %v", g.Radius)
	}
	return nil
}

// Fill writes the initial particle state into dst, which must be at least
// l.Size bytes. Everything is zeroed first, then the positions are written,
// so the other arrays start at zero whatever dst held before.
func (l Layout) Fill(dst []byte, g Grid) error {
	if uint64(len(dst)) < l.Size {
		return errors.Errorf("fill needs %d bytes, got %d", l.Size, len(dst))
	}
	if err := g.validate(); err != nil {
		return err
	}

	dst = dst[:l.Size]
	for i := range dst {
		dst[i] = 0
	}
	if l.Count == 0 {
		return nil
	}

	positions := g.Positions(l.Count)
	src := vkg.ToBytes(unsafe.Pointer(&positions[0]), len(positions)*int(Position.ElementSize()))
	copy(l.Slice(dst, Position), src)
	return nil
}
