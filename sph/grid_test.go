package sph

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridPosition(t *testing.T) {
	g := DefaultGrid()

	p := g.Position(0)
	assert.InDelta(t, -0.625, p.X(), 1e-6)
	assert.InDelta(t, -1.0, p.Y(), 1e-6)

	p = g.Position(1)
	assert.InDelta(t, -0.615, p.X(), 1e-6)
	assert.InDelta(t, -1.0, p.Y(), 1e-6)

	p = g.Position(124)
	assert.InDelta(t, 0.615, p.X(), 1e-5)

	p = g.Position(125)
	assert.InDelta(t, -0.625, p.X(), 1e-6)
	assert.InDelta(t, -0.99, p.Y(), 1e-6)

	// The last of 20000 particles sits on row 159.
	p = g.Position(19999)
	assert.InDelta(t, -1+0.01*159, p.Y(), 1e-5)
}

func TestGridDeterministic(t *testing.T) {
	g := Grid{Columns: 7, Radius: 0.25, Origin: mgl32.Vec2{1, 2}}
	assert.Equal(t, g.Positions(100), g.Positions(100))

	for i, p := range g.Positions(50) {
		assert.Equal(t, g.Position(i), p)
	}
}

func readVec2(b []byte, i int) mgl32.Vec2 {
	return mgl32.Vec2{
		math.Float32frombits(binary.LittleEndian.Uint32(b[i*8:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[i*8+4:])),
	}
}

func TestFillZeroesEverythingButPositions(t *testing.T) {
	const n = 300
	l := NewLayout(n)
	g := DefaultGrid()

	buf := make([]byte, l.Size)
	for i := range buf {
		buf[i] = 0xFF
	}
	require.NoError(t, l.Fill(buf, g))

	for _, a := range []Array{Velocity, Force, Density, Pressure} {
		for _, b := range l.Slice(buf, a) {
			require.Zero(t, b, "%s not zeroed", a)
		}
	}

	pos := l.Slice(buf, Position)
	for i := 0; i < n; i++ {
		assert.Equal(t, g.Position(i), readVec2(pos, i))
	}
}

func TestFillErrors(t *testing.T) {
	l := NewLayout(10)
	assert.Error(t, l.Fill(make([]byte, l.Size-1), DefaultGrid()))
	assert.Error(t, l.Fill(make([]byte, l.Size), Grid{Columns: 0, Radius: 1}))
	assert.Error(t, l.Fill(make([]byte, l.Size), Grid{Columns: 4, Radius: 0}))
}
