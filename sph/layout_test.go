package sph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPacking(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 128, 1000, 20000, 65537} {
		l := NewLayout(n)

		var offset uint64
		for _, a := range Arrays {
			r := l.Range(a)
			assert.Equal(t, offset, r.Offset, "offset of %s for %d particles", a, n)
			assert.Equal(t, a.ElementSize()*uint64(n), r.Size, "size of %s for %d particles", a, n)
			offset = r.End()
		}
		assert.Equal(t, offset, l.Size)
		assert.Equal(t, uint64(32*n), l.Size)
	}
}

func TestElementSizes(t *testing.T) {
	assert.Equal(t, uint64(8), Position.ElementSize())
	assert.Equal(t, uint64(8), Velocity.ElementSize())
	assert.Equal(t, uint64(8), Force.ElementSize())
	assert.Equal(t, uint64(4), Density.ElementSize())
	assert.Equal(t, uint64(4), Pressure.ElementSize())
}

func TestArrayNames(t *testing.T) {
	assert.Equal(t, "position", Position.String())
	assert.Equal(t, "pressure", Pressure.String())
	assert.Equal(t, "Array(9)", Array(9).String())
	for i, a := range Arrays {
		assert.Equal(t, i, a.Binding())
	}
}

func TestLayoutSlice(t *testing.T) {
	l := NewLayout(10)
	buf := make([]byte, l.Size)

	pos := l.Slice(buf, Position)
	assert.Len(t, pos, 80)
	pres := l.Slice(buf, Pressure)
	assert.Len(t, pres, 40)

	pres[0] = 1
	assert.Equal(t, byte(1), buf[l.Range(Pressure).Offset])
	assert.Equal(t, l.Size, uint64(cap(buf)))

	// Sub-slices cannot grow into the next array.
	assert.Equal(t, len(pos), cap(pos))
}

func TestDispatchGroups(t *testing.T) {
	cases := []struct {
		count, group, want int
	}{
		{20000, 128, 157},
		{128, 128, 1},
		{129, 128, 2},
		{1, 128, 1},
		{1000, 1, 1000},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NewLayout(c.count).DispatchGroups(c.group), "%d particles in groups of %d", c.count, c.group)
	}
}

func TestCheckAlignment(t *testing.T) {
	l := NewLayout(20000)
	require.NoError(t, l.CheckAlignment(0))
	require.NoError(t, l.CheckAlignment(64))

	err := l.CheckAlignment(256)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pressure")
	assert.Contains(t, err.Error(), "multiple of 64")

	err = NewLayout(3).CheckAlignment(16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "velocity")
}

func TestCountMultiple(t *testing.T) {
	assert.Equal(t, uint64(1), CountMultiple(0))
	assert.Equal(t, uint64(1), CountMultiple(4))
	assert.Equal(t, uint64(2), CountMultiple(8))
	assert.Equal(t, uint64(16), CountMultiple(64))
	assert.Equal(t, uint64(64), CountMultiple(256))

	for _, align := range []uint64{16, 64, 256} {
		m := CountMultiple(align)
		for _, k := range []uint64{1, 3, 7} {
			assert.NoError(t, NewLayout(int(m*k)).CheckAlignment(align), "align %d count %d", align, m*k)
		}
	}
	assert.Error(t, NewLayout(32).CheckAlignment(256))
}
