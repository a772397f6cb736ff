package sph

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Array names one of the per-particle arrays. The order of the constants is
// the order of the arrays in the packed buffer and the descriptor binding of
// each array.
type Array int

const (
	Position Array = iota
	Velocity
	Force
	Density
	Pressure

	NumArrays = int(Pressure) + 1
)

var arrayNames = [NumArrays]string{"position", "velocity", "force", "density", "pressure"}

// Arrays lists every array in buffer order.
var Arrays = [NumArrays]Array{Position, Velocity, Force, Density, Pressure}

func (a Array) String() string {
	if a < 0 || int(a) >= NumArrays {
		return fmt.Sprintf("Array(%d)", int(a))
	}
	return arrayNames[a]
}

// ElementSize is the size in bytes of one entry of the array.
func (a Array) ElementSize() uint64 {
	switch a {
	case Position, Velocity, Force:
		return uint64(unsafe.Sizeof(mgl32.Vec2{}))
	default:
		return uint64(unsafe.Sizeof(float32(0)))
	}
}

// Binding is the descriptor binding the kernels see the array at.
func (a Array) Binding() int {
	return int(a)
}

// Range is a byte range inside the packed buffer.
type Range struct {
	Offset uint64
	Size   uint64
}

// End is the first byte past the range.
func (r Range) End() uint64 {
	return r.Offset + r.Size
}

// Layout places the five arrays of Count particles back to back in one buffer.
type Layout struct {
	Count  int
	Ranges [NumArrays]Range
	Size   uint64
}

// NewLayout computes the packing for count particles. Each array starts where
// the previous one ends.
func NewLayout(count int) Layout {
	l := Layout{Count: count}
	var offset uint64
	for _, a := range Arrays {
		size := a.ElementSize() * uint64(count)
		l.Ranges[a] = Range{Offset: offset, Size: size}
		offset += size
	}
	l.Size = offset
	return l
}

// Range returns the byte range of a.
func (l Layout) Range(a Array) Range {
	return l.Ranges[a]
}

// Slice returns the part of buf holding a. buf must be at least l.Size long.
func (l Layout) Slice(buf []byte, a Array) []byte {
	r := l.Ranges[a]
	return buf[r.Offset:r.End():r.End()]
}

// DispatchGroups is the number of work groups of groupSize invocations
// needed to cover every particle.
func (l Layout) DispatchGroups(groupSize int) int {
	return (l.Count + groupSize - 1) / groupSize
}

func (l Layout) String() string {
	return fmt.Sprintf("{Count: %d Size: %d}", l.Count, l.Size)
}

// CheckAlignment reports the first array whose offset is not a multiple of
// align. An align of zero or one accepts every layout.
func (l Layout) CheckAlignment(align uint64) error {
	if align <= 1 {
		return nil
	}
	for _, a := range Arrays {
		if off := l.Ranges[a].Offset; off%align != 0 {
			return errors.Errorf("%s starts at offset %d, device needs a multiple of %d: use a particle count that is a multiple of %d",
				a, off, align, CountMultiple(align))
		}
	}
	return nil
}

// CountMultiple is the smallest m such that every layout of a multiple of m
// particles starts each array on an align boundary.
func CountMultiple(align uint64) uint64 {
	if align <= 1 {
		return 1
	}
	m := uint64(1)
	var stride uint64
	for _, a := range Arrays {
		if stride > 0 {
			m = lcm(m, align/gcd(align, stride))
		}
		stride += a.ElementSize()
	}
	return m
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b uint64) uint64 {
	return a / gcd(a, b) * b
}
