package sph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameStatsBeforeFirstWindow(t *testing.T) {
	f := NewFrameStats(time.Second)
	f.ObserveFrame(FrameReport{Frame: 1, Generation: 1, Elapsed: 10 * time.Millisecond})

	s := f.Snapshot()
	assert.Equal(t, uint64(1), s.Frame)
	assert.Equal(t, 10*time.Millisecond, s.Latency)
	assert.InDelta(t, 100, s.FPS, 1e-9)
}

func TestFrameStatsAveragesOverWindow(t *testing.T) {
	f := NewFrameStats(time.Second)
	for i := 1; i <= 100; i++ {
		f.ObserveFrame(FrameReport{Frame: uint64(i), Elapsed: 10 * time.Millisecond})
	}
	// One slow frame does not move the average until the next window ends.
	f.ObserveFrame(FrameReport{Frame: 101, Elapsed: 500 * time.Millisecond})

	s := f.Snapshot()
	assert.Equal(t, uint64(101), s.Frame)
	assert.Equal(t, 500*time.Millisecond, s.Latency)
	assert.InDelta(t, 100, s.FPS, 1e-9)
}

func TestFrameStatsEmpty(t *testing.T) {
	s := NewFrameStats(time.Second).Snapshot()
	assert.Zero(t, s.FPS)
	assert.Zero(t, s.Frame)
}

func TestStatsTitle(t *testing.T) {
	s := StatsSnapshot{Frame: 42, Latency: 2500 * time.Microsecond, FPS: 400}
	assert.Equal(t,
		"SPH (Vulkan) | 20000 particles | frame #42 | render latency: 2.500 ms | FPS: 400.0",
		s.Title("SPH (Vulkan)", 20000))
}
