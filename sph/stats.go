package sph

import (
	"fmt"
	"sync"
	"time"
)

// FrameStats accumulates frame reports into the figures shown in the window
// title. FPS is averaged over Window; until the first window completes it is
// derived from the last frame alone.
type FrameStats struct {
	Window time.Duration

	mu      sync.Mutex
	last    FrameReport
	sum     time.Duration
	count   int
	fps     float64
	haveFPS bool
}

// StatsSnapshot is a consistent copy of the statistics.
type StatsSnapshot struct {
	Frame      uint64
	Generation uint64
	Latency    time.Duration
	FPS        float64
}

func NewFrameStats(window time.Duration) *FrameStats {
	return &FrameStats{Window: window}
}

func (f *FrameStats) ObserveFrame(r FrameReport) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = r
	f.sum += r.Elapsed
	f.count++
	if f.sum > 0 && f.sum >= f.Window {
		f.fps = float64(f.count) / f.sum.Seconds()
		f.haveFPS = true
		f.sum = 0
		f.count = 0
	}
}

func (f *FrameStats) Snapshot() StatsSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := StatsSnapshot{
		Frame:      f.last.Frame,
		Generation: f.last.Generation,
		Latency:    f.last.Elapsed,
		FPS:        f.fps,
	}
	if !f.haveFPS && f.last.Elapsed > 0 {
		s.FPS = 1 / f.last.Elapsed.Seconds()
	}
	return s
}

// Title formats the window title for a run of particles.
func (s StatsSnapshot) Title(name string, particles int) string {
	return fmt.Sprintf("%s | %d particles | frame #%d | render latency: %.3f ms | FPS: %.1f",
		name, particles, s.Frame, float64(s.Latency)/float64(time.Millisecond), s.FPS)
}
