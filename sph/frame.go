package sph

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/loov/hrtime"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	vkg "github.com/celer/vksph"
)

// Signal is an input event the loop reacts to.
type Signal int

const (
	TogglePause Signal = iota + 1
	RequestClose
)

func (s Signal) String() string {
	switch s {
	case TogglePause:
		return "toggle pause"
	case RequestClose:
		return "request close"
	default:
		return "unknown"
	}
}

// Input delivers the signals raised since the previous poll.
type Input interface {
	Poll() []Signal
}

// Stepper submits simulation steps. *ComputeStages satisfies it.
type Stepper interface {
	SubmitOneStep() (Step, error)
	Generation() uint64
}

// Presenter draws the particles into swapchain images.
type Presenter interface {
	// Acquire returns the next presentable image. Timeouts and out of date
	// swapchains are reported as vkg.ErrTimeout and vkg.ErrSwapchainOutOfDate.
	Acquire(timeout time.Duration) (uint32, error)
	// Render submits the draw of image, ordered after step.
	Render(image uint32, step Step) error
	Present(image uint32) error
	// Drop consumes whatever step signalled when it will not be rendered.
	Drop(step Step) error
	// WaitIdle blocks until every presentation has completed.
	WaitIdle() error
	Recreate() error
}

// Idler is a device. *vkg.Device satisfies it.
type Idler interface {
	WaitIdle() error
}

// FrameState is the loop state carried from one iteration to the next.
type FrameState struct {
	Paused bool
	// Closing is set once close has been requested. The iteration that sees
	// the request still completes.
	Closing bool
	// Frame counts successfully submitted simulation steps.
	Frame uint64
	// Image is the swapchain image of the last successful acquire.
	Image uint32
	// Generation is the step generation shown by the last rendered frame.
	Generation uint64
	// Elapsed is the duration of the last iteration.
	Elapsed time.Duration
	// Skipped counts iterations that did not reach the screen.
	Skipped uint64
}

// FrameReport describes one completed iteration.
type FrameReport struct {
	Frame      uint64
	Generation uint64
	Image      uint32
	Elapsed    time.Duration
	Stepped    bool
	Rendered   bool
}

type FrameObserver interface {
	ObserveFrame(r FrameReport)
}

// FrameObserverFunc adapts a function to FrameObserver.
type FrameObserverFunc func(r FrameReport)

func (f FrameObserverFunc) ObserveFrame(r FrameReport) { f(r) }

// Orchestrator drives the frame loop. One iteration polls input, submits a
// simulation step unless paused, draws and presents, then waits for the
// presentation to finish before the next iteration starts. Frames never
// overlap.
type Orchestrator struct {
	Input     Input
	Stepper   Stepper
	Presenter Presenter
	Device    Idler

	AcquireTimeout    time.Duration
	MaxSubmitFailures int
	Logger            *zap.Logger

	observers []FrameObserver
	failures  int
	frames    atomic.Uint64
}

// Observe registers o to be told about every iteration.
func (o *Orchestrator) Observe(obs FrameObserver) {
	o.observers = append(o.observers, obs)
}

// Frames returns the frame counter. Safe to call from other goroutines.
func (o *Orchestrator) Frames() uint64 {
	return o.frames.Load()
}

func (o *Orchestrator) log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Step runs one iteration of the loop. Skipped frames return nil; a
// non-nil error is fatal.
func (o *Orchestrator) Step(s *FrameState) error {
	start := hrtime.Now()

	for _, sig := range o.Input.Poll() {
		switch sig {
		case TogglePause:
			s.Paused = !s.Paused
			o.log().Info("simulation paused", zap.Bool("paused", s.Paused))
		case RequestClose:
			s.Closing = true
		}
	}

	step := Step{Generation: o.Stepper.Generation()}
	stepped := false
	if !s.Paused {
		st, err := o.Stepper.SubmitOneStep()
		if err != nil {
			if ferr := o.submitFailed("submit simulation step", err); ferr != nil {
				return ferr
			}
		} else {
			step = st
			stepped = true
			s.Frame++
			o.frames.Store(s.Frame)
		}
	}

	rendered, err := o.draw(s, step)
	if !rendered && step.Fresh {
		if derr := o.Presenter.Drop(step); derr != nil {
			o.log().Warn("dropping simulation step", zap.Error(derr))
		}
	}
	if err != nil {
		return err
	}

	if err := o.Presenter.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for presentation")
	}

	if !rendered {
		s.Skipped++
	} else if stepped || s.Paused {
		o.failures = 0
	}

	s.Elapsed = hrtime.Since(start)
	report := FrameReport{
		Frame:      s.Frame,
		Generation: s.Generation,
		Image:      s.Image,
		Elapsed:    s.Elapsed,
		Stepped:    stepped,
		Rendered:   rendered,
	}
	for _, obs := range o.observers {
		obs.ObserveFrame(report)
	}
	o.log().Debug("frame",
		zap.Uint64("frame", s.Frame),
		zap.Uint64("generation", s.Generation),
		zap.Duration("elapsed", s.Elapsed))
	return nil
}

// draw acquires, renders and presents. It reports whether the draw of step
// was submitted.
func (o *Orchestrator) draw(s *FrameState, step Step) (bool, error) {
	image, err := o.Presenter.Acquire(o.AcquireTimeout)
	if err != nil {
		return false, o.presentFailed("acquire image", err)
	}

	s.Image = image

	if err := o.Presenter.Render(image, step); err != nil {
		return false, o.submitFailed("submit draw", err)
	}
	s.Generation = step.Generation

	if err := o.Presenter.Present(image); err != nil {
		return true, o.presentFailed("present image", err)
	}
	return true, nil
}

func isStale(err error) bool {
	return errors.Is(err, vkg.ErrTimeout) || errors.Is(err, vkg.ErrSwapchainOutOfDate)
}

func (o *Orchestrator) presentFailed(op string, err error) error {
	if !isStale(err) {
		return o.submitFailed(op, err)
	}
	o.log().Warn("skipping frame", zap.Error(newError(SwapchainStale, op, err)))
	if rerr := o.Presenter.Recreate(); rerr != nil {
		return setupError("recreate swapchain", rerr)
	}
	return nil
}

// submitFailed skips the frame, or ends the loop once MaxSubmitFailures
// submissions in a row have failed.
func (o *Orchestrator) submitFailed(op string, err error) error {
	o.failures++
	ferr := newError(SubmissionFailure, op, err)
	if o.MaxSubmitFailures <= 0 || o.failures >= o.MaxSubmitFailures {
		return ferr
	}
	o.log().Warn("skipping frame",
		zap.Error(ferr),
		zap.Int("consecutive", o.failures))
	return nil
}

// Run iterates until close is requested, ctx is done or an iteration fails.
// The device is idle when Run returns.
func (o *Orchestrator) Run(ctx context.Context, s *FrameState) (err error) {
	defer func() {
		if werr := o.Device.WaitIdle(); werr != nil && err == nil {
			err = errors.Wrap(werr, "waiting for device")
		}
	}()

	for !s.Closing {
		select {
		case <-ctx.Done():
			s.Closing = true
			return nil
		default:
		}
		if err := o.Step(s); err != nil {
			return err
		}
	}
	return nil
}

// ReportAfter logs the frame count once, d after the call, unless ctx is done
// or stop is called first. Nothing is logged once stop has returned.
func (o *Orchestrator) ReportAfter(ctx context.Context, d time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	stop = func() {
		cancel()
		<-done
	}
	if d <= 0 {
		close(done)
		return stop
	}
	go func() {
		defer close(done)
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			o.log().Info("frame report",
				zap.Duration("after", d),
				zap.Uint64("frames", o.Frames()))
		}
	}()
	return stop
}

// vertexInputWait is the stage the draw waits at for a simulation step.
var vertexInputWait = vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
