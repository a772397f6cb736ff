package sph

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	vkg "github.com/celer/vksph"
)

// Kernel is one compiled simulation stage and the arrays it touches.
type Kernel struct {
	Name     string
	Pipeline *vkg.ComputePipeline
	Reads    []Array
	Writes   []Array
}

// The three simulation stages, in the order they must run. Only the arrays
// each one reads and writes matter here; the maths lives in the shaders.
var (
	DensityPressureIO = Kernel{
		Name:   "density_pressure",
		Reads:  []Array{Position, Density, Pressure},
		Writes: []Array{Density, Pressure},
	}
	ForceIO = Kernel{
		Name:   "force",
		Reads:  []Array{Position, Density, Pressure},
		Writes: []Array{Force},
	}
	IntegrateIO = Kernel{
		Name:   "integrate",
		Reads:  []Array{Force, Velocity, Position},
		Writes: []Array{Velocity, Position},
	}
)

// With returns a copy of k running p.
func (k Kernel) With(p *vkg.ComputePipeline) Kernel {
	k.Pipeline = p
	return k
}

func (k Kernel) touches(set arraySet) bool {
	for _, a := range k.Reads {
		if set.has(a) {
			return true
		}
	}
	return k.writesAny(set)
}

func (k Kernel) writesAny(set arraySet) bool {
	for _, a := range k.Writes {
		if set.has(a) {
			return true
		}
	}
	return false
}

type arraySet uint8

func (s arraySet) has(a Array) bool { return s&(1<<uint(a)) != 0 }

func (s *arraySet) add(as ...Array) {
	for _, a := range as {
		*s |= 1 << uint(a)
	}
}

// StageDescriptor is one dispatch of the recorded step and the barrier
// recorded right after it, if any.
type StageDescriptor struct {
	Kernel Kernel
	Groups int
	After  *vkg.Barrier
}

// planStages pairs every kernel with its dispatch size and the barrier that
// must follow it. A barrier goes between two stages when the later one
// touches an array written since the previous barrier, or writes one read
// since then. The last stage is always followed by a barrier publishing its
// writes to vertex fetch.
func planStages(kernels []Kernel, groups int) []StageDescriptor {
	plan := make([]StageDescriptor, len(kernels))
	var written, read arraySet
	for i, k := range kernels {
		plan[i] = StageDescriptor{Kernel: k, Groups: groups}
		if i > 0 && (k.touches(written) || k.writesAny(read)) {
			b := vkg.ComputeToCompute
			plan[i-1].After = &b
			written, read = 0, 0
		}
		written.add(k.Writes...)
		read.add(k.Reads...)
	}
	if n := len(plan); n > 0 {
		b := vkg.ComputeToVertexInput
		plan[n-1].After = &b
	}
	return plan
}

// Step is the result of one simulation submission, or the lack of one.
type Step struct {
	// Generation increases by one with every submitted step. Rendering a
	// Step draws the buffer state that step produced.
	Generation uint64
	// Fresh is set when the step was submitted this frame.
	Fresh bool
	// Wait and WaitStages are the semaphores a consumer of the step has to
	// wait on, if the step was submitted with one.
	Wait       []vk.Semaphore
	WaitStages []vk.PipelineStageFlags
}

// StagesConfig is everything needed to record the simulation step.
type StagesConfig struct {
	// Kernels in execution order.
	Kernels   []Kernel
	Layout    Layout
	GroupSize int

	PipelineLayout *vkg.PipelineLayout
	DescriptorSet  *vkg.DescriptorSet

	Commands CommandAllocator
	Queue    Submitter

	// SignalCompletion makes every step signal Completion so the draw can
	// wait on it on the GPU instead of relying on submission order.
	SignalCompletion bool
	Completion       vk.Semaphore

	Logger *zap.Logger
}

// ComputeStages owns the command buffer holding one simulation step:
// density and pressure, then force, then integration, each over every
// particle, with the barriers ordering them. It is recorded once and
// resubmitted every frame.
type ComputeStages struct {
	stages     []StageDescriptor
	commands   CommandAllocator
	recorded   Recorder
	queue      Submitter
	signal     bool
	completion vk.Semaphore
	generation uint64
	log        *zap.Logger
}

// NewComputeStages records the simulation step. Any failure is a SetupFailure.
func NewComputeStages(cfg StagesConfig) (*ComputeStages, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := validateStages(cfg); err != nil {
		return nil, setupError("plan compute stages", err)
	}

	c := &ComputeStages{
		stages:     planStages(cfg.Kernels, cfg.Layout.DispatchGroups(cfg.GroupSize)),
		commands:   cfg.Commands,
		queue:      cfg.Queue,
		signal:     cfg.SignalCompletion,
		completion: cfg.Completion,
		log:        log,
	}

	cb, err := cfg.Commands.AllocateRecorder()
	if err != nil {
		return nil, setupError("allocate compute commands", err)
	}
	if err := c.record(cb, cfg.PipelineLayout, cfg.DescriptorSet); err != nil {
		cfg.Commands.FreeRecorder(cb)
		return nil, setupError("record compute stages", err)
	}
	c.recorded = cb

	for _, s := range c.stages {
		log.Debug("compute stage recorded",
			zap.String("kernel", s.Kernel.Name),
			zap.Int("groups", s.Groups),
			zap.Bool("barrier", s.After != nil))
	}
	return c, nil
}

func validateStages(cfg StagesConfig) error {
	if len(cfg.Kernels) == 0 {
		return errors.New("no kernels")
	}
	if cfg.GroupSize <= 0 {
		return errors.Errorf("group size must be positive, got %d", cfg.GroupSize)
	}
	if cfg.Layout.Count <= 0 {
		return errors.Errorf("particle count must be positive, got %d", cfg.Layout.Count)
	}
	for _, k := range cfg.Kernels {
		if k.Pipeline == nil {
			return errors.Errorf("kernel %q has no pipeline", k.Name)
		}
	}
	if cfg.PipelineLayout == nil || cfg.DescriptorSet == nil {
		return errors.New("missing pipeline layout or descriptor set")
	}
	return nil
}

func (c *ComputeStages) record(cb Recorder, layout *vkg.PipelineLayout, set *vkg.DescriptorSet) error {
	if err := cb.BeginReusable(); err != nil {
		return err
	}
	cb.CmdBindDescriptorSets(vk.PipelineBindPointCompute, layout, 0, set)
	for _, s := range c.stages {
		cb.CmdBindComputePipeline(s.Kernel.Pipeline)
		cb.CmdDispatch(s.Groups, 1, 1)
		if s.After != nil {
			cb.CmdPipelineBarrier(*s.After)
		}
	}
	return cb.End()
}

// Steps returns the recorded plan.
func (c *ComputeStages) Steps() []StageDescriptor {
	return append([]StageDescriptor(nil), c.stages...)
}

// Generation is the generation of the last submitted step.
func (c *ComputeStages) Generation() uint64 {
	return c.generation
}

// SubmitOneStep enqueues the recorded step and returns without waiting for
// it. A rejected submission is a SubmissionFailure and does not advance the
// generation.
func (c *ComputeStages) SubmitOneStep() (Step, error) {
	var sync vkg.SubmitSync
	if c.signal {
		sync.Signal = []vk.Semaphore{c.completion}
	}

	if err := c.queue.Submit(sync, c.recorded); err != nil {
		return Step{Generation: c.generation}, newError(SubmissionFailure, "submit simulation step", err)
	}

	c.generation++
	step := Step{Generation: c.generation, Fresh: true}
	if c.signal {
		step.Wait = []vk.Semaphore{c.completion}
		step.WaitStages = []vk.PipelineStageFlags{vertexInputWait}
	}
	return step, nil
}

// Destroy frees the recorded command buffer. The caller must make sure no
// step is still executing.
func (c *ComputeStages) Destroy() {
	if c.recorded != nil {
		c.commands.FreeRecorder(c.recorded)
		c.recorded = nil
	}
}
