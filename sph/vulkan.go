package sph

import (
	"time"

	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	vkg "github.com/celer/vksph"
)

type deviceStaging struct {
	device *vkg.Device
}

func (d deviceStaging) CreateStagingBuffer(size uint64) (HostBuffer, error) {
	b, err := d.device.CreateStagingBuffer(size)
	if err != nil {
		return nil, err
	}
	return boundHostBuffer{b}, nil
}

type boundHostBuffer struct {
	b *vkg.BoundBuffer
}

func (h boundHostBuffer) Map() ([]byte, error) { return h.b.Map() }
func (h boundHostBuffer) Unmap()               { h.b.Unmap() }
func (h boundHostBuffer) Buffer() *vkg.Buffer  { return h.b.Buffer }
func (h boundHostBuffer) Destroy()             { h.b.Destroy() }

type poolCommands struct {
	pool *vkg.CommandPool
}

func (p poolCommands) AllocateRecorder() (Recorder, error) {
	cb, err := p.pool.AllocateBuffer(vk.CommandBufferLevelPrimary)
	if err != nil {
		return nil, err
	}
	return cb, nil
}

func (p poolCommands) FreeRecorder(r Recorder) {
	if cb, ok := r.(*vkg.CommandBuffer); ok {
		p.pool.FreeBuffer(cb)
	}
}

// Simulation owns the GPU side of the particle simulation: the packed
// particle buffer, one descriptor set exposing each array as a storage
// buffer, the three compute pipelines and the recorded step.
type Simulation struct {
	Config Config
	Layout Layout

	Particles      *vkg.BoundBuffer
	SetLayout      *vkg.DescriptorSetLayout
	DescriptorPool *vkg.DescriptorPool
	DescriptorSet  *vkg.DescriptorSet
	PipelineLayout *vkg.PipelineLayout
	Pipelines      []*vkg.ComputePipeline
	Commands       *vkg.CommandPool
	Stages         *ComputeStages

	// Completion is signalled by every step when the config asks for an
	// explicit dependency between the step and the draw.
	Completion vk.Semaphore

	device        *vkg.Device
	hasCompletion bool
	log           *zap.Logger
}

// NewSimulation builds every simulation resource on app's device and uploads
// the initial particle state. app must be initialised. Everything created so
// far is released if a step fails.
func NewSimulation(app *vkg.GraphicsApp, cfg Config, log *zap.Logger) (_ *Simulation, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Simulation{
		Config: cfg,
		Layout: cfg.Layout(),
		device: app.Device,
		log:    log,
	}
	defer func() {
		if err != nil {
			s.Destroy()
		}
	}()

	if err := s.Layout.CheckAlignment(app.PhysicalDevice.MinStorageBufferOffsetAlignment()); err != nil {
		return nil, setupError("check buffer layout", err)
	}

	s.Particles, err = app.Device.CreateDeviceLocalBuffer(s.Layout.Size,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, setupError("create particle buffer", err)
	}
	log.Info("particle buffer created", zap.Stringer("layout", s.Layout))

	if err := s.createDescriptors(); err != nil {
		return nil, err
	}

	kernels, err := s.createKernels(app.PipelineCache)
	if err != nil {
		return nil, err
	}

	s.Commands, err = app.Device.CreateCommandPool(app.QueueFamily)
	if err != nil {
		return nil, setupError("create compute command pool", err)
	}
	commands := poolCommands{s.Commands}

	up := Uploader{
		Staging:  deviceStaging{app.Device},
		Commands: commands,
		Queue:    app.ComputeQueue,
		Logger:   log,
	}
	if err := up.UploadInitial(s.Particles.Buffer, s.Layout, cfg.Grid()); err != nil {
		return nil, err
	}

	queue, signal := stepSubmission(cfg.ExplicitComputeDependency, app.ComputeQueue, app.GraphicsQueue)
	if signal {
		s.Completion, err = app.Device.VKCreateSemaphore()
		if err != nil {
			return nil, setupError("create step semaphore", err)
		}
		s.hasCompletion = true
	}

	s.Stages, err = NewComputeStages(StagesConfig{
		Kernels:          kernels,
		Layout:           s.Layout,
		GroupSize:        cfg.GroupSize,
		PipelineLayout:   s.PipelineLayout,
		DescriptorSet:    s.DescriptorSet,
		Commands:         commands,
		Queue:            queue,
		SignalCompletion: s.hasCompletion,
		Completion:       s.Completion,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}
	log.Info("compute stages recorded",
		zap.Int("groups", s.Layout.DispatchGroups(cfg.GroupSize)),
		zap.Bool("explicit_dependency", s.hasCompletion))
	return s, nil
}

// stepSubmission picks the queue simulation steps go to and whether they
// signal a semaphore for the draw. Without the semaphore the steps share the
// graphics queue, so submission order and the trailing barrier put each step
// before the draw that follows it.
func stepSubmission(explicit bool, compute, graphics *vkg.Queue) (*vkg.Queue, bool) {
	if explicit {
		return compute, true
	}
	return graphics, false
}

func (s *Simulation) createDescriptors() error {
	d := s.device

	layout := d.NewDescriptorSetLayout()
	for _, a := range Arrays {
		layout.AddStorageBuffer(a.Binding(), vk.ShaderStageFlags(vk.ShaderStageComputeBit))
	}
	var err error
	if s.SetLayout, err = d.CreateDescriptorSetLayout(layout); err != nil {
		return setupError("create descriptor set layout", err)
	}

	pool := d.NewDescriptorPool()
	pool.AddPoolSize(vk.DescriptorTypeStorageBuffer, NumArrays)
	if s.DescriptorPool, err = d.CreateDescriptorPool(pool, 1); err != nil {
		return setupError("create descriptor pool", err)
	}
	if s.DescriptorSet, err = s.DescriptorPool.Allocate(s.SetLayout); err != nil {
		return setupError("allocate descriptor set", err)
	}
	for _, a := range Arrays {
		r := s.Layout.Range(a)
		s.DescriptorSet.AddBufferRange(a.Binding(), vk.DescriptorTypeStorageBuffer, s.Particles.Buffer, r.Offset, r.Size)
	}
	s.DescriptorSet.Write()

	if s.PipelineLayout, err = d.CreatePipelineLayout(s.SetLayout); err != nil {
		return setupError("create pipeline layout", err)
	}
	return nil
}

func (s *Simulation) createKernels(cache *vkg.PipelineCache) ([]Kernel, error) {
	sc := s.Config.Shader
	sources := []struct {
		io   Kernel
		file string
	}{
		{DensityPressureIO, sc.DensityPressure},
		{ForceIO, sc.Force},
		{IntegrateIO, sc.Integrate},
	}

	kernels := make([]Kernel, 0, len(sources))
	pipelines := make([]*vkg.ComputePipeline, 0, len(sources))
	for _, src := range sources {
		shader, err := s.device.LoadShaderModuleFromFile(sc.Path(src.file))
		if err != nil {
			return nil, setupError("load "+src.io.Name+" shader", err)
		}
		// Modules are only needed until the pipelines exist.
		defer shader.Destroy()

		p := &vkg.ComputePipeline{Name: src.io.Name}
		p.SetShaderStage("main", shader)
		p.SetPipelineLayout(s.PipelineLayout)
		pipelines = append(pipelines, p)
		kernels = append(kernels, src.io.With(p))
	}

	if err := s.device.CreateComputePipelines(cache, pipelines...); err != nil {
		return nil, setupError("create compute pipelines", err)
	}
	s.Pipelines = pipelines
	s.log.Info("compute pipelines created", zap.Int("count", len(pipelines)))
	return kernels, nil
}

// Destroy releases everything the simulation created. The device must be
// idle.
func (s *Simulation) Destroy() {
	if s.Stages != nil {
		s.Stages.Destroy()
		s.Stages = nil
	}
	if s.hasCompletion {
		s.device.VKDestroySemaphore(s.Completion)
		s.hasCompletion = false
	}
	if s.Commands != nil {
		s.Commands.Destroy()
		s.Commands = nil
	}
	for _, p := range s.Pipelines {
		p.Destroy()
	}
	s.Pipelines = nil
	if s.PipelineLayout != nil {
		s.PipelineLayout.Destroy()
		s.PipelineLayout = nil
	}
	if s.DescriptorPool != nil {
		s.DescriptorPool.Destroy()
		s.DescriptorPool = nil
	}
	if s.SetLayout != nil {
		s.SetLayout.Destroy()
		s.SetLayout = nil
	}
	if s.Particles != nil {
		s.Particles.Destroy()
		s.Particles = nil
	}
}

// AppPresenter draws through a *vkg.GraphicsApp whose command buffers draw
// the particle buffer.
type AppPresenter struct {
	App    *vkg.GraphicsApp
	Logger *zap.Logger
}

func (p AppPresenter) Acquire(timeout time.Duration) (uint32, error) {
	return p.App.AcquireNextImage(timeout)
}

// Render submits the draw of image. If the submission is rejected the
// acquired image can no longer be used, so the swapchain is rebuilt before
// returning the error.
func (p AppPresenter) Render(image uint32, step Step) error {
	err := p.App.SubmitFrame(image, step.Wait, step.WaitStages)
	if err == nil {
		return nil
	}
	if rerr := p.App.RecreateSwapchain(); rerr != nil && p.Logger != nil {
		p.Logger.Error("recreate swapchain after failed draw", zap.Error(rerr))
	}
	return err
}

func (p AppPresenter) Present(image uint32) error {
	return p.App.Present(image)
}

// Drop submits an empty batch waiting on the step's semaphores so they are
// unsignalled before the next step signals them again.
func (p AppPresenter) Drop(step Step) error {
	if len(step.Wait) == 0 {
		return nil
	}
	return p.App.GraphicsQueue.Submit(vkg.SubmitSync{
		Wait:       step.Wait,
		WaitStages: step.WaitStages,
	})
}

func (p AppPresenter) WaitIdle() error {
	return p.App.PresentQueue.WaitIdle()
}

func (p AppPresenter) Recreate() error {
	return p.App.RecreateSwapchain()
}
