package sph

import (
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	vkg "github.com/celer/vksph"
)

var errInjected = errors.New("injected failure")

type opKind int

const (
	opBindSet opKind = iota
	opBindPipeline
	opDispatch
	opBarrier
	opCopy
)

type op struct {
	kind     opKind
	pipeline *vkg.ComputePipeline
	groups   int
	barrier  vkg.Barrier
	copySize uint64
	src, dst *vkg.Buffer
}

type fakeRecorder struct {
	usage    vk.CommandBufferUsageFlags
	begun    bool
	ended    bool
	ops      []op
	beginErr error
	endErr   error
}

func (r *fakeRecorder) VK() vk.CommandBuffer {
	var cb vk.CommandBuffer
	return cb
}

func (r *fakeRecorder) begin(usage vk.CommandBufferUsageFlagBits) error {
	if r.beginErr != nil {
		return r.beginErr
	}
	r.usage = vk.CommandBufferUsageFlags(usage)
	r.begun = true
	return nil
}

func (r *fakeRecorder) BeginOneTime() error {
	return r.begin(vk.CommandBufferUsageOneTimeSubmitBit)
}

func (r *fakeRecorder) BeginReusable() error {
	return r.begin(vk.CommandBufferUsageSimultaneousUseBit)
}

func (r *fakeRecorder) CmdBindDescriptorSets(bindPoint vk.PipelineBindPoint, layout *vkg.PipelineLayout, firstSet int, descriptorSets ...*vkg.DescriptorSet) {
	r.ops = append(r.ops, op{kind: opBindSet})
}

func (r *fakeRecorder) CmdBindComputePipeline(p *vkg.ComputePipeline) {
	r.ops = append(r.ops, op{kind: opBindPipeline, pipeline: p})
}

func (r *fakeRecorder) CmdDispatch(x, y, z int) {
	r.ops = append(r.ops, op{kind: opDispatch, groups: x * y * z})
}

func (r *fakeRecorder) CmdPipelineBarrier(b vkg.Barrier) {
	r.ops = append(r.ops, op{kind: opBarrier, barrier: b})
}

func (r *fakeRecorder) CmdCopyBuffer(src, dst *vkg.Buffer, regions ...vk.BufferCopy) {
	var size uint64
	for _, region := range regions {
		size += uint64(region.Size)
	}
	r.ops = append(r.ops, op{kind: opCopy, src: src, dst: dst, copySize: size})
}

func (r *fakeRecorder) End() error {
	if r.endErr != nil {
		return r.endErr
	}
	r.ended = true
	return nil
}

type fakeCommands struct {
	allocated []*fakeRecorder
	freed     int
	allocErr  error
	beginErr  error
}

func (c *fakeCommands) AllocateRecorder() (Recorder, error) {
	if c.allocErr != nil {
		return nil, c.allocErr
	}
	r := &fakeRecorder{beginErr: c.beginErr}
	c.allocated = append(c.allocated, r)
	return r, nil
}

func (c *fakeCommands) FreeRecorder(r Recorder) {
	c.freed++
}

type fakeQueue struct {
	submits   []vkg.SubmitSync
	buffers   [][]vkg.CommandBufferer
	waits     int
	submitErr error
	// failures lists, by submission index, which submissions fail.
	failures map[int]bool
	calls    int
}

func (q *fakeQueue) Submit(sync vkg.SubmitSync, buffers ...vkg.CommandBufferer) error {
	i := q.calls
	q.calls++
	if q.submitErr != nil || q.failures[i] {
		return errInjected
	}
	q.submits = append(q.submits, sync)
	q.buffers = append(q.buffers, buffers)
	return nil
}

func (q *fakeQueue) WaitIdle() error {
	q.waits++
	return nil
}

type fakeHostBuffer struct {
	data      []byte
	buffer    *vkg.Buffer
	mapped    bool
	destroyed bool
	mapErr    error
}

func (h *fakeHostBuffer) Map() ([]byte, error) {
	if h.mapErr != nil {
		return nil, h.mapErr
	}
	h.mapped = true
	return h.data, nil
}

func (h *fakeHostBuffer) Unmap()              { h.mapped = false }
func (h *fakeHostBuffer) Buffer() *vkg.Buffer { return h.buffer }
func (h *fakeHostBuffer) Destroy()            { h.destroyed = true }

// fakeStaging hands out buffers full of garbage so zero-filling can be
// checked.
type fakeStaging struct {
	created   []*fakeHostBuffer
	createErr error
	mapErr    error
}

func (s *fakeStaging) CreateStagingBuffer(size uint64) (HostBuffer, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xAB
	}
	h := &fakeHostBuffer{
		data:   data,
		buffer: &vkg.Buffer{Size: size},
		mapErr: s.mapErr,
	}
	s.created = append(s.created, h)
	return h, nil
}

type fakeInput struct {
	polls [][]Signal
}

func (in *fakeInput) Poll() []Signal {
	if len(in.polls) == 0 {
		return nil
	}
	p := in.polls[0]
	in.polls = in.polls[1:]
	return p
}

// at queues sig to be returned by the given poll.
func (in *fakeInput) at(iteration int, sig ...Signal) {
	for len(in.polls) <= iteration {
		in.polls = append(in.polls, nil)
	}
	in.polls[iteration] = append(in.polls[iteration], sig...)
}

type fakeStepper struct {
	generation uint64
	calls      int
	failures   map[int]bool
}

func (s *fakeStepper) SubmitOneStep() (Step, error) {
	i := s.calls
	s.calls++
	if s.failures[i] {
		return Step{Generation: s.generation}, newError(SubmissionFailure, "submit simulation step", errInjected)
	}
	s.generation++
	return Step{Generation: s.generation, Fresh: true}, nil
}

func (s *fakeStepper) Generation() uint64 {
	return s.generation
}

type fakePresenter struct {
	images     uint32
	next       uint32
	events     []string
	rendered   []Step
	presented  []uint32
	dropped    []Step
	recreated  int
	waits      int
	acquireErr map[int]error
	renderErr  map[int]error
	presentErr map[int]error
	acquires   int
	renders    int
	presents   int

	// outstanding is set between a render and the following wait.
	outstanding bool
	overlapped  bool
}

func (p *fakePresenter) Acquire(timeout time.Duration) (uint32, error) {
	i := p.acquires
	p.acquires++
	p.events = append(p.events, "acquire")
	if p.outstanding {
		p.overlapped = true
	}
	if err := p.acquireErr[i]; err != nil {
		return 0, err
	}
	img := p.next
	if p.images > 0 {
		p.next = (p.next + 1) % p.images
	}
	return img, nil
}

func (p *fakePresenter) Render(image uint32, step Step) error {
	i := p.renders
	p.renders++
	p.events = append(p.events, "render")
	if err := p.renderErr[i]; err != nil {
		return err
	}
	p.rendered = append(p.rendered, step)
	p.outstanding = true
	return nil
}

func (p *fakePresenter) Present(image uint32) error {
	i := p.presents
	p.presents++
	p.events = append(p.events, "present")
	if err := p.presentErr[i]; err != nil {
		return err
	}
	p.presented = append(p.presented, image)
	return nil
}

func (p *fakePresenter) Drop(step Step) error {
	p.events = append(p.events, "drop")
	p.dropped = append(p.dropped, step)
	return nil
}

func (p *fakePresenter) WaitIdle() error {
	p.events = append(p.events, "wait")
	p.waits++
	p.outstanding = false
	return nil
}

func (p *fakePresenter) Recreate() error {
	p.events = append(p.events, "recreate")
	p.recreated++
	return nil
}

type fakeDevice struct {
	waits int
}

func (d *fakeDevice) WaitIdle() error {
	d.waits++
	return nil
}
