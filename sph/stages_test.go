package sph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	vkg "github.com/celer/vksph"
)

func referenceKernels() []Kernel {
	return []Kernel{
		DensityPressureIO.With(&vkg.ComputePipeline{Name: DensityPressureIO.Name}),
		ForceIO.With(&vkg.ComputePipeline{Name: ForceIO.Name}),
		IntegrateIO.With(&vkg.ComputePipeline{Name: IntegrateIO.Name}),
	}
}

func stagesConfig(commands *fakeCommands, queue *fakeQueue) StagesConfig {
	return StagesConfig{
		Kernels:        referenceKernels(),
		Layout:         NewLayout(20000),
		GroupSize:      128,
		PipelineLayout: &vkg.PipelineLayout{},
		DescriptorSet:  &vkg.DescriptorSet{},
		Commands:       commands,
		Queue:          queue,
		Logger:         zap.NewNop(),
	}
}

func TestComputeStagesRecording(t *testing.T) {
	commands := &fakeCommands{}
	cfg := stagesConfig(commands, &fakeQueue{})
	c, err := NewComputeStages(cfg)
	require.NoError(t, err)

	require.Len(t, commands.allocated, 1)
	rec := commands.allocated[0]
	assert.Equal(t, vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit), rec.usage)
	assert.True(t, rec.ended)

	k := cfg.Kernels
	want := []op{
		{kind: opBindSet},
		{kind: opBindPipeline, pipeline: k[0].Pipeline},
		{kind: opDispatch, groups: 157},
		{kind: opBarrier, barrier: vkg.ComputeToCompute},
		{kind: opBindPipeline, pipeline: k[1].Pipeline},
		{kind: opDispatch, groups: 157},
		{kind: opBarrier, barrier: vkg.ComputeToCompute},
		{kind: opBindPipeline, pipeline: k[2].Pipeline},
		{kind: opDispatch, groups: 157},
		{kind: opBarrier, barrier: vkg.ComputeToVertexInput},
	}
	assert.Equal(t, want, rec.ops)

	steps := c.Steps()
	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, k[i].Name, s.Kernel.Name)
		assert.Equal(t, 157, s.Groups)
		assert.NotNil(t, s.After)
	}
}

// Replays the recorded commands and checks that no dispatch touches an
// array written by an earlier dispatch without a barrier in between.
func TestComputeStagesNoUnorderedAccess(t *testing.T) {
	commands := &fakeCommands{}
	cfg := stagesConfig(commands, &fakeQueue{})
	_, err := NewComputeStages(cfg)
	require.NoError(t, err)

	byPipeline := map[*vkg.ComputePipeline]Kernel{}
	for _, k := range cfg.Kernels {
		byPipeline[k.Pipeline] = k
	}

	var (
		bound    Kernel
		dirty    arraySet
		barriers int
		dispatch int
	)
	ops := commands.allocated[0].ops
	for _, o := range ops {
		switch o.kind {
		case opBindPipeline:
			bound = byPipeline[o.pipeline]
		case opDispatch:
			assert.False(t, bound.touches(dirty), "%s runs before writes it depends on are visible", bound.Name)
			dirty.add(bound.Writes...)
			dispatch++
		case opBarrier:
			if dispatch < len(cfg.Kernels) {
				barriers++
			}
			dirty = 0
		}
	}
	assert.Equal(t, 3, dispatch)
	assert.Equal(t, 2, barriers, "barriers between dispatches")
	assert.Equal(t, opBarrier, ops[len(ops)-1].kind)
	assert.Zero(t, dirty)
}

func TestPlanStagesIndependentKernels(t *testing.T) {
	a := Kernel{Name: "a", Reads: []Array{Position}, Writes: []Array{Density}}
	b := Kernel{Name: "b", Reads: []Array{Velocity}, Writes: []Array{Force}}
	c := Kernel{Name: "c", Reads: []Array{Force}, Writes: []Array{Position}}

	plan := planStages([]Kernel{a, b, c}, 4)
	require.Len(t, plan, 3)
	assert.Nil(t, plan[0].After)
	require.NotNil(t, plan[1].After)
	assert.Equal(t, vkg.ComputeToCompute, *plan[1].After)
	require.NotNil(t, plan[2].After)
	assert.Equal(t, vkg.ComputeToVertexInput, *plan[2].After)
}

func TestPlanStagesWriteAfterWrite(t *testing.T) {
	a := Kernel{Name: "a", Writes: []Array{Pressure}}
	b := Kernel{Name: "b", Writes: []Array{Pressure}}

	plan := planStages([]Kernel{a, b}, 1)
	assert.NotNil(t, plan[0].After)
}

func TestPlanStagesWriteAfterRead(t *testing.T) {
	a := Kernel{Name: "a", Reads: []Array{Velocity}, Writes: []Array{Density}}
	b := Kernel{Name: "b", Writes: []Array{Velocity}}

	plan := planStages([]Kernel{a, b}, 1)
	assert.NotNil(t, plan[0].After)
}

func TestSubmitOneStep(t *testing.T) {
	commands := &fakeCommands{}
	queue := &fakeQueue{}
	c, err := NewComputeStages(stagesConfig(commands, queue))
	require.NoError(t, err)
	assert.Zero(t, c.Generation())

	for i := uint64(1); i <= 3; i++ {
		step, err := c.SubmitOneStep()
		require.NoError(t, err)
		assert.Equal(t, i, step.Generation)
		assert.True(t, step.Fresh)
		assert.Empty(t, step.Wait)
	}
	assert.Equal(t, uint64(3), c.Generation())

	require.Len(t, queue.submits, 3)
	for i := range queue.submits {
		assert.Empty(t, queue.submits[i].Signal)
		assert.Same(t, commands.allocated[0], queue.buffers[i][0])
	}
	assert.Zero(t, queue.waits, "steps are not waited for")
}

func TestSubmitOneStepSignalsCompletion(t *testing.T) {
	queue := &fakeQueue{}
	cfg := stagesConfig(&fakeCommands{}, queue)
	cfg.SignalCompletion = true
	c, err := NewComputeStages(cfg)
	require.NoError(t, err)

	step, err := c.SubmitOneStep()
	require.NoError(t, err)
	require.Len(t, queue.submits[0].Signal, 1)
	require.Len(t, step.Wait, 1)
	assert.Equal(t, []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)}, step.WaitStages)
}

func TestSubmitOneStepFailure(t *testing.T) {
	queue := &fakeQueue{failures: map[int]bool{1: true}}
	c, err := NewComputeStages(stagesConfig(&fakeCommands{}, queue))
	require.NoError(t, err)

	step, err := c.SubmitOneStep()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), step.Generation)

	step, err = c.SubmitOneStep()
	require.Error(t, err)
	assert.True(t, IsKind(err, SubmissionFailure))
	assert.False(t, step.Fresh)
	assert.Equal(t, uint64(1), c.Generation())

	step, err = c.SubmitOneStep()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), step.Generation)
}

func TestNewComputeStagesErrors(t *testing.T) {
	t.Run("missing pipeline", func(t *testing.T) {
		commands := &fakeCommands{}
		cfg := stagesConfig(commands, &fakeQueue{})
		cfg.Kernels[1].Pipeline = nil
		_, err := NewComputeStages(cfg)
		assert.True(t, IsKind(err, SetupFailure))
		assert.Empty(t, commands.allocated)
	})
	t.Run("bad group size", func(t *testing.T) {
		cfg := stagesConfig(&fakeCommands{}, &fakeQueue{})
		cfg.GroupSize = 0
		_, err := NewComputeStages(cfg)
		assert.True(t, IsKind(err, SetupFailure))
	})
	t.Run("recording", func(t *testing.T) {
		commands := &fakeCommands{beginErr: errInjected}
		_, err := NewComputeStages(stagesConfig(commands, &fakeQueue{}))
		assert.True(t, IsKind(err, SetupFailure))
		assert.Equal(t, 1, commands.freed)
	})
}

func TestComputeStagesDestroy(t *testing.T) {
	commands := &fakeCommands{}
	c, err := NewComputeStages(stagesConfig(commands, &fakeQueue{}))
	require.NoError(t, err)

	c.Destroy()
	c.Destroy()
	assert.Equal(t, 1, commands.freed)
}
