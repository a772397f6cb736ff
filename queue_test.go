package vkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestSubmitInfoRequiresStagePerWait(t *testing.T) {
	sync := SubmitSync{Wait: make([]vk.Semaphore, 2), WaitStages: make([]vk.PipelineStageFlags, 1)}
	_, err := sync.SubmitInfo()
	assert.Error(t, err)
}

func TestSubmitInfo(t *testing.T) {
	stage := vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
	sync := SubmitSync{
		Wait:       make([]vk.Semaphore, 1),
		WaitStages: []vk.PipelineStageFlags{stage},
		Signal:     make([]vk.Semaphore, 1),
	}
	info, err := sync.SubmitInfo(&CommandBuffer{}, &CommandBuffer{})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), info.CommandBufferCount)
	assert.Equal(t, uint32(1), info.WaitSemaphoreCount)
	assert.Equal(t, []vk.PipelineStageFlags{stage}, info.PWaitDstStageMask)
	assert.Equal(t, uint32(1), info.SignalSemaphoreCount)

	empty, err := SubmitSync{}.SubmitInfo()
	require.NoError(t, err)
	assert.Zero(t, empty.CommandBufferCount)
	assert.Zero(t, empty.WaitSemaphoreCount)
}
