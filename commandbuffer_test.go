package vkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestBarriers(t *testing.T) {
	compute := vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)

	assert.Equal(t, compute, ComputeToCompute.SrcStage)
	assert.Equal(t, compute, ComputeToCompute.DstStage)
	assert.NotZero(t, ComputeToCompute.DstAccess&vk.AccessFlags(vk.AccessShaderReadBit))

	assert.Equal(t, compute, ComputeToVertexInput.SrcStage)
	assert.NotZero(t, ComputeToVertexInput.DstStage&vk.PipelineStageFlags(vk.PipelineStageVertexInputBit))
	assert.NotZero(t, ComputeToVertexInput.DstAccess&vk.AccessFlags(vk.AccessVertexAttributeReadBit))

	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), TransferToConsumers.SrcStage)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), TransferToConsumers.SrcAccess)
}

func TestBarrierMemoryBarrier(t *testing.T) {
	mb := ComputeToCompute.VKMemoryBarrier()
	assert.Equal(t, vk.StructureTypeMemoryBarrier, mb.SType)
	assert.Equal(t, ComputeToCompute.SrcAccess, mb.SrcAccessMask)
	assert.Equal(t, ComputeToCompute.DstAccess, mb.DstAccessMask)
}
