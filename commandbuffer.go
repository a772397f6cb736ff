package vkg

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffers describe a sequence of commands that will be executed
// upon being sent to a device queue. Not all available vulkan commands
// are wrapped by this package. It is expected that the calling application
// must call the native vulkan command APIs.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

// Barrier is a global memory dependency: every write done by SrcStage with
// SrcAccess is made visible to DstStage for DstAccess.
type Barrier struct {
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
}

// ComputeToCompute orders a compute dispatch after the previous one, making
// its writes visible.
var ComputeToCompute = Barrier{
	SrcStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	DstStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	SrcAccess: vk.AccessFlags(vk.AccessShaderWriteBit),
	DstAccess: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
}

// ComputeToVertexInput makes compute writes visible to vertex fetch, and to
// the compute dispatches of a later submission.
var ComputeToVertexInput = Barrier{
	SrcStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	DstStage:  vk.PipelineStageFlags(vk.PipelineStageVertexInputBit | vk.PipelineStageComputeShaderBit),
	SrcAccess: vk.AccessFlags(vk.AccessShaderWriteBit),
	DstAccess: vk.AccessFlags(vk.AccessVertexAttributeReadBit | vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
}

// TransferToConsumers makes a buffer copy visible to compute shaders and to
// vertex fetch.
var TransferToConsumers = Barrier{
	SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	DstStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit | vk.PipelineStageVertexInputBit),
	SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
	DstAccess: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit | vk.AccessVertexAttributeReadBit),
}

func (b Barrier) VKMemoryBarrier() vk.MemoryBarrier {
	return vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: b.SrcAccess,
		DstAccessMask: b.DstAccess,
	}
}

// VK is a utility function for accessing the native vulkan command buffer
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// BeginWithUsage starts recording with the given usage flags.
func (c *CommandBuffer) BeginWithUsage(usage vk.CommandBufferUsageFlags) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: usage,
	}
	return errors.Wrap(vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo)), "begin command buffer")
}

// BeginOneTime begins capturing work for this command buffer, with the stipulation that it will only be used once (instead of put back in the pool of command buffers)
func (c *CommandBuffer) BeginOneTime() error {
	return c.BeginWithUsage(vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))
}

// BeginReusable begins a recording that may be submitted any number of times,
// including while a previous submission is still pending.
func (c *CommandBuffer) BeginReusable() error {
	return c.BeginWithUsage(vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit))
}

func (c *CommandBuffer) CmdBindComputePipeline(p *ComputePipeline) {
	vk.CmdBindPipeline(c.VKCommandBuffer, vk.PipelineBindPointCompute, p.VKPipeline)
}

func (c *CommandBuffer) CmdBindGraphicsPipeline(p vk.Pipeline) {
	vk.CmdBindPipeline(c.VKCommandBuffer, vk.PipelineBindPointGraphics, p)
}

func (c *CommandBuffer) CmdBindDescriptorSets(bindPoint vk.PipelineBindPoint, layout *PipelineLayout, firstSet int, descriptorSets ...*DescriptorSet) {
	sets := make([]vk.DescriptorSet, len(descriptorSets))
	for i := range descriptorSets {
		sets[i] = descriptorSets[i].VKDescriptorSet
	}

	vk.CmdBindDescriptorSets(c.VKCommandBuffer, bindPoint,
		layout.VKPipelineLayout, uint32(firstSet), uint32(len(descriptorSets)), sets, 0, nil)
}

func (c *CommandBuffer) CmdDispatch(x, y, z int) {
	vk.CmdDispatch(c.VKCommandBuffer, uint32(x), uint32(y), uint32(z))
}

// CmdPipelineBarrier records a global memory barrier.
func (c *CommandBuffer) CmdPipelineBarrier(b Barrier) {
	vk.CmdPipelineBarrier(c.VKCommandBuffer, b.SrcStage, b.DstStage, 0,
		1, []vk.MemoryBarrier{b.VKMemoryBarrier()},
		0, nil,
		0, nil)
}

// CmdCopyBuffer copies regions of src into dst. Without regions the whole of
// src is copied to the start of dst.
func (c *CommandBuffer) CmdCopyBuffer(src, dst *Buffer, regions ...vk.BufferCopy) {
	if len(regions) == 0 {
		regions = []vk.BufferCopy{{Size: vk.DeviceSize(src.Size)}}
	}
	vk.CmdCopyBuffer(c.VKCommandBuffer, src.VKBuffer, dst.VKBuffer, uint32(len(regions)), regions)
}

// CmdBeginRenderPass starts the render pass on framebuffer, clearing the
// single colour attachment to clear.
func (c *CommandBuffer) CmdBeginRenderPass(renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clear [4]float32) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(clear[:])

	vk.CmdBeginRenderPass(c.VKCommandBuffer, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)
}

func (c *CommandBuffer) CmdEndRenderPass() {
	vk.CmdEndRenderPass(c.VKCommandBuffer)
}

// CmdSetViewportAndScissor covers the whole extent.
func (c *CommandBuffer) CmdSetViewportAndScissor(extent vk.Extent2D) {
	vk.CmdSetViewport(c.VKCommandBuffer, 0, 1, []vk.Viewport{{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
	vk.CmdSetScissor(c.VKCommandBuffer, 0, 1, []vk.Rect2D{{
		Extent: extent,
	}})
}

// CmdBindVertexBuffer binds a single buffer at offset to binding.
func (c *CommandBuffer) CmdBindVertexBuffer(binding int, b *Buffer, offset uint64) {
	vk.CmdBindVertexBuffers(c.VKCommandBuffer, uint32(binding), 1,
		[]vk.Buffer{b.VKBuffer}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (c *CommandBuffer) CmdDraw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	vk.CmdDraw(c.VKCommandBuffer, uint32(vertexCount), uint32(instanceCount), uint32(firstVertex), uint32(firstInstance))
}

// End describing work for this command buffer
func (c *CommandBuffer) End() error {
	return errors.Wrap(vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer)), "end command buffer")
}
