package vkg

import (
	vk "github.com/vulkan-go/vulkan"
)

// Vec2Vertices feeds tightly packed pairs of 32 bit floats to location 0 of
// Binding. Every vertex is one point.
type Vec2Vertices struct {
	Binding int
}

func (v Vec2Vertices) GetBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   uint32(v.Binding),
		Stride:    8,
		InputRate: vk.VertexInputRateVertex,
	}
}

func (v Vec2Vertices) GetAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{{
		Binding:  uint32(v.Binding),
		Location: 0,
		Format:   vk.FormatR32g32Sfloat,
		Offset:   0,
	}}
}
