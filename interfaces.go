package vkg

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// IDestructable is anything owning a Vulkan object.
type IDestructable interface {
	Destroy()
}

// CommandBufferer is anything that can be handed to a queue.
type CommandBufferer interface {
	VK() vk.CommandBuffer
}

// VertexDescriptor describes how a vertex buffer is fed to the vertex stage.
type VertexDescriptor interface {
	GetBindingDescription() vk.VertexInputBindingDescription
	GetAttributeDescriptions() []vk.VertexInputAttributeDescription
}

// Window is the part of a native window needed to present into it.
// *glfw.Window from github.com/vulkan-go/glfw satisfies it.
type Window interface {
	GetRequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
	GetFramebufferSize() (width, height int)
}
