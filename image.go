package vkg

import (
	vk "github.com/vulkan-go/vulkan"
)

// Image is a presentable image owned by a swapchain. It is never destroyed
// directly; the swapchain releases it.
type Image struct {
	Device   *Device
	VKImage  vk.Image
	VKFormat vk.Format
}
