package vkg

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the host or on the device
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	MapCount       int32
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return atomic.LoadInt32(&d.MapCount) > 0
}

// Destroy frees the memory, unmapping it first if needed.
func (d *DeviceMemory) Destroy() {
	if d.IsMapped() {
		d.Unmap()
	}
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}

// MapBytes maps size bytes starting at offset and returns them as a slice
// backed by the mapping. The slice is invalid after Unmap.
func (d *DeviceMemory) MapBytes(offset, size uint64) ([]byte, error) {
	if offset+size > d.Size {
		return nil, errors.Errorf("map range [%d, %d) exceeds allocation of %d bytes", offset, offset+size, d.Size)
	}

	var ptr unsafe.Pointer
	err := vk.Error(vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &ptr))
	if err != nil {
		return nil, errors.Wrap(err, "map memory")
	}
	atomic.AddInt32(&d.MapCount, 1)

	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *DeviceMemory) Unmap() {
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
	atomic.AddInt32(&d.MapCount, -1)
}
