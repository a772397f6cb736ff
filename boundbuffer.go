package vkg

import (
	vk "github.com/vulkan-go/vulkan"
)

// BoundBuffer is a Buffer together with the memory bound to it.
type BoundBuffer struct {
	Buffer *Buffer
	Memory *DeviceMemory
}

// CreateAndBindBufferAndMemory creates a buffer, allocates memory satisfying mprops for it and
// binds the two at offset. Nothing is leaked on failure.
func (d *Device) CreateAndBindBufferAndMemory(size uint64, offset uint64, usage vk.BufferUsageFlags, mprops vk.MemoryPropertyFlags, sharing vk.SharingMode) (*Buffer, *DeviceMemory, error) {
	buffer, err := d.CreateBufferWithOptions(size, usage, sharing)
	if err != nil {
		return nil, nil, err
	}
	memory, err := d.AllocateForBuffer(buffer, mprops)
	if err != nil {
		buffer.Destroy()
		return nil, nil, err
	}
	if err := buffer.Bind(memory, offset); err != nil {
		memory.Destroy()
		buffer.Destroy()
		return nil, nil, err
	}
	return buffer, memory, nil
}

// CreateStagingBuffer creates a host visible, host coherent buffer usable as
// the source of a transfer.
func (d *Device) CreateStagingBuffer(size uint64) (*BoundBuffer, error) {
	buffer, memory, err := d.CreateAndBindBufferAndMemory(size, 0,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		vk.SharingModeExclusive)
	if err != nil {
		return nil, err
	}
	logger.Debug("staging buffer created", zapSize(size))
	return &BoundBuffer{Buffer: buffer, Memory: memory}, nil
}

// CreateDeviceLocalBuffer creates a device local buffer that can be the
// destination of a transfer, in addition to the given usage.
func (d *Device) CreateDeviceLocalBuffer(size uint64, usage vk.BufferUsageFlags) (*BoundBuffer, error) {
	usage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	buffer, memory, err := d.CreateAndBindBufferAndMemory(size, 0,
		usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.SharingModeExclusive)
	if err != nil {
		return nil, err
	}
	logger.Debug("device local buffer created", zapSize(size))
	return &BoundBuffer{Buffer: buffer, Memory: memory}, nil
}

// Map maps the whole buffer. The returned slice is only valid until Unmap.
func (b *BoundBuffer) Map() ([]byte, error) {
	return b.Memory.MapBytes(0, b.Buffer.Size)
}

func (b *BoundBuffer) Unmap() {
	b.Memory.Unmap()
}

func (b *BoundBuffer) Destroy() {
	if b.Buffer != nil {
		b.Buffer.Destroy()
	}
	if b.Memory != nil {
		b.Memory.Destroy()
	}
}
