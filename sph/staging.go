package sph

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	vkg "github.com/celer/vksph"
)

// Recorder is the subset of *vkg.CommandBuffer used to record simulation
// and transfer work.
type Recorder interface {
	vkg.CommandBufferer
	BeginOneTime() error
	BeginReusable() error
	CmdBindDescriptorSets(bindPoint vk.PipelineBindPoint, layout *vkg.PipelineLayout, firstSet int, descriptorSets ...*vkg.DescriptorSet)
	CmdBindComputePipeline(p *vkg.ComputePipeline)
	CmdDispatch(x, y, z int)
	CmdPipelineBarrier(b vkg.Barrier)
	CmdCopyBuffer(src, dst *vkg.Buffer, regions ...vk.BufferCopy)
	End() error
}

// CommandAllocator hands out primary command buffers.
type CommandAllocator interface {
	AllocateRecorder() (Recorder, error)
	FreeRecorder(r Recorder)
}

// Submitter is a queue. *vkg.Queue satisfies it.
type Submitter interface {
	Submit(sync vkg.SubmitSync, buffers ...vkg.CommandBufferer) error
	WaitIdle() error
}

// HostBuffer is a host visible buffer used as a transfer source.
type HostBuffer interface {
	Map() ([]byte, error)
	Unmap()
	Buffer() *vkg.Buffer
	Destroy()
}

// StagingAllocator creates host visible transfer sources.
type StagingAllocator interface {
	CreateStagingBuffer(size uint64) (HostBuffer, error)
}

// Uploader writes the initial particle state into the packed device buffer
// through a temporary staging buffer.
type Uploader struct {
	Staging  StagingAllocator
	Commands CommandAllocator
	Queue    Submitter
	Logger   *zap.Logger
}

// UploadInitial fills target with the initial state of l.Count particles
// placed on g and blocks until the copy has completed. The staging buffer
// and command buffer are released whatever happens. Any error leaves target
// in an undefined state and is a SetupFailure.
func (u *Uploader) UploadInitial(target *vkg.Buffer, l Layout, g Grid) error {
	log := u.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if target.Size < l.Size {
		return setupError("upload initial state", errors.Errorf("target holds %d bytes, layout needs %d", target.Size, l.Size))
	}

	staging, err := u.Staging.CreateStagingBuffer(l.Size)
	if err != nil {
		return setupError("create staging buffer", err)
	}
	defer staging.Destroy()

	data, err := staging.Map()
	if err != nil {
		return setupError("map staging buffer", err)
	}
	err = l.Fill(data, g)
	staging.Unmap()
	if err != nil {
		return setupError("fill staging buffer", err)
	}

	cb, err := u.Commands.AllocateRecorder()
	if err != nil {
		return setupError("allocate copy commands", err)
	}
	defer u.Commands.FreeRecorder(cb)

	if err := cb.BeginOneTime(); err != nil {
		return setupError("record copy", err)
	}
	cb.CmdCopyBuffer(staging.Buffer(), target, vk.BufferCopy{Size: vk.DeviceSize(l.Size)})
	cb.CmdPipelineBarrier(vkg.TransferToConsumers)
	if err := cb.End(); err != nil {
		return setupError("record copy", err)
	}

	if err := u.Queue.Submit(vkg.SubmitSync{}, cb); err != nil {
		return setupError("submit copy", err)
	}
	if err := u.Queue.WaitIdle(); err != nil {
		return setupError("wait for copy", err)
	}

	log.Info("initial particle state uploaded",
		zap.Int("particles", l.Count),
		zap.Uint64("bytes", l.Size))
	return nil
}
