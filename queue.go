package vkg

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
	Index       int
}

// SubmitSync lists the synchronisation attached to one submission. WaitStages
// pairs up with Wait.
type SubmitSync struct {
	Wait       []vk.Semaphore
	WaitStages []vk.PipelineStageFlags
	Signal     []vk.Semaphore
}

// SubmitInfo builds the native submit description for buffers.
func (s SubmitSync) SubmitInfo(buffers ...CommandBufferer) (vk.SubmitInfo, error) {
	if len(s.Wait) != len(s.WaitStages) {
		return vk.SubmitInfo{}, errors.Errorf("%d wait semaphores but %d wait stages", len(s.Wait), len(s.WaitStages))
	}

	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VK()
	}

	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(b)),
		PCommandBuffers:    b,
	}
	if len(s.Wait) > 0 {
		info.WaitSemaphoreCount = uint32(len(s.Wait))
		info.PWaitSemaphores = s.Wait
		info.PWaitDstStageMask = s.WaitStages
	}
	if len(s.Signal) > 0 {
		info.SignalSemaphoreCount = uint32(len(s.Signal))
		info.PSignalSemaphores = s.Signal
	}
	return info, nil
}

func (q *Queue) WaitIdle() error {
	return errors.Wrap(vk.Error(vk.QueueWaitIdle(q.VKQueue)), "queue wait idle")
}

// Submit enqueues buffers and returns without waiting for them.
func (q *Queue) Submit(sync SubmitSync, buffers ...CommandBufferer) error {
	info, err := sync.SubmitInfo(buffers...)
	if err != nil {
		return err
	}

	return errors.Wrap(vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{info}, vk.NullFence)), "queue submit")
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s Index: %d}", q.Device.String(), q.QueueFamily.String(), q.Index)
}
