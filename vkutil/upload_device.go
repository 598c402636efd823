package vkutil

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type coreUploadDevice struct {
	alloc Allocator
}

// NewUploadDevice adapts the driver behind alloc into an UploadDevice.
func NewUploadDevice(alloc Allocator) UploadDevice {
	return coreUploadDevice{alloc: alloc}
}

func (d coreUploadDevice) CreateStagingBuffer(data []byte) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, memory, err := d.alloc.CreateBuffer(len(data),
		core1_0.BufferUsageTransferSrc,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	ptr, _, err := d.alloc.Device.MapMemory(memory, 0, len(data), 0)
	if err != nil {
		d.DestroyStagingBuffer(buffer, memory)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "map staging memory")
	}

	copy(unsafe.Slice((*byte)(ptr), len(data)), data)
	d.alloc.Device.UnmapMemory(memory)

	return buffer, memory, nil
}

func (d coreUploadDevice) DestroyStagingBuffer(buffer core1_0.Buffer, memory core1_0.DeviceMemory) {
	d.alloc.Device.DestroyBuffer(buffer, nil)
	d.alloc.Device.FreeMemory(memory, nil)
}

func (d coreUploadDevice) CreateCommandPool(queueFamily int) (core1_0.CommandPool, error) {
	pool, _, err := d.alloc.Device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: queueFamily,
	})
	if err != nil {
		return core1_0.CommandPool{}, err
	}
	return pool, nil
}

func (d coreUploadDevice) DestroyCommandPool(pool core1_0.CommandPool) {
	d.alloc.Device.DestroyCommandPool(pool, nil)
}

func (d coreUploadDevice) AllocateCommandBuffer(pool core1_0.CommandPool) (core1_0.CommandBuffer, error) {
	buffers, _, err := d.alloc.Device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}
	return buffers[0], nil
}

func (d coreUploadDevice) BeginCommandBuffer(commandBuffer core1_0.CommandBuffer) error {
	_, err := d.alloc.Device.BeginCommandBuffer(commandBuffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return err
}

func (d coreUploadDevice) EndCommandBuffer(commandBuffer core1_0.CommandBuffer) error {
	_, err := d.alloc.Device.EndCommandBuffer(commandBuffer)
	return err
}

func (d coreUploadDevice) CmdCopyBuffer(commandBuffer core1_0.CommandBuffer, src core1_0.Buffer, dst core1_0.Buffer, regions ...core1_0.BufferCopy) error {
	return d.alloc.Device.CmdCopyBuffer(commandBuffer, src, dst, regions...)
}

func (d coreUploadDevice) CmdCopyBufferToImage(commandBuffer core1_0.CommandBuffer, src core1_0.Buffer, dst core1_0.Image, layout core1_0.ImageLayout, regions ...core1_0.BufferImageCopy) error {
	return d.alloc.Device.CmdCopyBufferToImage(commandBuffer, src, dst, layout, regions...)
}

func (d coreUploadDevice) CmdPipelineBarrier(commandBuffer core1_0.CommandBuffer, srcStage core1_0.PipelineStageFlags, dstStage core1_0.PipelineStageFlags, memoryBarriers []core1_0.MemoryBarrier, imageBarriers []core1_0.ImageMemoryBarrier) error {
	return d.alloc.Device.CmdPipelineBarrier(commandBuffer, srcStage, dstStage, 0, memoryBarriers, nil, imageBarriers)
}

func (d coreUploadDevice) CreateFence() (core1_0.Fence, error) {
	fence, _, err := d.alloc.Device.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return core1_0.Fence{}, err
	}
	return fence, nil
}

func (d coreUploadDevice) DestroyFence(fence core1_0.Fence) {
	d.alloc.Device.DestroyFence(fence, nil)
}

func (d coreUploadDevice) Submit(queue core1_0.Queue, commandBuffer core1_0.CommandBuffer, fence core1_0.Fence) error {
	_, err := d.alloc.Device.QueueSubmit(queue, &fence, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{commandBuffer},
	})
	return err
}

func (d coreUploadDevice) WaitFence(fence core1_0.Fence) error {
	_, err := d.alloc.Device.WaitForFences(true, common.NoTimeout, fence)
	return err
}
