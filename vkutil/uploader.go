package vkutil

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// UploadDevice is the slice of device behavior the Uploader needs. The
// production implementation wraps the core driver; tests substitute an
// in-memory fake.
type UploadDevice interface {
	CreateStagingBuffer(data []byte) (core1_0.Buffer, core1_0.DeviceMemory, error)
	DestroyStagingBuffer(buffer core1_0.Buffer, memory core1_0.DeviceMemory)

	CreateCommandPool(queueFamily int) (core1_0.CommandPool, error)
	DestroyCommandPool(pool core1_0.CommandPool)
	AllocateCommandBuffer(pool core1_0.CommandPool) (core1_0.CommandBuffer, error)
	BeginCommandBuffer(commandBuffer core1_0.CommandBuffer) error
	EndCommandBuffer(commandBuffer core1_0.CommandBuffer) error

	CmdCopyBuffer(commandBuffer core1_0.CommandBuffer, src core1_0.Buffer, dst core1_0.Buffer, regions ...core1_0.BufferCopy) error
	CmdCopyBufferToImage(commandBuffer core1_0.CommandBuffer, src core1_0.Buffer, dst core1_0.Image, layout core1_0.ImageLayout, regions ...core1_0.BufferImageCopy) error
	CmdPipelineBarrier(commandBuffer core1_0.CommandBuffer, srcStage core1_0.PipelineStageFlags, dstStage core1_0.PipelineStageFlags, memoryBarriers []core1_0.MemoryBarrier, imageBarriers []core1_0.ImageMemoryBarrier) error

	CreateFence() (core1_0.Fence, error)
	DestroyFence(fence core1_0.Fence)
	Submit(queue core1_0.Queue, commandBuffer core1_0.CommandBuffer, fence core1_0.Fence) error
	WaitFence(fence core1_0.Fence) error
}

type bufferUpload struct {
	staging core1_0.Buffer
	dst     core1_0.Buffer
	size    int
}

type imageUpload struct {
	staging     core1_0.Buffer
	dst         core1_0.Image
	width       int
	height      int
	finalLayout core1_0.ImageLayout
}

// Uploader batches host-to-device transfers. Each Queue* call serializes the
// source data into its own staging buffer immediately, so callers are free to
// reuse or discard the source right after queuing. Execute records every
// pending copy into one submission, blocks until the device finishes, then
// releases all staging resources.
type Uploader struct {
	device      UploadDevice
	queue       core1_0.Queue
	queueFamily int

	staging       []stagingAllocation
	bufferUploads []bufferUpload
	imageUploads  []imageUpload
}

type stagingAllocation struct {
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
}

// NewUploader returns an Uploader submitting on queue, which must belong to
// queueFamily and support transfer operations.
func NewUploader(device UploadDevice, queue core1_0.Queue, queueFamily int) *Uploader {
	return &Uploader{
		device:      device,
		queue:       queue,
		queueFamily: queueFamily,
	}
}

func (u *Uploader) stage(data any) (core1_0.Buffer, int, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return core1_0.Buffer{}, 0, errors.Wrap(err, "serialize upload data")
	}

	payload := buf.Bytes()
	staging, memory, err := u.device.CreateStagingBuffer(payload)
	if err != nil {
		return core1_0.Buffer{}, 0, errors.Wrap(err, "create staging buffer")
	}

	u.staging = append(u.staging, stagingAllocation{buffer: staging, memory: memory})
	return staging, len(payload), nil
}

// QueueBuffer schedules data to be copied into dst at offset zero. data must
// have a size computable by binary.Size.
func (u *Uploader) QueueBuffer(dst core1_0.Buffer, data any) error {
	staging, size, err := u.stage(data)
	if err != nil {
		return err
	}

	u.bufferUploads = append(u.bufferUploads, bufferUpload{
		staging: staging,
		dst:     dst,
		size:    size,
	})
	return nil
}

// QueueImage schedules pixel data to be copied into the first mip level of
// dst and the image transitioned to finalLayout. The data is expected to be
// tightly packed rows for a width x height image.
func (u *Uploader) QueueImage(dst core1_0.Image, data any, width, height int, finalLayout core1_0.ImageLayout) error {
	staging, _, err := u.stage(data)
	if err != nil {
		return err
	}

	u.imageUploads = append(u.imageUploads, imageUpload{
		staging:     staging,
		dst:         dst,
		width:       width,
		height:      height,
		finalLayout: finalLayout,
	})
	return nil
}

// Pending reports whether any queued uploads are awaiting Execute.
func (u *Uploader) Pending() bool {
	return len(u.bufferUploads) > 0 || len(u.imageUploads) > 0
}

// Execute submits every queued upload in one batch and waits for the device
// to finish. All staging resources are released and the queue drained before
// returning, whether or not the submission succeeded. Calling Execute with
// nothing queued is a no-op.
func (u *Uploader) Execute() error {
	if !u.Pending() {
		return nil
	}
	defer u.release()

	pool, err := u.device.CreateCommandPool(u.queueFamily)
	if err != nil {
		return errors.Wrap(err, "create upload command pool")
	}
	defer u.device.DestroyCommandPool(pool)

	commandBuffer, err := u.device.AllocateCommandBuffer(pool)
	if err != nil {
		return errors.Wrap(err, "allocate upload command buffer")
	}

	err = u.device.BeginCommandBuffer(commandBuffer)
	if err != nil {
		return errors.Wrap(err, "begin upload command buffer")
	}

	err = u.record(commandBuffer)
	if err != nil {
		return err
	}

	err = u.device.EndCommandBuffer(commandBuffer)
	if err != nil {
		return errors.Wrap(err, "end upload command buffer")
	}

	fence, err := u.device.CreateFence()
	if err != nil {
		return errors.Wrap(err, "create upload fence")
	}
	defer u.device.DestroyFence(fence)

	err = u.device.Submit(u.queue, commandBuffer, fence)
	if err != nil {
		return errors.Wrap(err, "submit uploads")
	}

	err = u.device.WaitFence(fence)
	if err != nil {
		return errors.Wrap(err, "wait for uploads")
	}

	return nil
}

func (u *Uploader) record(commandBuffer core1_0.CommandBuffer) error {
	for _, upload := range u.bufferUploads {
		err := u.device.CmdCopyBuffer(commandBuffer, upload.staging, upload.dst, core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      upload.size,
		})
		if err != nil {
			return errors.Wrap(err, "record buffer copy")
		}
	}

	// One dependency covers both directions of the midpoint: buffer copy
	// results become visible to later submissions, and images enter transfer
	// destination layout for the copies below.
	var memoryBarriers []core1_0.MemoryBarrier
	if len(u.bufferUploads) > 0 {
		memoryBarriers = []core1_0.MemoryBarrier{
			{
				SrcAccessMask: core1_0.AccessTransferWrite,
				DstAccessMask: core1_0.AccessMemoryRead,
			},
		}
	}

	var toTransferDst []core1_0.ImageMemoryBarrier
	for _, upload := range u.imageUploads {
		barrier := BarrierPreset{
			SrcAccess:   0,
			DstAccess:   core1_0.AccessTransferWrite,
			OldLayout:   core1_0.ImageLayoutUndefined,
			NewLayout:   core1_0.ImageLayoutTransferDstOptimal,
			Subresource: ColorSubresourceRange,
		}.Barrier(upload.dst)
		toTransferDst = append(toTransferDst, barrier)
	}

	if len(memoryBarriers) > 0 || len(toTransferDst) > 0 {
		err := u.device.CmdPipelineBarrier(commandBuffer,
			core1_0.PipelineStageTransfer, core1_0.PipelineStageAllGraphics|core1_0.PipelineStageTransfer,
			memoryBarriers, toTransferDst)
		if err != nil {
			return errors.Wrap(err, "record upload midpoint barrier")
		}
	}

	var toFinal []core1_0.ImageMemoryBarrier
	for _, upload := range u.imageUploads {
		err := u.device.CmdCopyBufferToImage(commandBuffer, upload.staging, upload.dst, core1_0.ImageLayoutTransferDstOptimal, core1_0.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,
			ImageSubresource: core1_0.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: core1_0.Extent3D{
				Width:  upload.width,
				Height: upload.height,
				Depth:  1,
			},
		})
		if err != nil {
			return errors.Wrap(err, "record image copy")
		}

		barrier := BarrierPreset{
			SrcAccess:   core1_0.AccessTransferWrite,
			DstAccess:   core1_0.AccessMemoryRead,
			OldLayout:   core1_0.ImageLayoutTransferDstOptimal,
			NewLayout:   upload.finalLayout,
			Subresource: ColorSubresourceRange,
		}.Barrier(upload.dst)
		toFinal = append(toFinal, barrier)
	}

	if len(toFinal) > 0 {
		err := u.device.CmdPipelineBarrier(commandBuffer,
			core1_0.PipelineStageTransfer, core1_0.PipelineStageAllGraphics,
			nil, toFinal)
		if err != nil {
			return errors.Wrap(err, "record image layout barrier")
		}
	}

	return nil
}

func (u *Uploader) release() {
	for _, allocation := range u.staging {
		u.device.DestroyStagingBuffer(allocation.buffer, allocation.memory)
	}
	u.staging = nil
	u.bufferUploads = nil
	u.imageUploads = nil
}
