package vkutil

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type fakeBarrierCall struct {
	srcStage core1_0.PipelineStageFlags
	dstStage core1_0.PipelineStageFlags
	memory   []core1_0.MemoryBarrier
	images   []core1_0.ImageMemoryBarrier
}

type fakeImageCopy struct {
	data   []byte
	region core1_0.BufferImageCopy
}

// fakeUploadDevice simulates the transfer path: staging contents are captured
// at creation and resolved to copy commands in creation order, which matches
// how the uploader records them.
type fakeUploadDevice struct {
	events []string

	stagings       [][]byte
	nextStaging    int
	stagingCreated int
	stagingFreed   int

	bufferCopies [][]byte
	bufferCopyRegions []core1_0.BufferCopy
	imageCopies  []fakeImageCopy
	barriers     []fakeBarrierCall

	stagingErr error
	submitErr  error
}

func (f *fakeUploadDevice) log(event string) {
	f.events = append(f.events, event)
}

func (f *fakeUploadDevice) CreateStagingBuffer(data []byte) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	if f.stagingErr != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, f.stagingErr
	}
	f.log("create-staging")
	f.stagingCreated++
	f.stagings = append(f.stagings, append([]byte(nil), data...))
	return core1_0.Buffer{}, core1_0.DeviceMemory{}, nil
}

func (f *fakeUploadDevice) DestroyStagingBuffer(core1_0.Buffer, core1_0.DeviceMemory) {
	f.log("destroy-staging")
	f.stagingFreed++
}

func (f *fakeUploadDevice) CreateCommandPool(int) (core1_0.CommandPool, error) {
	f.log("create-pool")
	return core1_0.CommandPool{}, nil
}

func (f *fakeUploadDevice) DestroyCommandPool(core1_0.CommandPool) {
	f.log("destroy-pool")
}

func (f *fakeUploadDevice) AllocateCommandBuffer(core1_0.CommandPool) (core1_0.CommandBuffer, error) {
	return core1_0.CommandBuffer{}, nil
}

func (f *fakeUploadDevice) BeginCommandBuffer(core1_0.CommandBuffer) error {
	f.log("begin")
	return nil
}

func (f *fakeUploadDevice) EndCommandBuffer(core1_0.CommandBuffer) error {
	f.log("end")
	return nil
}

func (f *fakeUploadDevice) CmdCopyBuffer(_ core1_0.CommandBuffer, _ core1_0.Buffer, _ core1_0.Buffer, regions ...core1_0.BufferCopy) error {
	f.log("copy-buffer")
	src := f.stagings[f.nextStaging]
	f.nextStaging++
	f.bufferCopies = append(f.bufferCopies, append([]byte(nil), src...))
	f.bufferCopyRegions = append(f.bufferCopyRegions, regions...)
	return nil
}

func (f *fakeUploadDevice) CmdCopyBufferToImage(_ core1_0.CommandBuffer, _ core1_0.Buffer, _ core1_0.Image, _ core1_0.ImageLayout, regions ...core1_0.BufferImageCopy) error {
	f.log("copy-image")
	src := f.stagings[f.nextStaging]
	f.nextStaging++
	f.imageCopies = append(f.imageCopies, fakeImageCopy{
		data:   append([]byte(nil), src...),
		region: regions[0],
	})
	return nil
}

func (f *fakeUploadDevice) CmdPipelineBarrier(_ core1_0.CommandBuffer, srcStage core1_0.PipelineStageFlags, dstStage core1_0.PipelineStageFlags, memoryBarriers []core1_0.MemoryBarrier, imageBarriers []core1_0.ImageMemoryBarrier) error {
	f.log("barrier")
	f.barriers = append(f.barriers, fakeBarrierCall{
		srcStage: srcStage,
		dstStage: dstStage,
		memory:   memoryBarriers,
		images:   imageBarriers,
	})
	return nil
}

func (f *fakeUploadDevice) CreateFence() (core1_0.Fence, error) {
	f.log("create-fence")
	return core1_0.Fence{}, nil
}

func (f *fakeUploadDevice) DestroyFence(core1_0.Fence) {
	f.log("destroy-fence")
}

func (f *fakeUploadDevice) Submit(core1_0.Queue, core1_0.CommandBuffer, core1_0.Fence) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.log("submit")
	return nil
}

func (f *fakeUploadDevice) WaitFence(core1_0.Fence) error {
	f.log("wait-fence")
	return nil
}

func marshalPayload(t *testing.T, data any) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, common.ByteOrder, data))
	return buf.Bytes()
}

func eventIndex(t *testing.T, events []string, name string) int {
	t.Helper()
	for i, event := range events {
		if event == name {
			return i
		}
	}
	t.Fatalf("event %q not found in %v", name, events)
	return -1
}

func TestUploaderBufferRoundTrip(t *testing.T) {
	device := &fakeUploadDevice{}
	uploader := NewUploader(device, core1_0.Queue{}, 0)

	vertices := []float32{0, 1, 2, 3, 4, 5}
	want := marshalPayload(t, vertices)

	require.NoError(t, uploader.QueueBuffer(core1_0.Buffer{}, vertices))
	require.True(t, uploader.Pending())

	// The staging copy is taken at queue time, so mutating the source
	// afterwards must not affect what reaches the device.
	vertices[0] = 999

	require.NoError(t, uploader.Execute())

	require.Len(t, device.bufferCopies, 1)
	require.Equal(t, want, device.bufferCopies[0])
	require.Equal(t, core1_0.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: len(want)}, device.bufferCopyRegions[0])

	// The device must have finished before staging memory goes away.
	submitAt := eventIndex(t, device.events, "submit")
	waitAt := eventIndex(t, device.events, "wait-fence")
	freeAt := eventIndex(t, device.events, "destroy-staging")
	require.Less(t, submitAt, waitAt)
	require.Less(t, waitAt, freeAt)

	require.Equal(t, device.stagingCreated, device.stagingFreed)
	require.False(t, uploader.Pending())

	// A drained uploader executes as a no-op.
	events := len(device.events)
	require.NoError(t, uploader.Execute())
	require.Len(t, device.events, events)
}

func TestUploaderImageUpload(t *testing.T) {
	device := &fakeUploadDevice{}
	uploader := NewUploader(device, core1_0.Queue{}, 0)

	pixels := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	}
	require.NoError(t, uploader.QueueImage(core1_0.Image{}, pixels, 2, 2, core1_0.ImageLayoutShaderReadOnlyOptimal))
	require.NoError(t, uploader.Execute())

	require.Len(t, device.imageCopies, 1)
	copied := device.imageCopies[0]
	require.Equal(t, pixels, copied.data)
	require.Equal(t, core1_0.Extent3D{Width: 2, Height: 2, Depth: 1}, copied.region.ImageExtent)
	require.Equal(t, 1, copied.region.ImageSubresource.LayerCount)

	require.Len(t, device.barriers, 2)

	midpoint := device.barriers[0]
	require.Empty(t, midpoint.memory)
	require.Len(t, midpoint.images, 1)
	require.Equal(t, core1_0.ImageLayoutUndefined, midpoint.images[0].OldLayout)
	require.Equal(t, core1_0.ImageLayoutTransferDstOptimal, midpoint.images[0].NewLayout)

	final := device.barriers[1]
	require.Len(t, final.images, 1)
	require.Equal(t, core1_0.ImageLayoutTransferDstOptimal, final.images[0].OldLayout)
	require.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, final.images[0].NewLayout)
}

func TestUploaderBatchesBuffersAndImages(t *testing.T) {
	device := &fakeUploadDevice{}
	uploader := NewUploader(device, core1_0.Queue{}, 0)

	first := []uint32{10, 20, 30}
	second := []uint16{7, 8}
	pixels := []byte{255, 0, 0, 255}

	require.NoError(t, uploader.QueueBuffer(core1_0.Buffer{}, first))
	require.NoError(t, uploader.QueueBuffer(core1_0.Buffer{}, second))
	require.NoError(t, uploader.QueueImage(core1_0.Image{}, pixels, 1, 1, core1_0.ImageLayoutShaderReadOnlyOptimal))

	require.NoError(t, uploader.Execute())

	require.Equal(t, [][]byte{marshalPayload(t, first), marshalPayload(t, second)}, device.bufferCopies)
	require.Len(t, device.imageCopies, 1)
	require.Equal(t, pixels, device.imageCopies[0].data)

	// Buffer visibility and the image transfer transition share one
	// dependency between the copy phases.
	require.Len(t, device.barriers, 2)
	require.Len(t, device.barriers[0].memory, 1)
	require.Equal(t, core1_0.AccessTransferWrite, device.barriers[0].memory[0].SrcAccessMask)
	require.Len(t, device.barriers[0].images, 1)

	require.Equal(t, 3, device.stagingCreated)
	require.Equal(t, 3, device.stagingFreed)
}

func TestUploaderStagingFailure(t *testing.T) {
	boom := errors.New("out of host memory")
	device := &fakeUploadDevice{stagingErr: boom}
	uploader := NewUploader(device, core1_0.Queue{}, 0)

	err := uploader.QueueBuffer(core1_0.Buffer{}, []byte{1, 2, 3})
	require.ErrorIs(t, err, boom)
	require.False(t, uploader.Pending())

	require.NoError(t, uploader.Execute())
	require.Empty(t, device.events)
}

func TestUploaderReleasesStagingOnSubmitFailure(t *testing.T) {
	boom := errors.New("device lost")
	device := &fakeUploadDevice{submitErr: boom}
	uploader := NewUploader(device, core1_0.Queue{}, 0)

	require.NoError(t, uploader.QueueBuffer(core1_0.Buffer{}, []byte{1, 2, 3}))

	err := uploader.Execute()
	require.ErrorIs(t, err, boom)

	require.Equal(t, device.stagingCreated, device.stagingFreed)
	require.False(t, uploader.Pending())
}
