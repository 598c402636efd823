package render

import (
	"github.com/Stehsaer/vulkan-rt/vkutil"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// FrameDevice is the slice of the device surface the orchestrator drives
// every frame. It is deliberately narrow so the frame protocol can be
// exercised against a fake.
type FrameDevice interface {
	CreateFrameSync() (FrameSync, error)
	DestroyFrameSync(sync FrameSync)

	AllocateCommandBuffer() (core1_0.CommandBuffer, error)
	FreeCommandBuffer(commandBuffer core1_0.CommandBuffer)

	WaitForFence(fence core1_0.Fence) error
	ResetFence(fence core1_0.Fence) error

	BeginCommandBuffer(commandBuffer core1_0.CommandBuffer) error
	EndCommandBuffer(commandBuffer core1_0.CommandBuffer) error
	CmdImageBarrier(commandBuffer core1_0.CommandBuffer, preset vkutil.BarrierPreset, image core1_0.Image) error

	Submit(queue core1_0.Queue, commandBuffer core1_0.CommandBuffer, wait, signal core1_0.Semaphore, fence core1_0.Fence) error
	WaitIdle() error
}

// CoreFrameDevice implements FrameDevice against a real logical device. It
// owns a command pool on the graphics queue family; frame command buffers
// are freed back to it and reallocated each pass instead of being reset.
type CoreFrameDevice struct {
	driver      core1_0.CoreDeviceDriver
	commandPool core1_0.CommandPool
}

// NewFrameDevice creates the frame device and its command pool.
func NewFrameDevice(driver core1_0.CoreDeviceDriver, graphicsFamily int) (*CoreFrameDevice, error) {
	pool, _, err := driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: graphicsFamily,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create frame command pool")
	}

	return &CoreFrameDevice{
		driver:      driver,
		commandPool: pool,
	}, nil
}

// Destroy releases the command pool and with it any live frame command
// buffers.
func (d *CoreFrameDevice) Destroy() {
	if d.commandPool.Initialized() {
		d.driver.DestroyCommandPool(d.commandPool, nil)
		d.commandPool = core1_0.CommandPool{}
	}
}

func (d *CoreFrameDevice) CreateFrameSync() (FrameSync, error) {
	return NewFrameSync(d.driver)
}

func (d *CoreFrameDevice) DestroyFrameSync(sync FrameSync) {
	sync.Destroy(d.driver)
}

func (d *CoreFrameDevice) AllocateCommandBuffer() (core1_0.CommandBuffer, error) {
	buffers, _, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}

	return buffers[0], nil
}

func (d *CoreFrameDevice) FreeCommandBuffer(commandBuffer core1_0.CommandBuffer) {
	d.driver.FreeCommandBuffers(commandBuffer)
}

func (d *CoreFrameDevice) WaitForFence(fence core1_0.Fence) error {
	_, err := d.driver.WaitForFences(true, common.NoTimeout, fence)
	return err
}

func (d *CoreFrameDevice) ResetFence(fence core1_0.Fence) error {
	_, err := d.driver.ResetFences(fence)
	return err
}

func (d *CoreFrameDevice) BeginCommandBuffer(commandBuffer core1_0.CommandBuffer) error {
	_, err := d.driver.BeginCommandBuffer(commandBuffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return err
}

func (d *CoreFrameDevice) EndCommandBuffer(commandBuffer core1_0.CommandBuffer) error {
	_, err := d.driver.EndCommandBuffer(commandBuffer)
	return err
}

func (d *CoreFrameDevice) CmdImageBarrier(commandBuffer core1_0.CommandBuffer, preset vkutil.BarrierPreset, image core1_0.Image) error {
	return d.driver.CmdPipelineBarrier(commandBuffer, preset.SrcStage, preset.DstStage, 0,
		nil, nil, []core1_0.ImageMemoryBarrier{preset.Barrier(image)})
}

func (d *CoreFrameDevice) Submit(queue core1_0.Queue, commandBuffer core1_0.CommandBuffer, wait, signal core1_0.Semaphore, fence core1_0.Fence) error {
	_, err := d.driver.QueueSubmit(queue, &fence, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{wait},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []core1_0.CommandBuffer{commandBuffer},
		SignalSemaphores: []core1_0.Semaphore{signal},
	})
	return err
}

func (d *CoreFrameDevice) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}
