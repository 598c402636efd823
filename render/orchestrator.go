package render

import (
	"time"

	"github.com/Stehsaer/vulkan-rt/vkutil"
	"github.com/Stehsaer/vulkan-rt/vulkan"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// DefaultFramesInFlight is the pipeline depth used when Options does not
// override it.
const DefaultFramesInFlight = 2

// Presenter is the swapchain surface the orchestrator drives. Implemented
// by vulkan.Swapchain.
type Presenter interface {
	AcquireNext(timeout time.Duration, semaphore *core1_0.Semaphore, fence *core1_0.Fence) (vulkan.Frame, bool, error)
	Present(queue core1_0.Queue, frame vulkan.Frame, waitSemaphores ...core1_0.Semaphore) error
}

// Renderer records the frame's draw commands. Record runs every frame
// between the attachment barriers; slot identifies the in-flight slot so
// per-slot resources such as uniform buffers can be addressed. Resize is
// called after the frame targets were rebuilt for a new extent, with the
// device idle.
type Renderer interface {
	Record(commandBuffer core1_0.CommandBuffer, slot int, frame vulkan.Frame, target *Target) error
	Resize(extent core1_0.Extent2D) error
}

// Options wires an Orchestrator.
type Options struct {
	Device    FrameDevice
	Swapchain Presenter
	Targets   TargetFactory
	Renderer  Renderer

	GraphicsQueue core1_0.Queue
	PresentQueue  core1_0.Queue

	// FramesInFlight is the pipeline depth. Default DefaultFramesInFlight.
	FramesInFlight int
}

// Orchestrator runs the per-frame protocol: rotate the resource cycles,
// gate on the slot's fence, acquire, record between attachment barriers,
// submit and present. Frame targets are rebuilt eagerly whenever an
// acquired frame reports a new extent.
type Orchestrator struct {
	device    FrameDevice
	swapchain Presenter
	factory   TargetFactory
	renderer  Renderer

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	syncs          *vkutil.Cycle[FrameSync]
	commandBuffers *vkutil.Cycle[core1_0.CommandBuffer]
	targets        *vkutil.Cycle[*Target]

	extents vkutil.ExtentTracker
}

// New builds the orchestrator: per-slot synchronization sets and one
// command buffer per slot. Frame targets are not created here; the first
// acquired frame always reports a changed extent, which builds them
// through the regular rebuild path.
func New(options Options) (*Orchestrator, error) {
	framesInFlight := options.FramesInFlight
	if framesInFlight <= 0 {
		framesInFlight = DefaultFramesInFlight
	}

	o := &Orchestrator{
		device:        options.Device,
		swapchain:     options.Swapchain,
		factory:       options.Targets,
		renderer:      options.Renderer,
		graphicsQueue: options.GraphicsQueue,
		presentQueue:  options.PresentQueue,
	}

	syncs := make([]FrameSync, 0, framesInFlight)
	buffers := make([]core1_0.CommandBuffer, 0, framesInFlight)

	cleanup := func() {
		for _, built := range buffers {
			o.device.FreeCommandBuffer(built)
		}
		for _, built := range syncs {
			o.device.DestroyFrameSync(built)
		}
	}

	for i := 0; i < framesInFlight; i++ {
		sync, err := o.device.CreateFrameSync()
		if err != nil {
			cleanup()
			return nil, errors.Wrapf(err, "create sync objects for frame slot %d", i)
		}
		syncs = append(syncs, sync)

		commandBuffer, err := o.device.AllocateCommandBuffer()
		if err != nil {
			cleanup()
			return nil, errors.Wrapf(err, "allocate command buffer for frame slot %d", i)
		}
		buffers = append(buffers, commandBuffer)
	}

	o.syncs = vkutil.NewCycle(syncs...)
	o.commandBuffers = vkutil.NewCycle(buffers...)
	o.targets = vkutil.NewCycle(make([]*Target, framesInFlight)...)

	return o, nil
}

// FramesInFlight returns the pipeline depth.
func (o *Orchestrator) FramesInFlight() int {
	return o.syncs.Len()
}

// RenderFrame runs one pass of the frame protocol. It returns false with a
// nil error when no image could be acquired, typically because the window
// has no usable extent; the caller just runs the loop again later.
func (o *Orchestrator) RenderFrame() (bool, error) {
	o.syncs.Rotate()
	o.commandBuffers.Rotate()

	sync := o.syncs.Current()

	// Gates slot reuse: this fence belongs to the frame submitted a full
	// cycle ago, so everything the slot owns is free to touch again.
	err := o.device.WaitForFence(sync.DrawFence)
	if err != nil {
		return false, errors.Wrap(err, "wait for frame fence")
	}

	frame, ok, err := o.swapchain.AcquireNext(common.NoTimeout, &sync.ImageAvailable, nil)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	err = o.prepareTargets(frame)
	if err != nil {
		return false, err
	}

	commandBuffer, err := o.recordFrame(frame, o.targets.Current())
	if err != nil {
		return false, err
	}

	err = o.device.ResetFence(sync.DrawFence)
	if err != nil {
		return false, errors.Wrap(err, "reset frame fence")
	}

	err = o.device.Submit(o.graphicsQueue, commandBuffer, sync.ImageAvailable, sync.RenderFinished, sync.DrawFence)
	if err != nil {
		return false, errors.Wrap(err, "submit frame")
	}

	err = o.swapchain.Present(o.presentQueue, frame, sync.RenderFinished)
	if err != nil {
		return false, err
	}

	return true, nil
}

// prepareTargets rebuilds every frame target when the acquired frame's
// extent actually differs from the one the targets were built for. A
// swapchain rebuild at an unchanged size, or a rebuild reported while the
// targets already match, only rotates the cycle.
func (o *Orchestrator) prepareTargets(frame vulkan.Frame) error {
	if frame.ExtentChanged {
		o.extents.Update(frame.Extent)
		if o.extents.Changed() {
			return o.rebuildTargets(frame.Extent)
		}
	}

	o.targets.Rotate()
	return nil
}

func (o *Orchestrator) rebuildTargets(extent core1_0.Extent2D) error {
	// Frames still in flight may reference the old attachments.
	err := o.device.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device before target rebuild")
	}

	targets := o.targets.All()
	for i, target := range targets {
		if target != nil {
			o.factory.DestroyTarget(target)
			targets[i] = nil
		}
	}

	for i := range targets {
		target, err := o.factory.CreateTarget(extent)
		if err != nil {
			return errors.Wrapf(err, "create target for frame slot %d", i)
		}

		targets[i] = target
	}

	return errors.Wrap(o.renderer.Resize(extent), "resize renderer")
}

// recordFrame replaces the slot's command buffer and records the frame:
// acquire and depth barriers, the renderer's commands, then the present
// barrier. The slot's previous buffer retired with the fence wait, and the
// command pool carries no reset flag, so the buffer is recycled through
// the pool instead of being reset in place.
func (o *Orchestrator) recordFrame(frame vulkan.Frame, target *Target) (core1_0.CommandBuffer, error) {
	commandBuffer, err := o.device.AllocateCommandBuffer()
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "allocate frame command buffer")
	}

	buffers := o.commandBuffers.All()
	slot := o.commandBuffers.Slot()
	o.device.FreeCommandBuffer(buffers[slot])
	buffers[slot] = commandBuffer

	err = o.device.BeginCommandBuffer(commandBuffer)
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "begin frame command buffer")
	}

	err = o.device.CmdImageBarrier(commandBuffer, vkutil.SwapchainAcquireBarrier, frame.Image)
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "record acquire barrier")
	}

	depthBarrier := vkutil.DepthAttachmentBarrier
	if vkutil.HasStencilComponent(target.DepthFormat) {
		depthBarrier.Subresource = vkutil.DepthStencilSubresourceRange
	}
	err = o.device.CmdImageBarrier(commandBuffer, depthBarrier, target.DepthImage)
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "record depth barrier")
	}

	err = o.renderer.Record(commandBuffer, o.syncs.Slot(), frame, target)
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "record frame commands")
	}

	err = o.device.CmdImageBarrier(commandBuffer, vkutil.SwapchainPresentBarrier, frame.Image)
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "record present barrier")
	}

	err = o.device.EndCommandBuffer(commandBuffer)
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "end frame command buffer")
	}

	return commandBuffer, nil
}

// Destroy waits for the device to finish and releases everything the
// orchestrator owns. The swapchain and renderer belong to the caller.
func (o *Orchestrator) Destroy() {
	_ = o.device.WaitIdle()

	targets := o.targets.All()
	for i, target := range targets {
		if target != nil {
			o.factory.DestroyTarget(target)
			targets[i] = nil
		}
	}

	buffers := o.commandBuffers.All()
	for i, commandBuffer := range buffers {
		o.device.FreeCommandBuffer(commandBuffer)
		buffers[i] = core1_0.CommandBuffer{}
	}

	for _, sync := range o.syncs.All() {
		o.device.DestroyFrameSync(sync)
	}
}
