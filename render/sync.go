package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// FrameSync carries the synchronization objects for one in-flight frame
// slot. The same triple travels through the cycle together, so a frame's
// acquire, submit and present always use objects retired by that slot's
// previous pass.
type FrameSync struct {
	// ImageAvailable is signaled by the presentation engine once the
	// acquired image may be written.
	ImageAvailable core1_0.Semaphore

	// RenderFinished is signaled when the frame's commands complete and
	// gates presentation.
	RenderFinished core1_0.Semaphore

	// DrawFence is signaled when the frame's submission retires. It starts
	// signaled so the first pass through a fresh slot does not block.
	DrawFence core1_0.Fence
}

// NewFrameSync creates the synchronization set for one frame slot.
func NewFrameSync(device core1_0.CoreDeviceDriver) (FrameSync, error) {
	var sync FrameSync
	var err error

	sync.ImageAvailable, _, err = device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return FrameSync{}, errors.Wrap(err, "create image-available semaphore")
	}

	sync.RenderFinished, _, err = device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		sync.Destroy(device)
		return FrameSync{}, errors.Wrap(err, "create render-finished semaphore")
	}

	sync.DrawFence, _, err = device.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: core1_0.FenceCreateSignaled,
	})
	if err != nil {
		sync.Destroy(device)
		return FrameSync{}, errors.Wrap(err, "create draw fence")
	}

	return sync, nil
}

// Destroy releases the synchronization objects. Safe on a partially built
// set.
func (s FrameSync) Destroy(device core1_0.CoreDeviceDriver) {
	if s.ImageAvailable.Initialized() {
		device.DestroySemaphore(s.ImageAvailable, nil)
	}

	if s.RenderFinished.Initialized() {
		device.DestroySemaphore(s.RenderFinished, nil)
	}

	if s.DrawFence.Initialized() {
		device.DestroyFence(s.DrawFence, nil)
	}
}
