package render

import (
	"github.com/Stehsaer/vulkan-rt/vkutil"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Target bundles the per-slot attachments backing one in-flight frame.
// Color comes from the swapchain image acquired for the frame; the depth
// buffer is owned here because the swapchain does not provide one.
type Target struct {
	Extent core1_0.Extent2D

	DepthFormat core1_0.Format
	DepthImage  core1_0.Image
	DepthMemory core1_0.DeviceMemory
	DepthView   core1_0.ImageView
}

// TargetFactory creates and destroys frame targets for a given extent. The
// orchestrator rebuilds all targets through it whenever the swapchain
// extent changes.
type TargetFactory interface {
	CreateTarget(extent core1_0.Extent2D) (*Target, error)
	DestroyTarget(target *Target)
}

// DepthTargetFactory builds targets whose depth attachment lives in device
// local memory, using the first depth format the device supports.
type DepthTargetFactory struct {
	Device core1_0.CoreDeviceDriver
	Alloc  vkutil.Allocator
}

func (f DepthTargetFactory) CreateTarget(extent core1_0.Extent2D) (*Target, error) {
	depthFormat, err := f.Alloc.FindDepthFormat()
	if err != nil {
		return nil, err
	}

	image, memory, err := f.Alloc.CreateImage(extent.Width, extent.Height, depthFormat,
		core1_0.ImageTilingOptimal,
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "create depth image")
	}

	view, err := vkutil.CreateImageView(f.Device, image, depthFormat, vkutil.DepthSubresourceRange)
	if err != nil {
		f.Device.DestroyImage(image, nil)
		f.Device.FreeMemory(memory, nil)
		return nil, errors.Wrap(err, "create depth image view")
	}

	return &Target{
		Extent:      extent,
		DepthFormat: depthFormat,
		DepthImage:  image,
		DepthMemory: memory,
		DepthView:   view,
	}, nil
}

func (f DepthTargetFactory) DestroyTarget(target *Target) {
	if target == nil {
		return
	}

	if target.DepthView.Initialized() {
		f.Device.DestroyImageView(target.DepthView, nil)
	}

	if target.DepthImage.Initialized() {
		f.Device.DestroyImage(target.DepthImage, nil)
	}

	if target.DepthMemory.Initialized() {
		f.Device.FreeMemory(target.DepthMemory, nil)
	}
}
