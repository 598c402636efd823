package vulkan

import (
	"time"

	"github.com/Stehsaer/vulkan-rt/vkutil"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

type surfaceQuerier struct {
	extension khr_surface.ExtensionDriver
	surface   khr_surface.Surface
	device    core1_0.PhysicalDevice
	window    *sdl.Window
}

// NewSurfaceQuerier binds the surface extension to one surface and physical
// device so swapchain code can query presentation properties without
// carrying the handles around. window backs the reported extent on surfaces
// that leave the extent to the swapchain; it may be nil when the surface
// always reports a concrete extent.
func NewSurfaceQuerier(extension khr_surface.ExtensionDriver, surface khr_surface.Surface, device core1_0.PhysicalDevice, window *sdl.Window) SurfaceQuerier {
	return surfaceQuerier{
		extension: extension,
		surface:   surface,
		device:    device,
		window:    window,
	}
}

func (q surfaceQuerier) Capabilities() (*khr_surface.SurfaceCapabilities, error) {
	caps, _, err := q.extension.GetPhysicalDeviceSurfaceCapabilities(q.surface, q.device)
	if err != nil {
		return nil, err
	}

	// A -1 extent means the surface takes its size from the swapchain. Use
	// the drawable size, clamped to the supported range.
	if caps.CurrentExtent.Width == -1 && q.window != nil {
		width, height := q.window.VulkanGetDrawableSize()
		caps.CurrentExtent = clampExtent(core1_0.Extent2D{Width: int(width), Height: int(height)},
			caps.MinImageExtent, caps.MaxImageExtent)
	}

	return caps, nil
}

func clampExtent(extent, minExtent, maxExtent core1_0.Extent2D) core1_0.Extent2D {
	if extent.Width < minExtent.Width {
		extent.Width = minExtent.Width
	}
	if extent.Width > maxExtent.Width {
		extent.Width = maxExtent.Width
	}
	if extent.Height < minExtent.Height {
		extent.Height = minExtent.Height
	}
	if extent.Height > maxExtent.Height {
		extent.Height = maxExtent.Height
	}

	return extent
}

func (q surfaceQuerier) Formats() ([]khr_surface.SurfaceFormat, error) {
	formats, _, err := q.extension.GetPhysicalDeviceSurfaceFormats(q.surface, q.device)
	return formats, err
}

func (q surfaceQuerier) PresentModes() ([]khr_surface.PresentMode, error) {
	modes, _, err := q.extension.GetPhysicalDeviceSurfacePresentModes(q.surface, q.device)
	return modes, err
}

type presentEngine struct {
	extension khr_swapchain.ExtensionDriver
	device    core1_0.CoreDeviceDriver
	surface   khr_surface.Surface
}

// NewPresentEngine wraps the swapchain extension driver for one surface.
// Creation infos passed through it get the bound surface injected.
func NewPresentEngine(extension khr_swapchain.ExtensionDriver, device core1_0.CoreDeviceDriver, surface khr_surface.Surface) PresentEngine {
	return presentEngine{
		extension: extension,
		device:    device,
		surface:   surface,
	}
}

func (e presentEngine) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	info.Surface = e.surface
	swapchain, _, err := e.extension.CreateSwapchain(nil, info)
	return swapchain, err
}

func (e presentEngine) DestroySwapchain(swapchain khr_swapchain.Swapchain) {
	e.extension.DestroySwapchain(swapchain, nil)
}

func (e presentEngine) SwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	images, _, err := e.extension.GetSwapchainImages(swapchain)
	return images, err
}

func (e presentEngine) AcquireNextImage(swapchain khr_swapchain.Swapchain, timeout time.Duration, semaphore *core1_0.Semaphore, fence *core1_0.Fence) (int, common.VkResult, error) {
	return e.extension.AcquireNextImage(swapchain, timeout, semaphore, fence)
}

func (e presentEngine) QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) (common.VkResult, error) {
	return e.extension.QueuePresent(queue, info)
}

func (e presentEngine) CreateImageView(image core1_0.Image, format core1_0.Format) (core1_0.ImageView, error) {
	return vkutil.CreateImageView(e.device, image, format, vkutil.ColorSubresourceRange)
}

func (e presentEngine) DestroyImageView(view core1_0.ImageView) {
	e.device.DestroyImageView(view, nil)
}
