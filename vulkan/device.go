package vulkan

import (
	"github.com/Stehsaer/vulkan-rt/vkutil"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

// QueueFamilyIndices collects the queue families a device must provide
// before it can drive a window.
type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// DeviceContext owns the physical device choice, the logical device and the
// graphics and present queues. It is built on top of an InstanceContext and
// does not outlive it.
type DeviceContext struct {
	PhysicalDevice core1_0.PhysicalDevice
	DeviceDriver   core1_0.CoreDeviceDriver

	GraphicsFamily int
	PresentFamily  int

	GraphicsQueue core1_0.Queue
	PresentQueue  core1_0.Queue

	SwapchainExtension khr_swapchain.ExtensionDriver

	instance *InstanceContext
}

// NewDeviceContext picks the first suitable physical device, creates the
// logical device with the swapchain extension enabled and retrieves the
// graphics and present queues.
func NewDeviceContext(instance *InstanceContext) (*DeviceContext, error) {
	c := &DeviceContext{instance: instance}

	err := c.pickPhysicalDevice()
	if err != nil {
		return nil, err
	}

	err = c.createLogicalDevice()
	if err != nil {
		return nil, err
	}

	c.SwapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(c.DeviceDriver)
	return c, nil
}

func (c *DeviceContext) pickPhysicalDevice() error {
	physicalDevices, _, err := c.instance.InstanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	for _, device := range physicalDevices {
		if c.isDeviceSuitable(device) {
			c.PhysicalDevice = device
			break
		}
	}

	if !c.PhysicalDevice.Initialized() {
		return errors.New("failed to find a suitable GPU!")
	}

	return nil
}

func (c *DeviceContext) isDeviceSuitable(device core1_0.PhysicalDevice) bool {
	indices, err := c.findQueueFamilies(device)
	if err != nil {
		return false
	}

	extensionsSupported := c.checkDeviceExtensionSupport(device)

	var swapchainAdequate bool
	if extensionsSupported {
		querier := NewSurfaceQuerier(c.instance.SurfaceExtension, c.instance.Surface, device, c.instance.Window)

		formats, err := querier.Formats()
		if err != nil {
			return false
		}

		presentModes, err := querier.PresentModes()
		if err != nil {
			return false
		}

		swapchainAdequate = len(formats) > 0 && len(presentModes) > 0
	}

	features := c.instance.InstanceDriver.GetPhysicalDeviceFeatures(device)
	return indices.IsComplete() && extensionsSupported && swapchainAdequate && features.SamplerAnisotropy
}

func (c *DeviceContext) checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := c.instance.InstanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (c *DeviceContext) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	queueFamilies := c.instance.InstanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		supported, _, err := c.instance.SurfaceExtension.GetPhysicalDeviceSurfaceSupport(c.instance.Surface, device, queueFamilyIdx)
		if err != nil {
			return indices, errors.Wrap(err, "query surface support")
		}

		if supported {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

func (c *DeviceContext) createLogicalDevice() error {
	indices, err := c.findQueueFamilies(c.PhysicalDevice)
	if err != nil {
		return err
	}

	uniqueQueueFamilies := []int{*indices.GraphicsFamily}
	if uniqueQueueFamilies[0] != *indices.PresentFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, *indices.PresentFamily)
	}

	var queueOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueOptions = append(queueOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	enabledExtensions := deviceExtensions

	extensions, _, err := c.instance.InstanceDriver.EnumerateDeviceExtensionProperties(c.PhysicalDevice)
	if err != nil {
		return errors.Wrap(err, "enumerate device extensions")
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		enabledExtensions = append(enabledExtensions, khr_portability_subset.ExtensionName)
	}

	c.DeviceDriver, _, err = c.instance.InstanceDriver.CreateDevice(c.PhysicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: enabledExtensions,
	})
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}

	c.GraphicsFamily = *indices.GraphicsFamily
	c.PresentFamily = *indices.PresentFamily
	c.GraphicsQueue = c.DeviceDriver.GetQueue(c.GraphicsFamily, 0)
	c.PresentQueue = c.DeviceDriver.GetQueue(c.PresentFamily, 0)

	return nil
}

// Allocator returns a memory allocator bound to this device.
func (c *DeviceContext) Allocator() vkutil.Allocator {
	return vkutil.Allocator{
		Device:         c.DeviceDriver,
		Instance:       c.instance.InstanceDriver,
		PhysicalDevice: c.PhysicalDevice,
	}
}

// SurfaceQuerier returns a querier for the window surface against the
// chosen physical device.
func (c *DeviceContext) SurfaceQuerier() SurfaceQuerier {
	return NewSurfaceQuerier(c.instance.SurfaceExtension, c.instance.Surface, c.PhysicalDevice, c.instance.Window)
}

// PresentEngine returns the presentation engine used to build swapchains
// for the window surface.
func (c *DeviceContext) PresentEngine() PresentEngine {
	return NewPresentEngine(c.SwapchainExtension, c.DeviceDriver, c.instance.Surface)
}

// WaitIdle blocks until the device finishes all submitted work.
func (c *DeviceContext) WaitIdle() error {
	_, err := c.DeviceDriver.DeviceWaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle")
	}

	return nil
}

// Destroy releases the logical device. The physical device handle and the
// parent instance are left untouched.
func (c *DeviceContext) Destroy() {
	if c.DeviceDriver != nil {
		c.DeviceDriver.DestroyDevice(nil)
		c.DeviceDriver = nil
	}
}
