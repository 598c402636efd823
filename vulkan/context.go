package vulkan

// ContextConfig bundles the options for every layer of the context ladder.
type ContextConfig struct {
	Instance  InstanceConfig
	Swapchain SwapchainConfig
}

// Context assembles the full rendering context: window and instance, logical
// device and queues, and the swapchain serving the window surface. Callers
// that need finer control can build the layers individually instead.
type Context struct {
	Instance  *InstanceContext
	Device    *DeviceContext
	Swapchain *Swapchain
}

// NewContext builds the context ladder bottom-up. On error every layer
// built so far is destroyed.
func NewContext(config ContextConfig) (*Context, error) {
	instance, err := NewInstanceContext(config.Instance)
	if err != nil {
		return nil, err
	}

	device, err := NewDeviceContext(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}

	swapchain, err := NewSwapchain(device.PresentEngine(), device.SurfaceQuerier(),
		device.GraphicsFamily, device.PresentFamily, config.Swapchain)
	if err != nil {
		device.Destroy()
		instance.Destroy()
		return nil, err
	}

	return &Context{
		Instance:  instance,
		Device:    device,
		Swapchain: swapchain,
	}, nil
}

// Destroy waits for the device to go idle and tears the layers down in
// reverse creation order.
func (c *Context) Destroy() {
	if c.Device != nil {
		_ = c.Device.WaitIdle()
	}

	if c.Swapchain != nil {
		c.Swapchain.Destroy()
		c.Swapchain = nil
	}

	if c.Device != nil {
		c.Device.Destroy()
		c.Device = nil
	}

	if c.Instance != nil {
		c.Instance.Destroy()
		c.Instance = nil
	}
}
