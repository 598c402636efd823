package vulkan

import (
	"log"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	core "github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// InstanceConfig configures the window and instance. Zero fields take the
// documented defaults.
type InstanceConfig struct {
	// Title is the window title. Default "Vulkan Window".
	Title string

	// Width and Height are the initial window size. Default 800x600.
	Width  int
	Height int

	// FixedSize suppresses the resizable window flag.
	FixedSize bool

	// AppName is reported to the driver. Defaults to Title.
	AppName string

	// EngineName is reported to the driver. Default "No Engine".
	EngineName string

	// EnableValidation turns on the Khronos validation layer and routes
	// debug messenger output through the standard logger.
	EnableValidation bool
}

func (c *InstanceConfig) applyDefaults() {
	if c.Title == "" {
		c.Title = "Vulkan Window"
	}
	if c.Width == 0 {
		c.Width = 800
	}
	if c.Height == 0 {
		c.Height = 600
	}
	if c.AppName == "" {
		c.AppName = c.Title
	}
	if c.EngineName == "" {
		c.EngineName = "No Engine"
	}
}

// InstanceContext owns the SDL window, the Vulkan instance and the surface
// bridging the two. It is the first rung of the context ladder; everything
// device-side builds on top of it.
type InstanceContext struct {
	Window *sdl.Window

	GlobalDriver   core1_0.GlobalDriver
	InstanceDriver core1_0.CoreInstanceDriver

	SurfaceExtension khr_surface.ExtensionDriver
	Surface          khr_surface.Surface

	debugDriver    ext_debug_utils.ExtensionDriver
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	validation     bool
}

// NewInstanceContext initializes SDL video, opens the window, loads the
// Vulkan driver through SDL's loader and creates the instance, debug
// messenger and surface. On error everything built so far is torn down.
func NewInstanceContext(config InstanceConfig) (*InstanceContext, error) {
	config.applyDefaults()

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "initialize SDL")
	}

	c := &InstanceContext{validation: config.EnableValidation}

	windowFlags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if !config.FixedSize {
		windowFlags |= sdl.WINDOW_RESIZABLE
	}

	window, err := sdl.CreateWindow(config.Title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(config.Width), int32(config.Height), windowFlags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}
	c.Window = window

	c.GlobalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		c.Destroy()
		return nil, errors.Wrap(err, "load vulkan driver")
	}

	err = c.createInstance(config)
	if err != nil {
		c.Destroy()
		return nil, err
	}

	err = c.setupDebugMessenger()
	if err != nil {
		c.Destroy()
		return nil, err
	}

	err = c.createSurface()
	if err != nil {
		c.Destroy()
		return nil, err
	}

	return c, nil
}

func (c *InstanceContext) createInstance(config InstanceConfig) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    config.AppName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         config.EngineName,
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := c.Window.VulkanGetInstanceExtensions()
	extensions, _, err := c.GlobalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range sdlExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("window system requires unavailable instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if c.validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	layers, _, err := c.GlobalDriver.AvailableLayers()
	if err != nil {
		return errors.Wrap(err, "enumerate instance layers")
	}

	if c.validation {
		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Newf("validation layer %s is not available, install the LunarG Vulkan SDK", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		// Covers instance creation and destruction, which the messenger
		// created afterwards cannot see.
		instanceOptions.Next = debugMessengerOptions()
	}

	c.InstanceDriver, _, err = c.GlobalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "create vulkan instance")
	}

	return nil
}

func debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}
}

func logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	log.Printf("[%s %s] - %s", severity, msgType, data.Message)
	return false
}

func (c *InstanceContext) setupDebugMessenger() error {
	if !c.validation {
		return nil
	}

	var err error
	c.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(c.InstanceDriver)
	c.debugMessenger, _, err = c.debugDriver.CreateDebugUtilsMessenger(nil, debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "create debug messenger")
	}

	return nil
}

func (c *InstanceContext) createSurface() error {
	c.SurfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(c.InstanceDriver)
	surface, err := vkng_sdl2.CreateSurface(c.InstanceDriver.Instance(), c.SurfaceExtension, c.Window)
	if err != nil {
		return errors.Wrap(err, "create window surface")
	}

	c.Surface = surface
	return nil
}

// Minimized reports whether the window is currently minimized.
func (c *InstanceContext) Minimized() bool {
	return c.Window != nil && c.Window.GetFlags()&sdl.WINDOW_MINIMIZED != 0
}

// Destroy tears the context down in reverse creation order. Safe to call on
// a partially built context.
func (c *InstanceContext) Destroy() {
	if c.Surface.Initialized() {
		c.SurfaceExtension.DestroySurface(c.Surface, nil)
		c.Surface = khr_surface.Surface{}
	}

	if c.debugMessenger.Initialized() {
		c.debugDriver.DestroyDebugUtilsMessenger(c.debugMessenger, nil)
		c.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if c.InstanceDriver != nil {
		c.InstanceDriver.DestroyInstance(nil)
		c.InstanceDriver = nil
	}

	if c.Window != nil {
		c.Window.Destroy()
		c.Window = nil
	}

	sdl.Quit()
}
