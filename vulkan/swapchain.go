package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// SurfaceQuerier reports the presentation properties of one surface on one
// physical device. Capabilities are re-queried on every swapchain build
// because the current extent and transform follow the window; formats and
// present modes are stable and only read at construction.
type SurfaceQuerier interface {
	Capabilities() (*khr_surface.SurfaceCapabilities, error)
	Formats() ([]khr_surface.SurfaceFormat, error)
	PresentModes() ([]khr_surface.PresentMode, error)
}

// PresentEngine is the slice of swapchain-extension behavior the lifecycle
// depends on. The production implementation wraps the khr_swapchain driver
// and injects the bound surface into creation; tests substitute simulated
// engines that script VkResult sequences.
type PresentEngine interface {
	CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error)
	DestroySwapchain(swapchain khr_swapchain.Swapchain)
	SwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error)
	AcquireNextImage(swapchain khr_swapchain.Swapchain, timeout time.Duration, semaphore *core1_0.Semaphore, fence *core1_0.Fence) (int, common.VkResult, error)
	QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) (common.VkResult, error)
	CreateImageView(image core1_0.Image, format core1_0.Format) (core1_0.ImageView, error)
	DestroyImageView(view core1_0.ImageView)
}

// SwapchainConfig holds the choices fixed at swapchain construction. Zero
// fields take the documented defaults.
type SwapchainConfig struct {
	// PreferredFormats is tried in order against what the surface offers;
	// when none match, the surface's first format is used. Default prefers
	// BGRA then RGBA, both 8-bit SRGB.
	PreferredFormats []khr_surface.SurfaceFormat

	// PreferredPresentModes is tried in order; FIFO is the fallback since
	// every conforming device offers it. Default prefers mailbox, then
	// relaxed FIFO.
	PreferredPresentModes []khr_surface.PresentMode

	// ImageCount is the requested image count before clamping to the
	// surface's reported bounds. Default 3.
	ImageCount int

	// MaxAcquireAttempts bounds how many times one AcquireNext call may
	// retry after rebuilding an out-of-date swapchain or polling a
	// not-ready image. Default 16.
	MaxAcquireAttempts int
}

func (c *SwapchainConfig) applyDefaults() {
	if len(c.PreferredFormats) == 0 {
		c.PreferredFormats = []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		}
	}
	if len(c.PreferredPresentModes) == 0 {
		c.PreferredPresentModes = []khr_surface.PresentMode{
			khr_surface.PresentModeMailbox,
			khr_surface.PresentModeFIFORelaxed,
		}
	}
	if c.ImageCount == 0 {
		c.ImageCount = 3
	}
	if c.MaxAcquireAttempts == 0 {
		c.MaxAcquireAttempts = 16
	}
}

// Frame is one acquired swapchain image, valid until presented.
type Frame struct {
	// Extent the swapchain was built with.
	Extent core1_0.Extent2D

	// ExtentChanged is set on the first frame acquired from a fresh
	// swapchain build and cleared on subsequent frames, so consumers
	// rebuild extent-sized resources exactly once per build.
	ExtentChanged bool

	// ImageIndex is the presentation engine's index for Image, to be handed
	// back when presenting.
	ImageIndex int

	Image core1_0.Image
	View  core1_0.ImageView
}

type swapchainState int

const (
	stateUninitialized swapchainState = iota
	stateActive
	stateInvalidated
)

// Swapchain drives the swapchain lifecycle: lazy construction on first
// acquire, transparent rebuild after out-of-date or suboptimal results, and
// presentation with soft failures absorbed into the next acquire. It is not
// safe for concurrent use.
type Swapchain struct {
	engine  PresentEngine
	surface SurfaceQuerier

	format      khr_surface.SurfaceFormat
	presentMode khr_surface.PresentMode
	sharingMode core1_0.SharingMode
	families    []int
	imageCount  int
	maxAttempts int

	state         swapchainState
	handle        khr_swapchain.Swapchain
	extent        core1_0.Extent2D
	extentChanged bool
	images        []core1_0.Image
	views         []core1_0.ImageView
}

// NewSwapchain resolves the surface format and present mode once and
// remembers the queue sharing topology. The swapchain itself is built on the
// first AcquireNext, when the surface has a usable extent.
func NewSwapchain(engine PresentEngine, surface SurfaceQuerier, graphicsFamily, presentFamily int, config SwapchainConfig) (*Swapchain, error) {
	config.applyDefaults()

	formats, err := surface.Formats()
	if err != nil {
		return nil, errors.Wrap(err, "query surface formats")
	}
	format, err := chooseSurfaceFormat(formats, config.PreferredFormats)
	if err != nil {
		return nil, err
	}

	modes, err := surface.PresentModes()
	if err != nil {
		return nil, errors.Wrap(err, "query surface present modes")
	}
	presentMode := choosePresentMode(modes, config.PreferredPresentModes)

	sharingMode := core1_0.SharingModeExclusive
	families := []int{graphicsFamily}
	if graphicsFamily != presentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		families = []int{graphicsFamily, presentFamily}
	}

	return &Swapchain{
		engine:      engine,
		surface:     surface,
		format:      format,
		presentMode: presentMode,
		sharingMode: sharingMode,
		families:    families,
		imageCount:  config.ImageCount,
		maxAttempts: config.MaxAcquireAttempts,
	}, nil
}

func chooseSurfaceFormat(available []khr_surface.SurfaceFormat, preferred []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(available) == 0 {
		return khr_surface.SurfaceFormat{}, errors.New("surface reports no formats")
	}

	for _, want := range preferred {
		for _, format := range available {
			if format.Format == want.Format && format.ColorSpace == want.ColorSpace {
				return format, nil
			}
		}
	}

	return available[0], nil
}

func choosePresentMode(available []khr_surface.PresentMode, preferred []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, want := range preferred {
		for _, mode := range available {
			if mode == want {
				return mode
			}
		}
	}

	return khr_surface.PresentModeFIFO
}

// Format returns the surface format resolved at construction. It never
// changes over the swapchain's lifetime.
func (s *Swapchain) Format() khr_surface.SurfaceFormat {
	return s.format
}

// PresentMode returns the present mode resolved at construction.
func (s *Swapchain) PresentMode() khr_surface.PresentMode {
	return s.presentMode
}

// AcquireNext hands out the next presentable frame. Out-of-date and
// suboptimal results never surface as errors: the swapchain is rebuilt and
// the acquire retried. Not-ready and timeout results retry the acquire
// against the same swapchain. Retries are bounded; exhausting the budget is
// an error since it means the presentation engine is starving the caller.
//
// ok is false, with no error, when the surface currently has a zero extent
// (a minimized window); the caller should skip the frame.
func (s *Swapchain) AcquireNext(timeout time.Duration, semaphore *core1_0.Semaphore, fence *core1_0.Fence) (frame Frame, ok bool, err error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		ready, err := s.checkAndRecreate()
		if err != nil {
			return Frame{}, false, err
		}
		if !ready {
			return Frame{}, false, nil
		}

		imageIndex, res, err := s.engine.AcquireNextImage(s.handle, timeout, semaphore, fence)
		if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
			// Suboptimal at acquire is rebuilt immediately rather than
			// rendered: the image would be stretched to a surface it no
			// longer matches.
			s.invalidate()
			continue
		} else if res == core1_0.VKTimeout || res == core1_0.VKNotReady {
			continue
		} else if err != nil {
			return Frame{}, false, errors.Wrap(err, "acquire next swapchain image")
		}

		frame := Frame{
			Extent:        s.extent,
			ExtentChanged: s.extentChanged,
			ImageIndex:    imageIndex,
			Image:         s.images[imageIndex],
			View:          s.views[imageIndex],
		}
		s.extentChanged = false
		return frame, true, nil
	}

	return Frame{}, false, errors.Newf("no swapchain image became available in %d attempts", s.maxAttempts)
}

// Present queues frame for presentation, waiting on the given semaphores.
// An out-of-date or suboptimal result is absorbed: the swapchain is marked
// for rebuild on the next acquire and Present reports success, since the
// frame's work was valid. Presenting without an active swapchain is an
// error.
func (s *Swapchain) Present(queue core1_0.Queue, frame Frame, waitSemaphores ...core1_0.Semaphore) error {
	if s.state != stateActive {
		return errors.New("present failed: swapchain is not in a valid state")
	}

	res, err := s.engine.QueuePresent(queue, khr_swapchain.PresentInfo{
		WaitSemaphores: waitSemaphores,
		Swapchains:     []khr_swapchain.Swapchain{s.handle},
		ImageIndices:   []int{frame.ImageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		s.invalidate()
		return nil
	} else if err != nil {
		return errors.Wrap(err, "present swapchain image")
	}

	return nil
}

// checkAndRecreate builds the swapchain when the current one is missing or
// invalidated. ready is false when the surface extent is unusable.
func (s *Swapchain) checkAndRecreate() (ready bool, err error) {
	if s.state == stateActive {
		return true, nil
	}

	caps, err := s.surface.Capabilities()
	if err != nil {
		return false, errors.Wrap(err, "query surface capabilities")
	}

	extent := caps.CurrentExtent
	if extent.Width <= 0 || extent.Height <= 0 {
		return false, nil
	}

	imageCount := s.imageCount
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	var oldSwapchain khr_swapchain.Swapchain
	if s.state == stateInvalidated {
		oldSwapchain = s.handle
	}

	swapchain, err := s.engine.CreateSwapchain(khr_swapchain.SwapchainCreateInfo{
		MinImageCount:    imageCount,
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   s.sharingMode,
		QueueFamilyIndices: s.families,

		PreTransform:   caps.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    s.presentMode,
		Clipped:        true,

		OldSwapchain: oldSwapchain,
	})
	if err != nil {
		return false, errors.Wrap(err, "create swapchain")
	}

	// The stale swapchain has served as OldSwapchain and can go now.
	if s.state == stateInvalidated {
		s.engine.DestroySwapchain(s.handle)
	}

	images, err := s.engine.SwapchainImages(swapchain)
	if err != nil {
		s.engine.DestroySwapchain(swapchain)
		s.state = stateUninitialized
		return false, errors.Wrap(err, "get swapchain images")
	}

	views := make([]core1_0.ImageView, 0, len(images))
	for _, image := range images {
		view, err := s.engine.CreateImageView(image, s.format.Format)
		if err != nil {
			for _, created := range views {
				s.engine.DestroyImageView(created)
			}
			s.engine.DestroySwapchain(swapchain)
			s.state = stateUninitialized
			return false, errors.Wrap(err, "create swapchain image view")
		}
		views = append(views, view)
	}

	s.handle = swapchain
	s.images = images
	s.views = views
	s.extent = extent
	s.extentChanged = true
	s.state = stateActive
	return true, nil
}

// invalidate retires the active swapchain, keeping only the bare handle so
// the next build can chain it as OldSwapchain.
func (s *Swapchain) invalidate() {
	for _, view := range s.views {
		s.engine.DestroyImageView(view)
	}
	s.views = nil
	s.images = nil
	s.state = stateInvalidated
}

// Destroy releases everything the swapchain owns. The caller must ensure the
// device is idle first.
func (s *Swapchain) Destroy() {
	for _, view := range s.views {
		s.engine.DestroyImageView(view)
	}
	s.views = nil
	s.images = nil

	if s.state != stateUninitialized {
		s.engine.DestroySwapchain(s.handle)
	}
	s.state = stateUninitialized
}
