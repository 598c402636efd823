package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// OverlayBackend is the rendering side of an overlay such as a debug UI.
// NewFrame starts a frame sized to the current swapchain extent, Render
// finalizes the frame's draw data and Draw records it into a command buffer.
type OverlayBackend interface {
	NewFrame(extent core1_0.Extent2D) error
	Render() error
	Draw(commandBuffer core1_0.CommandBuffer) error
}

type overlayState int

const (
	overlayIdle overlayState = iota
	overlayLogic
	overlayComplete
)

// OverlayDriver enforces the overlay frame protocol: NewFrame, then Render,
// then Draw, in that order, once per frame. Calls out of order fail without
// reaching the backend, so a half-built frame never hits the GPU.
type OverlayDriver struct {
	backend OverlayBackend
	state   overlayState
}

func NewOverlayDriver(backend OverlayBackend) *OverlayDriver {
	return &OverlayDriver{backend: backend}
}

// NewFrame begins the overlay frame. The previous frame must have been
// drawn or discarded.
func (d *OverlayDriver) NewFrame(extent core1_0.Extent2D) error {
	if d.state != overlayIdle {
		return errors.New("begin overlay frame: previous frame not yet drawn")
	}

	err := d.backend.NewFrame(extent)
	if err != nil {
		return errors.Wrap(err, "begin overlay frame")
	}

	d.state = overlayLogic
	return nil
}

// Render finalizes the overlay draw data for the frame begun by NewFrame.
func (d *OverlayDriver) Render() error {
	if d.state != overlayLogic {
		return errors.New("render overlay: no frame in progress")
	}

	err := d.backend.Render()
	if err != nil {
		return errors.Wrap(err, "render overlay")
	}

	d.state = overlayComplete
	return nil
}

// Draw records the rendered overlay into the command buffer and completes
// the frame.
func (d *OverlayDriver) Draw(commandBuffer core1_0.CommandBuffer) error {
	if d.state != overlayComplete {
		return errors.New("draw overlay: frame not rendered")
	}

	err := d.backend.Draw(commandBuffer)
	if err != nil {
		return errors.Wrap(err, "draw overlay")
	}

	d.state = overlayIdle
	return nil
}

// Discard abandons the current frame, if any, returning the driver to the
// idle state. Used when a frame is skipped after overlay logic already ran,
// for example while the window is minimized.
func (d *OverlayDriver) Discard() {
	d.state = overlayIdle
}
