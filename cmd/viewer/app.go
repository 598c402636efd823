package main

import (
	"math"
	"time"

	"github.com/Stehsaer/vulkan-rt/render"
	"github.com/Stehsaer/vulkan-rt/scene"
	"github.com/Stehsaer/vulkan-rt/vulkan"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/sync/errgroup"
)

// viewFollowRate controls how quickly the displayed camera catches up with
// the input-driven target view. Higher is snappier.
const viewFollowRate = 20.0

type appConfig struct {
	modelPath   string
	texturePath string

	vertexShaderPath   string
	fragmentShaderPath string
	cachePath          string

	validation bool
}

// App owns the window, the rendering context and the frame loop state.
type App struct {
	config appConfig

	ctx          *vulkan.Context
	frameDevice  *render.CoreFrameDevice
	renderer     *modelRenderer
	orchestrator *render.Orchestrator

	// targetView follows the mouse immediately; currentView eases toward
	// it every frame so the motion on screen stays smooth.
	targetView  scene.CenterView
	currentView scene.CenterView
	projection  scene.PerspectiveProjection

	lastFrameTime time.Duration

	rotating bool
	panning  bool
}

func newApp(config appConfig) (*App, error) {
	var model *Model
	var texture *Texture

	// Decoding the assets does not need the device, so it overlaps with
	// nothing and parallelizes trivially.
	var group errgroup.Group
	group.Go(func() error {
		var err error
		model, err = loadModel(config.modelPath)
		return err
	})
	group.Go(func() error {
		var err error
		texture, err = loadTexture(config.texturePath)
		return err
	})
	err := group.Wait()
	if err != nil {
		return nil, err
	}

	ctx, err := vulkan.NewContext(vulkan.ContextConfig{
		Instance: vulkan.InstanceConfig{
			Title:            "Model Viewer",
			EnableValidation: config.validation,
		},
	})
	if err != nil {
		return nil, err
	}

	frameDevice, err := render.NewFrameDevice(ctx.Device.DeviceDriver, ctx.Device.GraphicsFamily)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}

	properties, err := ctx.Instance.InstanceDriver.GetPhysicalDeviceProperties(ctx.Device.PhysicalDevice)
	if err != nil {
		frameDevice.Destroy()
		ctx.Destroy()
		return nil, err
	}

	renderer, err := newModelRenderer(ctx.Device, rendererConfig{
		ColorFormat: ctx.Swapchain.Format().Format,
		Slots:       render.DefaultFramesInFlight,

		Model:   model,
		Texture: texture,

		Properties: properties,

		VertexShaderPath:   config.vertexShaderPath,
		FragmentShaderPath: config.fragmentShaderPath,
		CachePath:          config.cachePath,
	})
	if err != nil {
		frameDevice.Destroy()
		ctx.Destroy()
		return nil, err
	}

	orchestrator, err := render.New(render.Options{
		Device:    frameDevice,
		Swapchain: ctx.Swapchain,
		Targets: render.DepthTargetFactory{
			Device: ctx.Device.DeviceDriver,
			Alloc:  ctx.Device.Allocator(),
		},
		Renderer: renderer,

		GraphicsQueue: ctx.Device.GraphicsQueue,
		PresentQueue:  ctx.Device.PresentQueue,
	})
	if err != nil {
		renderer.Destroy()
		frameDevice.Destroy()
		ctx.Destroy()
		return nil, err
	}

	return &App{
		config: config,

		ctx:          ctx,
		frameDevice:  frameDevice,
		renderer:     renderer,
		orchestrator: orchestrator,

		targetView:  scene.NewCenterView(),
		currentView: scene.NewCenterView(),
		projection:  scene.NewPerspectiveProjection(),

		lastFrameTime: hrtime.Now(),
	}, nil
}

// run pumps SDL events and renders until the window closes.
func (app *App) run() error {
	rendering := true

appLoop:
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					rendering = true
				}
			case *sdl.MouseButtonEvent:
				app.handleMouseButton(e)
			case *sdl.MouseMotionEvent:
				app.handleMouseMotion(e)
			case *sdl.MouseWheelEvent:
				app.targetView.Zoom(float64(e.Y))
			}
		}

		if rendering {
			err := app.drawFrame()
			if err != nil {
				return err
			}
		} else {
			time.Sleep(100 * time.Millisecond)
		}
	}

	return app.ctx.Device.WaitIdle()
}

func (app *App) handleMouseButton(e *sdl.MouseButtonEvent) {
	pressed := e.State == sdl.PRESSED
	switch e.Button {
	case sdl.BUTTON_RIGHT:
		app.rotating = pressed
	case sdl.BUTTON_LEFT:
		app.panning = pressed
	}
}

// handleMouseMotion feeds drag deltas to the target view. Deltas are
// normalized by the window size so the feel does not depend on resolution;
// the pan x axis is mirrored so the scene follows the cursor.
func (app *App) handleMouseMotion(e *sdl.MouseMotionEvent) {
	width, height := app.ctx.Instance.Window.GetSize()
	if width <= 0 || height <= 0 {
		return
	}

	dx := float64(e.XRel) / float64(width)
	dy := float64(e.YRel) / float64(height)

	if app.rotating {
		app.targetView.Rotate(dx, dy)
	}
	if app.panning {
		app.targetView.Pan(-dx, dy, float64(width)/float64(height))
	}
}

func (app *App) drawFrame() error {
	now := hrtime.Now()
	delta := (now - app.lastFrameTime).Seconds()
	app.lastFrameTime = now

	// Exponential ease toward the target keeps the catch-up speed frame
	// rate independent.
	blend := 1 - math.Exp2(-delta*viewFollowRate)
	app.currentView = app.currentView.Mix(app.targetView, blend)
	app.renderer.SetScene(app.currentView, app.projection)

	rendered, err := app.orchestrator.RenderFrame()
	if err != nil {
		return err
	}
	if !rendered {
		// Nothing to draw, typically a zero-sized window mid-resize.
		time.Sleep(10 * time.Millisecond)
	}

	return nil
}

// Destroy tears the application down in reverse construction order. The
// orchestrator waits the device idle first, which makes it safe for the
// renderer to destroy resources and persist its pipeline cache.
func (app *App) Destroy() {
	if app.orchestrator != nil {
		app.orchestrator.Destroy()
		app.orchestrator = nil
	}
	if app.renderer != nil {
		app.renderer.Destroy()
		app.renderer = nil
	}
	if app.frameDevice != nil {
		app.frameDevice.Destroy()
		app.frameDevice = nil
	}
	if app.ctx != nil {
		app.ctx.Destroy()
		app.ctx = nil
	}
}
