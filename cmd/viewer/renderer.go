package main

import (
	"encoding/binary"
	"log"
	"os"
	"unsafe"

	"github.com/Stehsaer/vulkan-rt/render"
	"github.com/Stehsaer/vulkan-rt/scene"
	"github.com/Stehsaer/vulkan-rt/vkutil"
	"github.com/Stehsaer/vulkan-rt/vulkan"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// sceneUniform is the per-frame shader uniform block. Field order matches
// the std140 layout in shaders/shader.vert.
type sceneUniform struct {
	Model          mgl32.Mat4
	ViewProjection mgl32.Mat4
}

func mat4ToFloat32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

func loadShaderCode(path string) ([]uint32, error) {
	shaderBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}
	if len(shaderBytes) == 0 || len(shaderBytes)%4 != 0 {
		return nil, errors.Newf("shader %s is not SPIR-V bytecode", path)
	}

	return bytesToBytecode(shaderBytes), nil
}

// rendererConfig carries everything the renderer pins at construction.
type rendererConfig struct {
	ColorFormat core1_0.Format
	Slots       int

	Model   *Model
	Texture *Texture

	Properties *core1_0.PhysicalDeviceProperties

	VertexShaderPath   string
	FragmentShaderPath string
	CachePath          string
}

// modelRenderer draws a single textured model. It owns the render pass,
// pipeline and descriptor plumbing and implements render.Renderer: the
// orchestrator calls Resize with the device idle whenever the frame
// targets were rebuilt, then Record once per frame between the attachment
// barriers.
type modelRenderer struct {
	driver core1_0.CoreDeviceDriver
	alloc  vkutil.Allocator

	view       scene.CenterView
	projection scene.PerspectiveProjection

	renderPass  core1_0.RenderPass
	depthFormat core1_0.Format
	colorFormat core1_0.Format

	descriptorSetLayout core1_0.DescriptorSetLayout
	descriptorPool      core1_0.DescriptorPool
	descriptorSets      []core1_0.DescriptorSet

	pipelineLayout core1_0.PipelineLayout
	pipeline       core1_0.Pipeline
	cacheFile      *pipelineCacheFile
	vertexShader   []uint32
	fragmentShader []uint32

	vertexBuffer       core1_0.Buffer
	vertexBufferMemory core1_0.DeviceMemory
	indexBuffer        core1_0.Buffer
	indexBufferMemory  core1_0.DeviceMemory
	indexCount         int

	textureImage       core1_0.Image
	textureImageMemory core1_0.DeviceMemory
	textureImageView   core1_0.ImageView
	textureSampler     core1_0.Sampler

	uniformBuffers       []core1_0.Buffer
	uniformBuffersMemory []core1_0.DeviceMemory

	// framebuffers are recycled per slot in Record: by the time a slot
	// comes around again its fence has been waited, so the framebuffer it
	// held is free to destroy even though newer frames are still in flight.
	framebuffers []core1_0.Framebuffer

	extent core1_0.Extent2D
}

func newModelRenderer(device *vulkan.DeviceContext, config rendererConfig) (*modelRenderer, error) {
	r := &modelRenderer{
		driver:      device.DeviceDriver,
		alloc:       device.Allocator(),
		colorFormat: config.ColorFormat,
		view:        scene.NewCenterView(),
		projection:  scene.NewPerspectiveProjection(),
	}

	success := false
	defer func() {
		if !success {
			r.Destroy()
		}
	}()

	var err error
	r.vertexShader, err = loadShaderCode(config.VertexShaderPath)
	if err != nil {
		return nil, err
	}
	r.fragmentShader, err = loadShaderCode(config.FragmentShaderPath)
	if err != nil {
		return nil, err
	}

	r.cacheFile, err = openPipelineCache(r.driver, config.Properties, config.CachePath)
	if err != nil {
		return nil, err
	}

	err = r.createRenderPass()
	if err != nil {
		return nil, err
	}

	err = r.createDescriptorSetLayout()
	if err != nil {
		return nil, err
	}

	r.pipelineLayout, _, err = r.driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			r.descriptorSetLayout,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}

	err = r.uploadModel(device, config.Model, config.Texture)
	if err != nil {
		return nil, err
	}

	err = r.createSampler(config.Properties)
	if err != nil {
		return nil, err
	}

	err = r.createUniformBuffers(config.Slots)
	if err != nil {
		return nil, err
	}

	err = r.createDescriptorSets(config.Slots)
	if err != nil {
		return nil, err
	}

	r.framebuffers = make([]core1_0.Framebuffer, config.Slots)

	success = true
	return r, nil
}

// createRenderPass builds the single-subpass pass drawing into the
// swapchain image with a depth attachment. Layout transitions around the
// pass are recorded by the orchestrator, so both attachments enter and
// leave in their attachment layouts.
func (r *modelRenderer) createRenderPass() error {
	depthFormat, err := r.alloc.FindDepthFormat()
	if err != nil {
		return err
	}
	r.depthFormat = depthFormat

	renderPass, _, err := r.driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         r.colorFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutColorAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			{
				Format:         depthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}

	r.renderPass = renderPass
	return nil
}

func (r *modelRenderer) createDescriptorSetLayout() error {
	var err error
	r.descriptorSetLayout, _, err = r.driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor set layout")
	}

	return nil
}

// uploadModel creates the device local vertex, index and texture resources
// and fills them in one batched submission.
func (r *modelRenderer) uploadModel(device *vulkan.DeviceContext, model *Model, texture *Texture) error {
	var err error
	r.vertexBuffer, r.vertexBufferMemory, err = r.alloc.CreateBuffer(binary.Size(model.Vertices),
		core1_0.BufferUsageTransferDst|core1_0.BufferUsageVertexBuffer,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return errors.Wrap(err, "create vertex buffer")
	}

	r.indexBuffer, r.indexBufferMemory, err = r.alloc.CreateBuffer(binary.Size(model.Indices),
		core1_0.BufferUsageTransferDst|core1_0.BufferUsageIndexBuffer,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return errors.Wrap(err, "create index buffer")
	}
	r.indexCount = len(model.Indices)

	r.textureImage, r.textureImageMemory, err = r.alloc.CreateImage(texture.Width, texture.Height,
		core1_0.FormatR8G8B8A8SRGB,
		core1_0.ImageTilingOptimal,
		core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return errors.Wrap(err, "create texture image")
	}

	uploader := vkutil.NewUploader(vkutil.NewUploadDevice(r.alloc), device.GraphicsQueue, device.GraphicsFamily)

	err = uploader.QueueBuffer(r.vertexBuffer, model.Vertices)
	if err != nil {
		return err
	}
	err = uploader.QueueBuffer(r.indexBuffer, model.Indices)
	if err != nil {
		return err
	}
	err = uploader.QueueImage(r.textureImage, texture.Pixels, texture.Width, texture.Height,
		core1_0.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		return err
	}

	err = uploader.Execute()
	if err != nil {
		return err
	}

	r.textureImageView, err = vkutil.CreateImageView(r.driver, r.textureImage,
		core1_0.FormatR8G8B8A8SRGB, vkutil.ColorSubresourceRange)
	return err
}

func (r *modelRenderer) createSampler(properties *core1_0.PhysicalDeviceProperties) error {
	var err error
	r.textureSampler, _, err = r.driver.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: true,
		MaxAnisotropy:    properties.Limits.MaxSamplerAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     1,
	})
	if err != nil {
		return errors.Wrap(err, "create texture sampler")
	}

	return nil
}

func (r *modelRenderer) createUniformBuffers(slots int) error {
	bufferSize := int(unsafe.Sizeof(sceneUniform{}))

	for i := 0; i < slots; i++ {
		buffer, memory, err := r.alloc.CreateBuffer(bufferSize,
			core1_0.BufferUsageUniformBuffer,
			core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return errors.Wrapf(err, "create uniform buffer for frame slot %d", i)
		}

		r.uniformBuffers = append(r.uniformBuffers, buffer)
		r.uniformBuffersMemory = append(r.uniformBuffersMemory, memory)
	}

	return nil
}

func (r *modelRenderer) createDescriptorSets(slots int) error {
	var err error
	r.descriptorPool, _, err = r.driver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: slots,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: slots,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: slots,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}

	var allocLayouts []core1_0.DescriptorSetLayout
	for i := 0; i < slots; i++ {
		allocLayouts = append(allocLayouts, r.descriptorSetLayout)
	}

	r.descriptorSets, _, err = r.driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: r.descriptorPool,
		SetLayouts:     allocLayouts,
	})
	if err != nil {
		return errors.Wrap(err, "allocate descriptor sets")
	}

	for i := 0; i < slots; i++ {
		err = r.driver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          r.descriptorSets[i],
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: r.uniformBuffers[i],
						Offset: 0,
						Range:  int(unsafe.Sizeof(sceneUniform{})),
					},
				},
			},
			{
				DstSet:          r.descriptorSets[i],
				DstBinding:      1,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   r.textureImageView,
						Sampler:     r.textureSampler,
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			return errors.Wrapf(err, "write descriptor set for frame slot %d", i)
		}
	}

	return nil
}

// buildPipeline rebuilds the graphics pipeline for the current extent. The
// viewport is baked in, so every extent change comes through here; the
// pipeline cache keeps the rebuild cheap after the first run.
func (r *modelRenderer) buildPipeline() error {
	vertShader, _, err := r.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: r.vertexShader,
	})
	if err != nil {
		return errors.Wrap(err, "create vertex shader module")
	}
	defer r.driver.DestroyShaderModule(vertShader, nil)

	fragShader, _, err := r.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: r.fragmentShader,
	})
	if err != nil {
		return errors.Wrap(err, "create fragment shader module")
	}
	defer r.driver.DestroyShaderModule(fragShader, nil)

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   getVertexBindingDescription(),
		VertexAttributeDescriptions: getVertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(r.extent.Width),
				Height:   float32(r.extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: r.extent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	// Reversed depth: the projection maps near to 1 and far to 0, so
	// closer fragments win with a greater-compare test against a zero
	// clear.
	depthStencil := &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   core1_0.CompareOpGreater,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	start := hrtime.Now()
	pipelines, _, err := r.driver.CreateGraphicsPipelines(nil, &r.cacheFile.cache,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			DepthStencilState:  depthStencil,
			ColorBlendState:    colorBlend,
			Layout:             r.pipelineLayout,
			RenderPass:         r.renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return errors.Wrap(err, "create graphics pipeline")
	}
	log.Printf("graphics pipeline built in %s", hrtime.Now()-start)

	if r.pipeline.Initialized() {
		r.driver.DestroyPipeline(r.pipeline, nil)
	}
	r.pipeline = pipelines[0]

	return nil
}

// SetScene points the renderer at the camera state used for subsequent
// frames.
func (r *modelRenderer) SetScene(view scene.CenterView, projection scene.PerspectiveProjection) {
	r.view = view
	r.projection = projection
}

// Resize rebuilds the extent-dependent state. The orchestrator calls it
// with the device idle, so the old framebuffers and pipeline are free to
// go immediately.
func (r *modelRenderer) Resize(extent core1_0.Extent2D) error {
	r.extent = extent
	r.destroyFramebuffers()
	return r.buildPipeline()
}

// Record writes this frame's uniform data and draw commands. The uniform
// buffer for the slot is safe to overwrite because the orchestrator has
// already waited out the slot's previous frame.
func (r *modelRenderer) Record(commandBuffer core1_0.CommandBuffer, slot int, frame vulkan.Frame, target *render.Target) error {
	aspect := float64(frame.Extent.Width) / float64(frame.Extent.Height)
	uniform := sceneUniform{
		Model:          mgl32.Ident4(),
		ViewProjection: mat4ToFloat32(r.projection.Matrix(aspect).Mul4(r.view.ViewMatrix())),
	}

	err := vkutil.WriteData(r.driver, r.uniformBuffersMemory[slot], 0, &uniform)
	if err != nil {
		return errors.Wrap(err, "write scene uniforms")
	}

	if r.framebuffers[slot].Initialized() {
		r.driver.DestroyFramebuffer(r.framebuffers[slot], nil)
	}
	r.framebuffers[slot], _, err = r.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass: r.renderPass,
		Layers:     1,
		Attachments: []core1_0.ImageView{
			frame.View,
			target.DepthView,
		},
		Width:  frame.Extent.Width,
		Height: frame.Extent.Height,
	})
	if err != nil {
		return errors.Wrap(err, "create framebuffer")
	}

	err = r.driver.CmdBeginRenderPass(commandBuffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  r.renderPass,
			Framebuffer: r.framebuffers[slot],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: frame.Extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 0, Stencil: 0},
			},
		})
	if err != nil {
		return errors.Wrap(err, "begin render pass")
	}

	r.driver.CmdBindPipeline(commandBuffer, core1_0.PipelineBindPointGraphics, r.pipeline)
	r.driver.CmdBindVertexBuffers(commandBuffer, 0, []core1_0.Buffer{r.vertexBuffer}, []int{0})
	r.driver.CmdBindIndexBuffer(commandBuffer, r.indexBuffer, 0, core1_0.IndexTypeUInt32)
	r.driver.CmdBindDescriptorSets(commandBuffer, core1_0.PipelineBindPointGraphics, r.pipelineLayout, 0, []core1_0.DescriptorSet{
		r.descriptorSets[slot],
	}, nil)
	r.driver.CmdDrawIndexed(commandBuffer, r.indexCount, 1, 0, 0, 0)
	r.driver.CmdEndRenderPass(commandBuffer)

	return nil
}

func (r *modelRenderer) destroyFramebuffers() {
	for i, framebuffer := range r.framebuffers {
		if framebuffer.Initialized() {
			r.driver.DestroyFramebuffer(framebuffer, nil)
			r.framebuffers[i] = core1_0.Framebuffer{}
		}
	}
}

// Destroy releases everything the renderer owns. The caller must have
// waited the device idle first. Populated pipeline cache data is written
// back to disk on the way down.
func (r *modelRenderer) Destroy() {
	if r.cacheFile != nil {
		err := r.cacheFile.Save(r.driver)
		if err != nil {
			log.Printf("could not persist pipeline cache: %v", err)
		}
	}

	r.destroyFramebuffers()

	if r.pipeline.Initialized() {
		r.driver.DestroyPipeline(r.pipeline, nil)
		r.pipeline = core1_0.Pipeline{}
	}

	if r.textureSampler.Initialized() {
		r.driver.DestroySampler(r.textureSampler, nil)
		r.textureSampler = core1_0.Sampler{}
	}
	if r.textureImageView.Initialized() {
		r.driver.DestroyImageView(r.textureImageView, nil)
		r.textureImageView = core1_0.ImageView{}
	}
	if r.textureImage.Initialized() {
		r.driver.DestroyImage(r.textureImage, nil)
		r.driver.FreeMemory(r.textureImageMemory, nil)
		r.textureImage = core1_0.Image{}
		r.textureImageMemory = core1_0.DeviceMemory{}
	}

	for i := range r.uniformBuffers {
		r.driver.DestroyBuffer(r.uniformBuffers[i], nil)
		r.driver.FreeMemory(r.uniformBuffersMemory[i], nil)
	}
	r.uniformBuffers = nil
	r.uniformBuffersMemory = nil

	if r.descriptorPool.Initialized() {
		r.driver.DestroyDescriptorPool(r.descriptorPool, nil)
		r.descriptorPool = core1_0.DescriptorPool{}
		r.descriptorSets = nil
	}
	if r.descriptorSetLayout.Initialized() {
		r.driver.DestroyDescriptorSetLayout(r.descriptorSetLayout, nil)
		r.descriptorSetLayout = core1_0.DescriptorSetLayout{}
	}
	if r.pipelineLayout.Initialized() {
		r.driver.DestroyPipelineLayout(r.pipelineLayout, nil)
		r.pipelineLayout = core1_0.PipelineLayout{}
	}

	if r.indexBuffer.Initialized() {
		r.driver.DestroyBuffer(r.indexBuffer, nil)
		r.driver.FreeMemory(r.indexBufferMemory, nil)
		r.indexBuffer = core1_0.Buffer{}
		r.indexBufferMemory = core1_0.DeviceMemory{}
	}
	if r.vertexBuffer.Initialized() {
		r.driver.DestroyBuffer(r.vertexBuffer, nil)
		r.driver.FreeMemory(r.vertexBufferMemory, nil)
		r.vertexBuffer = core1_0.Buffer{}
		r.vertexBufferMemory = core1_0.DeviceMemory{}
	}

	if r.renderPass.Initialized() {
		r.driver.DestroyRenderPass(r.renderPass, nil)
		r.renderPass = core1_0.RenderPass{}
	}

	if r.cacheFile != nil {
		r.cacheFile.Destroy(r.driver)
		r.cacheFile = nil
	}
}
