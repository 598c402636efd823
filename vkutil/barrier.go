package vkutil

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// Single-mip, single-layer subresource ranges for the image kinds this
// package deals in. Shared between barrier presets and image view creation.
var (
	ColorSubresourceRange = core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	DepthSubresourceRange = core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectDepth,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	DepthStencilSubresourceRange = core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectDepth | core1_0.ImageAspectStencil,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
)

// HasStencilComponent reports whether format carries a stencil aspect.
// Layout transitions on such images must name both aspects.
func HasStencilComponent(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt || format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}

// BarrierPreset bundles the stage, access and layout edges of a recurring
// image transition so call sites record it in one line instead of restating
// seven fields.
type BarrierPreset struct {
	SrcStage    core1_0.PipelineStageFlags
	DstStage    core1_0.PipelineStageFlags
	SrcAccess   core1_0.AccessFlags
	DstAccess   core1_0.AccessFlags
	OldLayout   core1_0.ImageLayout
	NewLayout   core1_0.ImageLayout
	Subresource core1_0.ImageSubresourceRange
}

var (
	// SwapchainAcquireBarrier moves a freshly acquired swapchain image into
	// color attachment layout. Contents are discarded, so the old layout is
	// undefined regardless of what the presentation engine left behind.
	SwapchainAcquireBarrier = BarrierPreset{
		SrcStage:    core1_0.PipelineStageColorAttachmentOutput,
		DstStage:    core1_0.PipelineStageColorAttachmentOutput,
		SrcAccess:   0,
		DstAccess:   core1_0.AccessColorAttachmentWrite,
		OldLayout:   core1_0.ImageLayoutUndefined,
		NewLayout:   core1_0.ImageLayoutColorAttachmentOptimal,
		Subresource: ColorSubresourceRange,
	}

	// SwapchainPresentBarrier hands a rendered swapchain image over to the
	// presentation engine.
	SwapchainPresentBarrier = BarrierPreset{
		SrcStage:    core1_0.PipelineStageColorAttachmentOutput,
		DstStage:    core1_0.PipelineStageBottomOfPipe,
		SrcAccess:   core1_0.AccessColorAttachmentWrite,
		DstAccess:   0,
		OldLayout:   core1_0.ImageLayoutColorAttachmentOptimal,
		NewLayout:   khr_swapchain.ImageLayoutPresentSrc,
		Subresource: ColorSubresourceRange,
	}

	// DepthAttachmentBarrier prepares a depth image for attachment use,
	// discarding last frame's contents.
	DepthAttachmentBarrier = BarrierPreset{
		SrcStage:    core1_0.PipelineStageEarlyFragmentTests,
		DstStage:    core1_0.PipelineStageEarlyFragmentTests,
		SrcAccess:   0,
		DstAccess:   core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		OldLayout:   core1_0.ImageLayoutUndefined,
		NewLayout:   core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		Subresource: DepthSubresourceRange,
	}
)

// Barrier applies the preset to image. The result is ready to pass to
// CmdPipelineBarrier together with the preset's stage masks.
func (p BarrierPreset) Barrier(image core1_0.Image) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		SrcAccessMask:       p.SrcAccess,
		DstAccessMask:       p.DstAccess,
		OldLayout:           p.OldLayout,
		NewLayout:           p.NewLayout,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		Image:               image,
		SubresourceRange:    p.Subresource,
	}
}
