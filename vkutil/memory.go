package vkutil

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Allocator bundles the handles needed to create buffers and images and back
// them with device memory of the right type.
type Allocator struct {
	Device         core1_0.CoreDeviceDriver
	Instance       core1_0.CoreInstanceDriver
	PhysicalDevice core1_0.PhysicalDevice
}

// FindMemoryType returns the index of a memory type allowed by typeFilter
// that has all the requested property flags.
func (a Allocator) FindMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := a.Instance.GetPhysicalDeviceMemoryProperties(a.PhysicalDevice)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if typeFilter&typeBit != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.New("no suitable memory type available")
}

// CreateBuffer creates an exclusive-mode buffer and binds fresh memory with
// the requested properties.
func (a Allocator) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := a.Device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "create buffer")
	}

	memRequirements := a.Device.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := a.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		a.Device.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memory, _, err := a.Device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		a.Device.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "allocate buffer memory")
	}

	_, err = a.Device.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		a.Device.FreeMemory(memory, nil)
		a.Device.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "bind buffer memory")
	}

	return buffer, memory, nil
}

// CreateImage creates a single-sample 2D image and binds fresh device memory
// with the requested properties.
func (a Allocator) CreateImage(width, height int, format core1_0.Format, tiling core1_0.ImageTiling, usage core1_0.ImageUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Image, core1_0.DeviceMemory, error) {
	image, _, err := a.Device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, errors.Wrap(err, "create image")
	}

	memRequirements := a.Device.GetImageMemoryRequirements(image)
	memoryTypeIndex, err := a.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		a.Device.DestroyImage(image, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	memory, _, err := a.Device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		a.Device.DestroyImage(image, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, errors.Wrap(err, "allocate image memory")
	}

	_, err = a.Device.BindImageMemory(image, memory, 0)
	if err != nil {
		a.Device.FreeMemory(memory, nil)
		a.Device.DestroyImage(image, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, errors.Wrap(err, "bind image memory")
	}

	return image, memory, nil
}

// FindSupportedFormat returns the first candidate format whose tiling
// features include all the requested ones.
func (a Allocator) FindSupportedFormat(candidates []core1_0.Format, tiling core1_0.ImageTiling, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range candidates {
		props := a.Instance.GetPhysicalDeviceFormatProperties(a.PhysicalDevice, format)

		if tiling == core1_0.ImageTilingLinear && (props.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == core1_0.ImageTilingOptimal && (props.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}

	return 0, errors.New("no candidate format is supported")
}

// FindDepthFormat returns the preferred depth attachment format for the
// device, trying pure 32-bit depth before the packed depth/stencil formats.
func (a Allocator) FindDepthFormat() (core1_0.Format, error) {
	return a.FindSupportedFormat(
		[]core1_0.Format{
			core1_0.FormatD32SignedFloat,
			core1_0.FormatD32SignedFloatS8UnsignedInt,
			core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		},
		core1_0.ImageTilingOptimal,
		core1_0.FormatFeatureDepthStencilAttachment,
	)
}

// CreateImageView creates a 2D view over image with identity swizzling.
func CreateImageView(device core1_0.CoreDeviceDriver, image core1_0.Image, format core1_0.Format, subresource core1_0.ImageSubresourceRange) (core1_0.ImageView, error) {
	view, _, err := device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:            image,
		ViewType:         core1_0.ImageViewType2D,
		Format:           format,
		SubresourceRange: subresource,
	})
	if err != nil {
		return core1_0.ImageView{}, errors.Wrap(err, "create image view")
	}

	return view, nil
}

// WriteData serializes data into mapped device memory at offset. data must
// have a size computable by binary.Size, such as a slice of fixed-size
// structs.
func WriteData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := driver.MapMemory(memory, offset, bufferSize, 0)
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer driver.UnmapMemory(memory)

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	err = binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return errors.Wrap(err, "serialize data")
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}
