package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
	Layout vk.ImageLayout
}

func ImageCreate(
	context *VulkanContext,
	width, height uint32,
	format vk.Format,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
) (*VulkanImage, error) {
	device := context.Device.LogicalDevice
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if err := check("vkCreateImage", vk.CreateImage(device, &imageInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	image := &VulkanImage{
		Handle: handle,
		Format: format,
		Width:  width,
		Height: height,
		Layout: vk.ImageLayoutUndefined,
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	index, err := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: index,
	}
	var memory vk.DeviceMemory
	if err := context.Locks.SafeCall(MemoryManagement, func() error {
		return check("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory))
	}); err != nil {
		image.Destroy(context)
		return nil, err
	}
	image.Memory = memory

	if err := check("vkBindImageMemory", vk.BindImageMemory(device, handle, memory, 0)); err != nil {
		image.Destroy(context)
		return nil, err
	}
	return image, nil
}

// CreateView builds the single view of the image for the given aspect.
func (vi *VulkanImage) CreateView(context *VulkanContext, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   vi.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := check("vkCreateImageView", vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view)); err != nil {
		return nil, err
	}
	return view, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vi.View != nil {
		vk.DestroyImageView(device, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(device, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, vi.Memory, context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
}

func layoutAccess(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags, error) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), nil
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit), nil
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), nil
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit), nil
	}
	return 0, 0, fmt.Errorf("unsupported image layout %d: %w", layout, core.ErrInvalidUsage)
}

// TransitionLayout records a barrier moving the whole image to newLayout.
func (vi *VulkanImage) TransitionLayout(commandBuffer *VulkanCommandBuffer, aspect vk.ImageAspectFlags, newLayout vk.ImageLayout) error {
	srcAccess, srcStage, err := layoutAccess(vi.Layout)
	if err != nil {
		return err
	}
	dstAccess, dstStage, err := layoutAccess(newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           vi.Layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	vi.Layout = newLayout
	return nil
}

// CopyFromBuffer records a copy of tightly packed texels into the image.
func (vi *VulkanImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer *VulkanBuffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: vi.Width, Height: vi.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(commandBuffer.Handle, buffer.Handle, vi.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

/**
 * @brief Uploads pixels through a host visible staging buffer and leaves the
 * image ready for sampling. Blocks until the copy completed.
 */
func (vi *VulkanImage) Upload(context *VulkanContext, pixels []byte) error {
	staging, err := BufferCreate(context, uint64(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(context)

	if err := staging.Write(context, pixels); err != nil {
		return err
	}

	device := context.Device
	cb, err := AllocateAndBeginSingleUse(context, device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if err := vi.TransitionLayout(cb, aspect, vk.ImageLayoutTransferDstOptimal); err != nil {
		cb.Free(context, device.GraphicsCommandPool)
		return err
	}
	vi.CopyFromBuffer(cb, staging)
	if err := vi.TransitionLayout(cb, aspect, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		cb.Free(context, device.GraphicsCommandPool)
		return err
	}
	return cb.EndSingleUse(context, device.GraphicsCommandPool, device.GraphicsQueue)
}
