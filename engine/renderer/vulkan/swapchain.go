package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/math"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	VSync       bool
	Handle      vk.Swapchain
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView

	// one per swapchain image, built lazily against the bound depth view
	Framebuffers []*VulkanFramebuffer

	ImageAvailable vk.Semaphore
	RenderComplete vk.Semaphore

	requestedFormat vk.Format
}

func SwapchainCreate(context *VulkanContext, width, height uint32, format vk.Format, vsync bool) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{requestedFormat: format}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for _, sem := range []*vk.Semaphore{&swapchain.ImageAvailable, &swapchain.RenderComplete} {
		if err := check("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, sem)); err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
	}

	if err := swapchain.create(context, width, height, vsync); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}
	return swapchain, nil
}

// chooseSurfaceFormat prefers the requested format, then BGRA8, then whatever
// the surface lists first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat, requested vk.Format) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == requested && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

func (vs *VulkanSwapchain) create(context *VulkanContext, width, height uint32, vsync bool) error {
	support := &context.Device.SwapchainSupport
	if len(support.Formats) == 0 {
		return fmt.Errorf("surface reports no formats: %w", core.ErrDeviceSetup)
	}

	vs.ImageFormat = chooseSurfaceFormat(support.Formats, vs.requestedFormat)
	vs.PresentMode = vkPresentMode(vsync, support.PresentModes)
	vs.VSync = vsync

	capabilities := support.Capabilities
	extent := vk.Extent2D{Width: width, Height: height}
	if capabilities.CurrentExtent.Width != ^uint32(0) {
		extent = capabilities.CurrentExtent
	}
	extent.Width = math.Clamp(extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	extent.Height = math.Clamp(extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)
	vs.Extent = extent

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vs.PresentMode,
		Clipped:          vk.True,
	}
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := check("vkCreateSwapchain", vk.CreateSwapchain(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle)); err != nil {
		return err
	}
	vs.Handle = handle

	var count uint32
	if err := check("vkGetSwapchainImages", vk.GetSwapchainImages(context.Device.LogicalDevice, handle, &count, nil)); err != nil {
		return err
	}
	vs.Images = make([]vk.Image, count)
	if err := check("vkGetSwapchainImages", vk.GetSwapchainImages(context.Device.LogicalDevice, handle, &count, vs.Images)); err != nil {
		return err
	}

	vs.Views = make([]vk.ImageView, 0, count)
	for _, img := range vs.Images {
		image := VulkanImage{Handle: img, Format: vs.ImageFormat.Format}
		view, err := image.CreateView(context, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		vs.Views = append(vs.Views, view)
	}
	vs.Framebuffers = make([]*VulkanFramebuffer, count)

	core.LogInfo("swapchain created (%dx%d, %d images, present mode %d)", extent.Width, extent.Height, count, vs.PresentMode)
	return nil
}

// release destroys everything create built, keeping the semaphores.
func (vs *VulkanSwapchain) release(context *VulkanContext) {
	device := context.Device.LogicalDevice
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = nil
	// the images belong to the swapchain, only the views are ours
	for _, view := range vs.Views {
		vk.DestroyImageView(device, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != nil {
		vk.DestroySwapchain(device, vs.Handle, context.Allocator)
		vs.Handle = nil
	}
}

/**
 * @brief Rebuilds the swapchain at its current extent, picking the present
 * mode for vsync. Waits for the device to go idle first.
 */
func (vs *VulkanSwapchain) Recreate(context *VulkanContext, vsync bool) error {
	context.WaitIdle()
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return err
	}
	width, height := vs.Extent.Width, vs.Extent.Height
	vs.release(context)
	return vs.create(context, width, height, vsync)
}

func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	context.WaitIdle()
	vs.release(context)
	device := context.Device.LogicalDevice
	if vs.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, vs.ImageAvailable, context.Allocator)
		vs.ImageAvailable = vk.NullSemaphore
	}
	if vs.RenderComplete != vk.NullSemaphore {
		vk.DestroySemaphore(device, vs.RenderComplete, context.Allocator)
		vs.RenderComplete = vk.NullSemaphore
	}
}

// AcquireNextImageIndex returns the raw result so the caller decides on
// recreation.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNs uint64) (uint32, vk.Result) {
	var index uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNs, vs.ImageAvailable, vk.NullFence, &index)
	return index, result
}

func (vs *VulkanSwapchain) Present(context *VulkanContext, index uint32) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vs.RenderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{index},
	}
	var result vk.Result
	_ = context.Locks.SafeQueueCall(uint32(context.Device.PresentQueueIndex), func() error {
		result = vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
		return nil
	})
	return result
}

/**
 * @brief Returns the framebuffer for the image, rebuilding it when the depth
 * view changed. Its size is the smaller of the swapchain and depth extents.
 */
func (vs *VulkanSwapchain) Framebuffer(context *VulkanContext, renderpass *VulkanRenderpass, index uint32, depth *DepthStencilView) (*VulkanFramebuffer, error) {
	if int(index) >= len(vs.Views) {
		return nil, fmt.Errorf("swapchain image %d of %d: %w", index, len(vs.Views), core.ErrInvalidUsage)
	}
	attachments := []vk.ImageView{vs.Views[index], depth.view}
	if fb := vs.Framebuffers[index]; fb != nil {
		if fb.Uses(attachments) {
			return fb, nil
		}
		fb.Destroy(context)
		vs.Framebuffers[index] = nil
	}

	width := min(vs.Extent.Width, depth.texture.desc.Width)
	height := min(vs.Extent.Height, depth.texture.desc.Height)
	fb, err := FramebufferCreate(context, renderpass, width, height, attachments)
	if err != nil {
		return nil, err
	}
	vs.Framebuffers[index] = fb
	return fb, nil
}

/**
 * @brief The renderer.SwapChain face of the backend. Presenting is driven by
 * the immediate context that recorded the frame.
 */
type SwapChain struct {
	base
	swapchain *VulkanSwapchain
	immediate *ImmediateContext
	format    renderer.Format
}

// GetBuffer returns a new reference to the back buffer; the caller releases it.
func (s *SwapChain) GetBuffer(index uint32) (renderer.Texture2D, error) {
	if s.isReleased() {
		return nil, fmt.Errorf("back buffer: %w", core.ErrResourceReleased)
	}
	if index != 0 {
		return nil, fmt.Errorf("back buffer %d: %w", index, core.ErrInvalidUsage)
	}
	return &Texture2D{
		base: base{ctx: s.ctx},
		desc: renderer.Texture2DDesc{
			Width:       s.swapchain.Extent.Width,
			Height:      s.swapchain.Extent.Height,
			MipLevels:   1,
			ArraySize:   1,
			Format:      s.format,
			SampleCount: 1,
			Usage:       renderer.UsageDefault,
			BindFlags:   renderer.BindRenderTarget,
		},
		backBuffer: true,
	}, nil
}

func (s *SwapChain) Present(syncInterval uint32) error {
	if s.isReleased() {
		return fmt.Errorf("present: %w", core.ErrResourceReleased)
	}
	return s.immediate.present(syncInterval)
}

func (s *SwapChain) Release() {
	if !s.markReleased() {
		return
	}
	s.swapchain.Destroy(s.ctx)
	if s.ctx.MainRenderpass != nil {
		s.ctx.MainRenderpass.Destroy(s.ctx)
		s.ctx.MainRenderpass = nil
	}
	s.ctx.Swapchain = nil
	core.LogDebug("swapchain destroyed")
}
