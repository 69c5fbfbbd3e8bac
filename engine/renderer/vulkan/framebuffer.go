package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	framebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if err := check("vkCreateFramebuffer", vk.CreateFramebuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	framebuffer.Handle = handle
	return framebuffer, nil
}

// Uses reports whether the framebuffer was built from exactly these views.
func (vfb *VulkanFramebuffer) Uses(attachments []vk.ImageView) bool {
	if len(attachments) != len(vfb.Attachments) {
		return false
	}
	for i := range attachments {
		if attachments[i] != vfb.Attachments[i] {
			return false
		}
	}
	return true
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
