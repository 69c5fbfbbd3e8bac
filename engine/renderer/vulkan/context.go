package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
)

/**
 * @brief Handles shared by every object of one device: instance, surface,
 * queues and the pools they allocate from.
 */
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice
	Locks  *VulkanLockPool

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	// Clear colour, depth and stencil recorded by the immediate context and
	// consumed when the render pass begins.
	ClearColour  [4]float32
	ClearDepth   float32
	ClearStencil uint32

	// set once a frame was submitted and its fence not yet waited on
	frameInFlight bool
	frameFence    *VulkanFence
}

func newVulkanContext() *VulkanContext {
	return &VulkanContext{
		Allocator:  nil,
		Device:     &VulkanDevice{GraphicsQueueIndex: -1, PresentQueueIndex: -1},
		Locks:      NewVulkanLockPool(),
		ClearDepth: 1.0,
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// every requested property.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	memory := vc.Device.Memory
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && memory.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	err := fmt.Errorf("no memory type for filter %#x with properties %#x: %w", typeFilter, properties, core.ErrUnknown)
	core.LogWarn(err.Error())
	return 0, err
}

// WaitForFrame blocks until the last submitted frame finished on the GPU.
func (vc *VulkanContext) WaitForFrame() error {
	if !vc.frameInFlight || vc.frameFence == nil {
		return nil
	}
	if err := vc.frameFence.Wait(vc, noTimeout); err != nil {
		return err
	}
	vc.frameInFlight = false
	return nil
}

// WaitIdle drains the device before objects it may still use are destroyed.
func (vc *VulkanContext) WaitIdle() {
	if vc.Device == nil || vc.Device.LogicalDevice == nil {
		return
	}
	if res := vk.DeviceWaitIdle(vc.Device.LogicalDevice); res != vk.Success {
		core.LogWarn("vkDeviceWaitIdle returned %s", resultString(res))
	}
	vc.frameInFlight = false
}
