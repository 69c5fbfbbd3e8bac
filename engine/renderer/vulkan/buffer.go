package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

/** @brief A buffer bound to its own allocation. */
type VulkanBuffer struct {
	Handle     vk.Buffer
	Memory     vk.DeviceMemory
	Size       vk.DeviceSize
	Properties vk.MemoryPropertyFlags
}

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	device := context.Device.LogicalDevice
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := check("vkCreateBuffer", vk.CreateBuffer(device, &bufferInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	buffer := &VulkanBuffer{Handle: handle, Size: vk.DeviceSize(size), Properties: properties}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	index, err := context.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if err != nil {
		buffer.Destroy(context)
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
		buffer.Destroy(context)
		return nil, err
	}
	buffer.Memory = memory

	if err := check("vkBindBufferMemory", vk.BindBufferMemory(device, handle, memory, 0)); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
}

// Write copies data to the start of a host visible buffer.
func (vb *VulkanBuffer) Write(context *VulkanContext, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var ptr unsafe.Pointer
	if err := check("vkMapMemory", vk.MapMemory(context.Device.LogicalDevice, vb.Memory, 0, vk.DeviceSize(len(data)), 0, &ptr)); err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	return nil
}

// Read copies the first len(out) bytes of a host visible buffer into out.
func (vb *VulkanBuffer) Read(context *VulkanContext, out []byte) error {
	if len(out) == 0 {
		return nil
	}
	var ptr unsafe.Pointer
	if err := check("vkMapMemory", vk.MapMemory(context.Device.LogicalDevice, vb.Memory, 0, vk.DeviceSize(len(out)), 0, &ptr)); err != nil {
		return err
	}
	copy(out, unsafe.Slice((*byte)(ptr), len(out)))
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	return nil
}
