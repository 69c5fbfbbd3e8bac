package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
)

/** @brief Descriptor sets available to the draws of a single frame. */
const maxDrawsPerFrame = 8

/**
 * @brief The descriptor set layout shared by every pipeline together with a
 * pool of sets. Each draw takes a fresh set, the pool rewinds when a frame
 * begins.
 */
type VulkanDescriptorSets struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Sets   []vk.DescriptorSet
	next   int
}

/** @brief Everything written into one set before a draw. */
type DescriptorBindings struct {
	UniformBuffers map[uint32]*Buffer
	Texture        *ShaderResourceView
	Sampler        *SamplerState
}

func descriptorSetLayoutBindings() []vk.DescriptorSetLayoutBinding {
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	return []vk.DescriptorSetLayoutBinding{
		{Binding: bindingWVP, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
		{Binding: bindingLight, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: fragment},
		{Binding: bindingMaterial, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: fragment},
		{Binding: bindingTexture, DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: 1, StageFlags: fragment},
		{Binding: bindingSampler, DescriptorType: vk.DescriptorTypeSampler, DescriptorCount: 1, StageFlags: fragment},
	}
}

func DescriptorSetsCreate(context *VulkanContext) (*VulkanDescriptorSets, error) {
	device := context.Device.LogicalDevice
	ds := &VulkanDescriptorSets{}

	bindings := descriptorSetLayoutBindings()
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &layout)); err != nil {
		return nil, err
	}
	ds.Layout = layout

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 3 * maxDrawsPerFrame},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: maxDrawsPerFrame},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: maxDrawsPerFrame},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxDrawsPerFrame,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := check("vkCreateDescriptorPool", vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &pool)); err != nil {
		ds.Destroy(context)
		return nil, err
	}
	ds.Pool = pool

	for i := 0; i < maxDrawsPerFrame; i++ {
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		var set vk.DescriptorSet
		if err := check("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(device, &allocateInfo, &set)); err != nil {
			ds.Destroy(context)
			return nil, err
		}
		ds.Sets = append(ds.Sets, set)
	}
	return ds, nil
}

// Destroying the pool frees its sets.
func (ds *VulkanDescriptorSets) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if ds.Pool != nil {
		vk.DestroyDescriptorPool(device, ds.Pool, context.Allocator)
		ds.Pool = nil
	}
	if ds.Layout != nil {
		vk.DestroyDescriptorSetLayout(device, ds.Layout, context.Allocator)
		ds.Layout = nil
	}
	ds.Sets = nil
}

func (ds *VulkanDescriptorSets) Rewind() {
	ds.next = 0
}

// Write fills the next free set with bindings and returns it.
func (ds *VulkanDescriptorSets) Write(context *VulkanContext, b *DescriptorBindings) (vk.DescriptorSet, error) {
	if ds.next >= len(ds.Sets) {
		return nil, fmt.Errorf("more than %d draws in one frame: %w", maxDrawsPerFrame, core.ErrInvalidUsage)
	}
	set := ds.Sets[ds.next]

	writes := make([]vk.WriteDescriptorSet, 0, bindingCount)
	for _, binding := range []uint32{bindingWVP, bindingLight, bindingMaterial} {
		buffer := b.UniformBuffers[binding]
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buffer.buffer.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(buffer.desc.ByteWidth),
			}},
		})
	}
	writes = append(writes,
		vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      bindingTexture,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   b.Texture.view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		},
		vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      bindingSampler,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler: b.Sampler.sampler,
			}},
		},
	)

	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	ds.next++
	return set, nil
}
