package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
)

// spirvHeaderSize is the five word module header.
const spirvHeaderSize = 20

// ValidateSPIRV checks the size and magic number of a SPIR-V module.
func ValidateSPIRV(bytecode []byte) error {
	if len(bytecode) < spirvHeaderSize || len(bytecode)%4 != 0 {
		return fmt.Errorf("SPIR-V module of %d bytes: %w", len(bytecode), core.ErrInvalidBytecode)
	}
	if magic := binary.LittleEndian.Uint32(bytecode); magic != spirvMagic {
		return fmt.Errorf("SPIR-V magic %#08x: %w", magic, core.ErrInvalidBytecode)
	}
	return nil
}

/**
 * @brief A single shader stage: the module and the stage info the pipeline is
 * built from.
 */
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	Bytecode              []byte
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func NewShaderModule(context *VulkanContext, bytecode []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if err := ValidateSPIRV(bytecode); err != nil {
		return nil, err
	}
	// keep a private copy, the words are read from it by the driver
	code := append([]byte(nil), bytecode...)
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	if err := check("vkCreateShaderModule", vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module)); err != nil {
		return nil, err
	}
	return &VulkanShaderStage{
		Handle:   module,
		Bytecode: code,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  safeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
