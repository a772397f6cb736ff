package vkg

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const spirvMagic = 0x07230203

type ShaderModule struct {
	Device         *Device
	Description    string
	VKShaderModule vk.ShaderModule
}

func (d *Device) LoadShaderModuleFromFile(file string) (*ShaderModule, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	m, err := d.LoadShaderModule(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", file)
	}
	m.Description = file
	return m, nil
}

// LoadShaderModule creates a module from SPIR-V bytes.
func (d *Device) LoadShaderModule(data []byte) (*ShaderModule, error) {
	code, err := spirvWords(data)
	if err != nil {
		return nil, err
	}

	var module vk.ShaderModule
	err = vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    code,
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrap(err, "create shader module")
	}

	return &ShaderModule{VKShaderModule: module, Device: d}, nil
}

func (s *ShaderModule) VKPipelineShaderStageCreateInfo(stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: s.VKShaderModule,
		PName:  safeString(entryPoint),
	}
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}

// spirvWords checks the SPIR-V header and returns the code as words.
func spirvWords(data []byte) ([]uint32, error) {
	if len(data) < 20 || len(data)%4 != 0 {
		return nil, errors.Errorf("invalid SPIR-V size %d", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data); magic != spirvMagic {
		return nil, errors.Errorf("invalid SPIR-V magic %#08x", magic)
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
