// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Shader manages a single shader program, loaded from SPIR-V bytecode.
type Shader struct {
	Name     string
	Type     ShaderTypes
	VkModule vk.ShaderModule
}

// OpenCode loads given SPIR-V bytecode for the shader.
func (sh *Shader) OpenCode(dev vk.Device, code []byte) error {
	if len(code) == 0 || len(code)%4 != 0 {
		return NewInitError("Shader.OpenCode: %s: code length %d is not a multiple of 4", sh.Name, len(code))
	}
	uicode := SliceUint32(code)
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    uicode,
	}, nil, &module)
	if err := NewError(ret); err != nil {
		return NewInitError("Shader.OpenCode: %s: %v", sh.Name, err)
	}
	sh.VkModule = module
	return nil
}

// Free destroys the shader module, which can be done after the
// pipeline using it has been created.
func (sh *Shader) Free(dev vk.Device) {
	if sh.VkModule == vk.NullShaderModule {
		return
	}
	vk.DestroyShaderModule(dev, sh.VkModule, nil)
	sh.VkModule = vk.NullShaderModule
}

func (sh *Shader) String() string {
	return fmt.Sprintf("%s: %s", sh.Type.String(), sh.Name)
}

// SliceUint32 reinterprets a byte slice as a uint32 slice.
func SliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// ShaderTypes is a list of the types of shaders.
type ShaderTypes int32

const (
	VertexShader ShaderTypes = iota
	FragmentShader
	ComputeShader
)

func (st ShaderTypes) String() string {
	switch st {
	case VertexShader:
		return "Vertex"
	case FragmentShader:
		return "Fragment"
	case ComputeShader:
		return "Compute"
	}
	return "Unknown"
}

// ShaderStageFlags maps shader types to their pipeline stage flags.
var ShaderStageFlags = map[ShaderTypes]vk.ShaderStageFlagBits{
	VertexShader:   vk.ShaderStageVertexBit,
	FragmentShader: vk.ShaderStageFragmentBit,
	ComputeShader:  vk.ShaderStageComputeBit,
}
