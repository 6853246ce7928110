// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	vk "github.com/goki/vulkan"
)

// ComputePipeline is the pipeline that runs the particle update
// kernel, dispatched once per frame on the compute queue.
type ComputePipeline struct {
	Shader     Shader
	Layout     vk.PipelineLayout
	VkPipeline vk.Pipeline
}

// Config creates the pipeline from given SPIR-V compute shader code
// and descriptor set layout.  The shader module is freed once the
// pipeline exists.
func (pl *ComputePipeline) Config(dev vk.Device, descLayout vk.DescriptorSetLayout, name string, code []byte) error {
	pl.Shader.Name = name
	pl.Shader.Type = ComputeShader
	if err := pl.Shader.OpenCode(dev, code); err != nil {
		return err
	}
	defer pl.Shader.Free(dev)

	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(dev, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{descLayout},
	}, nil, &layout)
	if err := NewError(ret); err != nil {
		return NewInitError("ComputePipeline.Config: layout: %v", err)
	}
	pl.Layout = layout

	pipeline := make([]vk.Pipeline, 1)
	ret = vk.CreateComputePipelines(dev, vk.PipelineCache(vk.NullHandle), 1, []vk.ComputePipelineCreateInfo{{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  ShaderStageFlags[ComputeShader],
			Module: pl.Shader.VkModule,
			PName:  "main\x00",
		},
		Layout: pl.Layout,
	}}, nil, pipeline)
	if err := NewError(ret); err != nil {
		return NewInitError("ComputePipeline.Config: %v", err)
	}
	pl.VkPipeline = pipeline[0]
	return nil
}

// Destroy frees the pipeline and its layout.
func (pl *ComputePipeline) Destroy(dev vk.Device) {
	if pl.VkPipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, pl.VkPipeline, nil)
		pl.VkPipeline = vk.NullPipeline
	}
	if pl.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dev, pl.Layout, nil)
		pl.Layout = vk.NullPipelineLayout
	}
}

// GraphicsPipeline is the pipeline that draws the particle buffer as
// a point list, one vertex per particle.
type GraphicsPipeline struct {
	Vertex     Shader
	Fragment   Shader
	Layout     vk.PipelineLayout
	VkPipeline vk.Pipeline
}

// Config creates the pipeline from given SPIR-V vertex and fragment
// shader code, targeting given render pass.  Viewport and scissor are
// dynamic so the pipeline survives swapchain recreation.
func (pl *GraphicsPipeline) Config(dev vk.Device, renderPass vk.RenderPass, vertCode, fragCode []byte) error {
	pl.Vertex = Shader{Name: "particle.vert", Type: VertexShader}
	if err := pl.Vertex.OpenCode(dev, vertCode); err != nil {
		return err
	}
	defer pl.Vertex.Free(dev)
	pl.Fragment = Shader{Name: "particle.frag", Type: FragmentShader}
	if err := pl.Fragment.OpenCode(dev, fragCode); err != nil {
		return err
	}
	defer pl.Fragment.Free(dev)

	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(dev, &vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}, nil, &layout)
	if err := NewError(ret); err != nil {
		return NewInitError("GraphicsPipeline.Config: layout: %v", err)
	}
	pl.Layout = layout

	binding := VertexBindingDescription()
	attrs := VertexAttributeDescriptions()

	pipeline := make([]vk.Pipeline, 1)
	ret = vk.CreateGraphicsPipelines(dev, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  ShaderStageFlags[VertexShader],
				Module: pl.Vertex.VkModule,
				PName:  "main\x00",
			},
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  ShaderStageFlags[FragmentShader],
				Module: pl.Fragment.VkModule,
				PName:  "main\x00",
			},
		},
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   1,
			PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
			VertexAttributeDescriptionCount: uint32(len(attrs)),
			PVertexAttributeDescriptions:    attrs,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyPointList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorOne,
				DstAlphaBlendFactor: vk.BlendFactorZero,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit |
					vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     pl.Layout,
		RenderPass: renderPass,
	}}, nil, pipeline)
	if err := NewError(ret); err != nil {
		return NewInitError("GraphicsPipeline.Config: %v", err)
	}
	pl.VkPipeline = pipeline[0]
	return nil
}

// Destroy frees the pipeline and its layout.
func (pl *GraphicsPipeline) Destroy(dev vk.Device) {
	if pl.VkPipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, pl.VkPipeline, nil)
		pl.VkPipeline = vk.NullPipeline
	}
	if pl.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dev, pl.Layout, nil)
		pl.Layout = vk.NullPipelineLayout
	}
}
