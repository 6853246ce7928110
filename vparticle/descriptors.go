// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	vk "github.com/goki/vulkan"
)

// ComputeDescriptors manages the descriptor set layout, pool, and
// per-frame-slot sets binding the compute kernel's inputs: the
// uniform parameter block at binding 0 and the particle storage
// buffer at binding 1.
type ComputeDescriptors struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool

	// one set per frame slot
	Sets []vk.DescriptorSet
}

// Config creates the layout, pool, and nslots descriptor sets.
func (ds *ComputeDescriptors) Config(dev vk.Device, nslots int) {
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 2,
		PBindings: []vk.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			},
			{
				Binding:         1,
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			},
		},
	}, nil, &layout)
	IfPanic(NewError(ret))
	ds.Layout = layout

	var pool vk.DescriptorPool
	ret = vk.CreateDescriptorPool(dev, &vk.DescriptorPoolCreateInfo{
		SType:   vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets: uint32(nslots),
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: uint32(nslots)},
			{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: uint32(nslots)},
		},
		PoolSizeCount: 2,
	}, nil, &pool)
	IfPanic(NewError(ret))
	ds.Pool = pool

	ds.Sets = make([]vk.DescriptorSet, nslots)
	for i := 0; i < nslots; i++ {
		var dset vk.DescriptorSet
		ret := vk.AllocateDescriptorSets(dev, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     ds.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{ds.Layout},
		}, &dset)
		IfPanic(NewError(ret))
		ds.Sets[i] = dset
	}
}

// Update points given slot's set at its parameter and particle buffers.
func (ds *ComputeDescriptors) Update(dev vk.Device, slot int, params vk.Buffer, particles vk.Buffer, count int) {
	vk.UpdateDescriptorSets(dev, 2, []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          ds.Sets[slot],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: params,
				Offset: 0,
				Range:  vk.DeviceSize(ParamBlockSize),
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          ds.Sets[slot],
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: particles,
				Offset: 0,
				Range:  vk.DeviceSize(count * ParticleSize),
			}},
		},
	}, 0, nil)
}

// Destroy frees the pool and layout.  Sets are freed with the pool.
func (ds *ComputeDescriptors) Destroy(dev vk.Device) {
	if ds.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dev, ds.Pool, nil)
		ds.Pool = vk.NullDescriptorPool
	}
	if ds.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dev, ds.Layout, nil)
		ds.Layout = vk.NullDescriptorSetLayout
	}
	ds.Sets = nil
}
