// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	vk "github.com/goki/vulkan"
)

// GroupSizeX is the compute shader workgroup size along x.  It must
// match local_size_x in the compute shader source.
const GroupSizeX = 256

// NumGroups returns the number of workgroups needed to cover n
// invocations at given group size, rounding up.  The shader guards
// against the overshoot in the final group.
func NumGroups(n, groupSize int) int {
	ng := n / groupSize
	if n%groupSize != 0 {
		ng++
	}
	return ng
}

// RecordCompute records the per-frame compute dispatch into cmd:
// bind the pipeline and given slot's descriptor set, then dispatch
// enough groups to cover count particles.
func RecordCompute(cmd vk.CommandBuffer, pl *ComputePipeline, set vk.DescriptorSet, count int) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, pl.VkPipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointCompute, pl.Layout,
		0, 1, []vk.DescriptorSet{set}, 0, nil)
	vk.CmdDispatch(cmd, uint32(NumGroups(count, GroupSizeX)), 1, 1)
}
