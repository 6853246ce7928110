// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// NewBuffer makes a buffer of given size and usage, not yet backed
// by memory.
func NewBuffer(dev vk.Device, size int, usage vk.BufferUsageFlagBits) vk.Buffer {
	var buffer vk.Buffer
	ret := vk.CreateBuffer(dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vk.BufferUsageFlags(usage),
		Size:        vk.DeviceSize(size),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer)
	IfPanic(NewError(ret))
	return buffer
}

// AllocBuffMem allocates memory for given buffer, with given memory
// properties, and binds it to the buffer.
func AllocBuffMem(gp *GPU, dev vk.Device, buffer vk.Buffer, props vk.MemoryPropertyFlagBits) vk.DeviceMemory {
	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &memReqs)
	memReqs.Deref()

	memProps := gp.MemoryProps
	memType, ok := FindRequiredMemoryType(memProps, vk.MemoryPropertyFlagBits(memReqs.MemoryTypeBits), props)
	if !ok {
		IfPanic(NewInitError("AllocBuffMem: no suitable memory type found"))
	}
	var memory vk.DeviceMemory
	ret := vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	IfPanic(NewError(ret))

	IfPanic(NewError(vk.BindBufferMemory(dev, buffer, memory, 0)))
	return memory
}

// MapMemory maps given device memory for host access, returning the
// mapped pointer.  Memory must have been allocated host-visible.
func MapMemory(dev vk.Device, mem vk.DeviceMemory, size int) unsafe.Pointer {
	var ptr unsafe.Pointer
	ret := vk.MapMemory(dev, mem, 0, vk.DeviceSize(size), 0, &ptr)
	IfPanic(NewError(ret))
	return ptr
}

// FreeBuffMem unmaps (if mapped) and frees given device memory.
func FreeBuffMem(dev vk.Device, memory *vk.DeviceMemory) {
	if IsNil(*memory) {
		return
	}
	vk.FreeMemory(dev, *memory, nil)
	*memory = vk.NullDeviceMemory
}

// DestroyBuffer destroys given buffer and sets it to null.
func DestroyBuffer(dev vk.Device, buff *vk.Buffer) {
	if IsNil(*buff) {
		return
	}
	vk.DestroyBuffer(dev, *buff, nil)
	*buff = vk.NullBuffer
}

// FindRequiredMemoryType finds the index of a memory type in
// deviceRequirements that has all the hostRequirements property bits.
func FindRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties, deviceRequirements, hostRequirements vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if vk.MemoryPropertyFlagBits(1<<i)&deviceRequirements != 0 {
			props.MemoryTypes[i].Deref()
			flags := vk.MemoryPropertyFlagBits(props.MemoryTypes[i].PropertyFlags)
			if flags&hostRequirements == hostRequirements {
				return i, true
			}
		}
	}
	return 0, false
}
