// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// ParamBlock is the per-frame uniform data read by the compute kernel,
// padded to the 16-byte std140 block size used on the GPU side.
type ParamBlock struct {
	// timestep in seconds for this frame's integration
	Dt float32

	pad0, pad1, pad2 float32
}

// ParamBlockSize is the byte size of one uniform block.
const ParamBlockSize = int(unsafe.Sizeof(ParamBlock{}))

// Params holds one host-visible, persistently-mapped uniform buffer
// per frame slot, so the CPU can write slot i's parameters while the
// GPU reads another slot's.  A slot must only be written after its
// completion fence has been waited on.
type Params struct {
	Dev *Device

	// per-slot uniform buffers
	Buffers []vk.Buffer

	// per-slot buffer memory
	Memory []vk.DeviceMemory

	// per-slot persistently mapped pointers
	Mapped []*ParamBlock
}

// Alloc creates and maps one uniform buffer per frame slot.
func (pr *Params) Alloc(gp *GPU, dev *Device, nslots int) error {
	pr.Dev = dev
	pr.Buffers = make([]vk.Buffer, nslots)
	pr.Memory = make([]vk.DeviceMemory, nslots)
	pr.Mapped = make([]*ParamBlock, nslots)
	for i := 0; i < nslots; i++ {
		pr.Buffers[i] = NewBuffer(dev.Device, ParamBlockSize, vk.BufferUsageUniformBufferBit)
		pr.Memory[i] = AllocBuffMem(gp, dev.Device, pr.Buffers[i],
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		ptr := MapMemory(dev.Device, pr.Memory[i], ParamBlockSize)
		pr.Mapped[i] = (*ParamBlock)(ptr)
	}
	return nil
}

// Set writes the timestep for given frame slot.  The write takes
// effect for that slot's next compute dispatch only, leaving other
// slots' in-flight parameters untouched.
func (pr *Params) Set(slot int, dt float32) {
	pr.Mapped[slot].Dt = dt
}

// Destroy unmaps and frees all slot buffers.
func (pr *Params) Destroy() {
	if pr.Dev == nil {
		return
	}
	dev := pr.Dev.Device
	for i := range pr.Buffers {
		if pr.Mapped[i] != nil {
			vk.UnmapMemory(dev, pr.Memory[i])
			pr.Mapped[i] = nil
		}
		FreeBuffMem(dev, &pr.Memory[i])
		DestroyBuffer(dev, &pr.Buffers[i])
	}
	pr.Buffers = nil
	pr.Memory = nil
	pr.Mapped = nil
	pr.Dev = nil
}
