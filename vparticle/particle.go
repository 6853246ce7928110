// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"goki.dev/mat32/v2"
)

// Particle is one simulated element, matching the GPU-side layout
// exactly: 32 bytes, with Pos at offset 0, Vel at offset 8, and
// Color at offset 16.  Vel is updated by the compute kernel but is
// not bound as a vertex attribute.
type Particle struct {
	Pos   mat32.Vec2
	Vel   mat32.Vec2
	Color mat32.Vec4
}

// ParticleSize is the per-particle byte stride, as laid out on the GPU.
const ParticleSize = int(unsafe.Sizeof(Particle{}))

// ParticleBuffer is the device-local storage buffer for one frame slot,
// usable both as a compute storage buffer and as a vertex buffer.
type ParticleBuffer struct {
	Buffer vk.Buffer
	Memory vk.DeviceMemory
}

// ParticleBuffers holds one particle buffer per frame slot, all of
// identical fixed capacity.  The buffers are seeded once with the
// same initial data and thereafter written only by the compute stage.
type ParticleBuffers struct {
	GP  *GPU
	Dev *Device

	// number of particles in each buffer, fixed at Alloc
	Count int

	// per-frame-slot buffers
	Slots []ParticleBuffer

	// Upload writes len(data)*ParticleSize bytes into the slot buffer
	// at offset 0.  It defaults to a staging-buffer copy on the
	// graphics queue and is settable for testing.
	Upload func(slot int, data []Particle) error

	seeded   bool
	xferPool CmdPool
}

// Alloc creates count-sized device-local buffers for each of nslots
// frame slots.  Count is immutable thereafter.
func (pb *ParticleBuffers) Alloc(gp *GPU, dev *Device, count, nslots int) error {
	if count <= 0 {
		return NewInitError("ParticleBuffers.Alloc: count must be positive, got %d", count)
	}
	pb.GP = gp
	pb.Dev = dev
	pb.Count = count
	pb.Slots = make([]ParticleBuffer, nslots)
	usage := vk.BufferUsageStorageBufferBit | vk.BufferUsageVertexBufferBit |
		vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit
	sz := count * ParticleSize
	for i := range pb.Slots {
		sl := &pb.Slots[i]
		sl.Buffer = NewBuffer(dev.Device, sz, usage)
		sl.Memory = AllocBuffMem(gp, dev.Device, sl.Buffer, vk.MemoryPropertyDeviceLocalBit)
	}
	pb.xferPool.ConfigTransient(dev.Device, dev.GraphicsIndex)
	pb.Upload = pb.stagingUpload
	return nil
}

// Seed uploads given initial particle data to every slot buffer.
// It must be called exactly once, before the first frame cycle,
// with exactly Count particles.
func (pb *ParticleBuffers) Seed(data []Particle) error {
	if pb.seeded {
		return NewInitError("ParticleBuffers.Seed: buffers already seeded")
	}
	if len(data) != pb.Count {
		return NewInitError("ParticleBuffers.Seed: got %d particles, buffers hold %d", len(data), pb.Count)
	}
	for i := range pb.Slots {
		if err := pb.Upload(i, data); err != nil {
			return err
		}
	}
	pb.seeded = true
	return nil
}

// Seeded reports whether Seed has completed successfully.
func (pb *ParticleBuffers) Seeded() bool {
	return pb.seeded
}

// stagingUpload copies data into given slot buffer through a
// host-visible staging buffer, waiting for the copy to complete.
func (pb *ParticleBuffers) stagingUpload(slot int, data []Particle) error {
	dev := pb.Dev.Device
	sz := len(data) * ParticleSize

	staging := NewBuffer(dev, sz, vk.BufferUsageTransferSrcBit)
	stagingMem := AllocBuffMem(pb.GP, dev, staging, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	defer func() {
		FreeBuffMem(dev, &stagingMem)
		DestroyBuffer(dev, &staging)
	}()

	ptr := MapMemory(dev, stagingMem, sz)
	src := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), sz)
	dst := unsafe.Slice((*byte)(ptr), sz)
	copy(dst, src)
	vk.UnmapMemory(dev, stagingMem)

	cmd := pb.xferPool.BeginCmdOneTime(dev)
	vk.CmdCopyBuffer(cmd, staging, pb.Slots[slot].Buffer, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(sz),
	}})
	return pb.xferPool.EndSubmitWaitFree(dev, pb.Dev.Graphics)
}

// ReadBack copies given slot's buffer back to the host, for headless
// verification of compute results.  The caller must ensure the slot's
// completion fence has been waited on first.
func (pb *ParticleBuffers) ReadBack(slot int) ([]Particle, error) {
	dev := pb.Dev.Device
	sz := pb.Count * ParticleSize

	staging := NewBuffer(dev, sz, vk.BufferUsageTransferDstBit)
	stagingMem := AllocBuffMem(pb.GP, dev, staging, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	defer func() {
		FreeBuffMem(dev, &stagingMem)
		DestroyBuffer(dev, &staging)
	}()

	cmd := pb.xferPool.BeginCmdOneTime(dev)
	vk.CmdCopyBuffer(cmd, pb.Slots[slot].Buffer, staging, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(sz),
	}})
	if err := pb.xferPool.EndSubmitWaitFree(dev, pb.Dev.Graphics); err != nil {
		return nil, err
	}

	ptr := MapMemory(dev, stagingMem, sz)
	out := make([]Particle, pb.Count)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), sz)
	src := unsafe.Slice((*byte)(ptr), sz)
	copy(dst, src)
	vk.UnmapMemory(dev, stagingMem)
	return out, nil
}

// Destroy frees all slot buffers and the transfer pool.
func (pb *ParticleBuffers) Destroy() {
	if pb.Dev == nil {
		return
	}
	dev := pb.Dev.Device
	for i := range pb.Slots {
		sl := &pb.Slots[i]
		FreeBuffMem(dev, &sl.Memory)
		DestroyBuffer(dev, &sl.Buffer)
	}
	pb.Slots = nil
	pb.xferPool.Destroy(dev)
	pb.Dev = nil
}

// VertexBindingDescription returns the binding for reading the
// particle buffer as per-vertex data.
func VertexBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(ParticleSize),
		InputRate: vk.VertexInputRateVertex,
	}
}

// VertexAttributeDescriptions returns the vertex attributes exposed
// to the render stage: position at location 0 and color at location
// 1.  Velocity is deliberately not bound.
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Particle{}.Pos)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Particle{}.Color)),
		},
	}
}
