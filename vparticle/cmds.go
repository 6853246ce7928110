// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	vk "github.com/goki/vulkan"
)

// CmdPool is a command pool and a default command buffer for one-time
// work, allocated lazily by BeginCmdOneTime.  Long-lived buffers are
// allocated with NewBuffer.
type CmdPool struct {
	Pool vk.CommandPool
	Buff vk.CommandBuffer
}

// ConfigResettable configures the pool on given device and queue
// family, with individually-resettable command buffers.
func (cp *CmdPool) ConfigResettable(dev vk.Device, queueIndex uint32) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	IfPanic(NewError(ret))
	cp.Pool = pool
}

// ConfigTransient configures the pool for short-lived one-time
// command buffers, such as transfer commands.
func (cp *CmdPool) ConfigTransient(dev vk.Device, queueIndex uint32) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit | vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	IfPanic(NewError(ret))
	cp.Pool = pool
}

// NewBuffer allocates a new primary command buffer from the pool.
func (cp *CmdPool) NewBuffer(dev vk.Device) vk.CommandBuffer {
	cmdBuff := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.Pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmdBuff)
	IfPanic(NewError(ret))
	return cmdBuff[0]
}

// BeginCmdOneTime allocates the default Buff if needed and does
// BeginCommandBuffer on it with the one-time-submit flag.  Pair with
// EndSubmitWaitFree.
func (cp *CmdPool) BeginCmdOneTime(dev vk.Device) vk.CommandBuffer {
	if cp.Buff == nil {
		cp.Buff = cp.NewBuffer(dev)
	}
	ret := vk.BeginCommandBuffer(cp.Buff, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	IfPanic(NewError(ret))
	return cp.Buff
}

// CmdBegin does BeginCommandBuffer on given command buffer,
// for repeated submission.
func CmdBegin(cmd vk.CommandBuffer) {
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	IfPanic(NewError(ret))
}

// CmdResetBegin resets and then begins given command buffer.
func CmdResetBegin(cmd vk.CommandBuffer) {
	vk.ResetCommandBuffer(cmd, 0)
	CmdBegin(cmd)
}

// CmdEnd does EndCommandBuffer on given command buffer.
func CmdEnd(cmd vk.CommandBuffer) {
	ret := vk.EndCommandBuffer(cmd)
	IfPanic(NewError(ret))
}

// CmdSubmit submits given command buffer to given queue with no
// synchronization, returning a SubmissionError on failure.
func CmdSubmit(cmd vk.CommandBuffer, queue vk.Queue) error {
	ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}, vk.NullFence)
	if IsError(ret) {
		return NewSubmitError(ret, "CmdSubmit: queue submit failed")
	}
	return nil
}

// CmdSubmitWait submits given command buffer to queue and blocks
// until the queue is idle.  Used for one-off transfer commands,
// not for per-frame work.
func CmdSubmitWait(cmd vk.CommandBuffer, queue vk.Queue) error {
	if err := CmdSubmit(cmd, queue); err != nil {
		return err
	}
	ret := vk.QueueWaitIdle(queue)
	if IsError(ret) {
		return NewSubmitError(ret, "CmdSubmitWait: queue wait idle failed")
	}
	return nil
}

// EndSubmitWaitFree ends the default Buff, submits it, waits for the
// queue to go idle, and frees the buffer.
func (cp *CmdPool) EndSubmitWaitFree(dev vk.Device, queue vk.Queue) error {
	CmdEnd(cp.Buff)
	err := CmdSubmitWait(cp.Buff, queue)
	vk.FreeCommandBuffers(dev, cp.Pool, 1, []vk.CommandBuffer{cp.Buff})
	cp.Buff = nil
	return err
}

// Destroy destroys the command pool.
func (cp *CmdPool) Destroy(dev vk.Device) {
	if cp.Pool == vk.NullCommandPool {
		return
	}
	vk.DestroyCommandPool(dev, cp.Pool, nil)
	cp.Pool = vk.NullCommandPool
	cp.Buff = nil
}
