// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"
)

// MaxFramesInFlight is the number of frame slots cycled round-robin,
// so the CPU can record slot i+1 while the GPU works on slot i.
const MaxFramesInFlight = 2

// FenceTimeout is the bounds on waiting for a slot's completion
// fence.  Exceeding it is treated as a lost device.
const FenceTimeout = 5 * time.Second

// SlotState tracks where a frame slot is in its cycle, enforcing that
// compute is submitted before render and that a slot is not reused
// until its fence has been waited on.
type SlotState int32

const (
	// fence waited, slot resources safe to overwrite
	SlotIdle SlotState = iota

	// compute submitted, ComputeDone will signal
	SlotComputeSubmitted

	// render submitted, fence will signal
	SlotRenderSubmitted
)

func (ss SlotState) String() string {
	switch ss {
	case SlotIdle:
		return "Idle"
	case SlotComputeSubmitted:
		return "ComputeSubmitted"
	case SlotRenderSubmitted:
		return "RenderSubmitted"
	}
	return "Unknown"
}

// FrameSync holds the synchronization primitives and command buffers
// for one frame slot.
type FrameSync struct {
	// signaled by the compute submission, waited by the render
	// submission at the vertex input stage
	ComputeDone vk.Semaphore

	// signaled by swapchain image acquisition, waited by the render
	// submission at the color attachment output stage
	ImageAcquired vk.Semaphore

	// signaled by the render submission, waited by presentation
	RenderDone vk.Semaphore

	// signaled when the slot's last submission retires on the GPU
	Fence vk.Fence

	ComputeCmd vk.CommandBuffer
	RenderCmd  vk.CommandBuffer

	State SlotState
}

// Frames orchestrates the per-frame cycle across MaxFramesInFlight
// slots: wait fence, record, submit compute, submit render, present,
// advance.  All submission errors are fatal.  In particular a failed
// submit must never be retried, because its semaphores may have been
// left signaled.
type Frames struct {
	Dev *Device

	Slots []FrameSync

	// index of the slot being recorded this cycle
	Current int

	// Submit is the queue submission call, vk.QueueSubmit by default,
	// settable for testing.
	Submit func(queue vk.Queue, count uint32, infos []vk.SubmitInfo, fence vk.Fence) vk.Result

	// Wait and Reset are the fence calls, vk.WaitForFences and
	// vk.ResetFences by default, settable for testing.
	Wait  func(dev vk.Device, count uint32, fences []vk.Fence, waitAll vk.Bool32, timeout uint64) vk.Result
	Reset func(dev vk.Device, count uint32, fences []vk.Fence) vk.Result
}

// Config creates the semaphores, fences, and command buffers for
// nslots frame slots, allocating compute command buffers from
// computePool and render command buffers from graphicsPool.
// Fences start signaled so the first wait on each slot passes.
func (fr *Frames) Config(dev *Device, computePool, graphicsPool *CmdPool, nslots int) error {
	fr.Dev = dev
	fr.Submit = vk.QueueSubmit
	fr.Wait = vk.WaitForFences
	fr.Reset = vk.ResetFences
	fr.Slots = make([]FrameSync, nslots)
	for i := range fr.Slots {
		sl := &fr.Slots[i]
		sl.ComputeDone = NewSemaphore(dev.Device)
		sl.ImageAcquired = NewSemaphore(dev.Device)
		sl.RenderDone = NewSemaphore(dev.Device)
		sl.Fence = NewFence(dev.Device, true)
		sl.ComputeCmd = computePool.NewBuffer(dev.Device)
		sl.RenderCmd = graphicsPool.NewBuffer(dev.Device)
	}
	return nil
}

// Slot returns the current frame slot.
func (fr *Frames) Slot() *FrameSync {
	return &fr.Slots[fr.Current]
}

// WaitSlot blocks until given slot's completion fence signals,
// returning the slot to Idle.  Returns a TimeoutError if the fence
// does not signal within FenceTimeout.  The fence is left signaled:
// it is reset only just before the next submission that carries it,
// so a cycle aborted between wait and submit cannot deadlock the
// following wait.
func (fr *Frames) WaitSlot(slot int) error {
	sl := &fr.Slots[slot]
	ret := fr.Wait(fr.Dev.Device, 1, []vk.Fence{sl.Fence}, vk.True, uint64(FenceTimeout.Nanoseconds()))
	switch {
	case ret == vk.Timeout:
		return NewTimeoutError("Frames.WaitSlot: slot %d fence not signaled within %v", slot, FenceTimeout)
	case IsError(ret):
		return NewSubmitError(ret, "Frames.WaitSlot: slot %d", slot)
	}
	sl.State = SlotIdle
	return nil
}

// SubmitCompute submits given slot's compute command buffer on the
// compute queue, signaling the slot's ComputeDone semaphore.  The
// slot must be Idle, with its fence already waited on.
func (fr *Frames) SubmitCompute(slot int) error {
	sl := &fr.Slots[slot]
	if sl.State != SlotIdle {
		return fmt.Errorf("%w: Frames.SubmitCompute: slot %d is %s, not Idle", ErrSubmit, slot, sl.State)
	}
	info := ComputeSubmitInfo(sl.ComputeCmd, sl.ComputeDone)
	ret := fr.Submit(fr.Dev.Compute, 1, []vk.SubmitInfo{info}, vk.NullFence)
	if IsError(ret) {
		return NewSubmitError(ret, "Frames.SubmitCompute: slot %d", slot)
	}
	sl.State = SlotComputeSubmitted
	return nil
}

// SubmitRender submits given slot's render command buffer on the
// graphics queue, waiting on the slot's ComputeDone and ImageAcquired
// semaphores, signaling RenderDone and the slot's fence.  Compute
// must have been submitted for the slot first.
func (fr *Frames) SubmitRender(slot int) error {
	sl := &fr.Slots[slot]
	if sl.State != SlotComputeSubmitted {
		return fmt.Errorf("%w: Frames.SubmitRender: slot %d is %s, not ComputeSubmitted", ErrSubmit, slot, sl.State)
	}
	info := RenderSubmitInfo(sl.RenderCmd, sl.ComputeDone, sl.ImageAcquired, sl.RenderDone)
	fr.Reset(fr.Dev.Device, 1, []vk.Fence{sl.Fence})
	ret := fr.Submit(fr.Dev.Graphics, 1, []vk.SubmitInfo{info}, sl.Fence)
	if IsError(ret) {
		return NewSubmitError(ret, "Frames.SubmitRender: slot %d", slot)
	}
	sl.State = SlotRenderSubmitted
	return nil
}

// SubmitComputeWait submits given slot's compute command buffer with
// the slot's fence and blocks until it retires.  For headless use,
// where no render submission follows to carry the fence.  The fence
// is reset here rather than in WaitSlot, so the creation-time signal
// on a slot's first use is cleared before the fence is submitted.
func (fr *Frames) SubmitComputeWait(slot int) error {
	sl := &fr.Slots[slot]
	if sl.State != SlotIdle {
		return fmt.Errorf("%w: Frames.SubmitComputeWait: slot %d is %s, not Idle", ErrSubmit, slot, sl.State)
	}
	fr.Reset(fr.Dev.Device, 1, []vk.Fence{sl.Fence})
	ret := fr.Submit(fr.Dev.Compute, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{sl.ComputeCmd},
	}}, sl.Fence)
	if IsError(ret) {
		return NewSubmitError(ret, "Frames.SubmitComputeWait: slot %d", slot)
	}
	sl.State = SlotComputeSubmitted
	return fr.WaitSlot(slot)
}

// Advance moves to the next frame slot, round-robin.
func (fr *Frames) Advance() {
	fr.Current = (fr.Current + 1) % len(fr.Slots)
}

// Destroy frees all slot synchronization primitives.  Command buffers
// are freed with their pools.
func (fr *Frames) Destroy() {
	if fr.Dev == nil {
		return
	}
	dev := fr.Dev.Device
	for i := range fr.Slots {
		sl := &fr.Slots[i]
		vk.DestroySemaphore(dev, sl.ComputeDone, nil)
		vk.DestroySemaphore(dev, sl.ImageAcquired, nil)
		vk.DestroySemaphore(dev, sl.RenderDone, nil)
		vk.DestroyFence(dev, sl.Fence, nil)
	}
	fr.Slots = nil
	fr.Dev = nil
}

// ComputeSubmitInfo builds the submission for a slot's compute work:
// no waits, signaling done when the dispatch completes.
func ComputeSubmitInfo(cmd vk.CommandBuffer, done vk.Semaphore) vk.SubmitInfo {
	return vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{done},
	}
}

// RenderSubmitInfo builds the submission for a slot's render work.
// The vertex input stage waits on computeDone, so particle positions
// are final before they are read as vertices, while earlier stages
// run freely.  The color attachment output stage waits on
// imageAcquired.  renderDone signals for presentation.
func RenderSubmitInfo(cmd vk.CommandBuffer, computeDone, imageAcquired, renderDone vk.Semaphore) vk.SubmitInfo {
	return vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 2,
		PWaitSemaphores:    []vk.Semaphore{computeDone, imageAcquired},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{renderDone},
	}
}

// NewSemaphore makes a new binary semaphore.
func NewSemaphore(dev vk.Device) vk.Semaphore {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(dev, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	IfPanic(NewError(ret))
	return sem
}

// NewFence makes a new fence, optionally created signaled so the
// first wait on it passes.
func NewFence(dev vk.Device, signaled bool) vk.Fence {
	var flags vk.FenceCreateFlags
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	ret := vk.CreateFence(dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &fence)
	IfPanic(NewError(ret))
	return fence
}
