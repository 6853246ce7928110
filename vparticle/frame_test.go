// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fake handles with distinct values, so wiring can be checked without
// a device.  Only valid on desktop platforms where handles are
// pointers, same as TestPtrFuncs.
func fakeSem(v uintptr) vk.Semaphore {
	var s vk.Semaphore
	return vk.Semaphore(unsafe.Add(unsafe.Pointer(s), v))
}

func fakeFence(v uintptr) vk.Fence {
	var f vk.Fence
	return vk.Fence(unsafe.Add(unsafe.Pointer(f), v))
}

func fakeCmd(v uintptr) vk.CommandBuffer {
	var c vk.CommandBuffer
	return vk.CommandBuffer(unsafe.Add(unsafe.Pointer(c), v))
}

func fakeQueue(v uintptr) vk.Queue {
	var q vk.Queue
	return vk.Queue(unsafe.Add(unsafe.Pointer(q), v))
}

func TestComputeSubmitInfo(t *testing.T) {
	cmd := fakeCmd(1)
	done := fakeSem(2)
	info := ComputeSubmitInfo(cmd, done)

	assert.Equal(t, uint32(0), info.WaitSemaphoreCount)
	require.Equal(t, uint32(1), info.CommandBufferCount)
	assert.Equal(t, cmd, info.PCommandBuffers[0])
	require.Equal(t, uint32(1), info.SignalSemaphoreCount)
	assert.Equal(t, done, info.PSignalSemaphores[0])
}

func TestRenderSubmitInfo(t *testing.T) {
	cmd := fakeCmd(1)
	computeDone := fakeSem(2)
	imageAcquired := fakeSem(3)
	renderDone := fakeSem(4)
	info := RenderSubmitInfo(cmd, computeDone, imageAcquired, renderDone)

	require.Equal(t, uint32(2), info.WaitSemaphoreCount)
	require.Len(t, info.PWaitDstStageMask, 2)

	// updated positions must be final before they are read as
	// vertices; the acquired image is only needed at output
	assert.Equal(t, computeDone, info.PWaitSemaphores[0])
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), info.PWaitDstStageMask[0])
	assert.Equal(t, imageAcquired, info.PWaitSemaphores[1])
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), info.PWaitDstStageMask[1])

	require.Equal(t, uint32(1), info.CommandBufferCount)
	assert.Equal(t, cmd, info.PCommandBuffers[0])
	require.Equal(t, uint32(1), info.SignalSemaphoreCount)
	assert.Equal(t, renderDone, info.PSignalSemaphores[0])
}

type submitCall struct {
	queue vk.Queue
	infos []vk.SubmitInfo
	fence vk.Fence
}

func testFrames(nslots int) (*Frames, *[]submitCall) {
	fr := &Frames{
		Dev: &Device{
			Graphics: fakeQueue(100),
			Compute:  fakeQueue(200),
		},
		Slots: make([]FrameSync, nslots),
	}
	for i := range fr.Slots {
		sl := &fr.Slots[i]
		base := uintptr(1000 * (i + 1))
		sl.ComputeDone = fakeSem(base + 1)
		sl.ImageAcquired = fakeSem(base + 2)
		sl.RenderDone = fakeSem(base + 3)
		sl.Fence = fakeFence(base + 4)
		sl.ComputeCmd = fakeCmd(base + 5)
		sl.RenderCmd = fakeCmd(base + 6)
	}
	calls := &[]submitCall{}
	fr.Submit = func(queue vk.Queue, count uint32, infos []vk.SubmitInfo, fence vk.Fence) vk.Result {
		*calls = append(*calls, submitCall{queue, infos, fence})
		return vk.Success
	}
	fr.Wait = func(dev vk.Device, count uint32, fences []vk.Fence, waitAll vk.Bool32, timeout uint64) vk.Result {
		return vk.Success
	}
	fr.Reset = func(dev vk.Device, count uint32, fences []vk.Fence) vk.Result {
		return vk.Success
	}
	return fr, calls
}

func TestFrameCycleWiring(t *testing.T) {
	fr, calls := testFrames(2)
	sl := &fr.Slots[0]

	// render without compute is a protocol violation
	err := fr.SubmitRender(0)
	require.ErrorIs(t, err, ErrSubmit)
	assert.Empty(t, *calls)

	require.NoError(t, fr.SubmitCompute(0))
	assert.Equal(t, SlotComputeSubmitted, sl.State)
	require.Len(t, *calls, 1)
	cc := (*calls)[0]
	assert.Equal(t, fr.Dev.Compute, cc.queue)
	// the compute submission must not carry the slot fence: only the
	// render submission retires the slot
	assert.Equal(t, vk.NullFence, cc.fence)
	require.Len(t, cc.infos, 1)
	assert.Equal(t, sl.ComputeCmd, cc.infos[0].PCommandBuffers[0])
	assert.Equal(t, sl.ComputeDone, cc.infos[0].PSignalSemaphores[0])

	// double compute submit on the same slot is a protocol violation
	err = fr.SubmitCompute(0)
	require.ErrorIs(t, err, ErrSubmit)
	require.Len(t, *calls, 1)

	require.NoError(t, fr.SubmitRender(0))
	assert.Equal(t, SlotRenderSubmitted, sl.State)
	require.Len(t, *calls, 2)
	rc := (*calls)[1]
	assert.Equal(t, fr.Dev.Graphics, rc.queue)
	assert.Equal(t, sl.Fence, rc.fence)
	require.Len(t, rc.infos, 1)
	assert.Equal(t, sl.RenderCmd, rc.infos[0].PCommandBuffers[0])
	assert.Equal(t, sl.ComputeDone, rc.infos[0].PWaitSemaphores[0])
	assert.Equal(t, sl.ImageAcquired, rc.infos[0].PWaitSemaphores[1])
	assert.Equal(t, sl.RenderDone, rc.infos[0].PSignalSemaphores[0])

	// slot 1 is independent of slot 0's state
	require.NoError(t, fr.SubmitCompute(1))
	assert.Equal(t, fr.Slots[1].ComputeDone, (*calls)[2].infos[0].PSignalSemaphores[0])
}

func TestWaitSlotLeavesFenceSignaled(t *testing.T) {
	fr, _ := testFrames(2)
	sl := &fr.Slots[0]
	sl.State = SlotRenderSubmitted

	waited := false
	fr.Wait = func(dev vk.Device, count uint32, fences []vk.Fence, waitAll vk.Bool32, timeout uint64) vk.Result {
		require.Len(t, fences, 1)
		assert.Equal(t, sl.Fence, fences[0])
		assert.Equal(t, uint64(FenceTimeout.Nanoseconds()), timeout)
		waited = true
		return vk.Success
	}
	resets := 0
	fr.Reset = func(dev vk.Device, count uint32, fences []vk.Fence) vk.Result {
		resets++
		return vk.Success
	}

	require.NoError(t, fr.WaitSlot(0))
	assert.True(t, waited)
	// the reset belongs to the next fence-carrying submit, so a cycle
	// aborted between wait and submit cannot deadlock the next wait
	assert.Zero(t, resets)
	assert.Equal(t, SlotIdle, sl.State)

	fr.Wait = func(dev vk.Device, count uint32, fences []vk.Fence, waitAll vk.Bool32, timeout uint64) vk.Result {
		return vk.Timeout
	}
	err := fr.WaitSlot(1)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSubmitRenderResetsFenceFirst(t *testing.T) {
	fr, _ := testFrames(2)
	sl := &fr.Slots[0]
	sl.State = SlotComputeSubmitted

	var ops []string
	fr.Reset = func(dev vk.Device, count uint32, fences []vk.Fence) vk.Result {
		require.Len(t, fences, 1)
		assert.Equal(t, sl.Fence, fences[0])
		ops = append(ops, "reset")
		return vk.Success
	}
	fr.Submit = func(queue vk.Queue, count uint32, infos []vk.SubmitInfo, fence vk.Fence) vk.Result {
		assert.Equal(t, sl.Fence, fence)
		ops = append(ops, "submit")
		return vk.Success
	}

	require.NoError(t, fr.SubmitRender(0))
	assert.Equal(t, []string{"reset", "submit"}, ops)
}

func TestSubmitComputeWaitFenceProtocol(t *testing.T) {
	fr, _ := testFrames(2)
	sl := &fr.Slots[0]

	var ops []string
	fr.Reset = func(dev vk.Device, count uint32, fences []vk.Fence) vk.Result {
		require.Len(t, fences, 1)
		assert.Equal(t, sl.Fence, fences[0])
		ops = append(ops, "reset")
		return vk.Success
	}
	fr.Submit = func(queue vk.Queue, count uint32, infos []vk.SubmitInfo, fence vk.Fence) vk.Result {
		assert.Equal(t, fr.Dev.Compute, queue)
		assert.Equal(t, sl.Fence, fence)
		require.Len(t, infos, 1)
		// headless submits carry no semaphores: the fence wait below
		// is the only ordering needed
		assert.Equal(t, uint32(0), infos[0].WaitSemaphoreCount)
		assert.Equal(t, uint32(0), infos[0].SignalSemaphoreCount)
		assert.Equal(t, sl.ComputeCmd, infos[0].PCommandBuffers[0])
		ops = append(ops, "submit")
		return vk.Success
	}
	fr.Wait = func(dev vk.Device, count uint32, fences []vk.Fence, waitAll vk.Bool32, timeout uint64) vk.Result {
		assert.Equal(t, sl.Fence, fences[0])
		ops = append(ops, "wait")
		return vk.Success
	}

	// the fence starts life signaled, so on the slot's first use it
	// must be cleared before it is handed to the queue, and the wait
	// must come after the submit so the dispatch has retired when
	// this returns
	require.NoError(t, fr.SubmitComputeWait(0))
	assert.Equal(t, []string{"reset", "submit", "wait"}, ops)
	assert.Equal(t, SlotIdle, sl.State)

	// protocol violation still short-circuits before any fence touch
	sl.State = SlotComputeSubmitted
	ops = nil
	err := fr.SubmitComputeWait(0)
	require.ErrorIs(t, err, ErrSubmit)
	assert.Empty(t, ops)
}

func TestSubmitFailureIsFatal(t *testing.T) {
	fr, _ := testFrames(2)
	fr.Submit = func(queue vk.Queue, count uint32, infos []vk.SubmitInfo, fence vk.Fence) vk.Result {
		return vk.ErrorDeviceLost
	}

	err := fr.SubmitCompute(0)
	require.ErrorIs(t, err, ErrSubmit)
	// the slot must not look submitted: the cycle is unrecoverable,
	// not retryable
	assert.Equal(t, SlotIdle, fr.Slots[0].State)

	fr.Slots[1].State = SlotComputeSubmitted
	err = fr.SubmitRender(1)
	require.ErrorIs(t, err, ErrSubmit)
	assert.Equal(t, SlotComputeSubmitted, fr.Slots[1].State)
}

func TestAdvanceRoundRobin(t *testing.T) {
	fr, _ := testFrames(2)
	assert.Equal(t, 0, fr.Current)
	fr.Advance()
	assert.Equal(t, 1, fr.Current)
	fr.Advance()
	assert.Equal(t, 0, fr.Current)
	assert.Same(t, &fr.Slots[0], fr.Slot())
}
