// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	vk "github.com/goki/vulkan"
)

// System owns the full particle simulation and rendering state for
// one GPU: device, buffers, pipelines, and the frame cycle.  Create
// with NewSystem for windowed use or NewComputeSystem for headless
// compute and readback.
type System struct {
	GP     *GPU
	Device Device

	// nil in headless systems
	Surf *Surface

	ComputeCmds  CmdPool
	GraphicsCmds CmdPool

	Particles   ParticleBuffers
	Params      Params
	Descriptors ComputeDescriptors

	Compute  ComputePipeline
	Graphics GraphicsPipeline
	Render   Render

	Frames Frames

	// number of particles, fixed at creation
	Count int
}

// ShaderCode holds the SPIR-V bytecode for the system's shaders.
// Frag and Vert may be nil for headless systems.
type ShaderCode struct {
	Comp []byte
	Vert []byte
	Frag []byte
}

// NewSystem creates a windowed system rendering count particles to
// given vulkan surface.  Seed must be called before the first
// RenderFrame.  Vulkan panics during configuration are recovered
// into the returned error.
func NewSystem(gp *GPU, surface vk.Surface, count int, code ShaderCode) (sys *System, err error) {
	defer CheckErr(&err)
	sy := &System{GP: gp, Count: count}
	if err := sy.Device.Init(gp, surface); err != nil {
		return nil, err
	}
	sy.Surf = &Surface{}
	if err := sy.Surf.Init(gp, &sy.Device, surface); err != nil {
		return nil, err
	}
	if err := sy.configCommon(count, code); err != nil {
		return nil, err
	}
	if err := sy.Render.Config(&sy.Device, sy.Surf.Format.Format); err != nil {
		return nil, err
	}
	sy.Render.ConfigFrames(sy.Surf.Views, sy.Surf.Extent)
	if err := sy.Graphics.Config(sy.Device.Device, sy.Render.VkRenderPass, code.Vert, code.Frag); err != nil {
		return nil, err
	}
	return sy, nil
}

// NewComputeSystem creates a headless system: compute dispatch and
// host readback only, with no surface or graphics pipeline.  Vulkan
// panics during configuration are recovered into the returned error.
func NewComputeSystem(gp *GPU, count int, code ShaderCode) (sys *System, err error) {
	defer CheckErr(&err)
	sy := &System{GP: gp, Count: count}
	if err := sy.Device.Init(gp, vk.NullSurface); err != nil {
		return nil, err
	}
	if err := sy.configCommon(count, code); err != nil {
		return nil, err
	}
	return sy, nil
}

// configCommon sets up everything both system kinds share: command
// pools, particle and parameter buffers, descriptors, the compute
// pipeline, and the frame slots.
func (sy *System) configCommon(count int, code ShaderCode) error {
	if ng := NumGroups(count, GroupSizeX); ng > sy.GP.MaxComputeWorkGroupCount1D() {
		return NewInitError("System: %d particles need %d work groups, device limit is %d",
			count, ng, sy.GP.MaxComputeWorkGroupCount1D())
	}
	dev := &sy.Device
	sy.ComputeCmds.ConfigResettable(dev.Device, dev.ComputeIndex)
	sy.GraphicsCmds.ConfigResettable(dev.Device, dev.GraphicsIndex)

	if err := sy.Particles.Alloc(sy.GP, dev, count, MaxFramesInFlight); err != nil {
		return err
	}
	if err := sy.Params.Alloc(sy.GP, dev, MaxFramesInFlight); err != nil {
		return err
	}
	sy.Descriptors.Config(dev.Device, MaxFramesInFlight)
	for i := 0; i < MaxFramesInFlight; i++ {
		sy.Descriptors.Update(dev.Device, i, sy.Params.Buffers[i], sy.Particles.Slots[i].Buffer, count)
	}
	if err := sy.Compute.Config(dev.Device, sy.Descriptors.Layout, "particle.comp", code.Comp); err != nil {
		return err
	}
	return sy.Frames.Config(dev, &sy.ComputeCmds, &sy.GraphicsCmds, MaxFramesInFlight)
}

// Seed uploads the initial particle data to every frame slot.
// Must be called exactly once, before the first frame.
func (sy *System) Seed(data []Particle) error {
	return sy.Particles.Seed(data)
}

// RenderFrame runs one full frame cycle on the current slot with
// given timestep: wait for the slot's fence, write its parameters,
// submit compute, acquire a swapchain image, submit render, present,
// and advance to the next slot.  Any error is fatal to the system.
// Returns after swapchain recreation without rendering when the
// window has resized, so a frame may occasionally be skipped.
func (sy *System) RenderFrame(dt float32) error {
	if !sy.Particles.Seeded() {
		return NewInitError("System.RenderFrame: particle buffers not seeded")
	}
	slot := sy.Frames.Current
	sl := sy.Frames.Slot()

	if err := sy.Frames.WaitSlot(slot); err != nil {
		return err
	}
	sy.Params.Set(slot, dt)

	CmdResetBegin(sl.ComputeCmd)
	RecordCompute(sl.ComputeCmd, &sy.Compute, sy.Descriptors.Sets[slot], sy.Count)
	CmdEnd(sl.ComputeCmd)
	if err := sy.Frames.SubmitCompute(slot); err != nil {
		return err
	}

	imgIdx, ok, err := sy.Surf.AcquireNextImage(sl.ImageAcquired)
	if err != nil {
		return err
	}
	if !ok {
		return sy.recreateSwapchain()
	}

	CmdResetBegin(sl.RenderCmd)
	sy.Render.RecordDraw(sl.RenderCmd, &sy.Graphics, imgIdx, sy.Surf.Extent,
		sy.Particles.Slots[slot].Buffer, sy.Count)
	CmdEnd(sl.RenderCmd)
	if err := sy.Frames.SubmitRender(slot); err != nil {
		return err
	}

	ok, err = sy.Surf.PresentImage(imgIdx, sl.RenderDone)
	if err != nil {
		return err
	}
	if !ok {
		if err := sy.recreateSwapchain(); err != nil {
			return err
		}
	}
	sy.Frames.Advance()
	return nil
}

// recreateSwapchain rebuilds the swapchain and framebuffers after a
// resize or out-of-date result, first draining any slot whose compute
// submission signaled ComputeDone without a render submission to
// consume it.  A binary semaphore must not be signaled twice.
func (sy *System) recreateSwapchain() error {
	vk.DeviceWaitIdle(sy.Device.Device)
	for i := range sy.Frames.Slots {
		sl := &sy.Frames.Slots[i]
		if sl.State != SlotComputeSubmitted {
			continue
		}
		sy.Frames.Reset(sy.Device.Device, 1, []vk.Fence{sl.Fence})
		ret := sy.Frames.Submit(sy.Device.Graphics, 1, []vk.SubmitInfo{{
			SType:              vk.StructureTypeSubmitInfo,
			WaitSemaphoreCount: 1,
			PWaitSemaphores:    []vk.Semaphore{sl.ComputeDone},
			PWaitDstStageMask: []vk.PipelineStageFlags{
				vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			},
		}}, sl.Fence)
		if IsError(ret) {
			return NewSubmitError(ret, "System.recreateSwapchain: semaphore drain")
		}
		sl.State = SlotRenderSubmitted
	}
	vk.DeviceWaitIdle(sy.Device.Device)
	if err := sy.Surf.ReInitSwapchain(); err != nil {
		return err
	}
	sy.Render.ConfigFrames(sy.Surf.Views, sy.Surf.Extent)
	return nil
}

// StepCompute runs one headless compute step on the current slot:
// write parameters, dispatch, and block until complete.  The updated
// particles can then be read with ReadBack.
func (sy *System) StepCompute(dt float32) error {
	if !sy.Particles.Seeded() {
		return NewInitError("System.StepCompute: particle buffers not seeded")
	}
	slot := sy.Frames.Current
	sl := sy.Frames.Slot()

	sy.Params.Set(slot, dt)
	CmdResetBegin(sl.ComputeCmd)
	RecordCompute(sl.ComputeCmd, &sy.Compute, sy.Descriptors.Sets[slot], sy.Count)
	CmdEnd(sl.ComputeCmd)
	if err := sy.Frames.SubmitComputeWait(slot); err != nil {
		return err
	}
	sy.Frames.Advance()
	return nil
}

// ReadBack returns the current contents of given slot's particle
// buffer.
func (sy *System) ReadBack(slot int) ([]Particle, error) {
	return sy.Particles.ReadBack(slot)
}

// Destroy waits for the device to go idle and frees everything, in
// reverse creation order.  The GPU instance is not destroyed; that is
// the caller's, shared across systems.
func (sy *System) Destroy() {
	if sy.Device.Device == nil {
		return
	}
	vk.DeviceWaitIdle(sy.Device.Device)
	sy.Frames.Destroy()
	sy.Graphics.Destroy(sy.Device.Device)
	sy.Render.Destroy()
	sy.Compute.Destroy(sy.Device.Device)
	sy.Descriptors.Destroy(sy.Device.Device)
	sy.Params.Destroy()
	sy.Particles.Destroy()
	sy.GraphicsCmds.Destroy(sy.Device.Device)
	sy.ComputeCmds.Destroy(sy.Device.Device)
	if sy.Surf != nil {
		sy.Surf.Destroy()
		sy.Surf = nil
	}
	sy.Device.Destroy()
}
