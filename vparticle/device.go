// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	vk "github.com/goki/vulkan"
)

// Device holds the logical device and the two queues this package
// submits to: a graphics-capable queue (which must also support
// presentation when a Surface is in use) and a compute-capable queue.
// The two may resolve to the same queue family, or even the same queue.
// Ordering between submissions on them is never assumed from submission
// order: it is always enforced with semaphores (see Frames).
type Device struct {
	// logical device
	Device vk.Device

	// queue family index for the graphics queue
	GraphicsIndex uint32

	// queue used for render submissions and presentation
	Graphics vk.Queue

	// queue family index for the compute queue
	ComputeIndex uint32

	// queue used for compute dispatch submissions
	Compute vk.Queue

	// whether the device was created for presentation,
	// requiring the swapchain extension
	Presents bool
}

// Init initializes the logical device and its queues for given gpu,
// with optional vulkan surface that the graphics queue must be able
// to present to.  Pass vk.NullSurface for compute-only (headless) use,
// in which case the graphics queue is still created, for buffer
// transfer commands.
func (dv *Device) Init(gp *GPU, surface vk.Surface) error {
	dv.Presents = surface != vk.NullSurface
	if err := dv.FindQueues(gp, surface); err != nil {
		return err
	}
	return dv.MakeDevice(gp)
}

// FindQueues finds the graphics(+present) and compute queue family
// indexes, setting GraphicsIndex and ComputeIndex.
func (dv *Device) FindQueues(gp *GPU, surface vk.Surface) error {
	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &queueCount, nil)
	queueProps := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &queueCount, queueProps)
	if queueCount == 0 {
		return NewInitError("Device.FindQueues: no queue families found on GPU")
	}

	foundGraphics := false
	foundCompute := false
	for i := uint32(0); i < queueCount; i++ {
		queueProps[i].Deref()
		flags := queueProps[i].QueueFlags
		if !foundCompute && flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			dv.ComputeIndex = i
			foundCompute = true
		}
		if !foundGraphics && flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			if surface != vk.NullSurface {
				var present vk.Bool32
				vk.GetPhysicalDeviceSurfaceSupport(gp.GPU, i, surface, &present)
				if !present.B() {
					continue
				}
			}
			dv.GraphicsIndex = i
			foundGraphics = true
		}
	}
	if !foundGraphics {
		return NewInitError("Device.FindQueues: no graphics queue with required present support")
	}
	if !foundCompute {
		return NewInitError("Device.FindQueues: no compute-capable queue found")
	}
	return nil
}

// MakeDevice creates the logical Device and gets the Graphics and
// Compute queues, based on the previously-found queue indexes.
func (dv *Device) MakeDevice(gp *GPU) error {
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: dv.GraphicsIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	if dv.ComputeIndex != dv.GraphicsIndex {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: dv.ComputeIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	var layers []string
	if Debug {
		layers = CStrings(gp.ValidationLayers)
	}
	extNames := gp.DeviceExts
	if dv.Presents {
		extNames = append([]string{vk.KhrSwapchainExtensionName}, extNames...)
	}
	exts := CStrings(extNames)

	var device vk.Device
	ret := vk.CreateDevice(gp.GPU, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}, nil, &device)
	if err := NewError(ret); err != nil {
		return NewInitError("Device.MakeDevice: %v", err)
	}
	dv.Device = device

	vk.GetDeviceQueue(dv.Device, dv.GraphicsIndex, 0, &dv.Graphics)
	vk.GetDeviceQueue(dv.Device, dv.ComputeIndex, 0, &dv.Compute)
	return nil
}

// Destroy waits for the device to go idle and destroys it.
func (dv *Device) Destroy() {
	if dv.Device == nil {
		return
	}
	vk.DeviceWaitIdle(dv.Device)
	vk.DestroyDevice(dv.Device, nil)
	dv.Device = nil
}
