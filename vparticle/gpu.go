// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"log"
	"strings"

	vk "github.com/goki/vulkan"
)

// GPU represents the vulkan instance and the physical GPU hardware.
// It is the root context object: create one, Config it, then create
// a Surface and / or System from it.  Destroy last, after everything
// created from it.
type GPU struct {
	// vulkan instance
	Instance vk.Instance

	// the physical GPU device selected for use
	GPU vk.PhysicalDevice

	// name of the physical device, from its properties
	DeviceName string

	// properties of the physical device
	GPUProps vk.PhysicalDeviceProperties

	// memory properties of the physical device
	MemoryProps vk.PhysicalDeviceMemoryProperties

	// instance extensions required, e.g., from the window system --
	// add via AddInstanceExt before Config
	InstanceExts []string

	// device extensions to enable on the logical device
	DeviceExts []string

	// validation layers to enable when Debug is set
	ValidationLayers []string
}

// NewGPU returns a new GPU with platform defaults set.
func NewGPU() *GPU {
	gp := &GPU{}
	gp.Defaults()
	return gp
}

// Defaults sets up default parameters, including platform-specific
// instance and device extensions.
func (gp *GPU) Defaults() {
	gp.ValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	PlatformDefaults(gp)
}

// AddInstanceExt adds given instance extension(s) to the list to enable,
// e.g., those reported by glfw Window.GetRequiredInstanceExtensions.
// Must be called before Config.
func (gp *GPU) AddInstanceExt(exts ...string) {
	gp.InstanceExts = append(gp.InstanceExts, exts...)
}

// Config configures the instance for given app name and selects
// the physical device.  Errors here are ErrInit: not recoverable.
func (gp *GPU) Config(name string) error {
	var layers []string
	if Debug {
		layers = CStrings(gp.ValidationLayers)
	}
	exts := CStrings(gp.InstanceExts)

	var inst vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   CString(name),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        CString("vparticle"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &inst)
	if err := NewError(ret); err != nil {
		return NewInitError("GPU.Config: create instance: %v", err)
	}
	gp.Instance = inst
	vk.InitInstance(inst)

	if err := gp.SelectDevice(); err != nil {
		return err
	}

	vk.GetPhysicalDeviceProperties(gp.GPU, &gp.GPUProps)
	gp.GPUProps.Deref()
	gp.GPUProps.Limits.Deref()
	gp.DeviceName = vk.ToString(gp.GPUProps.DeviceName[:])

	vk.GetPhysicalDeviceMemoryProperties(gp.GPU, &gp.MemoryProps)
	gp.MemoryProps.Deref()

	if Debug {
		log.Printf("vparticle: using GPU: %s\n", gp.DeviceName)
	}
	return nil
}

// SelectDevice selects the physical device to use,
// preferring a discrete GPU when more than one is present.
func (gp *GPU) SelectDevice() error {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(gp.Instance, &count, nil)
	if err := NewError(ret); err != nil {
		return NewInitError("GPU.SelectDevice: enumerate: %v", err)
	}
	if count == 0 {
		return NewInitError("GPU.SelectDevice: no GPUs with vulkan support found")
	}
	devs := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(gp.Instance, &count, devs)
	if err := NewError(ret); err != nil {
		return NewInitError("GPU.SelectDevice: enumerate: %v", err)
	}

	gp.GPU = devs[0]
	for _, dev := range devs {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			gp.GPU = dev
			break
		}
	}
	return nil
}

// MaxComputeWorkGroupCount1D returns the maximum number of compute
// work groups that can be dispatched along the X dimension.
func (gp *GPU) MaxComputeWorkGroupCount1D() int {
	return int(gp.GPUProps.Limits.MaxComputeWorkGroupCount[0])
}

// Destroy destroys the instance.  Call last, after all Surfaces and
// Systems created from this GPU have been destroyed.
func (gp *GPU) Destroy() {
	if gp.Instance != nil {
		vk.DestroyInstance(gp.Instance, nil)
		gp.Instance = nil
	}
}

// CString returns a null-terminated copy of given string,
// as required for all strings passed into vulkan calls.
func CString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// CStrings returns null-terminated copies of given strings.
func CStrings(ss []string) []string {
	cs := make([]string, len(ss))
	for i, s := range ss {
		cs[i] = CString(s)
	}
	return cs
}
