// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"log"

	vk "github.com/goki/vulkan"
)

// Surface manages the window surface and its swapchain, including
// image acquisition, presentation, and recreation on resize.
type Surface struct {
	GP  *GPU
	Dev *Device

	Surface vk.Surface

	// chosen surface format
	Format vk.SurfaceFormat

	// current swapchain extent in pixels
	Extent vk.Extent2D

	Swapchain vk.Swapchain

	Images []vk.Image
	Views  []vk.ImageView
}

// Init configures the surface for given vulkan surface handle,
// selecting a format and creating the initial swapchain.
func (sf *Surface) Init(gp *GPU, dev *Device, surface vk.Surface) error {
	sf.GP = gp
	sf.Dev = dev
	sf.Surface = surface
	if err := sf.SelectFormat(); err != nil {
		return err
	}
	return sf.ConfigSwapchain()
}

// SelectFormat picks the surface format, preferring 8-bit BGRA srgb.
func (sf *Surface) SelectFormat() error {
	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(sf.GP.GPU, sf.Surface, &count, nil)
	if count == 0 {
		return NewInitError("Surface.SelectFormat: no surface formats available")
	}
	formats := make([]vk.SurfaceFormat, count)
	vk.GetPhysicalDeviceSurfaceFormats(sf.GP.GPU, sf.Surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}
	sf.Format = formats[0]
	for _, fm := range formats {
		if fm.Format == vk.FormatB8g8r8a8Srgb && fm.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			sf.Format = fm
			break
		}
	}
	return nil
}

// ConfigSwapchain creates the swapchain for the surface's current
// capabilities, in Fifo present mode, along with the image views.
func (sf *Surface) ConfigSwapchain() error {
	dev := sf.Dev.Device

	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(sf.GP.GPU, sf.Surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	sf.Extent = caps.CurrentExtent

	imgCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imgCount > caps.MaxImageCount {
		imgCount = caps.MaxImageCount
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	alphaModes := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, am := range alphaModes {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(am) != 0 {
			compositeAlpha = am
			break
		}
	}

	preTransform := caps.CurrentTransform
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	oldSwapchain := sf.Swapchain
	var swapchain vk.Swapchain
	ret := vk.CreateSwapchain(dev, &vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         sf.Surface,
		MinImageCount:   imgCount,
		ImageFormat:     sf.Format.Format,
		ImageColorSpace: sf.Format.ColorSpace,
		ImageExtent:     sf.Extent,
		ImageUsage:      vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:    preTransform,
		CompositeAlpha:  compositeAlpha,
		// Fifo is the only mode guaranteed to exist, and paces the
		// frame loop to the display refresh.
		PresentMode:      vk.PresentModeFifo,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
		Clipped:          vk.True,
	}, nil, &swapchain)
	if err := NewError(ret); err != nil {
		return NewInitError("Surface.ConfigSwapchain: %v", err)
	}
	sf.Swapchain = swapchain
	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(dev, oldSwapchain, nil)
	}

	var nimg uint32
	vk.GetSwapchainImages(dev, sf.Swapchain, &nimg, nil)
	sf.Images = make([]vk.Image, nimg)
	vk.GetSwapchainImages(dev, sf.Swapchain, &nimg, sf.Images)

	sf.Views = make([]vk.ImageView, nimg)
	for i, img := range sf.Images {
		var view vk.ImageView
		ret := vk.CreateImageView(dev, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   sf.Format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		IfPanic(NewError(ret))
		sf.Views[i] = view
	}

	if Debug {
		log.Printf("vparticle: swapchain configured: %d images, %dx%d\n",
			nimg, sf.Extent.Width, sf.Extent.Height)
	}
	return nil
}

// FreeSwapchain destroys the image views and swapchain.
func (sf *Surface) FreeSwapchain() {
	dev := sf.Dev.Device
	vk.DeviceWaitIdle(dev)
	for _, view := range sf.Views {
		vk.DestroyImageView(dev, view, nil)
	}
	sf.Views = nil
	sf.Images = nil
	if sf.Swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(dev, sf.Swapchain, nil)
		sf.Swapchain = vk.NullSwapchain
	}
}

// ReInitSwapchain recreates the swapchain after a resize or an
// out-of-date result from acquire or present.
func (sf *Surface) ReInitSwapchain() error {
	sf.FreeSwapchain()
	return sf.ConfigSwapchain()
}

// AcquireNextImage acquires the next swapchain image, signaling given
// semaphore when the image is ready for rendering.  A false ok return
// means the swapchain is out of date and must be recreated before
// trying again.
func (sf *Surface) AcquireNextImage(sem vk.Semaphore) (idx uint32, ok bool, err error) {
	ret := vk.AcquireNextImage(sf.Dev.Device, sf.Swapchain, vk.MaxUint64, sem, vk.NullFence, &idx)
	switch {
	case ret == vk.ErrorOutOfDate:
		return 0, false, nil
	case ret == vk.Success || ret == vk.Suboptimal:
		return idx, true, nil
	}
	return 0, false, NewSubmitError(ret, "Surface.AcquireNextImage")
}

// PresentImage presents given swapchain image on the graphics queue,
// waiting on given semaphore.  A false ok return means the swapchain
// is out of date or suboptimal and must be recreated.
func (sf *Surface) PresentImage(idx uint32, wait vk.Semaphore) (ok bool, err error) {
	ret := vk.QueuePresent(sf.Dev.Graphics, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sf.Swapchain},
		PImageIndices:      []uint32{idx},
	})
	switch {
	case ret == vk.ErrorOutOfDate || ret == vk.Suboptimal:
		return false, nil
	case ret == vk.Success:
		return true, nil
	}
	return false, NewSubmitError(ret, "Surface.PresentImage")
}

// Destroy frees the swapchain and the surface.
func (sf *Surface) Destroy() {
	if sf.Dev == nil {
		return
	}
	sf.FreeSwapchain()
	if sf.Surface != vk.NullSurface {
		vk.DestroySurface(sf.GP.Instance, sf.Surface, nil)
		sf.Surface = vk.NullSurface
	}
	sf.Dev = nil
}
