// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build (darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd

package vparticle

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// note: this file contains the glfw dependencies, for desktop platform builds.
// other platforms need to provide their own Init() and Terminate() methods.

// Init initializes the vulkan system via glfw.
// Must be called before any other use of this package.
// IMPORTANT: must be called on the main initial thread!
func Init() error {
	if err := glfw.Init(); err != nil {
		return NewInitError("glfw init: %v", err)
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return NewInitError("vulkan init: %v", err)
	}
	return nil
}

// Terminate shuts down the vulkan system -- call as the last thing
// before quitting.
// IMPORTANT: must be called on the main initial thread!
func Terminate() {
	glfw.Terminate()
}
