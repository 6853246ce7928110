// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"errors"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// TestPtrFuncs can only be run on desktop platform where actual pointers are used
func TestPtrFuncs(t *testing.T) {
	var ptr32bit uint64
	var cmdPool vk.CommandPool

	if !IsNil(ptr32bit) {
		t.Errorf("ptr32bit should be nil!\n")
	}
	if !IsNil(cmdPool) {
		t.Errorf("cmdPool should be nil!\n")
	}

	ptr32bit = 10
	cmdPool = vk.CommandPool(unsafe.Add(unsafe.Pointer(cmdPool), 100))

	if IsNil(ptr32bit) {
		t.Errorf("ptr32bit should not be nil!\n")
	}
	if IsNil(cmdPool) {
		t.Errorf("cmdPool should not be nil!\n")
	}

	SetNil(unsafe.Pointer(&ptr32bit))
	SetNil(unsafe.Pointer(&cmdPool))

	if !IsNil(ptr32bit) {
		t.Errorf("ptr32bit should be nil!\n")
	}
	if !IsNil(cmdPool) {
		t.Errorf("cmdPool should be nil!\n")
	}

}

func TestErrorKinds(t *testing.T) {
	ie := NewInitError("device %d missing", 0)
	if !errors.Is(ie, ErrInit) {
		t.Errorf("init error should match ErrInit: %v\n", ie)
	}
	se := NewSubmitError(vk.ErrorDeviceLost, "queue submit")
	if !errors.Is(se, ErrSubmit) {
		t.Errorf("submit error should match ErrSubmit: %v\n", se)
	}
	if errors.Is(se, ErrInit) {
		t.Errorf("submit error should not match ErrInit: %v\n", se)
	}
	te := NewTimeoutError("fence wait")
	if !errors.Is(te, ErrTimeout) {
		t.Errorf("timeout error should match ErrTimeout: %v\n", te)
	}

	if NewError(vk.Success) != nil {
		t.Errorf("Success should not produce an error\n")
	}
	if NewError(vk.ErrorOutOfDeviceMemory) == nil {
		t.Errorf("ErrorOutOfDeviceMemory should produce an error\n")
	}
	if IsError(vk.Success) || IsError(vk.Suboptimal) {
		t.Errorf("non-negative results are not errors\n")
	}
	if !IsError(vk.ErrorDeviceLost) {
		t.Errorf("ErrorDeviceLost is an error\n")
	}
}
