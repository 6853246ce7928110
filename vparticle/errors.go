// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Debug enables verbose logging and the Vulkan validation layers.
// Set before calling GPU.Config.
var Debug = false

// Error categories for everything that can go wrong in this package.
// All are fatal: nothing here is silently recovered or retried.
var (
	// ErrInit is any failure during resource creation (buffers, pipelines,
	// swapchain, seeding) -- aborts startup.
	ErrInit = errors.New("vparticle: initialization error")

	// ErrSubmit is a queue submission failure or a device-lost condition.
	// A cycle that hits ErrSubmit must not be retried: re-submitting could
	// re-signal an already-signaled semaphore, which is undefined.
	ErrSubmit = errors.New("vparticle: submission error")

	// ErrTimeout is a bounded fence or queue wait that expired.
	// Treated the same as ErrSubmit (fatal), surfaced distinctly
	// for diagnostics.
	ErrTimeout = errors.New("vparticle: timeout")
)

// NewInitError returns an ErrInit-wrapping error with given context.
func NewInitError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInit, fmt.Sprintf(format, args...))
}

// NewSubmitError returns an ErrSubmit-wrapping error for given vulkan
// result and context.
func NewSubmitError(ret vk.Result, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %v", ErrSubmit, fmt.Sprintf(format, args...), vk.Error(ret))
}

// NewTimeoutError returns an ErrTimeout-wrapping error with given context.
func NewTimeoutError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTimeout, fmt.Sprintf(format, args...))
}

// NewError returns error for given vulkan result code,
// nil if the result is vk.Success.
func NewError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return vk.Error(ret)
}

// IsError returns true if the given result is an actual error code.
// Non-error status codes such as vk.Suboptimal and vk.Timeout are
// positive and must be handled by the caller.
func IsError(ret vk.Result) bool {
	return ret < 0
}

// IfPanic panics on non-nil error, after running any finalizers,
// for errors that indicate a hopelessly broken vulkan state.
func IfPanic(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	panic(err)
}

// CheckErr recovers a panic into the given error pointer,
// for use via defer in functions that return errors.
func CheckErr(err *error) {
	if v := recover(); v != nil {
		switch r := v.(type) {
		case error:
			*err = r
		default:
			*err = fmt.Errorf("vparticle: panic: %v", v)
		}
		if Debug {
			log.Println(*err)
		}
	}
}

// Vulkan handles are pointers on 64bit desktop systems and uint64
// otherwise, so generic code cannot compare them against nil directly.

// IsNil returns true if the given vulkan handle is effectively nil.
func IsNil(handle any) bool {
	rv := reflect.ValueOf(handle)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer:
		return rv.Pointer() == 0
	default:
		return rv.IsZero()
	}
}

// SetNil sets the given vulkan handle, passed as a pointer to the
// handle variable, to its nil value.
func SetNil(handlePtr unsafe.Pointer) {
	*(*uintptr)(handlePtr) = 0
}
