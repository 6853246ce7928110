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

// The GPU-side particle layout is fixed: any drift here breaks the
// shaders silently.
func TestParticleLayout(t *testing.T) {
	assert.Equal(t, 32, ParticleSize)
	assert.Equal(t, uintptr(0), unsafe.Offsetof(Particle{}.Pos))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(Particle{}.Vel))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(Particle{}.Color))
}

func TestVertexDescriptions(t *testing.T) {
	bind := VertexBindingDescription()
	assert.Equal(t, uint32(0), bind.Binding)
	assert.Equal(t, uint32(32), bind.Stride)
	assert.Equal(t, vk.VertexInputRateVertex, bind.InputRate)

	attrs := VertexAttributeDescriptions()
	require.Len(t, attrs, 2)

	assert.Equal(t, uint32(0), attrs[0].Location)
	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[0].Format)
	assert.Equal(t, uint32(0), attrs[0].Offset)

	assert.Equal(t, uint32(1), attrs[1].Location)
	assert.Equal(t, vk.FormatR32g32b32a32Sfloat, attrs[1].Format)
	assert.Equal(t, uint32(16), attrs[1].Offset)
}

func TestSeedValidation(t *testing.T) {
	var uploads []int
	pb := &ParticleBuffers{
		Count: 4,
		Slots: make([]ParticleBuffer, 2),
		Upload: func(slot int, data []Particle) error {
			uploads = append(uploads, slot)
			return nil
		},
	}

	// count mismatch is rejected before any upload
	err := pb.Seed(make([]Particle, 3))
	require.ErrorIs(t, err, ErrInit)
	assert.Empty(t, uploads)
	assert.False(t, pb.Seeded())

	err = pb.Seed(make([]Particle, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, uploads)
	assert.True(t, pb.Seeded())

	// second seed is rejected before any upload
	err = pb.Seed(make([]Particle, 4))
	require.ErrorIs(t, err, ErrInit)
	assert.Equal(t, []int{0, 1}, uploads)
}

func TestSeedUploadFailure(t *testing.T) {
	fail := NewSubmitError(vk.ErrorDeviceLost, "copy")
	pb := &ParticleBuffers{
		Count: 2,
		Slots: make([]ParticleBuffer, 2),
		Upload: func(slot int, data []Particle) error {
			return fail
		},
	}
	err := pb.Seed(make([]Particle, 2))
	require.ErrorIs(t, err, ErrSubmit)
	assert.False(t, pb.Seeded())
}
