// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemWorkGroupLimit(t *testing.T) {
	gp := &GPU{}
	gp.GPUProps.Limits.MaxComputeWorkGroupCount = [3]uint32{16, 16, 16}
	sy := &System{GP: gp}

	// 16 groups of GroupSizeX fit exactly; one more particle needs a
	// 17th group, over the device limit
	err := sy.configCommon(16*GroupSizeX+1, ShaderCode{})
	require.ErrorIs(t, err, ErrInit)
	assert.Equal(t, 16, gp.MaxComputeWorkGroupCount1D())
}
