// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamBlockSize(t *testing.T) {
	// must match the std140 uniform block in the compute shader
	assert.Equal(t, 16, ParamBlockSize)
}

func TestParamsSlotIsolation(t *testing.T) {
	pr := &Params{
		Mapped: []*ParamBlock{{}, {}},
	}
	pr.Set(0, 0.016)
	pr.Set(1, 0.033)
	assert.Equal(t, float32(0.016), pr.Mapped[0].Dt)
	assert.Equal(t, float32(0.033), pr.Mapped[1].Dt)

	// rewriting one slot leaves the other's in-flight value alone
	pr.Set(0, 0.5)
	assert.Equal(t, float32(0.5), pr.Mapped[0].Dt)
	assert.Equal(t, float32(0.033), pr.Mapped[1].Dt)
}
