// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumGroups(t *testing.T) {
	assert.Equal(t, 1, NumGroups(1, GroupSizeX))
	assert.Equal(t, 1, NumGroups(255, GroupSizeX))
	assert.Equal(t, 1, NumGroups(256, GroupSizeX))
	assert.Equal(t, 2, NumGroups(257, GroupSizeX))
	assert.Equal(t, 4, NumGroups(1000, GroupSizeX))
	assert.Equal(t, 16, NumGroups(4096, GroupSizeX))
}

func TestNumGroupsCoversAll(t *testing.T) {
	for _, n := range []int{1, 100, 256, 1000, 4095, 4096, 100000} {
		ng := NumGroups(n, GroupSizeX)
		assert.GreaterOrEqual(t, ng*GroupSizeX, n, "n=%d", n)
		assert.Less(t, (ng-1)*GroupSizeX, n, "n=%d", n)
	}
}
