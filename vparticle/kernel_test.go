// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"goki.dev/mat32/v2"
)

func randParticles(n int, seed int64) []Particle {
	rnd := rand.New(rand.NewSource(seed))
	ps := make([]Particle, n)
	for i := range ps {
		ps[i] = Particle{
			Pos:   mat32.Vec2{X: rnd.Float32()*2 - 1, Y: rnd.Float32()*2 - 1},
			Vel:   mat32.Vec2{X: rnd.Float32() - 0.5, Y: rnd.Float32() - 0.5},
			Color: mat32.Vec4{X: rnd.Float32(), Y: rnd.Float32(), Z: rnd.Float32(), W: 1},
		}
	}
	return ps
}

func TestStepIntegrates(t *testing.T) {
	ps := []Particle{
		{Pos: mat32.Vec2{X: 0, Y: 0}, Vel: mat32.Vec2{X: 1, Y: -2}},
		{Pos: mat32.Vec2{X: 0.5, Y: 0.5}, Vel: mat32.Vec2{X: 0, Y: 4}},
	}
	Step(ps, 0.25)
	assert.Equal(t, mat32.Vec2{X: 0.25, Y: -0.5}, ps[0].Pos)
	assert.Equal(t, mat32.Vec2{X: 0.5, Y: 1.5}, ps[1].Pos)
	// velocity and color are carried through untouched
	assert.Equal(t, mat32.Vec2{X: 1, Y: -2}, ps[0].Vel)
}

func TestStepZeroDtIsIdentity(t *testing.T) {
	ps := randParticles(1000, 42)
	orig := make([]Particle, len(ps))
	copy(orig, ps)
	Step(ps, 0)
	assert.Equal(t, orig, ps)
}

func TestStepDeterministic(t *testing.T) {
	a := randParticles(4096, 7)
	b := make([]Particle, len(a))
	copy(b, a)
	for i := 0; i < 10; i++ {
		Step(a, 1.0/60)
		Step(b, 1.0/60)
	}
	assert.Equal(t, a, b)
}

func TestStepIndexBoundsGuard(t *testing.T) {
	// 1000 particles dispatch 4 groups = 1024 invocations; the
	// trailing 24 must be no-ops
	ps := randParticles(1000, 3)
	orig := make([]Particle, len(ps))
	copy(orig, ps)
	for i := len(ps); i < NumGroups(len(ps), GroupSizeX)*GroupSizeX; i++ {
		StepIndex(ps, i, 0.5)
	}
	assert.Equal(t, orig, ps)
}
