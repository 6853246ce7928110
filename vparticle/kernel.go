// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

// This is the Go reference version of the particle update kernel,
// mirroring examples/particles/particle.comp line for line.  It is
// what the GPU results are verified against.

// StepIndex integrates one particle, the same work one compute shader
// invocation does, including the bounds guard for the overshoot
// invocations in the final workgroup.
func StepIndex(ps []Particle, idx int, dt float32) {
	if idx >= len(ps) {
		return
	}
	p := &ps[idx]
	p.Pos.X += p.Vel.X * dt
	p.Pos.Y += p.Vel.Y * dt
}

// Step integrates all particles by dt, dispatching StepIndex over the
// same index range the GPU covers: NumGroups full workgroups.
func Step(ps []Particle, dt float32) {
	n := NumGroups(len(ps), GroupSizeX) * GroupSizeX
	for i := 0; i < n; i++ {
		StepIndex(ps, i, dt)
	}
}
