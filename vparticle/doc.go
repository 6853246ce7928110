// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package vparticle runs a GPU-resident particle simulation where a
compute shader integrates particle positions each frame and a graphics
pipeline draws the same buffers as point primitives, with no CPU copy
in between.

The two queues are synchronized per frame slot with semaphores: the
render submission's vertex input stage waits on the compute
submission, and its color attachment output stage waits on swapchain
image acquisition.  MaxFramesInFlight slots cycle round-robin, each
with its own particle buffer, parameter buffer, semaphores, and
completion fence, so the CPU records one frame while the GPU works on
another.

Create a System with NewSystem (windowed) or NewComputeSystem
(headless), Seed it once with the initial particles, then call
RenderFrame or StepCompute per frame.  See the examples directory.
*/
package vparticle
