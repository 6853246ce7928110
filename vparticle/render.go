// Copyright (c) 2023, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vparticle

import (
	vk "github.com/goki/vulkan"
)

// Render manages the color-only render pass that draws the particles,
// and its per-swapchain-image framebuffers.
type Render struct {
	Dev *Device

	// surface format the pass renders to
	Format vk.Format

	VkRenderPass vk.RenderPass

	// clear color for the single color attachment
	ClearColor [4]float32

	// one framebuffer per swapchain image
	Frames []vk.Framebuffer
}

// Config creates the render pass for given surface format, with a
// single color attachment cleared at load and transitioned to present
// layout at the end of the pass.
func (rd *Render) Config(dev *Device, format vk.Format) error {
	rd.Dev = dev
	rd.Format = format
	rd.ClearColor = [4]float32{0, 0, 0, 1}

	var pass vk.RenderPass
	ret := vk.CreateRenderPass(dev.Device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments: []vk.AttachmentDescription{{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		}},
		SubpassCount: 1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: 1,
			PColorAttachments: []vk.AttachmentReference{{
				Attachment: 0,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			}},
		}},
		DependencyCount: 1,
		PDependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}},
	}, nil, &pass)
	if err := NewError(ret); err != nil {
		return NewInitError("Render.Config: %v", err)
	}
	rd.VkRenderPass = pass
	return nil
}

// SetClearColor sets the clear color used at the start of each pass.
func (rd *Render) SetClearColor(r, g, b, a float32) {
	rd.ClearColor = [4]float32{r, g, b, a}
}

// ConfigFrames (re)creates one framebuffer per given swapchain image
// view, at given extent.  Called initially and after swapchain
// recreation.
func (rd *Render) ConfigFrames(views []vk.ImageView, extent vk.Extent2D) {
	rd.DestroyFrames()
	rd.Frames = make([]vk.Framebuffer, len(views))
	for i, view := range views {
		var fb vk.Framebuffer
		ret := vk.CreateFramebuffer(rd.Dev.Device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      rd.VkRenderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}, nil, &fb)
		IfPanic(NewError(ret))
		rd.Frames[i] = fb
	}
}

// BeginRenderPass begins the pass into given swapchain image's
// framebuffer and sets the dynamic viewport and scissor to the full
// extent.
func (rd *Render) BeginRenderPass(cmd vk.CommandBuffer, imageIndex uint32, extent vk.Extent2D) {
	clear := vk.NewClearValue(rd.ClearColor[:])
	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rd.VkRenderPass,
		Framebuffer: rd.Frames[imageIndex],
		RenderArea: vk.Rect2D{
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clear},
	}, vk.SubpassContentsInline)

	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{{
		Extent: extent,
	}})
}

// EndRenderPass ends the pass on given command buffer.
func (rd *Render) EndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

// RecordDraw records the full particle draw into cmd: begin the pass,
// bind the pipeline and slot's particle buffer as vertex input, draw
// count points, end the pass.
func (rd *Render) RecordDraw(cmd vk.CommandBuffer, pl *GraphicsPipeline, imageIndex uint32, extent vk.Extent2D, particles vk.Buffer, count int) {
	rd.BeginRenderPass(cmd, imageIndex, extent)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pl.VkPipeline)
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{particles}, []vk.DeviceSize{0})
	vk.CmdDraw(cmd, uint32(count), 1, 0, 0)
	rd.EndRenderPass(cmd)
}

// DestroyFrames destroys the current framebuffers.
func (rd *Render) DestroyFrames() {
	for _, fb := range rd.Frames {
		vk.DestroyFramebuffer(rd.Dev.Device, fb, nil)
	}
	rd.Frames = nil
}

// Destroy frees the framebuffers and render pass.
func (rd *Render) Destroy() {
	if rd.Dev == nil {
		return
	}
	rd.DestroyFrames()
	if rd.VkRenderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(rd.Dev.Device, rd.VkRenderPass, nil)
		rd.VkRenderPass = vk.NullRenderPass
	}
	rd.Dev = nil
}
