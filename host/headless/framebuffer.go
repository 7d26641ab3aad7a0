// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/xr/host"
)

var framebufferIDs atomic.Uint32

// Framebuffer is a CPU framebuffer: an RGBA color plane plus depth and
// stencil planes of the same size.
//
// Example:
//
//	fb := headless.NewFramebuffer(image.Pt(800, 600))
//	fb.Clear(color.Black, 1, 0)
//	scene.Render(fb)
//	fb.BlitTo(win.BackBuffer(), image.Rect(0, 0, 200, 150), host.MaskColor, host.FilterLinear)
type Framebuffer struct {
	id uint32

	mu        sync.Mutex
	img       *image.RGBA
	depth     []float32
	stencil   []uint8
	viewport  image.Rectangle
	bound     bool
	attached  gpucontext.Texture
	destroyed bool
}

var (
	_ host.Framebuffer   = (*Framebuffer)(nil)
	_ host.ColorAttacher = (*Framebuffer)(nil)
)

// NewFramebuffer creates a framebuffer of the given size. The viewport
// covers the whole framebuffer.
func NewFramebuffer(size image.Point) *Framebuffer {
	r := image.Rectangle{Max: size}
	return &Framebuffer{
		id:       framebufferIDs.Add(1),
		img:      image.NewRGBA(r),
		depth:    make([]float32, size.X*size.Y),
		stencil:  make([]uint8, size.X*size.Y),
		viewport: r,
	}
}

// ID returns the process-unique framebuffer id.
func (f *Framebuffer) ID() uint32 { return f.id }

// Size returns the framebuffer size in pixels.
func (f *Framebuffer) Size() image.Point { return f.img.Bounds().Size() }

// Format returns the pixel format of the color plane.
func (f *Framebuffer) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Bind makes f the draw target.
func (f *Framebuffer) Bind() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return host.ErrFramebufferDestroyed
	}
	f.bound = true
	return nil
}

// Unbind restores the default draw target.
func (f *Framebuffer) Unbind() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return host.ErrFramebufferDestroyed
	}
	f.bound = false
	return nil
}

// Bound reports whether f is the draw target.
func (f *Framebuffer) Bound() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bound
}

// SetViewport limits Clear to r.
func (f *Framebuffer) SetViewport(r image.Rectangle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewport = r.Intersect(f.img.Bounds())
}

// Viewport returns the current viewport.
func (f *Framebuffer) Viewport() image.Rectangle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewport
}

// Clear fills the viewport of every plane.
func (f *Framebuffer) Clear(c color.Color, depth float32, stencil uint8) {
	r, g, b, a := c.RGBA()
	//nolint:gosec // G115: shift leaves 8 bits
	rgba := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}

	f.mu.Lock()
	defer f.mu.Unlock()
	vp := f.viewport
	draw.Draw(f.img, vp, image.NewUniform(rgba), image.Point{}, draw.Src)
	w := f.img.Bounds().Dx()
	for y := vp.Min.Y; y < vp.Max.Y; y++ {
		for x := vp.Min.X; x < vp.Max.X; x++ {
			f.depth[y*w+x] = depth
			f.stencil[y*w+x] = stencil
		}
	}
}

// Depth returns the depth value at (x, y).
func (f *Framebuffer) Depth(x, y int) float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.depth[y*f.img.Bounds().Dx()+x]
}

// Image returns the color plane. Callers draw into it while f is bound.
func (f *Framebuffer) Image() *image.RGBA { return f.img }

// BlitTo copies the color plane into dstRect of dst. Depth and stencil
// have no texture representation and are skipped.
func (f *Framebuffer) BlitTo(dst gpucontext.Texture, dstRect image.Rectangle, mask host.BufferMask, filter host.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return host.ErrFramebufferDestroyed
	}
	if mask&host.MaskColor == 0 || dstRect.Empty() {
		return nil
	}
	return upload(dst, dstRect, f.scaledLocked(dstRect.Size(), filter))
}

func (f *Framebuffer) scaledLocked(size image.Point, filter host.Filter) *image.RGBA {
	if size == f.img.Bounds().Size() {
		return f.img
	}
	out := image.NewRGBA(image.Rectangle{Max: size})
	var s draw.Scaler = draw.NearestNeighbor
	if filter == host.FilterLinear {
		s = draw.ApproxBiLinear
	}
	s.Scale(out, out.Bounds(), f.img, f.img.Bounds(), draw.Src, nil)
	return out
}

// AttachColor redirects the color plane into tex, typically a swapchain
// image. The contents are written to tex on DetachColor.
func (f *Framebuffer) AttachColor(tex gpucontext.Texture) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return host.ErrFramebufferDestroyed
	}
	f.attached = tex
	return nil
}

// DetachColor writes the color plane into the attached texture and drops
// the attachment.
func (f *Framebuffer) DetachColor() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tex := f.attached
	f.attached = nil
	if tex == nil || f.destroyed {
		return nil
	}
	r := image.Rect(0, 0, tex.Width(), tex.Height())
	return upload(tex, r, f.scaledLocked(r.Size(), host.FilterLinear))
}

// Attached returns the attached color texture or nil.
func (f *Framebuffer) Attached() gpucontext.Texture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached
}

// Destroy releases the planes. It is safe to call more than once.
func (f *Framebuffer) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	f.attached = nil
	return nil
}
