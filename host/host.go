// Package host defines the capabilities the frame loop needs from its
// surroundings: a desktop window that drives the loop, framebuffers to
// render into, offscreen graphics contexts for worker goroutines and the
// scene being drawn.
//
// The xr packages never create any of these. A host application passes
// implementations in; package headless provides CPU ones that run anywhere.
package host

import (
	"context"
	"errors"
	"image"
	"image/color"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/xr"
)

// Errors reported by host implementations.
var (
	// ErrContextBusy is returned by MakeCurrent when another owner holds
	// the context.
	ErrContextBusy = errors.New("host: context is current elsewhere")

	// ErrContextNotCurrent is returned by DoneCurrent on a context that
	// is not current.
	ErrContextNotCurrent = errors.New("host: context is not current")

	// ErrContextDestroyed is returned by any call on a destroyed context.
	ErrContextDestroyed = errors.New("host: context destroyed")

	// ErrNotWritable is returned by BlitTo when the destination texture
	// accepts no uploads.
	ErrNotWritable = errors.New("host: destination texture is not writable")

	// ErrFramebufferDestroyed is returned by any call on a destroyed
	// framebuffer.
	ErrFramebufferDestroyed = errors.New("host: framebuffer destroyed")
)

// HandState and EyeState are the per-frame records handed to a Scene.
type (
	HandState = xr.HandState
	EyeState  = xr.EyeState
)

// GLContext is a graphics context in the window's share group. At most one
// goroutine has a context current at a time; ownership moves only through
// explicit MakeCurrent and DoneCurrent calls.
type GLContext interface {
	MakeCurrent() error
	DoneCurrent() error

	// Destroy releases the context. It must not be current.
	Destroy() error
}

// Window is the desktop window mirroring the headset view. It owns the
// primary graphics context and the share group every offscreen context
// and framebuffer belongs to.
type Window interface {
	gpucontext.WindowProvider

	// Device returns the shared device handle sessions are bound to.
	Device() gpucontext.DeviceProvider

	// MakeCurrent and DoneCurrent move the primary context.
	MakeCurrent() error
	DoneCurrent() error

	SetSwapInterval(n int)
	SetTitle(title string)

	// Run calls tick once per window tick until tick fails, RequestClose
	// is called or ctx is done.
	Run(ctx context.Context, tick func() error) error

	// SwapBuffers presents the back buffer.
	SwapBuffers() error

	// BackBuffer is the blit destination for the desktop view.
	BackBuffer() gpucontext.Texture

	RequestClose()
	CloseRequested() bool

	NewOffscreenContext() (GLContext, error)
	NewFramebuffer(size image.Point) (Framebuffer, error)

	Destroy() error
}

// BufferMask selects the buffers a blit transfers.
type BufferMask uint8

const (
	MaskColor BufferMask = 1 << iota
	MaskDepth
	MaskStencil
)

// Filter selects how a scaled blit samples its source.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// Framebuffer is an offscreen render target with color, depth and stencil
// planes.
type Framebuffer interface {
	ID() uint32
	Size() image.Point

	// Bind makes the framebuffer the draw target. Unbind restores the
	// default target.
	Bind() error
	Unbind() error

	Clear(c color.Color, depth float32, stencil uint8)
	SetViewport(r image.Rectangle)

	// BlitTo copies the buffers selected by mask into dstRect of dst,
	// scaling with filter.
	BlitTo(dst gpucontext.Texture, dstRect image.Rectangle, mask BufferMask, filter Filter) error

	// Image returns the color plane. It aliases the framebuffer.
	Image() *image.RGBA

	Destroy() error
}

// ColorAttacher is implemented by framebuffers whose color plane can be
// redirected into an external texture such as a swapchain image. Contents
// reach the texture no later than DetachColor.
type ColorAttacher interface {
	AttachColor(tex gpucontext.Texture) error
	DetachColor() error
}

// Scene is the content rendered each frame.
type Scene interface {
	UpdateHands(hands [xr.HandCount]HandState)
	UpdateEyes(eyes [2]EyeState)
	Render(fb Framebuffer) error
	Destroy() error
}

// CubemapSetter is implemented by scenes that draw an environment map.
type CubemapSetter interface {
	SetCubemap(path string) error
}

// ModelLoader is implemented by scenes that can load meshes.
type ModelLoader interface {
	LoadModel(path string) error
}
