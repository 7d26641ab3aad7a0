package threaded

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/host"
)

// ErrNoColorAttachment is returned when a framebuffer cannot render into
// external textures.
var ErrNoColorAttachment = errors.New("threaded: framebuffer does not support color attachments")

// FramebufferAttachment renders a framebuffer into swapchain images: every
// acquired image becomes the framebuffer's color attachment until it is
// released.
type FramebufferAttachment[I gpucontext.Texture] struct {
	fb host.Framebuffer
	ca host.ColorAttacher
}

var _ xr.Attachment[gpucontext.Texture] = (*FramebufferAttachment[gpucontext.Texture])(nil)

// NewFramebufferAttachment returns an attachment strategy for fb.
func NewFramebufferAttachment[I gpucontext.Texture](fb host.Framebuffer) (*FramebufferAttachment[I], error) {
	ca, ok := fb.(host.ColorAttacher)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoColorAttachment, fb)
	}
	return &FramebufferAttachment[I]{fb: fb, ca: ca}, nil
}

// OnCreate checks that every image matches the framebuffer size.
func (a *FramebufferAttachment[I]) OnCreate(images []I) error {
	size := a.fb.Size()
	for i, img := range images {
		if img.Width() != size.X || img.Height() != size.Y {
			return fmt.Errorf("threaded: image %d is %dx%d, framebuffer is %dx%d",
				i, img.Width(), img.Height(), size.X, size.Y)
		}
	}
	return nil
}

// Attach makes image the color attachment.
func (a *FramebufferAttachment[I]) Attach(_ uint32, image I) error {
	return a.ca.AttachColor(image)
}

// Detach flushes the color attachment into the image.
func (a *FramebufferAttachment[I]) Detach(uint32, I) error {
	return a.ca.DetachColor()
}

// Destroy does nothing; the framebuffer belongs to the Renderer.
func (a *FramebufferAttachment[I]) Destroy() error { return nil }
