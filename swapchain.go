package xr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr/driver"
)

// InvalidIndex is the current index of a swapchain that holds no image.
const InvalidIndex = ^uint32(0)

// SwapchainSpec describes a swapchain to create. Zero counts default to 1.
type SwapchainSpec struct {
	Width       int
	Height      int
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
	SampleCount uint32
	ArraySize   uint32
	FaceCount   uint32
	MipCount    uint32

	// Static creates a single image swapchain that is acquired once.
	Static bool
}

func (s SwapchainSpec) createInfo() driver.SwapchainCreateInfo {
	one := func(v uint32) uint32 {
		if v == 0 {
			return 1
		}
		return v
	}
	info := driver.SwapchainCreateInfo{
		Usage:       s.Usage,
		Format:      s.Format,
		SampleCount: one(s.SampleCount),
		Width:       uint32(s.Width),
		Height:      uint32(s.Height),
		FaceCount:   one(s.FaceCount),
		ArraySize:   one(s.ArraySize),
		MipCount:    one(s.MipCount),
	}
	if s.Static {
		info.CreateFlags |= driver.SwapchainCreateStaticImage
	}
	return info
}

// Attachment binds backend resources to swapchain images: a paired depth
// buffer, a framebuffer that renders into the acquired image, and so on.
//
// OnCreate runs once after the image ring is enumerated. Attach runs after
// every acquire and Detach before every release. Destroy runs before the
// runtime swapchain is destroyed.
type Attachment[I gpucontext.Texture] interface {
	OnCreate(images []I) error
	Attach(index uint32, image I) error
	Detach(index uint32, image I) error
	Destroy() error
}

// NopAttachment is an Attachment that does nothing.
type NopAttachment[I gpucontext.Texture] struct{}

func (NopAttachment[I]) OnCreate([]I) error     { return nil }
func (NopAttachment[I]) Attach(uint32, I) error { return nil }
func (NopAttachment[I]) Detach(uint32, I) error { return nil }
func (NopAttachment[I]) Destroy() error         { return nil }

// SwapchainOption configures NewSwapchain.
type SwapchainOption[I gpucontext.Texture] func(*swapchainOptions[I])

type swapchainOptions[I gpucontext.Texture] struct {
	attachment Attachment[I]
	logger     *slog.Logger
}

// WithAttachment sets the attachment strategy of the swapchain.
func WithAttachment[I gpucontext.Texture](a Attachment[I]) SwapchainOption[I] {
	return func(o *swapchainOptions[I]) {
		o.attachment = a
	}
}

// WithSwapchainLogger sets the logger of the swapchain.
func WithSwapchainLogger[I gpucontext.Texture](l *slog.Logger) SwapchainOption[I] {
	return func(o *swapchainOptions[I]) {
		o.logger = l
	}
}

// Swapchain is a runtime image ring whose images have backend type I.
//
// Every use follows Acquire, WaitImage, render, Release in that order. Out of
// order calls fail with a protocol violation and leave the swapchain
// unchanged. A swapchain is owned by one goroutine at a time; the mutex only
// guards Destroy racing the owner.
type Swapchain[I gpucontext.Texture] struct {
	mu        sync.Mutex
	ctx       *Context
	handle    driver.Swapchain
	spec      SwapchainSpec
	images    []I
	att       Attachment[I]
	log       *slog.Logger
	current   uint32
	waited    bool
	destroyed bool
}

// NewSwapchain creates a swapchain on the context's session and enumerates
// its images. The swapchain is destroyed with the session unless destroyed
// earlier.
func NewSwapchain[I gpucontext.Texture](c *Context, spec SwapchainSpec, opts ...SwapchainOption[I]) (*Swapchain[I], error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	o := swapchainOptions[I]{attachment: NopAttachment[I]{}, logger: c.log}
	for _, opt := range opts {
		opt(&o)
	}
	if o.attachment == nil {
		o.attachment = NopAttachment[I]{}
	}

	handle, err := c.session.CreateSwapchain(spec.createInfo())
	if err != nil {
		return nil, fmt.Errorf("xr: create swapchain %dx%d %s: %w", spec.Width, spec.Height, spec.Format, err)
	}
	textures, err := handle.EnumerateImages()
	if err != nil {
		_ = handle.Destroy()
		return nil, fmt.Errorf("xr: enumerate swapchain images: %w", err)
	}
	images := make([]I, len(textures))
	for i, t := range textures {
		img, ok := t.(I)
		if !ok {
			_ = handle.Destroy()
			return nil, fmt.Errorf("xr: swapchain image %d has type %T", i, t)
		}
		images[i] = img
	}
	if err := o.attachment.OnCreate(images); err != nil {
		_ = o.attachment.Destroy()
		_ = handle.Destroy()
		return nil, fmt.Errorf("xr: swapchain attachment: %w", err)
	}

	sc := &Swapchain[I]{
		ctx:     c,
		handle:  handle,
		spec:    spec,
		images:  images,
		att:     o.attachment,
		log:     o.logger,
		current: InvalidIndex,
	}
	c.track(sc)
	sc.log.Debug("xr: swapchain created",
		"width", spec.Width, "height", spec.Height, "format", spec.Format, "images", len(images))
	return sc, nil
}

// Handle returns the driver swapchain.
func (sc *Swapchain[I]) Handle() driver.Swapchain { return sc.handle }

// Spec returns the creation parameters.
func (sc *Swapchain[I]) Spec() SwapchainSpec { return sc.spec }

// Images returns the image ring.
func (sc *Swapchain[I]) Images() []I { return sc.images }

// CurrentIndex returns the index of the held image or InvalidIndex.
func (sc *Swapchain[I]) CurrentIndex() uint32 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.current
}

// Acquire takes the next image from the runtime and attaches it. It fails
// with ErrDoubleAcquire while an image is held.
func (sc *Swapchain[I]) Acquire() (I, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	var zero I
	if sc.destroyed {
		return zero, ErrSwapchainDestroyed
	}
	if sc.current != InvalidIndex {
		return zero, ErrDoubleAcquire
	}
	idx, err := sc.handle.AcquireImage()
	if err != nil {
		return zero, fmt.Errorf("xr: acquire swapchain image: %w", err)
	}
	if int(idx) >= len(sc.images) {
		return zero, fmt.Errorf("xr: runtime acquired image %d of %d", idx, len(sc.images))
	}
	sc.current = idx
	sc.waited = false
	img := sc.images[idx]
	if err := sc.att.Attach(idx, img); err != nil {
		return img, fmt.Errorf("xr: attach swapchain image %d: %w", idx, err)
	}
	return img, nil
}

// WaitImage blocks until the held image is writable. Pass
// driver.InfiniteDuration to wait without a bound. Expiry of timeout returns
// ErrWaitImageTimeout and keeps the image held, so the wait can be retried.
func (sc *Swapchain[I]) WaitImage(ctx context.Context, timeout time.Duration) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.destroyed {
		return ErrSwapchainDestroyed
	}
	if sc.current == InvalidIndex {
		return ErrWaitWithoutAcquire
	}
	if sc.waited {
		return nil
	}
	if err := sc.handle.WaitImage(ctx, timeout); err != nil {
		if errors.Is(err, driver.ErrTimeout) {
			return fmt.Errorf("%w: image %d after %v", ErrWaitImageTimeout, sc.current, timeout)
		}
		return fmt.Errorf("xr: wait swapchain image: %w", err)
	}
	sc.waited = true
	return nil
}

// Release detaches the held image and returns it to the runtime.
func (sc *Swapchain[I]) Release() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.destroyed {
		return ErrSwapchainDestroyed
	}
	if sc.current == InvalidIndex {
		return ErrReleaseWithoutAcquire
	}
	if !sc.waited {
		return ErrReleaseBeforeWait
	}
	idx := sc.current
	detachErr := sc.att.Detach(idx, sc.images[idx])
	if err := sc.handle.ReleaseImage(); err != nil {
		return errors.Join(detachErr, fmt.Errorf("xr: release swapchain image: %w", err))
	}
	sc.current = InvalidIndex
	sc.waited = false
	if detachErr != nil {
		return fmt.Errorf("xr: detach swapchain image %d: %w", idx, detachErr)
	}
	return nil
}

// SubImage references rect of the swapchain for a composition layer.
func (sc *Swapchain[I]) SubImage(rect driver.Rect2Di) driver.SwapchainSubImage {
	return driver.SwapchainSubImage{Swapchain: sc.handle, ImageRect: rect}
}

// FullImage references the whole image.
func (sc *Swapchain[I]) FullImage() driver.SwapchainSubImage {
	return sc.SubImage(driver.Rect2Di{
		Extent: driver.Extent2Di{Width: int32(sc.spec.Width), Height: int32(sc.spec.Height)},
	})
}

// Destroy tears down the attachments and then the runtime swapchain. It is
// safe to call more than once.
func (sc *Swapchain[I]) Destroy() error {
	sc.mu.Lock()
	if sc.destroyed {
		sc.mu.Unlock()
		return nil
	}
	sc.destroyed = true
	sc.current = InvalidIndex
	err := sc.att.Destroy()
	if e := sc.handle.Destroy(); e != nil {
		err = errors.Join(err, fmt.Errorf("xr: destroy swapchain: %w", e))
	}
	sc.mu.Unlock()

	sc.ctx.untrack(sc)
	return err
}
