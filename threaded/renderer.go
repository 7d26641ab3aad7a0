// Package threaded renders auxiliary composition layers on their own
// goroutine so that their cadence is decoupled from the main frame loop.
//
// A Renderer owns a swapchain, a framebuffer attached to it and an offscreen
// context that stays current on a locked OS thread for the worker's whole
// life. The frame loop asks for new content with RequestFrame, which never
// blocks; requests that arrive while a frame is pending collapse into one.
//
//	r, err := threaded.New[*sim.Image](c, win, spec, panel.Render)
//	...
//	r.RequestFrame()
//	layers := xr.Layers(proj, r.QuadLayer(c.Space(), pose))
package threaded

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
	"github.com/gogpu/xr/host"
)

// RenderFunc draws one frame into fb. It is called on the worker goroutine,
// never on the goroutine that created the Renderer.
type RenderFunc func(fb host.Framebuffer) error

// Renderer renders a swapchain-backed layer on a dedicated worker.
type Renderer[I gpucontext.Texture] struct {
	sc     *xr.Swapchain[I]
	fb     host.Framebuffer
	gl     host.GLContext
	render RenderFunc
	opts   options
	log    *slog.Logger

	requests chan struct{}
	quit     chan struct{}
	done     chan struct{}

	renders  atomic.Int64
	failures atomic.Int64

	// Written by the worker before done is closed.
	workerErr error

	destroyOnce sync.Once
	destroyErr  error
}

// New creates the swapchain and framebuffer, renders a placeholder frame so
// the first layer submission is valid, and starts the worker.
//
// The primary context of win must be current on the calling goroutine. It is
// released while the offscreen context initializes the framebuffer and is
// current again when New returns.
func New[I gpucontext.Texture](c *xr.Context, win host.Window, spec xr.SwapchainSpec, render RenderFunc, opts ...Option) (*Renderer[I], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = xr.Logger()
	}

	gl, err := win.NewOffscreenContext()
	if err != nil {
		return nil, fmt.Errorf("threaded: offscreen context: %w", err)
	}
	if err := win.DoneCurrent(); err != nil {
		_ = gl.Destroy()
		return nil, fmt.Errorf("threaded: release primary context: %w", err)
	}
	r, err := initialize[I](c, win, gl, spec, render, o, log)
	if err != nil {
		_ = gl.DoneCurrent()
		_ = gl.Destroy()
		return nil, errors.Join(err, win.MakeCurrent())
	}
	if err := gl.DoneCurrent(); err != nil {
		r.release()
		_ = gl.Destroy()
		return nil, errors.Join(fmt.Errorf("threaded: release offscreen context: %w", err), win.MakeCurrent())
	}

	ready := make(chan error, 1)
	go r.loop(ready)
	if err := <-ready; err != nil {
		<-r.done
		r.release()
		_ = gl.Destroy()
		return nil, errors.Join(fmt.Errorf("threaded: worker context: %w", err), win.MakeCurrent())
	}
	if err := win.MakeCurrent(); err != nil {
		_ = r.Destroy()
		return nil, fmt.Errorf("threaded: resume primary context: %w", err)
	}
	log.Debug("threaded: renderer started", "width", spec.Width, "height", spec.Height)
	return r, nil
}

// initialize runs with gl current on the calling goroutine.
func initialize[I gpucontext.Texture](c *xr.Context, win host.Window, gl host.GLContext, spec xr.SwapchainSpec, render RenderFunc, o options, log *slog.Logger) (*Renderer[I], error) {
	if err := gl.MakeCurrent(); err != nil {
		return nil, fmt.Errorf("threaded: make offscreen context current: %w", err)
	}
	fb, err := win.NewFramebuffer(image.Pt(spec.Width, spec.Height))
	if err != nil {
		return nil, fmt.Errorf("threaded: framebuffer: %w", err)
	}
	att, err := NewFramebufferAttachment[I](fb)
	if err != nil {
		_ = fb.Destroy()
		return nil, err
	}
	sc, err := xr.NewSwapchain(c, spec, xr.WithAttachment[I](att), xr.WithSwapchainLogger[I](log))
	if err != nil {
		_ = fb.Destroy()
		return nil, err
	}
	r := &Renderer[I]{
		sc:       sc,
		fb:       fb,
		gl:       gl,
		render:   render,
		opts:     o,
		log:      log,
		requests: make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if err := r.pass(r.placeholder); err != nil {
		r.release()
		return nil, fmt.Errorf("threaded: placeholder frame: %w", err)
	}
	return r, nil
}

func (r *Renderer[I]) placeholder(fb host.Framebuffer) error {
	fb.Clear(r.opts.placeholder, 1, 0)
	return nil
}

// RequestFrame asks the worker for a new frame. It never blocks and may be
// called from any goroutine, including after Destroy.
func (r *Renderer[I]) RequestFrame() {
	select {
	case r.requests <- struct{}{}:
	default:
	}
}

func (r *Renderer[I]) loop(ready chan<- error) {
	defer close(r.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := r.gl.MakeCurrent(); err != nil {
		ready <- err
		return
	}
	ready <- nil
	defer func() {
		r.workerErr = errors.Join(r.gl.DoneCurrent(), r.gl.Destroy())
	}()

	wake := time.NewTicker(r.opts.wake)
	defer wake.Stop()
	pending := false
	for {
		select {
		case <-r.quit:
			return
		case <-r.requests:
			pending = true
		case <-wake.C:
		}
		if !pending {
			continue
		}
		select {
		case <-r.quit:
			return
		default:
		}
		pending = false
		if err := r.pass(r.render); err != nil {
			r.failures.Add(1)
			if xr.IsTransient(err) {
				// Retried on the next wake.
				pending = true
				r.log.Debug("threaded: frame deferred", "err", err)
			} else {
				r.log.Warn("threaded: render failed", "err", err)
			}
			continue
		}
		r.renders.Add(1)
	}
}

// pass runs one frame: acquire, wait, bind, draw, unbind, release. An image
// still held after a timed out wait is reused instead of acquired again.
func (r *Renderer[I]) pass(draw RenderFunc) error {
	if r.sc.CurrentIndex() == xr.InvalidIndex {
		if _, err := r.sc.Acquire(); err != nil {
			return err
		}
	}
	if err := r.sc.WaitImage(context.Background(), r.opts.imageTimeout); err != nil {
		return err
	}
	if err := r.fb.Bind(); err != nil {
		return errors.Join(err, r.sc.Release())
	}
	err := draw(r.fb)
	return errors.Join(err, r.fb.Unbind(), r.sc.Release())
}

// Swapchain returns the swapchain the worker renders into.
func (r *Renderer[I]) Swapchain() *xr.Swapchain[I] { return r.sc }

// SubImage references rect of the layer image.
func (r *Renderer[I]) SubImage(rect driver.Rect2Di) driver.SwapchainSubImage {
	return r.sc.SubImage(rect)
}

// QuadLayer returns a quad layer showing the whole image at pose in space.
func (r *Renderer[I]) QuadLayer(space driver.Space, pose xr.Pose) *xr.QuadLayer {
	return xr.NewQuadLayer(space, r.sc.FullImage(), pose)
}

// Renders returns the number of completed frames, excluding the placeholder.
func (r *Renderer[I]) Renders() int64 { return r.renders.Load() }

// Failures returns the number of frames that failed or were deferred.
func (r *Renderer[I]) Failures() int64 { return r.failures.Load() }

// Destroy stops the worker and waits until it has released and destroyed
// its context, then destroys the swapchain and framebuffer. No frame is
// rendered once Destroy has been called. Destroy must be called from the
// goroutine that owns the xr.Context; it is safe to call more than once.
func (r *Renderer[I]) Destroy() error {
	r.destroyOnce.Do(func() {
		close(r.quit)
		<-r.done
		r.destroyErr = errors.Join(r.workerErr, r.release())
		r.log.Debug("threaded: renderer stopped", "renders", r.renders.Load())
	})
	return r.destroyErr
}

func (r *Renderer[I]) release() error {
	return errors.Join(r.sc.Destroy(), r.fb.Destroy())
}
