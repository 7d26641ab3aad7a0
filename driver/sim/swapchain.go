package sim

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr/driver"
)

type swapchain struct {
	sess   *session
	info   driver.SwapchainCreateInfo
	images []*Image

	next      uint32
	acquired  []uint32
	waited    bool
	released  int
	acquires  int
	destroyed bool
}

func (s *session) CreateSwapchain(info driver.SwapchainCreateInfo) (driver.Swapchain, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.rt.mu.Unlock()

	supported := false
	for _, f := range s.rt.opts.formats {
		if f == info.Format {
			supported = true
			break
		}
	}
	if !supported {
		return nil, s.inst.validationLocked("xrCreateSwapchain", driver.ErrSwapchainFormatUnsupported)
	}
	limit := s.rt.opts.system.MaxSwapchainImageSize
	if info.Width == 0 || info.Height == 0 ||
		int32(info.Width) > limit.Width || int32(info.Height) > limit.Height {
		return nil, s.inst.validationLocked("xrCreateSwapchain",
			fmt.Errorf("%w: size %dx%d", driver.ErrValidationFailure, info.Width, info.Height))
	}
	if info.FaceCount != 1 && info.FaceCount != 6 {
		return nil, driver.ErrValidationFailure
	}
	if info.ArraySize == 0 || info.MipCount == 0 || info.SampleCount == 0 {
		return nil, driver.ErrValidationFailure
	}

	n := s.rt.opts.imageCount
	if info.CreateFlags&driver.SwapchainCreateStaticImage != 0 {
		n = 1
	}
	sc := &swapchain{sess: s, info: info, images: make([]*Image, n)}
	for i := range sc.images {
		sc.images[i] = newImage(int(info.Width), int(info.Height)*int(info.FaceCount*info.ArraySize), info.Format)
	}
	s.rt.stats.SwapchainsLive++
	return sc, nil
}

func (sc *swapchain) EnumerateImages() ([]gpucontext.Texture, error) {
	out := make([]gpucontext.Texture, len(sc.images))
	for i, img := range sc.images {
		out[i] = img
	}
	return out, nil
}

func (sc *swapchain) AcquireImage() (uint32, error) {
	rt := sc.sess.rt
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if sc.destroyed {
		return 0, driver.ErrHandleInvalid
	}
	static := sc.info.CreateFlags&driver.SwapchainCreateStaticImage != 0
	if static && sc.acquires > 0 {
		return 0, sc.sess.inst.validationLocked("xrAcquireSwapchainImage", driver.ErrCallOrderInvalid)
	}
	if len(sc.acquired) == len(sc.images) {
		return 0, sc.sess.inst.validationLocked("xrAcquireSwapchainImage", driver.ErrCallOrderInvalid)
	}
	idx := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	sc.acquired = append(sc.acquired, idx)
	sc.acquires++
	rt.stats.AcquireImage++
	return idx, nil
}

func (sc *swapchain) WaitImage(ctx context.Context, timeout time.Duration) error {
	rt := sc.sess.rt
	rt.mu.Lock()
	if sc.destroyed {
		rt.mu.Unlock()
		return driver.ErrHandleInvalid
	}
	if len(sc.acquired) == 0 || sc.waited {
		err := sc.sess.inst.validationLocked("xrWaitSwapchainImage", driver.ErrCallOrderInvalid)
		rt.mu.Unlock()
		return err
	}
	delay := rt.waitDelay
	rt.mu.Unlock()

	if delay > 0 {
		wait, expired := delay, false
		if timeout >= 0 && timeout < delay {
			wait, expired = timeout, true
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if expired {
			return driver.ErrTimeout
		}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	sc.waited = true
	return nil
}

func (sc *swapchain) ReleaseImage() error {
	rt := sc.sess.rt
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if sc.destroyed {
		return driver.ErrHandleInvalid
	}
	if !sc.waited {
		return sc.sess.inst.validationLocked("xrReleaseSwapchainImage", driver.ErrCallOrderInvalid)
	}
	sc.acquired = sc.acquired[1:]
	sc.waited = false
	sc.released++
	rt.stats.ReleaseImage++
	return nil
}

func (sc *swapchain) Destroy() error {
	rt := sc.sess.rt
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if sc.destroyed {
		return driver.ErrHandleInvalid
	}
	sc.destroyed = true
	rt.stats.SwapchainsLive--
	return nil
}

// Image is a CPU swapchain image. Pixels are stored as 4 bytes per texel in
// the channel order of the swapchain format. Cube and array swapchains
// stack their layers vertically.
//
// Image implements gpucontext.Texture, gpucontext.TextureUpdater and
// gpucontext.TextureRegionUpdater. It is safe for concurrent use.
type Image struct {
	mu     sync.Mutex
	width  int
	height int
	format gputypes.TextureFormat
	pix    []byte
	writes int
}

var (
	_ gpucontext.Texture              = (*Image)(nil)
	_ gpucontext.TextureUpdater       = (*Image)(nil)
	_ gpucontext.TextureRegionUpdater = (*Image)(nil)
)

func newImage(w, h int, format gputypes.TextureFormat) *Image {
	return &Image{width: w, height: h, format: format, pix: make([]byte, w*h*4)}
}

// Width implements gpucontext.Texture.
func (img *Image) Width() int { return img.width }

// Height implements gpucontext.Texture.
func (img *Image) Height() int { return img.height }

// Format returns the swapchain format of the image.
func (img *Image) Format() gputypes.TextureFormat { return img.format }

// UpdateData replaces the whole image.
func (img *Image) UpdateData(data []byte) error {
	if len(data) != len(img.pix) {
		return fmt.Errorf("sim: image data is %d bytes, want %d", len(data), len(img.pix))
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	copy(img.pix, data)
	img.writes++
	return nil
}

// UpdateRegion replaces the w x h rectangle at (x, y). data is tightly
// packed.
func (img *Image) UpdateRegion(x, y, w, h int, data []byte) error {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > img.width || y+h > img.height {
		return fmt.Errorf("sim: region %dx%d+%d+%d outside %dx%d image", w, h, x, y, img.width, img.height)
	}
	if len(data) != w*h*4 {
		return fmt.Errorf("sim: region data is %d bytes, want %d", len(data), w*h*4)
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	stride := img.width * 4
	for row := 0; row < h; row++ {
		off := (y+row)*stride + x*4
		copy(img.pix[off:off+w*4], data[row*w*4:(row+1)*w*4])
	}
	img.writes++
	return nil
}

// Writes returns how many uploads the image received.
func (img *Image) Writes() int {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.writes
}

// Snapshot copies the image contents. Bytes are returned as stored, so
// BGRA formats come back with red and blue swapped.
func (img *Image) Snapshot() *image.RGBA {
	img.mu.Lock()
	defer img.mu.Unlock()
	out := image.NewRGBA(image.Rect(0, 0, img.width, img.height))
	copy(out.Pix, img.pix)
	return out
}
