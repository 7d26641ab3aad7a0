package headless

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/xr/host"
)

// Texture is a CPU texture backed by an *image.RGBA. It is the window back
// buffer and a convenient blit destination in tests.
//
// Texture implements gpucontext.Texture, gpucontext.TextureUpdater and
// gpucontext.TextureRegionUpdater and is safe for concurrent use.
type Texture struct {
	mu  sync.Mutex
	img *image.RGBA
}

var (
	_ gpucontext.Texture              = (*Texture)(nil)
	_ gpucontext.TextureUpdater       = (*Texture)(nil)
	_ gpucontext.TextureRegionUpdater = (*Texture)(nil)
)

// NewTexture creates a transparent texture.
func NewTexture(width, height int) *Texture {
	return &Texture{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.img.Bounds().Dx() }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.img.Bounds().Dy() }

// Format returns the pixel format (RGBA8).
func (t *Texture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// UpdateData replaces the whole texture with tightly packed RGBA bytes.
func (t *Texture) UpdateData(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(data) != len(t.img.Pix) {
		return fmt.Errorf("headless: texture data is %d bytes, want %d", len(data), len(t.img.Pix))
	}
	copy(t.img.Pix, data)
	return nil
}

// UpdateRegion replaces the w x h rectangle at (x, y).
func (t *Texture) UpdateRegion(x, y, w, h int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := image.Rect(x, y, x+w, y+h)
	if !r.In(t.img.Bounds()) {
		return fmt.Errorf("headless: region %v outside %v", r, t.img.Bounds())
	}
	if len(data) != w*h*4 {
		return fmt.Errorf("headless: region data is %d bytes, want %d", len(data), w*h*4)
	}
	for row := 0; row < h; row++ {
		off := t.img.PixOffset(x, y+row)
		copy(t.img.Pix[off:off+w*4], data[row*w*4:(row+1)*w*4])
	}
	return nil
}

// Clear fills the texture with c.
func (t *Texture) Clear(c color.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	draw.Draw(t.img, t.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// At returns the color at (x, y).
func (t *Texture) At(x, y int) color.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img.RGBAAt(x, y)
}

// Snapshot copies the texture contents.
func (t *Texture) Snapshot() *image.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := image.NewRGBA(t.img.Bounds())
	copy(out.Pix, t.img.Pix)
	return out
}

// formatted is implemented by textures that report their format.
type formatted interface {
	Format() gputypes.TextureFormat
}

// upload writes src into rect of dst, swizzling for BGRA destinations.
func upload(dst gpucontext.Texture, rect image.Rectangle, src *image.RGBA) error {
	pix := packed(src)
	if f, ok := dst.(formatted); ok {
		switch f.Format() {
		case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
			for i := 0; i+3 < len(pix); i += 4 {
				pix[i], pix[i+2] = pix[i+2], pix[i]
			}
		}
	}
	if u, ok := dst.(gpucontext.TextureRegionUpdater); ok {
		return u.UpdateRegion(rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy(), pix)
	}
	if u, ok := dst.(gpucontext.TextureUpdater); ok && rect == image.Rect(0, 0, dst.Width(), dst.Height()) {
		return u.UpdateData(pix)
	}
	return host.ErrNotWritable
}

// packed returns the pixels of img without row padding.
func packed(img *image.RGBA) []byte {
	b := img.Bounds()
	w := b.Dx() * 4
	out := make([]byte, w*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return out
}
