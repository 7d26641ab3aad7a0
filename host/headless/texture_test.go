package headless

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr/host"
)

func TestTextureUpdateRegion(t *testing.T) {
	tex := NewTexture(4, 4)
	red := []byte{255, 0, 0, 255, 255, 0, 0, 255}

	if err := tex.UpdateRegion(1, 2, 2, 1, red); err != nil {
		t.Fatalf("UpdateRegion() error = %v", err)
	}
	if got := tex.At(2, 2); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("At(2, 2) = %v, want red", got)
	}
	if got := tex.At(0, 2); got != (color.RGBA{}) {
		t.Errorf("At(0, 2) = %v, want transparent", got)
	}

	tests := []struct {
		name       string
		x, y, w, h int
		data       []byte
	}{
		{"outside", 3, 3, 2, 1, red},
		{"short data", 0, 0, 2, 2, red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tex.UpdateRegion(tt.x, tt.y, tt.w, tt.h, tt.data); err == nil {
				t.Error("UpdateRegion() error = nil, want error")
			}
		})
	}
}

func TestTextureUpdateData(t *testing.T) {
	tex := NewTexture(2, 1)
	if err := tex.UpdateData([]byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("UpdateData() error = %v", err)
	}
	if got := tex.At(1, 0); got != (color.RGBA{5, 6, 7, 8}) {
		t.Errorf("At(1, 0) = %v, want {5 6 7 8}", got)
	}
	if err := tex.UpdateData([]byte{1}); err == nil {
		t.Error("UpdateData(short) error = nil, want error")
	}
}

func TestTextureSnapshotIsCopy(t *testing.T) {
	tex := NewTexture(2, 2)
	tex.Clear(color.White)
	snap := tex.Snapshot()
	tex.Clear(color.Black)
	if got := snap.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("snapshot pixel = %v, want white", got)
	}
}

// bgraTexture only accepts whole-texture updates.
type bgraTexture struct {
	w, h int
	data []byte
}

func (b *bgraTexture) Width() int { return b.w }
func (b *bgraTexture) Height() int { return b.h }
func (b *bgraTexture) Format() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (b *bgraTexture) UpdateData(data []byte) error { b.data = data; return nil }

type opaqueTexture struct{}

func (opaqueTexture) Width() int { return 1 }
func (opaqueTexture) Height() int { return 1 }

func TestUpload(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	dst := &bgraTexture{w: 1, h: 1}
	if err := upload(dst, image.Rect(0, 0, 1, 1), src); err != nil {
		t.Fatalf("upload() error = %v", err)
	}
	want := []byte{30, 20, 10, 255}
	if string(dst.data) != string(want) {
		t.Errorf("uploaded = %v, want %v", dst.data, want)
	}
	if src.Pix[0] != 10 {
		t.Errorf("source was swizzled in place")
	}

	big := &bgraTexture{w: 2, h: 2}
	if err := upload(big, image.Rect(0, 0, 1, 1), src); !errors.Is(err, host.ErrNotWritable) {
		t.Errorf("partial upload error = %v, want ErrNotWritable", err)
	}
	if err := upload(opaqueTexture{}, image.Rect(0, 0, 1, 1), src); !errors.Is(err, host.ErrNotWritable) {
		t.Errorf("upload(opaque) error = %v, want ErrNotWritable", err)
	}
}

func TestPackedStripsPadding(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{1, 2, 3, 4})
	sub := img.SubImage(image.Rect(1, 1, 3, 2)).(*image.RGBA)
	got := packed(sub)
	if len(got) != 8 {
		t.Fatalf("len(packed) = %d, want 8", len(got))
	}
	if got[0] != 1 || got[3] != 4 {
		t.Errorf("packed = %v, want first pixel {1 2 3 4}", got)
	}
}
