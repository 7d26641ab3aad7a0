// Package panel draws the overlay panel shown on a quad layer: the frame
// rate and, per hand, the trigger and squeeze values, the thumbstick and
// the quit button.
//
// Panel.Render has the signature of threaded.RenderFunc, so a panel is
// normally driven by a threaded.Renderer while the frame loop feeds it with
// Update.
package panel

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/host"
)

// Colors used by the panel.
var (
	Background = gg.RGBA{R: 0.08, G: 0.09, B: 0.12, A: 0.85}
	Track      = gg.RGB(0.25, 0.25, 0.30)
	Accent     = gg.RGB(0.30, 0.80, 0.40)
	Foreground = gg.RGB(0.92, 0.92, 0.95)
)

// ErrDestroyed is returned by Render after Destroy.
var ErrDestroyed = errors.New("panel: destroyed")

// Option configures a Panel.
type Option func(*options)

type options struct {
	title    string
	lang     language.Tag
	fontSize float64
	logger   *slog.Logger
}

// WithTitle sets the heading. Defaults to "xr".
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

// WithLanguage sets the language numbers are formatted for.
func WithLanguage(tag language.Tag) Option {
	return func(o *options) {
		o.lang = tag
	}
}

// WithFontSize sets the font size in pixels. Defaults to 1/8 of the panel
// height at render time.
func WithFontSize(size float64) Option {
	return func(o *options) {
		o.fontSize = size
	}
}

// WithLogger sets the logger. Defaults to xr.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Panel is safe for concurrent use: Update may run on the frame loop while
// Render runs on a renderer worker.
type Panel struct {
	opts    options
	log     *slog.Logger
	font    *text.FontSource
	printer *message.Printer

	mu      sync.Mutex
	hands   [xr.HandCount]xr.HandState
	fps     float64
	dc      *gg.Context
	face    text.Face
	renders int
}

// New returns a panel using the Go Regular font.
func New(opts ...Option) (*Panel, error) {
	o := options{title: "xr", lang: language.English}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = xr.Logger()
	}
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("panel: font: %w", err)
	}
	return &Panel{
		opts:    o,
		log:     log,
		font:    src,
		printer: message.NewPrinter(o.lang),
	}, nil
}

// Update stores the state shown by the next Render.
func (p *Panel) Update(hands [xr.HandCount]xr.HandState, fps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hands = hands
	p.fps = fps
}

// Renders returns the number of completed Render calls.
func (p *Panel) Renders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

// Render draws the panel into fb.
func (p *Panel) Render(fb host.Framebuffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.font == nil {
		return ErrDestroyed
	}

	size := fb.Size()
	if err := p.ensureContext(size); err != nil {
		return err
	}
	dc := p.dc
	dc.Clear()
	w, h := float64(size.X), float64(size.Y)

	dc.SetColor(Background)
	dc.DrawRoundedRectangle(0, 0, w, h, h/16)
	if err := dc.Fill(); err != nil {
		return err
	}

	dc.SetColor(Foreground)
	dc.DrawStringAnchored(p.opts.title, h/16, h/10, 0, 0.5)
	dc.DrawStringAnchored(p.fpsLabel(), w-h/16, h/10, 1, 0.5)

	for i, l := range layout(size) {
		if err := p.drawHand(xr.Hand(i), p.hands[i], l); err != nil {
			return err
		}
	}
	if err := dc.FlushGPU(); err != nil {
		return err
	}

	dst := fb.Image()
	draw.Draw(dst, dst.Bounds(), dc.Image(), image.Point{}, draw.Src)
	p.renders++
	return nil
}

func (p *Panel) fpsLabel() string {
	return p.printer.Sprintf("%.1f fps", p.fps)
}

func (p *Panel) ensureContext(size image.Point) error {
	if p.dc != nil && p.dc.Width() == size.X && p.dc.Height() == size.Y {
		return nil
	}
	if p.dc != nil {
		if err := p.dc.Close(); err != nil {
			p.log.Warn("panel: close context", "err", err)
		}
	}
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("panel: invalid size %v", size)
	}
	fontSize := p.opts.fontSize
	if fontSize <= 0 {
		fontSize = float64(size.Y) / 8
	}
	p.dc = gg.NewContext(size.X, size.Y)
	p.face = p.font.Face(fontSize)
	p.dc.SetFont(p.face)
	return nil
}

func (p *Panel) drawHand(hand xr.Hand, st xr.HandState, l handLayout) error {
	dc := p.dc
	dc.SetColor(Foreground)
	dc.DrawString(hand.String(), float64(l.label.X), float64(l.label.Y))

	if err := p.bar(l.trigger, st.Trigger); err != nil {
		return err
	}
	if err := p.bar(l.squeeze, st.Squeeze); err != nil {
		return err
	}

	r := float64(l.stick.Dx()) / 2
	cx, cy := float64(l.stick.Min.X)+r, float64(l.stick.Min.Y)+r
	dc.SetColor(Track)
	dc.DrawCircle(cx, cy, r)
	if err := dc.Fill(); err != nil {
		return err
	}
	dot := Foreground
	if st.ThumbClicked {
		dot = Accent
	}
	dc.SetColor(dot)
	// Thumbstick y points up.
	dc.DrawCircle(cx+float64(st.Thumbstick[0])*r*0.75, cy-float64(st.Thumbstick[1])*r*0.75, r/4)
	if err := dc.Fill(); err != nil {
		return err
	}

	if st.Quit {
		dc.SetColor(Accent)
		dc.DrawStringAnchored("quit", float64(l.stick.Max.X)+r/2, cy, 0, 0.5)
	}
	return nil
}

// bar draws a horizontal gauge filled to v in [0, 1].
func (p *Panel) bar(r image.Rectangle, v float32) error {
	dc := p.dc
	x, y := float64(r.Min.X), float64(r.Min.Y)
	w, h := float64(r.Dx()), float64(r.Dy())
	dc.SetColor(Track)
	dc.DrawRectangle(x, y, w, h)
	if err := dc.Fill(); err != nil {
		return err
	}
	v = min(max(v, 0), 1)
	if v == 0 {
		return nil
	}
	dc.SetColor(Accent)
	dc.DrawRectangle(x, y, w*float64(v), h)
	return dc.Fill()
}

// Destroy releases the drawing context.
func (p *Panel) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.dc != nil {
		err = p.dc.Close()
		p.dc = nil
	}
	if p.font != nil {
		err = errors.Join(err, p.font.Close())
		p.font = nil
	}
	return err
}

type handLayout struct {
	label   image.Point
	trigger image.Rectangle
	squeeze image.Rectangle
	stick   image.Rectangle
}

// layout splits the panel below the header into one column per hand.
func layout(size image.Point) [xr.HandCount]handLayout {
	w, h := size.X, size.Y
	pad, header, barH := h/16, h/5, h/10
	col := w / xr.HandCount

	var out [xr.HandCount]handLayout
	for i := range out {
		x0 := i*col + pad
		x1 := (i+1)*col - pad
		trigger := image.Rect(x0, header+h/5, x1, header+h/5+barH)
		squeeze := trigger.Add(image.Pt(0, barH+pad))
		side := h - squeeze.Max.Y - 2*pad
		out[i] = handLayout{
			label:   image.Pt(x0, header+pad),
			trigger: trigger,
			squeeze: squeeze,
			stick:   image.Rect(x0, squeeze.Max.Y+pad, x0+side, squeeze.Max.Y+pad+side),
		}
	}
	return out
}
