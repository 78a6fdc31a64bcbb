// Package display presents a fail-soft drawing surface to the UI.
//
// The UI renders into plain RGBA images and never sees hardware errors: the
// panel logs failures and keeps going, and when no panel hardware is
// present a mock with the same pacing contract takes its place so the rest
// of the application is unchanged.
package display

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"time"

	"golang.org/x/image/draw"

	"github.com/mankin3n/cryptowallet-ST7789/board"
	"github.com/mankin3n/cryptowallet-ST7789/st7789"
)

// Screen is the surface the UI draws on. ShowImage and Clear pace
// themselves to the configured frame rate, so a tight render loop is
// throttled here rather than in every caller.
type Screen interface {
	// Setup brings the surface up. It must be called before drawing.
	Setup() error
	// ShowImage draws a full frame. Images of a different size are
	// resampled to fit.
	ShowImage(img image.Image)
	// Clear blanks the surface.
	Clear()
	// SetBrightness sets the backlight level in percent.
	SetBrightness(percent int)
	// Cleanup blanks and releases the surface.
	Cleanup()
}

// Config tunes the drawing surface.
type Config struct {
	Width  int // panel width (default: 320)
	Height int // panel height (default: 240)
	FPS    int // maximum frame rate (default: 30)
}

func (c *Config) setDefaults() {
	if c.Width == 0 {
		c.Width = 320
	}
	if c.Height == 0 {
		c.Height = 240
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
}

// New returns a Screen backed by the panel when the board brought up the
// display bus and control pins, and a Mock otherwise. If the panel fails to
// initialize the mock takes over; the UI runs either way.
func New(cfg Config, b *board.Manager, logger *slog.Logger) Screen {
	if logger == nil {
		logger = slog.Default()
	}
	caps := b.Capabilities()
	if caps.DisplayBus && caps.DisplayPins {
		p := NewPanel(cfg, b, logger)
		err := p.Setup()
		if err == nil {
			return p
		}
		logger.Warn("display: panel setup failed, falling back to mock", "err", err)
	} else {
		logger.Warn("display: panel hardware unavailable, using mock")
	}
	m := NewMock(cfg, logger)
	m.Setup()
	return m
}

// Panel drives the physical TFT through the board's SPI bus and pins.
type Panel struct {
	cfg Config
	b   *board.Manager
	log *slog.Logger

	dev      *st7789.Dev
	interval time.Duration
	lastShow time.Time
}

// NewPanel creates an uninitialized Panel. Call Setup before drawing.
func NewPanel(cfg Config, b *board.Manager, logger *slog.Logger) *Panel {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{
		cfg:      cfg,
		b:        b,
		log:      logger,
		interval: time.Second / time.Duration(cfg.FPS),
	}
}

// Setup initializes the panel controller and blanks it.
func (p *Panel) Setup() error {
	port := p.b.DisplayPort()
	dc := p.b.DataCommandPin()
	if port == nil || dc == nil {
		return errors.New("display: panel bus or control pins unavailable")
	}
	dev, err := st7789.NewSPI(port, dc, &st7789.Opts{
		W:     p.cfg.Width,
		H:     p.cfg.Height,
		Speed: p.b.DisplaySpeed(),
		RST:   p.b.ResetPin(),
	})
	if err != nil {
		return err
	}
	p.dev = dev
	if err := dev.Clear(color.Black); err != nil {
		p.log.Error("display: clear failed", "err", err)
	}
	p.log.Info("display: panel initialized", "width", p.cfg.Width, "height", p.cfg.Height)
	return nil
}

func (p *Panel) ShowImage(img image.Image) {
	if p.dev == nil {
		return
	}
	p.pace()
	if err := p.dev.ShowImage(p.fit(img)); err != nil {
		p.log.Error("display: frame write failed", "err", err)
	}
}

func (p *Panel) Clear() {
	if p.dev == nil {
		return
	}
	p.pace()
	if err := p.dev.Clear(color.Black); err != nil {
		p.log.Error("display: clear failed", "err", err)
	}
}

func (p *Panel) SetBrightness(percent int) {
	p.b.SetBrightness(percent)
}

// Cleanup blanks the panel and halts the controller. The board releases the
// bus itself.
func (p *Panel) Cleanup() {
	if p.dev == nil {
		return
	}
	if err := p.dev.Clear(color.Black); err != nil {
		p.log.Error("display: clear failed", "err", err)
	}
	if err := p.dev.Halt(); err != nil {
		p.log.Error("display: halt failed", "err", err)
	}
	p.dev = nil
}

// pace sleeps just long enough to hold drawing to the configured rate.
func (p *Panel) pace() {
	if !p.lastShow.IsZero() {
		if d := p.interval - time.Since(p.lastShow); d > 0 {
			time.Sleep(d)
		}
	}
	p.lastShow = time.Now()
}

// fit resamples img to the panel size when it does not match.
func (p *Panel) fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == p.cfg.Width && b.Dy() == p.cfg.Height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, p.cfg.Width, p.cfg.Height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Mock is a Screen that draws nowhere. It keeps the panel's pacing
// behavior so timing-sensitive callers behave the same with and without
// hardware, and it retains the last frame for inspection in tests.
type Mock struct {
	cfg Config
	log *slog.Logger

	interval time.Duration
	lastShow time.Time

	Frames     int
	Clears     int
	Brightness int
	LastImage  image.Image
}

// NewMock creates a Mock surface.
func NewMock(cfg Config, logger *slog.Logger) *Mock {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Mock{
		cfg:        cfg,
		log:        logger,
		interval:   time.Second / time.Duration(cfg.FPS),
		Brightness: 100,
	}
}

func (m *Mock) Setup() error {
	m.log.Info("display: mock initialized", "width", m.cfg.Width, "height", m.cfg.Height)
	return nil
}

func (m *Mock) ShowImage(img image.Image) {
	m.pace()
	m.Frames++
	m.LastImage = img
}

func (m *Mock) Clear() {
	m.pace()
	m.Clears++
	m.LastImage = nil
}

func (m *Mock) SetBrightness(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	m.Brightness = percent
}

func (m *Mock) Cleanup() {
	m.log.Info("display: mock released", "frames", m.Frames)
}

func (m *Mock) pace() {
	if !m.lastShow.IsZero() {
		if d := m.interval - time.Since(m.lastShow); d > 0 {
			time.Sleep(d)
		}
	}
	m.lastShow = time.Now()
}
