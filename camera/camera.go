// Package camera acquires video frames for the QR-scanning screens.
//
// Frames flow from a Source through a background worker into a small
// bounded queue. The queue is latest-wins: when the UI falls behind, the
// oldest frame is discarded so the preview never shows stale video.
package camera

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"
)

// Frame is one captured image with its acquisition instant.
type Frame struct {
	Image *image.RGBA
	Taken time.Time
}

// Source produces frames from some device. Implementations are not safe
// for concurrent use; the Camera serializes all calls.
type Source interface {
	// Open configures the device for the given capture size. The device
	// may substitute the nearest size it supports.
	Open(width, height int) error
	// Capture blocks until the next frame is available and returns it.
	Capture() (*image.RGBA, error)
	// Close releases the device.
	Close() error
}

// Config tunes the capture pipeline.
type Config struct {
	Width     int // capture width in pixels (default: 320)
	Height    int // capture height in pixels (default: 240)
	FPS       int // capture rate (default: 15)
	QueueSize int // frames buffered between capture and UI (default: 2)
}

func (c *Config) setDefaults() {
	if c.Width == 0 {
		c.Width = 320
	}
	if c.Height == 0 {
		c.Height = 240
	}
	if c.FPS <= 0 {
		c.FPS = 15
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 2
	}
}

// Camera runs a Source in the background and buffers its frames.
type Camera struct {
	cfg Config
	src Source
	log *slog.Logger

	running atomic.Bool
	done    chan struct{}

	mu     sync.Mutex
	frames []*Frame
}

// New creates a Camera reading from src. The logger may be nil. The source
// is not opened until Start.
func New(cfg Config, src Source, logger *slog.Logger) *Camera {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{cfg: cfg, src: src, log: logger}
}

// Start opens the source and launches the capture worker. Calling Start on
// a running camera is a no-op.
func (c *Camera) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.src.Open(c.cfg.Width, c.cfg.Height); err != nil {
		c.running.Store(false)
		return fmt.Errorf("camera: open: %w", err)
	}
	c.done = make(chan struct{})
	go c.capture()
	c.log.Info("camera: capture started", "width", c.cfg.Width, "height", c.cfg.Height, "fps", c.cfg.FPS)
	return nil
}

// Stop halts the capture worker and closes the source, waiting up to two
// seconds for the worker to exit. Calling Stop on a stopped camera is a
// no-op.
func (c *Camera) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		c.log.Warn("camera: capture worker did not stop in time")
	}
	if err := c.src.Close(); err != nil {
		c.log.Error("camera: source close failed", "err", err)
	}
	c.log.Info("camera: capture stopped")
}

// GetFrame returns the oldest buffered frame, or ok=false when none is
// available. It never blocks.
func (c *Camera) GetFrame() (*Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil, false
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f, true
}

// CaptureStill grabs the next frame directly from the source, bypassing the
// queue. The camera must not be running; a still is taken outside preview
// mode.
func (c *Camera) CaptureStill() (*Frame, error) {
	if c.running.Load() {
		return nil, fmt.Errorf("camera: capture worker is running")
	}
	if err := c.src.Open(c.cfg.Width, c.cfg.Height); err != nil {
		return nil, fmt.Errorf("camera: open: %w", err)
	}
	defer c.src.Close()
	img, err := c.src.Capture()
	if err != nil {
		return nil, fmt.Errorf("camera: capture: %w", err)
	}
	return &Frame{Image: Resize(img, c.cfg.Width, c.cfg.Height), Taken: time.Now()}, nil
}

func (c *Camera) capture() {
	defer close(c.done)
	t := time.NewTicker(time.Second / time.Duration(c.cfg.FPS))
	defer t.Stop()
	for c.running.Load() {
		<-t.C
		img, err := c.src.Capture()
		if err != nil {
			// Transient V4L2 errors are normal during device warm-up.
			// Keep trying at the capture rate.
			c.log.Warn("camera: frame capture failed", "err", err)
			continue
		}
		// The driver may have granted a different size than requested.
		img = Resize(img, c.cfg.Width, c.cfg.Height)
		c.push(&Frame{Image: img, Taken: time.Now()})
	}
}

func (c *Camera) push(f *Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) >= c.cfg.QueueSize {
		// Latest wins: discard from the front.
		c.frames = c.frames[1:]
	}
	c.frames = append(c.frames, f)
}

// Resize scales a frame to the given size with bilinear filtering. The
// original is returned unchanged when it already matches.
func Resize(img *image.RGBA, width, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
