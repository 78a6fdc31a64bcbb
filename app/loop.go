// Package app runs the single render and control loop of the appliance.
//
// Every iteration pulls at most one navigation event and one camera frame,
// hands both to the render callback, and pushes the finished canvas to the
// screen. The screen paces itself, so the loop's rate is bounded by the
// display frame rate with no additional timer here.
package app

import (
	"context"
	"image"
	"log/slog"

	"github.com/mankin3n/cryptowallet-ST7789/camera"
	"github.com/mankin3n/cryptowallet-ST7789/display"
	"github.com/mankin3n/cryptowallet-ST7789/input"
)

// EventSource hands out queued navigation events without blocking.
type EventSource interface {
	GetEvent() (input.Event, bool)
}

// FrameSource hands out buffered camera frames without blocking.
type FrameSource interface {
	GetFrame() (*camera.Frame, bool)
}

// RenderFunc draws one UI frame onto canvas. ev and frame are nil when no
// event or frame arrived this iteration. The canvas is reused between
// iterations and carries the previous frame's pixels.
type RenderFunc func(canvas *image.RGBA, ev *input.Event, frame *camera.Frame)

// Config sizes the render canvas.
type Config struct {
	Width  int // canvas width (default: 320)
	Height int // canvas height (default: 240)
}

func (c *Config) setDefaults() {
	if c.Width == 0 {
		c.Width = 320
	}
	if c.Height == 0 {
		c.Height = 240
	}
}

// Loop owns the render cycle. It does not start or stop the event and
// frame producers; the caller wires those up around Run.
type Loop struct {
	cfg    Config
	screen display.Screen
	events EventSource
	frames FrameSource
	render RenderFunc
	log    *slog.Logger

	iterations uint64
}

// New creates a Loop. events and frames may be nil when the appliance runs
// without a joystick or camera; render must not be nil. The logger may be
// nil.
func New(cfg Config, screen display.Screen, events EventSource, frames FrameSource, render RenderFunc, logger *slog.Logger) *Loop {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:    cfg,
		screen: screen,
		events: events,
		frames: frames,
		render: render,
		log:    logger,
	}
}

// Run drives the loop until ctx is canceled, then blanks the screen.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info("loop: running", "width", l.cfg.Width, "height", l.cfg.Height)
	canvas := image.NewRGBA(image.Rect(0, 0, l.cfg.Width, l.cfg.Height))
	for ctx.Err() == nil {
		l.step(canvas)
	}
	l.screen.Clear()
	l.log.Info("loop: stopped", "iterations", l.iterations)
}

// step runs one iteration: at most one event, at most one frame, one draw.
func (l *Loop) step(canvas *image.RGBA) {
	var ev *input.Event
	if l.events != nil {
		if e, ok := l.events.GetEvent(); ok {
			ev = &e
		}
	}
	var frame *camera.Frame
	if l.frames != nil {
		if f, ok := l.frames.GetFrame(); ok {
			frame = f
		}
	}
	l.render(canvas, ev, frame)
	l.screen.ShowImage(canvas)
	l.iterations++
}
