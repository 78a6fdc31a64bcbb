package app

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mankin3n/cryptowallet-ST7789/camera"
	"github.com/mankin3n/cryptowallet-ST7789/display"
	"github.com/mankin3n/cryptowallet-ST7789/input"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scriptedEvents struct {
	events []input.Event
}

func (s *scriptedEvents) GetEvent() (input.Event, bool) {
	if len(s.events) == 0 {
		return input.Event{}, false
	}
	e := s.events[0]
	s.events = s.events[1:]
	return e, true
}

type scriptedFrames struct {
	frames []*camera.Frame
}

func (s *scriptedFrames) GetFrame() (*camera.Frame, bool) {
	if len(s.frames) == 0 {
		return nil, false
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, true
}

func TestStepOneEventOneFrame(t *testing.T) {
	screen := display.NewMock(display.Config{FPS: 1000}, testLogger())
	events := &scriptedEvents{events: []input.Event{
		{Direction: input.Up},
		{Direction: input.Press},
	}}
	frames := &scriptedFrames{frames: []*camera.Frame{
		{Image: image.NewRGBA(image.Rect(0, 0, 320, 240)), Taken: time.Now()},
	}}

	var gotEvents []input.Direction
	var gotFrames int
	render := func(canvas *image.RGBA, ev *input.Event, frame *camera.Frame) {
		if ev != nil {
			gotEvents = append(gotEvents, ev.Direction)
		}
		if frame != nil {
			gotFrames++
		}
	}

	l := New(Config{}, screen, events, frames, render, testLogger())
	canvas := image.NewRGBA(image.Rect(0, 0, 320, 240))
	l.step(canvas)
	l.step(canvas)
	l.step(canvas)

	// One event per iteration, in order, then nil.
	if len(gotEvents) != 2 || gotEvents[0] != input.Up || gotEvents[1] != input.Press {
		t.Fatalf("got events %v, expected [up press]", gotEvents)
	}
	if gotFrames != 1 {
		t.Fatalf("got %d frames, expected 1", gotFrames)
	}
	if screen.Frames != 3 {
		t.Fatalf("got %d drawn frames, expected 3", screen.Frames)
	}
}

func TestStepNilSources(t *testing.T) {
	screen := display.NewMock(display.Config{FPS: 1000}, testLogger())
	called := false
	render := func(canvas *image.RGBA, ev *input.Event, frame *camera.Frame) {
		called = true
		if ev != nil || frame != nil {
			t.Fatal("nil sources must yield nil event and frame")
		}
	}
	l := New(Config{}, screen, nil, nil, render, testLogger())
	l.step(image.NewRGBA(image.Rect(0, 0, 320, 240)))
	if !called {
		t.Fatal("render was not called")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	screen := display.NewMock(display.Config{FPS: 1000}, testLogger())
	render := func(canvas *image.RGBA, ev *input.Event, frame *camera.Frame) {
		for i := range canvas.Pix {
			canvas.Pix[i] = 0
		}
		canvas.SetRGBA(0, 0, color.RGBA{R: 0xFF, A: 0xFF})
	}
	l := New(Config{}, screen, nil, nil, render, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	if screen.Frames == 0 {
		t.Fatal("loop drew no frames")
	}
	if screen.Clears != 1 {
		t.Fatalf("got %d clears on shutdown, expected 1", screen.Clears)
	}
}
