package camera

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPushDropsOldest(t *testing.T) {
	c := New(Config{QueueSize: 2}, &TestPattern{}, testLogger())
	mk := func(n int) *Frame {
		return &Frame{Image: image.NewRGBA(image.Rect(0, 0, n, 1))}
	}
	c.push(mk(1))
	c.push(mk(2))
	c.push(mk(3))

	f, ok := c.GetFrame()
	if !ok || f.Image.Bounds().Dx() != 2 {
		t.Fatalf("oldest surviving frame: got %v, expected width 2", f.Image.Bounds())
	}
	f, ok = c.GetFrame()
	if !ok || f.Image.Bounds().Dx() != 3 {
		t.Fatalf("newest frame: got %v, expected width 3", f.Image.Bounds())
	}
	if _, ok := c.GetFrame(); ok {
		t.Fatal("drained queue must report empty")
	}
}

func TestGetFrameEmpty(t *testing.T) {
	c := New(Config{}, &TestPattern{}, testLogger())
	if _, ok := c.GetFrame(); ok {
		t.Fatal("empty queue must report no frame")
	}
}

func TestStartStop(t *testing.T) {
	c := New(Config{Width: 32, Height: 24, FPS: 200}, &TestPattern{}, testLogger())
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("second Start must be a no-op: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	var f *Frame
	for time.Now().Before(deadline) {
		var ok bool
		if f, ok = c.GetFrame(); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if f == nil {
		t.Fatal("no frame captured within deadline")
	}
	if b := f.Image.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("unexpected frame size: %v", b)
	}
	if f.Taken.IsZero() {
		t.Fatal("frame timestamp not set")
	}

	c.Stop()
	c.Stop()
}

type failingSource struct{ err error }

func (f *failingSource) Open(w, h int) error           { return f.err }
func (f *failingSource) Capture() (*image.RGBA, error) { return nil, f.err }
func (f *failingSource) Close() error                  { return nil }

func TestStartOpenFailure(t *testing.T) {
	boom := errors.New("no such device")
	c := New(Config{}, &failingSource{err: boom}, testLogger())
	if err := c.Start(); !errors.Is(err, boom) {
		t.Fatalf("got %v, expected wrapped open error", err)
	}
	// A failed Start leaves the camera stopped.
	if err := c.Start(); !errors.Is(err, boom) {
		t.Fatalf("retry after failure: got %v", err)
	}
}

func TestCaptureStill(t *testing.T) {
	src := &TestPattern{}
	c := New(Config{Width: 16, Height: 16}, src, testLogger())
	f, err := c.CaptureStill()
	if err != nil {
		t.Fatal(err)
	}
	if b := f.Image.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Fatalf("unexpected still size: %v", b)
	}
	if src.open {
		t.Fatal("still capture must release the source")
	}
}

func TestCaptureStillWhileRunning(t *testing.T) {
	c := New(Config{FPS: 200}, &TestPattern{}, testLogger())
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()
	if _, err := c.CaptureStill(); err == nil {
		t.Fatal("still capture during preview must fail")
	}
}

func TestResize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 48))
	dst := Resize(src, 320, 240)
	if b := dst.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("unexpected size: %v", b)
	}
	// Matching size is returned as-is.
	if got := Resize(src, 64, 48); got != src {
		t.Fatal("matching size must not be copied")
	}
}

func TestYUYVToRGBA(t *testing.T) {
	data := []struct {
		name    string
		y, u, v byte
		want    [3]byte
	}{
		{"black", 16, 128, 128, [3]byte{0, 0, 0}},
		{"white", 235, 128, 128, [3]byte{255, 255, 255}},
		{"grey", 126, 128, 128, [3]byte{128, 128, 128}},
		{"red", 81, 90, 240, [3]byte{255, 0, 0}},
		{"blue", 41, 240, 110, [3]byte{0, 0, 255}},
	}
	for _, line := range data {
		raw := []byte{line.y, line.u, line.y, line.v}
		img := yuyvToRGBA(raw, 2, 1)
		for x := 0; x < 2; x++ {
			r, g, b, a := img.At(x, 0).RGBA()
			got := [3]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8)}
			if a != 0xFFFF {
				t.Fatalf("%s: alpha not opaque", line.name)
			}
			if d := maxDelta(got, line.want); d > 2 {
				t.Fatalf("%s pixel %d: got %v, expected %v (±2)", line.name, x, got, line.want)
			}
		}
	}
}

func TestYUYVToRGBAOddWidth(t *testing.T) {
	// A dangling half group at the end of each row must not read past the
	// buffer; the complete groups still decode.
	raw := []byte{
		235, 128, 235, 128, 16, 128, // row 0: white pair + half group
		16, 128, 16, 128, 235, 128, // row 1
	}
	img := yuyvToRGBA(raw, 3, 2)
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("unexpected size: %v", b)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 < 250 {
		t.Fatalf("pixel (0,0): got red %d, expected near 255", r>>8)
	}
}

func maxDelta(a, b [3]byte) int {
	m := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > m {
			m = d
		}
	}
	return m
}
