package camera

import (
	"errors"
	"image"
	"image/color"
)

var errNotOpen = errors.New("camera: source not open")

// TestPattern is a Source that synthesizes a moving color gradient. It
// stands in for real hardware on development machines and in tests.
type TestPattern struct {
	w, h  int
	phase uint8
	open  bool
}

func (t *TestPattern) Open(width, height int) error {
	t.w, t.h = width, height
	t.open = true
	return nil
}

func (t *TestPattern) Capture() (*image.RGBA, error) {
	if !t.open {
		return nil, errNotOpen
	}
	img := image.NewRGBA(image.Rect(0, 0, t.w, t.h))
	for y := 0; y < t.h; y++ {
		for x := 0; x < t.w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x) + t.phase,
				G: uint8(y),
				B: uint8(x+y) - t.phase,
				A: 0xFF,
			})
		}
	}
	t.phase += 7
	return img, nil
}

func (t *TestPattern) Close() error {
	t.open = false
	return nil
}
