package camera

import (
	"fmt"
	"image"

	"github.com/blackjack/webcam"
)

// fourccYUYV is the packed YUV 4:2:2 pixel format most UVC cameras
// deliver natively.
const fourccYUYV = webcam.PixelFormat(0x56595559)

// V4L2 captures from a Video4Linux2 device such as a USB webcam or the
// Raspberry Pi camera through the bcm2835 codec.
type V4L2 struct {
	// Device is the device node, e.g. /dev/video0.
	Device string

	cam  *webcam.Webcam
	w, h int
}

// Open configures the device for YUYV capture at the given size. The
// driver may substitute the nearest supported size; subsequent frames are
// decoded at whatever size it granted.
func (v *V4L2) Open(width, height int) error {
	if v.cam != nil {
		return fmt.Errorf("v4l2: %s already open", v.Device)
	}
	cam, err := webcam.Open(v.Device)
	if err != nil {
		return fmt.Errorf("v4l2: open %s: %w", v.Device, err)
	}
	_, w, h, err := cam.SetImageFormat(fourccYUYV, uint32(width), uint32(height))
	if err != nil {
		cam.Close()
		return fmt.Errorf("v4l2: set format on %s: %w", v.Device, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("v4l2: start streaming on %s: %w", v.Device, err)
	}
	v.cam = cam
	// YUYV carries two pixels per 4-byte group; an odd granted width
	// would leave a dangling half group, so it is rounded down.
	v.w, v.h = int(w)&^1, int(h)
	return nil
}

// Capture blocks for the next frame and decodes it to RGBA.
func (v *V4L2) Capture() (*image.RGBA, error) {
	if v.cam == nil {
		return nil, fmt.Errorf("v4l2: %s not open", v.Device)
	}
	if err := v.cam.WaitForFrame(1); err != nil {
		return nil, fmt.Errorf("v4l2: wait for frame: %w", err)
	}
	raw, err := v.cam.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("v4l2: read frame: %w", err)
	}
	if len(raw) < v.w*v.h*2 {
		return nil, fmt.Errorf("v4l2: short frame: %d bytes for %dx%d", len(raw), v.w, v.h)
	}
	return yuyvToRGBA(raw, v.w, v.h), nil
}

// Close stops streaming and releases the device.
func (v *V4L2) Close() error {
	if v.cam == nil {
		return nil
	}
	cam := v.cam
	v.cam = nil
	if err := cam.StopStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("v4l2: stop streaming: %w", err)
	}
	return cam.Close()
}

// yuyvToRGBA converts packed YUYV 4:2:2 to RGBA using BT.601 coefficients.
// Each 4-byte group carries two pixels sharing one chroma pair.
func yuyvToRGBA(raw []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := y * w * 2
		dst := y * img.Stride
		for x := 0; x+1 < w; x += 2 {
			y0 := raw[src]
			u := raw[src+1]
			y1 := raw[src+2]
			v := raw[src+3]
			src += 4

			r, g, b := ycbcr(y0, u, v)
			img.Pix[dst] = r
			img.Pix[dst+1] = g
			img.Pix[dst+2] = b
			img.Pix[dst+3] = 0xFF
			r, g, b = ycbcr(y1, u, v)
			img.Pix[dst+4] = r
			img.Pix[dst+5] = g
			img.Pix[dst+6] = b
			img.Pix[dst+7] = 0xFF
			dst += 8
		}
	}
	return img
}

func ycbcr(y, cb, cr byte) (r, g, b byte) {
	c := int(y) - 16
	d := int(cb) - 128
	e := int(cr) - 128
	return clamp8((298*c + 409*e + 128) >> 8),
		clamp8((298*c - 100*d - 208*e + 128) >> 8),
		clamp8((298*c + 516*d + 128) >> 8)
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
