// Package rgb565 provides the 16-bit pixel format used by the ST7789 display.
//
// The ST7789 expects RGB565 pixels (5 bits red, 6 bits green, 5 bits blue)
// with the high byte of each 16-bit word transmitted first. Relative to the
// host's little-endian memory layout that is a byte swap, so the Image type
// stores its pixel data pre-swapped in wire order.
// This package provides the RGB565 color type and the Image implementation.
package rgb565

import (
	"image"
	"image/color"
)

// RGB565 represents a 16-bit color with 5-6-5 bit packing.
type RGB565 struct {
	V uint16
}

// RGBA converts the RGB565 color to standard RGBA.
// Each channel is expanded by replicating its high bits.
func (c RGB565) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c.V >> 11 & 0x1F)
	g6 := uint32(c.V >> 5 & 0x3F)
	b5 := uint32(c.V & 0x1F)
	r8 := r5<<3 | r5>>2
	g8 := g6<<2 | g6>>4
	b8 := b5<<3 | b5>>2
	return r8 * 0x101, g8 * 0x101, b8 * 0x101, 0xFFFF
}

// Pack packs 8-bit RGB channels into a RGB565 word.
func Pack(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}

// Swap exchanges the two bytes of a 16-bit pixel word. The panel expects
// big-endian words over an inherently little-endian transfer path, so every
// packed pixel is swapped before transmission.
func Swap(w uint16) uint16 {
	return w>>8 | w<<8
}

// toRGB565 converts any color.Color to RGB565.
func toRGB565(c color.Color) color.Color {
	if v, ok := c.(RGB565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	// RGBA returns 16-bit values, keep the top 8 bits of each channel.
	return RGB565{V: Pack(uint8(r>>8), uint8(g>>8), uint8(b>>8))}
}

// Model converts colors to RGB565.
var Model = color.ModelFunc(toRGB565)

// Image is a RGB565 image whose pixel data is stored byte-swapped in the
// exact order the ST7789 consumes it. Each pixel occupies 2 bytes.
type Image struct {
	Pix    []byte          // Pixel data in wire order (2 bytes per pixel)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// New creates a new Image with the specified bounds.
func New(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return &Image{Rect: r}
	}
	stride := w * 2
	return &Image{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the RGB565 color of the pixel at (x, y).
func (p *Image) RGB565At(x, y int) RGB565 {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return RGB565{}
	}
	o := p.pixOffset(x, y)
	// Undo the wire-order swap: high byte is stored first.
	return RGB565{V: uint16(p.Pix[o])<<8 | uint16(p.Pix[o+1])}
}

// Set sets the color of the pixel at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	p.SetRGB565(x, y, Model.Convert(c).(RGB565))
}

// SetRGB565 sets the RGB565 color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (p *Image) SetRGB565(x, y int, c RGB565) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	o := p.pixOffset(x, y)
	p.Pix[o] = byte(c.V >> 8)
	p.Pix[o+1] = byte(c.V)
}

// pixOffset returns the byte offset for the pixel at (x, y).
func (p *Image) pixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}
