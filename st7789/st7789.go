package st7789

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/mankin3n/cryptowallet-ST7789/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// ST7789 command bytes.
const (
	cmdSWRESET   = 0x01 // Software reset
	cmdSLPOUT    = 0x11 // Sleep out
	cmdNORON     = 0x13 // Normal display mode on
	cmdINVOFF    = 0x20 // Display inversion off
	cmdINVON     = 0x21 // Display inversion on
	cmdDISPOFF   = 0x28 // Display off
	cmdDISPON    = 0x29 // Display on
	cmdCASET     = 0x2A // Column address set
	cmdRASET     = 0x2B // Row address set
	cmdRAMWR     = 0x2C // Memory write
	cmdMADCTL    = 0x36 // Memory data access control
	cmdCOLMOD    = 0x3A // Interface pixel format
	cmdPORCTRL   = 0xB2 // Porch control
	cmdGCTRL     = 0xB7 // Gate control
	cmdVCOMS     = 0xBB // VCOMS setting
	cmdLCMCTRL   = 0xC0 // LCM control
	cmdVDVVRHEN  = 0xC2 // VDV and VRH command enable
	cmdVRHS      = 0xC3 // VRH set
	cmdVDVS      = 0xC4 // VDV set
	cmdFRCTRL2   = 0xC6 // Frame rate control in normal mode
	cmdPWCTRL1   = 0xD0 // Power control 1
	cmdPVGAMCTRL = 0xE0 // Positive voltage gamma control
	cmdNVGAMCTRL = 0xE1 // Negative voltage gamma control
)

// chunkSize bounds a single pixel burst to keep peak memory and per-transfer
// latency small.
const chunkSize = 4096

// Opts is the configuration for the ST7789 display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 320)
	H int // Height (default: 240)

	// SPI clock speed (default: 32MHz, the maximum recommended for this
	// controller over jumper wires).
	Speed physic.Frequency

	// Optional hardware reset pin
	RST gpio.PinIO
	// Optional chip select pin, asserted low for the duration of each
	// command or data burst. Leave nil when the SPI port drives CS.
	CS gpio.PinOut
}

// Dev is the device handle for the ST7789 display.
type Dev struct {
	// Communication
	c   conn.Conn   // SPI connection
	dc  gpio.PinOut // Data/Command pin
	cs  gpio.PinOut // Chip select pin (optional)
	rst gpio.PinIO  // Reset pin (optional)

	// Display geometry
	rect image.Rectangle

	// State
	halted bool
}

// NewSPI creates a new ST7789 device connected via SPI.
//
// The SPI port is configured for Mode0 (CPOL=0, CPHA=0), 8-bit transfers.
// The dc (Data/Command) GPIO pin must be provided and configured as an
// output.
//
// opts can be nil to use defaults (320x240, 32MHz).
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{W: 320, H: 240}
	}
	if opts.W == 0 && opts.H == 0 {
		opts.W, opts.H = 320, 240
	}
	if opts.W != 320 || opts.H != 240 {
		return nil, errors.New("st7789: this driver only supports 320x240 panels")
	}
	if dc == nil {
		return nil, errors.New("st7789: data/command pin is required")
	}

	speed := opts.Speed
	if speed == 0 {
		speed = 32 * physic.MegaHertz
	}

	c, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("st7789: failed to connect SPI: %w", err)
	}

	d := &Dev{
		c:    c,
		dc:   dc,
		cs:   opts.CS,
		rst:  opts.RST,
		rect: image.Rect(0, 0, opts.W, opts.H),
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// reset performs the hardware reset pulse (if the RST pin is provided).
// The 120ms tail is the post-reset settle time from the datasheet.
func (d *Dev) reset() error {
	if d.rst == nil {
		return nil
	}
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("st7789: failed to drive RST high: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("st7789: failed to pull RST low: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("st7789: failed to release RST: %w", err)
	}
	time.Sleep(120 * time.Millisecond)
	return nil
}

// init sends the panel initialization sequence. Step ordering and delays
// follow the ST7789VW datasheet; the tuning constants match the 2.8" 320x240
// module this driver targets.
func (d *Dev) init() error {
	if err := d.reset(); err != nil {
		return err
	}

	steps := []struct {
		cmd   byte
		data  []byte
		delay time.Duration
	}{
		{cmdSWRESET, nil, 150 * time.Millisecond},
		{cmdSLPOUT, nil, 120 * time.Millisecond},
		// Landscape: row/column exchange, column address order reversed.
		{cmdMADCTL, []byte{0x60}, 0},
		// 16-bit/pixel (RGB565).
		{cmdCOLMOD, []byte{0x55}, 0},
		{cmdPORCTRL, []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}, 0},
		{cmdGCTRL, []byte{0x35}, 0},
		{cmdVCOMS, []byte{0x28}, 0},
		{cmdLCMCTRL, []byte{0x0C}, 0},
		{cmdVDVVRHEN, []byte{0x01, 0xFF}, 0},
		{cmdVRHS, []byte{0x10}, 0},
		{cmdVDVS, []byte{0x20}, 0},
		{cmdFRCTRL2, []byte{0x0F}, 0},
		{cmdPWCTRL1, []byte{0xA4, 0xA1}, 0},
		{cmdPVGAMCTRL, []byte{
			0xD0, 0x00, 0x02, 0x07, 0x0A, 0x28, 0x32,
			0x44, 0x42, 0x06, 0x0E, 0x12, 0x14, 0x17,
		}, 0},
		{cmdNVGAMCTRL, []byte{
			0xD0, 0x00, 0x02, 0x07, 0x0A, 0x28, 0x31,
			0x54, 0x47, 0x0E, 0x1C, 0x17, 0x1B, 0x1E,
		}, 0},
		{cmdINVON, nil, 0},
		{cmdNORON, nil, 10 * time.Millisecond},
		{cmdDISPON, nil, 120 * time.Millisecond},
	}

	for _, s := range steps {
		if err := d.command(s.cmd, s.data...); err != nil {
			return err
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}
	return nil
}

// command sends a command byte followed by its optional data payload.
func (d *Dev) command(cmd byte, data ...byte) error {
	if err := d.sendCommand(cmd); err != nil {
		return err
	}
	if len(data) > 0 {
		return d.sendData(data)
	}
	return nil
}

// sendCommand sends a single command byte with the D/C line low.
func (d *Dev) sendCommand(cmd byte) error {
	if d.cs != nil {
		if err := d.cs.Out(gpio.Low); err != nil {
			return err
		}
		defer d.cs.Out(gpio.High)
	}
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.c.Tx([]byte{cmd}, nil)
}

// sendData sends a slice of data bytes with the D/C line high.
func (d *Dev) sendData(data []byte) error {
	if d.cs != nil {
		if err := d.cs.Out(gpio.Low); err != nil {
			return err
		}
		defer d.cs.Out(gpio.High)
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.c.Tx(data, nil)
}

// SetWindow sets the inclusive pixel address window for subsequent writes
// and puts the controller into streaming-pixel mode.
func (d *Dev) SetWindow(x0, y0, x1, y1 int) error {
	if x0 < 0 || x0 > x1 || x1 >= d.rect.Dx() {
		return fmt.Errorf("st7789: invalid column window [%d, %d]", x0, x1)
	}
	if y0 < 0 || y0 > y1 || y1 >= d.rect.Dy() {
		return fmt.Errorf("st7789: invalid row window [%d, %d]", y0, y1)
	}

	// Column and row bounds are 16-bit big-endian.
	if err := d.command(cmdCASET,
		byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdRASET,
		byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.sendCommand(cmdRAMWR)
}

// ShowImage displays an image on the screen.
//
// The image must match the panel resolution exactly; resampling is the
// caller's responsibility. Pixels are packed to RGB565 and byte-swapped to
// the big-endian word order the panel expects.
func (d *Dev) ShowImage(img image.Image) error {
	if d.halted {
		return errors.New("st7789: halted")
	}
	b := img.Bounds()
	if b.Dx() != d.rect.Dx() || b.Dy() != d.rect.Dy() {
		return fmt.Errorf("st7789: invalid image size %dx%d, want %dx%d",
			b.Dx(), b.Dy(), d.rect.Dx(), d.rect.Dy())
	}

	if err := d.SetWindow(0, 0, d.rect.Dx()-1, d.rect.Dy()-1); err != nil {
		return err
	}
	return d.writePixels(encode(img))
}

// Clear fills the display with a solid color.
func (d *Dev) Clear(c color.Color) error {
	if d.halted {
		return errors.New("st7789: halted")
	}
	if err := d.SetWindow(0, 0, d.rect.Dx()-1, d.rect.Dy()-1); err != nil {
		return err
	}

	w := rgb565.Model.Convert(c).(rgb565.RGB565).V
	hi, lo := byte(w>>8), byte(w)

	chunk := make([]byte, chunkSize)
	for i := 0; i < chunkSize; i += 2 {
		chunk[i] = hi
		chunk[i+1] = lo
	}

	total := d.rect.Dx() * d.rect.Dy() * 2
	for total >= chunkSize {
		if err := d.sendData(chunk); err != nil {
			return err
		}
		total -= chunkSize
	}
	if total > 0 {
		return d.sendData(chunk[:total])
	}
	return nil
}

// writePixels streams pre-encoded pixel bytes in bounded chunks.
func (d *Dev) writePixels(pix []byte) error {
	for len(pix) > chunkSize {
		if err := d.sendData(pix[:chunkSize]); err != nil {
			return err
		}
		pix = pix[chunkSize:]
	}
	return d.sendData(pix)
}

// encode converts an image to the panel's byte-swapped RGB565 wire format.
func encode(img image.Image) []byte {
	if native, ok := img.(*rgb565.Image); ok {
		return native.Pix
	}

	b := img.Bounds()
	pix := make([]byte, b.Dx()*b.Dy()*2)
	if rgba, ok := img.(*image.RGBA); ok {
		o := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := rgba.PixOffset(b.Min.X, y)
			for x := 0; x < b.Dx(); x++ {
				w := rgb565.Pack(rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2])
				pix[o] = byte(w >> 8)
				pix[o+1] = byte(w)
				o += 2
				i += 4
			}
		}
		return pix
	}

	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			w := rgb565.Pack(uint8(r>>8), uint8(g>>8), uint8(bb>>8))
			pix[o] = byte(w >> 8)
			pix[o+1] = byte(w)
			o += 2
		}
	}
	return pix
}

// Invert enables or disables display color inversion.
func (d *Dev) Invert(on bool) error {
	if d.halted {
		return errors.New("st7789: halted")
	}
	if on {
		return d.sendCommand(cmdINVON)
	}
	return d.sendCommand(cmdINVOFF)
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Halt powers off the display.
// After calling Halt, the display will not respond to further commands
// until the device is re-initialized.
func (d *Dev) Halt() error {
	d.halted = true
	return d.sendCommand(cmdDISPOFF)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("st7789.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
