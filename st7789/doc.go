// Package st7789 controls a ST7789 TFT LCD panel via SPI.
//
// The ST7789 is a 16-bit color LCD controller. This driver targets the
// common 2.8" 320x240 module in landscape orientation and speaks the
// controller's command/data protocol byte-for-byte: one data/command
// control line, an optional active-low chip select, an optional hardware
// reset line, and RGB565 pixels with byte-swapped 16-bit words.
//
// # Hardware Connection
//
// Connect the display to your system via SPI (BCM numbering on a
// Raspberry Pi):
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	CLK         → SPI Clock (SCLK)
//	MOSI        → SPI Data (MOSI)
//	DC          → GPIO (any available pin)
//	CS          → SPI Chip Select (driven by the SPI port)
//	RESET       → Optional: GPIO for hardware reset
//	BL          → Optional: PWM-capable GPIO for the backlight
//
// This is a 3.3V logic device. Do not connect it to 5V logic.
//
// # Basic Usage
//
//	host.Init()
//
//	port, _ := spireg.Open("SPI0.0")
//	dc := gpioreg.ByName("GPIO24")
//
//	dev, _ := st7789.NewSPI(port, dc, &st7789.Opts{
//		W:   320,
//		H:   240,
//		RST: gpioreg.ByName("GPIO25"),
//	})
//
//	img := rgb565.New(dev.Bounds())
//	// ... draw into img ...
//	dev.ShowImage(img)
//
// ShowImage requires an image of exactly the panel resolution; callers that
// render at other sizes must resample first (the display package in this
// module does that). Images in the native rgb565 format are streamed without
// conversion.
//
// # Initialization
//
// NewSPI performs the full panel bring-up: hardware reset pulse, software
// reset, sleep exit, orientation and pixel format selection, the
// porch/gate/VCOM/power/gamma tuning block, inversion and display-on, with
// the settle delays the datasheet requires between steps. Any SPI or GPIO
// failure during bring-up is returned to the caller; this driver never
// falls back silently.
package st7789
