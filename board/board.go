// Package board owns the physical SPI buses and GPIO lines of the wallet
// appliance and is the only path by which other components touch hardware.
//
// Setup is deliberately fail-soft: each bus or pin that cannot be acquired
// is logged and marked unavailable, and the rest of the application keeps
// running in degraded mode. A hardware security appliance must stay
// interactive even with peripherals missing.
package board

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// adcMid is the neutral mid-scale value of the 10-bit MCP3008, returned
// whenever a reading cannot be taken.
const adcMid = 512

// Config is the static pin and bus assignment, fixed at startup.
type Config struct {
	// GPIO pin names (BCM numbering on a Raspberry Pi).
	DCPin        string // Display data/command line (default: GPIO24)
	ResetPin     string // Display reset line (default: GPIO25)
	BacklightPin string // Backlight PWM line (default: GPIO12)
	ButtonPin    string // Joystick select button, active low (default: GPIO23)

	// SPI port names as understood by spireg.
	DisplayPort string // Display bus (default: SPI0.0)
	ADCPort     string // MCP3008 bus (default: SPI1.0)

	DisplaySpeed physic.Frequency // default: 32MHz
	ADCSpeed     physic.Frequency // default: 1MHz

	BacklightFreq physic.Frequency // PWM frequency (default: 1kHz)
	Brightness    int              // initial backlight duty in percent (default: 100)
}

func (c *Config) setDefaults() {
	if c.DCPin == "" {
		c.DCPin = "GPIO24"
	}
	if c.ResetPin == "" {
		c.ResetPin = "GPIO25"
	}
	if c.BacklightPin == "" {
		c.BacklightPin = "GPIO12"
	}
	if c.ButtonPin == "" {
		c.ButtonPin = "GPIO23"
	}
	if c.DisplayPort == "" {
		c.DisplayPort = "SPI0.0"
	}
	if c.ADCPort == "" {
		c.ADCPort = "SPI1.0"
	}
	if c.DisplaySpeed == 0 {
		c.DisplaySpeed = 32 * physic.MegaHertz
	}
	if c.ADCSpeed == 0 {
		c.ADCSpeed = physic.MegaHertz
	}
	if c.BacklightFreq == 0 {
		c.BacklightFreq = physic.KiloHertz
	}
	if c.Brightness == 0 {
		c.Brightness = 100
	}
}

// Capabilities reports which hardware came up during Setup.
type Capabilities struct {
	DisplayPins bool // DC and reset lines configured
	Backlight   bool // backlight PWM running
	Button      bool // select button configured
	DisplayBus  bool // display SPI port open
	ADCBus      bool // MCP3008 SPI port open
}

// Manager acquires and releases all physical buses and pins exactly once.
//
// Acquisition workers never hold bus handles themselves; they call back into
// the manager for every read.
type Manager struct {
	cfg Config
	log *slog.Logger

	mu          sync.Mutex
	initialized bool
	caps        Capabilities

	dc        gpio.PinIO
	rst       gpio.PinIO
	backlight gpio.PinIO
	button    gpio.PinIn

	displayPort spi.PortCloser
	adcPort     spi.PortCloser
	adc         conn.Conn

	// Last-write-wins shared scalar, written by the control/settings layer
	// and read back by the PWM output.
	brightness atomic.Int32
}

// New creates a Manager. The logger may be nil, in which case slog.Default
// is used. No hardware is touched until Setup is called.
func New(cfg Config, logger *slog.Logger) *Manager {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{cfg: cfg, log: logger}
	m.brightness.Store(int32(clampPercent(cfg.Brightness)))
	return m
}

// Setup acquires pins and opens the SPI ports. It is idempotent and
// fail-soft: every sub-step failure is logged and the corresponding
// capability disabled, but Setup itself always succeeds so the application
// can run in degraded mode.
func (m *Manager) Setup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		m.log.Warn("board: already initialized")
		return nil
	}

	m.setupDisplayPins()
	m.setupButton()
	m.setupDisplayBus()
	m.setupADCBus()

	m.initialized = true
	m.log.Info("board: setup complete",
		"displayPins", m.caps.DisplayPins,
		"backlight", m.caps.Backlight,
		"button", m.caps.Button,
		"displayBus", m.caps.DisplayBus,
		"adcBus", m.caps.ADCBus)
	return nil
}

func (m *Manager) setupDisplayPins() {
	dc := gpioreg.ByName(m.cfg.DCPin)
	rst := gpioreg.ByName(m.cfg.ResetPin)
	if dc == nil || rst == nil {
		m.log.Warn("board: display control pins unavailable",
			"dc", m.cfg.DCPin, "reset", m.cfg.ResetPin)
		return
	}
	if err := dc.Out(gpio.Low); err != nil {
		m.log.Warn("board: display DC pin setup failed", "err", err)
		return
	}
	if err := rst.Out(gpio.High); err != nil {
		m.log.Warn("board: display reset pin setup failed", "err", err)
		return
	}
	m.dc = dc
	m.rst = rst
	m.caps.DisplayPins = true

	bl := gpioreg.ByName(m.cfg.BacklightPin)
	if bl == nil {
		m.log.Warn("board: backlight pin unavailable", "pin", m.cfg.BacklightPin)
		return
	}
	if err := bl.PWM(dutyFromPercent(int(m.brightness.Load())), m.cfg.BacklightFreq); err != nil {
		m.log.Warn("board: backlight PWM setup failed", "err", err)
		return
	}
	m.backlight = bl
	m.caps.Backlight = true
}

func (m *Manager) setupButton() {
	p := gpioreg.ByName(m.cfg.ButtonPin)
	if p == nil {
		m.log.Warn("board: button pin unavailable", "pin", m.cfg.ButtonPin)
		return
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		m.log.Warn("board: button setup failed", "err", err)
		return
	}
	m.button = p
	m.caps.Button = true
}

func (m *Manager) setupDisplayBus() {
	port, err := spireg.Open(m.cfg.DisplayPort)
	if err != nil {
		m.log.Warn("board: display SPI open failed", "port", m.cfg.DisplayPort, "err", err)
		return
	}
	m.displayPort = port
	m.caps.DisplayBus = true
	m.log.Info("board: display SPI configured", "port", m.cfg.DisplayPort)
}

func (m *Manager) setupADCBus() {
	port, err := spireg.Open(m.cfg.ADCPort)
	if err != nil {
		m.log.Warn("board: ADC SPI open failed", "port", m.cfg.ADCPort, "err", err)
		return
	}
	c, err := port.Connect(m.cfg.ADCSpeed, spi.Mode0, 8)
	if err != nil {
		m.log.Warn("board: ADC SPI connect failed", "err", err)
		port.Close()
		return
	}
	m.adcPort = port
	m.adc = c
	m.caps.ADCBus = true
	m.log.Info("board: ADC SPI configured", "port", m.cfg.ADCPort)
}

// SetBrightness sets the backlight duty cycle, clamped to [0, 100]. It is a
// no-op (not an error) when the backlight is unavailable.
func (m *Manager) SetBrightness(percent int) {
	percent = clampPercent(percent)
	m.brightness.Store(int32(percent))

	m.mu.Lock()
	bl := m.backlight
	m.mu.Unlock()
	if bl == nil {
		return
	}
	if err := bl.PWM(dutyFromPercent(percent), m.cfg.BacklightFreq); err != nil {
		m.log.Error("board: backlight write failed", "err", err)
	}
}

// Brightness returns the last brightness value written.
func (m *Manager) Brightness() int {
	return int(m.brightness.Load())
}

// ReadButton returns whether the select button is pressed. The button is
// active low: electrical low means pressed. Returns false if the pin was
// never configured.
func (m *Manager) ReadButton() bool {
	m.mu.Lock()
	b := m.button
	m.mu.Unlock()
	if b == nil {
		return false
	}
	return b.Read() == gpio.Low
}

// ReadADC reads one MCP3008 channel and returns its 10-bit value.
//
// The command encodes start bit + single-ended mode + channel select in a
// 3-byte transaction; the 10-bit result spans the last two response bytes.
// On any failure, or when the ADC bus is unavailable, the neutral mid-scale
// value is returned instead of an error.
func (m *Manager) ReadADC(channel int) uint16 {
	if channel < 0 || channel > 7 {
		m.log.Error("board: ADC channel out of range", "channel", channel)
		return adcMid
	}
	m.mu.Lock()
	c := m.adc
	m.mu.Unlock()
	if c == nil {
		return adcMid
	}

	w := []byte{0x01, byte(0x08+channel) << 4, 0x00}
	r := make([]byte, 3)
	if err := c.Tx(w, r); err != nil {
		m.log.Error("board: ADC read failed", "channel", channel, "err", err)
		return adcMid
	}
	return uint16(r[1]&0x03)<<8 | uint16(r[2])
}

// Capabilities reports which peripherals are available.
func (m *Manager) Capabilities() Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps
}

// DisplayPort returns the display SPI port, or nil when unavailable. The
// display driver connects at its own speed.
func (m *Manager) DisplayPort() spi.Port {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.displayPort == nil {
		return nil
	}
	return m.displayPort
}

// DisplaySpeed returns the configured display bus clock.
func (m *Manager) DisplaySpeed() physic.Frequency {
	return m.cfg.DisplaySpeed
}

// DataCommandPin returns the display data/command line, or nil.
func (m *Manager) DataCommandPin() gpio.PinOut {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dc == nil {
		return nil
	}
	return m.dc
}

// ResetPin returns the display hardware reset line, or nil.
func (m *Manager) ResetPin() gpio.PinIO {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rst
}

// Cleanup stops the backlight PWM, closes the SPI ports and releases the
// pins. It is safe to call multiple times and never fails.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backlight != nil {
		if err := m.backlight.Halt(); err != nil {
			m.log.Error("board: backlight stop failed", "err", err)
		}
		m.backlight = nil
	}
	if m.displayPort != nil {
		if err := m.displayPort.Close(); err != nil {
			m.log.Error("board: display SPI close failed", "err", err)
		}
		m.displayPort = nil
	}
	if m.adcPort != nil {
		if err := m.adcPort.Close(); err != nil {
			m.log.Error("board: ADC SPI close failed", "err", err)
		}
		m.adcPort = nil
	}
	m.adc = nil
	m.dc = nil
	m.rst = nil
	m.button = nil
	m.caps = Capabilities{}
	m.initialized = false
	m.log.Info("board: cleanup complete")
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func dutyFromPercent(p int) gpio.Duty {
	return gpio.Duty(int64(gpio.DutyMax) * int64(clampPercent(p)) / 100)
}
