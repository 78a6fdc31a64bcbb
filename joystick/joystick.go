// Package joystick turns raw ADC readings from a two-axis analog stick into
// discrete navigation events.
//
// A background worker polls the axes and the select button at a fixed rate,
// maps each sample to a direction and pushes events into a bounded queue.
// Held directions auto-repeat; the button is debounced independently.
package joystick

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mankin3n/cryptowallet-ST7789/input"
)

// Reader is the hardware surface the joystick polls. Implementations must
// be fail-soft: a reading that cannot be taken returns a neutral value, not
// an error.
type Reader interface {
	// ReadADC returns the 10-bit value of one ADC channel.
	ReadADC(channel int) uint16
	// ReadButton reports whether the select button is pressed.
	ReadButton() bool
}

// Sample is one raw reading of both axes.
type Sample struct {
	X uint16
	Y uint16
}

// Config tunes the polling and mapping behavior.
type Config struct {
	XChannel int // ADC channel of the horizontal axis (default: 0)
	YChannel int // ADC channel of the vertical axis (default: 1)

	Center    uint16 // resting value of both axes (default: 512)
	Deadzone  uint16 // radius around center treated as rest (default: 100)
	Threshold uint16 // deflection a direction must exceed (default: 300)

	PollRate       int           // samples per second (default: 100)
	RepeatInterval time.Duration // auto-repeat period for held directions (default: 200ms)
	Debounce       time.Duration // minimum interval between button presses (default: 50ms)

	QueueSize int // event queue capacity (default: 64)
}

func (c *Config) setDefaults() {
	if c.YChannel == 0 && c.XChannel == 0 {
		c.YChannel = 1
	}
	if c.Center == 0 {
		c.Center = 512
	}
	if c.Deadzone == 0 {
		c.Deadzone = 100
	}
	if c.Threshold == 0 {
		c.Threshold = 300
	}
	if c.PollRate <= 0 {
		c.PollRate = 100
	}
	if c.RepeatInterval == 0 {
		c.RepeatInterval = 200 * time.Millisecond
	}
	if c.Debounce == 0 {
		c.Debounce = 50 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
}

// MapDirection converts one axis sample to a direction.
//
// Readings within the deadzone on both axes rest at None. Otherwise the
// axis with the larger deflection is selected (the vertical axis wins
// ties), and its deflection must strictly exceed the threshold to
// register. The band between deadzone and threshold maps to None, which
// gives the stick hysteresis against jitter around the trip point.
func (c Config) MapDirection(s Sample) input.Direction {
	dx := int(s.X) - int(c.Center)
	dy := int(s.Y) - int(c.Center)
	adx, ady := abs(dx), abs(dy)

	if adx < int(c.Deadzone) && ady < int(c.Deadzone) {
		return input.None
	}
	if ady >= adx {
		if ady <= int(c.Threshold) {
			return input.None
		}
		if dy < 0 {
			return input.Up
		}
		return input.Down
	}
	if adx <= int(c.Threshold) {
		return input.None
	}
	if dx < 0 {
		return input.Left
	}
	return input.Right
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Joystick polls a Reader in the background and queues navigation events.
type Joystick struct {
	cfg    Config
	r      Reader
	log    *slog.Logger
	events *input.Queue

	running atomic.Bool
	done    chan struct{}

	// Worker-local state, touched only by the poll loop.
	lastDir   input.Direction
	lastEmit  time.Time
	lastPress time.Time
}

// New creates a Joystick reading from r. The logger may be nil.
func New(cfg Config, r Reader, logger *slog.Logger) *Joystick {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Joystick{
		cfg:    cfg,
		r:      r,
		log:    logger,
		events: input.NewQueue(cfg.QueueSize),
	}
}

// Start launches the polling worker. Calling Start on a running joystick is
// a no-op.
func (j *Joystick) Start() {
	if !j.running.CompareAndSwap(false, true) {
		return
	}
	j.done = make(chan struct{})
	go j.poll()
	j.log.Info("joystick: polling started", "rate", j.cfg.PollRate)
}

// Stop halts the polling worker, waiting up to one second for it to exit.
// Calling Stop on a stopped joystick is a no-op.
func (j *Joystick) Stop() {
	if !j.running.CompareAndSwap(true, false) {
		return
	}
	select {
	case <-j.done:
	case <-time.After(time.Second):
		j.log.Warn("joystick: poll worker did not stop in time")
	}
	j.log.Info("joystick: polling stopped")
}

// GetEvent returns the oldest pending event, or ok=false when none is
// queued. It never blocks.
func (j *Joystick) GetEvent() (input.Event, bool) {
	return j.events.Pop()
}

// ClearEvents discards all pending events, for screen transitions that must
// not act on stale input.
func (j *Joystick) ClearEvents() {
	j.events.Clear()
}

func (j *Joystick) poll() {
	defer close(j.done)
	t := time.NewTicker(time.Second / time.Duration(j.cfg.PollRate))
	defer t.Stop()
	for j.running.Load() {
		now := <-t.C
		j.tick(now)
	}
}

// tick processes one poll cycle at the given instant.
func (j *Joystick) tick(now time.Time) {
	// The debounce window alone gates presses: a held button re-emits
	// every interval, which doubles as press auto-repeat.
	if j.r.ReadButton() && now.Sub(j.lastPress) >= j.cfg.Debounce {
		j.events.Push(input.Event{Direction: input.Press, Time: now})
		j.lastPress = now
	}

	s := Sample{
		X: j.r.ReadADC(j.cfg.XChannel),
		Y: j.r.ReadADC(j.cfg.YChannel),
	}
	d := j.cfg.MapDirection(s)
	if d != input.None {
		if d != j.lastDir || now.Sub(j.lastEmit) >= j.cfg.RepeatInterval {
			j.events.Push(input.Event{Direction: d, Time: now})
			j.lastEmit = now
		}
	}
	j.lastDir = d
}
