// Package input defines the navigation events produced by the physical
// controls and a bounded queue for delivering them to the UI loop.
package input

import "time"

// Direction is a discrete navigation action.
type Direction int

const (
	None Direction = iota
	Up
	Down
	Left
	Right
	Press
)

var directionNames = [...]string{"none", "up", "down", "left", "right", "press"}

func (d Direction) String() string {
	if d < None || int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// Event is a single navigation action with the instant it was registered.
type Event struct {
	Direction Direction
	Time      time.Time
}

// Queue is a bounded FIFO of events. When full, the oldest event is dropped
// to make room: during a UI stall the stale presses are the ones discarded,
// and the most recent input wins.
type Queue struct {
	ch chan Event
}

// NewQueue returns a queue holding at most n events. n must be positive.
func NewQueue(n int) *Queue {
	if n < 1 {
		n = 1
	}
	return &Queue{ch: make(chan Event, n)}
}

// Push appends an event, evicting the oldest entry if the queue is full.
func (q *Queue) Push(e Event) {
	for {
		select {
		case q.ch <- e:
			return
		default:
		}
		// Full. Drop the oldest and retry. The drain may lose the race with
		// a concurrent Pop, in which case the send simply succeeds next
		// time around.
		select {
		case <-q.ch:
		default:
		}
	}
}

// Pop removes and returns the oldest event. ok is false when the queue is
// empty; Pop never blocks.
func (q *Queue) Pop() (e Event, ok bool) {
	select {
	case e = <-q.ch:
		return e, true
	default:
		return Event{}, false
	}
}

// Clear discards all pending events.
func (q *Queue) Clear() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.ch)
}
