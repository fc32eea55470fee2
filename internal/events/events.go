package events

import "time"

// Button identifies the physical source of an event. The PB2+PB3 combo is a
// source of its own so consumers never have to correlate individual presses.
type Button int

const (
	ButtonNone Button = iota
	ButtonPB1
	ButtonPB2
	ButtonPB3
	ButtonPB2AndPB3
)

func (b Button) String() string {
	switch b {
	case ButtonPB1:
		return "pb1"
	case ButtonPB2:
		return "pb2"
	case ButtonPB3:
		return "pb3"
	case ButtonPB2AndPB3:
		return "pb2+pb3"
	default:
		return "none"
	}
}

// Kind classifies a gesture.
type Kind int

const (
	KindNone Kind = iota
	KindClick
	KindLongPress
)

func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	case KindLongPress:
		return "long-press"
	default:
		return "none"
	}
}

// ButtonEvent is an immutable gesture notification produced by the poll loop
// and consumed exactly once downstream.
type ButtonEvent struct {
	Button Button
	Kind   Kind
}

// Queue is a bounded, ordered hand-off of button events. The producer side
// never blocks: a full queue drops the event, keeping the poll loop on
// schedule. Still-held buttons are re-sampled every tick, so only transient
// clicks can be lost under sustained overflow.
type Queue struct {
	ch chan ButtonEvent
}

// NewQueue creates a queue holding at most capacity undelivered events.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan ButtonEvent, capacity)}
}

// TrySend enqueues the event without blocking. Returns false if the queue was
// full and the event was dropped.
func (q *Queue) TrySend(ev ButtonEvent) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

// Receive waits up to timeout for the next event. Returns false if no event
// arrived within the budget.
func (q *Queue) Receive(timeout time.Duration) (ButtonEvent, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	case <-time.After(timeout):
		return ButtonEvent{}, false
	}
}

// TryReceive returns the next event if one is already queued.
func (q *Queue) TryReceive() (ButtonEvent, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
		return ButtonEvent{}, false
	}
}

// Drain discards all queued events. Used when entering the waiting phase so
// stale gestures from a previous cycle are not replayed.
func (q *Queue) Drain() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}

// Len reports the number of undelivered events.
func (q *Queue) Len() int {
	return len(q.ch)
}
