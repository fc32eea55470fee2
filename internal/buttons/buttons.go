// Package buttons turns raw button samples into debounced click, long-press
// and combo gestures. It holds no hardware handles: the poll loop feeds it one
// sample per button per tick and asks for at most one pending event.
package buttons

import (
	"countdown-timer/internal/events"
)

const (
	// DefaultDebounceCount is the number of consecutive disagreeing samples
	// required before a state change commits (50 ms at the 10 ms poll rate).
	DefaultDebounceCount = 5

	// DefaultLongPressMs is the continuous hold duration that promotes a
	// press to a long-press gesture.
	DefaultLongPressMs = 1000
)

// Channel is the per-button debounce and gesture state. Owned exclusively by
// the poll loop; no locking.
type Channel struct {
	raw           bool
	debounced     bool
	previous      bool
	agreement     int
	heldMs        int
	clickPending  bool
	longPressSent bool
}

// Pressed reports the debounced state.
func (c *Channel) Pressed() bool { return c.debounced }

// HeldMs reports how long the button has been continuously pressed.
func (c *Channel) HeldMs() int { return c.heldMs }

func (c *Channel) seed(pressed bool) {
	c.raw = pressed
	c.debounced = pressed
	c.previous = pressed
	c.agreement = 0
	c.heldMs = 0
	c.clickPending = false
	c.longPressSent = false
}

// update runs one debounce tick. A reading matching the debounced state resets
// the agreement counter; a disagreeing reading must persist for debounceCount
// consecutive ticks before the change commits. Oscillation below the threshold
// never commits.
func (c *Channel) update(raw bool, elapsedMs, debounceCount int) {
	c.raw = raw

	if raw == c.debounced {
		c.agreement = 0
	} else {
		c.agreement++
		if c.agreement >= debounceCount {
			c.previous = c.debounced
			c.debounced = raw
			c.agreement = 0

			if c.debounced {
				// Press edge: start a fresh hold measurement.
				c.heldMs = 0
				c.longPressSent = false
			} else {
				// Release edge: a press that never reached the
				// long-press threshold is a click.
				if !c.longPressSent {
					c.clickPending = true
				}
				c.heldMs = 0
			}
		}
	}

	if c.debounced {
		c.heldMs += elapsedMs
	}
}

// takeClick atomically reads and clears the pending click.
func (c *Channel) takeClick() bool {
	if c.clickPending {
		c.clickPending = false
		return true
	}
	return false
}

// longPress fires exactly once per press when the hold duration reaches the
// threshold, and cancels the click the release would otherwise deliver.
func (c *Channel) longPress(thresholdMs int) bool {
	if c.debounced && c.heldMs >= thresholdMs && !c.longPressSent {
		c.longPressSent = true
		c.clickPending = false
		return true
	}
	return false
}

// comboTracker follows the PB2+PB3 combined gesture. The window opens when
// either button is first seen pressed after both were released, and closes the
// tick both are observed released.
type comboTracker struct {
	durationMs       int
	pb2Seen          bool
	pb3Seen          bool
	longPressSent    bool
	longPressPending bool
	clickPending     bool
}

func (t *comboTracker) reset() {
	t.durationMs = 0
	t.pb2Seen = false
	t.pb3Seen = false
	t.longPressSent = false
}

// Set owns the three button channels and the combo tracker.
type Set struct {
	debounceCount int
	longPressMs   int

	pb1   Channel
	pb2   Channel
	pb3   Channel
	combo comboTracker
}

// NewSet creates a gesture set with the default debounce and long-press
// thresholds.
func NewSet() *Set {
	return &Set{
		debounceCount: DefaultDebounceCount,
		longPressMs:   DefaultLongPressMs,
	}
}

// Seed initializes every channel from the actual current reading so a button
// held at startup does not produce a spurious edge.
func (s *Set) Seed(pb1, pb2, pb3 bool) {
	s.pb1.seed(pb1)
	s.pb2.seed(pb2)
	s.pb3.seed(pb3)
	s.combo.reset()
	s.combo.clickPending = false
	s.combo.longPressPending = false
}

// PB1 returns the PB1 channel for state queries.
func (s *Set) PB1() *Channel { return &s.pb1 }

// PB2 returns the PB2 channel for state queries.
func (s *Set) PB2() *Channel { return &s.pb2 }

// PB3 returns the PB3 channel for state queries.
func (s *Set) PB3() *Channel { return &s.pb3 }

// Update runs one poll tick: debounces all three channels, then evaluates the
// combo window. elapsedMs is the poll period.
func (s *Set) Update(pb1, pb2, pb3 bool, elapsedMs int) {
	s.pb1.update(pb1, elapsedMs, s.debounceCount)
	s.pb2.update(pb2, elapsedMs, s.debounceCount)
	s.pb3.update(pb3, elapsedMs, s.debounceCount)

	// Combo detection tolerates the two buttons arriving tens of
	// milliseconds apart: each is flagged the tick it is seen pressed, and
	// the gesture is judged when both have returned to released.
	if s.pb2.debounced {
		s.combo.pb2Seen = true
	}
	if s.pb3.debounced {
		s.combo.pb3Seen = true
	}

	if s.pb2.debounced || s.pb3.debounced {
		s.combo.durationMs += elapsedMs
	}

	if s.pb2.debounced && s.pb3.debounced {
		if s.combo.durationMs >= s.longPressMs && !s.combo.longPressSent {
			s.combo.longPressSent = true
			s.combo.longPressPending = true
			// Combo gestures suppress the single-button gestures for
			// this window entirely.
			s.pb2.clickPending = false
			s.pb3.clickPending = false
			s.pb2.longPressSent = true
			s.pb3.longPressSent = true
		}
	}

	if !s.pb2.debounced && !s.pb3.debounced {
		if s.combo.pb2Seen && s.combo.pb3Seen && !s.combo.longPressSent {
			if s.combo.durationMs > 0 && s.combo.durationMs < s.longPressMs {
				s.combo.clickPending = true
				s.pb2.clickPending = false
				s.pb3.clickPending = false
			} else if s.combo.durationMs == 0 {
				// A press pair too fast to accumulate any duration
				// yields no gesture at all, combo or individual.
				s.pb2.clickPending = false
				s.pb3.clickPending = false
			}
		}
		// Window closes whether or not a gesture fired.
		s.combo.reset()
	}
}

// NextEvent returns the highest-priority pending gesture, consuming it. At
// most one event is delivered per call: combo click, combo long-press, PB1
// click, PB3 long-press, PB3 click, PB2 click.
func (s *Set) NextEvent() (events.ButtonEvent, bool) {
	if s.combo.clickPending {
		s.combo.clickPending = false
		return events.ButtonEvent{Button: events.ButtonPB2AndPB3, Kind: events.KindClick}, true
	}
	if s.combo.longPressPending {
		s.combo.longPressPending = false
		return events.ButtonEvent{Button: events.ButtonPB2AndPB3, Kind: events.KindLongPress}, true
	}
	if s.pb1.takeClick() {
		return events.ButtonEvent{Button: events.ButtonPB1, Kind: events.KindClick}, true
	}
	if s.pb3.longPress(s.longPressMs) {
		return events.ButtonEvent{Button: events.ButtonPB3, Kind: events.KindLongPress}, true
	}
	if s.pb3.takeClick() {
		return events.ButtonEvent{Button: events.ButtonPB3, Kind: events.KindClick}, true
	}
	if s.pb2.takeClick() {
		return events.ButtonEvent{Button: events.ButtonPB2, Kind: events.KindClick}, true
	}
	return events.ButtonEvent{}, false
}

// ClearPending drops all pending clicks and arms long-press suppression for
// any press currently in progress. Used when the application discards stale
// gestures on a phase reset.
func (s *Set) ClearPending() {
	s.pb1.clickPending = false
	s.pb2.clickPending = false
	s.pb3.clickPending = false
	s.combo.clickPending = false
	s.combo.longPressPending = false

	s.pb1.longPressSent = true
	s.pb2.longPressSent = true
	s.pb3.longPressSent = true
	s.combo.longPressSent = true
}
