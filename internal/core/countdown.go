package core

import (
	"fmt"
	"time"

	"countdown-timer/internal/fsm"
	"countdown-timer/internal/types"
)

func formatTime(seconds uint16) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// countdownLoop decrements the running countdown once per second. The phase
// is re-checked every tick so a pause or abort between ticks freezes the
// record before the next decrement. If the guard cannot be taken within the
// bounded wait the tick is skipped and the decrement happens on the next one.
func (s *TimerSystem) countdownLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ledOn := false
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}

		ledOn = s.countdownTick(ledOn)
	}
}

// countdownTick runs one second of countdown work and returns the new blink
// state.
func (s *TimerSystem) countdownTick(ledOn bool) bool {
	if s.currentPhase() != types.PhaseCounting {
		return false
	}

	if !s.countdownGuard.AcquireTimeout(guardWait) {
		s.logger.Warnf("Countdown record busy, skipping tick")
		return ledOn
	}
	if s.countdown.RemainingSeconds > 0 {
		s.countdown.RemainingSeconds--
	}
	remaining := s.countdown.RemainingSeconds
	display := s.display
	s.countdownGuard.Release()

	line := fmt.Sprintf("Time: %s", formatTime(remaining))
	if display.ShowExtendedInfo {
		line = fmt.Sprintf("Time: %s  remaining=%ds duty=%d%%",
			formatTime(remaining), remaining, s.pwm.GetDutyCycle())
	}
	s.console.WriteLine(line)

	// Blink the output in lockstep with the seconds unless the solid mode
	// toggle holds it on.
	ledOn = !ledOn
	enabled := ledOn || display.SolidMode
	if err := s.pwm.SetOutputEnabled(enabled); err != nil {
		s.logger.Warnf("Failed to toggle PWM output: %v", err)
	}

	if err := s.redis.PublishRemaining(remaining); err != nil {
		s.logger.Debugf("Failed to publish remaining: %v", err)
	}

	if remaining == 0 {
		if err := s.sendEvent(fsm.EvCountdownDone); err != nil {
			s.logger.Errorf("Failed to complete countdown: %v", err)
		}
	}
	return ledOn
}
