package core

import (
	"context"
	"fmt"

	"countdown-timer/internal/fsm"
	"countdown-timer/internal/hardware"
	"countdown-timer/internal/types"

	"github.com/librescoot/librefsm"
)

// State IDs and phases share their string values, so the mapping is a
// conversion.
func stateIDToPhase(id librefsm.StateID) types.Phase {
	return types.Phase(id)
}

// initFSM builds and starts the librefsm machine
func (s *TimerSystem) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(s, s.completionDisplay)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	s.machine = machine

	// Mirror the phase into the guarded field and publish every change.
	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		newPhase := stateIDToPhase(to)
		oldPhase := stateIDToPhase(from)

		s.phaseGuard.Acquire()
		s.phase = newPhase
		s.phaseGuard.Release()

		s.logger.Infof("Phase transition: %s -> %s", oldPhase, newPhase)

		if err := s.redis.PublishTimerPhase(newPhase); err != nil {
			s.logger.Errorf("Failed to publish phase: %v", err)
		}
	})

	if err := s.machine.Start(ctx); err != nil {
		return err
	}

	s.logger.Infof("State machine started")
	return nil
}

// sendEvent sends an event to the FSM
func (s *TimerSystem) sendEvent(event librefsm.EventID) error {
	return s.machine.SendSync(librefsm.Event{ID: event})
}

// EnterWaiting shows the banner and runs the breathing effect until PB1.
func (s *TimerSystem) EnterWaiting(c *librefsm.Context) error {
	// Gestures from the previous phase must not leak into this one.
	s.queue.Drain()
	s.requestClearPending()

	s.countdownGuard.Acquire()
	s.countdown = types.CountdownRecord{}
	s.countdownGuard.Release()

	s.console.Write("\r\n\n========================================\r\n")
	s.console.Write("      COUNTDOWN TIMER APPLICATION\r\n")
	s.console.Write("========================================\r\n")
	s.console.Write("Press PB1 to enter time...\r\n\n")

	if err := s.pwm.ResetPulse(); err != nil {
		s.logger.Warnf("Failed to reset pulse: %v", err)
	}
	if err := s.pwm.Start(); err != nil {
		s.logger.Warnf("Failed to start PWM: %v", err)
	}
	if err := s.pwm.SetOutputEnabled(true); err != nil {
		s.logger.Warnf("Failed to enable PWM output: %v", err)
	}
	s.startPulse()
	return nil
}

func (s *TimerSystem) ExitWaiting(c *librefsm.Context) error {
	s.stopPulse()
	if err := s.pwm.Stop(); err != nil {
		s.logger.Warnf("Failed to stop PWM: %v", err)
	}
	return nil
}

func (s *TimerSystem) EnterEnteringTime(c *librefsm.Context) error {
	s.entryMu.Lock()
	s.entry = s.entry[:0]
	s.entryMu.Unlock()

	s.promptTimeEntry()
	return nil
}

func (s *TimerSystem) EnterReady(c *librefsm.Context) error {
	s.countdownGuard.Acquire()
	total := s.countdown.TotalSeconds
	s.countdownGuard.Release()

	s.console.Write("\r\nTime set! Press PB2+PB3 to start (long press to clear).\r\n")

	if err := s.redis.PublishTotal(total); err != nil {
		s.logger.Debugf("Failed to publish total: %v", err)
	}
	return nil
}

// EnterCounting starts a fresh run when coming from Ready and resumes the
// existing one when coming from Paused.
func (s *TimerSystem) EnterCounting(c *librefsm.Context) error {
	fresh := c.FromState == fsm.StateReady

	s.countdownGuard.Acquire()
	if fresh {
		s.countdown.RemainingSeconds = s.countdown.TotalSeconds
	}
	remaining := s.countdown.RemainingSeconds
	s.countdownGuard.Release()

	if fresh {
		s.console.Write("\r\n[COUNTDOWN STARTED]\r\n")
		if err := s.pwm.Start(); err != nil {
			s.logger.Warnf("Failed to start PWM: %v", err)
		}
		if err := s.pwm.SetDutyCycle(hardware.DefaultDutyPct); err != nil {
			s.logger.Warnf("Failed to set duty cycle: %v", err)
		}
		s.console.Write(fmt.Sprintf("Time: %s\r\n", formatTime(remaining)))
	} else {
		s.console.Write("\r\n[RESUMED]\r\n")
	}

	if err := s.pwm.SetOutputEnabled(true); err != nil {
		s.logger.Warnf("Failed to enable PWM output: %v", err)
	}
	return nil
}

// EnterPaused freezes the display and holds the LED at its current duty.
func (s *TimerSystem) EnterPaused(c *librefsm.Context) error {
	s.console.Write("\r\n[PAUSED] Press PB3 to resume.\r\n")
	if err := s.pwm.SetOutputEnabled(true); err != nil {
		s.logger.Warnf("Failed to hold PWM output: %v", err)
	}
	return nil
}

func (s *TimerSystem) EnterCompleted(c *librefsm.Context) error {
	if err := s.pwm.Stop(); err != nil {
		s.logger.Warnf("Failed to stop PWM: %v", err)
	}
	s.console.Write("\r\n\nCOUNTDOWN COMPLETE!\r\n\n")
	return nil
}

func (s *TimerSystem) ExitCompleted(c *librefsm.Context) error {
	s.countdownGuard.Acquire()
	s.countdown = types.CountdownRecord{}
	s.countdownGuard.Release()
	return nil
}

// HasTimeSet guards the start transition against an unset countdown.
func (s *TimerSystem) HasTimeSet(c *librefsm.Context) bool {
	s.countdownGuard.Acquire()
	defer s.countdownGuard.Release()
	return s.countdown.TotalSeconds > 0
}

// OnClearTime discards the configured value on the combo long press.
func (s *TimerSystem) OnClearTime(c *librefsm.Context) error {
	s.countdownGuard.Acquire()
	s.countdown = types.CountdownRecord{}
	s.countdownGuard.Release()

	s.console.Write("\r\nTime cleared. Re-enter value.\r\n")
	return nil
}

// OnAbort discards countdown progress on the PB3 long press.
func (s *TimerSystem) OnAbort(c *librefsm.Context) error {
	s.countdownGuard.Acquire()
	s.countdown = types.CountdownRecord{}
	s.countdownGuard.Release()

	s.console.Write("\r\nCountdown aborted.\r\n")
	if err := s.redis.PublishRemaining(0); err != nil {
		s.logger.Debugf("Failed to publish remaining: %v", err)
	}
	return nil
}
