package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"countdown-timer/internal/buttons"
	"countdown-timer/internal/events"
	"countdown-timer/internal/fsm"
	"countdown-timer/internal/hardware"
	"countdown-timer/internal/logger"
	"countdown-timer/internal/messaging"
	"countdown-timer/internal/types"

	"github.com/librescoot/librefsm"
)

const (
	pollPeriod       = 10 * time.Millisecond
	eventBudget      = 100 * time.Millisecond
	brightnessPeriod = 100 * time.Millisecond
	guardWait        = 100 * time.Millisecond
	eventQueueSize   = 10
	maxEntryLen      = 15
)

type TimerSystem struct {
	logger  *logger.Logger
	io      ButtonReader
	pwm     PwmController
	pot     BrightnessReader
	console Console
	redis   MessagingClient

	machine           *librefsm.Machine
	completionDisplay time.Duration

	queue *events.Queue
	set   *buttons.Set

	// clearReq asks the poll loop to drop pending gestures. Capacity one,
	// duplicate requests collapse.
	clearReq chan struct{}

	phaseGuard *Guard
	phase      types.Phase

	countdownGuard *Guard
	countdown      types.CountdownRecord
	display        types.DisplaySettings

	entryMu sync.Mutex
	entry   []byte

	pulseStopChan chan struct{}

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewTimerSystem(io ButtonReader, pwm PwmController, pot BrightnessReader, console Console, redis MessagingClient, l *logger.Logger) *TimerSystem {
	return &TimerSystem{
		logger:            l,
		io:                io,
		pwm:               pwm,
		pot:               pot,
		console:           console,
		redis:             redis,
		completionDisplay: fsm.DefaultCompletionDisplay,
		queue:             events.NewQueue(eventQueueSize),
		set:               buttons.NewSet(),
		clearReq:          make(chan struct{}, 1),
		phaseGuard:        NewGuard(),
		phase:             types.PhaseWaiting,
		countdownGuard:    NewGuard(),
		stopChan:          make(chan struct{}),
	}
}

func (s *TimerSystem) Start(ctx context.Context) error {
	s.logger.Infof("Starting countdown timer system")

	s.redis.SetCallbacks(messaging.Callbacks{
		CommandCallback: s.handleRemoteCommand,
	})
	if err := s.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// The countdown itself never survives a restart, but the last
	// published phase tells us whether the previous run ended cleanly.
	if last, err := s.redis.GetTimerPhase(); err != nil {
		s.logger.Warnf("Failed to read back timer phase: %v", err)
	} else if last != types.PhaseWaiting {
		s.logger.Infof("Previous session ended in phase %s", last)
	}

	if err := s.pwm.Init(); err != nil {
		return fmt.Errorf("failed to initialize PWM: %w", err)
	}

	// Seed the debouncer from the live reading so a button held across
	// startup does not register as a fresh press.
	pb1, pb2, pb3, err := s.io.ReadButtons()
	if err != nil {
		return fmt.Errorf("failed to read initial button state: %w", err)
	}
	s.set.Seed(pb1, pb2, pb3)

	if err := s.initFSM(ctx); err != nil {
		return fmt.Errorf("failed to start state machine: %w", err)
	}

	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.wg.Add(4)
	go s.pollLoop()
	go s.eventLoop()
	go s.consoleLoop()
	go s.countdownLoop()
	if s.pot != nil {
		s.wg.Add(1)
		go s.brightnessLoop()
	}

	s.logger.Infof("System started")
	return nil
}

func (s *TimerSystem) Shutdown() {
	s.logger.Infof("Shutting down")
	close(s.stopChan)
	s.wg.Wait()

	s.stopPulse()
	if err := s.pwm.Stop(); err != nil {
		s.logger.Warnf("Failed to stop PWM: %v", err)
	}
	if err := s.io.Close(); err != nil {
		s.logger.Warnf("Failed to close button IO: %v", err)
	}
	if err := s.console.Close(); err != nil {
		s.logger.Warnf("Failed to close console: %v", err)
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Warnf("Failed to close Redis client: %v", err)
	}
	s.logger.Infof("Shutdown complete")
}

func (s *TimerSystem) currentPhase() types.Phase {
	s.phaseGuard.Acquire()
	defer s.phaseGuard.Release()
	return s.phase
}

// pollLoop owns the gesture set: it samples the buttons at 100 Hz, runs the
// debouncer and forwards at most one event per tick to the queue.
func (s *TimerSystem) pollLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}

		select {
		case <-s.clearReq:
			s.set.ClearPending()
		default:
		}

		pb1, pb2, pb3, err := s.io.ReadButtons()
		if err != nil {
			s.logger.Warnf("Failed to read buttons: %v", err)
			continue
		}

		s.set.Update(pb1, pb2, pb3, int(pollPeriod/time.Millisecond))
		if ev, ok := s.set.NextEvent(); ok {
			if !s.queue.TrySend(ev) {
				s.logger.Debugf("Event queue full, dropping %s %s", ev.Button, ev.Kind)
			}
		}
	}
}

// requestClearPending tells the poll loop to drop stale gestures on its next
// tick.
func (s *TimerSystem) requestClearPending() {
	select {
	case s.clearReq <- struct{}{}:
	default:
	}
}

func (s *TimerSystem) eventLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		if ev, ok := s.queue.Receive(eventBudget); ok {
			s.dispatchButtonEvent(ev)
		}
	}
}

func (s *TimerSystem) consoleLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case cmd, ok := <-s.console.Commands():
			if !ok {
				return
			}
			s.handleConsoleCommand(cmd)
		}
	}
}

// brightnessLoop tracks the potentiometer while the countdown runs and maps
// its position onto the LED duty cycle.
func (s *TimerSystem) brightnessLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(brightnessPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}

		phase := s.currentPhase()
		if phase != types.PhaseCounting && phase != types.PhasePaused {
			continue
		}

		pct, err := s.pot.ReadPercent()
		if err != nil {
			s.logger.Debugf("Failed to read potentiometer: %v", err)
			continue
		}
		if pct != s.pwm.GetDutyCycle() {
			if err := s.pwm.SetDutyCycle(pct); err != nil {
				s.logger.Warnf("Failed to set duty cycle: %v", err)
			}
		}
	}
}

func (s *TimerSystem) dispatchButtonEvent(ev events.ButtonEvent) {
	s.logger.Debugf("Button event: %s %s", ev.Button, ev.Kind)
	if err := s.redis.PublishButtonEvent(fmt.Sprintf("%s:%s", ev.Button, ev.Kind)); err != nil {
		s.logger.Debugf("Failed to publish button event: %v", err)
	}

	var fsmEv librefsm.EventID
	switch {
	case ev.Button == events.ButtonPB1 && ev.Kind == events.KindClick:
		fsmEv = fsm.EvPB1Click
	case ev.Button == events.ButtonPB2 && ev.Kind == events.KindClick:
		fsmEv = fsm.EvPB2Click
	case ev.Button == events.ButtonPB3 && ev.Kind == events.KindClick:
		fsmEv = fsm.EvPB3Click
	case ev.Button == events.ButtonPB3 && ev.Kind == events.KindLongPress:
		fsmEv = fsm.EvPB3LongPress
	case ev.Button == events.ButtonPB2AndPB3 && ev.Kind == events.KindClick:
		fsmEv = fsm.EvComboClick
	case ev.Button == events.ButtonPB2AndPB3 && ev.Kind == events.KindLongPress:
		fsmEv = fsm.EvComboLongPress
	default:
		return
	}

	if fsmEv == fsm.EvComboClick && s.currentPhase() == types.PhaseWaiting {
		s.console.Write("[ERROR: No time set]\r\n")
		return
	}

	if err := s.sendEvent(fsmEv); err != nil {
		// Gestures arriving in a phase that does not use them are normal.
		s.logger.Debugf("Event %s not applicable: %v", fsmEv, err)
	}
}

// handleRemoteCommand maps a timer:command list entry onto the same FSM
// events the buttons produce. Invoked from the Redis listener goroutine.
func (s *TimerSystem) handleRemoteCommand(cmd string) error {
	phase := s.currentPhase()
	s.logger.Infof("Remote command %q in phase %s", cmd, phase)

	switch cmd {
	case "start":
		if phase != types.PhaseReady {
			return fmt.Errorf("start not valid in phase %s", phase)
		}
		return s.sendEvent(fsm.EvComboClick)
	case "pause":
		if phase != types.PhaseCounting {
			return fmt.Errorf("pause not valid in phase %s", phase)
		}
		return s.sendEvent(fsm.EvPB3Click)
	case "resume":
		if phase != types.PhasePaused {
			return fmt.Errorf("resume not valid in phase %s", phase)
		}
		return s.sendEvent(fsm.EvPB3Click)
	case "abort":
		if phase != types.PhaseCounting && phase != types.PhasePaused {
			return fmt.Errorf("abort not valid in phase %s", phase)
		}
		return s.sendEvent(fsm.EvPB3LongPress)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// startPulse launches the breathing effect shown while waiting. Only the FSM
// goroutine starts and stops the pulse.
func (s *TimerSystem) startPulse() {
	s.stopPulse()
	s.pulseStopChan = make(chan struct{})
	go s.runPulse(s.pulseStopChan)
}

func (s *TimerSystem) stopPulse() {
	if s.pulseStopChan != nil {
		close(s.pulseStopChan)
		s.pulseStopChan = nil
	}
}

func (s *TimerSystem) runPulse(stopChan chan struct{}) {
	ticker := time.NewTicker(hardware.PulseUpdateMs * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			if err := s.pwm.UpdatePulse(hardware.PulseUpdateMs, hardware.PulsePeriodMs); err != nil {
				s.logger.Warnf("Failed to update pulse: %v", err)
			}
		}
	}
}
