package core

import (
	"errors"
	"strings"

	"countdown-timer/internal/fsm"
	"countdown-timer/internal/terminal"
	"countdown-timer/internal/types"
)

var (
	errEntryFormat = errors.New("missing colon separator")
	errEntryValue  = errors.New("time value out of range")
)

// leadingInt parses the leading digit run of str. Trailing garbage is
// ignored, an empty run yields zero.
func leadingInt(str string) int {
	n := 0
	for i := 0; i < len(str); i++ {
		if str[i] < '0' || str[i] > '9' {
			break
		}
		n = n*10 + int(str[i]-'0')
	}
	return n
}

// parseTimeEntry validates an MM:SS entry. Seconds must be below 60, the
// total must be positive and fit the countdown record.
func parseTimeEntry(input string) (uint16, error) {
	minStr, secStr, found := strings.Cut(input, ":")
	if !found {
		return 0, errEntryFormat
	}

	minutes := leadingInt(minStr)
	seconds := leadingInt(secStr)
	if seconds >= 60 {
		return 0, errEntryValue
	}

	total := minutes*60 + seconds
	if total == 0 || total > 65535 {
		return 0, errEntryValue
	}
	return uint16(total), nil
}

func (s *TimerSystem) promptTimeEntry() {
	s.console.Write("\r\nEnter countdown time (MM:SS): ")
}

func (s *TimerSystem) handleConsoleCommand(cmd terminal.Command) {
	switch s.currentPhase() {
	case types.PhaseEnteringTime:
		s.handleEntryCommand(cmd)
	case types.PhaseCounting, types.PhasePaused:
		s.handleDisplayToggle(cmd)
	}
}

// handleEntryCommand edits the MM:SS buffer. Only digits and the colon are
// accepted; everything typed is echoed back.
func (s *TimerSystem) handleEntryCommand(cmd terminal.Command) {
	switch cmd.Type {
	case terminal.CommandEnter:
		s.entryMu.Lock()
		input := string(s.entry)
		s.entry = s.entry[:0]
		s.entryMu.Unlock()

		if input == "" {
			return
		}
		s.acceptTimeEntry(input)

	case terminal.CommandBackspace:
		s.entryMu.Lock()
		erased := false
		if len(s.entry) > 0 {
			s.entry = s.entry[:len(s.entry)-1]
			erased = true
		}
		s.entryMu.Unlock()
		if erased {
			s.console.EchoBackspace()
		}

	default:
		ch := cmd.Char
		if (ch < '0' || ch > '9') && ch != ':' {
			return
		}
		s.entryMu.Lock()
		accepted := false
		if len(s.entry) < maxEntryLen {
			s.entry = append(s.entry, ch)
			accepted = true
		}
		s.entryMu.Unlock()
		if accepted {
			s.console.Write(string(ch))
		}
	}
}

func (s *TimerSystem) acceptTimeEntry(input string) {
	total, err := parseTimeEntry(input)
	switch {
	case errors.Is(err, errEntryFormat):
		s.console.Write("\r\nInvalid format. Use MM:SS\r\n")
		s.promptTimeEntry()
	case err != nil:
		s.console.Write("\r\nInvalid time.\r\n")
		s.promptTimeEntry()
	default:
		s.countdownGuard.Acquire()
		s.countdown = types.CountdownRecord{
			TotalSeconds:     total,
			RemainingSeconds: total,
		}
		s.countdownGuard.Release()

		s.logger.Infof("Countdown time set: %s (%d seconds)", input, total)
		if err := s.sendEvent(fsm.EvTimeAccepted); err != nil {
			s.logger.Warnf("Accepted time but could not apply it: %v", err)
		}
	}
}

// handleDisplayToggle services the 'i' and 'b' keys while the countdown is
// running or paused.
func (s *TimerSystem) handleDisplayToggle(cmd terminal.Command) {
	switch cmd.Type {
	case terminal.CommandToggleInfo:
		s.countdownGuard.Acquire()
		s.display.ShowExtendedInfo = !s.display.ShowExtendedInfo
		on := s.display.ShowExtendedInfo
		s.countdownGuard.Release()

		if on {
			s.console.WriteLine("Extended info: ON")
		} else {
			s.console.WriteLine("Extended info: OFF")
		}

	case terminal.CommandToggleBlinkMode:
		s.countdownGuard.Acquire()
		s.display.SolidMode = !s.display.SolidMode
		solid := s.display.SolidMode
		s.countdownGuard.Release()

		if solid {
			if err := s.pwm.SetOutputEnabled(true); err != nil {
				s.logger.Warnf("Failed to enable PWM output: %v", err)
			}
			s.console.WriteLine("LED mode: solid")
		} else {
			s.console.WriteLine("LED mode: blink")
		}
	}
}
