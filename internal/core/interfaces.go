package core

import (
	"countdown-timer/internal/messaging"
	"countdown-timer/internal/terminal"
	"countdown-timer/internal/types"
)

// MessagingClient defines the interface for Redis messaging operations needed by TimerSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	// Telemetry
	PublishTimerPhase(phase types.Phase) error
	PublishRemaining(remaining uint16) error
	PublishTotal(total uint16) error
	PublishButtonEvent(event string) error
	GetTimerPhase() (types.Phase, error)
}

// ButtonReader defines the interface for reading the three push buttons
type ButtonReader interface {
	ReadButtons() (pb1, pb2, pb3 bool, err error)
	Close() error
}

// PwmController defines the interface for the brightness LED output
type PwmController interface {
	Init() error
	Start() error
	Stop() error
	SetDutyCycle(percent int) error
	GetDutyCycle() int
	SetOutputEnabled(enabled bool) error
	IsOutputEnabled() bool
	ResetPulse() error
	UpdatePulse(elapsedMs, periodMs int) error
}

// BrightnessReader defines the interface for the brightness potentiometer
type BrightnessReader interface {
	ReadPercent() (int, error)
}

// Console defines the interface for the serial terminal front-end
type Console interface {
	Commands() <-chan terminal.Command
	Write(s string) error
	WriteLine(s string) error
	EchoBackspace() error
	Close() error
}
