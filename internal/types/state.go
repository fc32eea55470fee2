package types

// Phase is the top-level operating phase of the timer application.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseEnteringTime Phase = "entering-time"
	PhaseReady        Phase = "ready"
	PhaseCounting     Phase = "counting"
	PhasePaused       Phase = "paused"
	PhaseCompleted    Phase = "completed"
)

// CountdownRecord holds the configured and remaining countdown time.
// Mutated only under the countdown guard.
type CountdownRecord struct {
	TotalSeconds     uint16
	RemainingSeconds uint16
}

// DisplaySettings are the terminal-toggled display modes. Valid only while
// counting or paused.
type DisplaySettings struct {
	ShowExtendedInfo bool // 'i' toggle: include duty/remaining detail
	SolidMode        bool // 'b' toggle: PWM output solid instead of blinking
}
