package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for timer state machine actions.
// TimerSystem implements this interface to handle state entry/exit
// and provide guards for conditional transitions.
type Actions interface {
	// State entry actions
	EnterWaiting(c *librefsm.Context) error
	EnterEnteringTime(c *librefsm.Context) error
	EnterReady(c *librefsm.Context) error
	EnterCounting(c *librefsm.Context) error
	EnterPaused(c *librefsm.Context) error
	EnterCompleted(c *librefsm.Context) error

	// State exit actions
	ExitWaiting(c *librefsm.Context) error
	ExitCompleted(c *librefsm.Context) error

	// Guards for conditional transitions
	HasTimeSet(c *librefsm.Context) bool // True once a valid MM:SS value was accepted

	// Transition actions
	OnClearTime(c *librefsm.Context) error // Discards the configured value before re-entry
	OnAbort(c *librefsm.Context) error     // Discards countdown progress on PB3 long press
}
