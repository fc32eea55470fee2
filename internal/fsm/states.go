package fsm

import "github.com/librescoot/librefsm"

// Timer states
const (
	StateWaiting      librefsm.StateID = "waiting"
	StateEnteringTime librefsm.StateID = "entering-time"
	StateReady        librefsm.StateID = "ready"
	StateCounting     librefsm.StateID = "counting"
	StatePaused       librefsm.StateID = "paused"
	StateCompleted    librefsm.StateID = "completed"
)

// Timer events
const (
	// Button gestures
	EvPB1Click       librefsm.EventID = "pb1-click"
	EvPB2Click       librefsm.EventID = "pb2-click"
	EvPB3Click       librefsm.EventID = "pb3-click"
	EvPB3LongPress   librefsm.EventID = "pb3-long-press"
	EvComboClick     librefsm.EventID = "combo-click"
	EvComboLongPress librefsm.EventID = "combo-long-press"

	// Terminal input
	EvTimeAccepted librefsm.EventID = "time-accepted"

	// Internal
	EvCountdownDone     librefsm.EventID = "countdown-done"
	EvCompletionTimeout librefsm.EventID = "completion-timeout"
)
