package fsm

import (
	"time"

	"github.com/librescoot/librefsm"
)

// DefaultCompletionDisplay is how long the finished countdown is shown
// before the system returns to waiting on its own.
const DefaultCompletionDisplay = 5 * time.Second

// NewDefinition creates the timer FSM definition. The actions parameter
// provides the implementation for state entry/exit and guards.
// completionDisplay is the dwell time in Completed before the automatic
// return to Waiting; tests pass a short value.
func NewDefinition(actions Actions, completionDisplay time.Duration) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateWaiting,
			librefsm.WithOnEnter(actions.EnterWaiting),
			librefsm.WithOnExit(actions.ExitWaiting),
		).
		State(StateEnteringTime,
			librefsm.WithOnEnter(actions.EnterEnteringTime),
		).
		State(StateReady,
			librefsm.WithOnEnter(actions.EnterReady),
		).
		State(StateCounting,
			librefsm.WithOnEnter(actions.EnterCounting),
		).
		State(StatePaused,
			librefsm.WithOnEnter(actions.EnterPaused),
		).
		State(StateCompleted,
			librefsm.WithTimeout(completionDisplay, EvCompletionTimeout),
			librefsm.WithOnEnter(actions.EnterCompleted),
			librefsm.WithOnExit(actions.ExitCompleted),
		).

		// === Transitions ===

		// From Waiting - PB1 opens time entry
		Transition(StateWaiting, EvPB1Click, StateEnteringTime).

		// From EnteringTime - a validated MM:SS value arms the timer
		Transition(StateEnteringTime, EvTimeAccepted, StateReady).

		// From Ready - start, or long-press combo to discard and re-enter
		Transition(StateReady, EvComboClick, StateCounting,
			librefsm.WithGuard(actions.HasTimeSet),
		).
		Transition(StateReady, EvComboLongPress, StateEnteringTime,
			librefsm.WithAction(actions.OnClearTime),
		).

		// Counting <-> Paused toggle on PB3 click
		Transition(StateCounting, EvPB3Click, StatePaused).
		Transition(StatePaused, EvPB3Click, StateCounting).

		// PB3 long press aborts from either running state
		Transition(StateCounting, EvPB3LongPress, StateWaiting,
			librefsm.WithAction(actions.OnAbort),
		).
		Transition(StatePaused, EvPB3LongPress, StateWaiting,
			librefsm.WithAction(actions.OnAbort),
		).

		// Expiry and the timed return to idle
		Transition(StateCounting, EvCountdownDone, StateCompleted).
		Transition(StateCompleted, EvCompletionTimeout, StateWaiting).

		// Initial state
		Initial(StateWaiting)
}
