package state

// validTransitions contains the permitted transitions besides restart and reset.
var validTransitions = map[State][]State{
	StateAwaitingRole: {
		StateAwaitingForm,
	},
	StateAwaitingForm: {
		StateAwaitingForm,
	},
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// RecordTransition reports a transition to the registered recorder.
func RecordTransition(from, to State) {
	transitionRecorder(string(from), string(to))
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Choosing a vacation type restarts the workflow from any state, and any state may
// return to idle.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle || to == StateAwaitingRole {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
