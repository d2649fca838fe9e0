package tickets

// State is a ticket's position in its lifecycle.
type State string

const (
	StateOnQueue   State = "ON_QUEUE"
	StateInProcess State = "IN_PROCESS"
	StateOnHold    State = "ON_HOLD"
	StateCompleted State = "COMPLETED"
	StateCutOff    State = "CUT_OFF_CANCELLED"
)

// IsValid checks if the ticket state is valid
func (s State) IsValid() bool {
	switch s {
	case StateOnQueue, StateInProcess, StateOnHold, StateCompleted, StateCutOff:
		return true
	}
	return false
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCutOff
}

// IsActive reports whether the ticket still counts against the
// one-active-ticket-per-requester rule
func (s State) IsActive() bool {
	switch s {
	case StateOnQueue, StateInProcess, StateOnHold:
		return true
	}
	return false
}

// ActiveStates lists the states the duplicate guard checks against.
func ActiveStates() []State {
	return []State{StateOnQueue, StateInProcess, StateOnHold}
}

// CanTransitionTo checks if the state can transition to the target state
func (s State) CanTransitionTo(target State) bool {
	validTransitions := map[State][]State{
		StateOnQueue:   {StateInProcess, StateCutOff},
		StateInProcess: {StateCompleted, StateOnHold},
		StateOnHold:    {StateInProcess, StateCutOff},
		StateCompleted: {}, // Terminal state
		StateCutOff:    {}, // Terminal state
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
