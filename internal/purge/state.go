package purge

// State is a phase of a purge run. Transitions only move forward:
//
//	Idle → Validated → Indexed → Counted → {EmptyDone | Sampled}
//	Sampled → {DryRunReported | Confirming → Deleting → Verified}
type State string

const (
	StateIdle           State = "idle"
	StateValidated      State = "validated"
	StateIndexed        State = "indexed"
	StateCounted        State = "counted"
	StateEmptyDone      State = "empty_done"
	StateSampled        State = "sampled"
	StateDryRunReported State = "dry_run_reported"
	StateConfirming     State = "confirming"
	StateDeleting       State = "deleting"
	StateVerified       State = "verified"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	switch s {
	case StateEmptyDone, StateDryRunReported, StateVerified:
		return true
	}
	return false
}

var transitions = map[State][]State{
	StateIdle:       {StateValidated},
	StateValidated:  {StateIndexed},
	StateIndexed:    {StateCounted},
	StateCounted:    {StateEmptyDone, StateSampled},
	StateSampled:    {StateDryRunReported, StateConfirming},
	StateConfirming: {StateDeleting},
	StateDeleting:   {StateVerified},
}

// CanTransition reports whether next may directly follow s.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
