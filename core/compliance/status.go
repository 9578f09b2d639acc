package compliance

import "errors"

// Status is a submission's position in the review workflow.
type Status string

const (
	// StatusNone is the virtual checklist state when no submission row exists.
	StatusNone Status = "no_submission"

	StatusPending   Status = "pending" // legacy rows only; no workflow path produces it
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ReviewAction is an administrator's verdict.
type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
)

func (a ReviewAction) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// ErrInvalidTransition signals a review action on a submission that is not
// in the expected source state (e.g. a double approval).
var ErrInvalidTransition = errors.New("submission is not awaiting review")

// Transition is the sole transition authority of the submission state machine:
//
//	no_submission -> submitted -> approved (terminal)
//	                           -> rejected (re-opens submit eligibility)
//
// Review actions are only legal from `submitted`.
func Transition(current Status, action ReviewAction) (Status, error) {
	if current != StatusSubmitted {
		return current, ErrInvalidTransition
	}
	switch action {
	case ActionApprove:
		return StatusApproved, nil
	case ActionReject:
		return StatusRejected, nil
	}
	return current, ErrInvalidTransition
}

// IsLive reports whether the submission blocks new attempts for its (item, user) pair.
func (s Status) IsLive() bool {
	return s == StatusSubmitted || s == StatusApproved
}

// CanSubmit reports whether a new attempt may be made from this state.
func (s Status) CanSubmit() bool {
	return !s.IsLive()
}
