// Package workflow holds the client-side guards for the shared
// review/approval lifecycle. The backend enforces the business policy;
// this layer only blocks obviously invalid submissions before any network
// call and supplies the confirmatory warning copy per transition.
package workflow

import (
	"errors"
	"strings"

	"trafficshield/internal/models"
)

// State is a node in the review lifecycle shared by reports, appeals,
// violations and payments.
type State string

const (
	StatePending       State = "PENDING"
	StateApproved      State = "APPROVED"
	StateRejected      State = "REJECTED"
	StatePendingAppeal State = "PENDING_APPEAL"
	StateRejectedFinal State = "REJECTED_FINAL"
)

var transitions = map[State][]State{
	StatePending:       {StateApproved, StateRejected},
	StateRejected:      {StatePendingAppeal},
	StatePendingAppeal: {StateApproved, StateRejectedFinal},
	StateApproved:      {},
	StateRejectedFinal: {},
}

var (
	// ErrNotesRequired blocks approve/reject without reviewer notes.
	ErrNotesRequired = errors.New("reviewer notes are required")
	// ErrAppealAlreadySubmitted blocks a second appeal for the same record.
	ErrAppealAlreadySubmitted = errors.New("an appeal has already been submitted for this report")
	// ErrAppealReasonRequired blocks an appeal without a reason.
	ErrAppealReasonRequired = errors.New("an appeal reason is required")
	// ErrAppealEvidenceRequired blocks an appeal without new evidence.
	ErrAppealEvidenceRequired = errors.New("new evidence is required to appeal")
	// ErrInvalidTransition rejects transitions outside the lifecycle.
	ErrInvalidTransition = errors.New("invalid review transition")
)

// CanTransition reports whether from → to is part of the lifecycle.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state has no outgoing transitions.
func Terminal(state State) bool {
	return len(transitions[state]) == 0
}

// Decision is a reviewer's verdict on a pending record.
type Decision struct {
	Approve bool
	Notes   string
}

// ValidateDecision checks a verdict against the record's current state.
// Approval triggers a reward computation server-side, rejection a penalty;
// both require non-empty notes.
func ValidateDecision(current State, d Decision) error {
	target := StateRejected
	if d.Approve {
		target = StateApproved
	}
	if !CanTransition(current, target) {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(d.Notes) == "" {
		return ErrNotesRequired
	}
	return nil
}

// Appeal is a citizen's one-shot challenge of a rejected report.
type Appeal struct {
	Reason       string
	EvidenceURLs []string
}

// ValidateAppeal blocks invalid appeals before any network call: exactly
// one appeal per record, with a reason and new evidence.
func ValidateAppeal(report *models.Report, a Appeal) error {
	if report.AppealSubmitted {
		return ErrAppealAlreadySubmitted
	}
	if report.Status != models.ReportStatusRejected {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(a.Reason) == "" {
		return ErrAppealReasonRequired
	}
	if len(a.EvidenceURLs) == 0 {
		return ErrAppealEvidenceRequired
	}
	return nil
}

// ConfirmationCopy is the warning text shown before a transition is
// submitted. The compounding penalty on a rejected appeal is backend
// policy; the client's only duty is to surface it before submission.
func ConfirmationCopy(from, to State) string {
	switch {
	case from == StatePending && to == StateApproved:
		return "Approving this report issues a violation and credits the reporter a percentage of the fine. Continue?"
	case from == StatePending && to == StateRejected:
		return "Rejecting this report applies a penalty to the reporter. Continue?"
	case from == StateRejected && to == StatePendingAppeal:
		return "Warning: if this appeal is rejected, an additional penalty is applied on top of the original one. Only one appeal is allowed per report. Continue?"
	case from == StatePendingAppeal && to == StateRejectedFinal:
		return "Rejecting this appeal applies an additional, compounding penalty and closes the report permanently. Continue?"
	case from == StatePendingAppeal && to == StateApproved:
		return "Approving this appeal reverses the rejection and credits the reporter. Continue?"
	default:
		return ""
	}
}
