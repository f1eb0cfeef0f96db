package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trafficshield/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		allowed bool
	}{
		{"pending to approved", StatePending, StateApproved, true},
		{"pending to rejected", StatePending, StateRejected, true},
		{"rejected to appeal", StateRejected, StatePendingAppeal, true},
		{"appeal to approved", StatePendingAppeal, StateApproved, true},
		{"appeal to final rejection", StatePendingAppeal, StateRejectedFinal, true},
		{"approved is terminal", StateApproved, StateRejected, false},
		{"final rejection is terminal", StateRejectedFinal, StatePendingAppeal, false},
		{"no skip to final", StatePending, StateRejectedFinal, false},
		{"no direct re-approval", StateRejected, StateApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(StateApproved))
	assert.True(t, Terminal(StateRejectedFinal))
	assert.False(t, Terminal(StatePending))
	assert.False(t, Terminal(StateRejected))
	assert.False(t, Terminal(StatePendingAppeal))
}

func TestValidateDecision(t *testing.T) {
	t.Run("requires notes on approval", func(t *testing.T) {
		err := ValidateDecision(StatePending, Decision{Approve: true})
		assert.ErrorIs(t, err, ErrNotesRequired)
	})

	t.Run("requires notes on rejection", func(t *testing.T) {
		err := ValidateDecision(StatePending, Decision{Approve: false, Notes: "   "})
		assert.ErrorIs(t, err, ErrNotesRequired)
	})

	t.Run("accepts valid verdict", func(t *testing.T) {
		assert.NoError(t, ValidateDecision(StatePending, Decision{Approve: true, Notes: "clear footage"}))
	})

	t.Run("blocks verdicts on settled records", func(t *testing.T) {
		err := ValidateDecision(StateApproved, Decision{Approve: false, Notes: "x"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestValidateAppeal(t *testing.T) {
	rejected := func() *models.Report {
		return &models.Report{Status: models.ReportStatusRejected}
	}

	t.Run("valid appeal", func(t *testing.T) {
		err := ValidateAppeal(rejected(), Appeal{Reason: "wrong plate", EvidenceURLs: []string{"https://cdn/img.jpg"}})
		assert.NoError(t, err)
	})

	t.Run("one appeal per report", func(t *testing.T) {
		report := rejected()
		report.AppealSubmitted = true
		err := ValidateAppeal(report, Appeal{Reason: "again", EvidenceURLs: []string{"u"}})
		assert.ErrorIs(t, err, ErrAppealAlreadySubmitted)
	})

	t.Run("only rejected reports can appeal", func(t *testing.T) {
		report := &models.Report{Status: models.ReportStatusPending}
		err := ValidateAppeal(report, Appeal{Reason: "r", EvidenceURLs: []string{"u"}})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("reason required", func(t *testing.T) {
		err := ValidateAppeal(rejected(), Appeal{EvidenceURLs: []string{"u"}})
		assert.ErrorIs(t, err, ErrAppealReasonRequired)
	})

	t.Run("evidence required", func(t *testing.T) {
		err := ValidateAppeal(rejected(), Appeal{Reason: "r"})
		assert.ErrorIs(t, err, ErrAppealEvidenceRequired)
	})
}

func TestConfirmationCopy(t *testing.T) {
	appealCopy := ConfirmationCopy(StateRejected, StatePendingAppeal)
	assert.Contains(t, appealCopy, "additional penalty")
	assert.Contains(t, appealCopy, "one appeal")

	finalCopy := ConfirmationCopy(StatePendingAppeal, StateRejectedFinal)
	assert.Contains(t, finalCopy, "compounding")

	assert.NotEmpty(t, ConfirmationCopy(StatePending, StateApproved))
	assert.Empty(t, ConfirmationCopy(StateApproved, StatePending))
}
