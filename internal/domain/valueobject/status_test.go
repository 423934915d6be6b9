package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

func TestApplicationStatusTransitions(t *testing.T) {
	assert.True(t, valueobject.ApplicationStatusPending.CanTransitionTo(valueobject.ApplicationStatusUnderReview))
	assert.True(t, valueobject.ApplicationStatusPending.CanTransitionTo(valueobject.ApplicationStatusRejected))
	assert.True(t, valueobject.ApplicationStatusUnderReview.CanTransitionTo(valueobject.ApplicationStatusApproved))
	assert.True(t, valueobject.ApplicationStatusUnderReview.CanTransitionTo(valueobject.ApplicationStatusRejected))

	// PENDING never jumps straight to APPROVED.
	assert.False(t, valueobject.ApplicationStatusPending.CanTransitionTo(valueobject.ApplicationStatusApproved))

	// Terminal states stay terminal.
	assert.True(t, valueobject.ApplicationStatusApproved.IsTerminal())
	assert.True(t, valueobject.ApplicationStatusRejected.IsTerminal())
	assert.False(t, valueobject.ApplicationStatusRejected.CanTransitionTo(valueobject.ApplicationStatusPending))
}

func TestNewApplicationStatus(t *testing.T) {
	s, err := valueobject.NewApplicationStatus("UNDER_REVIEW")
	require.NoError(t, err)
	assert.True(t, s.Equal(valueobject.ApplicationStatusUnderReview))

	_, err = valueobject.NewApplicationStatus("IN_LIMBO")
	assert.Error(t, err)
}

func TestLoanStatusTransitions(t *testing.T) {
	assert.True(t, valueobject.LoanStatusActive.CanTransitionTo(valueobject.LoanStatusClosed))
	assert.True(t, valueobject.LoanStatusActive.CanTransitionTo(valueobject.LoanStatusDefaulted))
	assert.True(t, valueobject.LoanStatusActive.CanTransitionTo(valueobject.LoanStatusForeclosed))

	assert.False(t, valueobject.LoanStatusClosed.CanTransitionTo(valueobject.LoanStatusActive))
	assert.False(t, valueobject.LoanStatusDefaulted.CanTransitionTo(valueobject.LoanStatusClosed))
}

func TestEmiStatusTransitions(t *testing.T) {
	assert.True(t, valueobject.EmiStatusPending.CanTransitionTo(valueobject.EmiStatusPaid))
	assert.True(t, valueobject.EmiStatusPending.CanTransitionTo(valueobject.EmiStatusBounced))
	assert.True(t, valueobject.EmiStatusBounced.CanTransitionTo(valueobject.EmiStatusPaid))
	assert.True(t, valueobject.EmiStatusOverdue.CanTransitionTo(valueobject.EmiStatusPartial))

	// Settled entries never move again.
	assert.False(t, valueobject.EmiStatusPaid.CanTransitionTo(valueobject.EmiStatusBounced))
	assert.False(t, valueobject.EmiStatusWaived.CanTransitionTo(valueobject.EmiStatusPaid))

	assert.True(t, valueobject.EmiStatusPaid.IsSettled())
	assert.True(t, valueobject.EmiStatusWaived.IsSettled())
	assert.False(t, valueobject.EmiStatusPartial.IsSettled())
}

func TestParsePartnerEventType(t *testing.T) {
	cases := map[string]valueobject.PartnerEventType{
		"payment.captured": valueobject.PartnerEventPaymentCaptured,
		"payment.failed":   valueobject.PartnerEventPaymentFailed,
		"loan.disbursed":   valueobject.PartnerEventLoanDisbursed,
		"loan.emi.due":     valueobject.PartnerEventEmiDue,
		"loan.renewed":     valueobject.PartnerEventUnknown,
		"":                 valueobject.PartnerEventUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, valueobject.ParsePartnerEventType(raw), raw)
	}
	assert.Equal(t, "payment.captured", valueobject.PartnerEventPaymentCaptured.String())
}
