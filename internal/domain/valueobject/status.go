package valueobject

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// ApplicationStatus – immutable value object
// ---------------------------------------------------------------------------

// ApplicationStatus represents the lifecycle stage of a loan application.
type ApplicationStatus struct {
	value string
}

const (
	appStatusPending     = "PENDING"
	appStatusUnderReview = "UNDER_REVIEW"
	appStatusApproved    = "APPROVED"
	appStatusRejected    = "REJECTED"
)

var (
	ApplicationStatusPending     = ApplicationStatus{value: appStatusPending}
	ApplicationStatusUnderReview = ApplicationStatus{value: appStatusUnderReview}
	ApplicationStatusApproved    = ApplicationStatus{value: appStatusApproved}
	ApplicationStatusRejected    = ApplicationStatus{value: appStatusRejected}
)

var validApplicationStatuses = map[string]ApplicationStatus{
	appStatusPending:     ApplicationStatusPending,
	appStatusUnderReview: ApplicationStatusUnderReview,
	appStatusApproved:    ApplicationStatusApproved,
	appStatusRejected:    ApplicationStatusRejected,
}

// applicationTransitions is the closed transition table. Anything not listed
// here is an invalid transition.
var applicationTransitions = map[string][]string{
	appStatusPending:     {appStatusUnderReview, appStatusRejected},
	appStatusUnderReview: {appStatusApproved, appStatusRejected},
	appStatusApproved:    {},
	appStatusRejected:    {},
}

// NewApplicationStatus creates an ApplicationStatus from a raw string.
func NewApplicationStatus(s string) (ApplicationStatus, error) {
	v, ok := validApplicationStatuses[s]
	if !ok {
		return ApplicationStatus{}, fmt.Errorf("invalid application status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s ApplicationStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s ApplicationStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s ApplicationStatus) Equal(other ApplicationStatus) bool { return s.value == other.value }

// CanTransitionTo reports whether the transition table permits moving to next.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s.value]) == 0 && !s.IsZero()
}

// ---------------------------------------------------------------------------
// LoanStatus – immutable value object
// ---------------------------------------------------------------------------

// LoanStatus represents the lifecycle stage of an active loan.
type LoanStatus struct {
	value string
}

const (
	loanStatusActive     = "ACTIVE"
	loanStatusClosed     = "CLOSED"
	loanStatusDefaulted  = "DEFAULTED"
	loanStatusForeclosed = "FORECLOSED"
)

var (
	LoanStatusActive     = LoanStatus{value: loanStatusActive}
	LoanStatusClosed     = LoanStatus{value: loanStatusClosed}
	LoanStatusDefaulted  = LoanStatus{value: loanStatusDefaulted}
	LoanStatusForeclosed = LoanStatus{value: loanStatusForeclosed}
)

var validLoanStatuses = map[string]LoanStatus{
	loanStatusActive:     LoanStatusActive,
	loanStatusClosed:     LoanStatusClosed,
	loanStatusDefaulted:  LoanStatusDefaulted,
	loanStatusForeclosed: LoanStatusForeclosed,
}

var loanTransitions = map[string][]string{
	loanStatusActive:     {loanStatusClosed, loanStatusDefaulted, loanStatusForeclosed},
	loanStatusClosed:     {},
	loanStatusDefaulted:  {},
	loanStatusForeclosed: {},
}

// NewLoanStatus creates a LoanStatus from a raw string.
func NewLoanStatus(s string) (LoanStatus, error) {
	v, ok := validLoanStatuses[s]
	if !ok {
		return LoanStatus{}, fmt.Errorf("invalid loan status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s LoanStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s LoanStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s LoanStatus) Equal(other LoanStatus) bool { return s.value == other.value }

// CanTransitionTo reports whether the transition table permits moving to next.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// EmiStatus – immutable value object
// ---------------------------------------------------------------------------

// EmiStatus represents the settlement state of one schedule entry.
type EmiStatus struct {
	value string
}

const (
	emiStatusPending = "PENDING"
	emiStatusPaid    = "PAID"
	emiStatusOverdue = "OVERDUE"
	emiStatusBounced = "BOUNCED"
	emiStatusPartial = "PARTIAL"
	emiStatusWaived  = "WAIVED"
)

var (
	EmiStatusPending = EmiStatus{value: emiStatusPending}
	EmiStatusPaid    = EmiStatus{value: emiStatusPaid}
	EmiStatusOverdue = EmiStatus{value: emiStatusOverdue}
	EmiStatusBounced = EmiStatus{value: emiStatusBounced}
	EmiStatusPartial = EmiStatus{value: emiStatusPartial}
	EmiStatusWaived  = EmiStatus{value: emiStatusWaived}
)

var validEmiStatuses = map[string]EmiStatus{
	emiStatusPending: EmiStatusPending,
	emiStatusPaid:    EmiStatusPaid,
	emiStatusOverdue: EmiStatusOverdue,
	emiStatusBounced: EmiStatusBounced,
	emiStatusPartial: EmiStatusPartial,
	emiStatusWaived:  EmiStatusWaived,
}

// A paid or waived entry is settled for good; everything else can still move.
// A bounced entry may bounce again on a retried collection.
var emiTransitions = map[string][]string{
	emiStatusPending: {emiStatusPaid, emiStatusOverdue, emiStatusBounced, emiStatusPartial, emiStatusWaived},
	emiStatusOverdue: {emiStatusPaid, emiStatusBounced, emiStatusPartial, emiStatusWaived},
	emiStatusBounced: {emiStatusPaid, emiStatusBounced, emiStatusPartial, emiStatusWaived},
	emiStatusPartial: {emiStatusPaid, emiStatusWaived},
	emiStatusPaid:    {},
	emiStatusWaived:  {},
}

// NewEmiStatus creates an EmiStatus from a raw string.
func NewEmiStatus(s string) (EmiStatus, error) {
	v, ok := validEmiStatuses[s]
	if !ok {
		return EmiStatus{}, fmt.Errorf("invalid EMI status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s EmiStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s EmiStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s EmiStatus) Equal(other EmiStatus) bool { return s.value == other.value }

// IsSettled reports whether the entry needs no further payment.
func (s EmiStatus) IsSettled() bool {
	return s.value == emiStatusPaid || s.value == emiStatusWaived
}

// CanTransitionTo reports whether the transition table permits moving to next.
func (s EmiStatus) CanTransitionTo(next EmiStatus) bool {
	for _, allowed := range emiTransitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var ErrInvalidStatusTransition = errors.New("invalid status transition")
