package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// EmiScheduleEntry is one instalment in a loan's repayment schedule. It is a
// value object keyed by (loan ID, number); the loan aggregate owns it.
type EmiScheduleEntry struct {
	LoanID             string
	Number             int
	DueDate            time.Time
	EmiAmount          decimal.Decimal
	PrincipalComponent decimal.Decimal
	InterestComponent  decimal.Decimal
	BalanceAfter       decimal.Decimal
	PaidAmount         decimal.Decimal
	PaidAt             *time.Time
	LateFee            decimal.Decimal
	Status             valueobject.EmiStatus
}

func initialEmiStatus() valueobject.EmiStatus { return valueobject.EmiStatusPending }

// MarkPaid settles the entry with the captured amount.
func (e EmiScheduleEntry) MarkPaid(amount decimal.Decimal, now time.Time) (EmiScheduleEntry, error) {
	if !e.Status.CanTransitionTo(valueobject.EmiStatusPaid) {
		return e, valueobject.ErrInvalidStatusTransition
	}
	next := e
	next.Status = valueobject.EmiStatusPaid
	next.PaidAmount = amount
	next.PaidAt = &now
	return next, nil
}

// MarkPartial records a capture below the instalment amount.
func (e EmiScheduleEntry) MarkPartial(amount decimal.Decimal, now time.Time) (EmiScheduleEntry, error) {
	if !e.Status.CanTransitionTo(valueobject.EmiStatusPartial) {
		return e, valueobject.ErrInvalidStatusTransition
	}
	next := e
	next.Status = valueobject.EmiStatusPartial
	next.PaidAmount = e.PaidAmount.Add(amount)
	next.PaidAt = &now
	return next, nil
}

// MarkBounced records a failed collection attempt and accrues the late fee.
func (e EmiScheduleEntry) MarkBounced(lateFee decimal.Decimal) (EmiScheduleEntry, error) {
	if !e.Status.CanTransitionTo(valueobject.EmiStatusBounced) {
		return e, valueobject.ErrInvalidStatusTransition
	}
	next := e
	next.Status = valueobject.EmiStatusBounced
	next.LateFee = e.LateFee.Add(lateFee)
	return next, nil
}

// MarkOverdue flags an unsettled entry past its due date.
func (e EmiScheduleEntry) MarkOverdue() (EmiScheduleEntry, error) {
	if !e.Status.CanTransitionTo(valueobject.EmiStatusOverdue) {
		return e, valueobject.ErrInvalidStatusTransition
	}
	next := e
	next.Status = valueobject.EmiStatusOverdue
	return next, nil
}

// Waive forgives the entry without payment.
func (e EmiScheduleEntry) Waive() (EmiScheduleEntry, error) {
	if !e.Status.CanTransitionTo(valueobject.EmiStatusWaived) {
		return e, valueobject.ErrInvalidStatusTransition
	}
	next := e
	next.Status = valueobject.EmiStatusWaived
	return next, nil
}

// TotalDue is the instalment amount plus any accrued late fees, less what has
// already been captured.
func (e EmiScheduleEntry) TotalDue() decimal.Decimal {
	return e.EmiAmount.Add(e.LateFee).Sub(e.PaidAmount)
}
