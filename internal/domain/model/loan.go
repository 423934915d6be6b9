package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/event"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Loan aggregate root (servicing)
// ---------------------------------------------------------------------------

// Loan is an immutable aggregate. Mutations return a new copy. The repayment
// schedule is generated once at activation and persisted alongside; settlement
// updates flow through RecordEmiPayment as partner webhooks arrive.
type Loan struct {
	id            string
	applicationID string
	offerID       string
	agreementRef  string
	principal     decimal.Decimal
	outstanding   decimal.Decimal
	annualRatePct decimal.Decimal
	tenureMonths  int
	emiAmount     decimal.Decimal
	emisPaid      int
	nextEmiDue    time.Time
	status        valueobject.LoanStatus
	disbursedAt   *time.Time
	version       int
	createdAt     time.Time
	updatedAt     time.Time
	domainEvents  []event.DomainEvent
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoan activates a loan from an accepted offer. The schedule must already
// be generated; the loan starts ACTIVE with the full principal outstanding.
func NewLoan(
	applicationID, offerID, agreementRef string,
	principal, annualRatePct decimal.Decimal,
	tenureMonths int,
	schedule []EmiScheduleEntry,
	now time.Time,
) (Loan, error) {
	if applicationID == "" {
		return Loan{}, errors.New("application ID is required")
	}
	if offerID == "" {
		return Loan{}, errors.New("offer ID is required")
	}
	if principal.LessThanOrEqual(decimal.Zero) {
		return Loan{}, errors.New("principal must be positive")
	}
	if len(schedule) != tenureMonths {
		return Loan{}, errors.New("schedule length must equal tenure months")
	}

	id := uuid.New().String()
	first := schedule[0]

	loan := Loan{
		id:            id,
		applicationID: applicationID,
		offerID:       offerID,
		agreementRef:  agreementRef,
		principal:     principal,
		outstanding:   principal,
		annualRatePct: annualRatePct,
		tenureMonths:  tenureMonths,
		emiAmount:     first.EmiAmount,
		nextEmiDue:    first.DueDate,
		status:        valueobject.LoanStatusActive,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}

	loan.domainEvents = append(loan.domainEvents, event.NewLoanActivated(
		id, applicationID, offerID, principal, tenureMonths, first.EmiAmount, first.DueDate,
	))
	return loan, nil
}

// ReconstructLoan rebuilds a Loan aggregate from persistence.
func ReconstructLoan(
	id, applicationID, offerID, agreementRef string,
	principal, outstanding, annualRatePct decimal.Decimal,
	tenureMonths int,
	emiAmount decimal.Decimal,
	emisPaid int,
	nextEmiDue time.Time,
	status valueobject.LoanStatus,
	disbursedAt *time.Time,
	version int,
	createdAt, updatedAt time.Time,
) Loan {
	return Loan{
		id:            id,
		applicationID: applicationID,
		offerID:       offerID,
		agreementRef:  agreementRef,
		principal:     principal,
		outstanding:   outstanding,
		annualRatePct: annualRatePct,
		tenureMonths:  tenureMonths,
		emiAmount:     emiAmount,
		emisPaid:      emisPaid,
		nextEmiDue:    nextEmiDue,
		status:        status,
		disbursedAt:   disbursedAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// MarkDisbursed records the partner's disbursal confirmation. The loan is
// already ACTIVE; this only pins the reference and timestamp.
func (l Loan) MarkDisbursed(reference string, now time.Time) (Loan, error) {
	if !l.status.Equal(valueobject.LoanStatusActive) {
		return l, valueobject.ErrInvalidStatusTransition
	}
	if l.disbursedAt != nil {
		return l, nil
	}
	next := l
	next.disbursedAt = &now
	if reference != "" {
		next.agreementRef = reference
	}
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewDisbursalConfirmed(l.id, reference))
	return next, nil
}

// RecordEmiPayment applies a captured payment for one schedule entry: the
// outstanding balance drops by the entry's principal component, the paid
// counter advances, and the next due date moves to nextDue (zero when the
// entry was the last). Settling the final instalment closes the loan.
func (l Loan) RecordEmiPayment(entry EmiScheduleEntry, amount decimal.Decimal, nextDue time.Time, now time.Time) (Loan, error) {
	if !l.status.Equal(valueobject.LoanStatusActive) {
		return l, valueobject.ErrInvalidStatusTransition
	}

	next := l
	next.outstanding = l.outstanding.Sub(entry.PrincipalComponent)
	if next.outstanding.IsNegative() {
		next.outstanding = decimal.Zero
	}
	next.emisPaid = l.emisPaid + 1
	next.nextEmiDue = nextDue
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewEmiPaid(
		l.id, entry.Number, amount, next.outstanding,
	))

	if next.emisPaid >= l.tenureMonths {
		next.outstanding = decimal.Zero
		next.status = valueobject.LoanStatusClosed
		next.domainEvents = append(next.domainEvents, event.NewLoanClosed(l.id))
	}
	return next, nil
}

// RecordEmiBounce notes a failed collection. The balance is untouched; the
// late fee lives on the schedule entry.
func (l Loan) RecordEmiBounce(emiNumber int, lateFee decimal.Decimal, now time.Time) (Loan, error) {
	if !l.status.Equal(valueobject.LoanStatusActive) {
		return l, valueobject.ErrInvalidStatusTransition
	}
	next := l
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewEmiBounced(l.id, emiNumber, lateFee))
	return next, nil
}

// MarkDefaulted transitions ACTIVE -> DEFAULTED.
func (l Loan) MarkDefaulted(now time.Time) (Loan, error) {
	if !l.status.CanTransitionTo(valueobject.LoanStatusDefaulted) {
		return l, valueobject.ErrInvalidStatusTransition
	}
	next := l
	next.status = valueobject.LoanStatusDefaulted
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	return next, nil
}

// Foreclose settles the full balance early and transitions to FORECLOSED.
func (l Loan) Foreclose(now time.Time) (Loan, error) {
	if !l.status.CanTransitionTo(valueobject.LoanStatusForeclosed) {
		return l, valueobject.ErrInvalidStatusTransition
	}
	next := l
	next.outstanding = decimal.Zero
	next.status = valueobject.LoanStatusForeclosed
	next.updatedAt = now
	next.domainEvents = copyEvents(l.domainEvents)
	return next, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l Loan) ID() string                     { return l.id }
func (l Loan) ApplicationID() string          { return l.applicationID }
func (l Loan) OfferID() string                { return l.offerID }
func (l Loan) AgreementRef() string           { return l.agreementRef }
func (l Loan) Principal() decimal.Decimal     { return l.principal }
func (l Loan) Outstanding() decimal.Decimal   { return l.outstanding }
func (l Loan) AnnualRatePct() decimal.Decimal { return l.annualRatePct }
func (l Loan) TenureMonths() int              { return l.tenureMonths }
func (l Loan) EmiAmount() decimal.Decimal     { return l.emiAmount }
func (l Loan) EmisPaid() int                  { return l.emisPaid }
func (l Loan) NextEmiDue() time.Time          { return l.nextEmiDue }
func (l Loan) Status() valueobject.LoanStatus { return l.status }
func (l Loan) DisbursedAt() *time.Time        { return l.disbursedAt }
func (l Loan) Version() int                   { return l.version }
func (l Loan) CreatedAt() time.Time           { return l.createdAt }
func (l Loan) UpdatedAt() time.Time           { return l.updatedAt }
func (l Loan) DomainEvents() []event.DomainEvent { return l.domainEvents }

// ClearEvents returns a copy with an empty event list.
func (l Loan) ClearEvents() Loan {
	next := l
	next.domainEvents = nil
	return next
}
