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
// LoanApplication aggregate root
// ---------------------------------------------------------------------------

// LoanApplication is an immutable aggregate. Every mutation returns a new copy.
type LoanApplication struct {
	id                string
	applicantID       string
	gstin             valueobject.GSTIN
	companyName       string
	principal         decimal.Decimal
	annualTurnover    decimal.Decimal
	monthlyRevenue    decimal.Decimal
	purpose           string
	tenureMonths      int
	complianceScore   float64
	businessAgeMonths int
	riskScore         float64
	status            valueobject.ApplicationStatus
	decisionReason    string
	partnerRef        string
	version           int
	createdAt         time.Time
	updatedAt         time.Time
	domainEvents      []event.DomainEvent
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoanApplication creates a brand-new application in PENDING status.
// Validation of lending policy (amount floors, compliance minimums) lives in
// the domain service; here only structural invariants are enforced. When id is
// empty a fresh UUID is assigned; callers supply their own id to make
// submission idempotent.
func NewLoanApplication(
	id, applicantID string,
	gstin valueobject.GSTIN,
	companyName string,
	principal, annualTurnover, monthlyRevenue decimal.Decimal,
	purpose string,
	tenureMonths int,
	complianceScore float64,
	businessAgeMonths int,
	riskScore float64,
	now time.Time,
) (LoanApplication, error) {
	if applicantID == "" {
		return LoanApplication{}, errors.New("applicant ID is required")
	}
	if gstin.IsZero() {
		return LoanApplication{}, errors.New("gstin is required")
	}
	if principal.LessThanOrEqual(decimal.Zero) {
		return LoanApplication{}, errors.New("principal must be positive")
	}
	if tenureMonths <= 0 {
		return LoanApplication{}, errors.New("tenure months must be positive")
	}
	if id == "" {
		id = uuid.New().String()
	}

	app := LoanApplication{
		id:                id,
		applicantID:       applicantID,
		gstin:             gstin,
		companyName:       companyName,
		principal:         principal,
		annualTurnover:    annualTurnover,
		monthlyRevenue:    monthlyRevenue,
		purpose:           purpose,
		tenureMonths:      tenureMonths,
		complianceScore:   complianceScore,
		businessAgeMonths: businessAgeMonths,
		riskScore:         riskScore,
		status:            valueobject.ApplicationStatusPending,
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}

	app.domainEvents = append(app.domainEvents, event.NewApplicationSubmitted(
		id, applicantID, gstin.String(), principal, tenureMonths, riskScore,
	))
	return app, nil
}

// ReconstructLoanApplication rebuilds an aggregate from persistence without
// side-effects.
func ReconstructLoanApplication(
	id, applicantID string,
	gstin valueobject.GSTIN,
	companyName string,
	principal, annualTurnover, monthlyRevenue decimal.Decimal,
	purpose string,
	tenureMonths int,
	complianceScore float64,
	businessAgeMonths int,
	riskScore float64,
	status valueobject.ApplicationStatus,
	decisionReason, partnerRef string,
	version int,
	createdAt, updatedAt time.Time,
) LoanApplication {
	return LoanApplication{
		id:                id,
		applicantID:       applicantID,
		gstin:             gstin,
		companyName:       companyName,
		principal:         principal,
		annualTurnover:    annualTurnover,
		monthlyRevenue:    monthlyRevenue,
		purpose:           purpose,
		tenureMonths:      tenureMonths,
		complianceScore:   complianceScore,
		businessAgeMonths: businessAgeMonths,
		riskScore:         riskScore,
		status:            status,
		decisionReason:    decisionReason,
		partnerRef:        partnerRef,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions (each returns a new copy)
// ---------------------------------------------------------------------------

// WithPartnerRef pins the partner's submission reference without a status
// change. Used at submit time, before the partner starts its review.
func (a LoanApplication) WithPartnerRef(ref string) LoanApplication {
	next := a
	next.partnerRef = ref
	next.domainEvents = copyEvents(a.domainEvents)
	return next
}

// MarkUnderReview transitions PENDING -> UNDER_REVIEW once the partner
// acknowledges the submission.
func (a LoanApplication) MarkUnderReview(partnerRef string, now time.Time) (LoanApplication, error) {
	if !a.status.CanTransitionTo(valueobject.ApplicationStatusUnderReview) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	next := a
	next.status = valueobject.ApplicationStatusUnderReview
	next.partnerRef = partnerRef
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	return next, nil
}

// Approve transitions UNDER_REVIEW -> APPROVED and emits ApplicationApproved.
// offerCount is the number of offers the partner returned.
func (a LoanApplication) Approve(offerCount int, now time.Time) (LoanApplication, error) {
	if !a.status.CanTransitionTo(valueobject.ApplicationStatusApproved) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	next := a
	next.status = valueobject.ApplicationStatusApproved
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewApplicationApproved(a.id, offerCount))
	return next, nil
}

// Reject moves to the terminal REJECTED status and emits ApplicationRejected.
// Allowed from PENDING (policy rejection) and UNDER_REVIEW (partner decline).
func (a LoanApplication) Reject(reason string, now time.Time) (LoanApplication, error) {
	if !a.status.CanTransitionTo(valueobject.ApplicationStatusRejected) {
		return a, valueobject.ErrInvalidStatusTransition
	}
	next := a
	next.status = valueobject.ApplicationStatusRejected
	next.decisionReason = reason
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewApplicationRejected(a.id, reason))
	return next, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (a LoanApplication) ID() string                            { return a.id }
func (a LoanApplication) ApplicantID() string                   { return a.applicantID }
func (a LoanApplication) GSTIN() valueobject.GSTIN              { return a.gstin }
func (a LoanApplication) CompanyName() string                   { return a.companyName }
func (a LoanApplication) Principal() decimal.Decimal            { return a.principal }
func (a LoanApplication) AnnualTurnover() decimal.Decimal       { return a.annualTurnover }
func (a LoanApplication) MonthlyRevenue() decimal.Decimal       { return a.monthlyRevenue }
func (a LoanApplication) Purpose() string                       { return a.purpose }
func (a LoanApplication) TenureMonths() int                     { return a.tenureMonths }
func (a LoanApplication) ComplianceScore() float64              { return a.complianceScore }
func (a LoanApplication) BusinessAgeMonths() int                { return a.businessAgeMonths }
func (a LoanApplication) RiskScore() float64                    { return a.riskScore }
func (a LoanApplication) Status() valueobject.ApplicationStatus { return a.status }
func (a LoanApplication) DecisionReason() string                { return a.decisionReason }
func (a LoanApplication) PartnerRef() string                    { return a.partnerRef }
func (a LoanApplication) Version() int                          { return a.version }
func (a LoanApplication) CreatedAt() time.Time                  { return a.createdAt }
func (a LoanApplication) UpdatedAt() time.Time                  { return a.updatedAt }
func (a LoanApplication) DomainEvents() []event.DomainEvent     { return a.domainEvents }

// ClearEvents returns a copy with an empty event list (call after publishing).
func (a LoanApplication) ClearEvents() LoanApplication {
	next := a
	next.domainEvents = nil
	return next
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if len(src) == 0 {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}
