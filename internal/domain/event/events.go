package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

// ---------------------------------------------------------------------------
// Application events
// ---------------------------------------------------------------------------

// ApplicationSubmitted is raised when a new application enters the system.
type ApplicationSubmitted struct {
	events.BaseEvent
	ApplicantID string          `json:"applicant_id"`
	GSTIN       string          `json:"gstin"`
	Principal   decimal.Decimal `json:"principal"`
	TenureMonths int            `json:"tenure_months"`
	RiskScore   float64         `json:"risk_score"`
}

func NewApplicationSubmitted(applicationID, applicantID, gstin string, principal decimal.Decimal, tenureMonths int, riskScore float64) ApplicationSubmitted {
	return ApplicationSubmitted{
		BaseEvent:    events.NewBaseEvent("lending.application.submitted", applicationID, "LoanApplication"),
		ApplicantID:  applicantID,
		GSTIN:        gstin,
		Principal:    principal,
		TenureMonths: tenureMonths,
		RiskScore:    riskScore,
	}
}

// ApplicationApproved is raised when the partner returns offers for an application.
type ApplicationApproved struct {
	events.BaseEvent
	OfferCount int `json:"offer_count"`
}

func NewApplicationApproved(applicationID string, offerCount int) ApplicationApproved {
	return ApplicationApproved{
		BaseEvent:  events.NewBaseEvent("lending.application.approved", applicationID, "LoanApplication"),
		OfferCount: offerCount,
	}
}

// ApplicationRejected is raised on a terminal partner rejection.
type ApplicationRejected struct {
	events.BaseEvent
	Reason string `json:"reason"`
}

func NewApplicationRejected(applicationID, reason string) ApplicationRejected {
	return ApplicationRejected{
		BaseEvent: events.NewBaseEvent("lending.application.rejected", applicationID, "LoanApplication"),
		Reason:    reason,
	}
}

// ---------------------------------------------------------------------------
// Offer / loan events
// ---------------------------------------------------------------------------

// OfferAccepted is raised when exactly one offer wins acceptance.
type OfferAccepted struct {
	events.BaseEvent
	ApplicationID string          `json:"application_id"`
	Lender        string          `json:"lender"`
	Amount        decimal.Decimal `json:"amount"`
	AnnualRatePct decimal.Decimal `json:"annual_rate_pct"`
}

func NewOfferAccepted(offerID, applicationID, lender string, amount, annualRatePct decimal.Decimal) OfferAccepted {
	return OfferAccepted{
		BaseEvent:     events.NewBaseEvent("lending.offer.accepted", offerID, "Offer"),
		ApplicationID: applicationID,
		Lender:        lender,
		Amount:        amount,
		AnnualRatePct: annualRatePct,
	}
}

// LoanActivated is raised when a loan and its full schedule are persisted.
type LoanActivated struct {
	events.BaseEvent
	ApplicationID string          `json:"application_id"`
	OfferID       string          `json:"offer_id"`
	Principal     decimal.Decimal `json:"principal"`
	TenureMonths  int             `json:"tenure_months"`
	EmiAmount     decimal.Decimal `json:"emi_amount"`
	FirstEmiDue   time.Time       `json:"first_emi_due"`
}

func NewLoanActivated(loanID, applicationID, offerID string, principal decimal.Decimal, tenureMonths int, emiAmount decimal.Decimal, firstEmiDue time.Time) LoanActivated {
	return LoanActivated{
		BaseEvent:     events.NewBaseEvent("lending.loan.activated", loanID, "Loan"),
		ApplicationID: applicationID,
		OfferID:       offerID,
		Principal:     principal,
		TenureMonths:  tenureMonths,
		EmiAmount:     emiAmount,
		FirstEmiDue:   firstEmiDue,
	}
}

// DisbursalConfirmed is raised when the partner confirms money movement.
type DisbursalConfirmed struct {
	events.BaseEvent
	Reference string `json:"reference"`
}

func NewDisbursalConfirmed(loanID, reference string) DisbursalConfirmed {
	return DisbursalConfirmed{
		BaseEvent: events.NewBaseEvent("lending.loan.disbursal_confirmed", loanID, "Loan"),
		Reference: reference,
	}
}

// EmiPaid is raised when a captured payment settles one schedule entry.
type EmiPaid struct {
	events.BaseEvent
	EmiNumber          int             `json:"emi_number"`
	Amount             decimal.Decimal `json:"amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

func NewEmiPaid(loanID string, emiNumber int, amount, outstanding decimal.Decimal) EmiPaid {
	return EmiPaid{
		BaseEvent:          events.NewBaseEvent("lending.loan.emi_paid", loanID, "Loan"),
		EmiNumber:          emiNumber,
		Amount:             amount,
		OutstandingBalance: outstanding,
	}
}

// EmiBounced is raised when a payment fails and a late fee accrues.
type EmiBounced struct {
	events.BaseEvent
	EmiNumber int             `json:"emi_number"`
	LateFee   decimal.Decimal `json:"late_fee"`
}

func NewEmiBounced(loanID string, emiNumber int, lateFee decimal.Decimal) EmiBounced {
	return EmiBounced{
		BaseEvent: events.NewBaseEvent("lending.loan.emi_bounced", loanID, "Loan"),
		EmiNumber: emiNumber,
		LateFee:   lateFee,
	}
}

// LoanClosed is raised when the final schedule entry settles.
type LoanClosed struct {
	events.BaseEvent
}

func NewLoanClosed(loanID string) LoanClosed {
	return LoanClosed{
		BaseEvent: events.NewBaseEvent("lending.loan.closed", loanID, "Loan"),
	}
}
