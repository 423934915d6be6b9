package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// SubmitApplicationRequest carries the data needed to submit a new loan
// application. ApplicationID is optional: a caller that supplies its own UUID
// can retry the submission idempotently.
type SubmitApplicationRequest struct {
	ApplicationID     string          `json:"application_id,omitempty"`
	ApplicantID       string          `json:"applicant_id"`
	GSTIN             string          `json:"gstin"`
	CompanyName       string          `json:"company_name"`
	Principal         decimal.Decimal `json:"principal"`
	Purpose           string          `json:"purpose"`
	TenureMonths      int             `json:"tenure_months"`
	AnnualTurnover    decimal.Decimal `json:"annual_turnover"`
	MonthlyRevenue    decimal.Decimal `json:"monthly_revenue"`
	ComplianceScore   float64         `json:"compliance_score"`
	BusinessAgeMonths int             `json:"business_age_months"`
}

// GetApplicationRequest identifies an application to retrieve.
type GetApplicationRequest struct {
	ApplicationID string `json:"application_id"`
}

// ListOffersRequest identifies the application whose offers to list.
type ListOffersRequest struct {
	ApplicationID string `json:"application_id"`
}

// AcceptOfferRequest identifies the offer to accept.
type AcceptOfferRequest struct {
	OfferID       string `json:"offer_id"`
	ApplicationID string `json:"application_id"`
}

// GetLoanRequest identifies a loan to retrieve.
type GetLoanRequest struct {
	LoanID          string `json:"loan_id"`
	IncludeSchedule bool   `json:"include_schedule,omitempty"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// ApplicationResponse is the external representation of a loan application.
type ApplicationResponse struct {
	ID                string          `json:"id"`
	ApplicantID       string          `json:"applicant_id"`
	GSTIN             string          `json:"gstin"`
	CompanyName       string          `json:"company_name"`
	Principal         decimal.Decimal `json:"principal"`
	Purpose           string          `json:"purpose"`
	TenureMonths      int             `json:"tenure_months"`
	AnnualTurnover    decimal.Decimal `json:"annual_turnover"`
	MonthlyRevenue    decimal.Decimal `json:"monthly_revenue"`
	ComplianceScore   float64         `json:"compliance_score"`
	BusinessAgeMonths int             `json:"business_age_months"`
	RiskScore         float64         `json:"risk_score"`
	Status            string          `json:"status"`
	DecisionReason    string          `json:"decision_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OfferResponse is one lender quote.
type OfferResponse struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Lender        string          `json:"lender"`
	Amount        decimal.Decimal `json:"amount"`
	AnnualRatePct decimal.Decimal `json:"annual_rate_pct"`
	TenureMonths  int             `json:"tenure_months"`
	EmiAmount     decimal.Decimal `json:"emi_amount"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	ValidUntil    time.Time       `json:"valid_until"`
	Accepted      bool            `json:"accepted"`
}

// EmiEntryResponse represents a single schedule entry.
type EmiEntryResponse struct {
	Number             int             `json:"number"`
	DueDate            time.Time       `json:"due_date"`
	EmiAmount          decimal.Decimal `json:"emi_amount"`
	PrincipalComponent decimal.Decimal `json:"principal_component"`
	InterestComponent  decimal.Decimal `json:"interest_component"`
	BalanceAfter       decimal.Decimal `json:"balance_after"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	LateFee            decimal.Decimal `json:"late_fee"`
	Status             string          `json:"status"`
}

// AcceptOfferResponse is returned when an offer acceptance activates a loan.
type AcceptOfferResponse struct {
	LoanID       string           `json:"loan_id"`
	AgreementRef string           `json:"agreement_ref"`
	FirstEmi     EmiEntryResponse `json:"first_emi"`
}

// LoanResponse is the external representation of a loan.
type LoanResponse struct {
	ID            string             `json:"id"`
	ApplicationID string             `json:"application_id"`
	OfferID       string             `json:"offer_id"`
	AgreementRef  string             `json:"agreement_ref"`
	Principal     decimal.Decimal    `json:"principal"`
	Outstanding   decimal.Decimal    `json:"outstanding"`
	AnnualRatePct decimal.Decimal    `json:"annual_rate_pct"`
	TenureMonths  int                `json:"tenure_months"`
	EmiAmount     decimal.Decimal    `json:"emi_amount"`
	EmisPaid      int                `json:"emis_paid"`
	NextEmiDue    time.Time          `json:"next_emi_due"`
	Status        string             `json:"status"`
	DisbursedAt   *time.Time         `json:"disbursed_at,omitempty"`
	Schedule      []EmiEntryResponse `json:"schedule,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// WebhookResult reports how a partner event was handled.
type WebhookResult struct {
	Applied bool   `json:"applied"`
	Event   string `json:"event,omitempty"`
}
