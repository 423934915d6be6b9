package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/event"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// ApplicationRepository persists and retrieves loan applications. Save uses
// optimistic concurrency on the aggregate version.
type ApplicationRepository interface {
	Save(ctx context.Context, app model.LoanApplication) error
	FindByID(ctx context.Context, id string) (model.LoanApplication, error)
	FindByApplicantID(ctx context.Context, applicantID string) ([]model.LoanApplication, error)
}

// OfferRepository persists lender offers. SaveAll replaces any unaccepted
// offers for the application; MarkAccepted is a compare-and-set that fails
// with a conflict when another offer on the same application already won.
type OfferRepository interface {
	SaveAll(ctx context.Context, offers []model.Offer) error
	FindByID(ctx context.Context, id string) (model.Offer, error)
	FindByApplicationID(ctx context.Context, applicationID string) ([]model.Offer, error)
	MarkAccepted(ctx context.Context, offer model.Offer) error
}

// LoanRepository persists loans and their schedules.
type LoanRepository interface {
	// CreateWithSchedule atomically accepts the offer, inserts the loan, and
	// inserts every schedule entry in one transaction. The offer CAS inside
	// the transaction guarantees at most one loan per application.
	CreateWithSchedule(ctx context.Context, loan model.Loan, offer model.Offer, schedule []model.EmiScheduleEntry) error
	Save(ctx context.Context, loan model.Loan) error
	FindByID(ctx context.Context, id string) (model.Loan, error)
	FindByApplicationID(ctx context.Context, applicationID string) (model.Loan, error)
	FindSchedule(ctx context.Context, loanID string) ([]model.EmiScheduleEntry, error)
}

// CollectionCaseRepository persists and retrieves collection cases.
type CollectionCaseRepository interface {
	Save(ctx context.Context, c model.CollectionCase) error
	FindByID(ctx context.Context, id string) (model.CollectionCase, error)
	FindOpenByLoanAndEmi(ctx context.Context, loanID string, emiNumber int) (model.CollectionCase, error)
	FindByLoanID(ctx context.Context, loanID string) ([]model.CollectionCase, error)
}

// ---------------------------------------------------------------------------
// Settlement store port
// ---------------------------------------------------------------------------

// Settlement carries the full outcome of applying one partner event. The
// store persists every piece in a single transaction together with the
// processed-event marker, so a crash mid-way never leaves a half-applied
// webhook.
type Settlement struct {
	EventID string
	Loan    *model.Loan
	Entry   *model.EmiScheduleEntry
	// EntryPriorStatus is the status the entry row must still hold when the
	// mutation is written. A concurrent writer that moved the row first makes
	// the apply fail with a conflict instead of overwriting its outcome.
	EntryPriorStatus valueobject.EmiStatus
	Case             *model.CollectionCase
}

// SettlementStore applies webhook-driven mutations atomically. Apply with an
// already-seen event ID returns errs.ErrEventAlreadyProcessed and leaves the
// rest of the settlement unapplied.
type SettlementStore interface {
	Apply(ctx context.Context, s Settlement) error
	// FindEntry loads one schedule entry for mutation.
	FindEntry(ctx context.Context, loanID string, emiNumber int) (model.EmiScheduleEntry, error)
}

// ---------------------------------------------------------------------------
// Event publisher port
// ---------------------------------------------------------------------------

// EventPublisher publishes domain events to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}

// ---------------------------------------------------------------------------
// External service ports
// ---------------------------------------------------------------------------

// GatewayOffer is an offer quote as returned by the lending partner.
type GatewayOffer struct {
	PartnerOfferID string
	Lender         string
	Amount         decimal.Decimal
	AnnualRatePct  decimal.Decimal
	TenureMonths   int
	ProcessingFee  decimal.Decimal
	ExpiresAt      time.Time
}

// GatewayAcceptance is the partner's acknowledgement of an accepted offer.
type GatewayAcceptance struct {
	AgreementRef string
	DisbursalETA time.Time
}

// LendingGateway is the outbound client to the lending partner. Every failure
// surfaces as *errs.GatewayError; the gateway never retries on its own.
type LendingGateway interface {
	RegisterCustomer(ctx context.Context, applicantID string, gstin valueobject.GSTIN, companyName string) (customerRef string, err error)
	SubmitApplication(ctx context.Context, app model.LoanApplication, customerRef string) (partnerRef string, err error)
	FetchOffers(ctx context.Context, partnerRef string) ([]GatewayOffer, error)
	AcceptOffer(ctx context.Context, partnerRef, partnerOfferID string) (GatewayAcceptance, error)
}

// ComplianceProvider supplies GST filing history used by the risk engine.
type ComplianceProvider interface {
	// FilingRegularity returns the fraction of the last twelve filing periods
	// with an on-time return, in [0, 1].
	FilingRegularity(ctx context.Context, gstin valueobject.GSTIN) (float64, error)
}

// OfferCache is a read-through cache for offer lists keyed by application ID.
type OfferCache interface {
	Get(ctx context.Context, applicationID string) ([]model.Offer, bool)
	Set(ctx context.Context, applicationID string, offers []model.Offer, ttl time.Duration)
	Invalidate(ctx context.Context, applicationID string)
}
