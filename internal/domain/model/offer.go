package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
)

// Offer is a lender quote attached to an application. At most one offer per
// application may ever be accepted; the persistence layer enforces that
// exclusivity with a compare-and-set, this entity enforces the local rules.
type Offer struct {
	ID             string
	ApplicationID  string
	PartnerOfferID string
	Lender         string
	Amount         decimal.Decimal
	AnnualRatePct  decimal.Decimal
	TenureMonths   int
	ProcessingFee  decimal.Decimal
	ExpiresAt      time.Time
	Accepted       bool
	AcceptedAt     *time.Time
	CreatedAt      time.Time
}

// Accept marks the offer accepted. Expired or already-accepted offers conflict.
func (o Offer) Accept(now time.Time) (Offer, error) {
	if o.Accepted {
		return o, errs.NewConflict("offer %s already accepted", o.ID)
	}
	if !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt) {
		return o, errs.NewConflict("offer %s expired at %s", o.ID, o.ExpiresAt.Format(time.RFC3339))
	}
	next := o
	next.Accepted = true
	next.AcceptedAt = &now
	return next, nil
}

// IsExpired reports whether the offer can no longer be accepted on time grounds.
func (o Offer) IsExpired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}
