package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	pgshared "github.com/udyamcap/lending-engine/pkg/postgres"
)

// uniqueViolation is the PostgreSQL error code raised by the partial unique
// index when a second offer on the same application tries to flip accepted.
const uniqueViolation = "23505"

// OfferRepo implements port.OfferRepository.
type OfferRepo struct {
	pool *pgxpool.Pool
}

// NewOfferRepo creates a new repository backed by PostgreSQL.
func NewOfferRepo(pool *pgxpool.Pool) *OfferRepo {
	return &OfferRepo{pool: pool}
}

const offerColumns = `
	id, application_id, partner_offer_id, lender, amount, annual_rate_pct,
	tenure_months, processing_fee, expires_at, accepted, accepted_at, created_at`

// SaveAll replaces the application's unaccepted offers with a fresh quote
// set in one transaction. Accepted offers are never touched.
func (r *OfferRepo) SaveAll(ctx context.Context, offers []model.Offer) error {
	if len(offers) == 0 {
		return nil
	}
	applicationID := offers[0].ApplicationID

	return pgshared.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM offers WHERE application_id = $1 AND NOT accepted`,
			applicationID,
		); err != nil {
			return fmt.Errorf("clear stale offers: %w", err)
		}
		for _, o := range offers {
			if _, err := tx.Exec(ctx, `
				INSERT INTO offers (
					id, application_id, partner_offer_id, lender, amount,
					annual_rate_pct, tenure_months, processing_fee,
					expires_at, accepted, accepted_at, created_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
				o.ID, o.ApplicationID, o.PartnerOfferID, o.Lender, o.Amount,
				o.AnnualRatePct, o.TenureMonths, o.ProcessingFee,
				o.ExpiresAt, o.Accepted, o.AcceptedAt, o.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert offer %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

// FindByID retrieves one offer.
func (r *OfferRepo) FindByID(ctx context.Context, id string) (model.Offer, error) {
	query := `SELECT` + offerColumns + ` FROM offers WHERE id = $1`
	offer, err := scanOffer(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Offer{}, fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
	}
	return offer, err
}

// FindByApplicationID retrieves all offers for an application.
func (r *OfferRepo) FindByApplicationID(ctx context.Context, applicationID string) ([]model.Offer, error) {
	query := `SELECT` + offerColumns + `
		FROM offers WHERE application_id = $1 ORDER BY annual_rate_pct ASC`

	rows, err := r.pool.Query(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	var result []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// MarkAccepted flips accepted with a compare-and-set. A zero-row update or a
// partial-unique-index violation both mean somebody else won.
func (r *OfferRepo) MarkAccepted(ctx context.Context, offer model.Offer) error {
	return markOfferAccepted(ctx, r.pool, offer)
}

// markOfferAccepted is shared with LoanRepo.CreateWithSchedule, which runs
// the same CAS inside its activation transaction.
func markOfferAccepted(ctx context.Context, q pgshared.Querier, offer model.Offer) error {
	tag, err := q.Exec(ctx, `
		UPDATE offers
		SET accepted = TRUE, accepted_at = $2
		WHERE id = $1 AND NOT accepted AND expires_at > $2`,
		offer.ID, offer.AcceptedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errs.NewConflict("another offer already accepted for application %s", offer.ApplicationID)
		}
		return fmt.Errorf("accept offer %s: %w", offer.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewConflict("offer %s already accepted or expired", offer.ID)
	}
	return nil
}

func scanOffer(s scannable) (model.Offer, error) {
	var (
		id, applicationID, partnerOfferID, lender string
		amount, annualRatePct, processingFee      decimal.Decimal
		tenureMonths                              int
		expiresAt                                 time.Time
		accepted                                  bool
		acceptedAt                                *time.Time
		createdAt                                 time.Time
	)
	err := s.Scan(
		&id, &applicationID, &partnerOfferID, &lender, &amount,
		&annualRatePct, &tenureMonths, &processingFee,
		&expiresAt, &accepted, &acceptedAt, &createdAt,
	)
	if err != nil {
		return model.Offer{}, err
	}
	return model.Offer{
		ID:             id,
		ApplicationID:  applicationID,
		PartnerOfferID: partnerOfferID,
		Lender:         lender,
		Amount:         amount,
		AnnualRatePct:  annualRatePct,
		TenureMonths:   tenureMonths,
		ProcessingFee:  processingFee,
		ExpiresAt:      expiresAt,
		Accepted:       accepted,
		AcceptedAt:     acceptedAt,
		CreatedAt:      createdAt,
	}, nil
}
