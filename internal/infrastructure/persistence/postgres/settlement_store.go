package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
	pgshared "github.com/udyamcap/lending-engine/pkg/postgres"
)

// SettlementStore implements port.SettlementStore. Every partner event is
// applied in one transaction together with its idempotency marker, so a
// crash between mutations can never leave a half-settled instalment.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a new store backed by PostgreSQL.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Apply records the event as processed and writes whichever mutations the
// settlement carries. A replayed event ID aborts with
// errs.ErrEventAlreadyProcessed before any state changes.
func (s *SettlementStore) Apply(ctx context.Context, settlement port.Settlement) error {
	if settlement.EventID == "" {
		return errs.NewValidation("event_id", "event ID is required")
	}
	return pgshared.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO processed_partner_events (event_id) VALUES ($1)
			 ON CONFLICT (event_id) DO NOTHING`,
			settlement.EventID,
		)
		if err != nil {
			return fmt.Errorf("record event %s: %w", settlement.EventID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("event %s: %w", settlement.EventID, errs.ErrEventAlreadyProcessed)
		}

		if settlement.Entry != nil {
			if err := updateScheduleEntry(ctx, tx, *settlement.Entry, settlement.EntryPriorStatus); err != nil {
				return err
			}
		}
		if settlement.Loan != nil {
			if err := updateLoan(ctx, tx, *settlement.Loan); err != nil {
				return err
			}
		}
		if settlement.Case != nil {
			if err := upsertCollectionCase(ctx, tx, *settlement.Case); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindEntry retrieves one schedule entry by loan and instalment number.
func (s *SettlementStore) FindEntry(ctx context.Context, loanID string, emiNumber int) (model.EmiScheduleEntry, error) {
	query := `SELECT` + entryColumns + `
		FROM emi_schedule_entries WHERE loan_id = $1 AND number = $2`

	entry, err := scanEntry(s.pool.QueryRow(ctx, query, loanID, emiNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.EmiScheduleEntry{}, fmt.Errorf("schedule entry %s/%d: %w", loanID, emiNumber, errs.ErrNotFound)
	}
	return entry, err
}

// updateScheduleEntry is a compare-and-set on the entry's status column. The
// caller read the row outside this transaction, so the prior status is the
// guard: zero rows means another event settled the entry first.
func updateScheduleEntry(ctx context.Context, q pgshared.Querier, e model.EmiScheduleEntry, prior valueobject.EmiStatus) error {
	tag, err := q.Exec(ctx, `
		UPDATE emi_schedule_entries
		SET paid_amount = $3,
		    paid_at     = $4,
		    late_fee    = $5,
		    status      = $6
		WHERE loan_id = $1 AND number = $2 AND status = $7`,
		e.LoanID, e.Number, e.PaidAmount, e.PaidAt, e.LateFee, e.Status.String(), prior.String(),
	)
	if err != nil {
		return fmt.Errorf("update schedule entry %s/%d: %w", e.LoanID, e.Number, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewConflict("EMI %d on loan %s changed concurrently", e.Number, e.LoanID)
	}
	return nil
}
