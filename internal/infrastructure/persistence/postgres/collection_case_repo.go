package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
	pgshared "github.com/udyamcap/lending-engine/pkg/postgres"
)

// CollectionCaseRepo implements port.CollectionCaseRepository.
type CollectionCaseRepo struct {
	pool *pgxpool.Pool
}

// NewCollectionCaseRepo creates a new repository backed by PostgreSQL.
func NewCollectionCaseRepo(pool *pgxpool.Pool) *CollectionCaseRepo {
	return &CollectionCaseRepo{pool: pool}
}

const collectionCaseColumns = `
	id, loan_id, emi_number, amount_due, status, assigned_to, notes,
	created_at, updated_at`

// Save persists a case (upsert by ID).
func (r *CollectionCaseRepo) Save(ctx context.Context, c model.CollectionCase) error {
	return upsertCollectionCase(ctx, r.pool, c)
}

// upsertCollectionCase is shared with SettlementStore, which writes the case
// inside its settlement transaction.
func upsertCollectionCase(ctx context.Context, q pgshared.Querier, c model.CollectionCase) error {
	notes, err := json.Marshal(c.Notes())
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO collection_cases (
			id, loan_id, emi_number, amount_due, status, assigned_to,
			notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			amount_due  = EXCLUDED.amount_due,
			status      = EXCLUDED.status,
			assigned_to = EXCLUDED.assigned_to,
			notes       = EXCLUDED.notes,
			updated_at  = EXCLUDED.updated_at`,
		c.ID(), c.LoanID(), c.EmiNumber(), c.AmountDue(), c.Status().String(),
		c.AssignedTo(), notes, c.CreatedAt(), c.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save collection case %s: %w", c.ID(), err)
	}
	return nil
}

// FindByID retrieves one case.
func (r *CollectionCaseRepo) FindByID(ctx context.Context, id string) (model.CollectionCase, error) {
	query := `SELECT` + collectionCaseColumns + ` FROM collection_cases WHERE id = $1`
	c, err := scanCollectionCase(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CollectionCase{}, fmt.Errorf("collection case %s: %w", id, errs.ErrNotFound)
	}
	return c, err
}

// FindOpenByLoanAndEmi retrieves the active case for an instalment, if any.
// The partial unique index guarantees at most one.
func (r *CollectionCaseRepo) FindOpenByLoanAndEmi(ctx context.Context, loanID string, emiNumber int) (model.CollectionCase, error) {
	query := `SELECT` + collectionCaseColumns + `
		FROM collection_cases
		WHERE loan_id = $1 AND emi_number = $2 AND status IN ('OPEN', 'IN_PROGRESS')`

	c, err := scanCollectionCase(r.pool.QueryRow(ctx, query, loanID, emiNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CollectionCase{}, fmt.Errorf("open case for loan %s EMI %d: %w", loanID, emiNumber, errs.ErrNotFound)
	}
	return c, err
}

// FindByLoanID retrieves all cases for a loan, newest first.
func (r *CollectionCaseRepo) FindByLoanID(ctx context.Context, loanID string) ([]model.CollectionCase, error) {
	query := `SELECT` + collectionCaseColumns + `
		FROM collection_cases WHERE loan_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("query collection cases: %w", err)
	}
	defer rows.Close()

	var result []model.CollectionCase
	for rows.Next() {
		c, err := scanCollectionCase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanCollectionCase(s scannable) (model.CollectionCase, error) {
	var (
		id, loanID           string
		emiNumber            int
		amountDue            decimal.Decimal
		statusStr            string
		assignedTo           string
		notesRaw             []byte
		createdAt, updatedAt time.Time
	)
	err := s.Scan(
		&id, &loanID, &emiNumber, &amountDue, &statusStr,
		&assignedTo, &notesRaw, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.CollectionCase{}, err
	}
	status, err := valueobject.NewCollectionCaseStatus(statusStr)
	if err != nil {
		return model.CollectionCase{}, fmt.Errorf("parse case status: %w", err)
	}
	var notes []string
	if len(notesRaw) > 0 {
		if err := json.Unmarshal(notesRaw, &notes); err != nil {
			return model.CollectionCase{}, fmt.Errorf("decode notes: %w", err)
		}
	}
	return model.ReconstructCollectionCase(
		id, loanID, emiNumber, amountDue, status, assignedTo, notes,
		createdAt, updatedAt,
	), nil
}
