package postgres

import (
	"context"
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

// LoanRepo implements port.LoanRepository.
type LoanRepo struct {
	pool *pgxpool.Pool
}

// NewLoanRepo creates a new repository backed by PostgreSQL.
func NewLoanRepo(pool *pgxpool.Pool) *LoanRepo {
	return &LoanRepo{pool: pool}
}

const loanColumns = `
	id, application_id, offer_id, agreement_ref, principal, outstanding,
	annual_rate_pct, tenure_months, emi_amount, emis_paid, next_emi_due,
	status, disbursed_at, version, created_at, updated_at`

const entryColumns = `
	loan_id, number, due_date, emi_amount, principal_component,
	interest_component, balance_after, paid_amount, paid_at, late_fee, status`

// CreateWithSchedule runs the offer compare-and-set, the loan insert, and
// every schedule entry insert in one transaction. Either the loan activates
// with its complete schedule or nothing is visible.
func (r *LoanRepo) CreateWithSchedule(
	ctx context.Context,
	loan model.Loan,
	offer model.Offer,
	schedule []model.EmiScheduleEntry,
) error {
	return pgshared.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if err := markOfferAccepted(ctx, tx, offer); err != nil {
			return err
		}
		if err := insertLoan(ctx, tx, loan); err != nil {
			return err
		}
		for _, e := range schedule {
			if _, err := tx.Exec(ctx, `
				INSERT INTO emi_schedule_entries (
					loan_id, number, due_date, emi_amount, principal_component,
					interest_component, balance_after, paid_amount, paid_at,
					late_fee, status
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
				e.LoanID, e.Number, e.DueDate, e.EmiAmount, e.PrincipalComponent,
				e.InterestComponent, e.BalanceAfter, e.PaidAmount, e.PaidAt,
				e.LateFee, e.Status.String(),
			); err != nil {
				return fmt.Errorf("insert schedule entry %d: %w", e.Number, err)
			}
		}
		return nil
	})
}

func insertLoan(ctx context.Context, q pgshared.Querier, loan model.Loan) error {
	_, err := q.Exec(ctx, `
		INSERT INTO loans (
			id, application_id, offer_id, agreement_ref, principal,
			outstanding, annual_rate_pct, tenure_months, emi_amount,
			emis_paid, next_emi_due, status, disbursed_at, version,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		loan.ID(), loan.ApplicationID(), loan.OfferID(), loan.AgreementRef(),
		loan.Principal(), loan.Outstanding(), loan.AnnualRatePct(),
		loan.TenureMonths(), loan.EmiAmount(), loan.EmisPaid(),
		nullableTime(loan.NextEmiDue()), loan.Status().String(), loan.DisbursedAt(),
		loan.Version(), loan.CreatedAt(), loan.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert loan %s: %w", loan.ID(), err)
	}
	return nil
}

// Save persists loan-level counters with optimistic locking.
func (r *LoanRepo) Save(ctx context.Context, loan model.Loan) error {
	return updateLoan(ctx, r.pool, loan)
}

// updateLoan is shared with SettlementStore, which updates the loan inside
// its settlement transaction.
func updateLoan(ctx context.Context, q pgshared.Querier, loan model.Loan) error {
	tag, err := q.Exec(ctx, `
		UPDATE loans
		SET outstanding  = $2,
		    emis_paid    = $3,
		    next_emi_due = $4,
		    status       = $5,
		    disbursed_at = $6,
		    agreement_ref = $7,
		    version      = version + 1,
		    updated_at   = $8
		WHERE id = $1 AND version = $9`,
		loan.ID(), loan.Outstanding(), loan.EmisPaid(),
		nullableTime(loan.NextEmiDue()), loan.Status().String(),
		loan.DisbursedAt(), loan.AgreementRef(), loan.UpdatedAt(), loan.Version(),
	)
	if err != nil {
		return fmt.Errorf("update loan %s: %w", loan.ID(), err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewConflict("loan %s changed concurrently", loan.ID())
	}
	return nil
}

// FindByID retrieves one loan.
func (r *LoanRepo) FindByID(ctx context.Context, id string) (model.Loan, error) {
	query := `SELECT` + loanColumns + ` FROM loans WHERE id = $1`
	loan, err := scanLoan(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Loan{}, fmt.Errorf("loan %s: %w", id, errs.ErrNotFound)
	}
	return loan, err
}

// FindByApplicationID retrieves the loan activated for an application.
func (r *LoanRepo) FindByApplicationID(ctx context.Context, applicationID string) (model.Loan, error) {
	query := `SELECT` + loanColumns + ` FROM loans WHERE application_id = $1`
	loan, err := scanLoan(r.pool.QueryRow(ctx, query, applicationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Loan{}, fmt.Errorf("loan for application %s: %w", applicationID, errs.ErrNotFound)
	}
	return loan, err
}

// FindSchedule retrieves the full schedule ordered by instalment number.
func (r *LoanRepo) FindSchedule(ctx context.Context, loanID string) ([]model.EmiScheduleEntry, error) {
	query := `SELECT` + entryColumns + `
		FROM emi_schedule_entries WHERE loan_id = $1 ORDER BY number ASC`

	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	var result []model.EmiScheduleEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanLoan(s scannable) (model.Loan, error) {
	var (
		id, applicationID, offerID, agreementRef string
		principal, outstanding, annualRatePct    decimal.Decimal
		tenureMonths                             int
		emiAmount                                decimal.Decimal
		emisPaid                                 int
		nextEmiDue                               *time.Time
		statusStr                                string
		disbursedAt                              *time.Time
		version                                  int
		createdAt, updatedAt                     time.Time
	)
	err := s.Scan(
		&id, &applicationID, &offerID, &agreementRef,
		&principal, &outstanding, &annualRatePct,
		&tenureMonths, &emiAmount, &emisPaid, &nextEmiDue,
		&statusStr, &disbursedAt, &version, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Loan{}, err
	}
	status, err := valueobject.NewLoanStatus(statusStr)
	if err != nil {
		return model.Loan{}, fmt.Errorf("parse status: %w", err)
	}
	var due time.Time
	if nextEmiDue != nil {
		due = *nextEmiDue
	}
	return model.ReconstructLoan(
		id, applicationID, offerID, agreementRef,
		principal, outstanding, annualRatePct,
		tenureMonths, emiAmount, emisPaid, due,
		status, disbursedAt, version, createdAt, updatedAt,
	), nil
}

func scanEntry(s scannable) (model.EmiScheduleEntry, error) {
	var (
		loanID                                 string
		number                                 int
		dueDate                                time.Time
		emiAmount, principalComp, interestComp decimal.Decimal
		balanceAfter, paidAmount               decimal.Decimal
		paidAt                                 *time.Time
		lateFee                                decimal.Decimal
		statusStr                              string
	)
	err := s.Scan(
		&loanID, &number, &dueDate, &emiAmount, &principalComp,
		&interestComp, &balanceAfter, &paidAmount, &paidAt, &lateFee, &statusStr,
	)
	if err != nil {
		return model.EmiScheduleEntry{}, err
	}
	status, err := valueobject.NewEmiStatus(statusStr)
	if err != nil {
		return model.EmiScheduleEntry{}, fmt.Errorf("parse entry status: %w", err)
	}
	return model.EmiScheduleEntry{
		LoanID:             loanID,
		Number:             number,
		DueDate:            dueDate,
		EmiAmount:          emiAmount,
		PrincipalComponent: principalComp,
		InterestComponent:  interestComp,
		BalanceAfter:       balanceAfter,
		PaidAmount:         paidAmount,
		PaidAt:             paidAt,
		LateFee:            lateFee,
		Status:             status,
	}, nil
}

// nullableTime maps a zero time to NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
