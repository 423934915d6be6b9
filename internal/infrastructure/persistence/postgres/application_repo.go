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
)

// ApplicationRepo implements port.ApplicationRepository.
type ApplicationRepo struct {
	pool *pgxpool.Pool
}

// NewApplicationRepo creates a new repository backed by PostgreSQL.
func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

const applicationColumns = `
	id, applicant_id, gstin, company_name, principal, annual_turnover,
	monthly_revenue, purpose, tenure_months, compliance_score,
	business_age_months, risk_score, status, decision_reason, partner_ref,
	version, created_at, updated_at`

// Save persists an application (upsert by ID with optimistic locking).
func (r *ApplicationRepo) Save(ctx context.Context, app model.LoanApplication) error {
	query := `
		INSERT INTO loan_applications (
			id, applicant_id, gstin, company_name, principal, annual_turnover,
			monthly_revenue, purpose, tenure_months, compliance_score,
			business_age_months, risk_score, status, decision_reason,
			partner_ref, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
			status          = EXCLUDED.status,
			decision_reason = EXCLUDED.decision_reason,
			partner_ref     = EXCLUDED.partner_ref,
			risk_score      = EXCLUDED.risk_score,
			version         = loan_applications.version + 1,
			updated_at      = EXCLUDED.updated_at
		WHERE loan_applications.version = $16
	`
	tag, err := r.pool.Exec(ctx, query,
		app.ID(), app.ApplicantID(), app.GSTIN().String(), app.CompanyName(),
		app.Principal(), app.AnnualTurnover(), app.MonthlyRevenue(),
		app.Purpose(), app.TenureMonths(), app.ComplianceScore(),
		app.BusinessAgeMonths(), app.RiskScore(), app.Status().String(),
		app.DecisionReason(), app.PartnerRef(),
		app.Version(), app.CreatedAt(), app.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewConflict("application %s changed concurrently", app.ID())
	}
	return nil
}

// FindByID retrieves a single application.
func (r *ApplicationRepo) FindByID(ctx context.Context, id string) (model.LoanApplication, error) {
	query := `SELECT` + applicationColumns + ` FROM loan_applications WHERE id = $1`
	app, err := scanApplication(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.LoanApplication{}, fmt.Errorf("application %s: %w", id, errs.ErrNotFound)
	}
	return app, err
}

// FindByApplicantID retrieves all applications for an applicant, newest first.
func (r *ApplicationRepo) FindByApplicantID(ctx context.Context, applicantID string) ([]model.LoanApplication, error) {
	query := `SELECT` + applicationColumns + `
		FROM loan_applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, applicantID)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var result []model.LoanApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}

func scanApplication(s scannable) (model.LoanApplication, error) {
	var (
		id, applicantID, gstinStr, companyName string
		principal, annualTurnover              decimal.Decimal
		monthlyRevenue                         decimal.Decimal
		purpose                                string
		tenureMonths                           int
		complianceScore                        float64
		businessAgeMonths                      int
		riskScore                              float64
		statusStr, decisionReason, partnerRef  string
		version                                int
		createdAt, updatedAt                   time.Time
	)

	err := s.Scan(
		&id, &applicantID, &gstinStr, &companyName,
		&principal, &annualTurnover, &monthlyRevenue,
		&purpose, &tenureMonths, &complianceScore,
		&businessAgeMonths, &riskScore,
		&statusStr, &decisionReason, &partnerRef,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.LoanApplication{}, err
	}

	status, err := valueobject.NewApplicationStatus(statusStr)
	if err != nil {
		return model.LoanApplication{}, fmt.Errorf("parse status: %w", err)
	}
	gstin, err := valueobject.NewGSTIN(gstinStr)
	if err != nil {
		return model.LoanApplication{}, fmt.Errorf("parse gstin: %w", err)
	}

	return model.ReconstructLoanApplication(
		id, applicantID, gstin, companyName,
		principal, annualTurnover, monthlyRevenue,
		purpose, tenureMonths, complianceScore, businessAgeMonths, riskScore,
		status, decisionReason, partnerRef,
		version, createdAt, updatedAt,
	), nil
}
