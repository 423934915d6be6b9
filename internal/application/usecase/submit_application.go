package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/udyamcap/lending-engine/internal/application/dto"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/service"
)

// SubmitApplicationUseCase orchestrates validation, risk scoring, partner
// registration, and persistence of a new loan application.
type SubmitApplicationUseCase struct {
	validator  *service.Validator
	riskEngine *service.RiskEngine
	gateway    port.LendingGateway
	appRepo    port.ApplicationRepository
	publisher  port.EventPublisher
	logger     *slog.Logger
}

// NewSubmitApplicationUseCase wires dependencies.
func NewSubmitApplicationUseCase(
	validator *service.Validator,
	riskEngine *service.RiskEngine,
	gateway port.LendingGateway,
	appRepo port.ApplicationRepository,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *SubmitApplicationUseCase {
	return &SubmitApplicationUseCase{
		validator:  validator,
		riskEngine: riskEngine,
		gateway:    gateway,
		appRepo:    appRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute validates, scores, submits to the partner, and persists the
// application as PENDING. A validation failure returns synchronously with
// nothing persisted; a gateway failure also skips persistence so the caller
// can retry safely with the same application ID.
func (uc *SubmitApplicationUseCase) Execute(
	ctx context.Context,
	req dto.SubmitApplicationRequest,
) (dto.ApplicationResponse, error) {
	now := time.Now().UTC()

	// 1. Lending policy gate. First violated rule only.
	gstin, err := uc.validator.Validate(service.ApplicationInput{
		ApplicantID:       req.ApplicantID,
		GSTIN:             req.GSTIN,
		CompanyName:       req.CompanyName,
		Principal:         req.Principal,
		Purpose:           req.Purpose,
		TenureMonths:      req.TenureMonths,
		AnnualTurnover:    req.AnnualTurnover,
		MonthlyRevenue:    req.MonthlyRevenue,
		ComplianceScore:   req.ComplianceScore,
		BusinessAgeMonths: req.BusinessAgeMonths,
	})
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	// 2. Risk scoring. Never fails; degrades to the conservative default.
	risk := uc.riskEngine.Score(ctx, service.RiskInput{
		GSTIN:             gstin.String(),
		Principal:         req.Principal,
		AnnualTurnover:    req.AnnualTurnover,
		ComplianceScore:   req.ComplianceScore,
		BusinessAgeMonths: req.BusinessAgeMonths,
	})

	// 3. Build the aggregate before any remote call so the partner sees the
	// same application ID on every retry.
	app, err := model.NewLoanApplication(
		req.ApplicationID, req.ApplicantID, gstin, req.CompanyName,
		req.Principal, req.AnnualTurnover, req.MonthlyRevenue,
		req.Purpose, req.TenureMonths, req.ComplianceScore,
		req.BusinessAgeMonths, risk.Score, now,
	)
	if err != nil {
		return dto.ApplicationResponse{}, fmt.Errorf("create application: %w", err)
	}

	// 4. Register the customer with the partner.
	customerRef, err := uc.gateway.RegisterCustomer(ctx, req.ApplicantID, gstin, req.CompanyName)
	if err != nil {
		return dto.ApplicationResponse{}, fmt.Errorf("register customer: %w", err)
	}

	// 5. Submit to the partner. Persistence is skipped on failure so no
	// pending application exists without a partner-side record.
	partnerRef, err := uc.gateway.SubmitApplication(ctx, app, customerRef)
	if err != nil {
		return dto.ApplicationResponse{}, fmt.Errorf("submit to partner: %w", err)
	}
	app = app.WithPartnerRef(partnerRef)

	// 6. Persist as PENDING.
	if err := uc.appRepo.Save(ctx, app); err != nil {
		return dto.ApplicationResponse{}, fmt.Errorf("save application: %w", err)
	}

	// 7. Publish domain events. Publishing is best-effort after commit.
	if err := uc.publisher.Publish(ctx, app.DomainEvents()...); err != nil {
		uc.logger.Error("publish application events", "application_id", app.ID(), "error", err)
	}

	uc.logger.Info("application submitted",
		"application_id", app.ID(),
		"applicant_id", app.ApplicantID(),
		"risk_score", risk.Score,
		"risk_degraded", risk.Degraded,
	)

	return toApplicationResponse(app), nil
}

func toApplicationResponse(app model.LoanApplication) dto.ApplicationResponse {
	return dto.ApplicationResponse{
		ID:                app.ID(),
		ApplicantID:       app.ApplicantID(),
		GSTIN:             app.GSTIN().String(),
		CompanyName:       app.CompanyName(),
		Principal:         app.Principal(),
		Purpose:           app.Purpose(),
		TenureMonths:      app.TenureMonths(),
		AnnualTurnover:    app.AnnualTurnover(),
		MonthlyRevenue:    app.MonthlyRevenue(),
		ComplianceScore:   app.ComplianceScore(),
		BusinessAgeMonths: app.BusinessAgeMonths(),
		RiskScore:         app.RiskScore(),
		Status:            app.Status().String(),
		DecisionReason:    app.DecisionReason(),
		CreatedAt:         app.CreatedAt(),
		UpdatedAt:         app.UpdatedAt(),
	}
}

// GetApplicationUseCase retrieves one application.
type GetApplicationUseCase struct {
	appRepo port.ApplicationRepository
}

// NewGetApplicationUseCase wires dependencies.
func NewGetApplicationUseCase(appRepo port.ApplicationRepository) *GetApplicationUseCase {
	return &GetApplicationUseCase{appRepo: appRepo}
}

// Execute loads an application by ID.
func (uc *GetApplicationUseCase) Execute(
	ctx context.Context,
	req dto.GetApplicationRequest,
) (dto.ApplicationResponse, error) {
	if req.ApplicationID == "" {
		return dto.ApplicationResponse{}, errs.NewValidation("application_id", "application ID is required")
	}
	app, err := uc.appRepo.FindByID(ctx, req.ApplicationID)
	if err != nil {
		return dto.ApplicationResponse{}, fmt.Errorf("find application: %w", err)
	}
	return toApplicationResponse(app), nil
}
