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
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// AcceptOfferUseCase accepts exactly one offer for an approved application
// and activates the loan with its full repayment schedule in one transaction.
type AcceptOfferUseCase struct {
	appRepo   port.ApplicationRepository
	offerRepo port.OfferRepository
	loanRepo  port.LoanRepository
	gateway   port.LendingGateway
	cache     port.OfferCache
	publisher port.EventPublisher
	logger    *slog.Logger
}

// NewAcceptOfferUseCase wires dependencies.
func NewAcceptOfferUseCase(
	appRepo port.ApplicationRepository,
	offerRepo port.OfferRepository,
	loanRepo port.LoanRepository,
	gateway port.LendingGateway,
	cache port.OfferCache,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *AcceptOfferUseCase {
	return &AcceptOfferUseCase{
		appRepo:   appRepo,
		offerRepo: offerRepo,
		loanRepo:  loanRepo,
		gateway:   gateway,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute accepts the offer and activates the loan. The offer flip, loan row,
// and every schedule entry commit together; a losing concurrent acceptance
// surfaces as a conflict, never a silent overwrite.
func (uc *AcceptOfferUseCase) Execute(
	ctx context.Context,
	req dto.AcceptOfferRequest,
) (dto.AcceptOfferResponse, error) {
	if req.OfferID == "" || req.ApplicationID == "" {
		return dto.AcceptOfferResponse{}, errs.NewValidation("offer_id", "offer ID and application ID are required")
	}
	now := time.Now().UTC()

	// 1. The application must be approved.
	app, err := uc.appRepo.FindByID(ctx, req.ApplicationID)
	if err != nil {
		return dto.AcceptOfferResponse{}, fmt.Errorf("find application: %w", err)
	}
	if !app.Status().Equal(valueobject.ApplicationStatusApproved) {
		return dto.AcceptOfferResponse{}, errs.NewConflict(
			"application %s is %s, not APPROVED", app.ID(), app.Status())
	}

	// 2. The offer must belong to the application and still be acceptable.
	offer, err := uc.offerRepo.FindByID(ctx, req.OfferID)
	if err != nil {
		return dto.AcceptOfferResponse{}, fmt.Errorf("find offer: %w", err)
	}
	if offer.ApplicationID != req.ApplicationID {
		return dto.AcceptOfferResponse{}, errs.NewConflict(
			"offer %s does not belong to application %s", req.OfferID, req.ApplicationID)
	}
	accepted, err := offer.Accept(now)
	if err != nil {
		return dto.AcceptOfferResponse{}, err
	}

	// 3. Tell the partner. The partner call is idempotent on its side; a
	// local CAS loss after this point leaves a retryable acceptance.
	ack, err := uc.gateway.AcceptOffer(ctx, app.PartnerRef(), offer.PartnerOfferID)
	if err != nil {
		return dto.AcceptOfferResponse{}, fmt.Errorf("accept offer with partner: %w", err)
	}

	// 4. Generate the full schedule. A computation failure aborts activation.
	schedule, err := model.GenerateEmiSchedule(offer.Amount, offer.AnnualRatePct, offer.TenureMonths, now)
	if err != nil {
		return dto.AcceptOfferResponse{}, fmt.Errorf("generate schedule: %w", err)
	}

	loan, err := model.NewLoan(
		app.ID(), offer.ID, ack.AgreementRef,
		offer.Amount, offer.AnnualRatePct, offer.TenureMonths,
		schedule, now,
	)
	if err != nil {
		return dto.AcceptOfferResponse{}, fmt.Errorf("create loan: %w", err)
	}
	for i := range schedule {
		schedule[i].LoanID = loan.ID()
	}

	// 5. Atomic: offer CAS + loan + schedule, or nothing.
	if err := uc.loanRepo.CreateWithSchedule(ctx, loan, accepted, schedule); err != nil {
		return dto.AcceptOfferResponse{}, fmt.Errorf("activate loan: %w", err)
	}

	uc.cache.Invalidate(ctx, app.ID())

	if err := uc.publisher.Publish(ctx, loan.DomainEvents()...); err != nil {
		uc.logger.Error("publish loan events", "loan_id", loan.ID(), "error", err)
	}

	uc.logger.Info("offer accepted, loan activated",
		"application_id", app.ID(),
		"offer_id", offer.ID,
		"loan_id", loan.ID(),
		"agreement_ref", ack.AgreementRef,
	)

	return dto.AcceptOfferResponse{
		LoanID:       loan.ID(),
		AgreementRef: ack.AgreementRef,
		FirstEmi:     toEmiEntryResponse(schedule[0]),
	}, nil
}

func toEmiEntryResponse(e model.EmiScheduleEntry) dto.EmiEntryResponse {
	return dto.EmiEntryResponse{
		Number:             e.Number,
		DueDate:            e.DueDate,
		EmiAmount:          e.EmiAmount,
		PrincipalComponent: e.PrincipalComponent,
		InterestComponent:  e.InterestComponent,
		BalanceAfter:       e.BalanceAfter,
		PaidAmount:         e.PaidAmount,
		PaidAt:             e.PaidAt,
		LateFee:            e.LateFee,
		Status:             e.Status.String(),
	}
}
