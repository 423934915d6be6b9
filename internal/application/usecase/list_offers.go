package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/application/dto"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// offerCacheTTL bounds staleness of cached offer lists. Offers carry their
// own expiry, so a short TTL only saves partner round-trips.
const offerCacheTTL = 5 * time.Minute

// ListOffersUseCase fetches lender offers from the partner and drives the
// application forward: the partner's first acknowledgement moves it to
// UNDER_REVIEW and a non-empty offer list approves it.
type ListOffersUseCase struct {
	appRepo   port.ApplicationRepository
	offerRepo port.OfferRepository
	gateway   port.LendingGateway
	cache     port.OfferCache
	publisher port.EventPublisher
	logger    *slog.Logger
}

// NewListOffersUseCase wires dependencies.
func NewListOffersUseCase(
	appRepo port.ApplicationRepository,
	offerRepo port.OfferRepository,
	gateway port.LendingGateway,
	cache port.OfferCache,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *ListOffersUseCase {
	return &ListOffersUseCase{
		appRepo:   appRepo,
		offerRepo: offerRepo,
		gateway:   gateway,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute returns the application's offers ordered by rate, cheapest first.
func (uc *ListOffersUseCase) Execute(
	ctx context.Context,
	req dto.ListOffersRequest,
) ([]dto.OfferResponse, error) {
	if req.ApplicationID == "" {
		return nil, errs.NewValidation("application_id", "application ID is required")
	}

	// 1. Serve from cache when fresh.
	if cached, ok := uc.cache.Get(ctx, req.ApplicationID); ok {
		return toOfferResponses(cached), nil
	}

	// 2. Load the application.
	app, err := uc.appRepo.FindByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	if app.Status().Equal(valueobject.ApplicationStatusRejected) {
		return nil, errs.NewConflict("application %s is rejected", app.ID())
	}

	// 3. Already approved: serve the persisted offers.
	if app.Status().Equal(valueobject.ApplicationStatusApproved) {
		offers, err := uc.offerRepo.FindByApplicationID(ctx, app.ID())
		if err != nil {
			return nil, fmt.Errorf("find offers: %w", err)
		}
		uc.cache.Set(ctx, app.ID(), offers, offerCacheTTL)
		return toOfferResponses(offers), nil
	}

	// 4. Ask the partner.
	quotes, err := uc.gateway.FetchOffers(ctx, app.PartnerRef())
	if err != nil {
		return nil, fmt.Errorf("fetch offers: %w", err)
	}

	// 5. First contact after submission moves the application forward.
	now := time.Now().UTC()
	if app.Status().Equal(valueobject.ApplicationStatusPending) {
		app, err = app.MarkUnderReview(app.PartnerRef(), now)
		if err != nil {
			return nil, fmt.Errorf("mark under review: %w", err)
		}
	}

	// 6. No offers yet: persist the review state and return empty.
	if len(quotes) == 0 {
		if err := uc.appRepo.Save(ctx, app); err != nil {
			return nil, fmt.Errorf("save application: %w", err)
		}
		return []dto.OfferResponse{}, nil
	}

	// 7. Offers arrived: approve and persist everything.
	app, err = app.Approve(len(quotes), now)
	if err != nil {
		return nil, fmt.Errorf("approve application: %w", err)
	}

	offers := make([]model.Offer, 0, len(quotes))
	for _, q := range quotes {
		offers = append(offers, model.Offer{
			ID:             uuid.New().String(),
			ApplicationID:  app.ID(),
			PartnerOfferID: q.PartnerOfferID,
			Lender:         q.Lender,
			Amount:         q.Amount,
			AnnualRatePct:  q.AnnualRatePct,
			TenureMonths:   q.TenureMonths,
			ProcessingFee:  q.ProcessingFee,
			ExpiresAt:      q.ExpiresAt,
			CreatedAt:      now,
		})
	}

	if err := uc.offerRepo.SaveAll(ctx, offers); err != nil {
		return nil, fmt.Errorf("save offers: %w", err)
	}
	if err := uc.appRepo.Save(ctx, app); err != nil {
		return nil, fmt.Errorf("save application: %w", err)
	}
	if err := uc.publisher.Publish(ctx, app.DomainEvents()...); err != nil {
		uc.logger.Error("publish approval events", "application_id", app.ID(), "error", err)
	}

	uc.cache.Set(ctx, app.ID(), offers, offerCacheTTL)
	return toOfferResponses(offers), nil
}

func toOfferResponses(offers []model.Offer) []dto.OfferResponse {
	out := make([]dto.OfferResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, dto.OfferResponse{
			ID:            o.ID,
			ApplicationID: o.ApplicationID,
			Lender:        o.Lender,
			Amount:        o.Amount,
			AnnualRatePct: o.AnnualRatePct,
			TenureMonths:  o.TenureMonths,
			EmiAmount:     offerEmi(o),
			ProcessingFee: o.ProcessingFee,
			ValidUntil:    o.ExpiresAt,
			Accepted:      o.Accepted,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AnnualRatePct.LessThan(out[j].AnnualRatePct)
	})
	return out
}

// offerEmi previews the instalment a quote implies. A quote the calculator
// rejects shows a zero EMI rather than failing the listing.
func offerEmi(o model.Offer) decimal.Decimal {
	schedule, err := model.GenerateEmiSchedule(o.Amount, o.AnnualRatePct, o.TenureMonths, o.CreatedAt)
	if err != nil || len(schedule) == 0 {
		return decimal.Zero
	}
	return schedule[0].EmiAmount
}
