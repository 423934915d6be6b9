package usecase_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udyamcap/lending-engine/internal/application/dto"
	"github.com/udyamcap/lending-engine/internal/application/usecase"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
	"github.com/udyamcap/lending-engine/pkg/testutil"
)

func storedApplication(t *testing.T, status valueobject.ApplicationStatus) model.LoanApplication {
	t.Helper()
	gstin, err := valueobject.NewGSTIN(testutil.TestGSTIN)
	require.NoError(t, err)
	now := time.Now().UTC()
	return model.ReconstructLoanApplication(
		testutil.TestApplicationID, testutil.TestApplicantID, gstin, "Udyam Fabrics Pvt Ltd",
		decimal.NewFromInt(500_000), decimal.NewFromInt(2_400_000), decimal.NewFromInt(200_000),
		"working capital", 24, 82.5, 36, 31.25,
		status, "", "PRT-001", 2, now, now,
	)
}

func partnerQuotes() []port.GatewayOffer {
	expiry := time.Now().UTC().Add(72 * time.Hour)
	return []port.GatewayOffer{
		{
			PartnerOfferID: "PO-2", Lender: "Bajaj NBFC",
			Amount: decimal.NewFromInt(500_000), AnnualRatePct: decimal.NewFromFloat(14.0),
			TenureMonths: 24, ProcessingFee: decimal.NewFromInt(5_000), ExpiresAt: expiry,
		},
		{
			PartnerOfferID: "PO-1", Lender: "Kotak NBFC",
			Amount: decimal.NewFromInt(500_000), AnnualRatePct: decimal.NewFromFloat(12.5),
			TenureMonths: 24, ProcessingFee: decimal.NewFromInt(7_500), ExpiresAt: expiry,
		},
	}
}

func TestListOffersUseCase_Execute(t *testing.T) {
	t.Run("approves the application when offers arrive", func(t *testing.T) {
		app := storedApplication(t, valueobject.ApplicationStatusPending)

		var savedApp model.LoanApplication
		appRepo := &mockApplicationRepository{
			findByIDFunc: func(context.Context, string) (model.LoanApplication, error) { return app, nil },
			saveFunc: func(_ context.Context, a model.LoanApplication) error {
				savedApp = a
				return nil
			},
		}
		var savedOffers []model.Offer
		offerRepo := &mockOfferRepository{
			saveAllFunc: func(_ context.Context, offers []model.Offer) error {
				savedOffers = offers
				return nil
			},
		}
		gateway := &mockGateway{
			fetchOffersFunc: func(_ context.Context, partnerRef string) ([]port.GatewayOffer, error) {
				assert.Equal(t, "PRT-001", partnerRef)
				return partnerQuotes(), nil
			},
		}

		uc := usecase.NewListOffersUseCase(appRepo, offerRepo, gateway, &noopCache{}, &mockEventPublisher{}, slog.Default())
		resp, err := uc.Execute(context.Background(), dto.ListOffersRequest{ApplicationID: testutil.TestApplicationID})
		require.NoError(t, err)

		require.Len(t, resp, 2)
		// Ordered cheapest rate first.
		assert.Equal(t, "Kotak NBFC", resp[0].Lender)
		assert.True(t, resp[0].EmiAmount.IsPositive())

		assert.True(t, savedApp.Status().Equal(valueobject.ApplicationStatusApproved))
		require.Len(t, savedOffers, 2)
		assert.NotEmpty(t, savedOffers[0].ID)
	})

	t.Run("empty partner response leaves the application under review", func(t *testing.T) {
		app := storedApplication(t, valueobject.ApplicationStatusPending)
		var savedApp model.LoanApplication
		appRepo := &mockApplicationRepository{
			findByIDFunc: func(context.Context, string) (model.LoanApplication, error) { return app, nil },
			saveFunc: func(_ context.Context, a model.LoanApplication) error {
				savedApp = a
				return nil
			},
		}
		gateway := &mockGateway{
			fetchOffersFunc: func(context.Context, string) ([]port.GatewayOffer, error) { return nil, nil },
		}

		uc := usecase.NewListOffersUseCase(appRepo, &mockOfferRepository{}, gateway, &noopCache{}, &mockEventPublisher{}, slog.Default())
		resp, err := uc.Execute(context.Background(), dto.ListOffersRequest{ApplicationID: testutil.TestApplicationID})
		require.NoError(t, err)
		assert.Empty(t, resp)
		assert.True(t, savedApp.Status().Equal(valueobject.ApplicationStatusUnderReview))
	})

	t.Run("approved application serves persisted offers without the partner", func(t *testing.T) {
		app := storedApplication(t, valueobject.ApplicationStatusApproved)
		appRepo := &mockApplicationRepository{
			findByIDFunc: func(context.Context, string) (model.LoanApplication, error) { return app, nil },
		}
		offerRepo := &mockOfferRepository{
			findByApplicationIDFunc: func(context.Context, string) ([]model.Offer, error) {
				return []model.Offer{{
					ID: testutil.TestOfferID, ApplicationID: testutil.TestApplicationID,
					Lender: "Kotak NBFC", Amount: decimal.NewFromInt(500_000),
					AnnualRatePct: decimal.NewFromFloat(12.5), TenureMonths: 24,
					ExpiresAt: time.Now().UTC().Add(time.Hour), CreatedAt: time.Now().UTC(),
				}}, nil
			},
		}
		gatewayCalled := false
		gateway := &mockGateway{
			fetchOffersFunc: func(context.Context, string) ([]port.GatewayOffer, error) {
				gatewayCalled = true
				return nil, nil
			},
		}

		uc := usecase.NewListOffersUseCase(appRepo, offerRepo, gateway, &noopCache{}, &mockEventPublisher{}, slog.Default())
		resp, err := uc.Execute(context.Background(), dto.ListOffersRequest{ApplicationID: testutil.TestApplicationID})
		require.NoError(t, err)
		require.Len(t, resp, 1)
		assert.False(t, gatewayCalled)
	})

	t.Run("rejected application conflicts", func(t *testing.T) {
		app := storedApplication(t, valueobject.ApplicationStatusRejected)
		appRepo := &mockApplicationRepository{
			findByIDFunc: func(context.Context, string) (model.LoanApplication, error) { return app, nil },
		}
		uc := usecase.NewListOffersUseCase(appRepo, &mockOfferRepository{}, &mockGateway{}, &noopCache{}, &mockEventPublisher{}, slog.Default())

		_, err := uc.Execute(context.Background(), dto.ListOffersRequest{ApplicationID: testutil.TestApplicationID})
		require.Error(t, err)
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("gateway failure propagates without state change", func(t *testing.T) {
		app := storedApplication(t, valueobject.ApplicationStatusPending)
		saveCalled := false
		appRepo := &mockApplicationRepository{
			findByIDFunc: func(context.Context, string) (model.LoanApplication, error) { return app, nil },
			saveFunc: func(context.Context, model.LoanApplication) error {
				saveCalled = true
				return nil
			},
		}
		gateway := &mockGateway{
			fetchOffersFunc: func(context.Context, string) ([]port.GatewayOffer, error) {
				return nil, errs.NewGateway("list_offers", context.DeadlineExceeded)
			},
		}

		uc := usecase.NewListOffersUseCase(appRepo, &mockOfferRepository{}, gateway, &noopCache{}, &mockEventPublisher{}, slog.Default())
		_, err := uc.Execute(context.Background(), dto.ListOffersRequest{ApplicationID: testutil.TestApplicationID})
		require.Error(t, err)
		assert.True(t, errs.IsGateway(err))
		assert.False(t, saveCalled)
	})
}
