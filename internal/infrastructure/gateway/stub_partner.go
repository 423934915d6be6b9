package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// Compile-time interface check.
var _ port.LendingGateway = (*StubPartnerClient)(nil)

// StubPartnerClient is a development/test adapter that quotes deterministic
// offers derived from the partner reference. It implements port.LendingGateway.
type StubPartnerClient struct {
	offerTTL time.Duration
	now      func() time.Time
}

// NewStubPartnerClient creates a new stub adapter.
func NewStubPartnerClient() *StubPartnerClient {
	return &StubPartnerClient{
		offerTTL: 72 * time.Hour,
		now:      time.Now,
	}
}

// RegisterCustomer derives a stable customer reference from the GSTIN, so
// re-registering the same borrower returns the same reference.
func (c *StubPartnerClient) RegisterCustomer(_ context.Context, applicantID string, gstin valueobject.GSTIN, _ string) (string, error) {
	if applicantID == "" {
		return "", fmt.Errorf("applicant ID is required")
	}
	return "CUS-" + shortHash(gstin.String()), nil
}

// SubmitApplication derives a stable partner reference from the application ID.
func (c *StubPartnerClient) SubmitApplication(_ context.Context, app model.LoanApplication, customerRef string) (string, error) {
	if customerRef == "" {
		return "", fmt.Errorf("customer reference is required")
	}
	return "PRT-" + shortHash(app.ID()), nil
}

// FetchOffers returns two deterministic quotes at the requested amount. The
// rate varies with a hash of the partner reference so different applications
// see different pricing, repeatably.
func (c *StubPartnerClient) FetchOffers(_ context.Context, partnerRef string) ([]port.GatewayOffer, error) {
	if partnerRef == "" {
		return nil, fmt.Errorf("partner reference is required")
	}

	h := sha256.Sum256([]byte(partnerRef))
	num := binary.BigEndian.Uint32(h[:4])

	// Base rate in [11.00, 16.00) stepped by 0.25.
	baseRate := decimal.NewFromInt(1100).Add(decimal.NewFromInt(int64(num % 20 * 25))).Div(decimal.NewFromInt(100))
	amount := decimal.NewFromInt(int64(200_000 + num%16*50_000))
	expires := c.now().Add(c.offerTTL)

	return []port.GatewayOffer{
		{
			PartnerOfferID: "OFF-" + shortHash(partnerRef+":a"),
			Lender:         "Meridian Capital",
			Amount:         amount,
			AnnualRatePct:  baseRate,
			TenureMonths:   24,
			ProcessingFee:  amount.Mul(decimal.NewFromFloat(0.01)).Round(2),
			ExpiresAt:      expires,
		},
		{
			PartnerOfferID: "OFF-" + shortHash(partnerRef+":b"),
			Lender:         "Svarna Finance",
			Amount:         amount,
			AnnualRatePct:  baseRate.Add(decimal.NewFromFloat(1.5)),
			TenureMonths:   36,
			ProcessingFee:  amount.Mul(decimal.NewFromFloat(0.005)).Round(2),
			ExpiresAt:      expires,
		},
	}, nil
}

// AcceptOffer acknowledges immediately with a deterministic agreement
// reference and a next-day disbursal ETA.
func (c *StubPartnerClient) AcceptOffer(_ context.Context, partnerRef, partnerOfferID string) (port.GatewayAcceptance, error) {
	if partnerRef == "" || partnerOfferID == "" {
		return port.GatewayAcceptance{}, fmt.Errorf("partner reference and offer ID are required")
	}
	return port.GatewayAcceptance{
		AgreementRef: "AGR-" + shortHash(partnerRef+":"+partnerOfferID),
		DisbursalETA: c.now().Add(24 * time.Hour),
	}, nil
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:6])
}
