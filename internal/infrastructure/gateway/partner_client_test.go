package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
	"github.com/udyamcap/lending-engine/pkg/testutil"
)

func testClient(t *testing.T, handler http.HandlerFunc) *PartnerClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPartnerClient(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		RatePerSec: 100,
		BurstSize:  100,
	})
}

func testGSTIN(t *testing.T) valueobject.GSTIN {
	t.Helper()
	g, err := valueobject.NewGSTIN(testutil.TestGSTIN)
	require.NoError(t, err)
	return g
}

func TestPartnerClient_RegisterCustomer(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/customers", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"customer_ref":"CUS-42"}`))
	})

	ref, err := client.RegisterCustomer(context.Background(), "applicant-1", testGSTIN(t), "Udyam Traders")
	require.NoError(t, err)
	assert.Equal(t, "CUS-42", ref)
}

func TestPartnerClient_RegisterCustomerEmptyRef(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.RegisterCustomer(context.Background(), "applicant-1", testGSTIN(t), "Udyam Traders")
	assert.True(t, errs.IsGateway(err))
}

func TestPartnerClient_FetchOffers(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/applications/PRT-001/offers", r.URL.Path)
		w.Write([]byte(`{"offers":[
			{"offer_id":"OFF-1","lender":"Meridian Capital","amount":"500000","annual_rate_pct":"12.5","tenure_months":24,"processing_fee":"5000","expires_at":"2026-09-01T00:00:00Z"},
			{"offer_id":"OFF-2","lender":"Svarna Finance","amount":"500000","annual_rate_pct":"14","tenure_months":36,"processing_fee":"2500","expires_at":"2026-09-01T00:00:00Z"}
		]}`))
	})

	offers, err := client.FetchOffers(context.Background(), "PRT-001")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "OFF-1", offers[0].PartnerOfferID)
	assert.Equal(t, "Meridian Capital", offers[0].Lender)
	assert.True(t, offers[0].AnnualRatePct.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 24, offers[0].TenureMonths)
}

func TestPartnerClient_AcceptOffer(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/applications/PRT-001/offers/OFF-1/accept", r.URL.Path)
		w.Write([]byte(`{"agreement_ref":"AGR-77","disbursal_eta":"2026-08-24T10:00:00Z"}`))
	})

	ack, err := client.AcceptOffer(context.Background(), "PRT-001", "OFF-1")
	require.NoError(t, err)
	assert.Equal(t, "AGR-77", ack.AgreementRef)
	assert.False(t, ack.DisbursalETA.IsZero())
}

func TestPartnerClient_NonSuccessStatusIsGatewayError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"maintenance"}`, http.StatusServiceUnavailable)
	})

	_, err := client.FetchOffers(context.Background(), "PRT-001")
	require.Error(t, err)
	assert.True(t, errs.IsGateway(err))
	assert.Contains(t, err.Error(), "503")
}

func TestPartnerClient_TimeoutIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"offers":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewPartnerClient(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Timeout:    20 * time.Millisecond,
		RatePerSec: 100,
		BurstSize:  100,
	})

	_, err := client.FetchOffers(context.Background(), "PRT-001")
	require.Error(t, err)
	assert.True(t, errs.IsGateway(err))
}

func TestPartnerClient_RateLimitExhaustion(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte(`{"offers":[]}`))
	})
	// Drain the bucket faster than it refills.
	client.limiter = newTokenBucket(0.001, 2)

	ctx := context.Background()
	_, err := client.FetchOffers(ctx, "PRT-001")
	require.NoError(t, err)
	_, err = client.FetchOffers(ctx, "PRT-001")
	require.NoError(t, err)

	_, err = client.FetchOffers(ctx, "PRT-001")
	require.Error(t, err)
	assert.True(t, errs.IsGateway(err))
	assert.Equal(t, 2, calls, "throttled call must not reach the partner")
}

func TestStubPartnerClient_Deterministic(t *testing.T) {
	stub := NewStubPartnerClient()
	ctx := context.Background()

	ref1, err := stub.RegisterCustomer(ctx, "applicant-1", testGSTIN(t), "Udyam Traders")
	require.NoError(t, err)
	ref2, err := stub.RegisterCustomer(ctx, "applicant-1", testGSTIN(t), "Udyam Traders")
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)

	offers1, err := stub.FetchOffers(ctx, "PRT-001")
	require.NoError(t, err)
	offers2, err := stub.FetchOffers(ctx, "PRT-001")
	require.NoError(t, err)
	require.Len(t, offers1, 2)
	assert.Equal(t, offers1[0].PartnerOfferID, offers2[0].PartnerOfferID)
	assert.True(t, offers1[0].AnnualRatePct.Equal(offers2[0].AnnualRatePct))
	assert.True(t, offers1[1].AnnualRatePct.GreaterThan(offers1[0].AnnualRatePct))

	ack, err := stub.AcceptOffer(ctx, "PRT-001", offers1[0].PartnerOfferID)
	require.NoError(t, err)
	assert.NotEmpty(t, ack.AgreementRef)
}
