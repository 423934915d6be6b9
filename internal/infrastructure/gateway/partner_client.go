package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// Compile-time interface check.
var _ port.LendingGateway = (*PartnerClient)(nil)

var (
	partnerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_partner_requests_total",
		Help: "Outbound lending partner API calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	partnerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lending_partner_request_seconds",
		Help:    "Outbound lending partner API call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// PartnerClient implements port.LendingGateway against the partner's REST API.
// Every failure surfaces as *errs.GatewayError and is never retried here; the
// caller decides whether the operation is safe to replay.
type PartnerClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *tokenBucket
}

// Config holds the client's connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64
	BurstSize  int
}

// NewPartnerClient creates a new partner API client.
func NewPartnerClient(cfg Config) *PartnerClient {
	return &PartnerClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newTokenBucket(cfg.RatePerSec, cfg.BurstSize),
	}
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type registerCustomerRequest struct {
	ApplicantID string `json:"applicant_id"`
	GSTIN       string `json:"gstin"`
	CompanyName string `json:"company_name"`
}

type registerCustomerResponse struct {
	CustomerRef string `json:"customer_ref"`
}

type submitApplicationRequest struct {
	CustomerRef    string          `json:"customer_ref"`
	Principal      decimal.Decimal `json:"principal"`
	TenureMonths   int             `json:"tenure_months"`
	Purpose        string          `json:"purpose"`
	AnnualTurnover decimal.Decimal `json:"annual_turnover"`
	RiskScore      float64         `json:"risk_score"`
}

type submitApplicationResponse struct {
	PartnerRef string `json:"partner_ref"`
}

type offerPayload struct {
	OfferID       string          `json:"offer_id"`
	Lender        string          `json:"lender"`
	Amount        decimal.Decimal `json:"amount"`
	AnnualRatePct decimal.Decimal `json:"annual_rate_pct"`
	TenureMonths  int             `json:"tenure_months"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

type fetchOffersResponse struct {
	Offers []offerPayload `json:"offers"`
}

type acceptOfferResponse struct {
	AgreementRef string    `json:"agreement_ref"`
	DisbursalETA time.Time `json:"disbursal_eta"`
}

// ---------------------------------------------------------------------------
// port.LendingGateway
// ---------------------------------------------------------------------------

// RegisterCustomer creates or looks up the borrower on the partner side.
func (c *PartnerClient) RegisterCustomer(ctx context.Context, applicantID string, gstin valueobject.GSTIN, companyName string) (string, error) {
	const op = "register_customer"
	var out registerCustomerResponse
	err := c.do(ctx, op, http.MethodPost, "/v1/customers", registerCustomerRequest{
		ApplicantID: applicantID,
		GSTIN:       gstin.String(),
		CompanyName: companyName,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.CustomerRef == "" {
		return "", errs.NewGateway(op, errors.New("partner returned empty customer_ref"))
	}
	return out.CustomerRef, nil
}

// SubmitApplication forwards the application and returns the partner's
// reference for it.
func (c *PartnerClient) SubmitApplication(ctx context.Context, app model.LoanApplication, customerRef string) (string, error) {
	const op = "submit_application"
	var out submitApplicationResponse
	err := c.do(ctx, op, http.MethodPost, "/v1/applications", submitApplicationRequest{
		CustomerRef:    customerRef,
		Principal:      app.Principal(),
		TenureMonths:   app.TenureMonths(),
		Purpose:        app.Purpose(),
		AnnualTurnover: app.AnnualTurnover(),
		RiskScore:      app.RiskScore(),
	}, &out)
	if err != nil {
		return "", err
	}
	if out.PartnerRef == "" {
		return "", errs.NewGateway(op, errors.New("partner returned empty partner_ref"))
	}
	return out.PartnerRef, nil
}

// FetchOffers retrieves the current quote set for a submitted application.
func (c *PartnerClient) FetchOffers(ctx context.Context, partnerRef string) ([]port.GatewayOffer, error) {
	const op = "fetch_offers"
	var out fetchOffersResponse
	path := "/v1/applications/" + url.PathEscape(partnerRef) + "/offers"
	if err := c.do(ctx, op, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	offers := make([]port.GatewayOffer, 0, len(out.Offers))
	for _, o := range out.Offers {
		offers = append(offers, port.GatewayOffer{
			PartnerOfferID: o.OfferID,
			Lender:         o.Lender,
			Amount:         o.Amount,
			AnnualRatePct:  o.AnnualRatePct,
			TenureMonths:   o.TenureMonths,
			ProcessingFee:  o.ProcessingFee,
			ExpiresAt:      o.ExpiresAt,
		})
	}
	return offers, nil
}

// AcceptOffer locks in an offer on the partner side.
func (c *PartnerClient) AcceptOffer(ctx context.Context, partnerRef, partnerOfferID string) (port.GatewayAcceptance, error) {
	const op = "accept_offer"
	var out acceptOfferResponse
	path := "/v1/applications/" + url.PathEscape(partnerRef) + "/offers/" + url.PathEscape(partnerOfferID) + "/accept"
	if err := c.do(ctx, op, http.MethodPost, path, struct{}{}, &out); err != nil {
		return port.GatewayAcceptance{}, err
	}
	if out.AgreementRef == "" {
		return port.GatewayAcceptance{}, errs.NewGateway(op, errors.New("partner returned empty agreement_ref"))
	}
	return port.GatewayAcceptance{
		AgreementRef: out.AgreementRef,
		DisbursalETA: out.DisbursalETA,
	}, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *PartnerClient) do(ctx context.Context, op, method, path string, in, out any) error {
	if !c.limiter.allow() {
		partnerRequests.WithLabelValues(op, "throttled").Inc()
		return errs.NewGateway(op, errors.New("outbound rate limit exceeded"))
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return errs.NewGateway(op, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errs.NewGateway(op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	partnerLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		partnerRequests.WithLabelValues(op, "error").Inc()
		return errs.NewGateway(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		partnerRequests.WithLabelValues(op, "error").Inc()
		return errs.NewGateway(op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		partnerRequests.WithLabelValues(op, "error").Inc()
		return errs.NewGateway(op, fmt.Errorf("partner returned status %d: %s", resp.StatusCode, truncate(raw, 512)))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			partnerRequests.WithLabelValues(op, "error").Inc()
			return errs.NewGateway(op, fmt.Errorf("parse response: %w", err))
		}
	}
	partnerRequests.WithLabelValues(op, "ok").Inc()
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
