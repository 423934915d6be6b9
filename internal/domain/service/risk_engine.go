package service

import (
	"context"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// RiskEngine – weighted factor scoring
// ---------------------------------------------------------------------------

// Factor weights. They sum to 1.0 so the score stays in [0, 100].
const (
	weightComplianceShortfall = 0.30
	weightVintageShortfall    = 0.20
	weightTurnoverShortfall   = 0.25
	weightLoanToTurnover      = 0.15
	weightFilingPenalty       = 0.10
)

// fallbackScore is deliberately conservative: a scoring failure must block
// lending, never under-price risk.
const fallbackScore = 75.0

// idealVintageMonths is the business age at which the vintage factor bottoms out.
const idealVintageMonths = 24.0

// RiskFactor is one scored component, kept for explainability.
type RiskFactor struct {
	Name   string
	Weight float64
	Value  float64
}

// RiskResult is the scoring outcome. Degraded is true when the engine fell
// back to the conservative default.
type RiskResult struct {
	Score    float64
	Factors  []RiskFactor
	Degraded bool
}

// RiskEngine computes a risk score in [0, 100], lower is safer, from five
// weighted factors each clamped to [0, 1]. Filing regularity comes from the
// compliance provider; when that lookup fails the engine degrades to the
// conservative default rather than failing the submission.
type RiskEngine struct {
	compliance    port.ComplianceProvider
	idealTurnover decimal.Decimal
	logger        *slog.Logger
}

// NewRiskEngine creates a RiskEngine. idealTurnover is the annual turnover at
// which the turnover factor bottoms out.
func NewRiskEngine(compliance port.ComplianceProvider, idealTurnover decimal.Decimal, logger *slog.Logger) *RiskEngine {
	return &RiskEngine{
		compliance:    compliance,
		idealTurnover: idealTurnover,
		logger:        logger,
	}
}

// RiskInput carries the applicant figures the engine scores.
type RiskInput struct {
	GSTIN             string
	Principal         decimal.Decimal
	AnnualTurnover    decimal.Decimal
	ComplianceScore   float64
	BusinessAgeMonths int
}

// Score evaluates the five factors and returns the weighted result rounded to
// two decimals. It never returns an error: any internal failure yields the
// conservative default, logged as degraded.
func (e *RiskEngine) Score(ctx context.Context, in RiskInput) RiskResult {
	filing, err := e.filingRegularity(ctx, in.GSTIN)
	if err != nil {
		e.logger.Warn("risk scoring degraded, using conservative default",
			"gstin", in.GSTIN,
			"fallback_score", fallbackScore,
			"error", err,
		)
		return RiskResult{Score: fallbackScore, Degraded: true}
	}

	factors := []RiskFactor{
		{
			Name:   "compliance_shortfall",
			Weight: weightComplianceShortfall,
			Value:  clamp01((100 - in.ComplianceScore) / 100),
		},
		{
			Name:   "vintage_shortfall",
			Weight: weightVintageShortfall,
			Value:  clamp01((idealVintageMonths - float64(in.BusinessAgeMonths)) / idealVintageMonths),
		},
		{
			Name:   "turnover_shortfall",
			Weight: weightTurnoverShortfall,
			Value:  e.turnoverShortfall(in.AnnualTurnover),
		},
		{
			Name:   "loan_to_turnover",
			Weight: weightLoanToTurnover,
			Value:  loanToTurnover(in.Principal, in.AnnualTurnover),
		},
		{
			Name:   "filing_penalty",
			Weight: weightFilingPenalty,
			Value:  clamp01(1 - filing),
		},
	}

	sum := 0.0
	for _, f := range factors {
		sum += f.Weight * f.Value
	}
	score := math.Round(100*sum*100) / 100

	if math.IsNaN(score) || math.IsInf(score, 0) {
		e.logger.Warn("risk scoring degraded, using conservative default",
			"gstin", in.GSTIN,
			"fallback_score", fallbackScore,
			"error", "non-finite score",
		)
		return RiskResult{Score: fallbackScore, Degraded: true}
	}

	return RiskResult{Score: score, Factors: factors}
}

func (e *RiskEngine) filingRegularity(ctx context.Context, gstin string) (float64, error) {
	g, err := valueobject.NewGSTIN(gstin)
	if err != nil {
		return 0, err
	}
	return e.compliance.FilingRegularity(ctx, g)
}

// turnoverShortfall measures how far the declared turnover falls short of the
// configured ideal.
func (e *RiskEngine) turnoverShortfall(turnover decimal.Decimal) float64 {
	if !e.idealTurnover.IsPositive() {
		return 0
	}
	ratio := turnover.Div(e.idealTurnover).InexactFloat64()
	return clamp01(1 - ratio)
}

// loanToTurnover scales the leverage ratio against the 0.5 ceiling.
func loanToTurnover(principal, turnover decimal.Decimal) float64 {
	if !turnover.IsPositive() {
		return 1
	}
	ratio := principal.Div(turnover).InexactFloat64()
	return clamp01(ratio / 0.5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
