package service_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udyamcap/lending-engine/internal/domain/service"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
	"github.com/udyamcap/lending-engine/pkg/testutil"
)

type mockComplianceProvider struct {
	filingRegularityFunc func(ctx context.Context, gstin valueobject.GSTIN) (float64, error)
}

func (m *mockComplianceProvider) FilingRegularity(ctx context.Context, gstin valueobject.GSTIN) (float64, error) {
	return m.filingRegularityFunc(ctx, gstin)
}

func riskInput() service.RiskInput {
	return service.RiskInput{
		GSTIN:             testutil.TestGSTIN,
		Principal:         decimal.NewFromInt(500_000),
		AnnualTurnover:    decimal.NewFromInt(2_400_000),
		ComplianceScore:   82.5,
		BusinessAgeMonths: 36,
	}
}

func newRiskEngine(filing float64, filingErr error) *service.RiskEngine {
	compliance := &mockComplianceProvider{
		filingRegularityFunc: func(context.Context, valueobject.GSTIN) (float64, error) {
			return filing, filingErr
		},
	}
	return service.NewRiskEngine(compliance, decimal.NewFromInt(5_000_000), slog.Default())
}

func TestRiskEngineScore(t *testing.T) {
	t.Run("computes the weighted factor sum", func(t *testing.T) {
		engine := newRiskEngine(0.9, nil)

		result := engine.Score(context.Background(), riskInput())
		require.False(t, result.Degraded)
		require.Len(t, result.Factors, 5)

		// compliance: (100-82.5)/100 * .30        = 0.0525
		// vintage: 36 months >= 24 ideal, clamped = 0
		// turnover: (1 - 2.4M/5M) * .25           = 0.13
		// leverage: (500K/2.4M)/0.5 * .15         = 0.0625
		// filing: (1 - 0.9) * .10                 = 0.01
		assert.InDelta(t, 25.5, result.Score, 0.01)
	})

	t.Run("score stays within bounds for extreme input", func(t *testing.T) {
		engine := newRiskEngine(0, nil)
		in := service.RiskInput{
			GSTIN:             testutil.TestGSTIN,
			Principal:         decimal.NewFromInt(5_000_000),
			AnnualTurnover:    decimal.NewFromInt(1),
			ComplianceScore:   0,
			BusinessAgeMonths: 0,
		}
		result := engine.Score(context.Background(), in)
		require.False(t, result.Degraded)
		assert.InDelta(t, 100.0, result.Score, 0.001)
	})

	t.Run("perfect applicant scores near zero", func(t *testing.T) {
		engine := newRiskEngine(1.0, nil)
		in := service.RiskInput{
			GSTIN:             testutil.TestGSTIN,
			Principal:         decimal.NewFromInt(100_000),
			AnnualTurnover:    decimal.NewFromInt(10_000_000),
			ComplianceScore:   100,
			BusinessAgeMonths: 60,
		}
		result := engine.Score(context.Background(), in)
		require.False(t, result.Degraded)
		// Only the leverage factor contributes: (100K/10M)/0.5 * .15 * 100.
		assert.InDelta(t, 0.3, result.Score, 0.01)
	})

	t.Run("lower compliance means higher risk", func(t *testing.T) {
		engine := newRiskEngine(0.9, nil)

		strong := riskInput()
		weak := riskInput()
		weak.ComplianceScore = 61

		strongScore := engine.Score(context.Background(), strong).Score
		weakScore := engine.Score(context.Background(), weak).Score
		assert.Greater(t, weakScore, strongScore)
	})

	t.Run("falls back to conservative default on provider failure", func(t *testing.T) {
		engine := newRiskEngine(0, errors.New("compliance registry timeout"))

		result := engine.Score(context.Background(), riskInput())
		assert.True(t, result.Degraded)
		assert.Equal(t, 75.0, result.Score)
		assert.Empty(t, result.Factors)
	})

	t.Run("zero turnover maxes the leverage factor without panicking", func(t *testing.T) {
		engine := newRiskEngine(0.9, nil)
		in := riskInput()
		in.AnnualTurnover = decimal.Zero

		result := engine.Score(context.Background(), in)
		require.False(t, result.Degraded)
		assert.LessOrEqual(t, result.Score, 100.0)
		assert.GreaterOrEqual(t, result.Score, 0.0)
	})
}
