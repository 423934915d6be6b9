package model

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
)

// GenerateEmiSchedule computes a fixed-payment amortization schedule.
//
// Parameters:
//   - principal:     the disbursed loan amount
//   - annualRatePct: annual interest rate as a percentage (e.g. 12.5 = 12.5%)
//   - tenureMonths:  number of monthly instalments
//   - start:         disbursal date; the first instalment falls due 30 days later
//
// The calculation uses:
//
//	monthlyRate = annualRatePct / 12 / 100
//	emi         = P * r * (1+r)^n / ((1+r)^n - 1)
//
// Due dates run on a fixed 30-day cadence from the start date. Each entry
// carries its principal and interest split and the balance after payment; the
// final instalment absorbs the rounding residue so the balance lands on
// exactly zero and the principal components sum to the principal.
func GenerateEmiSchedule(
	principal, annualRatePct decimal.Decimal,
	tenureMonths int,
	start time.Time,
) ([]EmiScheduleEntry, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, errs.NewComputation("amortization", errors.New("principal must be positive"))
	}
	if annualRatePct.IsNegative() {
		return nil, errs.NewComputation("amortization", errors.New("annual rate must not be negative"))
	}
	if tenureMonths <= 0 {
		return nil, errs.NewComputation("amortization", errors.New("tenure months must be positive"))
	}

	// The power term needs float64; everything monetary stays decimal.
	monthlyRate := annualRatePct.InexactFloat64() / 12.0 / 100.0

	var emi decimal.Decimal
	if monthlyRate == 0 {
		// Zero-interest: even split.
		emi = principal.Div(decimal.NewFromInt(int64(tenureMonths))).Round(2)
	} else {
		factor := math.Pow(1+monthlyRate, float64(tenureMonths))
		if math.IsInf(factor, 0) || math.IsNaN(factor) {
			return nil, errs.NewComputation("amortization", errors.New("payment factor overflow"))
		}
		emiFloat := principal.InexactFloat64() * monthlyRate * factor / (factor - 1)
		emi = decimal.NewFromFloat(emiFloat).Round(2)
	}

	schedule := make([]EmiScheduleEntry, 0, tenureMonths)
	remaining := principal
	monthlyRateDec := decimal.NewFromFloat(monthlyRate)

	for number := 1; number <= tenureMonths; number++ {
		dueDate := start.AddDate(0, 0, 30*number)

		interest := remaining.Mul(monthlyRateDec).Round(2)
		principalPart := emi.Sub(interest)
		total := emi

		// Last instalment: clear the remaining balance exactly.
		if number == tenureMonths {
			principalPart = remaining
			total = principalPart.Add(interest)
		}

		remaining = remaining.Sub(principalPart)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		schedule = append(schedule, EmiScheduleEntry{
			Number:             number,
			DueDate:            dueDate,
			EmiAmount:          total,
			PrincipalComponent: principalPart,
			InterestComponent:  interest,
			BalanceAfter:       remaining,
			Status:             initialEmiStatus(),
		})
	}

	return schedule, nil
}
