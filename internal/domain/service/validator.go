package service

import (
	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Validator – lending policy gate
// ---------------------------------------------------------------------------

// ValidatorPolicy carries the configured lending floors and ceilings.
type ValidatorPolicy struct {
	MinPrincipal         decimal.Decimal
	MaxPrincipal         decimal.Decimal
	MinTenureMonths      int
	MaxTenureMonths      int
	MinComplianceScore   float64
	MinBusinessAgeMonths int
	MinAnnualTurnover    decimal.Decimal
	MaxLoanTurnoverRatio decimal.Decimal
}

// DefaultValidatorPolicy returns the standard SME lending policy.
func DefaultValidatorPolicy() ValidatorPolicy {
	return ValidatorPolicy{
		MinPrincipal:         decimal.NewFromInt(50_000),
		MaxPrincipal:         decimal.NewFromInt(5_000_000),
		MinTenureMonths:      6,
		MaxTenureMonths:      60,
		MinComplianceScore:   60,
		MinBusinessAgeMonths: 12,
		MinAnnualTurnover:    decimal.NewFromInt(500_000),
		MaxLoanTurnoverRatio: decimal.NewFromFloat(0.5),
	}
}

// Validator checks an application against lending policy. Side-effect free;
// it reports only the first violated rule so client messaging stays simple.
type Validator struct {
	policy ValidatorPolicy
}

// NewValidator creates a Validator with the given policy.
func NewValidator(policy ValidatorPolicy) *Validator {
	return &Validator{policy: policy}
}

// ApplicationInput is the raw submission the validator checks before an
// aggregate is ever constructed.
type ApplicationInput struct {
	ApplicantID       string
	GSTIN             string
	CompanyName       string
	Principal         decimal.Decimal
	Purpose           string
	TenureMonths      int
	AnnualTurnover    decimal.Decimal
	MonthlyRevenue    decimal.Decimal
	ComplianceScore   float64
	BusinessAgeMonths int
}

// Validate applies policy rules in a fixed order and returns a
// *errs.ValidationError naming the first violated rule. On success it returns
// the parsed GSTIN so callers need not re-validate it.
func (v *Validator) Validate(in ApplicationInput) (valueobject.GSTIN, error) {
	if in.ApplicantID == "" {
		return valueobject.GSTIN{}, errs.NewValidation("applicant_id", "applicant ID is required")
	}
	if in.CompanyName == "" {
		return valueobject.GSTIN{}, errs.NewValidation("company_name", "company name is required")
	}
	if in.GSTIN == "" {
		return valueobject.GSTIN{}, errs.NewValidation("gstin", "GSTIN is required")
	}
	gstin, err := valueobject.NewGSTIN(in.GSTIN)
	if err != nil {
		return valueobject.GSTIN{}, errs.NewValidation("gstin", "%v", err)
	}
	if in.Principal.LessThan(v.policy.MinPrincipal) || in.Principal.GreaterThan(v.policy.MaxPrincipal) {
		return valueobject.GSTIN{}, errs.NewValidation("principal",
			"principal %s outside allowed range [%s, %s]",
			in.Principal, v.policy.MinPrincipal, v.policy.MaxPrincipal)
	}
	if in.TenureMonths < v.policy.MinTenureMonths || in.TenureMonths > v.policy.MaxTenureMonths {
		return valueobject.GSTIN{}, errs.NewValidation("tenure_months",
			"tenure %d months outside allowed range [%d, %d]",
			in.TenureMonths, v.policy.MinTenureMonths, v.policy.MaxTenureMonths)
	}
	if in.ComplianceScore < v.policy.MinComplianceScore {
		return valueobject.GSTIN{}, errs.NewValidation("compliance_score",
			"compliance score %.1f below minimum %.1f",
			in.ComplianceScore, v.policy.MinComplianceScore)
	}
	if in.BusinessAgeMonths < v.policy.MinBusinessAgeMonths {
		return valueobject.GSTIN{}, errs.NewValidation("business_age_months",
			"business age %d months below minimum %d",
			in.BusinessAgeMonths, v.policy.MinBusinessAgeMonths)
	}
	if in.AnnualTurnover.LessThan(v.policy.MinAnnualTurnover) {
		return valueobject.GSTIN{}, errs.NewValidation("annual_turnover",
			"annual turnover %s below minimum %s",
			in.AnnualTurnover, v.policy.MinAnnualTurnover)
	}
	if in.AnnualTurnover.IsPositive() {
		ratio := in.Principal.Div(in.AnnualTurnover)
		if ratio.GreaterThan(v.policy.MaxLoanTurnoverRatio) {
			return valueobject.GSTIN{}, errs.NewValidation("loan_turnover_ratio",
				"loan-to-turnover ratio %s exceeds maximum %s",
				ratio.Round(4), v.policy.MaxLoanTurnoverRatio)
		}
	}
	return gstin, nil
}
