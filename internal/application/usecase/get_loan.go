package usecase

import (
	"context"
	"fmt"

	"github.com/udyamcap/lending-engine/internal/application/dto"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
)

// GetLoanUseCase retrieves a loan, optionally with its schedule.
type GetLoanUseCase struct {
	loanRepo port.LoanRepository
}

// NewGetLoanUseCase wires dependencies.
func NewGetLoanUseCase(loanRepo port.LoanRepository) *GetLoanUseCase {
	return &GetLoanUseCase{loanRepo: loanRepo}
}

// Execute loads a loan by ID.
func (uc *GetLoanUseCase) Execute(
	ctx context.Context,
	req dto.GetLoanRequest,
) (dto.LoanResponse, error) {
	if req.LoanID == "" {
		return dto.LoanResponse{}, errs.NewValidation("loan_id", "loan ID is required")
	}

	loan, err := uc.loanRepo.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find loan: %w", err)
	}

	resp := toLoanResponse(loan)
	if req.IncludeSchedule {
		schedule, err := uc.loanRepo.FindSchedule(ctx, loan.ID())
		if err != nil {
			return dto.LoanResponse{}, fmt.Errorf("find schedule: %w", err)
		}
		resp.Schedule = make([]dto.EmiEntryResponse, 0, len(schedule))
		for _, e := range schedule {
			resp.Schedule = append(resp.Schedule, toEmiEntryResponse(e))
		}
	}
	return resp, nil
}

func toLoanResponse(loan model.Loan) dto.LoanResponse {
	return dto.LoanResponse{
		ID:            loan.ID(),
		ApplicationID: loan.ApplicationID(),
		OfferID:       loan.OfferID(),
		AgreementRef:  loan.AgreementRef(),
		Principal:     loan.Principal(),
		Outstanding:   loan.Outstanding(),
		AnnualRatePct: loan.AnnualRatePct(),
		TenureMonths:  loan.TenureMonths(),
		EmiAmount:     loan.EmiAmount(),
		EmisPaid:      loan.EmisPaid(),
		NextEmiDue:    loan.NextEmiDue(),
		Status:        loan.Status().String(),
		DisbursedAt:   loan.DisbursedAt(),
		CreatedAt:     loan.CreatedAt(),
		UpdatedAt:     loan.UpdatedAt(),
	}
}
