package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/udyamcap/lending-engine/internal/application/usecase"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
)

// Compile-time interface check.
var _ LendingServiceServer = (*LendingHandler)(nil)

// LendingHandler exposes the lending operations over gRPC.
type LendingHandler struct {
	UnimplementedLendingServiceServer

	submitApp  *usecase.SubmitApplicationUseCase
	getApp     *usecase.GetApplicationUseCase
	listOffers *usecase.ListOffersUseCase
	accept     *usecase.AcceptOfferUseCase
	getLoan    *usecase.GetLoanUseCase
	logger     *slog.Logger
}

// NewLendingHandler creates a new handler with all use-case dependencies.
func NewLendingHandler(
	submitApp *usecase.SubmitApplicationUseCase,
	getApp *usecase.GetApplicationUseCase,
	listOffers *usecase.ListOffersUseCase,
	accept *usecase.AcceptOfferUseCase,
	getLoan *usecase.GetLoanUseCase,
	logger *slog.Logger,
) *LendingHandler {
	return &LendingHandler{
		submitApp:  submitApp,
		getApp:     getApp,
		listOffers: listOffers,
		accept:     accept,
		getLoan:    getLoan,
		logger:     logger,
	}
}

// SubmitApplication handles a new loan application submission.
func (h *LendingHandler) SubmitApplication(ctx context.Context, req *SubmitApplicationRequest) (*SubmitApplicationResponse, error) {
	resp, err := h.submitApp.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatusError(err)
	}
	return &resp, nil
}

// GetApplication retrieves an application by ID.
func (h *LendingHandler) GetApplication(ctx context.Context, req *GetApplicationRequest) (*GetApplicationResponse, error) {
	resp, err := h.getApp.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatusError(err)
	}
	return &resp, nil
}

// ListOffers retrieves or fetches the current offer set for an application.
func (h *LendingHandler) ListOffers(ctx context.Context, req *ListOffersRequest) (*ListOffersResponse, error) {
	offers, err := h.listOffers.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatusError(err)
	}
	return &ListOffersResponse{Offers: offers}, nil
}

// AcceptOffer accepts an offer and activates the loan.
func (h *LendingHandler) AcceptOffer(ctx context.Context, req *AcceptOfferRequest) (*AcceptOfferResponse, error) {
	resp, err := h.accept.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatusError(err)
	}
	return &resp, nil
}

// GetLoan retrieves a loan by ID, optionally with its schedule.
func (h *LendingHandler) GetLoan(ctx context.Context, req *GetLoanRequest) (*GetLoanResponse, error) {
	resp, err := h.getLoan.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatusError(err)
	}
	return &resp, nil
}

// partnerUnavailableMsg is the only text a client sees on a partner failure.
// The underlying transport detail (HTTP status, response body) stays in the
// server log.
const partnerUnavailableMsg = "lending partner temporarily unavailable, retry later"

// toStatusError maps the domain error taxonomy onto gRPC status codes.
func (h *LendingHandler) toStatusError(err error) error {
	switch {
	case errs.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errs.IsConflict(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errs.IsGateway(err):
		h.logger.Error("lending partner call failed", "error", err)
		return status.Error(codes.Unavailable, partnerUnavailableMsg)
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
