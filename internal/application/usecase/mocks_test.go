package usecase_test

import (
	"context"
	"time"

	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/event"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Function-field mocks
// ---------------------------------------------------------------------------

type mockApplicationRepository struct {
	saveFunc              func(ctx context.Context, app model.LoanApplication) error
	findByIDFunc          func(ctx context.Context, id string) (model.LoanApplication, error)
	findByApplicantIDFunc func(ctx context.Context, applicantID string) ([]model.LoanApplication, error)
}

func (m *mockApplicationRepository) Save(ctx context.Context, app model.LoanApplication) error {
	if m.saveFunc == nil {
		return nil
	}
	return m.saveFunc(ctx, app)
}

func (m *mockApplicationRepository) FindByID(ctx context.Context, id string) (model.LoanApplication, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockApplicationRepository) FindByApplicantID(ctx context.Context, applicantID string) ([]model.LoanApplication, error) {
	return m.findByApplicantIDFunc(ctx, applicantID)
}

type mockOfferRepository struct {
	saveAllFunc             func(ctx context.Context, offers []model.Offer) error
	findByIDFunc            func(ctx context.Context, id string) (model.Offer, error)
	findByApplicationIDFunc func(ctx context.Context, applicationID string) ([]model.Offer, error)
	markAcceptedFunc        func(ctx context.Context, offer model.Offer) error
}

func (m *mockOfferRepository) SaveAll(ctx context.Context, offers []model.Offer) error {
	if m.saveAllFunc == nil {
		return nil
	}
	return m.saveAllFunc(ctx, offers)
}

func (m *mockOfferRepository) FindByID(ctx context.Context, id string) (model.Offer, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockOfferRepository) FindByApplicationID(ctx context.Context, applicationID string) ([]model.Offer, error) {
	return m.findByApplicationIDFunc(ctx, applicationID)
}

func (m *mockOfferRepository) MarkAccepted(ctx context.Context, offer model.Offer) error {
	if m.markAcceptedFunc == nil {
		return nil
	}
	return m.markAcceptedFunc(ctx, offer)
}

type mockLoanRepository struct {
	createWithScheduleFunc  func(ctx context.Context, loan model.Loan, offer model.Offer, schedule []model.EmiScheduleEntry) error
	saveFunc                func(ctx context.Context, loan model.Loan) error
	findByIDFunc            func(ctx context.Context, id string) (model.Loan, error)
	findByApplicationIDFunc func(ctx context.Context, applicationID string) (model.Loan, error)
	findScheduleFunc        func(ctx context.Context, loanID string) ([]model.EmiScheduleEntry, error)
}

func (m *mockLoanRepository) CreateWithSchedule(ctx context.Context, loan model.Loan, offer model.Offer, schedule []model.EmiScheduleEntry) error {
	if m.createWithScheduleFunc == nil {
		return nil
	}
	return m.createWithScheduleFunc(ctx, loan, offer, schedule)
}

func (m *mockLoanRepository) Save(ctx context.Context, loan model.Loan) error {
	if m.saveFunc == nil {
		return nil
	}
	return m.saveFunc(ctx, loan)
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id string) (model.Loan, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockLoanRepository) FindByApplicationID(ctx context.Context, applicationID string) (model.Loan, error) {
	return m.findByApplicationIDFunc(ctx, applicationID)
}

func (m *mockLoanRepository) FindSchedule(ctx context.Context, loanID string) ([]model.EmiScheduleEntry, error) {
	return m.findScheduleFunc(ctx, loanID)
}

type mockCollectionCaseRepository struct {
	saveFunc                 func(ctx context.Context, c model.CollectionCase) error
	findByIDFunc             func(ctx context.Context, id string) (model.CollectionCase, error)
	findOpenByLoanAndEmiFunc func(ctx context.Context, loanID string, emiNumber int) (model.CollectionCase, error)
	findByLoanIDFunc         func(ctx context.Context, loanID string) ([]model.CollectionCase, error)
}

func (m *mockCollectionCaseRepository) Save(ctx context.Context, c model.CollectionCase) error {
	if m.saveFunc == nil {
		return nil
	}
	return m.saveFunc(ctx, c)
}

func (m *mockCollectionCaseRepository) FindByID(ctx context.Context, id string) (model.CollectionCase, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockCollectionCaseRepository) FindOpenByLoanAndEmi(ctx context.Context, loanID string, emiNumber int) (model.CollectionCase, error) {
	if m.findOpenByLoanAndEmiFunc == nil {
		return model.CollectionCase{}, errs.ErrNotFound
	}
	return m.findOpenByLoanAndEmiFunc(ctx, loanID, emiNumber)
}

func (m *mockCollectionCaseRepository) FindByLoanID(ctx context.Context, loanID string) ([]model.CollectionCase, error) {
	return m.findByLoanIDFunc(ctx, loanID)
}

type mockSettlementStore struct {
	applyFunc     func(ctx context.Context, s port.Settlement) error
	findEntryFunc func(ctx context.Context, loanID string, emiNumber int) (model.EmiScheduleEntry, error)
}

func (m *mockSettlementStore) Apply(ctx context.Context, s port.Settlement) error {
	if m.applyFunc == nil {
		return nil
	}
	return m.applyFunc(ctx, s)
}

func (m *mockSettlementStore) FindEntry(ctx context.Context, loanID string, emiNumber int) (model.EmiScheduleEntry, error) {
	return m.findEntryFunc(ctx, loanID, emiNumber)
}

type mockEventPublisher struct {
	published []event.DomainEvent
	err       error
}

func (m *mockEventPublisher) Publish(_ context.Context, events ...event.DomainEvent) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, events...)
	return nil
}

type mockGateway struct {
	registerCustomerFunc  func(ctx context.Context, applicantID string, gstin valueobject.GSTIN, companyName string) (string, error)
	submitApplicationFunc func(ctx context.Context, app model.LoanApplication, customerRef string) (string, error)
	fetchOffersFunc       func(ctx context.Context, partnerRef string) ([]port.GatewayOffer, error)
	acceptOfferFunc       func(ctx context.Context, partnerRef, partnerOfferID string) (port.GatewayAcceptance, error)
}

func (m *mockGateway) RegisterCustomer(ctx context.Context, applicantID string, gstin valueobject.GSTIN, companyName string) (string, error) {
	return m.registerCustomerFunc(ctx, applicantID, gstin, companyName)
}

func (m *mockGateway) SubmitApplication(ctx context.Context, app model.LoanApplication, customerRef string) (string, error) {
	return m.submitApplicationFunc(ctx, app, customerRef)
}

func (m *mockGateway) FetchOffers(ctx context.Context, partnerRef string) ([]port.GatewayOffer, error) {
	return m.fetchOffersFunc(ctx, partnerRef)
}

func (m *mockGateway) AcceptOffer(ctx context.Context, partnerRef, partnerOfferID string) (port.GatewayAcceptance, error) {
	return m.acceptOfferFunc(ctx, partnerRef, partnerOfferID)
}

// noopCache never hits and remembers nothing.
type noopCache struct {
	invalidated []string
}

func (c *noopCache) Get(context.Context, string) ([]model.Offer, bool) { return nil, false }

func (c *noopCache) Set(context.Context, string, []model.Offer, time.Duration) {}

func (c *noopCache) Invalidate(_ context.Context, applicationID string) {
	c.invalidated = append(c.invalidated, applicationID)
}
