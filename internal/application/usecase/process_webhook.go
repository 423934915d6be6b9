package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/udyamcap/lending-engine/internal/application/dto"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
	"github.com/udyamcap/lending-engine/pkg/signature"
)

// partnerEventEnvelope is the partner's wire format: a partner-assigned event
// ID, the event type string, and a type-specific payload.
type partnerEventEnvelope struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type paymentCapturedPayload struct {
	LoanID    string          `json:"loan_id"`
	EmiNumber int             `json:"emi_number"`
	Amount    decimal.Decimal `json:"amount"`
}

type paymentFailedPayload struct {
	LoanID    string `json:"loan_id"`
	EmiNumber int    `json:"emi_number"`
	Reason    string `json:"reason"`
}

type loanDisbursedPayload struct {
	LoanID    string `json:"loan_id"`
	Reference string `json:"reference"`
}

type emiDuePayload struct {
	LoanID    string `json:"loan_id"`
	EmiNumber int    `json:"emi_number"`
}

// ProcessWebhookUseCase verifies, dispatches, and applies partner settlement
// events. Every mutation for one event commits in a single transaction
// together with the processed-event marker, so redelivery is always a no-op.
type ProcessWebhookUseCase struct {
	secret    []byte
	store     port.SettlementStore
	loanRepo  port.LoanRepository
	caseRepo  port.CollectionCaseRepository
	publisher port.EventPublisher
	lateFee   decimal.Decimal
	logger    *slog.Logger
}

// NewProcessWebhookUseCase wires dependencies. lateFee is the flat fee
// accrued on each bounced instalment.
func NewProcessWebhookUseCase(
	secret []byte,
	store port.SettlementStore,
	loanRepo port.LoanRepository,
	caseRepo port.CollectionCaseRepository,
	publisher port.EventPublisher,
	lateFee decimal.Decimal,
	logger *slog.Logger,
) *ProcessWebhookUseCase {
	return &ProcessWebhookUseCase{
		secret:    secret,
		store:     store,
		loanRepo:  loanRepo,
		caseRepo:  caseRepo,
		publisher: publisher,
		lateFee:   lateFee,
		logger:    logger,
	}
}

// Execute handles one raw webhook delivery. The signature is verified over
// the raw body before anything is parsed; a mismatch applies no state change.
// Unknown event types are acknowledged and ignored.
func (uc *ProcessWebhookUseCase) Execute(
	ctx context.Context,
	raw []byte,
	providedSignature string,
) (dto.WebhookResult, error) {
	// 1. Constant-time signature check before touching the payload.
	if !signature.Verify(uc.secret, raw, providedSignature) {
		uc.logger.Warn("webhook signature verification failed")
		return dto.WebhookResult{}, errs.ErrBadSignature
	}

	// 2. Parse the envelope.
	var env partnerEventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return dto.WebhookResult{}, errs.NewValidation("payload", "malformed webhook body: %v", err)
	}
	if env.ID == "" || env.Event == "" {
		return dto.WebhookResult{}, errs.NewValidation("payload", "webhook body missing id or event")
	}

	// 3. Dispatch on the closed event enum.
	var err error
	switch valueobject.ParsePartnerEventType(env.Event) {
	case valueobject.PartnerEventPaymentCaptured:
		err = uc.handlePaymentCaptured(ctx, env)
	case valueobject.PartnerEventPaymentFailed:
		err = uc.handlePaymentFailed(ctx, env)
	case valueobject.PartnerEventLoanDisbursed:
		err = uc.handleLoanDisbursed(ctx, env)
	case valueobject.PartnerEventEmiDue:
		err = uc.handleEmiDue(ctx, env)
	default:
		uc.logger.Info("ignoring unknown partner event", "event", env.Event, "event_id", env.ID)
		return dto.WebhookResult{Applied: false, Event: env.Event}, nil
	}

	// 4. Redelivery of an applied event acks without reapplying.
	if errors.Is(err, errs.ErrEventAlreadyProcessed) {
		uc.logger.Info("duplicate partner event acknowledged", "event", env.Event, "event_id", env.ID)
		return dto.WebhookResult{Applied: false, Event: env.Event}, nil
	}
	if err != nil {
		return dto.WebhookResult{}, err
	}
	return dto.WebhookResult{Applied: true, Event: env.Event}, nil
}

// handlePaymentCaptured settles one schedule entry and the matching loan-level
// counters atomically.
func (uc *ProcessWebhookUseCase) handlePaymentCaptured(ctx context.Context, env partnerEventEnvelope) error {
	var p paymentCapturedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return errs.NewValidation("payload", "malformed payment.captured payload: %v", err)
	}
	now := time.Now().UTC()

	entry, err := uc.store.FindEntry(ctx, p.LoanID, p.EmiNumber)
	if err != nil {
		return fmt.Errorf("find schedule entry: %w", err)
	}
	paid, err := entry.MarkPaid(p.Amount, now)
	if err != nil {
		return errs.NewConflict("EMI %d on loan %s cannot settle from %s", p.EmiNumber, p.LoanID, entry.Status)
	}

	loan, err := uc.loanRepo.FindByID(ctx, p.LoanID)
	if err != nil {
		return fmt.Errorf("find loan: %w", err)
	}
	nextDue, err := uc.nextPendingDue(ctx, p.LoanID, p.EmiNumber)
	if err != nil {
		return err
	}
	loan, err = loan.RecordEmiPayment(entry, p.Amount, nextDue, now)
	if err != nil {
		return errs.NewConflict("loan %s cannot record payment: %v", p.LoanID, err)
	}

	settlement := port.Settlement{EventID: env.ID, Loan: &loan, Entry: &paid, EntryPriorStatus: entry.Status}

	// A payment on a bounced instalment resolves its collection case.
	if c, err := uc.caseRepo.FindOpenByLoanAndEmi(ctx, p.LoanID, p.EmiNumber); err == nil {
		resolved, rerr := c.Resolve(now)
		if rerr == nil {
			settlement.Case = &resolved
		}
	} else if !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("find collection case: %w", err)
	}

	if err := uc.store.Apply(ctx, settlement); err != nil {
		return err
	}
	uc.publishAll(ctx, loan)
	uc.logger.Info("emi payment applied",
		"loan_id", p.LoanID, "emi_number", p.EmiNumber, "event_id", env.ID)
	return nil
}

// handlePaymentFailed marks the entry bounced, accrues the late fee, and
// opens (or annotates) a collection case. Balances stay untouched.
func (uc *ProcessWebhookUseCase) handlePaymentFailed(ctx context.Context, env partnerEventEnvelope) error {
	var p paymentFailedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return errs.NewValidation("payload", "malformed payment.failed payload: %v", err)
	}
	now := time.Now().UTC()

	entry, err := uc.store.FindEntry(ctx, p.LoanID, p.EmiNumber)
	if err != nil {
		return fmt.Errorf("find schedule entry: %w", err)
	}
	bounced, err := entry.MarkBounced(uc.lateFee)
	if err != nil {
		return errs.NewConflict("EMI %d on loan %s cannot bounce from %s", p.EmiNumber, p.LoanID, entry.Status)
	}

	loan, err := uc.loanRepo.FindByID(ctx, p.LoanID)
	if err != nil {
		return fmt.Errorf("find loan: %w", err)
	}
	loan, err = loan.RecordEmiBounce(p.EmiNumber, uc.lateFee, now)
	if err != nil {
		return errs.NewConflict("loan %s cannot record bounce: %v", p.LoanID, err)
	}

	settlement := port.Settlement{EventID: env.ID, Loan: &loan, Entry: &bounced, EntryPriorStatus: entry.Status}

	c, err := uc.caseRepo.FindOpenByLoanAndEmi(ctx, p.LoanID, p.EmiNumber)
	switch {
	case err == nil:
		annotated := c.AddNote(fmt.Sprintf("repeat bounce: %s", p.Reason), now)
		settlement.Case = &annotated
	case errors.Is(err, errs.ErrNotFound):
		opened, cerr := model.NewCollectionCase(p.LoanID, p.EmiNumber, bounced.TotalDue(), now)
		if cerr != nil {
			return fmt.Errorf("open collection case: %w", cerr)
		}
		if p.Reason != "" {
			opened = opened.AddNote(p.Reason, now)
		}
		settlement.Case = &opened
	default:
		return fmt.Errorf("find collection case: %w", err)
	}

	if err := uc.store.Apply(ctx, settlement); err != nil {
		return err
	}
	uc.publishAll(ctx, loan)
	uc.logger.Info("emi bounce applied",
		"loan_id", p.LoanID, "emi_number", p.EmiNumber, "event_id", env.ID)
	return nil
}

// handleLoanDisbursed pins the partner's disbursal confirmation on the loan.
func (uc *ProcessWebhookUseCase) handleLoanDisbursed(ctx context.Context, env partnerEventEnvelope) error {
	var p loanDisbursedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return errs.NewValidation("payload", "malformed loan.disbursed payload: %v", err)
	}
	now := time.Now().UTC()

	loan, err := uc.loanRepo.FindByID(ctx, p.LoanID)
	if err != nil {
		return fmt.Errorf("find loan: %w", err)
	}
	loan, err = loan.MarkDisbursed(p.Reference, now)
	if err != nil {
		return errs.NewConflict("loan %s cannot confirm disbursal: %v", p.LoanID, err)
	}

	if err := uc.store.Apply(ctx, port.Settlement{EventID: env.ID, Loan: &loan}); err != nil {
		return err
	}
	uc.publishAll(ctx, loan)
	return nil
}

// handleEmiDue flags an unsettled entry overdue. An already-settled entry is
// acknowledged without change, but the event still counts as processed.
func (uc *ProcessWebhookUseCase) handleEmiDue(ctx context.Context, env partnerEventEnvelope) error {
	var p emiDuePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return errs.NewValidation("payload", "malformed loan.emi.due payload: %v", err)
	}

	entry, err := uc.store.FindEntry(ctx, p.LoanID, p.EmiNumber)
	if err != nil {
		return fmt.Errorf("find schedule entry: %w", err)
	}

	settlement := port.Settlement{EventID: env.ID}
	if overdue, err := entry.MarkOverdue(); err == nil {
		settlement.Entry = &overdue
		settlement.EntryPriorStatus = entry.Status
	}
	return uc.store.Apply(ctx, settlement)
}

// nextPendingDue finds the due date of the first unsettled entry after the
// given one. Zero time when none remain.
func (uc *ProcessWebhookUseCase) nextPendingDue(ctx context.Context, loanID string, afterNumber int) (time.Time, error) {
	schedule, err := uc.loanRepo.FindSchedule(ctx, loanID)
	if err != nil {
		return time.Time{}, fmt.Errorf("find schedule: %w", err)
	}
	for _, e := range schedule {
		if e.Number > afterNumber && !e.Status.IsSettled() {
			return e.DueDate, nil
		}
	}
	return time.Time{}, nil
}

func (uc *ProcessWebhookUseCase) publishAll(ctx context.Context, loan model.Loan) {
	if err := uc.publisher.Publish(ctx, loan.DomainEvents()...); err != nil {
		uc.logger.Error("publish settlement events", "loan_id", loan.ID(), "error", err)
	}
}
