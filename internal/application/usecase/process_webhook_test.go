package usecase_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udyamcap/lending-engine/internal/application/usecase"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
	"github.com/udyamcap/lending-engine/internal/domain/valueobject"
	"github.com/udyamcap/lending-engine/pkg/signature"
	"github.com/udyamcap/lending-engine/pkg/testutil"
)

var webhookSecret = []byte("partner-webhook-secret")

func signedBody(t *testing.T, body string) ([]byte, string) {
	t.Helper()
	raw := []byte(body)
	return raw, signature.Sign(webhookSecret, raw)
}

func activeLoanFixture(t *testing.T) (model.Loan, []model.EmiScheduleEntry) {
	t.Helper()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	principal := decimal.NewFromInt(500_000)
	schedule, err := model.GenerateEmiSchedule(principal, decimal.NewFromFloat(12.5), 24, start)
	require.NoError(t, err)
	for i := range schedule {
		schedule[i].LoanID = testutil.TestLoanID
	}
	loan := model.ReconstructLoan(
		testutil.TestLoanID, testutil.TestApplicationID, testutil.TestOfferID, "AGR-2026-0001",
		principal, principal, decimal.NewFromFloat(12.5),
		24, schedule[0].EmiAmount, 0, schedule[0].DueDate,
		valueobject.LoanStatusActive, nil, 1, start, start,
	)
	return loan, schedule
}

func newWebhookUseCase(
	store port.SettlementStore,
	loanRepo port.LoanRepository,
	caseRepo port.CollectionCaseRepository,
	publisher port.EventPublisher,
) *usecase.ProcessWebhookUseCase {
	return usecase.NewProcessWebhookUseCase(
		webhookSecret, store, loanRepo, caseRepo, publisher,
		decimal.NewFromInt(500), slog.Default(),
	)
}

func TestProcessWebhookUseCase_Signature(t *testing.T) {
	uc := newWebhookUseCase(&mockSettlementStore{}, &mockLoanRepository{}, &mockCollectionCaseRepository{}, &mockEventPublisher{})

	t.Run("rejects a tampered body without applying anything", func(t *testing.T) {
		raw, sig := signedBody(t, `{"id":"evt-1","event":"payment.captured","payload":{}}`)
		tampered := append([]byte{}, raw...)
		tampered[len(tampered)-2] = 'x'

		_, err := uc.Execute(context.Background(), tampered, sig)
		assert.ErrorIs(t, err, errs.ErrBadSignature)
	})

	t.Run("rejects a malformed body after a valid signature", func(t *testing.T) {
		raw, sig := signedBody(t, `{"id":`)
		_, err := uc.Execute(context.Background(), raw, sig)
		require.Error(t, err)
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("rejects an envelope without an event id", func(t *testing.T) {
		raw, sig := signedBody(t, `{"event":"payment.captured","payload":{}}`)
		_, err := uc.Execute(context.Background(), raw, sig)
		require.Error(t, err)
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("acks unknown event types without applying", func(t *testing.T) {
		raw, sig := signedBody(t, `{"id":"evt-2","event":"loan.renewed","payload":{}}`)
		result, err := uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)
		assert.False(t, result.Applied)
	})
}

func TestProcessWebhookUseCase_PaymentCaptured(t *testing.T) {
	loan, schedule := activeLoanFixture(t)
	body := fmt.Sprintf(
		`{"id":"evt-100","event":"payment.captured","payload":{"loan_id":%q,"emi_number":1,"amount":%s}}`,
		testutil.TestLoanID, schedule[0].EmiAmount,
	)

	t.Run("settles the entry and loan atomically", func(t *testing.T) {
		var applied port.Settlement
		store := &mockSettlementStore{
			findEntryFunc: func(_ context.Context, loanID string, emiNumber int) (model.EmiScheduleEntry, error) {
				assert.Equal(t, testutil.TestLoanID, loanID)
				assert.Equal(t, 1, emiNumber)
				return schedule[0], nil
			},
			applyFunc: func(_ context.Context, s port.Settlement) error {
				applied = s
				return nil
			},
		}
		loanRepo := &mockLoanRepository{
			findByIDFunc:     func(context.Context, string) (model.Loan, error) { return loan, nil },
			findScheduleFunc: func(context.Context, string) ([]model.EmiScheduleEntry, error) { return schedule, nil },
		}
		publisher := &mockEventPublisher{}

		uc := newWebhookUseCase(store, loanRepo, &mockCollectionCaseRepository{}, publisher)
		raw, sig := signedBody(t, body)
		result, err := uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)
		assert.True(t, result.Applied)

		assert.Equal(t, "evt-100", applied.EventID)
		require.NotNil(t, applied.Entry)
		assert.True(t, applied.Entry.Status.Equal(valueobject.EmiStatusPaid))
		assert.True(t, applied.EntryPriorStatus.Equal(valueobject.EmiStatusPending))
		require.NotNil(t, applied.Loan)
		assert.Equal(t, 1, applied.Loan.EmisPaid())
		testutil.AssertDecimalEqual(t,
			decimal.NewFromInt(500_000).Sub(schedule[0].PrincipalComponent),
			applied.Loan.Outstanding())
		assert.Equal(t, schedule[1].DueDate, applied.Loan.NextEmiDue())
		assert.NotEmpty(t, publisher.published)
	})

	t.Run("duplicate event id acks without reapplying", func(t *testing.T) {
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return schedule[0], nil
			},
			applyFunc: func(context.Context, port.Settlement) error {
				return errs.ErrEventAlreadyProcessed
			},
		}
		loanRepo := &mockLoanRepository{
			findByIDFunc:     func(context.Context, string) (model.Loan, error) { return loan, nil },
			findScheduleFunc: func(context.Context, string) ([]model.EmiScheduleEntry, error) { return schedule, nil },
		}

		uc := newWebhookUseCase(store, loanRepo, &mockCollectionCaseRepository{}, &mockEventPublisher{})
		raw, sig := signedBody(t, body)
		result, err := uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)
		assert.False(t, result.Applied)
	})

	t.Run("paying an already-paid entry conflicts", func(t *testing.T) {
		paid := schedule[0]
		paid.Status = valueobject.EmiStatusPaid
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return paid, nil
			},
		}
		uc := newWebhookUseCase(store, &mockLoanRepository{}, &mockCollectionCaseRepository{}, &mockEventPublisher{})

		raw, sig := signedBody(t, `{"id":"evt-101","event":"payment.captured","payload":{"loan_id":"`+testutil.TestLoanID+`","emi_number":1,"amount":100}}`)
		_, err := uc.Execute(context.Background(), raw, sig)
		require.Error(t, err)
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("final payment closes the loan", func(t *testing.T) {
		almostDone := model.ReconstructLoan(
			testutil.TestLoanID, testutil.TestApplicationID, testutil.TestOfferID, "AGR-2026-0001",
			decimal.NewFromInt(500_000), schedule[23].PrincipalComponent, decimal.NewFromFloat(12.5),
			24, schedule[0].EmiAmount, 23, schedule[23].DueDate,
			valueobject.LoanStatusActive, nil, 24, time.Now().UTC(), time.Now().UTC(),
		)
		settledSchedule := make([]model.EmiScheduleEntry, len(schedule))
		copy(settledSchedule, schedule)
		for i := 0; i < 23; i++ {
			settledSchedule[i].Status = valueobject.EmiStatusPaid
		}

		var applied port.Settlement
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return settledSchedule[23], nil
			},
			applyFunc: func(_ context.Context, s port.Settlement) error {
				applied = s
				return nil
			},
		}
		loanRepo := &mockLoanRepository{
			findByIDFunc:     func(context.Context, string) (model.Loan, error) { return almostDone, nil },
			findScheduleFunc: func(context.Context, string) ([]model.EmiScheduleEntry, error) { return settledSchedule, nil },
		}

		uc := newWebhookUseCase(store, loanRepo, &mockCollectionCaseRepository{}, &mockEventPublisher{})
		raw, sig := signedBody(t, fmt.Sprintf(
			`{"id":"evt-124","event":"payment.captured","payload":{"loan_id":%q,"emi_number":24,"amount":%s}}`,
			testutil.TestLoanID, settledSchedule[23].EmiAmount,
		))
		result, err := uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)
		assert.True(t, result.Applied)

		require.NotNil(t, applied.Loan)
		assert.True(t, applied.Loan.Status().Equal(valueobject.LoanStatusClosed))
		assert.True(t, applied.Loan.Outstanding().IsZero())
		assert.True(t, applied.Loan.NextEmiDue().IsZero())
	})

	t.Run("payment on a bounced entry resolves its collection case", func(t *testing.T) {
		bounced := schedule[0]
		bounced.Status = valueobject.EmiStatusBounced
		bounced.LateFee = decimal.NewFromInt(500)

		openCase, err := model.NewCollectionCase(testutil.TestLoanID, 1, bounced.TotalDue(), time.Now().UTC())
		require.NoError(t, err)

		var applied port.Settlement
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return bounced, nil
			},
			applyFunc: func(_ context.Context, s port.Settlement) error {
				applied = s
				return nil
			},
		}
		loanRepo := &mockLoanRepository{
			findByIDFunc:     func(context.Context, string) (model.Loan, error) { return loan, nil },
			findScheduleFunc: func(context.Context, string) ([]model.EmiScheduleEntry, error) { return schedule, nil },
		}
		caseRepo := &mockCollectionCaseRepository{
			findOpenByLoanAndEmiFunc: func(context.Context, string, int) (model.CollectionCase, error) {
				return openCase, nil
			},
		}

		uc := newWebhookUseCase(store, loanRepo, caseRepo, &mockEventPublisher{})
		raw, sig := signedBody(t, body)
		_, err = uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)

		require.NotNil(t, applied.Case)
		assert.True(t, applied.Case.Status().Equal(valueobject.CollectionCaseStatusResolved))
	})
}

func TestProcessWebhookUseCase_PaymentFailed(t *testing.T) {
	loan, schedule := activeLoanFixture(t)
	body := fmt.Sprintf(
		`{"id":"evt-200","event":"payment.failed","payload":{"loan_id":%q,"emi_number":1,"reason":"insufficient funds"}}`,
		testutil.TestLoanID,
	)

	t.Run("bounces the entry, accrues the fee, and opens a case", func(t *testing.T) {
		var applied port.Settlement
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return schedule[0], nil
			},
			applyFunc: func(_ context.Context, s port.Settlement) error {
				applied = s
				return nil
			},
		}
		loanRepo := &mockLoanRepository{
			findByIDFunc: func(context.Context, string) (model.Loan, error) { return loan, nil },
		}

		uc := newWebhookUseCase(store, loanRepo, &mockCollectionCaseRepository{}, &mockEventPublisher{})
		raw, sig := signedBody(t, body)
		result, err := uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)
		assert.True(t, result.Applied)

		require.NotNil(t, applied.Entry)
		assert.True(t, applied.Entry.Status.Equal(valueobject.EmiStatusBounced))
		assert.True(t, applied.EntryPriorStatus.Equal(valueobject.EmiStatusPending))
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(500), applied.Entry.LateFee)

		// Balances untouched.
		require.NotNil(t, applied.Loan)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(500_000), applied.Loan.Outstanding())
		assert.Equal(t, 0, applied.Loan.EmisPaid())

		require.NotNil(t, applied.Case)
		assert.True(t, applied.Case.Status().Equal(valueobject.CollectionCaseStatusOpen))
		assert.Equal(t, 1, applied.Case.EmiNumber())
	})

	t.Run("repeat bounce annotates the existing case", func(t *testing.T) {
		bounced := schedule[0]
		bounced.Status = valueobject.EmiStatusBounced
		bounced.LateFee = decimal.NewFromInt(500)

		existing, err := model.NewCollectionCase(testutil.TestLoanID, 1, bounced.TotalDue(), time.Now().UTC())
		require.NoError(t, err)

		var applied port.Settlement
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return bounced, nil
			},
			applyFunc: func(_ context.Context, s port.Settlement) error {
				applied = s
				return nil
			},
		}
		loanRepo := &mockLoanRepository{
			findByIDFunc: func(context.Context, string) (model.Loan, error) { return loan, nil },
		}
		caseRepo := &mockCollectionCaseRepository{
			findOpenByLoanAndEmiFunc: func(context.Context, string, int) (model.CollectionCase, error) {
				return existing, nil
			},
		}

		uc := newWebhookUseCase(store, loanRepo, caseRepo, &mockEventPublisher{})
		raw, sig := signedBody(t, body)
		_, err = uc.Execute(context.Background(), raw, sig)

		// A bounced entry can bounce again; the fee stacks and the note lands.
		require.NoError(t, err)
		require.NotNil(t, applied.Entry)
		assert.True(t, applied.EntryPriorStatus.Equal(valueobject.EmiStatusBounced))
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(1000), applied.Entry.LateFee)
		require.NotNil(t, applied.Case)
		assert.NotEmpty(t, applied.Case.Notes())
	})
}

func TestProcessWebhookUseCase_LoanDisbursed(t *testing.T) {
	loan, _ := activeLoanFixture(t)
	var applied port.Settlement
	store := &mockSettlementStore{
		applyFunc: func(_ context.Context, s port.Settlement) error {
			applied = s
			return nil
		},
	}
	loanRepo := &mockLoanRepository{
		findByIDFunc: func(context.Context, string) (model.Loan, error) { return loan, nil },
	}

	uc := newWebhookUseCase(store, loanRepo, &mockCollectionCaseRepository{}, &mockEventPublisher{})
	raw, sig := signedBody(t, fmt.Sprintf(
		`{"id":"evt-300","event":"loan.disbursed","payload":{"loan_id":%q,"reference":"UTR-998877"}}`,
		testutil.TestLoanID,
	))
	result, err := uc.Execute(context.Background(), raw, sig)
	require.NoError(t, err)
	assert.True(t, result.Applied)

	require.NotNil(t, applied.Loan)
	require.NotNil(t, applied.Loan.DisbursedAt())
	assert.Equal(t, "UTR-998877", applied.Loan.AgreementRef())
}

func TestProcessWebhookUseCase_EmiDue(t *testing.T) {
	_, schedule := activeLoanFixture(t)
	body := fmt.Sprintf(
		`{"id":"evt-400","event":"loan.emi.due","payload":{"loan_id":%q,"emi_number":2}}`,
		testutil.TestLoanID,
	)

	t.Run("marks a pending entry overdue", func(t *testing.T) {
		var applied port.Settlement
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return schedule[1], nil
			},
			applyFunc: func(_ context.Context, s port.Settlement) error {
				applied = s
				return nil
			},
		}
		uc := newWebhookUseCase(store, &mockLoanRepository{}, &mockCollectionCaseRepository{}, &mockEventPublisher{})

		raw, sig := signedBody(t, body)
		result, err := uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)
		assert.True(t, result.Applied)
		require.NotNil(t, applied.Entry)
		assert.True(t, applied.Entry.Status.Equal(valueobject.EmiStatusOverdue))
		assert.True(t, applied.EntryPriorStatus.Equal(valueobject.EmiStatusPending))
	})

	t.Run("losing the status race with a concurrent payment surfaces a conflict", func(t *testing.T) {
		// The entry read PENDING here, but a payment.captured for the same
		// instalment committed first; the store's status guard rejects the
		// overdue write instead of clobbering the paid row.
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return schedule[1], nil
			},
			applyFunc: func(context.Context, port.Settlement) error {
				return errs.NewConflict("EMI 2 on loan %s changed concurrently", testutil.TestLoanID)
			},
		}
		uc := newWebhookUseCase(store, &mockLoanRepository{}, &mockCollectionCaseRepository{}, &mockEventPublisher{})

		raw, sig := signedBody(t, body)
		_, err := uc.Execute(context.Background(), raw, sig)
		require.Error(t, err)
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("a settled entry acks without mutation", func(t *testing.T) {
		paid := schedule[1]
		paid.Status = valueobject.EmiStatusPaid

		var applied port.Settlement
		store := &mockSettlementStore{
			findEntryFunc: func(context.Context, string, int) (model.EmiScheduleEntry, error) {
				return paid, nil
			},
			applyFunc: func(_ context.Context, s port.Settlement) error {
				applied = s
				return nil
			},
		}
		uc := newWebhookUseCase(store, &mockLoanRepository{}, &mockCollectionCaseRepository{}, &mockEventPublisher{})

		raw, sig := signedBody(t, body)
		result, err := uc.Execute(context.Background(), raw, sig)
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Nil(t, applied.Entry)
		assert.Equal(t, "evt-400", applied.EventID)
	})
}
