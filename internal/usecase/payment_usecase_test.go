package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/provider"
	"github.com/fluxpay/pspcore/internal/usecase"
	"github.com/fluxpay/pspcore/internal/usecase/mocks"
)

// fakeRail is a scriptable in-memory rail provider.
type fakeRail struct {
	mu         sync.Mutex
	name       string
	rail       domain.Rail
	submits    int
	SubmitFunc func(ctx context.Context, instr *domain.PaymentInstruction) (string, error)
}

func newFakeRail(name string, rail domain.Rail) *fakeRail {
	return &fakeRail{name: name, rail: rail}
}

func (p *fakeRail) Name() string      { return p.name }
func (p *fakeRail) Rail() domain.Rail { return p.rail }

func (p *fakeRail) Submit(ctx context.Context, instr *domain.PaymentInstruction) (string, error) {
	p.mu.Lock()
	fn := p.SubmitFunc
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, instr)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submits++
	return fmt.Sprintf("%s-ref-%d", p.name, p.submits), nil
}

func (p *fakeRail) PollStatus(ctx context.Context, providerRef string) (domain.InstructionStatus, error) {
	return domain.InstructionStatusSubmitted, nil
}

type paymentFixture struct {
	uc           *usecase.PaymentUseCase
	ledger       *usecase.LedgerUseCase
	rail         *fakeRail
	accounts     *mocks.MockAccountRepository
	entries      *mocks.MockEntryRepository
	reservations *mocks.MockReservationRepository
	instructions *mocks.MockInstructionRepository
	liabilities  *mocks.MockLiabilityRepository
	events       *mocks.MockEventRepository
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		rail:         newFakeRail("achsim", domain.RailACH),
		accounts:     mocks.NewMockAccountRepository(),
		entries:      mocks.NewMockEntryRepository(),
		reservations: mocks.NewMockReservationRepository(),
		instructions: mocks.NewMockInstructionRepository(),
		liabilities:  mocks.NewMockLiabilityRepository(),
		events:       mocks.NewMockEventRepository(),
	}

	txManager := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()
	registry := usecase.NewIdempotencyRegistry(mocks.NewMockIdempotencyRepository())

	ledgerUC := usecase.NewLedgerUseCase(
		txManager, f.accounts, f.entries, mocks.NewMockLedgerRepository(),
		f.events, registry, idGen, mocks.NewMockCache(), nil,
	)
	f.ledger = ledgerUC
	gateUC := usecase.NewFundingGateUseCase(
		txManager, f.accounts, f.entries, f.reservations, f.events, registry, idGen, nil,
	)
	liabilityUC := usecase.NewLiabilityUseCase(txManager, f.liabilities, f.events, idGen, nil)

	f.uc = usecase.NewPaymentUseCase(
		txManager, f.instructions, ledgerUC, gateUC, liabilityUC,
		f.events, registry, idGen, nil,
	)
	f.uc.RegisterProvider(f.rail)

	f.accounts.Add(&domain.Account{ID: "funding-1", TenantID: "tenant-1", Currency: "USD"})
	f.accounts.Add(&domain.Account{ID: "clearing", TenantID: "tenant-1", Currency: "USD"})
	f.accounts.Add(&domain.Account{ID: "external", TenantID: "tenant-1", Currency: "USD"})
	f.entries.Add(&domain.LedgerEntry{
		ID:              "seed",
		TenantID:        "tenant-1",
		DebitAccountID:  "external",
		CreditAccountID: "funding-1",
		EntryType:       domain.EntryTypeFunding,
		Amount:          decimal.NewFromInt(1000),
		CreatedAt:       time.Now().UTC().Add(-time.Minute),
	})

	return f
}

func (f *paymentFixture) reserve(batchRef string, amount int64) {
	f.reservations.Add(&domain.Reservation{
		ID:               "res-" + batchRef,
		TenantID:         "tenant-1",
		BatchReference:   batchRef,
		FundingAccountID: "funding-1",
		Status:           domain.ReservationStatusActive,
		ReservedAmount:   decimal.NewFromInt(amount),
	})
}

func executableBatch() *domain.PayrollBatch {
	return &domain.PayrollBatch{
		TenantID:         "tenant-1",
		LegalEntityID:    "le-1",
		BatchReference:   "batch-1",
		FundingAccountID: "funding-1",
		Currency:         "USD",
		IdempotencyKey:   "key-1",
		Rail:             domain.RailACH,
		Items: []domain.PayrollItem{
			{PayeeAccountReference: "payee-1", Amount: decimal.NewFromInt(300)},
			{PayeeAccountReference: "payee-2", Amount: decimal.NewFromInt(300)},
		},
	}
}

func countEvents(names []string, name string) int {
	n := 0
	for _, got := range names {
		if got == name {
			n++
		}
	}
	return n
}

func TestPayment_Execute(t *testing.T) {
	f := newPaymentFixture()
	f.reserve("batch-1", 600)

	result, err := f.uc.Execute(context.Background(), usecase.ExecuteInput{
		Batch:             executableBatch(),
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Submitted != 2 || result.Failed != 0 {
		t.Errorf("submitted=%d failed=%d, want 2/0", result.Submitted, result.Failed)
	}
	if len(result.InstructionIDs) != 2 {
		t.Fatalf("got %d instruction ids, want 2", len(result.InstructionIDs))
	}

	reservation, _ := f.reservations.GetByBatchReference(context.Background(), "tenant-1", "batch-1")
	if reservation.Status != domain.ReservationStatusConsumed {
		t.Errorf("reservation status = %s, want consumed", reservation.Status)
	}

	for _, id := range result.InstructionIDs {
		instr, err := f.instructions.GetByID(context.Background(), "tenant-1", id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if instr.Status != domain.InstructionStatusSubmitted {
			t.Errorf("instruction %s status = %s, want submitted", id, instr.Status)
		}
		if instr.ProviderReference == "" {
			t.Errorf("instruction %s has no provider reference", id)
		}
		if instr.LedgerEntryID == "" {
			t.Errorf("instruction %s has no payout entry", id)
		}
	}

	names := f.events.Names("tenant-1")
	if got := countEvents(names, domain.EventInstructionCreated); got != 2 {
		t.Errorf("instruction.created events = %d, want 2", got)
	}
	if got := countEvents(names, domain.EventPaymentSubmitted); got != 2 {
		t.Errorf("payment.submitted events = %d, want 2", got)
	}
}

func TestPayment_Execute_ClaimsBeforeProviderCall(t *testing.T) {
	f := newPaymentFixture()
	f.reserve("batch-1", 600)

	// The stored instruction must already hold the submitting claim when
	// the provider sees it, so a concurrent executor cannot hand the same
	// instruction to the rail a second time.
	var mu sync.Mutex
	observed := make(map[string]domain.InstructionStatus)
	f.rail.SubmitFunc = func(ctx context.Context, instr *domain.PaymentInstruction) (string, error) {
		stored, err := f.instructions.GetByID(ctx, "tenant-1", instr.ID)
		if err != nil {
			return "", err
		}
		mu.Lock()
		observed[instr.ID] = stored.Status
		mu.Unlock()
		return "ref-" + instr.PayeeAccountReference, nil
	}

	result, err := f.uc.Execute(context.Background(), usecase.ExecuteInput{
		Batch:             executableBatch(),
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Submitted != 2 {
		t.Fatalf("submitted = %d, want 2", result.Submitted)
	}

	if len(observed) != 2 {
		t.Fatalf("provider saw %d instructions, want 2", len(observed))
	}
	for id, status := range observed {
		if status != domain.InstructionStatusSubmitting {
			t.Errorf("instruction %s was %s at submission time, want submitting", id, status)
		}
	}

	for _, id := range result.InstructionIDs {
		instr, _ := f.instructions.GetByID(context.Background(), "tenant-1", id)
		if instr.Status != domain.InstructionStatusSubmitted {
			t.Errorf("instruction %s status = %s, want submitted", id, instr.Status)
		}
	}
}

func TestPayment_Execute_SkipsInstructionClaimedElsewhere(t *testing.T) {
	f := newPaymentFixture()
	f.reserve("batch-1", 600)

	f.rail.SubmitFunc = func(ctx context.Context, instr *domain.PaymentInstruction) (string, error) {
		return "", provider.NewPermanentError("achsim", "E99", "provider offline")
	}

	input := usecase.ExecuteInput{
		Batch:             executableBatch(),
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-1",
	}

	first, err := f.uc.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Failed != 2 {
		t.Fatalf("failed = %d, want 2", first.Failed)
	}

	// Another executor holds the first instruction mid-submission.
	heldID := first.InstructionIDs[0]
	held, _ := f.instructions.GetByID(context.Background(), "tenant-1", heldID)
	held.Status = domain.InstructionStatusSubmitting

	var mu sync.Mutex
	var calls []string
	f.rail.SubmitFunc = func(ctx context.Context, instr *domain.PaymentInstruction) (string, error) {
		mu.Lock()
		calls = append(calls, instr.ID)
		mu.Unlock()
		return "ref-" + instr.PayeeAccountReference, nil
	}

	second, err := f.uc.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if second.Submitted != 1 || second.Failed != 0 {
		t.Errorf("retry submitted=%d failed=%d, want 1/0", second.Submitted, second.Failed)
	}

	if len(calls) != 1 || calls[0] == heldID {
		t.Errorf("provider calls = %v, held instruction %s must not be resubmitted", calls, heldID)
	}

	stillHeld, _ := f.instructions.GetByID(context.Background(), "tenant-1", heldID)
	if stillHeld.Status != domain.InstructionStatusSubmitting {
		t.Errorf("held instruction status = %s, want submitting", stillHeld.Status)
	}
}

func TestPayment_Execute_FailsWhenCoverDrained(t *testing.T) {
	f := newPaymentFixture()
	f.reserve("batch-1", 600)

	// Funding balance drops below the reserved amount between commit and pay.
	f.entries.Add(&domain.LedgerEntry{
		ID:              "drain",
		TenantID:        "tenant-1",
		DebitAccountID:  "funding-1",
		CreditAccountID: "external",
		EntryType:       domain.EntryTypeAdjustment,
		Amount:          decimal.NewFromInt(500),
		CreatedAt:       time.Now().UTC(),
	})

	_, err := f.uc.Execute(context.Background(), usecase.ExecuteInput{
		Batch:             executableBatch(),
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-1",
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	instructions, _ := f.instructions.ListByBatch(context.Background(), "tenant-1", "batch-1")
	if len(instructions) != 0 {
		t.Errorf("got %d instructions, want none", len(instructions))
	}

	reservation, _ := f.reservations.GetByBatchReference(context.Background(), "tenant-1", "batch-1")
	if reservation.Status != domain.ReservationStatusActive {
		t.Errorf("reservation status = %s, want active", reservation.Status)
	}
}

func TestPayment_Execute_RejectsUnknownRail(t *testing.T) {
	f := newPaymentFixture()
	f.reserve("batch-1", 600)

	batch := executableBatch()
	batch.Rail = domain.RailWire

	_, err := f.uc.Execute(context.Background(), usecase.ExecuteInput{
		Batch:             batch,
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-1",
	})
	if !errors.Is(err, domain.ErrUnknownRail) {
		t.Fatalf("expected ErrUnknownRail, got %v", err)
	}
}

func TestPayment_Execute_RequiresActiveReservation(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.uc.Execute(context.Background(), usecase.ExecuteInput{
		Batch:             executableBatch(),
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-1",
	})
	if !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestPayment_Execute_ResumesAfterSubmitFailure(t *testing.T) {
	f := newPaymentFixture()
	f.reserve("batch-1", 600)

	f.rail.SubmitFunc = func(ctx context.Context, instr *domain.PaymentInstruction) (string, error) {
		if instr.PayeeAccountReference == "payee-2" {
			return "", provider.NewPermanentError("achsim", "E01", "payee rejected")
		}
		return "ref-" + instr.PayeeAccountReference, nil
	}

	input := usecase.ExecuteInput{
		Batch:             executableBatch(),
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-1",
	}

	first, err := f.uc.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Submitted != 1 || first.Failed != 1 {
		t.Fatalf("submitted=%d failed=%d, want 1/1", first.Submitted, first.Failed)
	}

	names := f.events.Names("tenant-1")
	if got := countEvents(names, domain.EventPaymentFailed); got != 1 {
		t.Errorf("payment.failed events = %d, want 1", got)
	}

	// The failed instruction stays Created so a retry picks it up.
	created := 0
	for _, id := range first.InstructionIDs {
		instr, _ := f.instructions.GetByID(context.Background(), "tenant-1", id)
		if instr.Status == domain.InstructionStatusCreated {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("instructions left in created = %d, want 1", created)
	}

	// Retry with the same key: the prepare stage replays, only the
	// unsubmitted instruction goes out again.
	f.rail.SubmitFunc = nil

	second, err := f.uc.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if second.Submitted != 1 || second.Failed != 0 {
		t.Errorf("retry submitted=%d failed=%d, want 1/0", second.Submitted, second.Failed)
	}
	if len(second.InstructionIDs) != 2 || second.InstructionIDs[0] != first.InstructionIDs[0] {
		t.Errorf("retry created new instructions: %v vs %v", second.InstructionIDs, first.InstructionIDs)
	}

	for _, id := range second.InstructionIDs {
		instr, _ := f.instructions.GetByID(context.Background(), "tenant-1", id)
		if instr.Status != domain.InstructionStatusSubmitted {
			t.Errorf("instruction %s status = %s, want submitted", id, instr.Status)
		}
	}
}

func TestPayment_HandleCallback_SettlesWithAcceptedHop(t *testing.T) {
	f := newPaymentFixture()
	f.instructions.Add(&domain.PaymentInstruction{
		ID:                "pi-1",
		TenantID:          "tenant-1",
		BatchReference:    "batch-1",
		ProviderReference: "ach-1",
		LedgerEntryID:     "e-1",
		Rail:              domain.RailACH,
		Status:            domain.InstructionStatusSubmitted,
		Amount:            decimal.NewFromInt(300),
	})

	err := f.uc.HandleCallback(context.Background(), usecase.CallbackInput{
		TenantID:          "tenant-1",
		Provider:          "achsim",
		ProviderReference: "ach-1",
		Status:            domain.InstructionStatusSettled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instr, _ := f.instructions.GetByID(context.Background(), "tenant-1", "pi-1")
	if instr.Status != domain.InstructionStatusSettled {
		t.Fatalf("status = %s, want settled", instr.Status)
	}

	// Batch rails never jump Submitted -> Settled; the Accepted hop is
	// inserted on the way.
	if len(instr.StatusHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(instr.StatusHistory))
	}
	if instr.StatusHistory[0].To != domain.InstructionStatusAccepted {
		t.Errorf("first hop = %s, want accepted", instr.StatusHistory[0].To)
	}

	names := f.events.Names("tenant-1")
	if countEvents(names, domain.EventPaymentAccepted) != 1 || countEvents(names, domain.EventPaymentSettled) != 1 {
		t.Errorf("events = %v", names)
	}
}

func TestPayment_HandleCallback_DuplicateIsNoOp(t *testing.T) {
	f := newPaymentFixture()
	f.instructions.Add(&domain.PaymentInstruction{
		ID:                "pi-1",
		TenantID:          "tenant-1",
		ProviderReference: "ach-1",
		Rail:              domain.RailACH,
		Status:            domain.InstructionStatusSettled,
		Amount:            decimal.NewFromInt(300),
	})

	err := f.uc.HandleCallback(context.Background(), usecase.CallbackInput{
		TenantID:          "tenant-1",
		Provider:          "achsim",
		ProviderReference: "ach-1",
		Status:            domain.InstructionStatusSettled,
	})
	if err != nil {
		t.Fatalf("duplicate callback should be acknowledged, got %v", err)
	}

	if names := f.events.Names("tenant-1"); len(names) != 0 {
		t.Errorf("duplicate callback appended events: %v", names)
	}
}

func TestPayment_HandleCallback_UnknownReference(t *testing.T) {
	f := newPaymentFixture()

	err := f.uc.HandleCallback(context.Background(), usecase.CallbackInput{
		TenantID:          "tenant-1",
		Provider:          "achsim",
		ProviderReference: "ghost",
		Status:            domain.InstructionStatusSettled,
	})
	if !errors.Is(err, domain.ErrUnknownProviderRef) {
		t.Fatalf("expected ErrUnknownProviderRef, got %v", err)
	}
}

func TestPayment_HandleCallback_ReturnReversesAndClassifies(t *testing.T) {
	f := newPaymentFixture()
	f.entries.Add(&domain.LedgerEntry{
		ID:              "e-1",
		TenantID:        "tenant-1",
		DebitAccountID:  "funding-1",
		CreditAccountID: "clearing",
		EntryType:       domain.EntryTypePayout,
		Amount:          decimal.NewFromInt(300),
		CreatedAt:       time.Now().UTC(),
	})
	f.instructions.Add(&domain.PaymentInstruction{
		ID:                "pi-1",
		TenantID:          "tenant-1",
		ProviderReference: "ach-1",
		LedgerEntryID:     "e-1",
		Rail:              domain.RailACH,
		Status:            domain.InstructionStatusSubmitted,
		Amount:            decimal.NewFromInt(300),
	})

	err := f.uc.HandleCallback(context.Background(), usecase.CallbackInput{
		TenantID:          "tenant-1",
		Provider:          "achsim",
		ProviderReference: "ach-1",
		Status:            domain.InstructionStatusReturned,
		ReturnCode:        "R01",
		ReturnReason:      "insufficient funds",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instr, _ := f.instructions.GetByID(context.Background(), "tenant-1", "pi-1")
	if instr.Status != domain.InstructionStatusReturned {
		t.Fatalf("status = %s, want returned", instr.Status)
	}

	var reversal *domain.LedgerEntry
	for _, e := range f.entries.Entries() {
		if e.ReversedEntryID != nil && *e.ReversedEntryID == "e-1" {
			reversal = e
		}
	}
	if reversal == nil {
		t.Fatal("no compensating reversal posted")
	}
	if reversal.DebitAccountID != "clearing" || reversal.CreditAccountID != "funding-1" {
		t.Errorf("reversal legs wrong: debit %s credit %s", reversal.DebitAccountID, reversal.CreditAccountID)
	}

	le, err := f.liabilities.GetBySource(context.Background(), "tenant-1", "payment_instruction", "pi-1")
	if err != nil {
		t.Fatalf("liability not classified: %v", err)
	}
	if le.LiabilityParty != domain.PartyRecipient {
		t.Errorf("party = %s, want recipient", le.LiabilityParty)
	}
	if le.RecoveryPath != domain.RecoveryPathReclaim {
		t.Errorf("path = %s, want reclaim", le.RecoveryPath)
	}
	if !le.LossAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("loss = %s, want 300", le.LossAmount)
	}

	names := f.events.Names("tenant-1")
	if countEvents(names, domain.EventPaymentReturned) != 1 {
		t.Errorf("payment.returned events = %v", names)
	}
	if countEvents(names, domain.EventLiabilityClassified) != 1 {
		t.Errorf("liability.classified events = %v", names)
	}
}

func TestPayment_HandleCallback_ReturnRefreshesBalance(t *testing.T) {
	f := newPaymentFixture()
	f.entries.Add(&domain.LedgerEntry{
		ID:              "e-1",
		TenantID:        "tenant-1",
		DebitAccountID:  "funding-1",
		CreditAccountID: "clearing",
		EntryType:       domain.EntryTypePayout,
		Amount:          decimal.NewFromInt(300),
		CreatedAt:       time.Now().UTC(),
	})
	f.instructions.Add(&domain.PaymentInstruction{
		ID:                "pi-1",
		TenantID:          "tenant-1",
		ProviderReference: "ach-1",
		LedgerEntryID:     "e-1",
		Rail:              domain.RailACH,
		Status:            domain.InstructionStatusSubmitted,
		Amount:            decimal.NewFromInt(300),
	})

	// Warm the balance cache with the pre-return value.
	warm, err := f.ledger.BalanceAsOf(context.Background(), "tenant-1", "clearing", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !warm.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("balance before return = %s, want 300", warm)
	}

	err = f.uc.HandleCallback(context.Background(), usecase.CallbackInput{
		TenantID:          "tenant-1",
		Provider:          "achsim",
		ProviderReference: "ach-1",
		Status:            domain.InstructionStatusReturned,
		ReturnCode:        "R01",
		ReturnReason:      "insufficient funds",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := f.ledger.BalanceAsOf(context.Background(), "tenant-1", "clearing", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("clearing balance after return = %s, want 0", balance)
	}
}

func TestPayment_HandleCallback_RejectsRegression(t *testing.T) {
	f := newPaymentFixture()
	f.instructions.Add(&domain.PaymentInstruction{
		ID:                "pi-1",
		TenantID:          "tenant-1",
		ProviderReference: "ach-1",
		Rail:              domain.RailACH,
		Status:            domain.InstructionStatusSettled,
		Amount:            decimal.NewFromInt(300),
	})

	err := f.uc.HandleCallback(context.Background(), usecase.CallbackInput{
		TenantID:          "tenant-1",
		Provider:          "achsim",
		ProviderReference: "ach-1",
		Status:            domain.InstructionStatusSubmitted,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPayment_Execute_RoutesToProviderForRail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rail := mocks.NewMockRailProvider(ctrl)
	rail.EXPECT().Rail().Return(domain.RailFedNow).AnyTimes()
	rail.EXPECT().Name().Return("fednow-mock").AnyTimes()
	rail.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("fednow-ref-1", nil)

	f := newPaymentFixture()
	f.uc.RegisterProvider(rail)
	f.reserve("batch-1", 300)

	batch := executableBatch()
	batch.Rail = domain.RailFedNow
	batch.Items = batch.Items[:1]

	result, err := f.uc.Execute(context.Background(), usecase.ExecuteInput{
		Batch:             batch,
		ClearingAccountID: "clearing",
		IdempotencyKey:    "exec-fednow",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Submitted != 1 {
		t.Fatalf("submitted = %d, want 1", result.Submitted)
	}

	instr, _ := f.instructions.GetByID(context.Background(), "tenant-1", result.InstructionIDs[0])
	if instr.ProviderReference != "fednow-ref-1" {
		t.Errorf("provider reference = %s, want fednow-ref-1", instr.ProviderReference)
	}
}
