package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/provider"
	"github.com/fluxpay/pspcore/internal/psp"
	"github.com/fluxpay/pspcore/internal/usecase"
	"github.com/fluxpay/pspcore/internal/usecase/mocks"
)

// testEnv wires a full service over in-memory repositories so handlers are
// exercised end to end.
type testEnv struct {
	svc          *psp.Service
	accounts     *mocks.MockAccountRepository
	entries      *mocks.MockEntryRepository
	reservations *mocks.MockReservationRepository
	instructions *mocks.MockInstructionRepository
	settlements  *mocks.MockSettlementRepository
	liabilities  *mocks.MockLiabilityRepository
	events       *mocks.MockEventRepository
}

func newTestEnv() *testEnv {
	env := &testEnv{
		accounts:     mocks.NewMockAccountRepository(),
		entries:      mocks.NewMockEntryRepository(),
		reservations: mocks.NewMockReservationRepository(),
		instructions: mocks.NewMockInstructionRepository(),
		settlements:  mocks.NewMockSettlementRepository(),
		liabilities:  mocks.NewMockLiabilityRepository(),
		events:       mocks.NewMockEventRepository(),
	}

	txManager := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()
	registry := usecase.NewIdempotencyRegistry(mocks.NewMockIdempotencyRepository())

	accountUC := usecase.NewAccountUseCase(env.accounts, idGen)
	ledgerUC := usecase.NewLedgerUseCase(
		txManager, env.accounts, env.entries, mocks.NewMockLedgerRepository(),
		env.events, registry, idGen, mocks.NewMockCache(), nil,
	)
	gateUC := usecase.NewFundingGateUseCase(
		txManager, env.accounts, env.entries, env.reservations, env.events, registry, idGen, nil,
	)
	liabilityUC := usecase.NewLiabilityUseCase(txManager, env.liabilities, env.events, idGen, nil)
	paymentUC := usecase.NewPaymentUseCase(
		txManager, env.instructions, ledgerUC, gateUC, liabilityUC,
		env.events, registry, idGen, nil,
	)
	settlementUC := usecase.NewSettlementUseCase(
		txManager, env.settlements, env.instructions, paymentUC,
		env.events, registry, idGen, nil,
	)
	eventUC := usecase.NewEventUseCase(env.events)

	env.svc = psp.New(accountUC, ledgerUC, gateUC, paymentUC, settlementUC, liabilityUC, eventUC, zerolog.Nop())
	env.svc.RegisterProvider(provider.NewACHSim(zerolog.Nop()))

	return env
}

// fund seeds a USD account holding the given balance.
func (env *testEnv) fund(accountID string, amount int64) {
	env.accounts.Add(&domain.Account{ID: accountID, TenantID: "tenant-1", Currency: "USD"})
	env.accounts.Add(&domain.Account{ID: "external", TenantID: "tenant-1", Currency: "USD"})
	env.entries.Add(&domain.LedgerEntry{
		ID:              "seed-" + accountID,
		TenantID:        "tenant-1",
		DebitAccountID:  "external",
		CreditAccountID: accountID,
		EntryType:       domain.EntryTypeFunding,
		Amount:          decimal.NewFromInt(amount),
		CreatedAt:       time.Now().UTC().Add(-time.Minute),
	})
}

func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(TenantHeader, "tenant-1")

	return req
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}
