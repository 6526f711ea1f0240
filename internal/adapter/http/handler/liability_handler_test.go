package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/adapter/http/dto"
	"github.com/fluxpay/pspcore/internal/domain"
)

func (env *testEnv) seedLiability(id string, status domain.RecoveryStatus) {
	env.liabilities.Add(&domain.LiabilityEvent{
		ID:             id,
		TenantID:       "tenant-1",
		SourceType:     "payment_instruction",
		SourceID:       "pi-1",
		ReturnCode:     "R01",
		Reason:         "insufficient funds at receiving bank",
		ErrorOrigin:    domain.OriginRecipient,
		LiabilityParty: domain.PartyRecipient,
		RecoveryPath:   domain.RecoveryPathReclaim,
		RecoveryStatus: status,
		LossAmount:     decimal.NewFromInt(300),
		CreatedAt:      time.Now().UTC(),
	})
}

func TestLiabilityHandler_List(t *testing.T) {
	env := newTestEnv()
	env.seedLiability("li-1", domain.RecoveryStatusPending)
	env.seedLiability("li-2", domain.RecoveryStatusRecovered)
	h := NewLiabilityHandler(env.svc)

	req := newRequest(t, http.MethodGet, "/api/v1/liabilities?status=pending", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp []dto.LiabilityResponse
	decodeBody(t, rec, &resp)
	if len(resp) != 1 || resp[0].ID != "li-1" {
		t.Fatalf("unexpected liabilities: %+v", resp)
	}
}

func TestLiabilityHandler_Get(t *testing.T) {
	env := newTestEnv()
	env.seedLiability("li-1", domain.RecoveryStatusPending)
	h := NewLiabilityHandler(env.svc)

	req := withURLParam(newRequest(t, http.MethodGet, "/api/v1/liabilities/li-1", nil), "id", "li-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.LiabilityResponse
	decodeBody(t, rec, &resp)
	if resp.LiabilityParty != "recipient" || resp.RecoveryPath != "reclaim" {
		t.Fatalf("unexpected liability: %+v", resp)
	}
}

func TestLiabilityHandler_Get_NotFound(t *testing.T) {
	env := newTestEnv()
	h := NewLiabilityHandler(env.svc)

	req := withURLParam(newRequest(t, http.MethodGet, "/api/v1/liabilities/ghost", nil), "id", "ghost")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLiabilityHandler_AdvanceRecovery(t *testing.T) {
	env := newTestEnv()
	env.seedLiability("li-1", domain.RecoveryStatusPending)
	h := NewLiabilityHandler(env.svc)

	req := withURLParam(newRequest(t, http.MethodPost, "/api/v1/liabilities/li-1/recovery", dto.AdvanceRecoveryRequest{
		Status: "recovered",
	}), "id", "li-1")
	rec := httptest.NewRecorder()

	h.AdvanceRecovery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.LiabilityResponse
	decodeBody(t, rec, &resp)
	if resp.RecoveryStatus != "recovered" || resp.ResolvedAt == nil {
		t.Fatalf("unexpected liability: %+v", resp)
	}

	// A resolved liability cannot progress again.
	again := withURLParam(newRequest(t, http.MethodPost, "/api/v1/liabilities/li-1/recovery", dto.AdvanceRecoveryRequest{
		Status: "written_off",
	}), "id", "li-1")
	againRec := httptest.NewRecorder()
	h.AdvanceRecovery(againRec, again)

	if againRec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 on terminal liability, got %d", againRec.Code)
	}
}
