package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/adapter/http/dto"
)

func TestLedgerHandler_PostEntries(t *testing.T) {
	env := newTestEnv()
	env.fund("a", 500)
	env.fund("b", 0)
	h := NewLedgerHandler(env.svc)

	req := newRequest(t, http.MethodPost, "/api/v1/entries", dto.PostEntriesRequest{
		IdempotencyKey: "post-1",
		Entries: []dto.EntryLeg{
			{DebitAccountID: "a", CreditAccountID: "b", EntryType: "adjustment", Amount: decimal.NewFromInt(100)},
		},
	})
	rec := httptest.NewRecorder()

	h.PostEntries(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string][]string
	decodeBody(t, rec, &resp)
	if len(resp["entry_ids"]) != 1 {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestLedgerHandler_PostEntries_RejectsZeroAmount(t *testing.T) {
	env := newTestEnv()
	env.fund("a", 500)
	env.fund("b", 0)
	h := NewLedgerHandler(env.svc)

	req := newRequest(t, http.MethodPost, "/api/v1/entries", dto.PostEntriesRequest{
		IdempotencyKey: "post-1",
		Entries: []dto.EntryLeg{
			{DebitAccountID: "a", CreditAccountID: "b", EntryType: "adjustment", Amount: decimal.Zero},
		},
	})
	rec := httptest.NewRecorder()

	h.PostEntries(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLedgerHandler_Reverse(t *testing.T) {
	env := newTestEnv()
	env.fund("a", 500)
	env.fund("b", 0)
	h := NewLedgerHandler(env.svc)

	post := newRequest(t, http.MethodPost, "/api/v1/entries", dto.PostEntriesRequest{
		IdempotencyKey: "post-1",
		Entries: []dto.EntryLeg{
			{DebitAccountID: "a", CreditAccountID: "b", EntryType: "adjustment", Amount: decimal.NewFromInt(100)},
		},
	})
	postRec := httptest.NewRecorder()
	h.PostEntries(postRec, post)

	var posted map[string][]string
	decodeBody(t, postRec, &posted)
	entryID := posted["entry_ids"][0]

	req := withURLParam(newRequest(t, http.MethodPost, "/api/v1/entries/"+entryID+"/reverse", dto.ReverseEntryRequest{
		IdempotencyKey: "rev-1",
		Reason:         "operator correction",
	}), "id", entryID)
	rec := httptest.NewRecorder()

	h.Reverse(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Reversing the same entry under a new key is rejected.
	again := withURLParam(newRequest(t, http.MethodPost, "/api/v1/entries/"+entryID+"/reverse", dto.ReverseEntryRequest{
		IdempotencyKey: "rev-2",
	}), "id", entryID)
	againRec := httptest.NewRecorder()
	h.Reverse(againRec, again)

	if againRec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 on second reversal, got %d", againRec.Code)
	}
}

func TestLedgerHandler_Consistency(t *testing.T) {
	env := newTestEnv()
	h := NewLedgerHandler(env.svc)

	req := newRequest(t, http.MethodGet, "/api/v1/ledger/consistency", nil)
	rec := httptest.NewRecorder()

	h.Consistency(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["status"] != "consistent" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestLedgerHandler_ListEntries(t *testing.T) {
	env := newTestEnv()
	env.fund("a", 500)
	h := NewLedgerHandler(env.svc)

	req := withURLParam(newRequest(t, http.MethodGet, "/api/v1/accounts/a/entries", nil), "id", "a")
	rec := httptest.NewRecorder()

	h.ListEntries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp []dto.EntryResponse
	decodeBody(t, rec, &resp)
	if len(resp) != 1 {
		t.Fatalf("got %d entries, want 1", len(resp))
	}
}
