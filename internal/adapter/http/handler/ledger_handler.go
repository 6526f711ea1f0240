package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluxpay/pspcore/internal/adapter/http/dto"
	"github.com/fluxpay/pspcore/internal/psp"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// LedgerHandler handles direct ledger HTTP requests.
type LedgerHandler struct {
	svc *psp.Service
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc *psp.Service) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// PostEntries posts a balanced entry group, for funding top-ups and manual
// adjustments.
func (h *LedgerHandler) PostEntries(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req dto.PostEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ids, err := h.svc.PostBalancedEntries(r.Context(), req.ToUseCaseInput(tenant))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to post entries", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"entry_ids": ids})
}

// Reverse posts a compensating entry for an existing one.
func (h *LedgerHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	entryID := chi.URLParam(r, "id")
	if entryID == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.ReverseEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	reversalID, err := h.svc.ReverseEntry(r.Context(), usecase.ReverseInput{
		TenantID:       tenant,
		EntryID:        entryID,
		IdempotencyKey: req.IdempotencyKey,
		Reason:         req.Reason,
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reverse entry", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"reversal_entry_id": reversalID})
}

// ListEntries lists the entries touching an account.
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	entries, err := h.svc.ListEntriesByAccount(r.Context(), usecase.ListEntriesByAccountInput{
		TenantID:  tenant,
		AccountID: accountID,
		Limit:     parseIntQuery(r, "limit", 50),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Consistency verifies the tenant's ledger nets to zero.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	if err := h.svc.CheckConsistency(r.Context(), tenant); err != nil {
		writeError(w, mapDomainError(err), "ledger inconsistent", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "consistent"})
}
