package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluxpay/pspcore/internal/adapter/http/dto"
	"github.com/fluxpay/pspcore/internal/psp"
)

// SettlementHandler handles settlement feed and provider callback requests.
type SettlementHandler struct {
	svc *psp.Service
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(svc *psp.Service) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

// Ingest applies a provider settlement feed.
func (h *SettlementHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req dto.IngestFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "missing provider", "")
		return
	}

	result, err := h.svc.IngestSettlementFeed(r.Context(), req.ToUseCaseInput(tenant))
	if err != nil {
		writeError(w, mapDomainError(err), "feed ingestion failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.IngestFromResult(result))
}

// Callback applies a provider-pushed status change.
func (h *SettlementHandler) Callback(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	provider := chi.URLParam(r, "name")
	if provider == "" {
		writeError(w, http.StatusBadRequest, "missing provider name", "")
		return
	}

	var req dto.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.svc.HandleProviderCallback(r.Context(), req.ToUseCaseInput(tenant, provider)); err != nil {
		writeError(w, mapDomainError(err), "callback failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// ListUnmatched lists feed records that matched no instruction.
func (h *SettlementHandler) ListUnmatched(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	records, err := h.svc.ListUnmatchedSettlements(
		r.Context(),
		tenant,
		parseIntQuery(r, "limit", 50),
		parseIntQuery(r, "offset", 0),
	)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list unmatched records", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementRecordsFromDomain(records))
}
