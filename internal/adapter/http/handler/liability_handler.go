package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluxpay/pspcore/internal/adapter/http/dto"
	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/psp"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// LiabilityHandler handles liability event HTTP requests.
type LiabilityHandler struct {
	svc *psp.Service
}

// NewLiabilityHandler creates a new LiabilityHandler.
func NewLiabilityHandler(svc *psp.Service) *LiabilityHandler {
	return &LiabilityHandler{svc: svc}
}

// List lists liability events, optionally filtered by recovery status.
func (h *LiabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	events, err := h.svc.ListLiabilities(r.Context(), usecase.ListLiabilitiesInput{
		TenantID: tenant,
		Status:   domain.RecoveryStatus(r.URL.Query().Get("status")),
		Limit:    parseIntQuery(r, "limit", 50),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list liabilities", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LiabilitiesFromDomain(events))
}

// Get retrieves a liability event by ID.
func (h *LiabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing liability ID", "")
		return
	}

	event, err := h.svc.GetLiability(r.Context(), tenant, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get liability", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LiabilityFromDomain(event))
}

// AdvanceRecovery progresses a liability event's recovery status.
func (h *LiabilityHandler) AdvanceRecovery(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing liability ID", "")
		return
	}

	var req dto.AdvanceRecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	event, err := h.svc.AdvanceRecovery(r.Context(), tenant, id, domain.RecoveryStatus(req.Status))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to advance recovery", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LiabilityFromDomain(event))
}
