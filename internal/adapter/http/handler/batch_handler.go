package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluxpay/pspcore/internal/adapter/http/dto"
	"github.com/fluxpay/pspcore/internal/psp"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// BatchHandler handles payroll batch HTTP requests.
type BatchHandler struct {
	svc *psp.Service
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(svc *psp.Service) *BatchHandler {
	return &BatchHandler{svc: svc}
}

// Commit runs the commit phase of the funding gate.
func (h *BatchHandler) Commit(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req dto.CommitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	reservation, isNew, err := h.svc.CommitPayrollBatch(r.Context(), req.ToDomain(tenant))
	if err != nil {
		writeError(w, mapDomainError(err), "batch commit failed", err.Error())
		return
	}

	status := http.StatusCreated
	if !isNew {
		status = http.StatusOK
	}

	writeJSON(w, status, dto.ReservationFromDomain(reservation, isNew))
}

// Execute runs the pay phase of a committed batch.
func (h *BatchHandler) Execute(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	batchRef := chi.URLParam(r, "ref")
	if batchRef == "" {
		writeError(w, http.StatusBadRequest, "missing batch reference", "")
		return
	}

	var req dto.ExecuteBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	batch := req.ToDomain(tenant)
	batch.BatchReference = batchRef

	result, err := h.svc.ExecutePayments(r.Context(), usecase.ExecuteInput{
		Batch:             batch,
		ClearingAccountID: req.ClearingAccountID,
		IdempotencyKey:    req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, mapDomainError(err), "batch execution failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ExecuteFromResult(result))
}

// Release voids an active reservation without executing.
func (h *BatchHandler) Release(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	batchRef := chi.URLParam(r, "ref")
	if batchRef == "" {
		writeError(w, http.StatusBadRequest, "missing batch reference", "")
		return
	}

	var req dto.ReleaseBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.svc.ReleaseReservation(r.Context(), tenant, batchRef, req.Reason); err != nil {
		writeError(w, mapDomainError(err), "release failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// GetInstruction retrieves a payment instruction by ID.
func (h *BatchHandler) GetInstruction(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing instruction ID", "")
		return
	}

	instr, err := h.svc.GetInstruction(r.Context(), tenant, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get instruction", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.InstructionFromDomain(instr))
}

// ListInstructions lists a batch's payment instructions.
func (h *BatchHandler) ListInstructions(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	batchRef := chi.URLParam(r, "ref")
	if batchRef == "" {
		writeError(w, http.StatusBadRequest, "missing batch reference", "")
		return
	}

	instructions, err := h.svc.ListInstructionsByBatch(r.Context(), tenant, batchRef)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list instructions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.InstructionsFromDomain(instructions))
}
