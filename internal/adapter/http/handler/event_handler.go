package handler

import (
	"net/http"

	"github.com/fluxpay/pspcore/internal/adapter/http/dto"
	"github.com/fluxpay/pspcore/internal/psp"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// EventHandler handles event log HTTP requests.
type EventHandler struct {
	svc *psp.Service
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc *psp.Service) *EventHandler {
	return &EventHandler{svc: svc}
}

// List pages the tenant's event log in sequence order. The after query
// parameter is the last sequence already seen; name filters by event name.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	events, err := h.svc.ListEvents(r.Context(), usecase.ListEventsInput{
		TenantID:      tenant,
		Name:          r.URL.Query().Get("name"),
		AfterSequence: parseInt64Query(r, "after", 0),
		Limit:         parseIntQuery(r, "limit", 100),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}
