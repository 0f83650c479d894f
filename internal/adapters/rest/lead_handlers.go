package rest

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"brokerage-backoffice/internal/core/port/usecases_port"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type LeadHandler struct {
	leadsUC usecases_port.LeadsUseCasePort
}

func NewLeadHandler(leadsUC usecases_port.LeadsUseCasePort) *LeadHandler {
	return &LeadHandler{leadsUC: leadsUC}
}

func (h *LeadHandler) leadID(w http.ResponseWriter, r *http.Request, logger port.LoggerPort) (int64, bool) {
	id, err := pathInt64(r, "leadID")
	if err != nil {
		logger.Warn("Invalid lead ID in URL", port.Fields{"provided_id": chi.URLParam(r, "leadID")})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// ListLeads обрабатывает GET /api/v1/leads?status=
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	status := domain.LeadStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler": "ListLeads",
		"status":  status,
	})

	leads, err := h.leadsUC.List(r.Context(), status)
	if err != nil {
		writeDomainError(w, logger, "Failed to list leads", err)
		return
	}
	resp := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		resp = append(resp, toLeadResponse(l))
	}
	RespondWithJSON(w, http.StatusOK, resp)
}

// GetLead обрабатывает GET /api/v1/leads/{leadID}
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetLead"})
	id, ok := h.leadID(w, r, logger)
	if !ok {
		return
	}
	lead, err := h.leadsUC.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"lead_id": id}), "Failed to get lead", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toLeadResponse(lead))
}

// CreateLead обрабатывает POST /api/v1/leads
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateLead"})

	var req LeadRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid create lead request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	lead, err := h.leadsUC.Create(r.Context(), req.toInput())
	if err != nil {
		writeDomainError(w, logger, "Failed to create lead", err)
		return
	}
	logger.Info("Lead created successfully", port.Fields{"lead_id": lead.ID})
	RespondWithJSON(w, http.StatusCreated, toLeadResponse(lead))
}

// UpdateLead обрабатывает PUT /api/v1/leads/{leadID}
func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "UpdateLead"})
	id, ok := h.leadID(w, r, logger)
	if !ok {
		return
	}
	handlerLogger := logger.WithFields(port.Fields{"lead_id": id})

	var req LeadRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handlerLogger.Warn("Invalid update lead request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	lead, err := h.leadsUC.Update(r.Context(), id, req.toInput())
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to update lead", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toLeadResponse(lead))
}

// ChangeLeadStatus обрабатывает PATCH /api/v1/leads/{leadID}/status
func (h *LeadHandler) ChangeLeadStatus(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ChangeLeadStatus"})
	id, ok := h.leadID(w, r, logger)
	if !ok {
		return
	}
	handlerLogger := logger.WithFields(port.Fields{"lead_id": id})

	var req LeadStatusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handlerLogger.Warn("Invalid lead status request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := domain.LeadStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := h.leadsUC.ChangeStatus(r.Context(), id, status); err != nil {
		writeDomainError(w, handlerLogger, "Failed to change lead status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteLead обрабатывает DELETE /api/v1/leads/{leadID}?confirm=true
func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "DeleteLead"})
	id, ok := h.leadID(w, r, logger)
	if !ok {
		return
	}
	if err := h.leadsUC.Delete(r.Context(), id, confirmed(r)); err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"lead_id": id}), "Failed to delete lead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConvertLead обрабатывает POST /api/v1/leads/{leadID}/convert
func (h *LeadHandler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ConvertLead"})
	id, ok := h.leadID(w, r, logger)
	if !ok {
		return
	}
	handlerLogger := logger.WithFields(port.Fields{"lead_id": id})

	var req ConvertLeadRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handlerLogger.Warn("Invalid convert lead request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	handlerLogger.Info("Processing request to convert lead", port.Fields{"stage_id": req.StageID})

	deal, err := h.leadsUC.ConvertToDeal(r.Context(), id, req.StageID)
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to convert lead", err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, toDealResponse(deal))
}
