package rest

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"brokerage-backoffice/internal/core/port/usecases_port"
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// BoardLoader - ленивая загрузка общего стора перед работой с конфигурацией.
type BoardLoader interface {
	EnsureLoaded(ctx context.Context) error
}

type StageConfigHandler struct {
	editorUC usecases_port.StageConfigUseCasePort
	loader   BoardLoader
}

func NewStageConfigHandler(editorUC usecases_port.StageConfigUseCasePort, loader BoardLoader) *StageConfigHandler {
	return &StageConfigHandler{
		editorUC: editorUC,
		loader:   loader,
	}
}

// pipelineScope разбирает {pipelineID} и гарантирует загруженный стор.
func (h *StageConfigHandler) pipelineScope(w http.ResponseWriter, r *http.Request, name string) (string, port.LoggerPort, bool) {
	pipelineID := chi.URLParam(r, "pipelineID")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":     name,
		"pipeline_id": pipelineID,
	})
	if err := h.loader.EnsureLoaded(r.Context()); err != nil {
		writeDomainError(w, logger, "Board is not available", err)
		return "", nil, false
	}
	return pipelineID, logger, true
}

// CreatePipeline обрабатывает POST /api/v1/pipelines
func (h *StageConfigHandler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreatePipeline"})

	var req PipelineNameRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid create pipeline request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.loader.EnsureLoaded(r.Context()); err != nil {
		writeDomainError(w, logger, "Board is not available", err)
		return
	}

	pipeline, err := h.editorUC.CreatePipeline(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, logger, "Failed to create pipeline", err)
		return
	}
	logger.Info("Pipeline created successfully", port.Fields{"pipeline_id": pipeline.ID})
	RespondWithJSON(w, http.StatusCreated, toPipelineResponse(pipeline))
}

// RenamePipeline обрабатывает PATCH /api/v1/pipelines/{pipelineID}
func (h *StageConfigHandler) RenamePipeline(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "RenamePipeline")
	if !ok {
		return
	}

	var req PipelineNameRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid rename pipeline request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.editorUC.RenamePipeline(r.Context(), pipelineID, req.Name); err != nil {
		writeDomainError(w, logger, "Failed to rename pipeline", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePipeline обрабатывает DELETE /api/v1/pipelines/{pipelineID}
func (h *StageConfigHandler) DeletePipeline(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "DeletePipeline")
	if !ok {
		return
	}
	if err := h.editorUC.DeletePipeline(r.Context(), pipelineID); err != nil {
		writeDomainError(w, logger, "Failed to delete pipeline", err)
		return
	}
	logger.Info("Pipeline deleted successfully", nil)
	w.WriteHeader(http.StatusNoContent)
}

// GetDraft обрабатывает GET /api/v1/pipelines/{pipelineID}/draft
func (h *StageConfigHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "GetDraft")
	if !ok {
		return
	}
	draft, err := h.editorUC.Draft(pipelineID)
	if err != nil {
		writeDomainError(w, logger, "Failed to read stage draft", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toDraftResponse(draft))
}

// EditStage обрабатывает PATCH /api/v1/pipelines/{pipelineID}/draft/stages/{stageID}
func (h *StageConfigHandler) EditStage(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "EditStage")
	if !ok {
		return
	}
	stageID, err := pathInt64(r, "stageID")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req EditStageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid edit stage request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := h.editorUC.EditStage(pipelineID, stageID, req.toChanges())
	if err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"stage_id": stageID}), "Failed to edit stage", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toDraftResponse(draft))
}

// DiscardDraft обрабатывает DELETE /api/v1/pipelines/{pipelineID}/draft
func (h *StageConfigHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "DiscardDraft")
	if !ok {
		return
	}
	h.editorUC.Discard(pipelineID)
	draft, err := h.editorUC.Draft(pipelineID)
	if err != nil {
		writeDomainError(w, logger, "Failed to read stage draft", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toDraftResponse(draft))
}

// SaveDraft обрабатывает POST /api/v1/pipelines/{pipelineID}/draft/save.
// Частичный сбой отдается как 207 с перечнем несохраненных этапов.
func (h *StageConfigHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "SaveDraft")
	if !ok {
		return
	}
	logger.Info("Processing request to save stage draft", nil)

	report, err := h.editorUC.Save(r.Context(), pipelineID)
	var saveErr *domain.StageSaveError
	switch {
	case errors.As(err, &saveErr):
		logger.Warn("Stage draft saved partially", port.Fields{"failed_stage_ids": saveErr.FailedStageIDs()})
		RespondWithJSON(w, http.StatusMultiStatus, toStageSaveResponse(report))
	case err != nil:
		writeDomainError(w, logger, "Failed to save stage draft", err)
	default:
		RespondWithJSON(w, http.StatusOK, toStageSaveResponse(report))
	}
}

// AddStage обрабатывает POST /api/v1/pipelines/{pipelineID}/stages
func (h *StageConfigHandler) AddStage(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "AddStage")
	if !ok {
		return
	}

	var req CreateStageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid add stage request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	stage, err := h.editorUC.AddStage(r.Context(), pipelineID, req.Name, req.Color)
	if err != nil {
		writeDomainError(w, logger, "Failed to add stage", err)
		return
	}
	logger.Info("Stage added successfully", port.Fields{"stage_id": stage.ID})
	RespondWithJSON(w, http.StatusCreated, toStageResponse(stage))
}

// RemoveStage обрабатывает DELETE /api/v1/pipelines/{pipelineID}/stages/{stageID}
func (h *StageConfigHandler) RemoveStage(w http.ResponseWriter, r *http.Request) {
	pipelineID, logger, ok := h.pipelineScope(w, r, "RemoveStage")
	if !ok {
		return
	}
	stageID, err := pathInt64(r, "stageID")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.editorUC.RemoveStage(r.Context(), pipelineID, stageID); err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"stage_id": stageID}), "Failed to remove stage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
