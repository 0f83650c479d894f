package rest

import (
	"brokerage-backoffice/internal/adapters/notifier"
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"brokerage-backoffice/internal/core/port/usecases_port"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const sseKeepAliveInterval = 15 * time.Second

type BoardHandler struct {
	boardUC  usecases_port.BoardUseCasePort
	notifier *notifier.SSENotifier
}

func NewBoardHandler(boardUC usecases_port.BoardUseCasePort, notifier *notifier.SSENotifier) *BoardHandler {
	return &BoardHandler{
		boardUC:  boardUC,
		notifier: notifier,
	}
}

// GetBoard обрабатывает GET /api/v1/board?pipeline=
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	pipelineID := strings.TrimSpace(r.URL.Query().Get("pipeline"))
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":     "GetBoard",
		"pipeline_id": pipelineID,
	})

	b, err := h.boardUC.Board(r.Context(), pipelineID)
	if err != nil {
		writeDomainError(w, logger, "Failed to render board", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, b)
}

// ReloadBoard обрабатывает POST /api/v1/board/reload
func (h *BoardHandler) ReloadBoard(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ReloadBoard"})
	logger.Info("Processing request to reload board", nil)

	b, err := h.boardUC.Reload(r.Context())
	if err != nil {
		writeDomainError(w, logger, "Failed to reload board", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, b)
}

// SelectPipeline обрабатывает PUT /api/v1/board/selection
func (h *BoardHandler) SelectPipeline(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SelectPipeline"})

	var req SelectPipelineRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid select pipeline request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.boardUC.Select(r.Context(), req.PipelineID)
	if err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"pipeline_id": req.PipelineID}), "Failed to select pipeline", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, b)
}

// CreateDeal обрабатывает POST /api/v1/board/deals
func (h *BoardHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateDeal"})

	var req CreateDealRequest
	if err := decodeAndValidate(r, &req); err != nil {
		logger.Warn("Invalid create deal request", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"stage_id": req.StageID})
	handlerLogger.Info("Processing request to create deal", nil)

	deal, err := h.boardUC.CreateDeal(r.Context(), domain.DealInput{
		Title:       req.Title,
		Value:       req.Value,
		ContactName: req.ContactName,
		Priority:    req.Priority,
		StageID:     req.StageID,
	})
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to create deal", err)
		return
	}

	handlerLogger.Info("Deal created successfully", port.Fields{"deal_id": deal.ID})
	RespondWithJSON(w, http.StatusCreated, toDealResponse(deal))
}

// SubscribeToBoard - обработчик для GET /api/v1/board/events?pipeline=
// Без параметра подписка идет на все воронки.
func (h *BoardHandler) SubscribeToBoard(w http.ResponseWriter, r *http.Request) {
	pipelineID := strings.TrimSpace(r.URL.Query().Get("pipeline"))
	if pipelineID == "" {
		pipelineID = notifier.AllPipelines
	}
	handlerLogger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler":     "SubscribeToBoard",
		"pipeline_id": pipelineID,
	})

	flusher, ok := w.(http.Flusher)
	if !ok {
		handlerLogger.Error("Streaming is not supported by response writer", nil, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	handlerLogger.Info("New client subscribing to board events", nil)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := h.notifier.AddClient(pipelineID)
	defer h.notifier.RemoveClient(pipelineID, clientChan)

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-clientChan:
			if _, err := w.Write(data); err != nil {
				handlerLogger.Error("Error writing to client, closing SSE connection", err, nil)
				return
			}
			flusher.Flush()
			handlerLogger.Debug("Sent board event to client", nil)

		case <-ticker.C:
			// строки с двоеточия - комментарии SSE, клиентский код их не видит
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-h.notifier.Done():
			handlerLogger.Info("Notifier stopped, closing SSE connection", nil)
			return

		case <-r.Context().Done():
			handlerLogger.Info("SSE client disconnected", nil)
			return
		}
	}
}
