package rest

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/port"
	"brokerage-backoffice/internal/core/port/usecases_port"
	"brokerage-backoffice/internal/core/usecase"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type DealHandler struct {
	dealsUC usecases_port.DealDetailsUseCasePort
}

func NewDealHandler(dealsUC usecases_port.DealDetailsUseCasePort) *DealHandler {
	return &DealHandler{dealsUC: dealsUC}
}

type dealAction func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error)

// serveDealAction - общий путь для действий над открытой сделкой: разобрать ID,
// взять контроллер, выполнить действие и вернуть обновленную карточку.
func (h *DealHandler) serveDealAction(w http.ResponseWriter, r *http.Request, name string, action dealAction) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": name})

	dealID, err := pathInt64(r, "dealID")
	if err != nil {
		logger.Warn("Invalid deal ID in URL", port.Fields{"provided_id": chi.URLParam(r, "dealID")})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	handlerLogger := logger.WithFields(port.Fields{"deal_id": dealID})

	ctrl, err := h.dealsUC.Get(r.Context(), dealID)
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to open deal", err)
		return
	}
	view, err := action(r, ctrl)
	if err != nil {
		writeDomainError(w, handlerLogger, name+" failed", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toDealViewResponse(view))
}

// GetDeal обрабатывает GET /api/v1/deals/{dealID}. Сделка всегда перечитывается с сервера.
func (h *DealHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetDeal"})

	dealID, err := pathInt64(r, "dealID")
	if err != nil {
		logger.Warn("Invalid deal ID in URL", port.Fields{"provided_id": chi.URLParam(r, "dealID")})
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, view, err := h.dealsUC.Open(r.Context(), dealID)
	if err != nil {
		writeDomainError(w, logger.WithFields(port.Fields{"deal_id": dealID}), "Failed to open deal", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toDealViewResponse(view))
}

// DeleteDeal обрабатывает DELETE /api/v1/deals/{dealID}?confirm=true
func (h *DealHandler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "DeleteDeal"})

	dealID, err := pathInt64(r, "dealID")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	handlerLogger := logger.WithFields(port.Fields{"deal_id": dealID})

	ctrl, err := h.dealsUC.Get(r.Context(), dealID)
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to open deal", err)
		return
	}
	if err := ctrl.Delete(r.Context(), confirmed(r)); err != nil {
		writeDomainError(w, handlerLogger, "Failed to delete deal", err)
		return
	}
	h.dealsUC.Forget(dealID)

	handlerLogger.Info("Deal deleted successfully", nil)
	w.WriteHeader(http.StatusNoContent)
}

// CloseDeal обрабатывает DELETE /api/v1/deals/{dealID}/view: сделка закрыта в интерфейсе,
// ее состояние выгружается из памяти. Сделка на сервере не меняется.
func (h *DealHandler) CloseDeal(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathInt64(r, "dealID")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.dealsUC.Forget(dealID)
	w.WriteHeader(http.StatusNoContent)
}

// MarkWon обрабатывает POST /api/v1/deals/{dealID}/won
func (h *DealHandler) MarkWon(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "MarkWon", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		return ctrl.MarkWon(r.Context())
	})
}

// BeginLoss обрабатывает POST /api/v1/deals/{dealID}/loss: открывает выбор причины.
func (h *DealHandler) BeginLoss(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "BeginLoss", func(_ *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		return ctrl.BeginLoss()
	})
}

// CancelLoss обрабатывает DELETE /api/v1/deals/{dealID}/loss
func (h *DealHandler) CancelLoss(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "CancelLoss", func(_ *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		return ctrl.CancelLoss()
	})
}

// ConfirmLoss обрабатывает POST /api/v1/deals/{dealID}/loss/confirm
func (h *DealHandler) ConfirmLoss(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "ConfirmLoss", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		var req LossReasonRequest
		if err := decodeAndValidate(r, &req); err != nil {
			return usecase.DealView{}, badRequest(err)
		}
		return ctrl.ConfirmLoss(r.Context(), req.Reason)
	})
}

// MarkLost обрабатывает POST /api/v1/deals/{dealID}/lost: проигрыш одним запросом.
func (h *DealHandler) MarkLost(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "MarkLost", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		var req LossReasonRequest
		if err := decodeAndValidate(r, &req); err != nil {
			return usecase.DealView{}, badRequest(err)
		}
		return ctrl.MarkLost(r.Context(), req.Reason)
	})
}

// Reopen обрабатывает POST /api/v1/deals/{dealID}/reopen
func (h *DealHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "Reopen", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		return ctrl.Reopen(r.Context())
	})
}

// AddNote обрабатывает POST /api/v1/deals/{dealID}/notes
func (h *DealHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "AddNote", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		var req NoteRequest
		if err := decodeAndValidate(r, &req); err != nil {
			return usecase.DealView{}, badRequest(err)
		}
		return ctrl.AddNote(r.Context(), req.Text)
	})
}

// CreateTask обрабатывает POST /api/v1/deals/{dealID}/tasks
func (h *DealHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "CreateTask", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		var req CreateTaskRequest
		if err := decodeAndValidate(r, &req); err != nil {
			return usecase.DealView{}, badRequest(err)
		}
		return ctrl.CreateTask(r.Context(), req.Title, req.Type, req.Date, req.Time)
	})
}

// ToggleTask обрабатывает POST /api/v1/deals/{dealID}/tasks/{taskID}/toggle
func (h *DealHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "ToggleTask", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		taskID, err := pathInt64(r, "taskID")
		if err != nil {
			return usecase.DealView{}, badRequest(err)
		}
		return ctrl.ToggleTask(r.Context(), taskID)
	})
}

// DeleteTask обрабатывает DELETE /api/v1/deals/{dealID}/tasks/{taskID}?confirm=true
func (h *DealHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "DeleteTask", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		taskID, err := pathInt64(r, "taskID")
		if err != nil {
			return usecase.DealView{}, badRequest(err)
		}
		return ctrl.DeleteTask(r.Context(), taskID, confirmed(r))
	})
}

// SearchListings обрабатывает GET /api/v1/deals/{dealID}/listings/search?q=&page=
func (h *DealHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SearchDealListings"})

	dealID, err := pathInt64(r, "dealID")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	handlerLogger := logger.WithFields(port.Fields{"deal_id": dealID, "page": page})

	ctrl, err := h.dealsUC.Get(r.Context(), dealID)
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to open deal", err)
		return
	}
	result, err := ctrl.SearchListings(r.Context(), keyword, page)
	if err != nil {
		writeDomainError(w, handlerLogger, "Failed to search listings", err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toListingPageResponse(result))
}

// LinkListing обрабатывает POST /api/v1/deals/{dealID}/listings
func (h *DealHandler) LinkListing(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "LinkListing", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		var req LinkListingRequest
		if err := decodeAndValidate(r, &req); err != nil {
			return usecase.DealView{}, badRequest(err)
		}
		return ctrl.LinkListing(r.Context(), req.ListingID)
	})
}

// UnlinkListing обрабатывает DELETE /api/v1/deals/{dealID}/listings/{listingID}?confirm=true
func (h *DealHandler) UnlinkListing(w http.ResponseWriter, r *http.Request) {
	h.serveDealAction(w, r, "UnlinkListing", func(r *http.Request, ctrl *usecase.DealDetailController) (usecase.DealView, error) {
		return ctrl.UnlinkListing(r.Context(), chi.URLParam(r, "listingID"), confirmed(r))
	})
}
