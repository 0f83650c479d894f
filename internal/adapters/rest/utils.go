package rest

import (
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteJSONError отправляет JSON-ответ с полем "error" и заданным статусом.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, map[string]string{"error": message})
}

// RespondWithJSON отправляет JSON-ответ.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// decodeAndValidate читает тело запроса и проверяет теги validate.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationMessage(err)
	}
	return nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("field '%s' is required", fe.Field())
	case "hexcolor":
		return fmt.Errorf("field '%s' must be a #RRGGBB color", fe.Field())
	case "oneof":
		return fmt.Errorf("field '%s' must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("field '%s' failed '%s' validation", fe.Field(), fe.Tag())
	}
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid '%s' path parameter", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid '%s' query parameter", name)
	}
	return v, nil
}

// confirmed - явное подтверждение разрушающего действия: ?confirm=true.
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

// requestError - ошибка разбора запроса, отдается как 400.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// statusForError сопоставляет доменную ошибку с HTTP-статусом.
func statusForError(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrPipelineNotFound),
		errors.Is(err, domain.ErrStageNotFound),
		errors.Is(err, domain.ErrDealNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrListingNotLinked):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrLossReasonRequired),
		errors.Is(err, domain.ErrEmptyNote):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrLossNotStarted),
		errors.Is(err, domain.ErrLastPipeline),
		errors.Is(err, domain.ErrNothingToSave):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBoardNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrBoardUnavailable), errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeDomainError логирует ошибку с уровнем по статусу и отвечает клиенту.
func writeDomainError(w http.ResponseWriter, logger port.LoggerPort, msg string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, err, port.Fields{"status_code": status})
	} else {
		logger.Warn(msg, port.Fields{"status_code": status, "error": err.Error()})
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	WriteJSONError(w, status, message)
}
