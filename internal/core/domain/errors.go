package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("remote api rejected credentials")
	ErrRemoteUnavailable    = errors.New("remote api unavailable")
	ErrBoardUnavailable     = errors.New("board could not be loaded")
	ErrBoardNotLoaded       = errors.New("board is not loaded yet")
	ErrPipelineNotFound     = errors.New("pipeline not found")
	ErrStageNotFound        = errors.New("stage not found")
	ErrDealNotFound         = errors.New("deal not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrListingNotLinked     = errors.New("listing is not linked to deal")
	ErrLastPipeline         = errors.New("at least two pipelines must exist to delete one")
	ErrTitleRequired        = errors.New("title is required")
	ErrLossReasonRequired   = errors.New("loss reason is required to mark a deal as lost")
	ErrInvalidTransition    = errors.New("invalid deal status transition")
	ErrLossNotStarted       = errors.New("loss flow was not started")
	ErrEmptyNote            = errors.New("note text must not be empty")
	ErrConfirmationRequired = errors.New("action requires explicit confirmation")
	ErrNothingToSave        = errors.New("draft has no changes")
	ErrValidation           = errors.New("validation failed")
)

// ValidationError - ошибка валидации конкретного поля.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap позволяет проверять errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

// StageFailure - результат неудачного сохранения одного этапа.
type StageFailure struct {
	StageID int64
	Name    string
	Err     error
}

// StageSaveReport - поэтапный итог пакетного сохранения.
type StageSaveReport struct {
	PipelineID string
	Saved      []Stage
	Failed     []StageFailure
}

// StageSaveError называет каждый этап, который не удалось сохранить.
type StageSaveError struct {
	Failed []StageFailure
}

func (e *StageSaveError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("stage %d (%q): %v", f.StageID, f.Name, f.Err))
	}
	return "failed to save " + strings.Join(parts, "; ")
}

// FailedStageIDs возвращает идентификаторы этапов, которые не сохранились.
func (e *StageSaveError) FailedStageIDs() []int64 {
	ids := make([]int64, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.StageID)
	}
	return ids
}
