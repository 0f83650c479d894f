package usecases_port

import (
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/usecase"
	"context"
)

type StageConfigUseCasePort interface {
	Draft(pipelineID string) (usecase.StageDraft, error)
	EditStage(pipelineID string, stageID int64, changes domain.StageChanges) (usecase.StageDraft, error)
	Discard(pipelineID string)
	Save(ctx context.Context, pipelineID string) (domain.StageSaveReport, error)
	AddStage(ctx context.Context, pipelineID, name, color string) (domain.Stage, error)
	RemoveStage(ctx context.Context, pipelineID string, stageID int64) error
	CreatePipeline(ctx context.Context, name string) (domain.Pipeline, error)
	RenamePipeline(ctx context.Context, pipelineID, name string) error
	DeletePipeline(ctx context.Context, pipelineID string) error
}
