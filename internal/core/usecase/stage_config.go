package usecase

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// StageStore - операции PipelineStore, которые использует редактор конфигурации.
type StageStore interface {
	Pipeline(pipelineID string) (domain.Pipeline, error)
	ApplyStages(ctx context.Context, pipelineID string, saved []domain.Stage)
	CreatePipeline(ctx context.Context, name string) (domain.Pipeline, error)
	RenamePipeline(ctx context.Context, pipelineID, name string) error
	DeletePipeline(ctx context.Context, pipelineID string) error
	AddStage(ctx context.Context, pipelineID, name, color string) (domain.Stage, error)
	RemoveStage(ctx context.Context, stageID int64) error
}

// DraftStage - этап в черновике с наложенными несохраненными правками.
type DraftStage struct {
	Stage domain.Stage
	Dirty bool
}

// StageDraft - черновик конфигурации одной воронки.
type StageDraft struct {
	PipelineID   string
	PipelineName string
	Stages       []DraftStage
}

type draftEntry struct {
	changes domain.StageChanges
	version uint64
}

// StageConfigEditor буферизует правки этапов и сохраняет их пакетом.
// Черновики общие для всех пользователей бэк-офиса и ведутся по воронке.
type StageConfigEditor struct {
	store       StageStore
	gateway     port.PipelineGatewayPort
	concurrency int

	mu      sync.Mutex
	drafts  map[string]map[int64]draftEntry
	version uint64
}

func NewStageConfigEditor(store StageStore, gateway port.PipelineGatewayPort, concurrency int) *StageConfigEditor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &StageConfigEditor{
		store:       store,
		gateway:     gateway,
		concurrency: concurrency,
		drafts:      make(map[string]map[int64]draftEntry),
	}
}

// Draft возвращает этапы воронки из общего стора с наложенным черновиком.
func (e *StageConfigEditor) Draft(pipelineID string) (StageDraft, error) {
	pipeline, err := e.store.Pipeline(pipelineID)
	if err != nil {
		return StageDraft{}, err
	}

	e.mu.Lock()
	entries := e.drafts[pipelineID]
	draft := StageDraft{PipelineID: pipeline.ID, PipelineName: pipeline.Name}
	for _, st := range pipeline.Stages {
		ds := DraftStage{Stage: st}
		if entry, ok := entries[st.ID]; ok {
			ds.Stage = entry.changes.Apply(st)
			ds.Dirty = true
		}
		ds.Stage.Deals = nil
		draft.Stages = append(draft.Stages, ds)
	}
	e.mu.Unlock()

	sortDraft(draft.Stages)
	return draft, nil
}

func sortDraft(stages []DraftStage) {
	plain := make([]domain.Stage, len(stages))
	byID := make(map[int64]DraftStage, len(stages))
	for i, s := range stages {
		plain[i] = s.Stage
		byID[s.Stage.ID] = s
	}
	for i, s := range domain.SortedStages(plain) {
		stages[i] = byID[s.ID]
	}
}

// EditStage добавляет правки этапа в черновик. Правка, совпадающая с сохраненным состоянием, снимает отметку.
func (e *StageConfigEditor) EditStage(pipelineID string, stageID int64, changes domain.StageChanges) (StageDraft, error) {
	if changes.IsEmpty() {
		return e.Draft(pipelineID)
	}
	if err := changes.Validate(); err != nil {
		return StageDraft{}, err
	}
	pipeline, err := e.store.Pipeline(pipelineID)
	if err != nil {
		return StageDraft{}, err
	}
	idx := pipeline.StageIndex(stageID)
	if idx < 0 {
		return StageDraft{}, domain.ErrStageNotFound
	}
	saved := pipeline.Stages[idx]

	e.mu.Lock()
	entries, ok := e.drafts[pipelineID]
	if !ok {
		entries = make(map[int64]draftEntry)
		e.drafts[pipelineID] = entries
	}
	merged := entries[stageID].changes.Merge(changes)
	if sameStage(merged.Apply(saved), saved) {
		delete(entries, stageID)
	} else {
		e.version++
		entries[stageID] = draftEntry{changes: merged, version: e.version}
	}
	e.mu.Unlock()

	return e.Draft(pipelineID)
}

func sameStage(a, b domain.Stage) bool {
	return a.Name == b.Name && a.Color == b.Color && a.Order == b.Order
}

// Discard сбрасывает черновик воронки.
func (e *StageConfigEditor) Discard(pipelineID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.drafts, pipelineID)
}

type stageOutcome struct {
	stage   domain.Stage
	name    string
	version uint64
	err     error
}

// Save отправляет по одному PATCH на каждый измененный этап, параллельно с ограничением.
// Исход каждого вызова учитывается: подтвержденные этапы попадают в стор и уходят из черновика,
// неудачные остаются в черновике и перечисляются в *domain.StageSaveError.
func (e *StageConfigEditor) Save(ctx context.Context, pipelineID string) (domain.StageSaveReport, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "SaveStages",
		"pipeline_id": pipelineID,
	})

	pipeline, err := e.store.Pipeline(pipelineID)
	if err != nil {
		return domain.StageSaveReport{}, err
	}

	e.mu.Lock()
	var pending []stageOutcome
	for _, st := range pipeline.Stages {
		entry, ok := e.drafts[pipelineID][st.ID]
		if !ok {
			continue
		}
		applied := entry.changes.Apply(st)
		applied.Deals = nil
		pending = append(pending, stageOutcome{stage: applied, name: applied.Name, version: entry.version})
	}
	e.mu.Unlock()

	if len(pending) == 0 {
		return domain.StageSaveReport{PipelineID: pipelineID}, domain.ErrNothingToSave
	}
	logger.Info("Use case started", port.Fields{"changed_stages": len(pending)})

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range pending {
		g.Go(func() error {
			saved, err := e.gateway.UpdateStage(ctx, pending[i].stage)
			if err != nil {
				pending[i].err = err
				return nil
			}
			if saved.ID == 0 {
				saved = pending[i].stage
			}
			pending[i].stage = saved
			return nil
		})
	}
	_ = g.Wait()

	report := domain.StageSaveReport{PipelineID: pipelineID}
	e.mu.Lock()
	for _, out := range pending {
		if out.err != nil {
			report.Failed = append(report.Failed, domain.StageFailure{StageID: out.stage.ID, Name: out.name, Err: out.err})
			continue
		}
		report.Saved = append(report.Saved, out.stage)
		if entries := e.drafts[pipelineID]; entries != nil && entries[out.stage.ID].version == out.version {
			delete(entries, out.stage.ID)
		}
	}
	e.mu.Unlock()

	e.store.ApplyStages(ctx, pipelineID, report.Saved)

	if len(report.Failed) > 0 {
		saveErr := &domain.StageSaveError{Failed: report.Failed}
		logger.Error("Some stages were not saved", saveErr, port.Fields{
			"saved":  len(report.Saved),
			"failed": len(report.Failed),
		})
		return report, saveErr
	}

	logger.Info("Use case finished successfully", port.Fields{"saved": len(report.Saved)})
	return report, nil
}

// AddStage сохраняет новый этап сразу, черновик не используется.
func (e *StageConfigEditor) AddStage(ctx context.Context, pipelineID, name, color string) (domain.Stage, error) {
	return e.store.AddStage(ctx, pipelineID, name, color)
}

// RemoveStage удаляет этап удаленно и убирает его правки из черновика.
func (e *StageConfigEditor) RemoveStage(ctx context.Context, pipelineID string, stageID int64) error {
	pipeline, err := e.store.Pipeline(pipelineID)
	if err != nil {
		return err
	}
	if pipeline.StageIndex(stageID) < 0 {
		return domain.ErrStageNotFound
	}
	if err := e.store.RemoveStage(ctx, stageID); err != nil {
		return fmt.Errorf("failed to remove stage %d: %w", stageID, err)
	}
	e.mu.Lock()
	delete(e.drafts[pipelineID], stageID)
	e.mu.Unlock()
	return nil
}

func (e *StageConfigEditor) CreatePipeline(ctx context.Context, name string) (domain.Pipeline, error) {
	return e.store.CreatePipeline(ctx, name)
}

func (e *StageConfigEditor) RenamePipeline(ctx context.Context, pipelineID, name string) error {
	return e.store.RenamePipeline(ctx, pipelineID, name)
}

// DeletePipeline удаляет воронку вместе с ее черновиком.
func (e *StageConfigEditor) DeletePipeline(ctx context.Context, pipelineID string) error {
	if err := e.store.DeletePipeline(ctx, pipelineID); err != nil {
		return err
	}
	e.Discard(pipelineID)
	return nil
}
