package store

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
)

// undoFunc возвращает локальное состояние к виду до оптимистичного изменения. Вызывается под s.mu.
type undoFunc func()

// optimistic применяет изменение локально, затем выполняет удаленный вызов.
// При ошибке вызова изменение откатывается, подписчики получают board.rolled_back.
func (s *PipelineStore) optimistic(
	ctx context.Context,
	pipelineID, method string,
	apply func() (undoFunc, error),
	remote func(ctx context.Context) error,
) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PipelineStore",
		"method":    method,
	})

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return domain.ErrBoardNotLoaded
	}
	undo, err := apply()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := remote(ctx); err != nil {
		s.mu.Lock()
		undo()
		s.mu.Unlock()
		logger.Error("Remote call failed, local change rolled back", err, port.Fields{"pipeline_id": pipelineID})
		s.notify(ctx, domain.EventStateRolledBack, pipelineID, map[string]any{"operation": method})
		return err
	}
	logger.Debug("Remote call confirmed local change", port.Fields{"pipeline_id": pipelineID})
	return nil
}

func (s *PipelineStore) notify(ctx context.Context, eventType, pipelineID string, detail map[string]any) {
	if s.notifier == nil {
		return
	}
	event := port.BoardEvent{Type: eventType, PipelineID: pipelineID, Detail: detail}
	s.mu.RLock()
	if idx := s.indexOfPipeline(pipelineID); idx >= 0 {
		snapshot := s.pipelines[idx].Clone()
		event.Pipeline = &snapshot
	}
	s.mu.RUnlock()
	s.notifier.Notify(ctx, event)
}

func (s *PipelineStore) publish(ctx context.Context, event domain.CRMEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		contextkeys.LoggerFromContext(ctx).Warn("Failed to publish CRM event", port.Fields{
			"event_type": event.Type,
			"error":      err.Error(),
		})
	}
}

func (s *PipelineStore) indexOfPipeline(pipelineID string) int {
	for i := range s.pipelines {
		if s.pipelines[i].ID == pipelineID {
			return i
		}
	}
	return -1
}

func (s *PipelineStore) indexOfStage(stageID int64) (int, int) {
	for pi := range s.pipelines {
		if si := s.pipelines[pi].StageIndex(stageID); si >= 0 {
			return pi, si
		}
	}
	return -1, -1
}

func (s *PipelineStore) indexOfDeal(dealID int64) (int, int, int) {
	for pi := range s.pipelines {
		for si := range s.pipelines[pi].Stages {
			for di, d := range s.pipelines[pi].Stages[si].Deals {
				if d.ID == dealID {
					return pi, si, di
				}
			}
		}
	}
	return -1, -1, -1
}
