package store

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"fmt"
	"strings"
	"sync"
)

// PipelineStore - единственный источник правды о воронках, этапах и сделках доски.
// Доска и редактор конфигурации этапов читают и меняют одну и ту же копию,
// а подписчики получают каждое изменение через BoardNotifierPort.
type PipelineStore struct {
	pipelinesAPI port.PipelineGatewayPort
	dealsAPI     port.DealGatewayPort
	notifier     port.BoardNotifierPort
	publisher    port.EventPublisherPort

	// loadMu сериализует загрузку, чтобы самовосстановление пустого аккаунта не создало две воронки.
	loadMu sync.Mutex

	mu         sync.RWMutex
	pipelines  []domain.Pipeline
	selectedID string
	loaded     bool
}

// NewPipelineStore - конструктор. notifier и publisher могут быть nil.
func NewPipelineStore(
	pipelinesAPI port.PipelineGatewayPort,
	dealsAPI port.DealGatewayPort,
	notifier port.BoardNotifierPort,
	publisher port.EventPublisherPort,
) *PipelineStore {
	return &PipelineStore{
		pipelinesAPI: pipelinesAPI,
		dealsAPI:     dealsAPI,
		notifier:     notifier,
		publisher:    publisher,
	}
}

// EnsureLoaded загружает доску, если она еще не загружена.
func (s *PipelineStore) EnsureLoaded(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.load(ctx)
}

// Reload принудительно перечитывает воронки из удаленного API.
func (s *PipelineStore) Reload(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load(ctx)
}

func (s *PipelineStore) load(ctx context.Context) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PipelineStore",
		"method":    "load",
	})

	pipelines, err := s.pipelinesAPI.ListPipelines(ctx)
	if err != nil {
		logger.Error("Failed to fetch pipelines", err, nil)
		return fmt.Errorf("%w: %w", domain.ErrBoardUnavailable, err)
	}

	if len(pipelines) == 0 {
		logger.Warn("No pipelines found, creating default pipeline", port.Fields{"name": domain.DefaultPipelineName})
		created, err := s.pipelinesAPI.CreatePipeline(ctx, domain.DefaultPipelineName)
		if err != nil {
			logger.Error("Failed to create default pipeline", err, nil)
			return fmt.Errorf("%w: failed to create default pipeline: %w", domain.ErrBoardUnavailable, err)
		}
		pipelines = []domain.Pipeline{created}
		s.publish(ctx, domain.NewCRMEvent(domain.EventPipelineCreated, created.ID, 0, map[string]any{"name": created.Name}))
	}

	s.mu.Lock()
	s.pipelines = clonePipelines(pipelines)
	s.loaded = true
	if s.indexOfPipeline(s.selectedID) < 0 {
		s.selectedID = s.pipelines[0].ID
	}
	selected := s.selectedID
	s.mu.Unlock()

	logger.Info("Board loaded", port.Fields{"pipelines": len(pipelines), "selected_pipeline_id": selected})
	s.notify(ctx, domain.EventBoardLoaded, selected, nil)
	return nil
}

// Loaded сообщает, загружена ли доска.
func (s *PipelineStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Pipelines возвращает копию всех воронок.
func (s *PipelineStore) Pipelines() ([]domain.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, domain.ErrBoardNotLoaded
	}
	return clonePipelines(s.pipelines), nil
}

// Pipeline возвращает копию воронки по ID.
func (s *PipelineStore) Pipeline(pipelineID string) (domain.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return domain.Pipeline{}, domain.ErrBoardNotLoaded
	}
	idx := s.indexOfPipeline(pipelineID)
	if idx < 0 {
		return domain.Pipeline{}, domain.ErrPipelineNotFound
	}
	return s.pipelines[idx].Clone(), nil
}

// Selected возвращает копию выбранной воронки.
func (s *PipelineStore) Selected() (domain.Pipeline, error) {
	s.mu.RLock()
	selected := s.selectedID
	s.mu.RUnlock()
	return s.Pipeline(selected)
}

// SelectedID возвращает ID выбранной воронки.
func (s *PipelineStore) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Select - чисто локальная смена выбранной воронки, без I/O.
func (s *PipelineStore) Select(ctx context.Context, pipelineID string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return domain.ErrBoardNotLoaded
	}
	if s.indexOfPipeline(pipelineID) < 0 {
		s.mu.Unlock()
		return domain.ErrPipelineNotFound
	}
	s.selectedID = pipelineID
	s.mu.Unlock()

	s.notify(ctx, domain.EventPipelineSelected, pipelineID, nil)
	return nil
}

// StageOwner возвращает ID воронки, которой принадлежит этап, и копию этапа.
func (s *PipelineStore) StageOwner(stageID int64) (string, domain.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return "", domain.Stage{}, domain.ErrBoardNotLoaded
	}
	pi, si := s.indexOfStage(stageID)
	if pi < 0 {
		return "", domain.Stage{}, domain.ErrStageNotFound
	}
	return s.pipelines[pi].ID, s.pipelines[pi].Stages[si].Clone(), nil
}

// CreatePipeline создает воронку удаленно, добавляет ее в конец списка и выбирает.
func (s *PipelineStore) CreatePipeline(ctx context.Context, name string) (domain.Pipeline, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Pipeline{}, domain.NewValidationError("name", "pipeline name must not be blank")
	}
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PipelineStore",
		"method":    "CreatePipeline",
	})

	created, err := s.pipelinesAPI.CreatePipeline(ctx, name)
	if err != nil {
		logger.Error("Failed to create pipeline", err, port.Fields{"name": name})
		return domain.Pipeline{}, fmt.Errorf("failed to create pipeline: %w", err)
	}

	s.mu.Lock()
	s.pipelines = append(s.pipelines, created.Clone())
	s.selectedID = created.ID
	s.loaded = true
	s.mu.Unlock()

	logger.Info("Pipeline created", port.Fields{"pipeline_id": created.ID})
	s.notify(ctx, domain.EventPipelineCreated, created.ID, nil)
	s.publish(ctx, domain.NewCRMEvent(domain.EventPipelineCreated, created.ID, 0, map[string]any{"name": created.Name}))
	return created.Clone(), nil
}

// RenamePipeline меняет имя оптимистично и откатывает его при ошибке удаленного вызова.
func (s *PipelineStore) RenamePipeline(ctx context.Context, pipelineID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("name", "pipeline name must not be blank")
	}

	err := s.optimistic(ctx, pipelineID, "RenamePipeline",
		func() (undoFunc, error) {
			idx := s.indexOfPipeline(pipelineID)
			if idx < 0 {
				return nil, domain.ErrPipelineNotFound
			}
			previous := s.pipelines[idx].Name
			s.pipelines[idx].Name = name
			return func() {
				if i := s.indexOfPipeline(pipelineID); i >= 0 && s.pipelines[i].Name == name {
					s.pipelines[i].Name = previous
				}
			}, nil
		},
		func(ctx context.Context) error {
			return s.pipelinesAPI.RenamePipeline(ctx, pipelineID, name)
		},
	)
	if err != nil {
		return err
	}

	s.notify(ctx, domain.EventPipelineRenamed, pipelineID, map[string]any{"name": name})
	s.publish(ctx, domain.NewCRMEvent(domain.EventPipelineRenamed, pipelineID, 0, map[string]any{"name": name}))
	return nil
}

// DeletePipeline удаляет воронку. Должно существовать минимум две воронки, иначе вызов не выполняется.
func (s *PipelineStore) DeletePipeline(ctx context.Context, pipelineID string) error {
	err := s.optimistic(ctx, pipelineID, "DeletePipeline",
		func() (undoFunc, error) {
			if len(s.pipelines) < 2 {
				return nil, domain.ErrLastPipeline
			}
			idx := s.indexOfPipeline(pipelineID)
			if idx < 0 {
				return nil, domain.ErrPipelineNotFound
			}
			removed := s.pipelines[idx]
			wasSelected := s.selectedID == pipelineID
			s.pipelines = append(s.pipelines[:idx:idx], s.pipelines[idx+1:]...)
			if wasSelected {
				s.selectedID = s.pipelines[0].ID
			}
			return func() {
				at := min(idx, len(s.pipelines))
				s.pipelines = append(s.pipelines[:at:at], append([]domain.Pipeline{removed}, s.pipelines[at:]...)...)
				if wasSelected {
					s.selectedID = removed.ID
				}
			}, nil
		},
		func(ctx context.Context) error {
			return s.pipelinesAPI.DeletePipeline(ctx, pipelineID)
		},
	)
	if err != nil {
		return err
	}

	s.notify(ctx, domain.EventPipelineDeleted, pipelineID, nil)
	s.publish(ctx, domain.NewCRMEvent(domain.EventPipelineDeleted, pipelineID, 0, nil))
	return nil
}

// AddStage сразу сохраняет этап удаленно (чтобы получить ID) и добавляет его в конец воронки.
func (s *PipelineStore) AddStage(ctx context.Context, pipelineID, name, color string) (domain.Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Stage{}, domain.NewValidationError("name", "stage name must not be blank")
	}
	if color == "" {
		color = domain.DefaultStageColor
	}
	if !domain.IsValidColor(color) {
		return domain.Stage{}, domain.NewValidationError("color", "stage color must be a #RRGGBB hex string")
	}

	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "PipelineStore",
		"method":      "AddStage",
		"pipeline_id": pipelineID,
	})

	s.mu.RLock()
	idx := s.indexOfPipeline(pipelineID)
	var order int
	if idx >= 0 {
		order = s.pipelines[idx].NextStageOrder()
	}
	s.mu.RUnlock()
	if idx < 0 {
		return domain.Stage{}, domain.ErrPipelineNotFound
	}

	created, err := s.pipelinesAPI.CreateStage(ctx, pipelineID, domain.Stage{Name: name, Color: color, Order: order})
	if err != nil {
		logger.Error("Failed to create stage", err, port.Fields{"name": name})
		return domain.Stage{}, fmt.Errorf("failed to create stage: %w", err)
	}
	if created.Deals == nil {
		created.Deals = []domain.Deal{}
	}

	s.mu.Lock()
	if i := s.indexOfPipeline(pipelineID); i >= 0 {
		s.pipelines[i].Stages = append(s.pipelines[i].Stages, created.Clone())
	}
	s.mu.Unlock()

	logger.Info("Stage created", port.Fields{"stage_id": created.ID})
	s.notify(ctx, domain.EventStageCreated, pipelineID, map[string]any{"stage_id": created.ID})
	s.publish(ctx, domain.NewCRMEvent(domain.EventStageCreated, pipelineID, created.ID, map[string]any{"name": created.Name}))
	return created.Clone(), nil
}

// RemoveStage удаляет этап оптимистично и восстанавливает его на прежнем месте при ошибке.
func (s *PipelineStore) RemoveStage(ctx context.Context, stageID int64) error {
	var pipelineID string
	err := s.optimistic(ctx, "", "RemoveStage",
		func() (undoFunc, error) {
			pi, si := s.indexOfStage(stageID)
			if pi < 0 {
				return nil, domain.ErrStageNotFound
			}
			pipelineID = s.pipelines[pi].ID
			removed := s.pipelines[pi].Stages[si]
			stages := s.pipelines[pi].Stages
			s.pipelines[pi].Stages = append(stages[:si:si], stages[si+1:]...)
			return func() {
				i := s.indexOfPipeline(pipelineID)
				if i < 0 {
					return
				}
				cur := s.pipelines[i].Stages
				at := min(si, len(cur))
				s.pipelines[i].Stages = append(cur[:at:at], append([]domain.Stage{removed}, cur[at:]...)...)
			}, nil
		},
		func(ctx context.Context) error {
			return s.pipelinesAPI.DeleteStage(ctx, stageID)
		},
	)
	if err != nil {
		return err
	}

	s.notify(ctx, domain.EventStageDeleted, pipelineID, map[string]any{"stage_id": stageID})
	s.publish(ctx, domain.NewCRMEvent(domain.EventStageDeleted, pipelineID, stageID, nil))
	return nil
}

// ApplyStages накладывает подтвержденные сервером поля этапов (имя, цвет, порядок), сделки сохраняются.
func (s *PipelineStore) ApplyStages(ctx context.Context, pipelineID string, saved []domain.Stage) {
	if len(saved) == 0 {
		return
	}
	s.mu.Lock()
	idx := s.indexOfPipeline(pipelineID)
	if idx >= 0 {
		for _, st := range saved {
			si := s.pipelines[idx].StageIndex(st.ID)
			if si < 0 {
				continue
			}
			cur := &s.pipelines[idx].Stages[si]
			cur.Name = st.Name
			cur.Color = st.Color
			cur.Order = st.Order
		}
	}
	s.mu.Unlock()
	if idx < 0 {
		return
	}
	s.notify(ctx, domain.EventStagesSaved, pipelineID, map[string]any{"stages": len(saved)})
}

// CreateDeal создает сделку в этапе и кладет ее первой в колонку без полной перезагрузки доски.
func (s *PipelineStore) CreateDeal(ctx context.Context, input domain.DealInput) (domain.Deal, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := input.Validate(); err != nil {
		return domain.Deal{}, err
	}
	if _, _, err := s.StageOwner(input.StageID); err != nil {
		return domain.Deal{}, err
	}

	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PipelineStore",
		"method":    "CreateDeal",
		"stage_id":  input.StageID,
	})

	deal, err := s.dealsAPI.CreateDeal(ctx, input)
	if err != nil {
		logger.Error("Failed to create deal", err, nil)
		return domain.Deal{}, fmt.Errorf("failed to create deal: %w", err)
	}
	if deal.StageID == 0 {
		deal.StageID = input.StageID
	}
	if deal.Status == "" {
		deal.Status = domain.DealStatusOpen
	}

	s.InsertDeal(ctx, deal)
	logger.Info("Deal created", port.Fields{"deal_id": deal.ID})
	return deal.Clone(), nil
}

// InsertDeal кладет подтвержденную сервером сделку первой в колонку ее этапа.
func (s *PipelineStore) InsertDeal(ctx context.Context, deal domain.Deal) {
	s.mu.Lock()
	pi, si := s.indexOfStage(deal.StageID)
	var pipelineID string
	if pi >= 0 {
		pipelineID = s.pipelines[pi].ID
		stage := &s.pipelines[pi].Stages[si]
		stage.Deals = append([]domain.Deal{deal.Clone()}, stage.Deals...)
	}
	s.mu.Unlock()
	if pi < 0 {
		return
	}
	s.notify(ctx, domain.EventDealCreated, pipelineID, map[string]any{"deal_id": deal.ID, "stage_id": deal.StageID})
	s.publish(ctx, domain.NewCRMEvent(domain.EventDealCreated, pipelineID, deal.ID, map[string]any{"stage_id": deal.StageID, "title": deal.Title}))
}

// ApplyDealStatus синхронизирует карточку на доске с подтвержденным статусом сделки.
func (s *PipelineStore) ApplyDealStatus(ctx context.Context, dealID int64, status domain.DealStatus, lossReason string) {
	s.mu.Lock()
	pi, si, di := s.indexOfDeal(dealID)
	var pipelineID string
	if pi >= 0 {
		pipelineID = s.pipelines[pi].ID
		d := &s.pipelines[pi].Stages[si].Deals[di]
		d.Status = status
		d.LossReason = lossReason
	}
	s.mu.Unlock()
	if pi < 0 {
		return
	}
	s.notify(ctx, domain.EventDealStatusChanged, pipelineID, map[string]any{"deal_id": dealID, "status": status})
}

// RemoveDeal убирает карточку сделки с доски.
func (s *PipelineStore) RemoveDeal(ctx context.Context, dealID int64) {
	s.mu.Lock()
	pi, si, di := s.indexOfDeal(dealID)
	var pipelineID string
	if pi >= 0 {
		pipelineID = s.pipelines[pi].ID
		deals := s.pipelines[pi].Stages[si].Deals
		s.pipelines[pi].Stages[si].Deals = append(deals[:di:di], deals[di+1:]...)
	}
	s.mu.Unlock()
	if pi < 0 {
		return
	}
	s.notify(ctx, domain.EventDealRemoved, pipelineID, map[string]any{"deal_id": dealID})
}

func clonePipelines(in []domain.Pipeline) []domain.Pipeline {
	out := make([]domain.Pipeline, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
