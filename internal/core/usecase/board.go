package usecase

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/board"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
)

// BoardStore - операции PipelineStore, нужные доске.
type BoardStore interface {
	EnsureLoaded(ctx context.Context) error
	Reload(ctx context.Context) error
	Pipelines() ([]domain.Pipeline, error)
	Pipeline(pipelineID string) (domain.Pipeline, error)
	Selected() (domain.Pipeline, error)
	Select(ctx context.Context, pipelineID string) error
	CreateDeal(ctx context.Context, input domain.DealInput) (domain.Deal, error)
}

// BoardService отдает отрисованную доску и принимает создание сделок из колонок.
type BoardService struct {
	store BoardStore
}

func NewBoardService(store BoardStore) *BoardService {
	return &BoardService{store: store}
}

// Board загружает доску при первом обращении и рисует воронку pipelineID
// (пустой ID - выбранная воронка). Выбор при этом не меняется.
func (s *BoardService) Board(ctx context.Context, pipelineID string) (board.Board, error) {
	if err := s.store.EnsureLoaded(ctx); err != nil {
		return board.Board{}, err
	}
	return s.render(pipelineID)
}

// Select делает воронку выбранной по умолчанию. Сетевых вызовов нет.
func (s *BoardService) Select(ctx context.Context, pipelineID string) (board.Board, error) {
	if err := s.store.EnsureLoaded(ctx); err != nil {
		return board.Board{}, err
	}
	if err := s.store.Select(ctx, pipelineID); err != nil {
		return board.Board{}, err
	}
	return s.render("")
}

// Reload перечитывает все воронки с сервера.
func (s *BoardService) Reload(ctx context.Context) (board.Board, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "ReloadBoard"})
	if err := s.store.Reload(ctx); err != nil {
		logger.Error("Failed to reload board", err, nil)
		return board.Board{}, err
	}
	return s.render("")
}

// CreateDeal создает сделку в колонке. Пустой заголовок отклоняется без сетевого вызова.
func (s *BoardService) CreateDeal(ctx context.Context, input domain.DealInput) (domain.Deal, error) {
	if err := s.store.EnsureLoaded(ctx); err != nil {
		return domain.Deal{}, err
	}
	return s.store.CreateDeal(ctx, input)
}

func (s *BoardService) render(pipelineID string) (board.Board, error) {
	var (
		target domain.Pipeline
		err    error
	)
	if pipelineID == "" {
		target, err = s.store.Selected()
	} else {
		target, err = s.store.Pipeline(pipelineID)
	}
	if err != nil {
		return board.Board{}, err
	}
	all, err := s.store.Pipelines()
	if err != nil {
		return board.Board{}, err
	}
	return board.Render(target, all), nil
}
