package usecase_test

import (
	"context"
	"testing"

	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/store"
	"brokerage-backoffice/internal/core/usecase"
	"brokerage-backoffice/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func boardService(t *testing.T) (*usecase.BoardService, *mocks.PipelineGateway, *mocks.DealGateway) {
	t.Helper()
	pipelines := &mocks.PipelineGateway{}
	deals := &mocks.DealGateway{}
	pipelines.On("ListPipelines", mock.Anything).Return([]domain.Pipeline{
		{ID: "p1", Name: "Vendas", Stages: []domain.Stage{
			{ID: 2, Name: "Visita", Order: 1},
			{ID: 1, Name: "Contato", Order: 0, Deals: []domain.Deal{{ID: 10, Title: "Casa", Value: 1500, StageID: 1}}},
		}},
		{ID: "p2", Name: "Locação", Stages: []domain.Stage{{ID: 3, Name: "Novo", Order: 0}}},
	}, nil).Once()
	s := store.NewPipelineStore(pipelines, deals, nil, nil)
	return usecase.NewBoardService(s), pipelines, deals
}

func TestBoard_LazyLoadAndRender(t *testing.T) {
	t.Parallel()

	svc, pipelines, _ := boardService(t)
	ctx := context.Background()

	b, err := svc.Board(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "p1", b.PipelineID)
	require.Len(t, b.Columns, 2)
	assert.Equal(t, "Contato", b.Columns[0].Name)
	assert.False(t, b.Columns[0].Empty)
	assert.True(t, b.Columns[1].Empty)
	require.Len(t, b.Pipelines, 2)
	assert.True(t, b.Pipelines[0].Selected)

	other, err := svc.Board(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", other.PipelineID)

	again, err := svc.Board(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "p1", again.PipelineID, "viewing another pipeline does not change the selection")
	pipelines.AssertNumberOfCalls(t, "ListPipelines", 1)
}

func TestBoard_SelectIsLocal(t *testing.T) {
	t.Parallel()

	svc, pipelines, _ := boardService(t)
	ctx := context.Background()

	b, err := svc.Select(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", b.PipelineID)
	pipelines.AssertNumberOfCalls(t, "ListPipelines", 1)

	_, err = svc.Select(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPipelineNotFound)
}

func TestBoard_CreateDealUnshiftsCard(t *testing.T) {
	t.Parallel()

	svc, _, deals := boardService(t)
	ctx := context.Background()

	_, err := svc.CreateDeal(ctx, domain.DealInput{Title: "  ", StageID: 1})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)
	deals.AssertNotCalled(t, "CreateDeal", mock.Anything, mock.Anything)

	deals.On("CreateDeal", mock.Anything, mock.Anything).Return(domain.Deal{ID: 11, Title: "Apto"}, nil).Once()
	_, err = svc.CreateDeal(ctx, domain.DealInput{Title: "Apto", StageID: 1})
	require.NoError(t, err)

	b, err := svc.Board(ctx, "")
	require.NoError(t, err)
	require.Len(t, b.Columns[0].Cards, 2)
	assert.Equal(t, int64(11), b.Columns[0].Cards[0].DealID)
}
