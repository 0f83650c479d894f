package usecase_test

import (
	"context"
	"errors"
	"testing"

	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/store"
	"brokerage-backoffice/internal/core/usecase"
	"brokerage-backoffice/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func stageEditor(t *testing.T) (*usecase.StageConfigEditor, *store.PipelineStore, *mocks.PipelineGateway) {
	t.Helper()
	gw := &mocks.PipelineGateway{}
	gw.On("ListPipelines", mock.Anything).Return([]domain.Pipeline{{
		ID:   "p1",
		Name: "Vendas",
		Stages: []domain.Stage{
			{ID: 1, Name: "Contato", Color: "#111111", Order: 0, Deals: []domain.Deal{{ID: 50, Title: "Apto", StageID: 1}}},
			{ID: 2, Name: "Visita", Color: "#222222", Order: 1},
			{ID: 3, Name: "Proposta", Color: "#333333", Order: 2},
		},
	}, {ID: "p2", Name: "Locação"}}, nil).Once()

	s := store.NewPipelineStore(gw, &mocks.DealGateway{}, nil, nil)
	require.NoError(t, s.EnsureLoaded(context.Background()))
	return usecase.NewStageConfigEditor(s, gw, 2), s, gw
}

func TestEditStage_ValidatesAndBuffers(t *testing.T) {
	t.Parallel()

	editor, _, gw := stageEditor(t)

	_, err := editor.EditStage("p1", 1, domain.StageChanges{Color: ptr("red")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = editor.EditStage("p1", 1, domain.StageChanges{Name: ptr(" ")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = editor.EditStage("p1", 99, domain.StageChanges{Name: ptr("X")})
	assert.ErrorIs(t, err, domain.ErrStageNotFound)

	draft, err := editor.EditStage("p1", 1, domain.StageChanges{Name: ptr("Primeiro contato")})
	require.NoError(t, err)
	assert.True(t, draft.Stages[0].Dirty)
	assert.Equal(t, "Primeiro contato", draft.Stages[0].Stage.Name)

	draft, err = editor.EditStage("p1", 1, domain.StageChanges{Name: ptr("Contato")})
	require.NoError(t, err)
	assert.False(t, draft.Stages[0].Dirty, "reverting to saved values clears the draft")

	gw.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything)
}

func TestSave_NothingToSave(t *testing.T) {
	t.Parallel()

	editor, _, gw := stageEditor(t)

	_, err := editor.Save(context.Background(), "p1")
	assert.ErrorIs(t, err, domain.ErrNothingToSave)
	gw.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything)
}

func TestSave_OnePatchPerChangedStage(t *testing.T) {
	t.Parallel()

	editor, s, gw := stageEditor(t)
	_, err := editor.EditStage("p1", 1, domain.StageChanges{Name: ptr("Primeiro contato"), Color: ptr("#ABCDEF")})
	require.NoError(t, err)
	_, err = editor.EditStage("p1", 3, domain.StageChanges{Order: ptr(5)})
	require.NoError(t, err)

	first := domain.Stage{ID: 1, Name: "Primeiro contato", Color: "#ABCDEF", Order: 0}
	third := domain.Stage{ID: 3, Name: "Proposta", Color: "#333333", Order: 5}
	gw.On("UpdateStage", mock.Anything, first).Return(first, nil).Once()
	gw.On("UpdateStage", mock.Anything, third).Return(third, nil).Once()

	report, err := editor.Save(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, report.Saved, 2)
	assert.Empty(t, report.Failed)
	gw.AssertNumberOfCalls(t, "UpdateStage", 2)

	p, err := s.Pipeline("p1")
	require.NoError(t, err)
	assert.Equal(t, "Primeiro contato", p.Stages[0].Name)
	assert.Len(t, p.Stages[0].Deals, 1)
	assert.Equal(t, 5, p.Stages[2].Order)

	draft, err := editor.Draft("p1")
	require.NoError(t, err)
	for _, st := range draft.Stages {
		assert.False(t, st.Dirty)
	}
}

func TestSave_PartialFailureNamesFailedStages(t *testing.T) {
	t.Parallel()

	editor, s, gw := stageEditor(t)
	_, err := editor.EditStage("p1", 1, domain.StageChanges{Name: ptr("Contato inicial")})
	require.NoError(t, err)
	_, err = editor.EditStage("p1", 2, domain.StageChanges{Name: ptr("Visita agendada")})
	require.NoError(t, err)

	gw.On("UpdateStage", mock.Anything, mock.MatchedBy(func(st domain.Stage) bool { return st.ID == 1 })).
		Return(domain.Stage{ID: 1, Name: "Contato inicial", Color: "#111111", Order: 0}, nil).Once()
	gw.On("UpdateStage", mock.Anything, mock.MatchedBy(func(st domain.Stage) bool { return st.ID == 2 })).
		Return(domain.Stage{}, errRemote).Once()

	report, err := editor.Save(context.Background(), "p1")

	var saveErr *domain.StageSaveError
	require.True(t, errors.As(err, &saveErr))
	assert.Equal(t, []int64{2}, saveErr.FailedStageIDs())
	assert.Contains(t, saveErr.Error(), "Visita agendada")
	require.Len(t, report.Saved, 1)
	assert.Equal(t, int64(1), report.Saved[0].ID)

	p, _ := s.Pipeline("p1")
	assert.Equal(t, "Contato inicial", p.Stages[0].Name)
	assert.Equal(t, "Visita", p.Stages[1].Name)

	draft, _ := editor.Draft("p1")
	assert.False(t, draft.Stages[0].Dirty)
	assert.True(t, draft.Stages[1].Dirty)
	assert.Equal(t, "Visita agendada", draft.Stages[1].Stage.Name)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	editor, _, _ := stageEditor(t)
	_, err := editor.EditStage("p1", 2, domain.StageChanges{Color: ptr("#000000")})
	require.NoError(t, err)

	editor.Discard("p1")

	draft, _ := editor.Draft("p1")
	assert.Equal(t, "#222222", draft.Stages[1].Stage.Color)
	assert.False(t, draft.Stages[1].Dirty)
}

func TestEditorSharesStoreWithBoard(t *testing.T) {
	t.Parallel()

	editor, s, gw := stageEditor(t)
	gw.On("CreateStage", mock.Anything, "p1", mock.Anything).
		Return(domain.Stage{ID: 4, Name: "Fechamento", Color: domain.DefaultStageColor, Order: 3}, nil).Once()
	gw.On("DeleteStage", mock.Anything, int64(2)).Return(nil).Once()

	_, err := editor.AddStage(context.Background(), "p1", "Fechamento", "")
	require.NoError(t, err)
	require.NoError(t, editor.RemoveStage(context.Background(), "p1", 2))

	p, _ := s.Pipeline("p1")
	ids := make([]int64, 0, len(p.Stages))
	for _, st := range p.Stages {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []int64{1, 3, 4}, ids)

	draft, _ := editor.Draft("p1")
	assert.Len(t, draft.Stages, 3)
}

func TestDeletePipeline_ThroughEditor(t *testing.T) {
	t.Parallel()

	editor, s, gw := stageEditor(t)
	gw.On("DeletePipeline", mock.Anything, "p2").Return(nil).Once()

	require.NoError(t, editor.DeletePipeline(context.Background(), "p2"))
	assert.ErrorIs(t, editor.DeletePipeline(context.Background(), "p1"), domain.ErrLastPipeline)

	all, _ := s.Pipelines()
	assert.Len(t, all, 1)
}
