package rest_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brokerage-backoffice/internal/adapters/inmemory"
	"brokerage-backoffice/internal/adapters/notifier"
	"brokerage-backoffice/internal/adapters/rest"
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/contracts"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/store"
	"brokerage-backoffice/internal/core/usecase"
	"brokerage-backoffice/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	handler   http.Handler
	pipelines *mocks.PipelineGateway
	deals     *mocks.DealGateway
	leads     *mocks.LeadGateway
	listings  *mocks.ListingGateway
	favorites *mocks.FavoritesGateway
	notifier  *notifier.SSENotifier
}

func samplePipelines() []domain.Pipeline {
	return []domain.Pipeline{{
		ID:   "p1",
		Name: "Vendas",
		Stages: []domain.Stage{
			{ID: 1, Name: "Contato", Color: "#111111", Order: 0, Deals: []domain.Deal{
				{ID: 7, Title: "Apto Centro", Value: 350000, Status: domain.DealStatusOpen, StageID: 1},
			}},
			{ID: 2, Name: "Visita", Color: "#222222", Order: 1},
		},
	}, {ID: "p2", Name: "Locação", Stages: []domain.Stage{{ID: 3, Name: "Contato", Color: "#333333"}}}}
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	env := &apiEnv{
		pipelines: &mocks.PipelineGateway{},
		deals:     &mocks.DealGateway{},
		leads:     &mocks.LeadGateway{},
		listings:  &mocks.ListingGateway{},
		favorites: &mocks.FavoritesGateway{},
		notifier:  notifier.NewSSENotifier(contextkeys.NoopLogger()),
	}
	t.Cleanup(env.notifier.Close)

	validator, err := contracts.NewSchemaValidator()
	require.NoError(t, err)

	pipelineStore := store.NewPipelineStore(env.pipelines, env.deals, env.notifier, nil)
	handlers := rest.Handlers{
		Board:       rest.NewBoardHandler(usecase.NewBoardService(pipelineStore), env.notifier),
		Deals:       rest.NewDealHandler(usecase.NewDealDetailRegistry(env.deals, env.listings, pipelineStore, nil, time.UTC)),
		StageConfig: rest.NewStageConfigHandler(usecase.NewStageConfigEditor(pipelineStore, env.pipelines, 2), pipelineStore),
		Leads:       rest.NewLeadHandler(usecase.NewLeadService(env.leads, env.deals, inmemory.NewConversionJournal(), pipelineStore, nil)),
		Listings:    rest.NewListingHandler(usecase.NewListingService(env.listings, nil, validator)),
		Favorites:   rest.NewFavoritesHandler(usecase.NewFavoritesService(env.favorites, env.listings)),
	}
	env.handler = rest.NewRouter(handlers, []string{"http://localhost:5173"}, contextkeys.NoopLogger())
	return env
}

func (e *apiEnv) expectBoard() {
	e.pipelines.On("ListPipelines", mock.Anything).Return(samplePipelines(), nil).Once()
}

func (e *apiEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndTraceHeader(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestGetBoard_LoadsOnceAndRenders(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()

	rec := env.do(t, http.MethodGet, "/api/v1/board", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	b := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "p1", b["pipelineId"])
	columns := b["columns"].([]any)
	require.Len(t, columns, 2)
	first := columns[0].(map[string]any)
	assert.Len(t, first["cards"], 1)
	assert.Equal(t, true, columns[1].(map[string]any)["empty"])

	rec = env.do(t, http.MethodGet, "/api/v1/board?pipeline=p2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p2", decodeBody[map[string]any](t, rec)["pipelineId"])

	env.pipelines.AssertNumberOfCalls(t, "ListPipelines", 1)
}

func TestGetBoard_RemoteFailure(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.pipelines.On("ListPipelines", mock.Anything).Return(nil, domain.ErrRemoteUnavailable).Once()

	rec := env.do(t, http.MethodGet, "/api/v1/board", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decodeBody[map[string]string](t, rec)["error"], "unavailable")
}

func TestSelectPipeline(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()

	rec := env.do(t, http.MethodPut, "/api/v1/board/selection", `{"pipelineId":"p2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "p2", decodeBody[map[string]any](t, rec)["pipelineId"])

	rec = env.do(t, http.MethodPut, "/api/v1/board/selection", `{"pipelineId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/board/selection", `{"pipeline":"p1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestCreateDeal_BlankTitleMakesNoCall(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()

	rec := env.do(t, http.MethodPost, "/api/v1/board/deals", `{"title":"  ","stageId":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.deals.AssertNotCalled(t, "CreateDeal", mock.Anything, mock.Anything)

	env.deals.On("CreateDeal", mock.Anything, mock.MatchedBy(func(in domain.DealInput) bool {
		return in.Title == "Casa Praia" && in.StageID == 2
	})).Return(domain.Deal{ID: 8, Title: "Casa Praia"}, nil).Once()

	rec = env.do(t, http.MethodPost, "/api/v1/board/deals", `{"title":"Casa Praia","stageId":2,"value":1200}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	deal := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(2), deal["stageId"])
	assert.Equal(t, "OPEN", deal["status"])
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.pipelines.On("ListPipelines", mock.MatchedBy(func(ctx context.Context) bool {
		return contextkeys.CredentialFromContext(ctx) == "user-token"
	})).Return(samplePipelines(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/board", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/board", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	env.pipelines.AssertExpectations(t)
}

func TestDealLossFlow(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()
	env.deals.On("GetDeal", mock.Anything, int64(7)).Return(domain.DealDetail{
		Deal: domain.Deal{ID: 7, Title: "Apto Centro", Status: domain.DealStatusOpen, StageID: 1},
	}, nil).Once()

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/board", "").Code)
	rec := env.do(t, http.MethodGet, "/api/v1/deals/7", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/deals/7/lost", `{"reason":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/deals/7/loss/confirm", `{"reason":"Outro"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "confirm without begin")
	env.deals.AssertNotCalled(t, "UpdateDealStatus", mock.Anything, mock.Anything, mock.Anything)

	rec = env.do(t, http.MethodPost, "/api/v1/deals/7/loss", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, view["lossPending"])
	assert.NotEmpty(t, view["lossReasons"])

	change := domain.StatusChange{Status: domain.DealStatusLost, LossReason: "Preço alto"}
	env.deals.On("UpdateDealStatus", mock.Anything, int64(7), change).
		Return(domain.Deal{ID: 7, Status: domain.DealStatusLost, LossReason: "Preço alto"}, nil).Once()

	rec = env.do(t, http.MethodPost, "/api/v1/deals/7/loss/confirm", `{"reason":"Preço alto"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deal := decodeBody[map[string]any](t, rec)["deal"].(map[string]any)
	assert.Equal(t, "LOST", deal["status"])

	rec = env.do(t, http.MethodPost, "/api/v1/deals/7/won", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "LOST -> WON goes through OPEN")

	rec = env.do(t, http.MethodGet, "/api/v1/board", "")
	cards := decodeBody[map[string]any](t, rec)["columns"].([]any)[0].(map[string]any)["cards"].([]any)
	assert.Equal(t, "LOST", cards[0].(map[string]any)["status"], "board card follows the deal")
}

func TestCloseDeal_ReleasesOpenState(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.deals.On("GetDeal", mock.Anything, int64(7)).Return(domain.DealDetail{
		Deal: domain.Deal{ID: 7, Title: "Apto Centro", Status: domain.DealStatusOpen, StageID: 1},
	}, nil).Twice()

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/deals/7", "").Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/deals/7/loss", "").Code)

	rec := env.do(t, http.MethodDelete, "/api/v1/deals/7/view", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	env.deals.AssertNotCalled(t, "DeleteDeal", mock.Anything, mock.Anything)

	rec = env.do(t, http.MethodPost, "/api/v1/deals/7/loss/confirm", `{"reason":"Preço alto"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "closed deal is reloaded without the pending loss")
	env.deals.AssertNumberOfCalls(t, "GetDeal", 2)
	env.deals.AssertNotCalled(t, "UpdateDealStatus", mock.Anything, mock.Anything, mock.Anything)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodDelete, "/api/v1/deals/x/view", "").Code)
}

func TestDeleteTask_RequiresConfirmation(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.deals.On("GetDeal", mock.Anything, int64(7)).Return(domain.DealDetail{
		Deal:  domain.Deal{ID: 7, Status: domain.DealStatusOpen, StageID: 1},
		Tasks: []domain.Task{{ID: 11, Title: "Ligar"}},
	}, nil).Once()
	env.deals.On("DeleteTask", mock.Anything, int64(11)).Return(nil).Once()

	rec := env.do(t, http.MethodDelete, "/api/v1/deals/7/tasks/11", "")
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	env.deals.AssertNotCalled(t, "DeleteTask", mock.Anything, mock.Anything)

	rec = env.do(t, http.MethodDelete, "/api/v1/deals/7/tasks/11?confirm=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeBody[map[string]any](t, rec)["tasks"])

	rec = env.do(t, http.MethodDelete, "/api/v1/deals/7/tasks/abc?confirm=true", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTask_ValidatesDateAndTime(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.deals.On("GetDeal", mock.Anything, int64(7)).Return(domain.DealDetail{
		Deal: domain.Deal{ID: 7, Status: domain.DealStatusOpen, StageID: 1},
	}, nil).Once()

	rec := env.do(t, http.MethodPost, "/api/v1/deals/7/tasks", `{"title":"Ligar","type":"CALL","date":"10/03/2025","time":"14:30"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	due := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	env.deals.On("CreateTask", mock.Anything, int64(7), domain.TaskInput{Title: "Ligar", Type: "CALL", DueAt: due}).
		Return(domain.Task{ID: 20, Title: "Ligar", Type: "CALL", DueAt: due}, nil).Once()

	rec = env.do(t, http.MethodPost, "/api/v1/deals/7/tasks", `{"title":"Ligar","type":"CALL","date":"2025-03-10","time":"14:30"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tasks := decodeBody[map[string]any](t, rec)["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "2025-03-10T14:30:00Z", tasks[0].(map[string]any)["dueAt"])
}

func TestSaveDraft_PartialFailureIsMultiStatus(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()

	rec := env.do(t, http.MethodPatch, "/api/v1/pipelines/p1/draft/stages/1", `{"name":"Primeiro contato"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPatch, "/api/v1/pipelines/p1/draft/stages/2", `{"color":"#00FF00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPatch, "/api/v1/pipelines/p1/draft/stages/2", `{"color":"green"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.pipelines.On("UpdateStage", mock.Anything, mock.MatchedBy(func(s domain.Stage) bool { return s.ID == 1 })).
		Return(domain.Stage{ID: 1, Name: "Primeiro contato", Color: "#111111"}, nil).Once()
	env.pipelines.On("UpdateStage", mock.Anything, mock.MatchedBy(func(s domain.Stage) bool { return s.ID == 2 })).
		Return(domain.Stage{}, domain.ErrRemoteUnavailable).Once()

	rec = env.do(t, http.MethodPost, "/api/v1/pipelines/p1/draft/save", "")
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	report := decodeBody[rest.StageSaveResponse](t, rec)
	require.Len(t, report.Saved, 1)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, int64(2), report.Failed[0].StageID)
	assert.Equal(t, "Visita", report.Failed[0].Name)

	rec = env.do(t, http.MethodGet, "/api/v1/pipelines/p1/draft", "")
	draft := decodeBody[rest.StageDraftResponse](t, rec)
	require.Len(t, draft.Stages, 2)
	assert.False(t, draft.Stages[0].Dirty)
	assert.True(t, draft.Stages[1].Dirty)
}

func TestSaveDraft_NothingToSave(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()

	rec := env.do(t, http.MethodPost, "/api/v1/pipelines/p1/draft/save", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	env.pipelines.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything)
}

func TestDeletePipeline_KeepsLastOne(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()
	env.pipelines.On("DeletePipeline", mock.Anything, "p2").Return(nil).Once()

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/pipelines/p2", "").Code)
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, "/api/v1/pipelines/p1", "").Code)
	env.pipelines.AssertNumberOfCalls(t, "DeletePipeline", 1)
}

func TestConvertLead(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()
	env.leads.On("GetLead", mock.Anything, int64(42)).
		Return(domain.Lead{ID: 42, Name: "Maria", Phone: "1199", Subject: "Casa no Lago", Status: domain.LeadStatusNew}, nil).Once()
	env.deals.On("CreateDeal", mock.Anything, mock.Anything).Return(domain.Deal{ID: 900, Title: "Casa no Lago"}, nil).Once()
	env.leads.On("UpdateLeadStatus", mock.Anything, int64(42), domain.LeadStatusConverted).Return(nil).Once()

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/board", "").Code)

	rec := env.do(t, http.MethodPost, "/api/v1/leads/42/convert", `{"stageId":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(900), decodeBody[map[string]any](t, rec)["id"])

	rec = env.do(t, http.MethodGet, "/api/v1/board", "")
	second := decodeBody[map[string]any](t, rec)["columns"].([]any)[1].(map[string]any)
	assert.Len(t, second["cards"], 1)
}

func TestLeads_StatusFilterAndDelete(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.leads.On("ListLeads", mock.Anything, domain.LeadStatusNew).Return([]domain.Lead{{ID: 1, Name: "Ana", Status: domain.LeadStatusNew}}, nil).Once()

	rec := env.do(t, http.MethodGet, "/api/v1/leads?status=novo", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[[]rest.LeadResponse](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/leads?status=ARQUIVADO", "").Code)
	assert.Equal(t, http.StatusPreconditionRequired, env.do(t, http.MethodDelete, "/api/v1/leads/1", "").Code)
	env.leads.AssertNotCalled(t, "DeleteLead", mock.Anything, mock.Anything)
}

func TestSearchListings_Paging(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.listings.On("SearchListings", mock.Anything, "casa", 2, 12).
		Return(domain.ListingPage{Items: []domain.ListingCard{{ID: "L1", Title: "Casa"}}, Total: 13, Page: 2, PerPage: 12}, nil).Once()

	rec := env.do(t, http.MethodGet, "/api/v1/listings?q=casa&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decodeBody[rest.PaginatedListingsResponse](t, rec)
	assert.Equal(t, int64(13), page.Total)
	require.Len(t, page.Data, 1)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/listings?page=x", "").Code)
}

func TestFavorites(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.favorites.On("AddFavorite", mock.Anything, "L1").Return(nil).Once()
	env.favorites.On("RemoveFavorite", mock.Anything, "L1").Return(domain.ErrNotFound).Once()

	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/favorites", `{"listingId":"L1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/favorites", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/favorites/L1", "").Code)
}

func TestSubscribeToBoard_StreamsPipelineEvents(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	env.expectBoard()
	env.deals.On("CreateDeal", mock.Anything, mock.Anything).Return(domain.Deal{ID: 9, Title: "Sala"}, nil).Once()

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/board", "").Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/board/events?pipeline=p1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return strings.Join(lines, "\n")
			}
			lines = append(lines, line)
		}
	}
	assert.Contains(t, readEvent(), "event: connected")

	rec := env.do(t, http.MethodPost, "/api/v1/board/deals", `{"title":"Sala","stageId":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	event := readEvent()
	assert.Contains(t, event, "event: "+domain.EventDealCreated)
	assert.Contains(t, event, `"pipelineId":"p1"`)
	assert.Contains(t, event, `"title":"Sala"`)
}
