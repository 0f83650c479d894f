package rest

import (
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/usecase"
	"time"
)

// --- запросы ---

type SelectPipelineRequest struct {
	PipelineID string `json:"pipelineId" validate:"required"`
}

type CreateDealRequest struct {
	Title       string  `json:"title"`
	Value       float64 `json:"value" validate:"gte=0"`
	ContactName string  `json:"contactName"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	StageID     int64   `json:"stageId" validate:"required,gt=0"`
}

type PipelineNameRequest struct {
	Name string `json:"name" validate:"required"`
}

type CreateStageRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"omitempty,hexcolor,len=7"`
}

type EditStageRequest struct {
	Name  *string `json:"name" validate:"omitempty"`
	Color *string `json:"color" validate:"omitempty,hexcolor,len=7"`
	Order *int    `json:"order" validate:"omitempty,gte=0"`
}

type LossReasonRequest struct {
	Reason string `json:"reason"`
}

type NoteRequest struct {
	Text string `json:"text"`
}

type CreateTaskRequest struct {
	Title string `json:"title" validate:"required"`
	Type  string `json:"type"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Time  string `json:"time" validate:"required,datetime=15:04"`
}

type LinkListingRequest struct {
	ListingID string `json:"listingId" validate:"required"`
}

type LeadRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Context string `json:"context"`
	Message string `json:"message"`
	Notes   string `json:"notes"`
	Status  string `json:"status"`
}

type LeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ConvertLeadRequest struct {
	StageID int64 `json:"stageId" validate:"required,gt=0"`
}

type ReorderImagesRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,dive,required"`
}

type FavoriteRequest struct {
	ListingID string `json:"listingId" validate:"required"`
}

func (r LeadRequest) toInput() domain.LeadInput {
	return domain.LeadInput{
		Name:    r.Name,
		Phone:   r.Phone,
		Email:   r.Email,
		Subject: r.Subject,
		Context: r.Context,
		Message: r.Message,
		Notes:   r.Notes,
		Status:  domain.LeadStatus(r.Status),
	}
}

func (r EditStageRequest) toChanges() domain.StageChanges {
	return domain.StageChanges{Name: r.Name, Color: r.Color, Order: r.Order}
}

// --- ответы ---

type DealResponse struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Value       float64           `json:"value"`
	ContactName string            `json:"contactName,omitempty"`
	Status      domain.DealStatus `json:"status"`
	LossReason  string            `json:"lossReason,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	StageID     int64             `json:"stageId"`
	LeadID      *int64            `json:"leadId,omitempty"`
	CreatedAt   *string           `json:"createdAt,omitempty"`
}

type HistoryResponse struct {
	ID          int64              `json:"id"`
	Type        domain.HistoryType `json:"type"`
	Description string             `json:"description"`
	CreatedAt   string             `json:"createdAt"`
	Author      *string            `json:"author,omitempty"`
}

type TaskResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	DueAt     string `json:"dueAt"`
	Completed bool   `json:"completed"`
}

type ListingCardResponse struct {
	ID           string                `json:"id"`
	Code         string                `json:"code,omitempty"`
	Title        string                `json:"title"`
	Price        float64               `json:"price"`
	Purpose      domain.ListingPurpose `json:"purpose,omitempty"`
	Status       domain.ListingStatus  `json:"status,omitempty"`
	Neighborhood string                `json:"neighborhood,omitempty"`
	City         string                `json:"city,omitempty"`
	CoverImage   string                `json:"coverImage,omitempty"`
}

type DealViewResponse struct {
	Deal        DealResponse          `json:"deal"`
	History     []HistoryResponse     `json:"history"`
	Tasks       []TaskResponse        `json:"tasks"`
	Listings    []ListingCardResponse `json:"listings"`
	LossPending bool                  `json:"lossPending"`
	LossReasons []string              `json:"lossReasons"`
}

type PaginatedListingsResponse struct {
	Data    []ListingCardResponse `json:"data"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"perPage"`
}

type FavoritesResponse struct {
	Data         []ListingCardResponse `json:"data"`
	TotalCount   int64                 `json:"totalCount"`
	CurrentPage  int                   `json:"currentPage"`
	ItemsPerPage int                   `json:"itemsPerPage"`
}

type StageResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

type PipelineResponse struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Stages []StageResponse `json:"stages"`
}

type DraftStageResponse struct {
	StageResponse
	Dirty bool `json:"dirty"`
}

type StageDraftResponse struct {
	PipelineID   string               `json:"pipelineId"`
	PipelineName string               `json:"pipelineName"`
	Stages       []DraftStageResponse `json:"stages"`
}

type StageFailureResponse struct {
	StageID int64  `json:"stageId"`
	Name    string `json:"name"`
	Error   string `json:"error"`
}

// StageSaveResponse - итог пакетного сохранения. При частичном сбое отдается со статусом 207.
type StageSaveResponse struct {
	PipelineID string                 `json:"pipelineId"`
	Saved      []StageResponse        `json:"saved"`
	Failed     []StageFailureResponse `json:"failed"`
}

type LeadResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	Email     string            `json:"email,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Context   string            `json:"context,omitempty"`
	Message   string            `json:"message,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Status    domain.LeadStatus `json:"status"`
	CreatedAt *string           `json:"createdAt,omitempty"`
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toDealResponse(d domain.Deal) DealResponse {
	return DealResponse{
		ID:          d.ID,
		Title:       d.Title,
		Value:       d.Value,
		ContactName: d.ContactName,
		Status:      d.Status,
		LossReason:  d.LossReason,
		Priority:    d.Priority,
		StageID:     d.StageID,
		LeadID:      d.LeadID,
		CreatedAt:   formatTime(d.CreatedAt),
	}
}

func toListingCards(cards []domain.ListingCard) []ListingCardResponse {
	out := make([]ListingCardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, ListingCardResponse{
			ID:           c.ID,
			Code:         c.Code,
			Title:        c.Title,
			Price:        c.Price,
			Purpose:      c.Purpose,
			Status:       c.Status,
			Neighborhood: c.Neighborhood,
			City:         c.City,
			CoverImage:   c.CoverImage,
		})
	}
	return out
}

// toDealViewResponse - история отдается лентой от новых записей к старым.
func toDealViewResponse(v usecase.DealView) DealViewResponse {
	resp := DealViewResponse{
		Deal:        toDealResponse(v.Detail.Deal),
		History:     make([]HistoryResponse, 0, len(v.Detail.History)),
		Tasks:       make([]TaskResponse, 0, len(v.Detail.Tasks)),
		Listings:    toListingCards(v.Detail.Listings),
		LossPending: v.LossPending,
		LossReasons: v.LossReasons,
	}
	for _, h := range domain.Timeline(v.Detail.History) {
		resp.History = append(resp.History, HistoryResponse{
			ID:          h.ID,
			Type:        h.Type,
			Description: h.Description,
			CreatedAt:   h.CreatedAt.Format(time.RFC3339),
			Author:      h.Author,
		})
	}
	for _, t := range v.Detail.Tasks {
		resp.Tasks = append(resp.Tasks, TaskResponse{
			ID:        t.ID,
			Title:     t.Title,
			Type:      t.Type,
			DueAt:     t.DueAt.Format(time.RFC3339),
			Completed: t.Completed,
		})
	}
	return resp
}

func toListingPageResponse(p domain.ListingPage) PaginatedListingsResponse {
	return PaginatedListingsResponse{
		Data:    toListingCards(p.Items),
		Total:   p.Total,
		Page:    p.Page,
		PerPage: p.PerPage,
	}
}

func toStageResponse(s domain.Stage) StageResponse {
	return StageResponse{ID: s.ID, Name: s.Name, Color: s.Color, Order: s.Order}
}

func toPipelineResponse(p domain.Pipeline) PipelineResponse {
	resp := PipelineResponse{ID: p.ID, Name: p.Name, Stages: make([]StageResponse, 0, len(p.Stages))}
	for _, s := range domain.SortedStages(p.Stages) {
		resp.Stages = append(resp.Stages, toStageResponse(s))
	}
	return resp
}

func toDraftResponse(d usecase.StageDraft) StageDraftResponse {
	resp := StageDraftResponse{
		PipelineID:   d.PipelineID,
		PipelineName: d.PipelineName,
		Stages:       make([]DraftStageResponse, 0, len(d.Stages)),
	}
	for _, s := range d.Stages {
		resp.Stages = append(resp.Stages, DraftStageResponse{StageResponse: toStageResponse(s.Stage), Dirty: s.Dirty})
	}
	return resp
}

func toStageSaveResponse(r domain.StageSaveReport) StageSaveResponse {
	resp := StageSaveResponse{
		PipelineID: r.PipelineID,
		Saved:      make([]StageResponse, 0, len(r.Saved)),
		Failed:     make([]StageFailureResponse, 0, len(r.Failed)),
	}
	for _, s := range r.Saved {
		resp.Saved = append(resp.Saved, toStageResponse(s))
	}
	for _, f := range r.Failed {
		resp.Failed = append(resp.Failed, StageFailureResponse{StageID: f.StageID, Name: f.Name, Error: f.Err.Error()})
	}
	return resp
}

func toLeadResponse(l domain.Lead) LeadResponse {
	return LeadResponse{
		ID:        l.ID,
		Name:      l.Name,
		Phone:     l.Phone,
		Email:     l.Email,
		Subject:   l.Subject,
		Context:   l.Context,
		Message:   l.Message,
		Notes:     l.Notes,
		Status:    l.Status,
		CreatedAt: formatTime(l.CreatedAt),
	}
}

func toFavoritesResponse(p domain.FavoritesPage) FavoritesResponse {
	return FavoritesResponse{
		Data:         toListingCards(p.Listings),
		TotalCount:   p.TotalCount,
		CurrentPage:  p.CurrentPage,
		ItemsPerPage: p.ItemsPerPage,
	}
}
