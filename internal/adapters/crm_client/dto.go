package crm_client

import (
	"brokerage-backoffice/internal/core/domain"
	"time"
)

// DTO удаленного API. Формат полей - camelCase, как его отдает CRM.

type pipelineDTO struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Stages []stageDTO `json:"stages"`
}

type stageDTO struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Order int       `json:"order"`
	Deals []dealDTO `json:"deals,omitempty"`
}

type dealDTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Value       float64   `json:"value"`
	ContactName string    `json:"contactName"`
	Status      string    `json:"status"`
	LossReason  *string   `json:"lossReason"`
	Priority    string    `json:"priority"`
	StageID     int64     `json:"stageId"`
	LeadID      *int64    `json:"leadId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type dealDetailDTO struct {
	dealDTO
	History    []historyDTO  `json:"history"`
	Tasks      []taskDTO     `json:"tasks"`
	Properties []listingCard `json:"properties"`
}

type historyDTO struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	Author      *string   `json:"author"`
}

type taskDTO struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	DueDate   time.Time `json:"dueDate"`
	Completed bool      `json:"completed"`
}

type leadDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Context   string    `json:"context"`
	Message   string    `json:"message"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type listingCard struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	Purpose      string  `json:"purpose"`
	Status       string  `json:"status"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	CoverImage   string  `json:"coverImage"`
}

type listingPageDTO struct {
	Data  []listingCard `json:"data"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type favoriteIDsDTO struct {
	PropertyIDs []string `json:"propertyIds"`
	TotalCount  int64    `json:"totalCount"`
}

// Тела запросов.

type nameRequest struct {
	Name string `json:"name"`
}

type stageRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

type dealRequest struct {
	Title       string  `json:"title"`
	Value       float64 `json:"value"`
	ContactName string  `json:"contactName,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	StageID     int64   `json:"stageId"`
	LeadID      *int64  `json:"leadId,omitempty"`
}

// statusRequest: lossReason отправляется только для LOST, при возврате в OPEN поле отсутствует.
type statusRequest struct {
	Status     string `json:"status"`
	LossReason string `json:"lossReason,omitempty"`
}

type propertyLinkRequest struct {
	PropertyID string `json:"propertyId"`
}

type taskRequest struct {
	Title   string    `json:"title"`
	Type    string    `json:"type"`
	DueDate time.Time `json:"dueDate"`
}

type taskCompletionRequest struct {
	Completed bool `json:"completed"`
}

type noteRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type leadRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Subject string `json:"subject,omitempty"`
	Context string `json:"context,omitempty"`
	Message string `json:"message,omitempty"`
	Notes   string `json:"notes,omitempty"`
	Status  string `json:"status"`
}

type leadStatusRequest struct {
	Status string `json:"status"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// Маппинг DTO -> домен.

func (d pipelineDTO) toDomain() domain.Pipeline {
	p := domain.Pipeline{ID: d.ID, Name: d.Name, Stages: make([]domain.Stage, 0, len(d.Stages))}
	for _, s := range d.Stages {
		p.Stages = append(p.Stages, s.toDomain())
	}
	return p
}

func (d stageDTO) toDomain() domain.Stage {
	s := domain.Stage{ID: d.ID, Name: d.Name, Color: d.Color, Order: d.Order}
	if s.Color == "" {
		s.Color = domain.DefaultStageColor
	}
	s.Deals = make([]domain.Deal, 0, len(d.Deals))
	for _, deal := range d.Deals {
		mapped := deal.toDomain()
		if mapped.StageID == 0 {
			mapped.StageID = d.ID
		}
		s.Deals = append(s.Deals, mapped)
	}
	return s
}

func (d dealDTO) toDomain() domain.Deal {
	deal := domain.Deal{
		ID:          d.ID,
		Title:       d.Title,
		Value:       d.Value,
		ContactName: d.ContactName,
		Status:      domain.DealStatus(d.Status),
		Priority:    d.Priority,
		StageID:     d.StageID,
		LeadID:      d.LeadID,
		CreatedAt:   d.CreatedAt,
	}
	if deal.Status == "" {
		deal.Status = domain.DealStatusOpen
	}
	if d.LossReason != nil {
		deal.LossReason = *d.LossReason
	}
	return deal
}

func (d dealDetailDTO) toDomain() domain.DealDetail {
	detail := domain.DealDetail{
		Deal:     d.dealDTO.toDomain(),
		History:  make([]domain.HistoryEntry, 0, len(d.History)),
		Tasks:    make([]domain.Task, 0, len(d.Tasks)),
		Listings: make([]domain.ListingCard, 0, len(d.Properties)),
	}
	for _, h := range d.History {
		detail.History = append(detail.History, h.toDomain())
	}
	for _, t := range d.Tasks {
		detail.Tasks = append(detail.Tasks, t.toDomain())
	}
	for _, c := range d.Properties {
		detail.Listings = append(detail.Listings, c.toDomain())
	}
	return detail
}

func (d historyDTO) toDomain() domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:          d.ID,
		Type:        domain.HistoryType(d.Type),
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		Author:      d.Author,
	}
}

func (d taskDTO) toDomain() domain.Task {
	return domain.Task{ID: d.ID, Title: d.Title, Type: d.Type, DueAt: d.DueDate, Completed: d.Completed}
}

func (d leadDTO) toDomain() domain.Lead {
	return domain.Lead{
		ID:        d.ID,
		Name:      d.Name,
		Phone:     d.Phone,
		Email:     d.Email,
		Subject:   d.Subject,
		Context:   d.Context,
		Message:   d.Message,
		Notes:     d.Notes,
		Status:    domain.LeadStatus(d.Status),
		CreatedAt: d.CreatedAt,
	}
}

func (d listingCard) toDomain() domain.ListingCard {
	return domain.ListingCard{
		ID:           d.ID,
		Code:         d.Code,
		Title:        d.Title,
		Price:        d.Price,
		Purpose:      domain.ListingPurpose(d.Purpose),
		Status:       domain.ListingStatus(d.Status),
		Neighborhood: d.Neighborhood,
		City:         d.City,
		CoverImage:   d.CoverImage,
	}
}

func toLeadRequest(in domain.LeadInput) leadRequest {
	return leadRequest{
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Subject: in.Subject,
		Context: in.Context,
		Message: in.Message,
		Notes:   in.Notes,
		Status:  string(in.Status),
	}
}
