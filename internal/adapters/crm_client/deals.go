package crm_client

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
	"fmt"
	"net/http"
)

func (c *Client) CreateDeal(ctx context.Context, input domain.DealInput) (domain.Deal, error) {
	body := dealRequest{
		Title:       input.Title,
		Value:       input.Value,
		ContactName: input.ContactName,
		Priority:    input.Priority,
		StageID:     input.StageID,
		LeadID:      input.LeadID,
	}
	var dto dealDTO
	if err := c.do(ctx, http.MethodPost, "/crm/deals", nil, body, &dto); err != nil {
		return domain.Deal{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return dto.toDomain(), nil
}

// GetDeal возвращает сделку вместе с историей, задачами и привязанными объектами.
func (c *Client) GetDeal(ctx context.Context, dealID int64) (domain.DealDetail, error) {
	var dto dealDetailDTO
	if err := c.do(ctx, http.MethodGet, idPath("/crm/deals/%d", dealID), nil, nil, &dto); err != nil {
		return domain.DealDetail{}, fmt.Errorf("failed to get deal %d: %w", dealID, err)
	}
	return dto.toDomain(), nil
}

func (c *Client) DeleteDeal(ctx context.Context, dealID int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/crm/deals/%d", dealID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete deal %d: %w", dealID, err)
	}
	return nil
}

func (c *Client) UpdateDealStatus(ctx context.Context, dealID int64, change domain.StatusChange) (domain.Deal, error) {
	body := statusRequest{Status: string(change.Status)}
	if change.Status == domain.DealStatusLost {
		body.LossReason = change.LossReason
	}
	var dto dealDTO
	if err := c.do(ctx, http.MethodPatch, idPath("/crm/deals/%d/status", dealID), nil, body, &dto); err != nil {
		return domain.Deal{}, fmt.Errorf("failed to update status of deal %d: %w", dealID, err)
	}
	if dto.ID == 0 {
		return domain.Deal{ID: dealID, Status: change.Status, LossReason: body.LossReason}, nil
	}
	return dto.toDomain(), nil
}

func (c *Client) LinkListing(ctx context.Context, dealID int64, listingID string) error {
	path := idPath("/crm/deals/%d/properties", dealID)
	if err := c.do(ctx, http.MethodPost, path, nil, propertyLinkRequest{PropertyID: listingID}, nil); err != nil {
		return fmt.Errorf("failed to link listing %s to deal %d: %w", listingID, dealID, err)
	}
	return nil
}

func (c *Client) UnlinkListing(ctx context.Context, dealID int64, listingID string) error {
	path := idPath("/crm/deals/%d/properties/%s", dealID, listingID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to unlink listing %s from deal %d: %w", listingID, dealID, err)
	}
	return nil
}

func (c *Client) CreateTask(ctx context.Context, dealID int64, input domain.TaskInput) (domain.Task, error) {
	body := taskRequest{Title: input.Title, Type: input.Type, DueDate: input.DueAt.UTC()}
	var dto taskDTO
	if err := c.do(ctx, http.MethodPost, idPath("/crm/deals/%d/tasks", dealID), nil, body, &dto); err != nil {
		return domain.Task{}, fmt.Errorf("failed to create task for deal %d: %w", dealID, err)
	}
	return dto.toDomain(), nil
}

// SetTaskCompleted отправляет новое значение флага, а не команду "переключить".
func (c *Client) SetTaskCompleted(ctx context.Context, taskID int64, completed bool) error {
	body := taskCompletionRequest{Completed: completed}
	if err := c.do(ctx, http.MethodPatch, idPath("/crm/tasks/%d", taskID), nil, body, nil); err != nil {
		return fmt.Errorf("failed to update task %d: %w", taskID, err)
	}
	return nil
}

func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/crm/tasks/%d", taskID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete task %d: %w", taskID, err)
	}
	return nil
}

func (c *Client) AddNote(ctx context.Context, dealID int64, text string) (domain.HistoryEntry, error) {
	body := noteRequest{Type: string(domain.HistoryNote), Description: text}
	var dto historyDTO
	if err := c.do(ctx, http.MethodPost, idPath("/crm/deals/%d/history", dealID), nil, body, &dto); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("failed to add note to deal %d: %w", dealID, err)
	}
	return dto.toDomain(), nil
}
