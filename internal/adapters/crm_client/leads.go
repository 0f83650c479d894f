package crm_client

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListLeads(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": {string(status)}}
	}
	var dto []leadDTO
	if err := c.do(ctx, http.MethodGet, "/leads", query, nil, &dto); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	out := make([]domain.Lead, 0, len(dto))
	for _, l := range dto {
		out = append(out, l.toDomain())
	}
	return out, nil
}

func (c *Client) GetLead(ctx context.Context, leadID int64) (domain.Lead, error) {
	var dto leadDTO
	if err := c.do(ctx, http.MethodGet, idPath("/leads/%d", leadID), nil, nil, &dto); err != nil {
		return domain.Lead{}, fmt.Errorf("failed to get lead %d: %w", leadID, err)
	}
	return dto.toDomain(), nil
}

func (c *Client) CreateLead(ctx context.Context, input domain.LeadInput) (domain.Lead, error) {
	var dto leadDTO
	if err := c.do(ctx, http.MethodPost, "/leads", nil, toLeadRequest(input), &dto); err != nil {
		return domain.Lead{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return dto.toDomain(), nil
}

func (c *Client) UpdateLead(ctx context.Context, leadID int64, input domain.LeadInput) (domain.Lead, error) {
	var dto leadDTO
	if err := c.do(ctx, http.MethodPut, idPath("/leads/%d", leadID), nil, toLeadRequest(input), &dto); err != nil {
		return domain.Lead{}, fmt.Errorf("failed to update lead %d: %w", leadID, err)
	}
	return dto.toDomain(), nil
}

func (c *Client) UpdateLeadStatus(ctx context.Context, leadID int64, status domain.LeadStatus) error {
	body := leadStatusRequest{Status: string(status)}
	if err := c.do(ctx, http.MethodPatch, idPath("/leads/%d/status", leadID), nil, body, nil); err != nil {
		return fmt.Errorf("failed to update status of lead %d: %w", leadID, err)
	}
	return nil
}

func (c *Client) DeleteLead(ctx context.Context, leadID int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/leads/%d", leadID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete lead %d: %w", leadID, err)
	}
	return nil
}
