package crm_client

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
	"fmt"
	"net/http"
)

// ListPipelines возвращает воронки с вложенными этапами и сделками.
func (c *Client) ListPipelines(ctx context.Context) ([]domain.Pipeline, error) {
	var dto []pipelineDTO
	if err := c.do(ctx, http.MethodGet, "/crm/pipelines", nil, nil, &dto); err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	out := make([]domain.Pipeline, 0, len(dto))
	for _, p := range dto {
		out = append(out, p.toDomain())
	}
	return out, nil
}

func (c *Client) CreatePipeline(ctx context.Context, name string) (domain.Pipeline, error) {
	var dto pipelineDTO
	if err := c.do(ctx, http.MethodPost, "/crm/pipelines", nil, nameRequest{Name: name}, &dto); err != nil {
		return domain.Pipeline{}, fmt.Errorf("failed to create pipeline: %w", err)
	}
	if dto.Name == "" {
		dto.Name = name
	}
	return dto.toDomain(), nil
}

func (c *Client) RenamePipeline(ctx context.Context, pipelineID, name string) error {
	if err := c.do(ctx, http.MethodPatch, idPath("/crm/pipelines/%s", pipelineID), nil, nameRequest{Name: name}, nil); err != nil {
		return fmt.Errorf("failed to rename pipeline %s: %w", pipelineID, err)
	}
	return nil
}

func (c *Client) DeletePipeline(ctx context.Context, pipelineID string) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/crm/pipelines/%s", pipelineID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete pipeline %s: %w", pipelineID, err)
	}
	return nil
}

func (c *Client) CreateStage(ctx context.Context, pipelineID string, stage domain.Stage) (domain.Stage, error) {
	body := stageRequest{Name: stage.Name, Color: stage.Color, Order: stage.Order}
	var dto stageDTO
	if err := c.do(ctx, http.MethodPost, idPath("/crm/pipelines/%s/stages", pipelineID), nil, body, &dto); err != nil {
		return domain.Stage{}, fmt.Errorf("failed to create stage in pipeline %s: %w", pipelineID, err)
	}
	return dto.toDomain(), nil
}

// UpdateStage - PATCH одного этапа с полным набором редактируемых полей.
func (c *Client) UpdateStage(ctx context.Context, stage domain.Stage) (domain.Stage, error) {
	body := stageRequest{Name: stage.Name, Color: stage.Color, Order: stage.Order}
	var dto stageDTO
	if err := c.do(ctx, http.MethodPatch, idPath("/crm/stages/%d", stage.ID), nil, body, &dto); err != nil {
		return domain.Stage{}, fmt.Errorf("failed to update stage %d: %w", stage.ID, err)
	}
	if dto.ID == 0 {
		return stage, nil
	}
	saved := dto.toDomain()
	saved.Deals = nil
	return saved, nil
}

func (c *Client) DeleteStage(ctx context.Context, stageID int64) error {
	if err := c.do(ctx, http.MethodDelete, idPath("/crm/stages/%d", stageID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete stage %d: %w", stageID, err)
	}
	return nil
}
