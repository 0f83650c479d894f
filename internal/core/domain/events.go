package domain

import "time"

// Типы событий CRM, публикуемых наружу.
const (
	EventPipelineCreated   = "pipeline.created"
	EventPipelineRenamed   = "pipeline.renamed"
	EventPipelineDeleted   = "pipeline.deleted"
	EventStageCreated      = "stage.created"
	EventStageDeleted      = "stage.deleted"
	EventStagesSaved       = "stages.saved"
	EventDealCreated       = "deal.created"
	EventDealStatusChanged = "deal.status_changed"
	EventDealRemoved       = "deal.removed"
	EventLeadConverted     = "lead.converted"
	EventBoardLoaded       = "board.loaded"
	EventPipelineSelected  = "pipeline.selected"
	EventStateRolledBack   = "board.rolled_back"
)

// CRMEvent - доменное событие для брокера сообщений.
type CRMEvent struct {
	Type       string         `json:"type"`
	PipelineID string         `json:"pipeline_id,omitempty"`
	EntityID   int64          `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewCRMEvent - конструктор с отметкой времени.
func NewCRMEvent(eventType, pipelineID string, entityID int64, payload map[string]any) CRMEvent {
	return CRMEvent{
		Type:       eventType,
		PipelineID: pipelineID,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}
