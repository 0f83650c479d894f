package usecase

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"errors"
	"fmt"
)

// DealPlacer - часть PipelineStore, нужная конвертации лида.
type DealPlacer interface {
	StageOwner(stageID int64) (string, domain.Stage, error)
	InsertDeal(ctx context.Context, deal domain.Deal)
}

// LeadService - CRUD лидов и конвертация лида в сделку.
type LeadService struct {
	leads     port.LeadGatewayPort
	deals     port.DealGatewayPort
	journal   port.ConversionJournalPort
	board     DealPlacer
	publisher port.EventPublisherPort
}

func NewLeadService(
	leads port.LeadGatewayPort,
	deals port.DealGatewayPort,
	journal port.ConversionJournalPort,
	board DealPlacer,
	publisher port.EventPublisherPort,
) *LeadService {
	return &LeadService{
		leads:     leads,
		deals:     deals,
		journal:   journal,
		board:     board,
		publisher: publisher,
	}
}

// List возвращает лиды, пустой status означает "все".
func (s *LeadService) List(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	if status != "" && !status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown lead status")
	}
	leads, err := s.leads.ListLeads(ctx, status)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to list leads", err, port.Fields{"status": status})
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	return leads, nil
}

func (s *LeadService) Get(ctx context.Context, leadID int64) (domain.Lead, error) {
	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("failed to get lead %d: %w", leadID, err)
	}
	return lead, nil
}

func (s *LeadService) Create(ctx context.Context, input domain.LeadInput) (domain.Lead, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return domain.Lead{}, err
	}
	lead, err := s.leads.CreateLead(ctx, input)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to create lead", err, nil)
		return domain.Lead{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

func (s *LeadService) Update(ctx context.Context, leadID int64, input domain.LeadInput) (domain.Lead, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return domain.Lead{}, err
	}
	lead, err := s.leads.UpdateLead(ctx, leadID, input)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to update lead", err, port.Fields{"lead_id": leadID})
		return domain.Lead{}, fmt.Errorf("failed to update lead %d: %w", leadID, err)
	}
	return lead, nil
}

func (s *LeadService) ChangeStatus(ctx context.Context, leadID int64, status domain.LeadStatus) error {
	if !status.IsValid() {
		return domain.NewValidationError("status", "unknown lead status")
	}
	if err := s.leads.UpdateLeadStatus(ctx, leadID, status); err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to change lead status", err, port.Fields{"lead_id": leadID, "status": status})
		return fmt.Errorf("failed to change lead status: %w", err)
	}
	return nil
}

func (s *LeadService) Delete(ctx context.Context, leadID int64, confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	if err := s.leads.DeleteLead(ctx, leadID); err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to delete lead", err, port.Fields{"lead_id": leadID})
		return fmt.Errorf("failed to delete lead %d: %w", leadID, err)
	}
	return nil
}

// ConvertToDeal создает сделку из лида и переводит лид в CONVERTIDO.
// Шаги пишутся в журнал. Если смена статуса лида не удалась, созданная сделка удаляется.
func (s *LeadService) ConvertToDeal(ctx context.Context, leadID, stageID int64) (domain.Deal, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ConvertLead",
		"lead_id":  leadID,
		"stage_id": stageID,
	})
	ucLogger.Info("Use case started", nil)

	pipelineID, _, err := s.board.StageOwner(stageID)
	if err != nil {
		return domain.Deal{}, err
	}

	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		ucLogger.Error("Failed to fetch lead", err, nil)
		return domain.Deal{}, fmt.Errorf("failed to fetch lead %d: %w", leadID, err)
	}
	if lead.Status == domain.LeadStatusConverted {
		return domain.Deal{}, domain.NewValidationError("status", "lead is already converted")
	}
	title := lead.DealTitle()
	if title == "" {
		return domain.Deal{}, domain.ErrTitleRequired
	}

	record, err := s.journal.Begin(ctx, leadID, stageID)
	if err != nil {
		ucLogger.Error("Failed to open conversion journal entry", err, nil)
		return domain.Deal{}, fmt.Errorf("failed to start conversion: %w", err)
	}
	ucLogger = ucLogger.WithFields(port.Fields{"conversion_id": record.ID.String()})

	id := lead.ID
	deal, err := s.deals.CreateDeal(ctx, domain.DealInput{
		Title:       title,
		ContactName: lead.Name,
		StageID:     stageID,
		LeadID:      &id,
	})
	if err != nil {
		ucLogger.Error("Failed to create deal from lead", err, nil)
		s.finish(ctx, ucLogger, record, domain.ConversionFailed, err)
		return domain.Deal{}, fmt.Errorf("failed to create deal from lead: %w", err)
	}
	if deal.StageID == 0 {
		deal.StageID = stageID
	}
	if deal.Status == "" {
		deal.Status = domain.DealStatusOpen
	}
	if deal.LeadID == nil {
		deal.LeadID = &id
	}

	if err := s.journal.MarkDealCreated(ctx, record.ID, deal.ID); err != nil {
		ucLogger.Warn("Failed to record created deal in journal", port.Fields{"deal_id": deal.ID, "error": err.Error()})
	}

	if err := s.leads.UpdateLeadStatus(ctx, leadID, domain.LeadStatusConverted); err != nil {
		ucLogger.Error("Failed to mark lead as converted, compensating", err, port.Fields{"deal_id": deal.ID})
		if compErr := s.deals.DeleteDeal(ctx, deal.ID); compErr != nil {
			ucLogger.Error("Compensation failed, conversion left for recovery", compErr, port.Fields{"deal_id": deal.ID})
			return domain.Deal{}, fmt.Errorf("failed to mark lead as converted: %w", errors.Join(err, compErr))
		}
		s.finish(ctx, ucLogger, record, domain.ConversionCompensated, err)
		return domain.Deal{}, fmt.Errorf("failed to mark lead as converted: %w", err)
	}

	s.finish(ctx, ucLogger, record, domain.ConversionCompleted, nil)
	s.board.InsertDeal(ctx, deal)
	s.publish(ctx, ucLogger, domain.NewCRMEvent(domain.EventLeadConverted, pipelineID, deal.ID, map[string]any{
		"lead_id":  leadID,
		"stage_id": stageID,
	}))

	ucLogger.Info("Use case finished successfully", port.Fields{"deal_id": deal.ID})
	return deal, nil
}

// RecoverConversions доводит до конца конвертации, застрявшие после создания сделки.
func (s *LeadService) RecoverConversions(ctx context.Context) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "RecoverConversions"})

	pending, err := s.journal.FindPending(ctx)
	if err != nil {
		logger.Error("Failed to read pending conversions", err, nil)
		return 0, fmt.Errorf("failed to read pending conversions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	logger.Info("Recovering interrupted conversions", port.Fields{"pending": len(pending)})

	var errs []error
	recovered := 0
	for _, rec := range pending {
		recLogger := logger.WithFields(port.Fields{"conversion_id": rec.ID.String(), "lead_id": rec.LeadID})
		if rec.State != domain.ConversionDealCreated || rec.DealID == nil {
			s.finish(ctx, recLogger, rec, domain.ConversionFailed, errors.New("interrupted before deal was created"))
			continue
		}
		if err := s.leads.UpdateLeadStatus(ctx, rec.LeadID, domain.LeadStatusConverted); err != nil {
			recLogger.Error("Recovery attempt failed", err, nil)
			errs = append(errs, fmt.Errorf("lead %d: %w", rec.LeadID, err))
			continue
		}
		s.finish(ctx, recLogger, rec, domain.ConversionCompleted, nil)
		recovered++
	}
	return recovered, errors.Join(errs...)
}

func (s *LeadService) finish(ctx context.Context, logger port.LoggerPort, record domain.ConversionRecord, state domain.ConversionState, cause error) {
	if err := s.journal.Finish(ctx, record.ID, state, cause); err != nil {
		logger.Warn("Failed to update conversion journal", port.Fields{"state": state, "error": err.Error()})
	}
}

func (s *LeadService) publish(ctx context.Context, logger port.LoggerPort, event domain.CRMEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish CRM event", port.Fields{"event_type": event.Type, "error": err.Error()})
	}
}
