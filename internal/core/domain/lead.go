package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus - статус входящего обращения.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NOVO"
	LeadStatusInService LeadStatus = "EM_ATENDIMENTO"
	LeadStatusVisit     LeadStatus = "AGENDOU_VISITA"
	LeadStatusConverted LeadStatus = "CONVERTIDO"
	LeadStatusLost      LeadStatus = "PERDIDO"
)

func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusInService, LeadStatusVisit, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}

// Lead - входящий контакт. С воронкой не связан до конвертации в сделку.
type Lead struct {
	ID        int64
	Name      string
	Phone     string
	Email     string
	Subject   string
	Context   string
	Message   string
	Notes     string
	Status    LeadStatus
	CreatedAt time.Time
}

// DealTitle - заголовок сделки, создаваемой из лида.
func (l Lead) DealTitle() string {
	if t := strings.TrimSpace(l.Subject); t != "" {
		return t
	}
	return strings.TrimSpace(l.Name)
}

// LeadInput - данные для создания и обновления лида.
type LeadInput struct {
	Name    string
	Phone   string
	Email   string
	Subject string
	Context string
	Message string
	Notes   string
	Status  LeadStatus
}

// Normalize убирает лишние пробелы и выставляет статус по умолчанию.
func (in LeadInput) Normalize() LeadInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Status == "" {
		in.Status = LeadStatusNew
	}
	return in
}

// Validate: имя и телефон обязательны, email опционален.
func (in LeadInput) Validate() error {
	if in.Name == "" {
		return NewValidationError("name", "lead name is required")
	}
	if in.Phone == "" {
		return NewValidationError("phone", "lead phone is required")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return NewValidationError("email", "lead email is malformed")
		}
	}
	if !in.Status.IsValid() {
		return NewValidationError("status", "unknown lead status")
	}
	return nil
}

// ConversionState - шаг саги конвертации лида в сделку.
type ConversionState string

const (
	ConversionStarted     ConversionState = "started"
	ConversionDealCreated ConversionState = "deal_created"
	ConversionCompleted   ConversionState = "completed"
	ConversionFailed      ConversionState = "failed"
	ConversionCompensated ConversionState = "compensated"
)

// ConversionRecord - запись журнала конвертации. Позволяет довести до конца
// конвертацию, прерванную между созданием сделки и сменой статуса лида.
type ConversionRecord struct {
	ID        uuid.UUID
	LeadID    int64
	StageID   int64
	DealID    *int64
	State     ConversionState
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
