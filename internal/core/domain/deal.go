package domain

import (
	"sort"
	"strings"
	"time"
)

// DealStatus - статус жизненного цикла сделки.
type DealStatus string

const (
	DealStatusOpen DealStatus = "OPEN"
	DealStatusWon  DealStatus = "WON"
	DealStatusLost DealStatus = "LOST"
)

// IsValid проверяет, что статус входит в перечисление.
func (s DealStatus) IsValid() bool {
	switch s {
	case DealStatusOpen, DealStatusWon, DealStatusLost:
		return true
	}
	return false
}

// dealTransitions - допустимые переходы. WON и LOST между собой только через OPEN.
var dealTransitions = map[DealStatus]map[DealStatus]bool{
	DealStatusOpen: {DealStatusWon: true, DealStatusLost: true},
	DealStatusWon:  {DealStatusOpen: true},
	DealStatusLost: {DealStatusOpen: true},
}

// CanTransition сообщает, разрешен ли переход from -> to.
func CanTransition(from, to DealStatus) bool {
	return dealTransitions[from][to]
}

// LossReasons - варианты причины проигрыша, которые предлагает селектор.
var LossReasons = []string{
	"Preço alto",
	"Comprou com concorrente",
	"Desistiu da compra",
	"Financiamento negado",
	"Sem retorno do cliente",
	"Outro",
}

// Deal - сделка на доске.
type Deal struct {
	ID          int64
	Title       string
	Value       float64
	ContactName string
	Status      DealStatus
	LossReason  string
	Priority    string
	StageID     int64
	LeadID      *int64
	CreatedAt   time.Time
}

// Clone возвращает копию сделки (LeadID копируется по значению).
func (d Deal) Clone() Deal {
	out := d
	if d.LeadID != nil {
		id := *d.LeadID
		out.LeadID = &id
	}
	return out
}

// DealInput - данные для создания сделки.
type DealInput struct {
	Title       string
	Value       float64
	ContactName string
	Priority    string
	StageID     int64
	LeadID      *int64
}

// Validate проверяет обязательные поля.
func (in DealInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if in.StageID <= 0 {
		return NewValidationError("stageId", "stage id is required")
	}
	if in.Value < 0 {
		return NewValidationError("value", "deal value must not be negative")
	}
	return nil
}

// StatusChange - тело запроса на смену статуса. LossReason заполняется только для LOST.
type StatusChange struct {
	Status     DealStatus
	LossReason string
}

// HistoryType - тип записи в истории сделки.
type HistoryType string

const (
	HistoryCreated     HistoryType = "CREATED"
	HistoryStageChange HistoryType = "STAGE_CHANGE"
	HistoryNote        HistoryType = "NOTE"
	HistoryUpdate      HistoryType = "UPDATE"
)

// HistoryEntry - неизменяемая запись таймлайна сделки.
type HistoryEntry struct {
	ID          int64
	Type        HistoryType
	Description string
	CreatedAt   time.Time
	Author      *string
}

// Task - задача, привязанная к сделке.
type Task struct {
	ID        int64
	Title     string
	Type      string
	DueAt     time.Time
	Completed bool
}

// TaskInput - данные для создания задачи.
type TaskInput struct {
	Title string
	Type  string
	DueAt time.Time
}

// DealDetail - расширенная карточка сделки с вкладками.
type DealDetail struct {
	Deal     Deal
	History  []HistoryEntry
	Tasks    []Task
	Listings []ListingCard
}

// Clone возвращает глубокую копию.
func (d DealDetail) Clone() DealDetail {
	out := DealDetail{Deal: d.Deal.Clone()}
	out.History = append([]HistoryEntry(nil), d.History...)
	out.Tasks = append([]Task(nil), d.Tasks...)
	out.Listings = append([]ListingCard(nil), d.Listings...)
	return out
}

// Timeline возвращает историю от новых записей к старым.
// Системные записи (CREATED, STAGE_CHANGE) и заметки идут в одной ленте.
func Timeline(entries []HistoryEntry) []HistoryEntry {
	out := append([]HistoryEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
