// Package board проецирует воронку из PipelineStore в колонки и карточки доски.
// Проекция чистая: без I/O и без изменения входных данных.
package board

import (
	"brokerage-backoffice/internal/core/domain"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Board - отрисованная доска выбранной воронки.
type Board struct {
	PipelineID   string           `json:"pipelineId"`
	PipelineName string           `json:"pipelineName"`
	Pipelines    []PipelineOption `json:"pipelines"`
	Columns      []Column         `json:"columns"`
}

// PipelineOption - пункт селектора воронок.
type PipelineOption struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// Column - этап воронки. Empty означает, что колонка предлагает создать сделку.
type Column struct {
	StageID int64  `json:"stageId"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Order   int    `json:"order"`
	Cards   []Card `json:"cards"`
	Empty   bool   `json:"empty"`
}

// Card - карточка сделки.
type Card struct {
	DealID      int64             `json:"dealId"`
	Title       string            `json:"title"`
	ContactName string            `json:"contactName,omitempty"`
	Value       float64           `json:"value"`
	ValueBadge  string            `json:"valueBadge,omitempty"`
	Status      domain.DealStatus `json:"status"`
	LossReason  string            `json:"lossReason,omitempty"`
}

var brlPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL форматирует сумму в реалах. Нулевая сумма дает пустую строку: бейдж не показывается.
func FormatBRL(value float64) string {
	if value == 0 {
		return ""
	}
	return brlPrinter.Sprint(currency.Symbol(currency.BRL.Amount(value)))
}

// Render строит доску выбранной воронки. pipelines нужен только для селектора.
func Render(selected domain.Pipeline, pipelines []domain.Pipeline) Board {
	b := Board{
		PipelineID:   selected.ID,
		PipelineName: selected.Name,
		Pipelines:    make([]PipelineOption, 0, len(pipelines)),
		Columns:      make([]Column, 0, len(selected.Stages)),
	}
	for _, p := range pipelines {
		b.Pipelines = append(b.Pipelines, PipelineOption{ID: p.ID, Name: p.Name, Selected: p.ID == selected.ID})
	}

	for _, stage := range domain.SortedStages(selected.Stages) {
		b.Columns = append(b.Columns, renderColumn(stage))
	}
	return b
}

func renderColumn(stage domain.Stage) Column {
	col := Column{
		StageID: stage.ID,
		Name:    stage.Name,
		Color:   stage.Color,
		Order:   stage.Order,
		Cards:   make([]Card, 0, len(stage.Deals)),
	}
	if col.Color == "" {
		col.Color = domain.DefaultStageColor
	}
	for _, d := range stage.Deals {
		col.Cards = append(col.Cards, Card{
			DealID:      d.ID,
			Title:       d.Title,
			ContactName: d.ContactName,
			Value:       d.Value,
			ValueBadge:  FormatBRL(d.Value),
			Status:      d.Status,
			LossReason:  d.LossReason,
		})
	}
	col.Empty = len(col.Cards) == 0
	return col
}
