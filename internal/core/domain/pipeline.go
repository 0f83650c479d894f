package domain

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultPipelineName - имя воронки, которая создается автоматически, если у аккаунта нет ни одной.
const DefaultPipelineName = "Funil de Vendas"

// DefaultStageColor используется, когда цвет этапа не задан.
const DefaultStageColor = "#6B7280"

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Pipeline - воронка продаж с упорядоченными этапами.
type Pipeline struct {
	ID     string
	Name   string
	Stages []Stage
}

// Stage - колонка воронки. Принадлежность воронке определяется вложенностью, а не обратной ссылкой.
type Stage struct {
	ID    int64
	Name  string
	Color string
	Order int
	Deals []Deal
}

// IsValidColor проверяет формат #RRGGBB.
func IsValidColor(color string) bool {
	return hexColorRegex.MatchString(color)
}

// Clone возвращает глубокую копию воронки.
func (p Pipeline) Clone() Pipeline {
	out := Pipeline{ID: p.ID, Name: p.Name}
	if p.Stages != nil {
		out.Stages = make([]Stage, len(p.Stages))
		for i, s := range p.Stages {
			out.Stages[i] = s.Clone()
		}
	}
	return out
}

// Clone возвращает глубокую копию этапа вместе со сделками.
func (s Stage) Clone() Stage {
	out := s
	if s.Deals != nil {
		out.Deals = make([]Deal, len(s.Deals))
		for i, d := range s.Deals {
			out.Deals[i] = d.Clone()
		}
	}
	return out
}

// StageIndex возвращает индекс этапа в воронке или -1.
func (p *Pipeline) StageIndex(stageID int64) int {
	for i := range p.Stages {
		if p.Stages[i].ID == stageID {
			return i
		}
	}
	return -1
}

// NextStageOrder - порядок для нового этапа, добавляемого в конец.
func (p *Pipeline) NextStageOrder() int {
	next := 0
	for _, s := range p.Stages {
		if s.Order >= next {
			next = s.Order + 1
		}
	}
	return next
}

// SortedStages возвращает этапы, упорядоченные по Order (при равенстве - по ID).
func SortedStages(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].ID < out[j].ID
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// FirstStage - этап с минимальным Order.
func (p *Pipeline) FirstStage() (Stage, bool) {
	if len(p.Stages) == 0 {
		return Stage{}, false
	}
	return SortedStages(p.Stages)[0], true
}

// StageChanges - буферизованные правки этапа из редактора конфигурации.
// nil означает "поле не менялось".
type StageChanges struct {
	Name  *string
	Color *string
	Order *int
}

// IsEmpty - true, если ни одно поле не задано.
func (c StageChanges) IsEmpty() bool {
	return c.Name == nil && c.Color == nil && c.Order == nil
}

// Validate проверяет значения правок.
func (c StageChanges) Validate() error {
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return NewValidationError("name", "stage name must not be blank")
	}
	if c.Color != nil && !IsValidColor(*c.Color) {
		return NewValidationError("color", "stage color must be a #RRGGBB hex string")
	}
	if c.Order != nil && *c.Order < 0 {
		return NewValidationError("order", "stage order must not be negative")
	}
	return nil
}

// Apply накладывает правки на этап.
func (c StageChanges) Apply(s Stage) Stage {
	if c.Name != nil {
		s.Name = strings.TrimSpace(*c.Name)
	}
	if c.Color != nil {
		s.Color = *c.Color
	}
	if c.Order != nil {
		s.Order = *c.Order
	}
	return s
}

// Merge объединяет две порции правок, более поздние значения побеждают.
func (c StageChanges) Merge(later StageChanges) StageChanges {
	if later.Name != nil {
		c.Name = later.Name
	}
	if later.Color != nil {
		c.Color = later.Color
	}
	if later.Order != nil {
		c.Order = later.Order
	}
	return c
}
