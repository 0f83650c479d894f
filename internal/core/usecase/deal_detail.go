package usecase

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ListingSearchPageSize - размер страницы поиска объектов на вкладке сделки.
const ListingSearchPageSize = 10

// DefaultDealIdleTTL - через сколько неиспользуемая сделка выгружается из реестра.
const DefaultDealIdleTTL = 30 * time.Minute

// BoardSync - часть PipelineStore, в которую контроллеры записывают подтвержденные сервером изменения.
type BoardSync interface {
	ApplyDealStatus(ctx context.Context, dealID int64, status domain.DealStatus, lossReason string)
	InsertDeal(ctx context.Context, deal domain.Deal)
	RemoveDeal(ctx context.Context, dealID int64)
}

// DealView - состояние карточки сделки для отображения.
type DealView struct {
	Detail      domain.DealDetail
	LossPending bool
	LossReasons []string
}

// DealDetailController управляет одной открытой сделкой: статус, история, задачи, объекты.
type DealDetailController struct {
	dealID    int64
	deals     port.DealGatewayPort
	listings  port.ListingGatewayPort
	board     BoardSync
	publisher port.EventPublisherPort
	location  *time.Location

	mu          sync.Mutex
	detail      domain.DealDetail
	loaded      bool
	lossPending bool
	// смена статуса в полете: второй переход ждет ответа на первый
	statusBusy bool
	lastUsed   time.Time
}

func newDealDetailController(
	dealID int64,
	deals port.DealGatewayPort,
	listings port.ListingGatewayPort,
	board BoardSync,
	publisher port.EventPublisherPort,
	location *time.Location,
) *DealDetailController {
	if location == nil {
		location = time.UTC
	}
	return &DealDetailController{
		dealID:    dealID,
		deals:     deals,
		listings:  listings,
		board:     board,
		publisher: publisher,
		location:  location,
	}
}

func (c *DealDetailController) logger(ctx context.Context, action string) port.LoggerPort {
	return contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "DealDetailController",
		"action":    action,
		"deal_id":   c.dealID,
	})
}

// Load всегда перечитывает сделку с сервера и сбрасывает незавершенный выбор причины проигрыша.
func (c *DealDetailController) Load(ctx context.Context) (DealView, error) {
	detail, err := c.deals.GetDeal(ctx, c.dealID)
	if err != nil {
		c.logger(ctx, "Load").Error("Failed to fetch deal", err, nil)
		return DealView{}, fmt.Errorf("failed to fetch deal %d: %w", c.dealID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detail = detail.Clone()
	c.loaded = true
	c.lossPending = false
	return c.viewLocked(), nil
}

// View возвращает текущее состояние без обращения к серверу.
func (c *DealDetailController) View() (DealView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return DealView{}, domain.ErrDealNotFound
	}
	return c.viewLocked(), nil
}

func (c *DealDetailController) viewLocked() DealView {
	detail := c.detail.Clone()
	detail.History = domain.Timeline(detail.History)
	view := DealView{Detail: detail, LossPending: c.lossPending}
	if c.lossPending {
		view.LossReasons = append([]string(nil), domain.LossReasons...)
	}
	return view
}

func (c *DealDetailController) currentStatus() (domain.DealStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return "", domain.ErrDealNotFound
	}
	return c.detail.Deal.Status, nil
}

// MarkWon: OPEN -> WON одним вызовом.
func (c *DealDetailController) MarkWon(ctx context.Context) (DealView, error) {
	return c.changeStatus(ctx, "MarkWon", domain.StatusChange{Status: domain.DealStatusWon})
}

// BeginLoss открывает выбор причины проигрыша. Удаленного вызова нет.
func (c *DealDetailController) BeginLoss() (DealView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return DealView{}, domain.ErrDealNotFound
	}
	if !domain.CanTransition(c.detail.Deal.Status, domain.DealStatusLost) {
		return DealView{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, c.detail.Deal.Status, domain.DealStatusLost)
	}
	c.lossPending = true
	return c.viewLocked(), nil
}

// CancelLoss закрывает выбор причины, сделка остается OPEN.
func (c *DealDetailController) CancelLoss() (DealView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return DealView{}, domain.ErrDealNotFound
	}
	c.lossPending = false
	return c.viewLocked(), nil
}

// ConfirmLoss завершает двухшаговый сценарий проигрыша.
func (c *DealDetailController) ConfirmLoss(ctx context.Context, reason string) (DealView, error) {
	c.mu.Lock()
	pending := c.lossPending
	c.mu.Unlock()
	if !pending {
		return DealView{}, domain.ErrLossNotStarted
	}
	return c.MarkLost(ctx, reason)
}

// MarkLost: OPEN -> LOST. Без причины вызов не выполняется.
func (c *DealDetailController) MarkLost(ctx context.Context, reason string) (DealView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return DealView{}, domain.ErrLossReasonRequired
	}
	return c.changeStatus(ctx, "MarkLost", domain.StatusChange{Status: domain.DealStatusLost, LossReason: reason})
}

// Reopen: WON/LOST -> OPEN. Причина проигрыша в запрос не попадает.
func (c *DealDetailController) Reopen(ctx context.Context) (DealView, error) {
	return c.changeStatus(ctx, "Reopen", domain.StatusChange{Status: domain.DealStatusOpen})
}

// beginStatusChange проверяет переход и занимает слот смены статуса.
// Пока слот занят, любой другой переход отклоняется.
func (c *DealDetailController) beginStatusChange(to domain.DealStatus) (domain.DealStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return "", domain.ErrDealNotFound
	}
	from := c.detail.Deal.Status
	if c.statusBusy {
		return from, fmt.Errorf("%w: status change to %s while another change is in progress", domain.ErrInvalidTransition, to)
	}
	if !domain.CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	c.statusBusy = true
	return from, nil
}

func (c *DealDetailController) endStatusChange() {
	c.mu.Lock()
	c.statusBusy = false
	c.mu.Unlock()
}

func (c *DealDetailController) changeStatus(ctx context.Context, action string, change domain.StatusChange) (DealView, error) {
	logger := c.logger(ctx, action)

	from, err := c.beginStatusChange(change.Status)
	if err != nil {
		if from != "" {
			logger.Warn("Rejected deal status transition", port.Fields{"from": from, "to": change.Status, "error": err.Error()})
		}
		return DealView{}, err
	}
	defer c.endStatusChange()

	updated, err := c.deals.UpdateDealStatus(ctx, c.dealID, change)
	if err != nil {
		logger.Error("Failed to update deal status", err, port.Fields{"to": change.Status})
		return DealView{}, fmt.Errorf("failed to update deal status: %w", err)
	}
	if updated.Status == "" {
		updated.Status = change.Status
	}
	reason := change.LossReason
	if updated.Status != domain.DealStatusLost {
		reason = ""
	} else if updated.LossReason != "" {
		reason = updated.LossReason
	}

	c.mu.Lock()
	c.detail.Deal.Status = updated.Status
	c.detail.Deal.LossReason = reason
	c.lossPending = false
	view := c.viewLocked()
	c.mu.Unlock()

	if c.board != nil {
		c.board.ApplyDealStatus(ctx, c.dealID, updated.Status, reason)
	}
	c.publish(ctx, domain.NewCRMEvent(domain.EventDealStatusChanged, "", c.dealID, map[string]any{
		"from": from, "to": updated.Status, "loss_reason": reason,
	}))
	logger.Info("Deal status changed", port.Fields{"from": from, "to": updated.Status})
	return view, nil
}

// AddNote добавляет заметку в историю. История только дополняется.
func (c *DealDetailController) AddNote(ctx context.Context, text string) (DealView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return DealView{}, domain.ErrEmptyNote
	}
	if _, err := c.currentStatus(); err != nil {
		return DealView{}, err
	}

	entry, err := c.deals.AddNote(ctx, c.dealID, text)
	if err != nil {
		c.logger(ctx, "AddNote").Error("Failed to add note", err, nil)
		return DealView{}, fmt.Errorf("failed to add note: %w", err)
	}
	if entry.Type == "" {
		entry.Type = domain.HistoryNote
	}
	if entry.Description == "" {
		entry.Description = text
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detail.History = append(c.detail.History, entry)
	return c.viewLocked(), nil
}

// ParseTaskDue собирает срок задачи из даты "YYYY-MM-DD" и времени "HH:MM" в заданной зоне.
func ParseTaskDue(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if clock == "" {
		clock = "09:00"
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError("dueDate", "task date must be YYYY-MM-DD and time HH:MM")
	}
	return due, nil
}

// CreateTask создает задачу. Срок собирается из даты и времени в зоне брокерской.
func (c *DealDetailController) CreateTask(ctx context.Context, title, taskType, date, clock string) (DealView, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return DealView{}, domain.ErrTitleRequired
	}
	if taskType == "" {
		taskType = "CALL"
	}
	due, err := ParseTaskDue(date, clock, c.location)
	if err != nil {
		return DealView{}, err
	}
	if _, err := c.currentStatus(); err != nil {
		return DealView{}, err
	}

	task, err := c.deals.CreateTask(ctx, c.dealID, domain.TaskInput{Title: title, Type: taskType, DueAt: due})
	if err != nil {
		c.logger(ctx, "CreateTask").Error("Failed to create task", err, nil)
		return DealView{}, fmt.Errorf("failed to create task: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detail.Tasks = append(c.detail.Tasks, task)
	return c.viewLocked(), nil
}

// ToggleTask переключает выполнение сразу, затем отправляет новое значение.
// Каждое нажатие - отдельный вызов, без дебаунса. При ошибке возвращается значение до нажатия,
// но только если задача все еще показывает значение этого вызова.
func (c *DealDetailController) ToggleTask(ctx context.Context, taskID int64) (DealView, error) {
	c.mu.Lock()
	idx := c.taskIndexLocked(taskID)
	if idx < 0 {
		c.mu.Unlock()
		return DealView{}, domain.ErrTaskNotFound
	}
	before := c.detail.Tasks[idx].Completed
	completed := !before
	c.detail.Tasks[idx].Completed = completed
	c.mu.Unlock()

	if err := c.deals.SetTaskCompleted(ctx, taskID, completed); err != nil {
		c.mu.Lock()
		if i := c.taskIndexLocked(taskID); i >= 0 && c.detail.Tasks[i].Completed == completed {
			c.detail.Tasks[i].Completed = before
		}
		c.mu.Unlock()
		c.logger(ctx, "ToggleTask").Error("Failed to toggle task, previous value restored", err, port.Fields{"task_id": taskID})
		return DealView{}, fmt.Errorf("failed to toggle task: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(), nil
}

// DeleteTask требует подтверждения. Задача убирается сразу и возвращается на место при ошибке.
func (c *DealDetailController) DeleteTask(ctx context.Context, taskID int64, confirmed bool) (DealView, error) {
	if !confirmed {
		return DealView{}, domain.ErrConfirmationRequired
	}

	c.mu.Lock()
	idx := c.taskIndexLocked(taskID)
	if idx < 0 {
		c.mu.Unlock()
		return DealView{}, domain.ErrTaskNotFound
	}
	removed := c.detail.Tasks[idx]
	c.detail.Tasks = append(c.detail.Tasks[:idx:idx], c.detail.Tasks[idx+1:]...)
	c.mu.Unlock()

	if err := c.deals.DeleteTask(ctx, taskID); err != nil {
		c.mu.Lock()
		at := min(idx, len(c.detail.Tasks))
		c.detail.Tasks = append(c.detail.Tasks[:at:at], append([]domain.Task{removed}, c.detail.Tasks[at:]...)...)
		c.mu.Unlock()
		c.logger(ctx, "DeleteTask").Error("Failed to delete task, restored", err, port.Fields{"task_id": taskID})
		return DealView{}, fmt.Errorf("failed to delete task: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(), nil
}

func (c *DealDetailController) taskIndexLocked(taskID int64) int {
	for i, t := range c.detail.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// SearchListings - явный поиск объектов для привязки, постранично.
func (c *DealDetailController) SearchListings(ctx context.Context, keyword string, page int) (domain.ListingPage, error) {
	if page < 1 {
		page = 1
	}
	result, err := c.listings.SearchListings(ctx, strings.TrimSpace(keyword), page, ListingSearchPageSize)
	if err != nil {
		c.logger(ctx, "SearchListings").Error("Failed to search listings", err, nil)
		return domain.ListingPage{}, fmt.Errorf("failed to search listings: %w", err)
	}
	return result, nil
}

// LinkListing привязывает объект к сделке и перечитывает вкладку объектов.
func (c *DealDetailController) LinkListing(ctx context.Context, listingID string) (DealView, error) {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return DealView{}, domain.NewValidationError("listingId", "listing id is required")
	}
	logger := c.logger(ctx, "LinkListing")

	if err := c.deals.LinkListing(ctx, c.dealID, listingID); err != nil {
		logger.Error("Failed to link listing", err, port.Fields{"listing_id": listingID})
		return DealView{}, fmt.Errorf("failed to link listing: %w", err)
	}

	detail, err := c.deals.GetDeal(ctx, c.dealID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logger.Warn("Listing linked but deal refresh failed", port.Fields{"listing_id": listingID, "error": err.Error()})
		if !containsListing(c.detail.Listings, listingID) {
			c.detail.Listings = append(c.detail.Listings, domain.ListingCard{ID: listingID})
		}
		return c.viewLocked(), nil
	}
	c.detail.Listings = append([]domain.ListingCard(nil), detail.Listings...)
	return c.viewLocked(), nil
}

// UnlinkListing требует подтверждения, объект убирается сразу и возвращается при ошибке.
func (c *DealDetailController) UnlinkListing(ctx context.Context, listingID string, confirmed bool) (DealView, error) {
	if !confirmed {
		return DealView{}, domain.ErrConfirmationRequired
	}

	c.mu.Lock()
	idx := -1
	for i, l := range c.detail.Listings {
		if l.ID == listingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return DealView{}, domain.ErrListingNotLinked
	}
	removed := c.detail.Listings[idx]
	c.detail.Listings = append(c.detail.Listings[:idx:idx], c.detail.Listings[idx+1:]...)
	c.mu.Unlock()

	if err := c.deals.UnlinkListing(ctx, c.dealID, listingID); err != nil {
		c.mu.Lock()
		at := min(idx, len(c.detail.Listings))
		c.detail.Listings = append(c.detail.Listings[:at:at], append([]domain.ListingCard{removed}, c.detail.Listings[at:]...)...)
		c.mu.Unlock()
		c.logger(ctx, "UnlinkListing").Error("Failed to unlink listing, restored", err, port.Fields{"listing_id": listingID})
		return DealView{}, fmt.Errorf("failed to unlink listing: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(), nil
}

// Delete удаляет сделку целиком и убирает карточку с доски.
func (c *DealDetailController) Delete(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	if err := c.deals.DeleteDeal(ctx, c.dealID); err != nil {
		c.logger(ctx, "Delete").Error("Failed to delete deal", err, nil)
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
	if c.board != nil {
		c.board.RemoveDeal(ctx, c.dealID)
	}
	c.publish(ctx, domain.NewCRMEvent(domain.EventDealRemoved, "", c.dealID, nil))
	return nil
}

func (c *DealDetailController) publish(ctx context.Context, event domain.CRMEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger(ctx, "publish").Warn("Failed to publish CRM event", port.Fields{"event_type": event.Type, "error": err.Error()})
	}
}

func containsListing(cards []domain.ListingCard, id string) bool {
	for _, c := range cards {
		if c.ID == id {
			return true
		}
	}
	return false
}

// DealDetailRegistry хранит по одному контроллеру на сделку.
// Сделки, к которым не обращались дольше idleTTL, выгружаются при следующем обращении к реестру.
type DealDetailRegistry struct {
	deals     port.DealGatewayPort
	listings  port.ListingGatewayPort
	board     BoardSync
	publisher port.EventPublisherPort
	location  *time.Location

	mu          sync.Mutex
	controllers map[int64]*DealDetailController
	idleTTL     time.Duration
	now         func() time.Time
}

func NewDealDetailRegistry(
	deals port.DealGatewayPort,
	listings port.ListingGatewayPort,
	board BoardSync,
	publisher port.EventPublisherPort,
	location *time.Location,
) *DealDetailRegistry {
	return &DealDetailRegistry{
		deals:       deals,
		listings:    listings,
		board:       board,
		publisher:   publisher,
		location:    location,
		controllers: make(map[int64]*DealDetailController),
		idleTTL:     DefaultDealIdleTTL,
		now:         time.Now,
	}
}

// SetIdleTTL меняет срок простоя, после которого сделка выгружается. d <= 0 отключает выгрузку.
func (r *DealDetailRegistry) SetIdleTTL(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idleTTL = d
}

// SetClock подменяет источник времени.
func (r *DealDetailRegistry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Len - число открытых сделок.
func (r *DealDetailRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Open выбирает сделку. Данные всегда перечитываются с сервера.
func (r *DealDetailRegistry) Open(ctx context.Context, dealID int64) (*DealDetailController, DealView, error) {
	ctrl := r.controller(dealID)
	view, err := ctrl.Load(ctx)
	if err != nil {
		return nil, DealView{}, err
	}
	return ctrl, view, nil
}

// Get возвращает уже открытую сделку или открывает ее.
func (r *DealDetailRegistry) Get(ctx context.Context, dealID int64) (*DealDetailController, error) {
	ctrl := r.controller(dealID)
	if _, err := ctrl.View(); err == nil {
		return ctrl, nil
	}
	if _, err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Forget закрывает сделку.
func (r *DealDetailRegistry) Forget(dealID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, dealID)
}

func (r *DealDetailRegistry) controller(dealID int64) *DealDetailController {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.evictIdleLocked(now)

	ctrl, ok := r.controllers[dealID]
	if !ok {
		ctrl = newDealDetailController(dealID, r.deals, r.listings, r.board, r.publisher, r.location)
		r.controllers[dealID] = ctrl
	}
	ctrl.touch(now)
	return ctrl
}

// evictIdleLocked выгружает простаивающие сделки. Сделка со сменой статуса в полете остается.
func (r *DealDetailRegistry) evictIdleLocked(now time.Time) {
	if r.idleTTL <= 0 {
		return
	}
	for id, ctrl := range r.controllers {
		if ctrl.idleSince(now) > r.idleTTL {
			delete(r.controllers, id)
		}
	}
}

func (c *DealDetailController) touch(now time.Time) {
	c.mu.Lock()
	c.lastUsed = now
	c.mu.Unlock()
}

func (c *DealDetailController) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusBusy {
		return 0
	}
	return now.Sub(c.lastUsed)
}
