package notifier

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/board"
	"brokerage-backoffice/internal/core/port"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// AllPipelines - ключ подписки на события всех воронок (например, для редактора конфигурации).
const AllPipelines = "*"

const (
	eventBufferSize  = 100
	clientBufferSize = 32
)

// ClientChannel - канал, через который события уходят одному SSE-соединению.
type ClientChannel chan []byte

type eventWithContext struct {
	ctx   context.Context
	event port.BoardEvent
}

// boardMessage - то, что получает браузер: тип изменения и актуальные колонки воронки.
type boardMessage struct {
	Type       string         `json:"type"`
	PipelineID string         `json:"pipelineId"`
	Detail     map[string]any `json:"detail,omitempty"`
	Columns    []board.Column `json:"columns,omitempty"`
}

// SSENotifier - реализация BoardNotifierPort. Клиенты подписываются на конкретную воронку.
type SSENotifier struct {
	// ключ - ID воронки (или AllPipelines), значение - открытые вкладки
	clients map[string][]ClientChannel
	mu      sync.RWMutex

	eventChan chan eventWithContext
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	logger port.LoggerPort
}

var _ port.BoardNotifierPort = (*SSENotifier)(nil)

// NewSSENotifier создает нотификатор и запускает диспетчер.
func NewSSENotifier(baseLogger port.LoggerPort) *SSENotifier {
	n := &SSENotifier{
		clients:   make(map[string][]ClientChannel),
		eventChan: make(chan eventWithContext, eventBufferSize),
		done:      make(chan struct{}),
		logger:    baseLogger.WithFields(port.Fields{"component": "SSENotifier"}),
	}
	n.wg.Add(1)
	go n.dispatcher()
	return n
}

func (n *SSENotifier) dispatcher() {
	defer n.wg.Done()
	n.logger.Debug("Notifier dispatcher started", nil)
	for {
		select {
		case <-n.done:
			n.logger.Debug("Notifier dispatcher stopped", nil)
			return
		case pkg := <-n.eventChan:
			n.dispatch(pkg)
		}
	}
}

func (n *SSENotifier) dispatch(pkg eventWithContext) {
	event := pkg.event
	eventLogger := contextkeys.LoggerFromContext(pkg.ctx).WithFields(port.Fields{
		"component":   "SSENotifier.dispatcher",
		"event_type":  event.Type,
		"pipeline_id": event.PipelineID,
	})

	msg := boardMessage{Type: event.Type, PipelineID: event.PipelineID, Detail: event.Detail}
	if event.Pipeline != nil {
		msg.Columns = board.Render(*event.Pipeline, nil).Columns
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		eventLogger.Error("Failed to marshal board event", err, nil)
		return
	}
	sseMessage := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

	n.mu.RLock()
	defer n.mu.RUnlock()

	targets := append([]ClientChannel(nil), n.clients[event.PipelineID]...)
	targets = append(targets, n.clients[AllPipelines]...)
	if len(targets) == 0 {
		eventLogger.Debug("No active subscribers, event dropped", nil)
		return
	}
	for _, ch := range targets {
		// медленный клиент не должен блокировать остальных
		select {
		case ch <- sseMessage:
		default:
			eventLogger.Warn("Client channel is full, skipping", nil)
		}
	}
}

// Notify ставит событие в очередь диспетчера. После Close события отбрасываются.
func (n *SSENotifier) Notify(ctx context.Context, event port.BoardEvent) {
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.eventChan <- eventWithContext{ctx: ctx, event: event}:
	case <-n.done:
	default:
		contextkeys.LoggerFromContext(ctx).Warn("Board event queue is full, event dropped", port.Fields{
			"event_type":  event.Type,
			"pipeline_id": event.PipelineID,
		})
	}
}

// AddClient регистрирует SSE-соединение для воронки.
func (n *SSENotifier) AddClient(pipelineID string) ClientChannel {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(ClientChannel, clientBufferSize)
	n.clients[pipelineID] = append(n.clients[pipelineID], ch)
	n.logger.Info("Client subscribed to board events", port.Fields{
		"pipeline_id":       pipelineID,
		"total_connections": len(n.clients[pipelineID]),
	})
	return ch
}

// RemoveClient снимает подписку при закрытии соединения.
func (n *SSENotifier) RemoveClient(pipelineID string, ch ClientChannel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	channels, found := n.clients[pipelineID]
	if !found {
		return
	}
	remaining := make([]ClientChannel, 0, len(channels))
	for _, c := range channels {
		if c != ch {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(n.clients, pipelineID)
	} else {
		n.clients[pipelineID] = remaining
	}
	n.logger.Info("Client unsubscribed from board events", port.Fields{
		"pipeline_id":           pipelineID,
		"remaining_connections": len(remaining),
	})
}

// Subscribers - число активных соединений по воронке.
func (n *SSENotifier) Subscribers(pipelineID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.clients[pipelineID])
}

// Done закрывается при остановке нотификатора, открытые потоки по нему завершаются.
func (n *SSENotifier) Done() <-chan struct{} {
	return n.done
}

// Close останавливает диспетчер. Повторный вызов безопасен.
func (n *SSENotifier) Close() {
	n.closeOnce.Do(func() {
		close(n.done)
	})
	n.wg.Wait()
}
