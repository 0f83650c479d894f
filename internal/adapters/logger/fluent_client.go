package logger_adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// FluentConfig - подключение к Fluent Bit.
type FluentConfig struct {
	Host string
	Port int
}

// NewFluentClient создает клиент Fluent Bit. Теги формирует FluentLoggerAdapter,
// поэтому TagPrefix клиента не задается.
// Соединение не проверяется: ошибки появятся при первой отправке, и адаптер
// выведет такие записи в stderr.
func NewFluentClient(cfg FluentConfig) (*fluent.Fluent, error) {
	if cfg.Host == "" {
		return nil, errors.New("fluent bit host is required")
	}
	client, err := fluent.New(fluent.Config{
		FluentHost:   cfg.Host,
		FluentPort:   cfg.Port,
		Timeout:      3 * time.Second,
		Async:        true,
		MaxRetryWait: 10000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluent bit client: %w", err)
	}
	return client, nil
}
