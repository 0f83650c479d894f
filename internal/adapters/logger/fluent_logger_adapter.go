package logger_adapter

import (
	"brokerage-backoffice/internal/core/port"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// FluentPoster - часть клиента Fluent, которая нужна адаптеру.
type FluentPoster interface {
	Post(tag string, message interface{}) error
}

// FluentLoggerAdapter отправляет записи в Fluent Bit с тегом "<prefix>.<level>".
type FluentLoggerAdapter struct {
	client   FluentPoster
	tag      string
	fields   port.Fields
	minLevel slog.Level
	fallback io.Writer
}

// NewFluentLoggerAdapter - конструктор. tagPrefix обычно равен имени сервиса.
func NewFluentLoggerAdapter(client FluentPoster, tagPrefix string, minLevel slog.Leveler) (*FluentLoggerAdapter, error) {
	if client == nil {
		return nil, errors.New("fluent client cannot be nil")
	}
	if f, ok := client.(*fluent.Fluent); ok && f == nil {
		return nil, errors.New("fluent client cannot be nil")
	}

	level := slog.LevelInfo
	if minLevel != nil {
		level = minLevel.Level()
	}

	return &FluentLoggerAdapter{
		client:   client,
		tag:      tagPrefix,
		fields:   port.Fields{},
		minLevel: level,
		fallback: os.Stderr,
	}, nil
}

func (a *FluentLoggerAdapter) merge(fields port.Fields) port.Fields {
	merged := make(port.Fields, len(a.fields)+len(fields)+3)
	for k, v := range a.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = redact(k, v)
	}
	return merged
}

func (a *FluentLoggerAdapter) post(level slog.Level, msg string, data port.Fields) {
	if level < a.minLevel {
		return
	}
	name := levelName(level)
	data["level"] = name
	data["message"] = msg
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	tag := name
	if a.tag != "" {
		tag = a.tag + "." + name
	}
	// Недоступный Fluent Bit не должен ронять запрос, запись уходит в stderr.
	if err := a.client.Post(tag, map[string]interface{}(data)); err != nil && a.fallback != nil {
		fmt.Fprintf(a.fallback, "fluent post failed (%v): %s %s\n", err, name, msg)
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

func (a *FluentLoggerAdapter) Info(msg string, fields port.Fields) {
	a.post(slog.LevelInfo, msg, a.merge(fields))
}

func (a *FluentLoggerAdapter) Warn(msg string, fields port.Fields) {
	a.post(slog.LevelWarn, msg, a.merge(fields))
}

func (a *FluentLoggerAdapter) Error(msg string, err error, fields port.Fields) {
	data := a.merge(fields)
	if err != nil {
		data["error"] = err.Error()
	}
	a.post(slog.LevelError, msg, data)
}

func (a *FluentLoggerAdapter) Debug(msg string, fields port.Fields) {
	a.post(slog.LevelDebug, msg, a.merge(fields))
}

// WithFields возвращает новый адаптер, текущий не меняется.
func (a *FluentLoggerAdapter) WithFields(fields port.Fields) port.LoggerPort {
	return &FluentLoggerAdapter{
		client:   a.client,
		tag:      a.tag,
		fields:   a.merge(fields),
		minLevel: a.minLevel,
		fallback: a.fallback,
	}
}
