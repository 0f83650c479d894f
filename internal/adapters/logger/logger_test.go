package logger_adapter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	logger_adapter "brokerage-backoffice/internal/adapters/logger"
	"brokerage-backoffice/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPoster struct {
	tags    []string
	records []map[string]interface{}
	err     error
}

func (r *recordingPoster) Post(tag string, message interface{}) error {
	r.tags = append(r.tags, tag)
	r.records = append(r.records, message.(map[string]interface{}))
	return r.err
}

func TestSlogAdapter_JSONOutputRedactsCredentials(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{Writer: &buf, Level: slog.LevelDebug, IsJSON: true})

	log.WithFields(port.Fields{"component": "crm_client"}).
		Error("Remote call failed", errors.New("boom"), port.Fields{"authorization": "Bearer abc", "status": 401})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Remote call failed", entry["msg"])
	assert.Equal(t, "crm_client", entry["component"])
	assert.Equal(t, "[REDACTED]", entry["authorization"])
	assert.Equal(t, "boom", entry["error"])
	assert.EqualValues(t, 401, entry["status"])
}

func TestSlogAdapter_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{Writer: &buf, Level: slog.LevelWarn})

	log.Debug("hidden", nil)
	log.Info("hidden", nil)
	log.Warn("shown", nil)

	assert.Equal(t, 1, strings.Count(buf.String(), "shown"))
	assert.NotContains(t, buf.String(), "hidden")
}

func TestFluentLoggerAdapter_PostsWithPrefixedTag(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{}
	log, err := logger_adapter.NewFluentLoggerAdapter(poster, "brokerage", slog.LevelInfo)
	require.NoError(t, err)

	scoped := log.WithFields(port.Fields{"trace_id": "t-1"})
	scoped.Debug("skipped", nil)
	scoped.Warn("stage save partially failed", port.Fields{"failed": 2})

	require.Len(t, poster.records, 1)
	assert.Equal(t, "brokerage.warn", poster.tags[0])
	assert.Equal(t, "t-1", poster.records[0]["trace_id"])
	assert.Equal(t, 2, poster.records[0]["failed"])
	assert.Equal(t, "stage save partially failed", poster.records[0]["message"])
}

func TestFluentLoggerAdapter_NilClient(t *testing.T) {
	t.Parallel()

	_, err := logger_adapter.NewFluentLoggerAdapter(nil, "brokerage", nil)
	assert.Error(t, err)
}

func TestMultiLoggerAdapter_FansOut(t *testing.T) {
	t.Parallel()

	first, second := &recordingPoster{}, &recordingPoster{}
	a, err := logger_adapter.NewFluentLoggerAdapter(first, "", slog.LevelDebug)
	require.NoError(t, err)
	b, err := logger_adapter.NewFluentLoggerAdapter(second, "", slog.LevelDebug)
	require.NoError(t, err)

	multi, err := logger_adapter.NewMultiLoggerAdapter(a, nil, b)
	require.NoError(t, err)
	assert.Equal(t, 2, multi.Len())

	multi.WithFields(port.Fields{"use_case": "ConvertLead"}).Info("Use case started", nil)

	require.Len(t, first.records, 1)
	require.Len(t, second.records, 1)
	assert.Equal(t, "ConvertLead", second.records[0]["use_case"])
	assert.Equal(t, "info", first.tags[0])
}

func TestMultiLoggerAdapter_RequiresLogger(t *testing.T) {
	t.Parallel()

	_, err := logger_adapter.NewMultiLoggerAdapter()
	assert.Error(t, err)
}
