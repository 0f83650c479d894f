package notifier_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"brokerage-backoffice/internal/adapters/notifier"
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch notifier.ClientChannel) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return ""
	}
}

func TestNotify_DeliversToPipelineAndWildcardSubscribers(t *testing.T) {
	t.Parallel()

	n := notifier.NewSSENotifier(contextkeys.NoopLogger())
	t.Cleanup(n.Close)

	p1 := n.AddClient("p1")
	p2 := n.AddClient("p2")
	all := n.AddClient(notifier.AllPipelines)

	pipeline := domain.Pipeline{ID: "p1", Stages: []domain.Stage{
		{ID: 1, Name: "Contato", Order: 0, Deals: []domain.Deal{{ID: 9, Title: "Apto", Value: 1000}}},
	}}
	n.Notify(context.Background(), port.BoardEvent{Type: domain.EventDealCreated, PipelineID: "p1", Pipeline: &pipeline})

	msg := receive(t, p1)
	require.True(t, strings.HasPrefix(msg, "event: deal.created\ndata: "))
	require.True(t, strings.HasSuffix(msg, "\n\n"))

	var body struct {
		PipelineID string `json:"pipelineId"`
		Columns    []struct {
			StageID int64 `json:"stageId"`
			Cards   []struct {
				DealID int64 `json:"dealId"`
			} `json:"cards"`
		} `json:"columns"`
	}
	data := strings.TrimSuffix(strings.TrimPrefix(msg, "event: deal.created\ndata: "), "\n\n")
	require.NoError(t, json.Unmarshal([]byte(data), &body))
	assert.Equal(t, "p1", body.PipelineID)
	require.Len(t, body.Columns, 1)
	require.Len(t, body.Columns[0].Cards, 1)
	assert.Equal(t, int64(9), body.Columns[0].Cards[0].DealID)

	assert.NotEmpty(t, receive(t, all))
	select {
	case <-p2:
		t.Fatal("subscriber of another pipeline must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRemoveClient(t *testing.T) {
	t.Parallel()

	n := notifier.NewSSENotifier(contextkeys.NoopLogger())
	t.Cleanup(n.Close)

	a := n.AddClient("p1")
	b := n.AddClient("p1")
	assert.Equal(t, 2, n.Subscribers("p1"))

	n.RemoveClient("p1", a)
	assert.Equal(t, 1, n.Subscribers("p1"))
	n.RemoveClient("p1", b)
	assert.Equal(t, 0, n.Subscribers("p1"))
	n.RemoveClient("unknown", b)
}

func TestNotifyAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	n := notifier.NewSSENotifier(contextkeys.NoopLogger())
	ch := n.AddClient("p1")
	n.Close()
	n.Close()

	n.Notify(context.Background(), port.BoardEvent{Type: domain.EventBoardLoaded, PipelineID: "p1"})
	select {
	case <-ch:
		t.Fatal("closed notifier must not deliver events")
	case <-time.After(50 * time.Millisecond):
	}
}
