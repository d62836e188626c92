// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionScenario(t *testing.T) {
	t0 := time.Now()
	tx := &Transaction{
		Root: Span{
			TraceID: NewEventID(),
			SpanID:  NewSpanID(),
			Op:      "http.server",
			Start:   t0,
		},
		Name: "GET /api/users",
	}
	child := tx.StartChild("db.query", "SELECT * FROM users", t0.Add(time.Millisecond))
	child.Finish(SpanStatusOK, t0.Add(10*time.Millisecond))
	tx.Root.Finish(SpanStatusOK, t0.Add(20*time.Millisecond))

	payload, err := tx.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Contains(t, string(payload), "http.server")
	assert.Contains(t, string(payload), "db.query")

	contexts := decoded["contexts"].(map[string]any)
	trace := contexts["trace"].(map[string]any)
	assert.Equal(t, "ok", trace["status"])

	spans := decoded["spans"].([]any)
	require.Len(t, spans, 1)
	span := spans[0].(map[string]any)
	assert.Equal(t, tx.Root.TraceID.String(), span["trace_id"])
	assert.Equal(t, tx.Root.SpanID.String(), span["parent_span_id"])
	assert.Equal(t, "ok", span["status"])
}

func TestTransactionDropsUnfinishedSpans(t *testing.T) {
	t0 := time.Now()
	tx := &Transaction{Root: Span{TraceID: NewEventID(), SpanID: NewSpanID(), Start: t0}}
	tx.StartChild("never.finishes", "", t0)
	finished := tx.StartChild("finishes", "", t0)
	finished.Finish(SpanStatusOK, t0.Add(time.Millisecond))
	tx.Root.Finish(SpanStatusOK, t0.Add(2*time.Millisecond))

	assert.Len(t, tx.finishedSpans(), 1)
	assert.Equal(t, "finishes", tx.finishedSpans()[0].Op)
}

func TestSpanFinished(t *testing.T) {
	s := &Span{}
	assert.False(t, s.Finished())
	s.Finish(SpanStatusOK, time.Now())
	assert.True(t, s.Finished())
}
