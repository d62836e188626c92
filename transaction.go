// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"encoding/json"
	"time"
)

// transactionPlatform is the fixed platform tag every transaction
// payload carries. Unlike events, transactions always report "other"
// regardless of the SDK's actual runtime.
const transactionPlatform = "other"

// SpanStatus is the outcome of a finished [Span] or [Transaction].
type SpanStatus string

const (
	SpanStatusOK               SpanStatus = "ok"
	SpanStatusUnknown          SpanStatus = "unknown"
	SpanStatusInvalidArgument  SpanStatus = "invalid_argument"
	SpanStatusCancelled        SpanStatus = "cancelled"
	SpanStatusInternalError    SpanStatus = "internal_error"
	SpanStatusDeadlineExceeded SpanStatus = "deadline_exceeded"
)

// Span is a child operation within a [Transaction].
//
// A span that never finishes (End left zero) is never emitted: see
// [Transaction.finishedSpans].
type Span struct {
	TraceID      EventID
	SpanID       SpanID
	ParentSpanID SpanID
	Op           string
	Description  string
	Status       SpanStatus
	Start        time.Time
	End          time.Time
}

// Finished reports whether the span has an end timestamp.
func (s *Span) Finished() bool {
	return !s.End.IsZero()
}

// Finish marks the span complete at now with the given status.
func (s *Span) Finish(status SpanStatus, now time.Time) {
	s.Status = status
	s.End = now
}

// Transaction is a root [Span] plus its ordered child spans.
//
// Construct via [Hub.StartTransaction]; finish the root and any children
// before calling [Hub.FinishTransaction], which drops unfinished children:
// spans that never finish are never emitted.
type Transaction struct {
	Root Span
	Name string

	// ParentSampled, when non-nil, came from inbound trace continuation
	// (see propagation.go) and overrides the hub's own sampling decision.
	ParentSampled *bool
	Sampled       bool

	Release     string
	Environment string

	spans []*Span
}

// StartChild starts and returns a new child span of t, inheriting t's
// trace identifier.
func (t *Transaction) StartChild(op, description string, now time.Time) *Span {
	s := &Span{
		TraceID:      t.Root.TraceID,
		SpanID:       NewSpanID(),
		ParentSpanID: t.Root.SpanID,
		Op:           op,
		Description:  description,
		Start:        now,
	}
	t.spans = append(t.spans, s)
	return s
}

// finishedSpans returns the subset of children that have an End timestamp,
// in the order they were started.
func (t *Transaction) finishedSpans() []*Span {
	out := make([]*Span, 0, len(t.spans))
	for _, s := range t.spans {
		if s.Finished() {
			out = append(out, s)
		}
	}
	return out
}

type wireTraceContext struct {
	TraceID string     `json:"trace_id"`
	SpanID  string     `json:"span_id"`
	Op      string     `json:"op,omitempty"`
	Status  SpanStatus `json:"status,omitempty"`
}

type wireSpan struct {
	TraceID      string     `json:"trace_id"`
	SpanID       string     `json:"span_id"`
	ParentSpanID string     `json:"parent_span_id,omitempty"`
	Op           string     `json:"op,omitempty"`
	Description  string     `json:"description,omitempty"`
	Start        float64    `json:"start_timestamp"`
	Timestamp    *float64   `json:"timestamp,omitempty"`
	Status       SpanStatus `json:"status,omitempty"`
}

type wireTransaction struct {
	Type        string                      `json:"type"`
	Transaction string                      `json:"transaction"`
	Start       float64                     `json:"start_timestamp"`
	Timestamp   float64                     `json:"timestamp"`
	Contexts    map[string]wireTraceContext `json:"contexts"`
	Spans       []wireSpan                  `json:"spans"`
	Platform    string                      `json:"platform"`
	Release     string                      `json:"release,omitempty"`
	Environment string                      `json:"environment,omitempty"`
}

// Encode hand-encodes the transaction as the JSON payload of an
// envelope "transaction" item.
func (t *Transaction) Encode() ([]byte, error) {
	w := wireTransaction{
		Type:        "transaction",
		Transaction: t.Name,
		Start:       UnixSeconds(t.Root.Start),
		Timestamp:   UnixSeconds(t.Root.End),
		Contexts: map[string]wireTraceContext{
			"trace": {
				TraceID: t.Root.TraceID.String(),
				SpanID:  t.Root.SpanID.String(),
				Op:      t.Root.Op,
				Status:  t.Root.Status,
			},
		},
		Platform:    transactionPlatform,
		Release:     t.Release,
		Environment: t.Environment,
	}
	for _, s := range t.finishedSpans() {
		ts := UnixSeconds(s.End)
		w.Spans = append(w.Spans, wireSpan{
			TraceID:      s.TraceID.String(),
			SpanID:       s.SpanID.String(),
			ParentSpanID: s.ParentSpanID.String(),
			Op:           s.Op,
			Description:  s.Description,
			Start:        UnixSeconds(s.Start),
			Timestamp:    &ts,
			Status:       s.Status,
		})
	}
	return json.Marshal(w)
}
