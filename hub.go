// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nullclaw/beacon/internal/envelope"
	"github.com/nullclaw/beacon/internal/ratelimit"
)

// Hub owns the current scope stack, the active session, and drives the
// capture pipeline. Every [Client] has one root
// hub ([Client.RootHub]); [Hub.Clone] produces a detached hub that
// shares the same client but snapshots the scope stack by deep copy, for
// carrying across goroutine boundaries via [ContextWithHub].
type Hub struct {
	mu      sync.Mutex
	scopes  []*Scope
	client  *Client
	session *Session
}

// newHub returns a [*Hub] with a single root scope sized from the
// client's configured breadcrumb capacity.
func newHub(client *Client) *Hub {
	return &Hub{
		scopes: []*Scope{NewScope(client.opts.MaxBreadcrumbs)},
		client: client,
	}
}

// PushScope pushes a clone of the current top scope and returns it, so
// mutations made after this call do not leak into the parent level.
func (h *Hub) PushScope() *Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	top := h.scopes[len(h.scopes)-1]
	cloned := top.Clone()
	h.scopes = append(h.scopes, cloned)
	return cloned
}

// PopScope pops the top scope. The lowest (root) scope can never be
// popped; calling PopScope with only the root on the stack is a no-op.
func (h *Hub) PopScope() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.scopes) <= 1 {
		return
	}
	h.scopes = h.scopes[:len(h.scopes)-1]
}

// CurrentScope returns the last scope pushed and not yet popped.
func (h *Hub) CurrentScope() *Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scopes[len(h.scopes)-1]
}

// WithScope pushes a child scope, runs fn with it, and pops it
// afterward even if fn panics.
func (h *Hub) WithScope(fn func(scope *Scope)) {
	scope := h.PushScope()
	defer h.PopScope()
	fn(scope)
}

// Clone returns a detached hub sharing this hub's client but carrying a
// deep-cloned copy of the current scope stack. The clone starts with no
// active session; it is meant to be carried into another goroutine via
// [ContextWithHub], not to inherit the original's session lifecycle.
func (h *Hub) Clone() *Hub {
	h.mu.Lock()
	defer h.mu.Unlock()
	cloned := &Hub{client: h.client, scopes: make([]*Scope, len(h.scopes))}
	for i, s := range h.scopes {
		cloned.scopes[i] = s.Clone()
	}
	return cloned
}

// AddBreadcrumb runs the configured BeforeBreadcrumb hook (if any) and,
// unless it drops the breadcrumb, stores it on the current scope with a
// timestamp defaulted to now.
func (h *Hub) AddBreadcrumb(b Breadcrumb) {
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now()
	}
	if hook := h.client.opts.BeforeBreadcrumb; hook != nil {
		out, ok := hook(b)
		if !ok {
			return
		}
		b = out
	}
	h.CurrentScope().AddBreadcrumb(b)
}

// CaptureEvent runs the full capture pipeline — defaults, scope
// application, event processors, session accounting, sampling,
// before-send, and submission — and returns the event's identifier, or
// the zero [EventID] if the event was dropped at any stage.
func (h *Hub) CaptureEvent(e *Event) EventID {
	if e == nil {
		return EventID{}
	}

	// Step 1: fill defaults from client options.
	if e.Release == "" {
		e.Release = h.client.opts.Release
	}
	if e.Environment == "" {
		e.Environment = h.client.opts.Environment
	}
	if e.ServerName == "" {
		e.ServerName = h.client.opts.ServerName
	}

	// Step 2: scope enrichment.
	scope := h.CurrentScope()
	scope.Apply(e)

	// Step 3: event processors, first drop wins.
	for _, p := range scope.processorSnapshot() {
		if !p.Process(e) {
			h.logOutcome("dropped-by-processor")
			return EventID{}
		}
	}

	// Step 4: session accounting.
	h.updateSessionForEvent(e)

	// Step 5: sampling, evaluated after processors.
	if !h.sampleKeep(h.client.opts.SampleRate) {
		h.logOutcome("sampled-out")
		return EventID{}
	}

	// Step 6: before-send hook.
	if hook := h.client.opts.BeforeSend; hook != nil {
		e = hook(e)
		if e == nil {
			h.logOutcome("dropped-by-before-send")
			return EventID{}
		}
	}

	// Step 7: encode, frame, submit.
	h.submitEvent(e)
	h.logOutcome("enqueued")
	return e.EventID
}

// CaptureMessage captures a plain text message at the given level.
func (h *Hub) CaptureMessage(text string, level Level) EventID {
	e := NewEvent()
	e.Level = level
	e.Message = &Message{Formatted: text}
	return h.CaptureEvent(e)
}

// CaptureException captures a single-entry exception interface.
func (h *Hub) CaptureException(excType, excValue string) EventID {
	e := NewEvent()
	e.Level = LevelError
	e.Exception = []Exception{{Type: excType, Value: excValue}}
	return h.CaptureEvent(e)
}

// CaptureCheckIn submits a monitor check-in, bypassing the event capture
// pipeline (check-ins carry no scope enrichment or sampling).
func (h *Hub) CaptureCheckIn(c *CheckIn) {
	if c == nil {
		return
	}
	payload, err := c.Encode()
	if err != nil {
		return
	}
	h.submitItem(envelope.ItemCheckIn, payload, "")
}

// TransactionOptions configures [Hub.StartTransaction].
type TransactionOptions struct {
	Name        string
	Op          string
	Description string
	// Trace, when set, continues an inbound trace (see propagation.go):
	// it overrides the hub's own sampling decision with the remote
	// parent's.
	Trace *TraceContext
	// Now overrides the start timestamp; defaults to time.Now().
	Now time.Time
}

// StartTransaction begins a new root [Transaction], either sampled fresh
// via [Options.TracesSampler]/[Options.TracesSampleRate] or continuing an
// inbound trace's sampling decision.
func (h *Hub) StartTransaction(ctx context.Context, opts TransactionOptions) *Transaction {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	root := Span{
		TraceID:     NewEventID(),
		SpanID:      NewSpanID(),
		Op:          opts.Op,
		Description: opts.Description,
		Status:      SpanStatusOK,
		Start:       now,
	}

	sampled := h.decideTransactionSampled(ctx)

	var parentSampled *bool
	if opts.Trace != nil {
		root.TraceID = opts.Trace.TraceID
		root.ParentSpanID = opts.Trace.ParentSpanID
		if opts.Trace.HasSampled {
			ps := opts.Trace.ParentSampled
			parentSampled = &ps
			sampled = ps
		}
	}

	return &Transaction{
		Root:          root,
		Name:          opts.Name,
		ParentSampled: parentSampled,
		Sampled:       sampled,
		Release:       h.client.opts.Release,
		Environment:   h.client.opts.Environment,
	}
}

func (h *Hub) decideTransactionSampled(ctx context.Context) bool {
	if sampler := h.client.opts.TracesSampler; sampler != nil {
		return h.sampleKeep(sampler(ctx))
	}
	return h.sampleKeep(h.client.opts.TracesSampleRate)
}

// FinishTransaction marks t.Root finished (if not already) and submits
// it, dropping any child spans that never finished. Unsampled
// transactions are discarded without an encode/submit round trip.
func (h *Hub) FinishTransaction(t *Transaction, now time.Time) {
	if !t.Root.Finished() {
		t.Root.Finish(t.Root.Status, now)
	}
	if !t.Sampled {
		return
	}
	payload, err := t.Encode()
	if err != nil {
		return
	}
	h.submitItem(envelope.ItemTransaction, payload, "")
}

// StartSession begins a new session on this hub, replacing any existing
// one without ending it (callers that need clean handoff should call
// [Hub.EndSession] first).
func (h *Hub) StartSession() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = NewSession(h.client.opts.SessionMode, h.client.opts.Release, h.client.opts.Environment, time.Now())
	h.submitSessionLocked(h.session)
}

// EndSession transitions the active session to a terminal status and
// submits its final update. A no-op if no session is active.
func (h *Hub) EndSession(status SessionStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return
	}
	h.session.End(status, time.Now())
	h.submitSessionLocked(h.session)
	h.session = nil
}

// updateSessionForEvent marks the active session errored on an
// error/fatal event, and emits an update whenever the session is dirty.
func (h *Hub) updateSessionForEvent(e *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return
	}
	if e.IsErrorOrFatal() {
		h.session.MarkErrored(time.Now())
	}
	if h.session.IsDirty() {
		h.submitSessionLocked(h.session)
	}
}

// submitSessionLocked encodes and submits s, then marks it flushed. The
// caller must hold h.mu.
func (h *Hub) submitSessionLocked(s *Session) {
	payload, err := s.Encode()
	if err != nil {
		return
	}
	h.submitItem(envelope.ItemSession, payload, "")
	s.Flushed()
}

// Flush delegates to the owning client's delivery queue.
func (h *Hub) Flush(timeout time.Duration) bool {
	return h.client.Flush(timeout)
}

func (h *Hub) sampleKeep(rate float64) bool {
	if rate >= 1 {
		return true
	}
	if rate <= 0 {
		return false
	}
	return rand.Float64() < rate
}

// submitEvent encodes e, frames it (plus any attachments) and submits
// the envelope to the client's worker.
func (h *Hub) submitEvent(e *Event) {
	payload, err := e.Encode()
	if err != nil {
		return
	}
	items := []envelope.Item{{Type: envelope.ItemEvent, Payload: payload}}
	for _, a := range e.Attachments {
		items = append(items, envelope.Item{
			Type:           envelope.ItemAttachment,
			Payload:        append([]byte(nil), a.Payload...),
			Filename:       a.Filename,
			ContentType:    a.ContentType,
			AttachmentType: a.AttachmentType,
		})
	}
	h.submitItems(e.EventID.String(), items)
}

// submitItem is the single-item convenience form of submitItems.
func (h *Hub) submitItem(itemType envelope.ItemType, payload []byte, eventID string) {
	h.submitItems(eventID, []envelope.Item{{Type: itemType, Payload: payload}})
}

func (h *Hub) submitItems(eventID string, items []envelope.Item) {
	header := envelope.Header{
		EventID:    eventID,
		DSN:        h.client.dsn.String(),
		SentAt:     FormatRFC3339(time.Now()),
		SDKName:    sdkName,
		SDKVersion: sdkVersion,
	}
	data, err := envelope.Encode(header, items)
	if err != nil {
		return
	}
	h.client.worker.Submit(data, categoryForItem(items[0].Type))
}

func categoryForItem(t envelope.ItemType) ratelimit.Category {
	switch t {
	case envelope.ItemTransaction:
		return ratelimit.CategoryTransaction
	case envelope.ItemSession:
		return ratelimit.CategorySession
	case envelope.ItemAttachment:
		return ratelimit.CategoryAttachment
	case envelope.ItemCheckIn:
		return ratelimit.CategoryCheckIn
	default:
		return ratelimit.CategoryError
	}
}

func (h *Hub) logOutcome(outcome string) {
	if h.client.opts.Debug {
		h.client.logger.Debug("beacon: capture outcome", "outcome", outcome)
	}
}

// hubContextKey is the unexported context key for carrying a detached
// hub across goroutine/async boundaries. Go has no thread-local storage,
// so a context value is the idiomatic substitute: callers thread it
// explicitly rather than relying on an implicit per-goroutine slot.
type hubContextKey struct{}

// ContextWithHub returns a copy of ctx carrying hub as the current hub.
func ContextWithHub(ctx context.Context, hub *Hub) context.Context {
	return context.WithValue(ctx, hubContextKey{}, hub)
}

// HubFromContext retrieves the hub carried by ctx, if any.
func HubFromContext(ctx context.Context) (*Hub, bool) {
	hub, ok := ctx.Value(hubContextKey{}).(*Hub)
	return hub, ok
}
