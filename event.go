// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"encoding/json"
	"time"
)

// Level is the severity of an [Event] or a [Breadcrumb].
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// eventPlatform is the fixed platform tag every event carries.
const eventPlatform = "go"

// Message is the optional formatted-message interface of an [Event].
type Message struct {
	Formatted string   `json:"formatted,omitempty"`
	Template  string   `json:"message,omitempty"`
	Params    []string `json:"params,omitempty"`
}

// StackFrame is a single frame of a [Stacktrace].
type StackFrame struct {
	Function string `json:"function,omitempty"`
	Module   string `json:"module,omitempty"`
	File     string `json:"filename,omitempty"`
	Line     int    `json:"lineno,omitempty"`
}

// Stacktrace is an ordered list of [StackFrame], innermost frame last
// (matching the convention the rest of the ecosystem uses).
type Stacktrace struct {
	Frames []StackFrame `json:"frames,omitempty"`
}

// Exception is a single entry in an event's ordered exception interface.
type Exception struct {
	Type       string      `json:"type,omitempty"`
	Value      string      `json:"value,omitempty"`
	Module     string      `json:"module,omitempty"`
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`
}

// User identifies the actor associated with an [Event].
type User struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// Attachment is an opaque, out-of-band payload carried alongside an event
// envelope as its own item. Attachments travel only on their [Event]
// (Event.Attachments); neither the [Scope] nor the [Hub] holds any. When
// the event is submitted, the capture pipeline takes a defensive copy of
// Payload to frame into the envelope.
type Attachment struct {
	Filename       string
	Payload        []byte
	ContentType    string // optional
	AttachmentType string // optional
}

// Event is a single captured error, message or log line.
//
// Fields are exported for direct construction in tests and by callers that
// bypass [Hub.CaptureMessage]/[Hub.CaptureException]; ordinary capture
// paths fill most of this in via [Scope.Apply] and client defaults.
type Event struct {
	EventID     EventID
	Timestamp   time.Time
	Platform    string
	Level       Level
	Logger      string
	ServerName  string
	Release     string
	Dist        string
	Environment string
	Transaction string

	Message   *Message
	Exception []Exception

	Tags     map[string]string
	Extra    map[string]any
	Contexts map[string]map[string]any

	User        *User
	Breadcrumbs []Breadcrumb
	Fingerprint []string

	Attachments []Attachment
}

// NewEvent returns an [*Event] with identifier, timestamp and platform
// filled in, ready for a caller to set Level/Message/Exception and pass to
// [Hub.CaptureEvent].
func NewEvent() *Event {
	return &Event{
		EventID:   NewEventID(),
		Timestamp: time.Now(),
		Platform:  eventPlatform,
		Level:     LevelInfo,
	}
}

// wireBreadcrumbs is the envelope wire shape for the breadcrumbs interface:
// a "values" envelope, matching the convention used for exceptions.
type wireBreadcrumbs struct {
	Values []wireBreadcrumb `json:"values"`
}

type wireBreadcrumb struct {
	Timestamp string         `json:"timestamp,omitempty"`
	Type      string         `json:"type,omitempty"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     Level          `json:"level,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type wireExceptions struct {
	Values []Exception `json:"values"`
}

// wireEvent is the canonical, null-omitting JSON shape of an [Event]. It
// exists as a distinct type (rather than tagging [Event] directly) so the
// in-memory representation can use richer Go types (time.Time, EventID)
// while the wire representation stays a flat, stable document.
type wireEvent struct {
	EventID     string                    `json:"event_id"`
	Timestamp   float64                   `json:"timestamp"`
	Platform    string                    `json:"platform"`
	Level       Level                     `json:"level,omitempty"`
	Logger      string                    `json:"logger,omitempty"`
	ServerName  string                    `json:"server_name,omitempty"`
	Release     string                    `json:"release,omitempty"`
	Dist        string                    `json:"dist,omitempty"`
	Environment string                    `json:"environment,omitempty"`
	Transaction string                    `json:"transaction,omitempty"`
	Message     *Message                  `json:"message,omitempty"`
	Exception   *wireExceptions           `json:"exception,omitempty"`
	Tags        map[string]string         `json:"tags,omitempty"`
	Extra       map[string]any            `json:"extra,omitempty"`
	Contexts    map[string]map[string]any `json:"contexts,omitempty"`
	User        *User                     `json:"user,omitempty"`
	Breadcrumbs *wireBreadcrumbs          `json:"breadcrumbs,omitempty"`
	Fingerprint []string                  `json:"fingerprint,omitempty"`
}

// Encode canonically encodes the event as the JSON payload of an envelope
// "event" item: optional fields that are nil/empty are omitted entirely,
// and the timestamp is a lossless fractional-seconds float.
func (e *Event) Encode() ([]byte, error) {
	w := wireEvent{
		EventID:     e.EventID.String(),
		Timestamp:   UnixSeconds(e.Timestamp),
		Platform:    e.Platform,
		Level:       e.Level,
		Logger:      e.Logger,
		ServerName:  e.ServerName,
		Release:     e.Release,
		Dist:        e.Dist,
		Environment: e.Environment,
		Transaction: e.Transaction,
		Message:     e.Message,
		Tags:        e.Tags,
		Extra:       e.Extra,
		Contexts:    e.Contexts,
		User:        e.User,
		Fingerprint: e.Fingerprint,
	}
	if w.Platform == "" {
		w.Platform = eventPlatform
	}
	if len(e.Exception) > 0 {
		w.Exception = &wireExceptions{Values: e.Exception}
	}
	if len(e.Breadcrumbs) > 0 {
		values := make([]wireBreadcrumb, len(e.Breadcrumbs))
		for i, b := range e.Breadcrumbs {
			ts := b.Timestamp
			if ts.IsZero() {
				ts = e.Timestamp
			}
			values[i] = wireBreadcrumb{
				Timestamp: FormatRFC3339(ts),
				Type:      b.Type,
				Category:  b.Category,
				Message:   b.Message,
				Level:     b.Level,
				Data:      b.Data,
			}
		}
		w.Breadcrumbs = &wireBreadcrumbs{Values: values}
	}
	return json.Marshal(w)
}

// IsErrorOrFatal reports whether the event's level should count towards a
// session's error tally (see [Session] state machine).
func (e *Event) IsErrorOrFatal() bool {
	return e.Level == LevelError || e.Level == LevelFatal
}
