// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"encoding/json"
	"time"
)

// SessionStatus is the state of a [Session]'s state machine.
type SessionStatus string

const (
	SessionOK       SessionStatus = "ok"
	SessionExited   SessionStatus = "exited"
	SessionCrashed  SessionStatus = "crashed"
	SessionAbnormal SessionStatus = "abnormal"
	SessionErrored  SessionStatus = "errored"
)

// SessionMode selects whether a [Session] represents the whole process
// lifetime ("application") or a single unit of work such as one request
// ("request"); only the latter emits a Duration on end.
type SessionMode string

const (
	SessionModeApplication SessionMode = "application"
	SessionModeRequest     SessionMode = "request"
)

// Session tracks the health of one logical run (the whole process, or one
// request, depending on [SessionMode]) so crash-free-session-rate can be
// computed server-side.
//
// Not safe for concurrent use; the [Hub] serializes access via its own
// mutex.
type Session struct {
	ID          EventID
	DistinctID  string
	Init        bool
	Started     time.Time
	Updated     time.Time
	Status      SessionStatus
	Errors      int
	Release     string
	Environment string
	Duration    *float64 // set on End

	mode  SessionMode
	dirty bool // true since last flush
}

// NewSession starts a new session at the given time with Status ok and
// Init true; Init is only ever true for the first flush of a session.
func NewSession(mode SessionMode, release, environment string, now time.Time) *Session {
	return &Session{
		ID:          NewEventID(),
		Init:        true,
		Started:     now,
		Updated:     now,
		Status:      SessionOK,
		Release:     release,
		Environment: environment,
		mode:        mode,
		dirty:       true,
	}
}

// MarkErrored transitions ok -> errored on the first errored event and
// increments the error counter on every errored event, the first included.
func (s *Session) MarkErrored(now time.Time) {
	if s.Status == SessionOK {
		s.Status = SessionErrored
	}
	s.Errors++
	s.Updated = now
	s.dirty = true
}

// End transitions the session to a terminal status (exited, crashed or
// abnormal) and, for request-mode sessions, records the duration.
func (s *Session) End(status SessionStatus, now time.Time) {
	s.Status = status
	s.Updated = now
	if s.mode == SessionModeRequest {
		d := now.Sub(s.Started).Seconds()
		s.Duration = &d
	}
	s.dirty = true
}

// IsDirty reports whether the session has changed since the last call to
// [Session.Flushed].
func (s *Session) IsDirty() bool {
	return s.dirty
}

// Flushed marks the session clean and clears Init, so subsequent flushes
// of the same session id are reported with init:false.
func (s *Session) Flushed() {
	s.dirty = false
	s.Init = false
}

// wireSession is the canonical, hand-written JSON shape of a session item.
type wireSession struct {
	SID       string          `json:"sid"`
	DID       string          `json:"did,omitempty"`
	Init      bool            `json:"init"`
	Started   string          `json:"started"`
	Timestamp string          `json:"timestamp"`
	Status    SessionStatus   `json:"status"`
	Errors    int             `json:"errors"`
	Duration  *float64        `json:"duration,omitempty"`
	Attrs     wireSessionAttr `json:"attrs"`
}

type wireSessionAttr struct {
	Release     string `json:"release,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// Encode canonically encodes the session as the JSON payload of an
// envelope "session" item.
func (s *Session) Encode() ([]byte, error) {
	w := wireSession{
		SID:       s.ID.String(),
		DID:       s.DistinctID,
		Init:      s.Init,
		Started:   FormatRFC3339(s.Started),
		Timestamp: FormatRFC3339(s.Updated),
		Status:    s.Status,
		Errors:    s.Errors,
		Duration:  s.Duration,
		Attrs: wireSessionAttr{
			Release:     s.Release,
			Environment: s.Environment,
		},
	}
	return json.Marshal(w)
}
