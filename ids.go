// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// EventID is a 128-bit identifier wire-encoded as 32 lowercase hex
// characters without dashes, used for events, transactions, check-ins
// and sessions alike.
type EventID [16]byte

// SpanID is a 64-bit identifier wire-encoded as 16 lowercase hex characters.
type SpanID [8]byte

// NewEventID returns a new, randomly generated [EventID].
//
// The identifier is derived from a CSPRNG-backed UUID v4: the version and
// variant bits are set exactly as RFC 4122 mandates, but the wire encoding
// never emits the dashes, matching the envelope format's 32-hex-char form.
//
// This function panics if the system random number generator fails, which
// should only happen under extraordinary circumstances.
func NewEventID() EventID {
	u := runtimex.PanicOnError1(uuid.NewRandom())
	var id EventID
	copy(id[:], u[:])
	return id
}

// NewSpanID returns a new, randomly generated [SpanID].
func NewSpanID() SpanID {
	var id SpanID
	u := runtimex.PanicOnError1(uuid.NewRandom())
	copy(id[:], u[:8])
	return id
}

// String returns the 32-character lowercase hex encoding of the identifier.
func (id EventID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the all-zero identifier.
func (id EventID) IsZero() bool {
	return id == EventID{}
}

// MarshalJSON implements [json.Marshaler].
func (id EventID) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, "%q", id.String()), nil
}

// ParseEventID parses the 32-character lowercase (or uppercase) hex form
// produced by [EventID.String].
func ParseEventID(s string) (EventID, error) {
	var id EventID
	if len(s) != 32 {
		return id, errors.New("beacon: event id must be 32 hex characters")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("beacon: malformed event id: %w", err)
	}
	copy(id[:], b)
	return id, nil
}

// String returns the 16-character lowercase hex encoding of the identifier.
func (id SpanID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the all-zero identifier.
func (id SpanID) IsZero() bool {
	return id == SpanID{}
}

// MarshalJSON implements [json.Marshaler].
func (id SpanID) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, "%q", id.String()), nil
}

// ParseSpanID parses the 16-character hex form produced by [SpanID.String].
func ParseSpanID(s string) (SpanID, error) {
	var id SpanID
	if len(s) != 16 {
		return id, errors.New("beacon: span id must be 16 hex characters")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("beacon: malformed span id: %w", err)
	}
	copy(id[:], b)
	return id, nil
}

// rfc3339Layout is the canonical, fixed-width timestamp encoding this
// package emits: exactly 24 bytes, always UTC, millisecond resolution.
const rfc3339Layout = "2006-01-02T15:04:05.000Z"

// FormatRFC3339 formats t as the canonical wire timestamp, e.g.
// "2025-02-25T12:00:00.000Z". The result is always exactly 24 bytes: the
// standard library's calendar math (proleptic Gregorian, UTC) is correct
// for every date from 1970-01-01 onward, so no bespoke date arithmetic is
// needed here.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Round(time.Millisecond).Format(rfc3339Layout)
}

// ParseRFC3339 parses the canonical wire timestamp format produced by
// [FormatRFC3339]. It also accepts the variants with no fractional seconds
// or with a numeric zone offset, for tolerance reading payloads not
// produced by this package.
func ParseRFC3339(s string) (time.Time, error) {
	for _, layout := range []string{rfc3339Layout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("beacon: malformed timestamp %q", s)
}

// UnixSeconds returns t as a fractional Unix timestamp in seconds,
// matching the wire representation used by events, transactions and spans.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
