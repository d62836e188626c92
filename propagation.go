// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TraceContext is the result of parsing an inbound propagation header: a
// trace to continue, the remote parent span, and whether the remote side
// had already decided to sample.
type TraceContext struct {
	TraceID       EventID
	ParentSpanID  SpanID
	ParentSampled bool
	HasSampled    bool
}

// ParseSentryTrace parses the legacy `sentry-trace: <trace_id>-<span_id>[-<sampled>]`
// header value.
func ParseSentryTrace(header string) (TraceContext, error) {
	header = strings.TrimSpace(header)
	parts := strings.Split(header, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return TraceContext{}, fmt.Errorf("beacon: malformed sentry-trace header %q", header)
	}

	traceID, err := decodeFixedHex16(parts[0])
	if err != nil {
		return TraceContext{}, fmt.Errorf("beacon: sentry-trace trace id: %w", err)
	}
	spanID, err := decodeFixedHex8(parts[1])
	if err != nil {
		return TraceContext{}, fmt.Errorf("beacon: sentry-trace span id: %w", err)
	}
	if isAllZero(traceID[:]) || isAllZero(spanID[:]) {
		return TraceContext{}, fmt.Errorf("beacon: sentry-trace carries an all-zero identifier")
	}

	tc := TraceContext{TraceID: traceID, ParentSpanID: spanID}
	if len(parts) == 3 {
		switch parts[2] {
		case "1":
			tc.ParentSampled, tc.HasSampled = true, true
		case "0":
			tc.ParentSampled, tc.HasSampled = false, true
		default:
			return TraceContext{}, fmt.Errorf("beacon: sentry-trace invalid sampled flag %q", parts[2])
		}
	}
	return tc, nil
}

// ParseTraceParent parses a W3C `traceparent: <version>-<trace_id>-<span_id>-<flags>`
// header value.
//
// Version "ff" is always invalid. Version "00" rejects any trailing
// content after the flags field; unrecognised future versions tolerate
// trailing fields, per the W3C spec's forward-compatibility rule. The low
// bit of flags is the sampled bit. All-zero trace or span identifiers are
// rejected. Identifiers are normalised to lowercase by the hex decoder,
// which is itself case-insensitive.
func ParseTraceParent(header string) (TraceContext, error) {
	header = strings.TrimSpace(header)
	fields := strings.Split(header, "-")
	if len(fields) < 4 {
		return TraceContext{}, fmt.Errorf("beacon: malformed traceparent header %q", header)
	}

	version := strings.ToLower(fields[0])
	if version == "ff" {
		return TraceContext{}, fmt.Errorf("beacon: traceparent version ff is forbidden")
	}
	if len(version) != 2 {
		return TraceContext{}, fmt.Errorf("beacon: traceparent version must be 2 hex chars")
	}
	if version == "00" && len(fields) != 4 {
		return TraceContext{}, fmt.Errorf("beacon: traceparent version 00 forbids trailing fields")
	}

	traceID, err := decodeFixedHex16(fields[1])
	if err != nil {
		return TraceContext{}, fmt.Errorf("beacon: traceparent trace id: %w", err)
	}
	spanID, err := decodeFixedHex8(fields[2])
	if err != nil {
		return TraceContext{}, fmt.Errorf("beacon: traceparent span id: %w", err)
	}
	if isAllZero(traceID[:]) || isAllZero(spanID[:]) {
		return TraceContext{}, fmt.Errorf("beacon: traceparent carries an all-zero identifier")
	}

	flagsRaw, err := hex.DecodeString(fields[3])
	if err != nil || len(flagsRaw) != 1 {
		return TraceContext{}, fmt.Errorf("beacon: traceparent flags must be 2 hex chars")
	}

	return TraceContext{
		TraceID:       traceID,
		ParentSpanID:  spanID,
		ParentSampled: flagsRaw[0]&0x01 == 1,
		HasSampled:    true,
	}, nil
}

// BaggageMember is one Sentry-prefixed key/value pair recovered from an
// inbound `baggage` header.
type BaggageMember struct {
	Key   string
	Value string
}

// ParseBaggage opportunistically extracts "sentry-"-prefixed members from
// a W3C baggage header; non-Sentry members and malformed entries are
// silently skipped.
func ParseBaggage(header string) []BaggageMember {
	var members []BaggageMember
	for _, entry := range strings.Split(header, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kv := strings.SplitN(entry, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if !strings.HasPrefix(key, "sentry-") {
			continue
		}
		valuePart := strings.SplitN(kv[1], ";", 2)[0]
		members = append(members, BaggageMember{
			Key:   strings.TrimPrefix(key, "sentry-"),
			Value: strings.TrimSpace(valuePart),
		})
	}
	return members
}

func decodeFixedHex16(s string) (EventID, error) {
	var out EventID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return out, fmt.Errorf("expected 32 hex chars, got %q", s)
	}
	copy(out[:], b)
	return out, nil
}

func decodeFixedHex8(s string) (SpanID, error) {
	var out SpanID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 8 {
		return out, fmt.Errorf("expected 16 hex chars, got %q", s)
	}
	copy(out[:], b)
	return out, nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
