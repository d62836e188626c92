// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"sync"
)

// FanoutTransport broadcasts every envelope to a fixed set of backends
// concurrently. Its reported outcome merges the member outcomes
// conservatively: the longest Retry-After wins, rate-limit header
// directives are concatenated, and every non-nil member error is joined
// into one (a failing member does not cancel the others' sends).
type FanoutTransport struct {
	members []Transport
}

// NewFanoutTransport returns a [*FanoutTransport] broadcasting to members.
func NewFanoutTransport(members ...Transport) *FanoutTransport {
	return &FanoutTransport{members: members}
}

// Send dispatches envelope to every member in parallel and waits for all
// of them to finish before merging their outcomes.
func (f *FanoutTransport) Send(ctx context.Context, envelope []byte) Outcome {
	outcomes := make([]Outcome, len(f.members))
	var wg sync.WaitGroup
	for i, m := range f.members {
		wg.Add(1)
		go func(i int, m Transport) {
			defer wg.Done()
			outcomes[i] = m.Send(ctx, envelope)
		}(i, m)
	}
	wg.Wait()
	return mergeOutcomes(outcomes)
}

func mergeOutcomes(outcomes []Outcome) Outcome {
	var merged Outcome
	var rateLimits []string
	var errs []error
	for _, o := range outcomes {
		if o.RetryAfterSeconds > merged.RetryAfterSeconds {
			merged.RetryAfterSeconds = o.RetryAfterSeconds
		}
		if o.RateLimitsHeader != "" {
			rateLimits = append(rateLimits, o.RateLimitsHeader)
		}
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	if len(rateLimits) > 0 {
		merged.RateLimitsHeader = joinComma(rateLimits)
	}
	if len(errs) > 0 {
		merged.Err = errors.Join(errs...)
	}
	return merged
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}

// Close closes every member, joining any errors encountered.
func (f *FanoutTransport) Close() error {
	var errs []error
	for _, m := range f.members {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
