// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import "encoding/json"

// CheckInStatus is the outcome reported by a monitor check-in.
type CheckInStatus string

const (
	CheckInOK         CheckInStatus = "ok"
	CheckInError      CheckInStatus = "error"
	CheckInInProgress CheckInStatus = "in_progress"
)

// CheckIn is a single heartbeat from a scheduled job / monitor.
type CheckIn struct {
	ID          EventID
	MonitorSlug string
	Status      CheckInStatus
	Environment string   // optional
	Duration    *float64 // optional, seconds
}

// NewCheckIn returns a [*CheckIn] with a fresh identifier.
func NewCheckIn(monitorSlug string, status CheckInStatus) *CheckIn {
	return &CheckIn{
		ID:          NewEventID(),
		MonitorSlug: monitorSlug,
		Status:      status,
	}
}

type wireCheckIn struct {
	CheckInID   string        `json:"check_in_id"`
	MonitorSlug string        `json:"monitor_slug"`
	Status      CheckInStatus `json:"status"`
	Environment string        `json:"environment,omitempty"`
	Duration    *float64      `json:"duration,omitempty"`
}

// Encode canonically encodes the check-in as the JSON payload of an
// envelope "check_in" item.
func (c *CheckIn) Encode() ([]byte, error) {
	return json.Marshal(wireCheckIn{
		CheckInID:   c.ID.String(),
		MonitorSlug: c.MonitorSlug,
		Status:      c.Status,
		Environment: c.Environment,
		Duration:    c.Duration,
	})
}
