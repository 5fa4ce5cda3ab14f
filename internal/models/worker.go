package models

import (
	"fmt"
	"net"
	"time"
)

// Worker is a wakeable machine, keyed by its MAC address.
type Worker struct {
	Address            string     `json:"address"`
	RegisteredAt       time.Time  `json:"registered_at"`
	LastWakeTime       *time.Time `json:"last_wake_time,omitempty"`
	LastReportedStatus *bool      `json:"last_reported_status,omitempty"`
	LastReportTime     *time.Time `json:"last_report_time,omitempty"`
}

// ActivityEvent is one "working"/"not working" report of a worker.
type ActivityEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Address   string    `json:"address"`
	Status    bool      `json:"status"`
}

// ParseAddress validates a 48-bit MAC address and returns its canonical
// lower-case colon form, e.g. "aa:bb:cc:dd:ee:ff".
func ParseAddress(s string) (string, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if len(hw) != 6 {
		return "", fmt.Errorf("%w: %q is not a 48-bit address", ErrInvalidAddress, s)
	}
	return hw.String(), nil
}
