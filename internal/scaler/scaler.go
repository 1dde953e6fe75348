package scaler

import (
	"context"
	"errors"
)

var (
	ErrScalingFailed  = errors.New("scaling operation failed")
	ErrInvalidTarget  = errors.New("invalid target server count")
	ErrServerNotFound = errors.New("server not found")
)

// ScaleResult contains the result of a scaling operation
type ScaleResult struct {
	Before         int      `json:"servers_before"`
	After          int      `json:"servers_after"`
	ServersAdded   []string `json:"servers_added,omitempty"`
	ServersRemoved []string `json:"servers_removed,omitempty"`
	PartialSuccess bool     `json:"partial_success"`
}

// FleetState counts servers by lifecycle state. Terminated servers are not counted.
type FleetState struct {
	Provisioning int `json:"provisioning"`
	Active       int `json:"active"`
	Draining     int `json:"draining"`
	Total        int `json:"total"`
}

// Committed is the fleet size the next decision should start from:
// servers that are running or about to be.
func (s FleetState) Committed() int {
	return s.Provisioning + s.Active
}

// Scaler executes a recommendation against a fleet
type Scaler interface {
	// ScaleTo moves the committed fleet size to target
	ScaleTo(ctx context.Context, target int) (*ScaleResult, error)

	// State returns the current server counts
	State(ctx context.Context) (FleetState, error)

	// Close releases resources
	Close() error
}
