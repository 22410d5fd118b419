package session

import (
	"context"

	"github.com/i474232898/weatherornot/internal/weather"
)

// Persistence is the remote store for the saved-location list.
// Failures should carry a human-readable reason; they are logged, never retried.
type Persistence interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// Weather looks up the current conditions for a place.
type Weather interface {
	Current(ctx context.Context, name string) (weather.Snapshot, error)
}

// Status is the lifecycle of the weather fetch for the current selection.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the controller's state.
type State struct {
	// Saved is the saved-location list, newest first.
	Saved []string `json:"saved"`

	// Selection is the location being viewed; empty when none.
	Selection string `json:"selection"`

	// Weather is the last successful fetch for Selection, nil when absent.
	Weather *weather.Snapshot `json:"weather,omitempty"`

	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`

	// SyncWarning is the last persistence failure, if any.
	SyncWarning string `json:"sync_warning,omitempty"`
}
