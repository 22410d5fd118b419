package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a saved location does not exist.
	ErrNotFound = errors.New("saved location not found")

	// ErrInvalidName is returned for names that are empty after trimming.
	ErrInvalidName = errors.New("location name must not be empty")
)

// Location is a saved location record.
type Location struct {
	ID        uuid.UUID `json:"id"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the saved-location list. List returns newest first.
// Add is idempotent: adding an existing city returns the existing record
// with created == false.
type Store interface {
	List(ctx context.Context) ([]Location, error)
	Add(ctx context.Context, city string) (loc Location, created bool, err error)
	Remove(ctx context.Context, city string) error
	Close() error
}

// NormalizeName trims surrounding whitespace. Matching is otherwise exact and
// case-sensitive.
func NormalizeName(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", ErrInvalidName
	}
	return city, nil
}

// Names adapts a Store to the name-only saved-locations contract.
// Removing a name that is already gone counts as success.
type Names struct {
	Store Store
}

func (n Names) List(ctx context.Context) ([]string, error) {
	locs, err := n.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.City)
	}
	return out, nil
}

func (n Names) Add(ctx context.Context, city string) error {
	_, _, err := n.Store.Add(ctx, city)
	return err
}

func (n Names) Remove(ctx context.Context, city string) error {
	if err := n.Store.Remove(ctx, city); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
