package provider

import (
	"context"
	"fmt"
	"time"
)

// Reading is a single weather observation returned by the upstream provider.
type Reading struct {
	City        string
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
}

// Client fetches weather readings for configured cities. Current returns the
// live reading; At returns the reading for a historical instant.
type Client interface {
	Current(ctx context.Context, city string) (Reading, error)
	At(ctx context.Context, city string, ts time.Time) (Reading, error)
}

// FetchError represents a failed upstream weather call. At the collection
// layer these are recorded and skipped per (city, timestamp); at the serving
// layer they map to an upstream-unavailable response.
type FetchError struct {
	City       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weather fetch failed for %s: status %d", e.City, e.StatusCode)
	}
	return fmt.Sprintf("weather fetch failed for %s: %v", e.City, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient returns true: a later fetch for the same city may succeed.
func (e *FetchError) IsTransient() bool {
	return true
}
