package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInsufficientData marks a city whose training window held fewer rows
// than the configured minimum. Training skips the city; it is not a failure.
var ErrInsufficientData = errors.New("insufficient training data")

// StoreError wraps a failed store operation. Store failures are fatal to the
// enclosing batch step and propagate to the scheduler, unlike per-item fetch
// failures which are tallied and skipped.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) IsTransient() bool {
	return true
}

// UnknownCityError is returned for queries naming a city outside the
// configured set.
type UnknownCityError struct {
	City        string
	ValidCities []string
}

func (e *UnknownCityError) Error() string {
	return fmt.Sprintf("city %q not found; available cities: %s", e.City, strings.Join(e.ValidCities, ", "))
}

func (e *UnknownCityError) IsTransient() bool {
	return false
}

// UpstreamError is returned when the live weather fetch fails while serving
// a snapshot.
type UpstreamError struct {
	City string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("could not fetch current weather for %s: %v", e.City, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) IsTransient() bool {
	return true
}

// NoDataError is returned when no configured city could produce a snapshot.
type NoDataError struct{}

func (e *NoDataError) Error() string {
	return "no predictions available"
}

func (e *NoDataError) IsTransient() bool {
	return true
}
