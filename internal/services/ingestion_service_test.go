package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"weather-prediction/internal/models"
	"weather-prediction/internal/provider"
)

func TestCollectCurrentStoresAllCities(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewIngestionService(repo, &fakeProvider{}, mustCityIndex(t, "Berlin", "Munich"), testLogger(), testMetrics)

	result, err := svc.CollectCurrent(context.Background())
	if err != nil {
		t.Fatalf("CollectCurrent() error = %v", err)
	}

	if result.Attempted != 2 || result.Stored != 2 || result.Failed != 0 {
		t.Errorf("tally = %d/%d/%d (attempted/stored/failed), want 2/2/0",
			result.Attempted, result.Stored, result.Failed)
	}
	if repo.observationCount() != 2 {
		t.Errorf("stored %d observations, want 2", repo.observationCount())
	}
}

func TestCollectDailyTargetsYesterdayNoon(t *testing.T) {
	repo := &fakeRepo{}
	var requested []time.Time
	client := &fakeProvider{
		atFunc: func(city string, ts time.Time) (provider.Reading, error) {
			requested = append(requested, ts)
			return provider.Reading{City: city, Timestamp: ts, Temperature: 9.5, Humidity: 70}, nil
		},
	}
	svc := NewIngestionService(repo, client, mustCityIndex(t, "Hamburg"), testLogger(), testMetrics)

	if _, err := svc.CollectDaily(context.Background()); err != nil {
		t.Fatalf("CollectDaily() error = %v", err)
	}

	if len(requested) != 1 {
		t.Fatalf("provider asked %d times, want 1", len(requested))
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	want := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 12, 0, 0, 0, time.UTC)
	if !requested[0].Equal(want) {
		t.Errorf("requested timestamp = %v, want %v", requested[0], want)
	}
}

func TestCollectHistoricalPartialFailure(t *testing.T) {
	repo := &fakeRepo{}
	now := time.Now().UTC()
	failTarget := noonOn(now.AddDate(0, 0, -2))

	client := &fakeProvider{
		atFunc: func(city string, ts time.Time) (provider.Reading, error) {
			if ts.Equal(failTarget) {
				return provider.Reading{}, &provider.FetchError{
					City:       city,
					StatusCode: 502,
					Err:        errors.New("bad gateway"),
				}
			}
			return provider.Reading{City: city, Timestamp: ts, Temperature: 11, Humidity: 65}, nil
		},
	}
	svc := NewIngestionService(repo, client, mustCityIndex(t, "Berlin"), testLogger(), testMetrics)

	result, err := svc.CollectHistorical(context.Background(), 3)
	if err != nil {
		t.Fatalf("CollectHistorical() error = %v, a fetch failure must not abort the batch", err)
	}

	if result.Attempted != 3 || result.Stored != 2 || result.Failed != 1 {
		t.Errorf("tally = %d/%d/%d (attempted/stored/failed), want 3/2/1",
			result.Attempted, result.Stored, result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want exactly one entry", result.Errors)
	}
	if repo.observationCount() != 2 {
		t.Errorf("stored %d observations, want 2", repo.observationCount())
	}
}

func TestCollectHistoricalRequestsOneNoonPerDay(t *testing.T) {
	repo := &fakeRepo{}
	seen := make(map[string]bool)
	client := &fakeProvider{
		atFunc: func(city string, ts time.Time) (provider.Reading, error) {
			if ts.Hour() != 12 || ts.Location() != time.UTC {
				t.Errorf("requested %v, want a 12:00 UTC timestamp", ts)
			}
			key := fmt.Sprintf("%s/%s", city, ts.Format("2006-01-02"))
			if seen[key] {
				t.Errorf("duplicate request for %s", key)
			}
			seen[key] = true
			return provider.Reading{City: city, Timestamp: ts, Temperature: 8, Humidity: 75}, nil
		},
	}
	svc := NewIngestionService(repo, client, mustCityIndex(t, "Berlin", "Cologne"), testLogger(), testMetrics)

	result, err := svc.CollectHistorical(context.Background(), 5)
	if err != nil {
		t.Fatalf("CollectHistorical() error = %v", err)
	}
	if result.Stored != 10 {
		t.Errorf("Stored = %d, want 10 (2 cities x 5 days)", result.Stored)
	}
}

func TestCollectHistoricalInvalidDays(t *testing.T) {
	svc := NewIngestionService(&fakeRepo{}, &fakeProvider{}, mustCityIndex(t, "Berlin"), testLogger(), testMetrics)

	for _, days := range []int{0, -1} {
		_, err := svc.CollectHistorical(context.Background(), days)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("CollectHistorical(%d) error = %v, want ValidationError", days, err)
		}
	}
}

func TestCollectCurrentStoreErrorAborts(t *testing.T) {
	repo := &fakeRepo{createObsErr: errors.New("connection refused")}
	svc := NewIngestionService(repo, &fakeProvider{}, mustCityIndex(t, "Berlin", "Munich"), testLogger(), testMetrics)

	result, err := svc.CollectCurrent(context.Background())

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("CollectCurrent() error = %v, want StoreError", err)
	}
	if !storeErr.IsTransient() {
		t.Error("StoreError.IsTransient() = false, want true")
	}
	if result == nil {
		t.Fatal("partial result should still be returned on store failure")
	}
	if result.Attempted != 1 {
		t.Errorf("Attempted = %d, want 1 (batch aborts on first store failure)", result.Attempted)
	}
}
