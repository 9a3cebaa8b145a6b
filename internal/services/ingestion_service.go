package services

import (
	"context"
	"fmt"
	"time"

	"weather-prediction/internal/models"
	"weather-prediction/internal/provider"
	"weather-prediction/internal/repository"
	"weather-prediction/pkg/logging"
	"weather-prediction/pkg/metrics"
)

// IngestionService pulls observations from the weather provider and appends
// them to the observation log. One failed fetch never aborts a batch; every
// (city, timestamp) item is attempted and tallied independently.
type IngestionService struct {
	repo     repository.WeatherRepository
	provider provider.Client
	cities   *models.CityIndex
	logger   *logging.ContextLogger
	metrics  *metrics.Collector
}

// CollectionResult contains the per-item tally of one collection batch.
type CollectionResult struct {
	Attempted int
	Stored    int
	Failed    int
	Duration  time.Duration
	Errors    []string
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(
	repo repository.WeatherRepository,
	providerClient provider.Client,
	cities *models.CityIndex,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *IngestionService {
	return &IngestionService{
		repo:     repo,
		provider: providerClient,
		cities:   cities,
		logger:   logger.WithFields(logging.Fields{"component": "ingestion"}),
		metrics:  metricsCollector,
	}
}

// CollectCurrent fetches and stores one live observation per configured city.
func (s *IngestionService) CollectCurrent(ctx context.Context) (*CollectionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[COLLECT_START] Starting live collection", logging.Fields{
		"cities": len(s.cities.Names()),
	})

	result := &CollectionResult{Errors: make([]string, 0)}

	for _, city := range s.cities.Names() {
		result.Attempted++

		reading, err := s.provider.Current(ctx, city)
		if err != nil {
			s.recordFetchFailure(ctx, result, city, time.Time{}, err)
			continue
		}

		if err := s.store(ctx, reading); err != nil {
			return s.finish(ctx, result, startTime), err
		}
		result.Stored++
	}

	return s.finish(ctx, result, startTime), nil
}

// CollectDaily fetches and stores yesterday's noon observation per city.
// This is the collection step of the recurring daily pipeline.
func (s *IngestionService) CollectDaily(ctx context.Context) (*CollectionResult, error) {
	yesterdayNoon := noonOn(time.Now().UTC().AddDate(0, 0, -1))

	startTime := time.Now()

	s.logger.Info(ctx, "[COLLECT_START] Starting daily collection", logging.Fields{
		"target": yesterdayNoon,
		"cities": len(s.cities.Names()),
	})

	result := &CollectionResult{Errors: make([]string, 0)}

	for _, city := range s.cities.Names() {
		result.Attempted++

		reading, err := s.provider.At(ctx, city, yesterdayNoon)
		if err != nil {
			s.recordFetchFailure(ctx, result, city, yesterdayNoon, err)
			continue
		}

		if err := s.store(ctx, reading); err != nil {
			return s.finish(ctx, result, startTime), err
		}
		result.Stored++
	}

	return s.finish(ctx, result, startTime), nil
}

// CollectHistorical backfills the past days at noon for every configured
// city. Backfill sampling is deliberately one representative reading per day
// rather than continuous coverage. Each (city, offset) item is independent.
func (s *IngestionService) CollectHistorical(ctx context.Context, days int) (*CollectionResult, error) {
	if days < 1 {
		return nil, &models.ValidationError{
			Field:   "days",
			Value:   fmt.Sprintf("%d", days),
			Message: "historical collection requires a positive number of days",
		}
	}

	startTime := time.Now()
	now := time.Now().UTC()

	s.logger.Info(ctx, "[COLLECT_START] Starting historical collection", logging.Fields{
		"days":   days,
		"cities": len(s.cities.Names()),
	})

	result := &CollectionResult{Errors: make([]string, 0)}

	for _, city := range s.cities.Names() {
		for offset := 1; offset <= days; offset++ {
			result.Attempted++

			target := noonOn(now.AddDate(0, 0, -offset))

			reading, err := s.provider.At(ctx, city, target)
			if err != nil {
				s.recordFetchFailure(ctx, result, city, target, err)
				continue
			}

			if err := s.store(ctx, reading); err != nil {
				return s.finish(ctx, result, startTime), err
			}
			result.Stored++
		}
	}

	return s.finish(ctx, result, startTime), nil
}

// store appends a reading as an observation row. A store failure is fatal to
// the batch, unlike a fetch failure.
func (s *IngestionService) store(ctx context.Context, reading provider.Reading) error {
	obs := &models.Observation{
		City:        reading.City,
		Timestamp:   reading.Timestamp,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateObservation(ctx, obs); err != nil {
		s.metrics.RecordCollectionError("store_error")
		s.logger.Error(ctx, "[COLLECT_STORE_ERROR] Failed to append observation", logging.Fields{
			"city": reading.City,
		}, err)
		return &StoreError{Op: "create_observation", Err: err}
	}

	return nil
}

func (s *IngestionService) recordFetchFailure(ctx context.Context, result *CollectionResult, city string, target time.Time, err error) {
	result.Failed++
	msg := fmt.Sprintf("fetch failed for %s: %v", city, err)
	if !target.IsZero() {
		msg = fmt.Sprintf("fetch failed for %s at %s: %v", city, target.Format(time.RFC3339), err)
	}
	result.Errors = append(result.Errors, msg)

	s.metrics.RecordCollectionError("fetch_error")
	s.logger.Warn(ctx, "[COLLECT_FETCH_FAILED] Skipping observation", logging.Fields{
		"city":   city,
		"target": target,
		"error":  err.Error(),
	})
}

func (s *IngestionService) finish(ctx context.Context, result *CollectionResult, startTime time.Time) *CollectionResult {
	result.Duration = time.Since(startTime)
	s.metrics.CollectionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[COLLECT_COMPLETE] Collection batch finished", logging.Fields{
		"attempted":        result.Attempted,
		"stored":           result.Stored,
		"failed":           result.Failed,
		"duration_seconds": result.Duration.Seconds(),
	})

	return result
}

// noonOn returns 12:00:00 UTC on the calendar day of t.
func noonOn(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}
