package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"weather-prediction/internal/artifact"
	"weather-prediction/internal/models"
	"weather-prediction/internal/regression"
	"weather-prediction/internal/repository"
	"weather-prediction/pkg/logging"
	"weather-prediction/pkg/metrics"
)

// TrainingService fits one regression per city from its recent observations
// and emits exactly one new prediction row per successful run. The artifact
// overwrite happens before the prediction append and the two are not atomic
// together; the scheduler's retry re-runs the whole step on failure.
type TrainingService struct {
	repo      repository.WeatherRepository
	artifacts artifact.Store
	cities    *models.CityIndex
	window    int
	minObs    int
	logger    *logging.ContextLogger
	metrics   *metrics.Collector
}

// TrainingResult contains the per-city tally of one training batch.
type TrainingResult struct {
	Trained  int
	Skipped  int
	Failed   int
	Duration time.Duration
	Errors   []string
}

// NewTrainingService creates a new training service. window is the row-count
// training window; minObs is the minimum row count below which a city is
// skipped.
func NewTrainingService(
	repo repository.WeatherRepository,
	artifacts artifact.Store,
	cities *models.CityIndex,
	window, minObs int,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *TrainingService {
	return &TrainingService{
		repo:      repo,
		artifacts: artifacts,
		cities:    cities,
		window:    window,
		minObs:    minObs,
		logger:    logger.WithFields(logging.Fields{"component": "training"}),
		metrics:   metricsCollector,
	}
}

// TrainCity fits and persists a model for one city and appends its next-day
// prediction. Returns ErrInsufficientData (wrapped) when the window holds
// fewer than the minimum rows; in that case nothing is written and any
// existing artifact is left untouched.
func (s *TrainingService) TrainCity(ctx context.Context, city string) error {
	observations, err := s.repo.RecentObservations(ctx, city, s.window)
	if err != nil {
		return &StoreError{Op: "recent_observations", Err: err}
	}

	if len(observations) < s.minObs {
		s.logger.Info(ctx, "[TRAIN_SKIP] Not enough observations, skipping city", logging.Fields{
			"city":     city,
			"rows":     len(observations),
			"required": s.minObs,
		})
		return fmt.Errorf("%s has %d of %d required observations: %w",
			city, len(observations), s.minObs, ErrInsufficientData)
	}

	// Chronological order. OLS is order-invariant, so this only matters for
	// any future feature derived from relative row position.
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Timestamp.Before(observations[j].Timestamp)
	})

	features := make([]models.FeatureVector, len(observations))
	targets := make([]float64, len(observations))
	var humiditySum float64

	for i, obs := range observations {
		features[i] = models.DeriveFeatures(obs.Timestamp, obs.Humidity)
		targets[i] = obs.Temperature
		humiditySum += obs.Humidity
	}
	meanHumidity := humiditySum / float64(len(observations))

	model, err := regression.Fit(features, targets)
	if err != nil {
		return fmt.Errorf("fitting model for %s: %w", city, err)
	}

	now := time.Now().UTC()

	if err := s.artifacts.Save(city, &artifact.Artifact{
		City:         city,
		Model:        model,
		WindowSize:   len(observations),
		MeanHumidity: meanHumidity,
		TrainedAt:    now,
	}); err != nil {
		return fmt.Errorf("saving artifact for %s: %w", city, err)
	}

	// Tomorrow's humidity is unknown; the mean humidity of the training
	// window stands in for it.
	tomorrow := now.AddDate(0, 0, 1)
	predicted := model.Predict(models.DeriveFeatures(tomorrow, meanHumidity))

	prediction := &models.Prediction{
		City:                 city,
		PredictionDate:       time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC),
		PredictedTemperature: predicted,
		CreatedAt:            now,
	}

	if err := s.repo.CreatePrediction(ctx, prediction); err != nil {
		return &StoreError{Op: "create_prediction", Err: err}
	}

	s.metrics.PredictedTemperature.WithLabelValues(city).Set(predicted)

	s.logger.Info(ctx, "[TRAIN_CITY_COMPLETE] Model trained and prediction stored", logging.Fields{
		"city":                  city,
		"window_rows":           len(observations),
		"prediction_date":       prediction.PredictionDate.Format("2006-01-02"),
		"predicted_temperature": predicted,
	})

	return nil
}

// TrainAll runs TrainCity for every configured city. Skips and per-city
// failures are tallied without aborting the batch; a store failure aborts
// the run and propagates.
func (s *TrainingService) TrainAll(ctx context.Context) (*TrainingResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[TRAIN_START] Starting training batch", logging.Fields{
		"cities": len(s.cities.Names()),
		"window": s.window,
	})

	result := &TrainingResult{Errors: make([]string, 0)}

	for _, city := range s.cities.Names() {
		err := s.TrainCity(ctx, city)

		switch {
		case err == nil:
			result.Trained++
			s.metrics.RecordTrainingOutcome("trained")

		case errors.Is(err, ErrInsufficientData):
			result.Skipped++
			s.metrics.RecordTrainingOutcome("skipped")

		default:
			var storeErr *StoreError
			if errors.As(err, &storeErr) {
				result.Duration = time.Since(startTime)
				s.logger.Error(ctx, "[TRAIN_ABORT] Store unavailable, aborting training batch", logging.Fields{
					"city": city,
				}, err)
				return result, err
			}

			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			s.metrics.RecordTrainingOutcome("failed")
			s.logger.Error(ctx, "[TRAIN_CITY_ERROR] Training failed for city", logging.Fields{
				"city": city,
			}, err)
		}
	}

	result.Duration = time.Since(startTime)
	s.metrics.TrainingDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[TRAIN_COMPLETE] Training batch finished", logging.Fields{
		"trained":          result.Trained,
		"skipped":          result.Skipped,
		"failed":           result.Failed,
		"duration_seconds": result.Duration.Seconds(),
	})

	return result, nil
}
