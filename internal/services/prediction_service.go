package services

import (
	"context"

	"weather-prediction/internal/models"
	"weather-prediction/internal/provider"
	"weather-prediction/internal/repository"
	"weather-prediction/pkg/logging"
	"weather-prediction/pkg/metrics"
)

// PredictionService assembles serving responses: one live provider reading
// joined with the latest stored prediction per city. It is read-only with
// respect to both stores.
type PredictionService struct {
	repo     repository.WeatherRepository
	provider provider.Client
	cities   *models.CityIndex
	logger   *logging.ContextLogger
	metrics  *metrics.Collector
}

// NewPredictionService creates a new prediction service.
func NewPredictionService(
	repo repository.WeatherRepository,
	providerClient provider.Client,
	cities *models.CityIndex,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *PredictionService {
	return &PredictionService{
		repo:     repo,
		provider: providerClient,
		cities:   cities,
		logger:   logger.WithFields(logging.Fields{"component": "serving"}),
		metrics:  metricsCollector,
	}
}

// CitySnapshot returns the merged live + predicted record for one city.
// The live reading is fetched from the provider, never from the store.
func (s *PredictionService) CitySnapshot(ctx context.Context, city string) (*models.CitySnapshot, error) {
	if !s.cities.Contains(city) {
		return nil, &UnknownCityError{City: city, ValidCities: s.cities.Names()}
	}

	reading, err := s.provider.Current(ctx, city)
	if err != nil {
		s.logger.Warn(ctx, "[SNAPSHOT_UPSTREAM_FAILED] Live fetch failed", logging.Fields{
			"city":  city,
			"error": err.Error(),
		})
		return nil, &UpstreamError{City: city, Err: err}
	}

	prediction, err := s.repo.LatestPrediction(ctx, city)
	if err != nil {
		// NotFoundError passes through: "no prediction yet" must stay
		// distinguishable from an upstream fetch failure.
		return nil, err
	}

	return &models.CitySnapshot{
		City:                 city,
		CurrentTemperature:   reading.Temperature,
		CurrentHumidity:      reading.Humidity,
		PredictionDate:       prediction.PredictionDate.Format("2006-01-02"),
		PredictedTemperature: prediction.PredictedTemperature,
		LastUpdated:          prediction.CreatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}

// AllSnapshots returns snapshots for every configured city, silently
// omitting cities whose snapshot failed. When every city fails the result
// is a NoDataError.
func (s *PredictionService) AllSnapshots(ctx context.Context) ([]*models.CitySnapshot, error) {
	snapshots := make([]*models.CitySnapshot, 0, len(s.cities.Names()))

	for _, city := range s.cities.Names() {
		snapshot, err := s.CitySnapshot(ctx, city)
		if err != nil {
			s.logger.Debug(ctx, "[SNAPSHOT_SKIPPED] Omitting city from listing", logging.Fields{
				"city":  city,
				"error": err.Error(),
			})
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	if len(snapshots) == 0 {
		return nil, &NoDataError{}
	}

	return snapshots, nil
}

// Cities returns the configured city names.
func (s *PredictionService) Cities() []string {
	return s.cities.Names()
}
