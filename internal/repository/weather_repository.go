package repository

import (
	"context"
	"database/sql"
	"fmt"

	"weather-prediction/internal/models"
	"weather-prediction/pkg/database"
	"weather-prediction/pkg/logging"
	"weather-prediction/pkg/metrics"
)

// WeatherRepository provides data access for the observation and prediction
// logs. Both tables are append-only: rows are never updated or deleted, and
// no uniqueness is enforced on (city, timestamp). Each append is durable and
// individually atomic.
type WeatherRepository interface {
	// Observation log
	CreateObservation(ctx context.Context, obs *models.Observation) error
	RecentObservations(ctx context.Context, city string, limit int) ([]*models.Observation, error)

	// Prediction log
	CreatePrediction(ctx context.Context, pred *models.Prediction) error
	LatestPrediction(ctx context.Context, city string) (*models.Prediction, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a new weather repository
func NewWeatherRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateObservation appends one weather observation
func (r *weatherRepository) CreateObservation(ctx context.Context, obs *models.Observation) error {
	query := `
		INSERT INTO weather_data (city, timestamp, temperature, humidity, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.GetContext(ctx, "create_observation", &obs.ID, query,
		obs.City,
		obs.Timestamp,
		obs.Temperature,
		obs.Humidity,
		obs.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create observation: %w", err)
	}

	r.metrics.ObservationsStoredTotal.Inc()
	r.logger.Debug(ctx, "[REPO_CREATE_OBSERVATION] Observation stored", logging.Fields{
		"city":      obs.City,
		"timestamp": obs.Timestamp,
	})

	return nil
}

// RecentObservations returns the most recent observations for a city ordered
// newest-timestamp first. The limit is a strict row count, not a time window:
// the training layer depends on getting exactly the limit most recent
// matching rows however far apart in time they are.
func (r *weatherRepository) RecentObservations(ctx context.Context, city string, limit int) ([]*models.Observation, error) {
	query := `
		SELECT id, city, timestamp, temperature, humidity, created_at
		FROM weather_data
		WHERE city = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	var observations []*models.Observation
	err := r.db.SelectContext(ctx, "recent_observations", &observations, query, city, limit)

	if err != nil {
		return nil, fmt.Errorf("failed to get recent observations: %w", err)
	}

	return observations, nil
}

// CreatePrediction appends one prediction row
func (r *weatherRepository) CreatePrediction(ctx context.Context, pred *models.Prediction) error {
	query := `
		INSERT INTO weather_predictions (city, prediction_date, predicted_temperature, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.GetContext(ctx, "create_prediction", &pred.ID, query,
		pred.City,
		pred.PredictionDate,
		pred.PredictedTemperature,
		pred.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_PREDICTION] Prediction stored", logging.Fields{
		"city":            pred.City,
		"prediction_date": pred.PredictionDate.Format("2006-01-02"),
	})

	return nil
}

// LatestPrediction returns the prediction row with the maximum created_at for
// a city. created_at is the version marker: every reader must select by it,
// never by insertion order or prediction_date.
func (r *weatherRepository) LatestPrediction(ctx context.Context, city string) (*models.Prediction, error) {
	query := `
		SELECT id, city, prediction_date, predicted_temperature, created_at
		FROM weather_predictions
		WHERE city = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var pred models.Prediction
	err := r.db.GetContext(ctx, "latest_prediction", &pred, query, city)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "prediction",
			ID:       city,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get latest prediction: %w", err)
	}

	return &pred, nil
}

// HealthCheck performs a repository health check
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
