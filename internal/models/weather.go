package models

import (
	"time"
)

// Observation represents a single weather reading for one city.
// Rows are created once by ingestion and never mutated or deleted;
// duplicate (city, timestamp) pairs are allowed.
type Observation struct {
	ID          int64     `json:"id" db:"id"`
	City        string    `json:"city" db:"city"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	Temperature float64   `json:"temperature" db:"temperature"`
	Humidity    float64   `json:"humidity" db:"humidity"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Prediction represents one forecast record for a city and target date.
// Re-training supersedes a prediction by appending a newer row; the current
// prediction for a city is always the one with the maximum created_at.
type Prediction struct {
	ID                   int64     `json:"id" db:"id"`
	City                 string    `json:"city" db:"city"`
	PredictionDate       time.Time `json:"prediction_date" db:"prediction_date"`
	PredictedTemperature float64   `json:"predicted_temperature" db:"predicted_temperature"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// CitySnapshot is the merged live-observation + latest-prediction record
// returned by the query surface.
type CitySnapshot struct {
	City                 string  `json:"city"`
	CurrentTemperature   float64 `json:"current_temperature"`
	CurrentHumidity      float64 `json:"current_humidity"`
	PredictionDate       string  `json:"prediction_date"`
	PredictedTemperature float64 `json:"predicted_temperature"`
	LastUpdated          string  `json:"last_updated"`
}

// FeatureVector is one regression input row: calendar position of the
// observation plus its humidity. Temperature is the scalar target.
type FeatureVector struct {
	DayOfYear float64
	DayOfWeek float64
	Humidity  float64
}

// DeriveFeatures computes the feature vector for a timestamp and humidity.
// Day-of-week uses a Monday=0 origin.
func DeriveFeatures(ts time.Time, humidity float64) FeatureVector {
	return FeatureVector{
		DayOfYear: float64(ts.YearDay()),
		DayOfWeek: float64((int(ts.Weekday()) + 6) % 7),
		Humidity:  humidity,
	}
}

// ValidationError represents a data validation error.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}
