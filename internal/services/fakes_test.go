package services

import (
	"context"
	"io"
	"sync"
	"time"

	"weather-prediction/internal/artifact"
	"weather-prediction/internal/models"
	"weather-prediction/internal/provider"
	"weather-prediction/internal/repository"
	"weather-prediction/pkg/logging"
	"weather-prediction/pkg/metrics"
)

// Shared across the package: promauto registers against the default
// registry, so the collector must be created exactly once per test binary.
var testMetrics = metrics.NewCollector("weather_services_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.FatalLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func mustCityIndex(t interface{ Fatalf(string, ...interface{}) }, names ...string) *models.CityIndex {
	idx, err := models.NewCityIndex(names)
	if err != nil {
		t.Fatalf("NewCityIndex(%v) error = %v", names, err)
	}
	return idx
}

// fakeRepo is an in-memory WeatherRepository mirroring the append-only store
// contract: no dedup, recency reads sorted by timestamp or created_at.
type fakeRepo struct {
	mu            sync.Mutex
	observations  []*models.Observation
	predictions   []*models.Prediction
	createObsErr  error
	recentErr     error
	createPredErr error
	latestErr     error
	nextID        int64
}

func (f *fakeRepo) CreateObservation(ctx context.Context, obs *models.Observation) error {
	if f.createObsErr != nil {
		return f.createObsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	obs.ID = f.nextID
	stored := *obs
	f.observations = append(f.observations, &stored)
	return nil
}

func (f *fakeRepo) RecentObservations(ctx context.Context, city string, limit int) ([]*models.Observation, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*models.Observation
	for _, obs := range f.observations {
		if obs.City == city {
			matched = append(matched, obs)
		}
	}

	// Newest timestamp first, then truncate to the row-count limit.
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].Timestamp.After(matched[i].Timestamp) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*models.Observation, len(matched))
	for i, obs := range matched {
		copied := *obs
		out[i] = &copied
	}
	return out, nil
}

func (f *fakeRepo) CreatePrediction(ctx context.Context, pred *models.Prediction) error {
	if f.createPredErr != nil {
		return f.createPredErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	pred.ID = f.nextID
	stored := *pred
	f.predictions = append(f.predictions, &stored)
	return nil
}

func (f *fakeRepo) LatestPrediction(ctx context.Context, city string) (*models.Prediction, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *models.Prediction
	for _, pred := range f.predictions {
		if pred.City != city {
			continue
		}
		if latest == nil || pred.CreatedAt.After(latest.CreatedAt) {
			latest = pred
		}
	}

	if latest == nil {
		return nil, &repository.NotFoundError{Resource: "prediction", ID: city}
	}

	copied := *latest
	return &copied, nil
}

func (f *fakeRepo) HealthCheck(ctx context.Context) error {
	return nil
}

func (f *fakeRepo) observationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.observations)
}

func (f *fakeRepo) predictionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.predictions)
}

// fakeProvider is a configurable provider.Client.
type fakeProvider struct {
	currentFunc func(city string) (provider.Reading, error)
	atFunc      func(city string, ts time.Time) (provider.Reading, error)
}

func (f *fakeProvider) Current(ctx context.Context, city string) (provider.Reading, error) {
	if f.currentFunc != nil {
		return f.currentFunc(city)
	}
	return provider.Reading{
		City:        city,
		Timestamp:   time.Now().UTC(),
		Temperature: 18.5,
		Humidity:    55,
	}, nil
}

func (f *fakeProvider) At(ctx context.Context, city string, ts time.Time) (provider.Reading, error) {
	if f.atFunc != nil {
		return f.atFunc(city, ts)
	}
	return provider.Reading{
		City:        city,
		Timestamp:   ts,
		Temperature: 12.0,
		Humidity:    60,
	}, nil
}

// fakeArtifacts is an in-memory artifact.Store recording save calls.
type fakeArtifacts struct {
	mu      sync.Mutex
	saved   map[string]*artifact.Artifact
	saveErr error
	saves   int
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{saved: make(map[string]*artifact.Artifact)}
}

func (f *fakeArtifacts) Save(city string, art *artifact.Artifact) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[city] = art
	f.saves++
	return nil
}

func (f *fakeArtifacts) Load(city string) (*artifact.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	art, ok := f.saved[city]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "artifact", ID: city}
	}
	return art, nil
}
