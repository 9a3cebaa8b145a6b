package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"weather-prediction/internal/regression"
)

// Artifact is the persisted state of one city's fitted regression. It always
// reflects the most recent successful training run for the city; each save
// overwrites the previous artifact in place.
type Artifact struct {
	City         string            `json:"city"`
	Model        *regression.Model `json:"model"`
	WindowSize   int               `json:"window_size"`
	MeanHumidity float64           `json:"mean_humidity"`
	TrainedAt    time.Time         `json:"trained_at"`
}

// Store is a keyed blob store mapping city name to its latest model artifact.
type Store interface {
	Save(city string, art *Artifact) error
	Load(city string) (*Artifact, error)
}

// FileStore persists artifacts as JSON files under a base directory, one
// subdirectory per city.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed artifact store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(city string) string {
	return filepath.Join(s.dir, city, "temperature_model.json")
}

// Save overwrites the artifact for a city.
func (s *FileStore) Save(city string, art *Artifact) error {
	if err := os.MkdirAll(filepath.Join(s.dir, city), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	if err := os.WriteFile(s.path(city), data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	return nil
}

// Load reads the latest artifact for a city. A city that has never been
// trained returns an error wrapping os.ErrNotExist.
func (s *FileStore) Load(city string) (*Artifact, error) {
	data, err := os.ReadFile(s.path(city))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact for %s: %w", city, err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to decode artifact for %s: %w", city, err)
	}

	return &art, nil
}
