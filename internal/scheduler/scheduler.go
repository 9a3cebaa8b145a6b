package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"weather-prediction/internal/services"
	"weather-prediction/pkg/logging"
)

// Scheduler sequences the collection and training steps of the pipeline.
// Two entry points exist: the one-time bootstrap (historical backfill then
// train) and the recurring daily run (yesterday-noon collection then train).
// Steps run sequentially in a single instance; partial fetch failures during
// collection do not block training, only store unavailability aborts a run.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ingestion *services.IngestionService
	training  *services.TrainingService
	schedule  string
	logger    *logging.ContextLogger
}

// PipelineResult combines the tallies of one pipeline run.
type PipelineResult struct {
	Collection *services.CollectionResult
	Training   *services.TrainingResult
}

// New creates a new Scheduler. schedule is a five-field cron expression for
// the recurring daily run.
func New(
	ingestion *services.IngestionService,
	training *services.TrainingService,
	schedule string,
	logger *logging.StructuredLogger,
) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ingestion: ingestion,
		training:  training,
		schedule:  schedule,
		logger:    logger.WithFields(logging.Fields{"component": "scheduler"}),
	}
}

// RunBootstrap executes the one-time initial pipeline: backfill the past
// days of noon observations, then train every city.
func (s *Scheduler) RunBootstrap(ctx context.Context, days int) (*PipelineResult, error) {
	s.logger.Info(ctx, "[PIPELINE_BOOTSTRAP] Running initial pipeline", logging.Fields{
		"days": days,
	})

	collection, err := s.ingestion.CollectHistorical(ctx, days)
	if err != nil {
		return &PipelineResult{Collection: collection}, fmt.Errorf("bootstrap collection: %w", err)
	}

	training, err := s.training.TrainAll(ctx)
	if err != nil {
		return &PipelineResult{Collection: collection, Training: training}, fmt.Errorf("bootstrap training: %w", err)
	}

	return &PipelineResult{Collection: collection, Training: training}, nil
}

// RunDaily executes one cycle of the recurring pipeline.
func (s *Scheduler) RunDaily(ctx context.Context) (*PipelineResult, error) {
	s.logger.Info(ctx, "[PIPELINE_DAILY] Running daily pipeline", logging.Fields{})

	collection, err := s.ingestion.CollectDaily(ctx)
	if err != nil {
		return &PipelineResult{Collection: collection}, fmt.Errorf("daily collection: %w", err)
	}

	training, err := s.training.TrainAll(ctx)
	if err != nil {
		return &PipelineResult{Collection: collection, Training: training}, fmt.Errorf("daily training: %w", err)
	}

	return &PipelineResult{Collection: collection, Training: training}, nil
}

// Start registers the recurring daily pipeline on the cron schedule and
// starts the underlying scheduler asynchronously.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.schedule).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if _, err := s.RunDaily(ctx); err != nil {
			s.logger.Error(ctx, "[PIPELINE_FAILED] Daily pipeline run failed", logging.Fields{}, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily pipeline: %w", err)
	}

	s.scheduler.StartAsync()

	s.logger.Info(context.Background(), "[SCHEDULER_STARTED] Daily pipeline scheduled", logging.Fields{
		"cron": s.schedule,
	})

	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
