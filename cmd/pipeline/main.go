package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"weather-prediction/internal/artifact"
	"weather-prediction/internal/config"
	"weather-prediction/internal/models"
	"weather-prediction/internal/provider"
	"weather-prediction/internal/repository"
	"weather-prediction/internal/scheduler"
	"weather-prediction/internal/services"
	"weather-prediction/pkg/database"
	"weather-prediction/pkg/logging"
	"weather-prediction/pkg/metrics"
)

func main() {
	bootstrap := flag.Bool("bootstrap", false, "Run the one-time initial pipeline (historical backfill + training) and exit")
	days := flag.Int("days", 0, "Number of days to backfill during bootstrap (default from configuration)")
	once := flag.Bool("once", false, "Run a single daily pipeline cycle and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("weather-pipeline", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[PIPELINE_START] Starting weather pipeline", logging.Fields{
		"version":   "1.0.0",
		"bootstrap": *bootstrap,
		"once":      *once,
		"cities":    cfg.Cities,
	})

	cities, err := models.NewCityIndex(cfg.Cities)
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Invalid city configuration", logging.Fields{}, err)
	}

	metricsCollector := metrics.NewCollector("weather_pipeline")

	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	weatherRepo := repository.NewWeatherRepository(db, logger, metricsCollector)

	providerClient := provider.NewOpenWeatherClient(
		cfg.Provider.APIKey,
		cfg.Provider.BaseURL,
		cfg.Provider.Timeout,
		cities,
		metricsCollector,
	)

	artifactStore := artifact.NewFileStore(cfg.Pipeline.ModelDir)

	ingestionService := services.NewIngestionService(weatherRepo, providerClient, cities, logger, metricsCollector)
	trainingService := services.NewTrainingService(
		weatherRepo,
		artifactStore,
		cities,
		cfg.Pipeline.TrainingWindow,
		cfg.Pipeline.MinObservations,
		logger,
		metricsCollector,
	)

	pipeline := scheduler.New(ingestionService, trainingService, cfg.Pipeline.DailySchedule, logger)

	switch {
	case *bootstrap:
		backfillDays := *days
		if backfillDays <= 0 {
			backfillDays = cfg.Pipeline.HistoricalDays
		}

		result, err := pipeline.RunBootstrap(ctx, backfillDays)
		printResult(result)
		if err != nil {
			logger.Fatal(ctx, "[PIPELINE_ERROR] Bootstrap pipeline failed", logging.Fields{}, err)
		}

	case *once:
		result, err := pipeline.RunDaily(ctx)
		printResult(result)
		if err != nil {
			logger.Fatal(ctx, "[PIPELINE_ERROR] Daily pipeline failed", logging.Fields{}, err)
		}

	default:
		if err := pipeline.Start(); err != nil {
			logger.Fatal(ctx, "[PIPELINE_ERROR] Failed to start scheduler", logging.Fields{}, err)
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info(ctx, "[PIPELINE_SHUTDOWN] Stopping scheduler", logging.Fields{})
		pipeline.Stop()
	}

	logger.Info(ctx, "[PIPELINE_COMPLETE] Pipeline finished", logging.Fields{})
}

func printResult(result *scheduler.PipelineResult) {
	if result == nil {
		return
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("PIPELINE RUN COMPLETE")
	fmt.Println(strings.Repeat("=", 80))

	if c := result.Collection; c != nil {
		fmt.Printf("Collection: %d attempted, %d stored, %d failed (%.2fs)\n",
			c.Attempted, c.Stored, c.Failed, c.Duration.Seconds())
		for i, errMsg := range c.Errors {
			if i >= 10 {
				fmt.Printf("  ... and %d more errors\n", len(c.Errors)-10)
				break
			}
			fmt.Printf("  - %s\n", errMsg)
		}
	}

	if t := result.Training; t != nil {
		fmt.Printf("Training:   %d trained, %d skipped, %d failed (%.2fs)\n",
			t.Trained, t.Skipped, t.Failed, t.Duration.Seconds())
		for _, errMsg := range t.Errors {
			fmt.Printf("  - %s\n", errMsg)
		}
	}
}
