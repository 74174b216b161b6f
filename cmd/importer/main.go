package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"solar-telemetry-platform/internal/config"
	"solar-telemetry-platform/internal/repository"
	"solar-telemetry-platform/internal/services"
	"solar-telemetry-platform/pkg/database"
	"solar-telemetry-platform/pkg/logging"
	"solar-telemetry-platform/pkg/metrics"
	"solar-telemetry-platform/pkg/spreadsheet"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "./telemetry_data", "Directory containing .xlsx telemetry exports")
	stream := flag.String("stream", "meter", "Data stream to import: weather or meter")
	recalcSummaries := flag.Bool("recalculate-summaries", false, "Recalculate monthly summaries after import")
	flag.Parse()

	var kind services.BatchKind
	switch *stream {
	case "weather":
		kind = services.KindWeather
	case "meter":
		kind = services.KindMeter
	default:
		fmt.Fprintf(os.Stderr, "Unknown stream %q: expected weather or meter\n", *stream)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("telemetry-importer", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[IMPORTER_START] Starting telemetry import", logging.Fields{
		"version":  "1.0.0",
		"data_dir": *dataDir,
		"stream":   *stream,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("telemetry_importer")

	// Initialize database
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
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repositories and services
	weatherRepo := repository.NewWeatherRepository(db, logger, metricsCollector)
	meterRepo := repository.NewMeterRepository(db, logger, metricsCollector)
	summaryRepo := repository.NewSummaryRepository(db, logger, metricsCollector)

	weatherValidator := services.NewWeatherValidationService(logger, metricsCollector)
	meterValidator := services.NewMeterValidationService(weatherRepo, logger, metricsCollector)
	submitter := services.NewSubmissionService(weatherRepo, meterRepo, logger, metricsCollector)
	pipeline := services.NewBatchPipeline(weatherValidator, meterValidator, submitter, logger, metricsCollector)
	summaryService := services.NewSummaryService(meterRepo, summaryRepo, logger, metricsCollector)

	// Collect spreadsheet files
	entries, err := os.ReadDir(*dataDir)
	if err != nil {
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to read data directory", logging.Fields{
			"data_dir": *dataDir,
		}, err)
	}

	startTime := time.Now()
	totalFiles, importedFiles, rejectedFiles := 0, 0, 0
	inserted, updated, skipped := 0, 0, 0
	var fileErrors []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".xlsx") {
			continue
		}
		totalFiles++
		path := filepath.Join(*dataDir, entry.Name())

		file, err := os.Open(path)
		if err != nil {
			rejectedFiles++
			fileErrors = append(fileErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		rows, err := spreadsheet.Parse(file)
		file.Close()
		if err != nil {
			rejectedFiles++
			fileErrors = append(fileErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		if len(rows) > cfg.Upload.MaxBatchRows {
			rejectedFiles++
			fileErrors = append(fileErrors, fmt.Sprintf("%s: %d rows exceeds batch limit %d",
				entry.Name(), len(rows), cfg.Upload.MaxBatchRows))
			continue
		}

		batch := pipeline.NewBatch(kind, rows)
		validation, err := pipeline.Validate(ctx, batch)
		if err != nil {
			rejectedFiles++
			fileErrors = append(fileErrors, fmt.Sprintf("%s: validation failed: %v", entry.Name(), err))
			continue
		}

		if !validation.IsValid {
			rejectedFiles++
			for _, rowErr := range validation.Errors {
				fileErrors = append(fileErrors, fmt.Sprintf("%s row %d: %s",
					entry.Name(), rowErr.RowNumber, strings.Join(rowErr.Errors, "; ")))
			}
			continue
		}

		result, err := pipeline.Submit(ctx, batch)
		if err != nil {
			rejectedFiles++
			fileErrors = append(fileErrors, fmt.Sprintf("%s: submission failed: %v", entry.Name(), err))
			continue
		}

		importedFiles++
		inserted += result.Inserted
		updated += result.Updated
		skipped += result.Skipped
	}

	duration := time.Since(startTime)

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("IMPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Stream:          %s\n", *stream)
	fmt.Printf("Total Files:     %d\n", totalFiles)
	fmt.Printf("Imported Files:  %d\n", importedFiles)
	fmt.Printf("Rejected Files:  %d\n", rejectedFiles)
	fmt.Printf("Rows Inserted:   %d\n", inserted)
	fmt.Printf("Rows Updated:    %d\n", updated)
	fmt.Printf("Rows Skipped:    %d\n", skipped)
	fmt.Printf("Duration:        %v\n", duration)

	if len(fileErrors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(fileErrors))
		for i, errMsg := range fileErrors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(fileErrors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(fileErrors)-10)
		}
	}

	// Recalculate summaries if requested
	if *recalcSummaries {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("RECALCULATING SUMMARIES")
		fmt.Println(strings.Repeat("=", 80))

		if err := summaryService.RecalculateAll(ctx); err != nil {
			logger.Error(ctx, "[SUMMARY_ERROR] Summary recalculation failed", logging.Fields{}, err)
			fmt.Printf("Summary recalculation failed: %v\n", err)
		} else {
			fmt.Println("Summary recalculation completed successfully")
		}
	}

	logger.Info(ctx, "[IMPORTER_COMPLETE] Import completed", logging.Fields{
		"total_files":      totalFiles,
		"imported_files":   importedFiles,
		"rejected_files":   rejectedFiles,
		"rows_inserted":    inserted,
		"rows_updated":     updated,
		"duration_seconds": duration.Seconds(),
	})
}
