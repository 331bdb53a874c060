package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"dvf-mart/boundary"
	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/services"
	"dvf-mart/utils"
)

const (
	modeRun       = "run"
	modeClean     = "clean"
	modeAggregate = "aggregate"
)

func main() {
	mode := flag.String("mode", modeRun, "run | clean | aggregate")
	input := flag.String("input", "", "raw DVF file (overrides DVF_INPUT_PATH)")
	out := flag.String("out", "", "output directory (overrides DVF_OUTPUT_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger().Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.InputPath = *input
	}
	if *out != "" {
		cfg.OutputDir = *out
	}

	logger := utils.NewLoggerTo(os.Stdout, os.Stderr, utils.ParseLevel(cfg.LogLevel))
	metrics := utils.NewMetrics()
	runID := uuid.NewString()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, *mode, cfg, runID, logger, metrics)
	stop()

	if err == nil {
		metrics.MarkSuccess()
	}
	if cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
			logger.Warn("%v", merr)
		}
	}

	if err != nil {
		var schemaErr *services.SchemaError
		if errors.As(err, &schemaErr) {
			logger.Error("Incompatible input format, missing columns: %v", schemaErr.Missing)
		}
		logger.Error("Pipeline failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, mode string, cfg *config.Config, runID string, logger *utils.Logger, metrics *utils.Metrics) error {
	if mode != modeRun && mode != modeClean && mode != modeAggregate {
		return fmt.Errorf("unknown mode %q", mode)
	}

	logger.Info("=== DVF price mart starting (mode %s, run %s) ===", mode, runID)
	p := cfg.Pipeline
	logger.Info("Config: min surface %.0f m² | min price %.0f € | bounds %.0f–%.0f €/m² | ceiling %.0f",
		p.MinSurface, p.MinPrice, p.PriceBounds.Low, p.PriceBounds.High, p.UpperCeiling)

	s, err := openSinks(ctx, cfg, runID, mode, logger)
	if err != nil {
		return err
	}
	defer s.Close(logger)

	printer := services.NewReportPrinter(os.Stdout)
	regions := loadRegions(cfg.Boundary, logger)

	var (
		table       *models.CleanTable
		cleanReport *models.CleanReport
	)
	if mode == modeAggregate {
		start := time.Now()
		table, err = s.reader.ReadTransactions(ctx)
		if err != nil {
			return fmt.Errorf("read clean table: %w", err)
		}
		metrics.Time("read", start)
		logger.Info("Loaded %d clean transactions", len(table.Transactions))
	} else {
		start := time.Now()
		logger.Info("Processing file: %s", cfg.InputPath)
		cleaner := services.NewCleaner(p, logger)
		table, cleanReport, err = cleaner.CleanFile(cfg.InputPath)
		if err != nil {
			return err
		}
		metrics.Time("clean", start)
		metrics.ObserveClean(cleanReport)
		printer.PrintClean(cleanReport)

		if regions != nil {
			table, _ = services.EnrichTable(table, regions, logger)
		}

		if err := s.writeTransactions(ctx, table); err != nil {
			return err
		}
		logger.Info("Clean table written (%d transactions)", len(table.Transactions))
	}

	if mode == modeClean {
		return s.recordRun(ctx, cleanReport, nil, logger)
	}

	start := time.Now()
	aggregator := services.NewAggregator(p, logger)
	report, err := aggregator.AggregateAll(ctx, table, regions)
	if err != nil {
		return err
	}
	report.RunID = runID
	metrics.Time("aggregate", start)
	metrics.ObserveAggregation(report)

	if err := s.writeSummaries(ctx, report.Levels); err != nil {
		return err
	}
	printer.PrintAggregation(report)

	if err := s.recordRun(ctx, cleanReport, report, logger); err != nil {
		return err
	}
	logger.Info("All aggregations complete, output directory: %s", cfg.OutputDir)
	return nil
}

// loadRegions returns the department→region lookup, or nil when the
// boundary resource is not configured or cannot be read.
func loadRegions(bc config.BoundaryConfig, logger *utils.Logger) services.RegionLookup {
	if bc.Path == "" {
		logger.Warn("[region] No boundary resource configured")
		return nil
	}
	opts := boundary.Options{
		DepartmentField: bc.DepartmentField,
		RegionField:     bc.RegionField,
		Delimiter:       []rune(bc.Delimiter)[0],
	}
	lookup, err := boundary.Load(bc.Path, opts)
	if err != nil {
		logger.Warn("[region] Could not load department→region mapping: %v", err)
		return nil
	}
	logger.Info("[region] Loaded %d department→region pairs from %s", len(lookup), bc.Path)
	return lookup
}
