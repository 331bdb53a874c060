package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/storage"
	"dvf-mart/utils"
)

// sinks groups the storage backends opened for a run.
type sinks struct {
	transactions []storage.TransactionWriter
	summaries    []storage.SummaryWriter
	reader       storage.TransactionReader
	postgres     *storage.PostgresWriter
	closers      []func() error
	workers      int
}

// openSinks opens every configured output. In aggregate mode the parquet
// store is always opened since the clean table is read back from it.
func openSinks(ctx context.Context, cfg *config.Config, runID, mode string, logger *utils.Logger) (*sinks, error) {
	s := &sinks{workers: cfg.SinkWorkers}
	writeTx := mode != modeAggregate

	if cfg.Wants("parquet") || mode == modeAggregate {
		pq, err := storage.NewParquetStore(cfg.OutputDir)
		if err != nil {
			s.Close(logger)
			return nil, err
		}
		s.closers = append(s.closers, pq.Close)
		s.reader = pq
		if cfg.Wants("parquet") {
			if writeTx {
				s.transactions = append(s.transactions, pq)
			}
			s.summaries = append(s.summaries, pq)
		}
	}

	if cfg.Wants("csv") {
		cw, err := storage.NewCSVWriter(cfg.OutputDir)
		if err != nil {
			s.Close(logger)
			return nil, err
		}
		if writeTx {
			s.transactions = append(s.transactions, cw)
		}
		s.summaries = append(s.summaries, cw)
	}

	if cfg.Wants("sqlite") {
		st, err := storage.NewSQLiteStore(filepath.Join(cfg.OutputDir, "dvf_mart.sqlite"))
		if err != nil {
			s.Close(logger)
			return nil, err
		}
		s.closers = append(s.closers, st.Close)
		if writeTx {
			s.transactions = append(s.transactions, st)
		}
		s.summaries = append(s.summaries, st)
	}

	if cfg.Wants("xlsx") {
		xw, err := storage.NewExcelWriter(filepath.Join(cfg.OutputDir, "dvf_mart.xlsx"))
		if err != nil {
			s.Close(logger)
			return nil, err
		}
		s.summaries = append(s.summaries, xw)
	}

	if cfg.Wants("postgres") {
		retry := &utils.RetryConfig{
			MaxAttempts: cfg.Postgres.MaxAttempts,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		}
		pw, err := storage.NewPostgresWriter(ctx, cfg.Postgres.DSN(), runID, retry)
		if err != nil {
			s.Close(logger)
			return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		s.closers = append(s.closers, pw.Close)
		s.postgres = pw
		if writeTx {
			s.transactions = append(s.transactions, pw)
		}
		s.summaries = append(s.summaries, pw)
	}

	return s, nil
}

// writeTransactions writes the clean table to every transaction sink
// concurrently.
func (s *sinks) writeTransactions(ctx context.Context, table *models.CleanTable) error {
	pool := utils.NewWorkerPool(s.workers)
	for _, w := range s.transactions {
		pool.Submit(func() error { return w.WriteTransactions(ctx, table) })
	}
	return pool.Wait()
}

// writeSummaries writes the level results to every summary sink
// concurrently.
func (s *sinks) writeSummaries(ctx context.Context, results []*models.LevelResult) error {
	pool := utils.NewWorkerPool(s.workers)
	for _, w := range s.summaries {
		pool.Submit(func() error { return w.WriteSummaries(ctx, results) })
	}
	return pool.Wait()
}

func (s *sinks) recordRun(ctx context.Context, clean *models.CleanReport, agg *models.AggregationReport, logger *utils.Logger) error {
	if s.postgres == nil {
		return nil
	}
	if err := s.postgres.RecordRun(ctx, clean, agg); err != nil {
		return err
	}
	logger.Info("Run recorded in PostgreSQL (table: pipeline_runs)")
	return nil
}

// Close closes every opened backend, logging failures.
func (s *sinks) Close(logger *utils.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("Closing output: %v", err)
		}
	}
	s.closers = nil
}
