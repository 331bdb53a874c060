package storage

import (
	"context"

	"dvf-mart/models"
)

// TransactionWriter persists the clean transaction table.
type TransactionWriter interface {
	WriteTransactions(ctx context.Context, table *models.CleanTable) error
	Close() error
}

// SummaryWriter persists the level summary tables of one run. Skipped
// levels produce no dataset; empty levels produce an empty one.
type SummaryWriter interface {
	WriteSummaries(ctx context.Context, results []*models.LevelResult) error
	Close() error
}

// TransactionReader loads a previously written clean transaction table.
type TransactionReader interface {
	ReadTransactions(ctx context.Context) (*models.CleanTable, error)
}
