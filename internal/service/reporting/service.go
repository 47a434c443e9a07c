package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/lifecycle"
	repo "github.com/mamadbah2/agritrace/internal/repository/sheets"
)

const (
	dateLayout         = "2006-01-02 15:04:05"
	batchSnapshotRange = "Batches!A:J"
)

// ActivityReader lists batch ids touched by recent confirmed writes.
type ActivityReader interface {
	BatchIDsSince(ctx context.Context, since time.Time) ([]string, error)
}

// BatchFetcher re-fetches a batch from the ledger and shapes it.
type BatchFetcher interface {
	GetBatch(ctx context.Context, batchID string) (lifecycle.BatchView, error)
}

// Service exports periodic ledger snapshots to the reporting sheet.
// Rows are rebuilt from the ledger on every run; the activity trail
// only narrows which batches to look at.
type Service struct {
	sheets     repo.Repository
	activities ActivityReader
	batches    BatchFetcher
	logger     *zap.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// NewService wires a new reporting service instance.
func NewService(sheetsRepo repo.Repository, activities ActivityReader, batches BatchFetcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sheets:     sheetsRepo,
		activities: activities,
		batches:    batches,
		logger:     logger,
	}
}

// GenerateSnapshot appends one row per batch touched since the last
// run. Returns the number of rows written.
func (s *Service) GenerateSnapshot(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	since := s.lastRun
	s.mu.Unlock()

	if since.IsZero() {
		since = now.Add(-24 * time.Hour)
	}

	ids, err := s.activities.BatchIDsSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list active batches: %w", err)
	}

	rows := make([][]interface{}, 0, len(ids))
	for _, id := range ids {
		view, err := s.batches.GetBatch(ctx, id)
		if err != nil {
			s.logger.Warn("skip batch in snapshot", zap.String("batch_id", id), zap.Error(err))
			continue
		}
		rows = append(rows, snapshotRow(now, view))
	}

	if err := s.sheets.AppendRows(ctx, batchSnapshotRange, rows); err != nil {
		return 0, fmt.Errorf("export snapshot: %w", err)
	}

	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()

	s.logger.Info("snapshot exported", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func snapshotRow(now time.Time, view lifecycle.BatchView) []interface{} {
	return []interface{}{
		now.UTC().Format(dateLayout),
		view.BatchID,
		view.FarmerInfo.CropName,
		view.FarmerInfo.FarmerName,
		view.StageLabel,
		view.FarmerInfo.Quantity,
		view.FarmerInfo.RemainingQuantity,
		len(view.Distributors),
		len(view.Retailers),
		len(view.Warnings),
	}
}
