package service

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/pkg/storage"
)

type documentReferenceSource interface {
	DocumentReferences(ctx context.Context) ([]string, error)
}

type sweepableStorage interface {
	Walk(fn func(name string, info fs.FileInfo) error) error
	Delete(name string) error
}

// SweepResult summarises one sweep run.
type SweepResult struct {
	Scanned int
	Removed int
	Failed  int
}

// DocumentSweeper deletes stored files no row references, such as letters
// left behind by a failed best-effort removal or an interrupted upload.
// Files younger than the grace period are never touched so in-flight
// submissions are not raced.
type DocumentSweeper struct {
	storage sweepableStorage
	sources []documentReferenceSource
	grace   time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewDocumentSweeper constructs a sweeper over store consulting every source for live references.
func NewDocumentSweeper(store sweepableStorage, grace time.Duration, logger *zap.Logger, sources ...documentReferenceSource) *DocumentSweeper {
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentSweeper{storage: store, sources: sources, grace: grace, logger: logger, now: time.Now}
}

// Sweep runs one pass. If any reference source fails nothing is deleted.
func (s *DocumentSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	referenced := make(map[string]struct{})
	for _, source := range s.sources {
		refs, err := source.DocumentReferences(ctx)
		if err != nil {
			return result, fmt.Errorf("collect document references: %w", err)
		}
		for _, ref := range refs {
			referenced[ref] = struct{}{}
		}
	}

	cutoff := s.now().Add(-s.grace)
	err := s.storage.Walk(func(name string, info fs.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Scanned++
		if info.ModTime().After(cutoff) {
			return nil
		}
		if _, ok := referenced[name]; ok && !storage.IsTemp(name) {
			return nil
		}
		if err := s.storage.Delete(name); err != nil {
			result.Failed++
			s.logger.Warn("orphan document removal failed", zap.String("ref", name), zap.Error(err))
			return nil
		}
		result.Removed++
		s.logger.Info("orphan document removed", zap.String("ref", name))
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// Run adapts Sweep to the scheduler task signature.
func (s *DocumentSweeper) Run(ctx context.Context) error {
	result, err := s.Sweep(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("document sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("removed", result.Removed),
		zap.Int("failed", result.Failed),
	)
	return nil
}
