package usecases

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"

	"war-api-analyzer/internal/classfile"
	"war-api-analyzer/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Default number of workers decoding class entries concurrently
const defaultDecodeWorkers = 4

// AnalyzeUseCase orchestrates the analysis pipeline: walk the archive,
// decode and analyze each class entry, assemble the report.
type AnalyzeUseCase struct {
	walker    domain.ArchiveWalker
	analyzer  domain.HandlerAnalyzer
	assembler domain.ReportAssembler
	cache     *classfile.Cache
	workers   int
	logger    *zap.Logger
	ctx       context.Context
}

// NewAnalyzeUseCase creates a new analyze use case with dependency injection
func NewAnalyzeUseCase(
	ctx context.Context,
	walker domain.ArchiveWalker,
	analyzer domain.HandlerAnalyzer,
	assembler domain.ReportAssembler,
	cache *classfile.Cache,
	workers int,
	logger *zap.Logger,
) *AnalyzeUseCase {
	if workers <= 0 {
		workers = defaultDecodeWorkers
	}
	return &AnalyzeUseCase{
		walker:    walker,
		analyzer:  analyzer,
		assembler: assembler,
		cache:     cache,
		workers:   workers,
		logger:    logger,
		ctx:       ctx,
	}
}

// indexedEntry carries a class entry with its position in archive order,
// so parallel analysis can restore the deterministic emission order.
type indexedEntry struct {
	seq   int
	entry *domain.ClassEntry
}

// Execute runs the full analysis of one archive.
func (uc *AnalyzeUseCase) Execute(archivePath string) (*domain.Report, error) {
	uc.logger.Info("Starting archive analysis", zap.String("archive", archivePath))

	// The decode cache is per-run; drop it wholesale at teardown
	defer uc.cache.Clear()

	handlersBySeq := make(map[int][]*domain.HandlerMethod)
	var mu sync.Mutex
	var skipped int

	group, ctx := errgroup.WithContext(uc.ctx)
	entries := make(chan indexedEntry, uc.workers)

	group.Go(func() error {
		defer close(entries)

		seq := 0
		return uc.walker.Walk(ctx, archivePath, func(entry *domain.ClassEntry) error {
			select {
			case entries <- indexedEntry{seq: seq, entry: entry}:
				seq++
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	for i := 0; i < uc.workers; i++ {
		group.Go(func() error {
			for indexed := range entries {
				handlers, err := uc.analyzer.AnalyzeClass(ctx, indexed.entry)
				if err != nil {
					var decodeErr *domain.DecodeError
					if errors.As(err, &decodeErr) {
						uc.logger.Warn("Skipping undecodable class entry",
							zap.String("entry", decodeErr.Entry),
							zap.Error(decodeErr.Err))
						mu.Lock()
						skipped++
						mu.Unlock()
						continue
					}
					return err
				}

				if len(handlers) == 0 {
					continue
				}

				mu.Lock()
				handlersBySeq[indexed.seq] = handlers
				mu.Unlock()
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, uc.mapContextError(err)
	}

	handlers := flattenInOrder(handlersBySeq)

	uc.logger.Info("Archive walk completed",
		zap.String("archive", archivePath),
		zap.Int("controller_methods", len(handlers)),
		zap.Int("skipped_entries", skipped))

	report := uc.assembler.Assemble(filepath.Base(archivePath), handlers)
	return report, nil
}

// mapContextError translates context termination into the analysis error
// taxonomy. Other errors pass through unchanged.
func (uc *AnalyzeUseCase) mapContextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrAnalysisTimeout
	case errors.Is(err, context.Canceled):
		return domain.ErrAnalysisCancelled
	}
	return err
}

// flattenInOrder restores archive order from the per-entry results.
func flattenInOrder(handlersBySeq map[int][]*domain.HandlerMethod) []*domain.HandlerMethod {
	seqs := make([]int, 0, len(handlersBySeq))
	for seq := range handlersBySeq {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	var handlers []*domain.HandlerMethod
	for _, seq := range seqs {
		handlers = append(handlers, handlersBySeq[seq]...)
	}
	return handlers
}
