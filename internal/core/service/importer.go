package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"usersapi/internal/core/domain"
	"usersapi/internal/core/port"
	"usersapi/internal/core/validation"
)

const (
	importOutcomeSuccess = "success"
	importOutcomeFailed  = "failed"
)

// BulkImporter validates and persists a batch of raw rows. A failing row never
// aborts the batch, so SuccessCount + FailedCount always equals the input size.
type BulkImporter struct {
	repo    port.UserRepository
	probe   port.Telemetry
	workers int
}

type ImporterOption func(*BulkImporter)

// WithWorkers bounds the number of rows persisted concurrently. Values below 2
// keep the sequential path.
func WithWorkers(n int) ImporterOption {
	return func(b *BulkImporter) {
		b.workers = n
	}
}

func WithImportTelemetry(probe port.Telemetry) ImporterOption {
	return func(b *BulkImporter) {
		if probe != nil {
			b.probe = probe
		}
	}
}

func NewBulkImporter(repo port.UserRepository, opts ...ImporterOption) *BulkImporter {
	b := &BulkImporter{
		repo:    repo,
		probe:   noopTelemetry,
		workers: 1,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *BulkImporter) Import(ctx context.Context, records []domain.RawUserRecord) domain.ImportOutcome {
	if b.workers > 1 {
		return b.importConcurrently(ctx, records)
	}

	var outcome domain.ImportOutcome

	for i, raw := range records {
		if err := b.importRow(ctx, raw); err != nil {
			outcome.FailedCount++
			outcome.Failures = append(outcome.Failures, domain.ImportFailure{Row: i + 1, Reason: err.Error()})
			continue
		}
		outcome.SuccessCount++
	}

	return outcome
}

// importConcurrently never drops a row on cancellation: every row is still
// handed to importRow, and a create refused by a cancelled context counts as failed.
func (b *BulkImporter) importConcurrently(ctx context.Context, records []domain.RawUserRecord) domain.ImportOutcome {
	var (
		success  atomic.Int64
		failed   atomic.Int64
		mu       sync.Mutex
		failures []domain.ImportFailure
	)

	// rows report failures through the counters, so the group context is never cancelled
	g := new(errgroup.Group)
	g.SetLimit(b.workers)

	for i, raw := range records {
		row, raw := i+1, raw

		g.Go(func() error {
			if err := b.importRow(ctx, raw); err != nil {
				failed.Add(1)

				mu.Lock()
				failures = append(failures, domain.ImportFailure{Row: row, Reason: err.Error()})
				mu.Unlock()

				return nil
			}

			success.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Row < failures[j].Row })

	return domain.ImportOutcome{
		SuccessCount: int(success.Load()),
		FailedCount:  int(failed.Load()),
		Failures:     failures,
	}
}

func (b *BulkImporter) importRow(ctx context.Context, raw domain.RawUserRecord) error {
	user, err := validation.ValidateRecord(raw)
	if err != nil {
		b.probe.RecordImportRow(ctx, importOutcomeFailed)
		return err
	}

	if err := ctx.Err(); err != nil {
		b.probe.RecordImportRow(ctx, importOutcomeFailed)
		return err
	}

	if _, err := b.repo.Create(ctx, user); err != nil {
		slog.WarnContext(ctx, "Import row rejected by store", "email", user.Email, "error", err)
		b.probe.RecordImportRow(ctx, importOutcomeFailed)
		return err
	}

	b.probe.RecordImportRow(ctx, importOutcomeSuccess)
	return nil
}
