package scoring

import (
	"context"
	"fmt"
)

// HistoryStore is what the pipeline needs from the historical store.  The
// sqlite implementation lives in internal/store.
type HistoryStore interface {
	// UpsertEpoch atomically replaces all records for an epoch.
	UpsertEpoch(ctx context.Context, epoch uint64, records []Record) error
	// RecordsInRange returns every stored record with lo <= epoch <= hi,
	// ordered by epoch then vote address.
	RecordsInRange(ctx context.Context, lo, hi uint64) ([]Record, error)
	// AdjCreditsRef sums adjusted credits over all stored records above the
	// floor, skipping excludeEpoch (the epoch being replaced on a rerun).
	AdjCreditsRef(ctx context.Context, floor int64, excludeEpoch uint64) (RefPopulation, error)
}

// RunEpoch processes one freshly ingested epoch end to end: normalize the
// records, replace the epoch in the store, then aggregate the trailing window
// and finalize the ranked table.  With dryRun set the store is never written
// and the aggregation sees the in-memory records instead, so the output matches
// what a confirmed run would produce.
//
// Any error leaves the store exactly as it was - normalization failures happen
// before the write, and the write itself is a single transaction.
func RunEpoch(ctx context.Context, st HistoryStore, p Params, epoch uint64, records []Record, dryRun bool) ([]Aggregate, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w %d", ErrNoRecords, epoch)
	}

	ComputeShares(records, p)

	// The reference population is recomputed from the live store on every run,
	// widened with the current epoch's own qualifying records (the scripts ran
	// the position rewrite after the insert, so the fresh epoch was always part
	// of the population).  Prior rows of this same epoch are excluded so a
	// rerun doesn't count the epoch twice.
	ref, err := st.AdjCreditsRef(ctx, p.MinReferenceCredits, epoch)
	if err != nil {
		return nil, fmt.Errorf("loading reference population: %w", err)
	}
	ref.Add(records, p.MinReferenceCredits)
	if err := ApplyPositions(records, ref); err != nil {
		return nil, err
	}

	if !dryRun {
		if err := st.UpsertEpoch(ctx, epoch, records); err != nil {
			return nil, fmt.Errorf("replacing epoch %d: %w", epoch, err)
		}
	}

	history, err := st.RecordsInRange(ctx, WindowStart(epoch, p), epoch)
	if err != nil {
		return nil, fmt.Errorf("loading trailing window: %w", err)
	}
	// On a dry run (or a rerun) the stored rows for this epoch are stale or
	// absent; the in-memory ones are authoritative either way.
	kept := history[:0]
	for i := range history {
		if history[i].Epoch != epoch {
			kept = append(kept, history[i])
		}
	}
	history = append(kept, records...)

	aggs := AggregateWindow(records, history, epoch, p)
	Finalize(aggs, p)

	if !dryRun {
		updateMetrics(epoch, records, aggs)
	}
	return aggs, nil
}

// ScoreEpoch recomputes the ranked table for an epoch already in the store,
// without re-ingesting anything.
func ScoreEpoch(ctx context.Context, st HistoryStore, p Params, epoch uint64) ([]Aggregate, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	history, err := st.RecordsInRange(ctx, WindowStart(epoch, p), epoch)
	if err != nil {
		return nil, fmt.Errorf("loading trailing window: %w", err)
	}
	var current []Record
	for i := range history {
		if history[i].Epoch == epoch {
			current = append(current, history[i])
		}
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("%w %d", ErrNoRecords, epoch)
	}
	aggs := AggregateWindow(current, history, epoch, p)
	Finalize(aggs, p)
	return aggs, nil
}
