package merge

import "context"

// DefaultBatchSize is the chunk size process uses when none is configured.
const DefaultBatchSize = 100

// BatchOptions configures the cooperative batch processor.
type BatchOptions struct {
	BatchSize int
	OnProgress ProgressFunc
}

// processInBatches splits items into consecutive chunks of opts.BatchSize
// (default DefaultBatchSize), invokes worker once per chunk in order, and
// reports cumulative progress after each chunk.
//
// Chunks never run concurrently — this is a pacing primitive, not a
// parallelism primitive (spec.md §4.C): each chunk runs to completion before
// the next starts, and ctx is checked between chunks so a long merge can be
// cancelled between batches instead of only at the start or end.
func processInBatches[T any](ctx context.Context, items []T, worker func([]T) error, opts BatchOptions) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	total := len(items)
	processed := 0

	for start := 0; start < total; start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > total {
			end = total
		}
		chunk := items[start:end]

		if err := worker(chunk); err != nil {
			return err
		}

		processed += len(chunk)
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{ProcessedItems: processed, TotalItems: total})
		}
	}

	return nil
}
