// Package importer orchestrates one import run: for every requested
// item, fetch through the selected source adapter and merge into the
// store. Failures are isolated per item; one bad ticker never aborts
// the batch, only a fatal adapter condition does.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"daystore/internal/model"
	"daystore/internal/slogx"
	"daystore/internal/source"
	"daystore/internal/store"
)

// Options tune one import run.
type Options struct {
	// Workers caps pipeline concurrency. The effective pool is also
	// bounded by the adapter's own Concurrency.
	Workers int
	// MaxAttempts is the total attempt ceiling per item for transient
	// errors (1 = no retry).
	MaxAttempts int
	// RetryInterval is the initial backoff delay; it grows
	// exponentially with jitter.
	RetryInterval time.Duration
	// FetchTimeout bounds each adapter call. A timed-out fetch counts
	// as transient.
	FetchTimeout time.Duration
	// Logger receives per-item progress. Nil means a fan-in logger
	// writing to stderr.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 2 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 2 * time.Minute
	}
	return o
}

// Run imports the named items from f into st and returns the per-item
// report. The returned error is non-nil only for fatal adapter
// conditions or a cancelled context; per-item failures live in the
// report. Merges committed before cancellation stay committed.
func Run(ctx context.Context, st *store.Store, f source.Fetcher, names []string, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	logger := opts.Logger
	var logWg sync.WaitGroup
	if logger == nil {
		lines := make(chan string, 2048)
		logger = slogx.NewChanLogger(lines)
		logWg.Add(1)
		go func() {
			defer logWg.Done()
			for s := range lines {
				fmt.Fprintln(os.Stderr, s)
			}
		}()
		defer func() {
			close(lines)
			logWg.Wait()
		}()
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Source:  f.Name(),
		Started: time.Now().UTC(),
	}

	// Deterministic order for reproducible logs and reports.
	items := normalizeNames(names)
	if len(items) == 0 {
		report.Finished = time.Now().UTC()
		return report, nil
	}

	workers := opts.Workers
	if c := f.Concurrency(); c > 0 && c < workers {
		workers = c
	}
	if workers > len(items) {
		workers = len(items)
	}
	logger.Info("import start", "run_id", report.RunID, "source", f.Name(), "items", len(items), "workers", workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(workers))
	results := make(chan Result, len(items))
	var fatalOnce sync.Once
	var fatalErr error

	var wg sync.WaitGroup
	for _, item := range items {
		if runCtx.Err() != nil {
			break
		}
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(item string) {
			defer wg.Done()
			defer sem.Release(1)

			res := importOne(runCtx, st, f, item, opts, logger)
			if res.Outcome == OutcomeFailed && res.fatal {
				fatalOnce.Do(func() {
					fatalErr = res.err
					cancel()
				})
			}
			results <- res
		}(item)
	}
	wg.Wait()
	close(results)

	for r := range results {
		if r.Outcome == outcomeAborted {
			continue // cancelled before the fetch ran
		}
		report.Results = append(report.Results, r)
	}
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Item < report.Results[j].Item
	})
	report.Finished = time.Now().UTC()
	if fatalErr != nil {
		report.Fatal = fatalErr.Error()
	}

	ok, skipped, failed := report.Counts()
	logger.Info("import done", "run_id", report.RunID, "succeeded", ok, "skipped", skipped, "failed", failed)

	if err := writeReport(st.Root(), report); err != nil {
		logger.Warn("could not write run report", "error", err)
	}

	if fatalErr != nil {
		return report, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// importOne fetches one item with bounded retry and merges it.
func importOne(ctx context.Context, st *store.Store, f source.Fetcher, item string, opts Options, logger *slog.Logger) Result {
	if ctx.Err() != nil {
		return Result{Item: item, Outcome: outcomeAborted}
	}

	var series *model.Series
	var meta model.Meta
	attempt := 0

	op := func() error {
		attempt++
		fctx, cancel := context.WithTimeout(ctx, opts.FetchTimeout)
		defer cancel()

		var err error
		series, meta, err = f.Fetch(fctx, item)
		if err == nil {
			return nil
		}
		switch source.Kind(err) {
		case source.KindTransient:
			logger.Warn("fetch retryable", "item", item, "attempt", attempt, "error", err)
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = opts.RetryInterval
	policy := backoff.WithContext(
		backoff.WithMaxRetries(exp, uint64(opts.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		switch {
		case source.IsNotFound(err):
			logger.Info("item not found at source", "item", item)
			return Result{Item: item, Outcome: OutcomeSkipped, Reason: "not found"}
		case source.IsFatal(err):
			logger.Error("fatal source condition", "item", item, "error", err)
			return Result{Item: item, Outcome: OutcomeFailed, Reason: err.Error(), fatal: true, err: err}
		case errors.Is(err, context.Canceled):
			return Result{Item: item, Outcome: outcomeAborted}
		default:
			logger.Error("fetch failed", "item", item, "attempts", attempt, "error", err)
			return Result{Item: item, Outcome: OutcomeFailed, Reason: err.Error(), err: err}
		}
	}

	if err := st.MergeWrite(item, series, meta); err != nil {
		logger.Error("merge failed", "item", item, "error", err)
		return Result{Item: item, Outcome: OutcomeFailed, Reason: err.Error(), err: err}
	}

	logger.Info("imported", "item", item, "points", series.Len())
	return Result{Item: item, Outcome: OutcomeSucceeded, Points: series.Len()}
}

// normalizeNames dedupes, canonicalizes and sorts the requested items.
func normalizeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		key := store.Normalize(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
