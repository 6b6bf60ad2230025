package importer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daystore/internal/model"
	"daystore/internal/source"
	"daystore/internal/store"
)

func fp(v float64) *float64 { return &v }

// fakeFetcher serves canned series and scripted errors per item.
type fakeFetcher struct {
	mu          sync.Mutex
	series      map[string]*model.Series
	errs        map[string][]error // popped per call; empty means success
	calls       map[string]int
	concurrency int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		series:      make(map[string]*model.Series),
		errs:        make(map[string][]error),
		calls:       make(map[string]int),
		concurrency: 8,
	}
}

func (f *fakeFetcher) Name() string     { return "fake" }
func (f *fakeFetcher) Concurrency() int { return f.concurrency }

func (f *fakeFetcher) Fetch(ctx context.Context, item string) (*model.Series, model.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[item]++
	if queue := f.errs[item]; len(queue) > 0 {
		err := queue[0]
		f.errs[item] = queue[1:]
		return nil, model.Meta{}, err
	}
	s, ok := f.series[item]
	if !ok {
		return nil, model.Meta{}, &source.FetchError{Source: "fake", Item: item, Kind: source.KindNotFound}
	}
	return s, model.Meta{PriceField: model.FieldClose, Source: "fake"}, nil
}

func (f *fakeFetcher) addSeries(t *testing.T, item string, dates ...string) {
	t.Helper()
	var points []model.Point
	for _, d := range dates {
		points = append(points, model.Point{Date: d, Close: fp(1)})
	}
	s, err := model.NewSeries(points)
	require.NoError(t, err)
	f.series[item] = s
}

func transientErr(item string) error {
	return &source.FetchError{Source: "fake", Item: item, Kind: source.KindTransient, Err: errors.New("rate limit")}
}

func fatalErr(item string) error {
	return &source.FetchError{Source: "fake", Item: item, Kind: source.KindFatal, Err: errors.New("bad credentials")}
}

func quietOpts() Options {
	return Options{
		Workers:       4,
		MaxAttempts:   3,
		RetryInterval: time.Millisecond,
		FetchTimeout:  time.Second,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestRunImportsAndReports(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()
	f.addSeries(t, "A", "2024-01-02", "2024-01-03")
	f.addSeries(t, "B", "2024-01-02")
	// C is nowhere at the source

	report, err := Run(context.Background(), st, f, []string{"b", "A", "C", "a"}, quietOpts())
	require.NoError(t, err)

	ok, skipped, failed := report.Counts()
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 0, failed)
	assert.False(t, report.Failed())
	assert.NotEmpty(t, report.RunID)

	// results sorted, duplicates collapsed
	require.Len(t, report.Results, 3)
	assert.Equal(t, "A", report.Results[0].Item)
	assert.Equal(t, OutcomeSucceeded, report.Results[0].Outcome)
	assert.Equal(t, 2, report.Results[0].Points)
	assert.Equal(t, OutcomeSkipped, report.Results[2].Outcome)
	assert.Equal(t, "not found", report.Results[2].Reason)

	// only succeeding items land in the store
	names, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()
	f.addSeries(t, "A", "2024-01-02")
	f.errs["A"] = []error{transientErr("A"), transientErr("A")}

	report, err := Run(context.Background(), st, f, []string{"A"}, quietOpts())
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, 3, f.calls["A"])
}

func TestRunTransientExhaustedIsFailure(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()
	f.addSeries(t, "A", "2024-01-02")
	f.addSeries(t, "B", "2024-01-02")
	f.errs["B"] = []error{transientErr("B"), transientErr("B"), transientErr("B")}

	report, err := Run(context.Background(), st, f, []string{"A", "B"}, quietOpts())
	require.NoError(t, err)

	assert.True(t, report.Failed())
	assert.Equal(t, 3, f.calls["B"])

	// the bad item did not abort the batch
	_, readErr := st.Read("A")
	assert.NoError(t, readErr)
	_, readErr = st.Read("B")
	assert.Error(t, readErr)
}

func TestRunFatalAbortsSource(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()
	f.concurrency = 1 // serialize so the fatal item runs first
	f.errs["A"] = []error{fatalErr("A")}
	f.addSeries(t, "B", "2024-01-02")
	f.addSeries(t, "C", "2024-01-02")

	report, err := Run(context.Background(), st, f, []string{"A", "B", "C"}, quietOpts())
	require.Error(t, err)
	assert.True(t, source.IsFatal(err))
	assert.True(t, report.Failed())
	assert.NotEmpty(t, report.Fatal)

	// no retry on fatal
	assert.Equal(t, 1, f.calls["A"])
}

func TestRunNotFoundNotRetried(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()

	report, err := Run(context.Background(), st, f, []string{"GHOST"}, quietOpts())
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, 1, f.calls["GHOST"])
}

func TestRunCancelledKeepsCommittedMerges(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()
	f.concurrency = 1
	f.addSeries(t, "A", "2024-01-02")
	f.addSeries(t, "B", "2024-01-02")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		// cancel as soon as the first item has been fetched
		for {
			f.mu.Lock()
			n := f.calls["A"] + f.calls["B"]
			f.mu.Unlock()
			if n >= 1 {
				cancel()
				close(done)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	report, err := Run(ctx, st, f, []string{"A", "B"}, quietOpts())
	<-done
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	// whatever merged before cancellation is durable
	names, listErr := st.List()
	require.NoError(t, listErr)
	for _, n := range names {
		_, readErr := st.Read(n)
		assert.NoError(t, readErr)
	}
	for _, res := range report.Results {
		assert.NotEqual(t, Outcome("aborted"), res.Outcome)
	}
}

func TestRunWritesReportFile(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()
	f.addSeries(t, "A", "2024-01-02")

	report, err := Run(context.Background(), st, f, []string{"A"}, quietOpts())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(st.Root(), ".lastrun.json"))
	require.NoError(t, err)

	var persisted Report
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, report.RunID, persisted.RunID)
	assert.Equal(t, "fake", persisted.Source)
	require.Len(t, persisted.Results, 1)
	assert.Equal(t, OutcomeSucceeded, persisted.Results[0].Outcome)
}

func TestRunEmptyRequest(t *testing.T) {
	st := newStore(t)
	f := newFakeFetcher()

	report, err := Run(context.Background(), st, f, nil, quietOpts())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.False(t, report.Failed())
}
