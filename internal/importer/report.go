package importer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Outcome classifies what happened to one requested item.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"

	// cancelled before the item was attempted; not reported
	outcomeAborted Outcome = "aborted"
)

// Result is the per-item outcome of an import run.
type Result struct {
	Item    string  `json:"item"`
	Outcome Outcome `json:"outcome"`
	Points  int     `json:"points,omitempty"`
	Reason  string  `json:"reason,omitempty"`

	fatal bool
	err   error
}

// Report aggregates one import run. Persisted as .lastrun.json in the
// store directory so the last run stays inspectable.
type Report struct {
	RunID    string    `json:"run_id"`
	Source   string    `json:"source"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Results  []Result  `json:"results"`
	Fatal    string    `json:"fatal,omitempty"`
}

// Counts tallies the per-item outcomes.
func (r *Report) Counts() (succeeded, skipped, failed int) {
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeSucceeded:
			succeeded++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return
}

// Failed reports whether the run as a whole should exit non-zero:
// at least one unresolved per-item failure, or a fatal abort.
func (r *Report) Failed() bool {
	_, _, failed := r.Counts()
	return failed > 0 || r.Fatal != ""
}

const reportFile = ".lastrun.json"

func writeReport(storeRoot string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(storeRoot, reportFile), data, 0644)
}
