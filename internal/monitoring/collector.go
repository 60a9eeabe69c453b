// Package monitoring watches reconcile run history and raises webhook alerts
// when runs start failing or leave too many partners unzoned.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of reconcile health.
type MetricsSnapshot struct {
	// Run metrics over the most recent LookbackRuns runs.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	RunFailRate  float64 `json:"run_fail_rate"`

	// Latest completed run.
	LatestRunID         string    `json:"latest_run_id,omitempty"`
	LatestRunAt         time.Time `json:"latest_run_at,omitempty"`
	LatestProcessed     int       `json:"latest_processed"`
	LatestUnzoned       int       `json:"latest_unzoned"`
	LatestDefects       int       `json:"latest_defects"`
	LatestStoreFailures int       `json:"latest_store_failures"`

	// Metadata.
	LookbackRuns int       `json:"lookback_runs"`
	CollectedAt  time.Time `json:"collected_at"`
}

// RunLister is the slice of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from run history.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect summarizes the most recent lookback runs. Runs are listed newest
// first, so the first complete run is the latest one.
func (c *Collector) Collect(ctx context.Context, lookback int) (*MetricsSnapshot, error) {
	if lookback <= 0 {
		lookback = 20
	}
	snap := &MetricsSnapshot{
		LookbackRuns: lookback,
		CollectedAt:  time.Now().UTC(),
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: lookback})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var latest *model.Run
	for i := range runs {
		r := &runs[i]
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			if latest == nil && !r.DryRun {
				latest = r
			}
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}

	if latest != nil {
		snap.LatestRunID = latest.ID
		snap.LatestRunAt = latest.UpdatedAt
		if s := latest.Summary; s != nil {
			snap.LatestProcessed = s.Processed
			snap.LatestUnzoned = len(s.Unzoned)
			snap.LatestDefects = len(s.Defects)
			snap.LatestStoreFailures = s.Failed
		}
	}

	return snap, nil
}
