// Package metrics records run outcomes as Prometheus series and exports
// them in the node-exporter textfile format, the usual pattern for batch
// jobs that are not scraped directly.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/orderdedup/internal/dedup"
)

// Recorder accumulates metrics for the runs of one process.
type Recorder struct {
	reg        *prometheus.Registry
	now        func() time.Time
	Groups     prometheus.Counter
	Deleted    prometheus.Counter
	Migrated   prometheus.Counter
	Collisions prometheus.Counter
	Failures   *prometheus.CounterVec
	LastRun    *prometheus.GaugeVec
}

// NewRecorder creates a Recorder on a private registry. now stamps the
// last-run gauge; nil uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	r := prometheus.NewRegistry()
	groups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orderdedup_groups_found_total",
		Help: "Duplicate groups detected by consolidation runs.",
	})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orderdedup_records_deleted_total",
		Help: "Redundant records deleted by consolidation runs.",
	})
	migrated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orderdedup_records_migrated_total",
		Help: "Records re-keyed by branch migration runs.",
	})
	collisions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orderdedup_collisions_total",
		Help: "Migrations that replaced an existing record.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdedup_failures_total",
		Help: "Per-group and per-record failures.",
	}, []string{"op"})
	lastRun := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orderdedup_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run.",
	}, []string{"op", "mode"})

	r.MustRegister(groups, deleted, migrated, collisions, failures, lastRun)
	return &Recorder{
		reg:        r,
		now:        now,
		Groups:     groups,
		Deleted:    deleted,
		Migrated:   migrated,
		Collisions: collisions,
		Failures:   failures,
		LastRun:    lastRun,
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveConsolidation adds a consolidation report. Simulated runs count
// groups and failures but never deletions.
func (r *Recorder) ObserveConsolidation(rep *dedup.ConsolidationReport) {
	if rep == nil {
		return
	}
	r.Groups.Add(float64(rep.GroupsFound))
	r.Deleted.Add(float64(rep.DeletedCount))
	r.Failures.WithLabelValues("purge").Add(float64(len(rep.Failures)))
	r.stamp("purge", rep.Mode)
}

// ObserveMigration adds a migration report. Simulated runs are not counted
// as migrated records.
func (r *Recorder) ObserveMigration(rep *dedup.MigrationReport) {
	if rep == nil {
		return
	}
	if rep.Mode.Apply() {
		r.Migrated.Add(float64(rep.Migrated))
		r.Collisions.Add(float64(rep.Collisions()))
	}
	r.Failures.WithLabelValues("migrate").Add(float64(len(rep.Failures)))
	r.stamp("migrate", rep.Mode)
}

func (r *Recorder) stamp(op string, mode dedup.Mode) {
	r.LastRun.WithLabelValues(op, mode.String()).Set(float64(r.now().Unix()))
}

// WriteTextfile writes every series to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
