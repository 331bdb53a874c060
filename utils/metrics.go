package utils

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dvf-mart/models"
)

// Metrics are the per-run gauges and counters exported to a node-exporter
// textfile once the batch completes.
type Metrics struct {
	Registry *prometheus.Registry

	rowsRead      prometheus.Counter
	rowsSkipped   prometheus.Counter
	valuesNulled  *prometheus.CounterVec
	stageRows     *prometheus.GaugeVec
	priceBounds   *prometheus.GaugeVec
	levelRows     *prometheus.GaugeVec
	levelSkipped  *prometheus.GaugeVec
	stageDuration *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

// NewMetrics registers the pipeline collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		rowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvf_rows_read_total",
			Help: "Raw data rows read from the source file.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dvf_rows_skipped_total",
			Help: "Raw rows skipped because they did not match the header.",
		}),
		valuesNulled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dvf_values_nulled_total",
			Help: "Non-empty values that failed numeric or date parsing.",
		}, []string{"column"}),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dvf_stage_rows",
			Help: "Rows remaining after each cleaning stage.",
		}, []string{"stage"}),
		priceBounds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dvf_price_per_m2_bound",
			Help: "Price-per-m² cutoffs and percentiles used for outlier removal.",
		}, []string{"bound"}),
		levelRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dvf_level_summary_rows",
			Help: "Summary rows emitted per geography level.",
		}, []string{"level"}),
		levelSkipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dvf_level_skipped",
			Help: "1 when a geography level was skipped for missing inputs.",
		}, []string{"level"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dvf_stage_duration_seconds",
			Help: "Wall time spent in each pipeline step.",
		}, []string{"step"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dvf_last_success_timestamp_seconds",
			Help: "Unix time of the last run that completed without a fatal error.",
		}),
	}
	m.Registry.MustRegister(
		m.rowsRead, m.rowsSkipped, m.valuesNulled, m.stageRows, m.priceBounds,
		m.levelRows, m.levelSkipped, m.stageDuration, m.lastSuccess,
	)
	return m
}

// ObserveClean records the counts of a cleaning run.
func (m *Metrics) ObserveClean(r *models.CleanReport) {
	m.rowsRead.Add(float64(r.Load.RowsRead))
	m.rowsSkipped.Add(float64(r.Load.RowsSkipped))
	for col, n := range r.Load.Nulled {
		m.valuesNulled.WithLabelValues(col).Add(float64(n))
	}
	if r.Load.DatesNulled > 0 {
		m.valuesNulled.WithLabelValues("date").Add(float64(r.Load.DatesNulled))
	}

	m.stageRows.WithLabelValues("loaded").Set(float64(r.Load.RowsRead - r.Load.RowsSkipped))
	m.stageRows.WithLabelValues("residential").Set(float64(r.Residential))
	m.stageRows.WithLabelValues("deduplicated").Set(float64(r.Deduplicated))
	m.stageRows.WithLabelValues("sanity_bounds").Set(float64(r.WithinSanity))
	m.stageRows.WithLabelValues("final").Set(float64(r.Final))

	if r.BoundsApplied {
		m.priceBounds.WithLabelValues("low").Set(r.Bounds.Low)
		m.priceBounds.WithLabelValues("upper").Set(r.Bounds.Upper)
		m.priceBounds.WithLabelValues("p10").Set(r.Bounds.P10)
		m.priceBounds.WithLabelValues("p90").Set(r.Bounds.P90)
	}
}

// ObserveAggregation records per-level row counts and skips.
func (m *Metrics) ObserveAggregation(r *models.AggregationReport) {
	for _, lr := range r.Levels {
		m.levelRows.WithLabelValues(lr.Level.Name).Set(float64(len(lr.Rows)))
		skipped := 0.0
		if lr.Skipped {
			skipped = 1
		}
		m.levelSkipped.WithLabelValues(lr.Level.Name).Set(skipped)
	}
}

// Time records how long step took since start.
func (m *Metrics) Time(step string, start time.Time) {
	m.stageDuration.WithLabelValues(step).Set(time.Since(start).Seconds())
}

// MarkSuccess stamps the completion time of a successful run.
func (m *Metrics) MarkSuccess() {
	m.lastSuccess.SetToCurrentTime()
}

// WriteTextfile writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("metrics: write textfile %q: %w", path, err)
	}
	return nil
}
