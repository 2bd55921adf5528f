// Package metrics exposes the figures of a pipeline run as Prometheus metrics.
//
// A batch run has no scrape endpoint; the registry is written once at the end
// of the run in the text exposition format, for the node exporter textfile
// collector.
package metrics

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/go-medallion/pkg/pipeline/measure"
)

const namespace = "medallion"

// Collector holds the metrics of one run.
type Collector struct {
	registry *prometheus.Registry

	stageDuration   *prometheus.GaugeVec
	filesDownloaded prometheus.Gauge
	tableRows       *prometheus.GaugeVec
	stepAvgDuration *prometheus.GaugeVec
	stepElements    *prometheus.GaugeVec
	lastSuccess     prometheus.Gauge

	mu       sync.Mutex
	measures map[string]measure.Measure
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
		}, []string{"stage"}),
		filesDownloaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_downloaded",
			Help:      "Number of raw files downloaded from blob storage.",
		}),
		tableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows of the last committed version of each table.",
		}, []string{"layer", "table"}),
		stepAvgDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_avg_duration_seconds",
			Help:      "Average computation time per element of each internal step.",
		}, []string{"stage", "step"}),
		stepElements: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_elements",
			Help:      "Elements processed by each internal step.",
		}, []string{"stage", "step"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		measures: make(map[string]measure.Measure),
	}

	c.registry.MustRegister(
		c.stageDuration,
		c.filesDownloaded,
		c.tableRows,
		c.stepAvgDuration,
		c.stepElements,
		c.lastSuccess,
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveStage(stage string, elapsed time.Duration) {
	c.stageDuration.WithLabelValues(stage).Set(elapsed.Seconds())
}

func (c *Collector) SetFilesDownloaded(count int) {
	c.filesDownloaded.Set(float64(count))
}

func (c *Collector) SetTableRows(layer, table string, rows int64) {
	c.tableRows.WithLabelValues(layer, table).Set(float64(rows))
}

func (c *Collector) MarkSuccess(at time.Time) {
	c.lastSuccess.Set(float64(at.Unix()))
}

// AddMeasure registers the step measure of a stage. It is read when the
// metrics are written.
func (c *Collector) AddMeasure(stage string, msr measure.Measure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.measures[stage] = msr
}

func (c *Collector) collectMeasures() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for stage, msr := range c.measures {
		for step, mt := range msr.AllMetrics() {
			if mt.Count() == 0 {
				continue
			}
			c.stepAvgDuration.WithLabelValues(stage, step).Set(mt.AVGDuration().Seconds())
			c.stepElements.WithLabelValues(stage, step).Set(float64(mt.Count()))
		}
	}
}

// WriteToTextfile writes every metric to path, atomically.
func (c *Collector) WriteToTextfile(path string) error {
	c.collectMeasures()

	err := prometheus.WriteToTextfile(path, c.registry)
	if err != nil {
		return errors.Wrapf(err, "unable to write metrics to %s", path)
	}

	return nil
}
