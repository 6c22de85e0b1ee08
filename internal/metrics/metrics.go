// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records pipeline progress as Prometheus metrics and writes
// them in the text exposition format for node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/pubmed-contacts/internal/contacts"
	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

const namespace = "pubmed_contacts"

// Observer implements contacts.Observer on a private registry so that several
// runs in one process never share counters.
type Observer struct {
	registry *prometheus.Registry

	batchesStarted   prometheus.Counter
	batchesFailed    prometheus.Counter
	recordsProcessed prometheus.Counter
	recordsSkipped   prometheus.Counter
	rowsEmitted      prometheus.Counter

	resultRows  *prometheus.GaugeVec
	articles    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

var _ contacts.Observer = (*Observer)(nil)

// NewObserver creates an Observer with all metrics registered.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		batchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_started_total",
			Help:      "Number of efetch batches requested.",
		}),
		batchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_failed_total",
			Help:      "Number of efetch batches that could not be fetched or parsed.",
		}),
		recordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Number of article records folded into the result.",
		}),
		recordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Number of malformed article records skipped.",
		}),
		rowsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_emitted_total",
			Help:      "Number of contact rows emitted before deduplication.",
		}),
		resultRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_rows",
			Help:      "Rows in the last result by kind.",
		}, []string{"kind"}),
		articles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_articles",
			Help:      "PMIDs returned by the last search.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that produced rows.",
		}),
	}
	o.registry.MustRegister(
		o.batchesStarted,
		o.batchesFailed,
		o.recordsProcessed,
		o.recordsSkipped,
		o.rowsEmitted,
		o.resultRows,
		o.articles,
		o.lastSuccess,
	)
	return o
}

// Registry exposes the private registry, e.g. for tests or an HTTP handler.
func (o *Observer) Registry() *prometheus.Registry { return o.registry }

func (o *Observer) BatchStarted(int, int) { o.batchesStarted.Inc() }

func (o *Observer) BatchFailed(int, error) { o.batchesFailed.Inc() }

func (o *Observer) RecordSkipped(types.MalformedRecord) { o.recordsSkipped.Inc() }

func (o *Observer) RecordProcessed(_ string, rows int) {
	o.recordsProcessed.Inc()
	o.rowsEmitted.Add(float64(rows))
}

// Observe records the final counts of a finished run.
func (o *Observer) Observe(res contacts.Result) {
	o.resultRows.WithLabelValues("unique").Set(float64(len(res.Rows)))
	o.resultRows.WithLabelValues("duplicate").Set(float64(res.DuplicatesRemoved))
	o.resultRows.WithLabelValues("with_email").Set(float64(res.WithEmail))
	o.articles.Set(float64(res.Articles))
	if res.Status == contacts.StatusOK {
		o.lastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile writes all metrics to path atomically.
func (o *Observer) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
