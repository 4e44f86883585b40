// Package observability holds service-level watermark metrics shared across
// binaries.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	documentAppliedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "guardian",
		Subsystem: "store",
		Name:      "last_document_applied_timestamp_seconds",
		Help:      "Unix timestamp of the most recent document update applied to the store.",
	})
	viewPublishedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "guardian",
		Subsystem: "store",
		Name:      "last_view_published_timestamp_seconds",
		Help:      "Unix timestamp of the most recent telemetry view publication.",
	})
)

func init() {
	prometheus.MustRegister(documentAppliedGauge, viewPublishedGauge)
}

// RecordDocumentApplied updates the store watermark gauge.
func RecordDocumentApplied(ts time.Time) {
	if ts.IsZero() {
		return
	}
	documentAppliedGauge.Set(float64(ts.Unix()))
}

// RecordViewPublished updates the view watermark gauge.
func RecordViewPublished(ts time.Time) {
	if ts.IsZero() {
		return
	}
	viewPublishedGauge.Set(float64(ts.Unix()))
}
