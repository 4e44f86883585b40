package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "engine",
		Name:      "records_dropped_total",
		Help:      "Number of records that failed normalization, per source.",
	}, []string{"source"})

	subscriptionErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guardian",
		Subsystem: "engine",
		Name:      "subscription_errors_total",
		Help:      "Number of subscription failures, per source.",
	}, []string{"source"})

	enginesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "guardian",
		Subsystem: "engine",
		Name:      "active",
		Help:      "Number of child engines currently running.",
	})
)

func init() {
	prometheus.MustRegister(droppedCounter, subscriptionErrorCounter, enginesActive)
}

func recordDropped(source string) {
	droppedCounter.WithLabelValues(source).Inc()
}

func recordSubscriptionError(source string) {
	subscriptionErrorCounter.WithLabelValues(source).Inc()
}
