package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statuspage_sync"

var (
	// storeRequests counts Cachet API calls.
	// Labels: operation (list_groups, list_components, get_component, set_status), result (ok, error)
	storeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "requests_total",
		Help:      "Cachet API calls by operation and result",
	}, []string{"operation", "result"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "request_duration_seconds",
		Help:      "Cachet API call latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	// statusWrites counts reconciled status writes.
	// Labels: source (webhook, poll), status (target status name), result (ok, error)
	statusWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "status_writes_total",
		Help:      "Component status writes by source, target status and result",
	}, []string{"source", "status", "result"})

	webhookBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "batches_total",
		Help:      "Alertmanager webhook batches by outcome (ok, not_found, invalid)",
	}, []string{"outcome"})

	probes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poll",
		Name:      "probes_total",
		Help:      "Service probes by outcome (ok, non_2xx, failed)",
	}, []string{"outcome"})

	pollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poll",
		Name:      "cycles_total",
		Help:      "Poll cycles by outcome (ok, partial, skipped, aborted)",
	}, []string{"outcome"})

	pollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "poll",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of a poll cycle in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
)

func ObserveStoreCall(operation string, started time.Time, err error) {
	storeLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	storeRequests.WithLabelValues(operation, result(err)).Inc()
}

func ObserveStatusWrite(source, status string, err error) {
	statusWrites.WithLabelValues(source, status, result(err)).Inc()
}

func ObserveWebhookBatch(outcome string) {
	webhookBatches.WithLabelValues(outcome).Inc()
}

func ObserveProbe(code int, err error) {
	switch {
	case err != nil:
		probes.WithLabelValues("failed").Inc()
	case code >= 200 && code <= 299:
		probes.WithLabelValues("ok").Inc()
	default:
		probes.WithLabelValues("non_2xx").Inc()
	}
}

func ObservePollCycle(outcome string, started time.Time) {
	pollCycles.WithLabelValues(outcome).Inc()
	pollCycleDuration.Observe(time.Since(started).Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
