package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dispatchMetrics contains Prometheus metrics for the dispatcher.
type dispatchMetrics struct {
	dispatched    *prometheus.CounterVec
	notFound      prometheus.Counter
	handlerErrors *prometheus.CounterVec
}

var (
	dispatchMetricsInstance *dispatchMetrics
	dispatchMetricsOnce     sync.Once
)

// getDispatchMetrics returns the singleton dispatcher metrics instance.
func getDispatchMetrics() *dispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetricsInstance = &dispatchMetrics{
			dispatched: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "router",
					Name:      "dispatched_total",
					Help:      "Total number of dispatched requests by route",
				},
				[]string{"method", "route"},
			),
			notFound: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "router",
					Name:      "not_found_total",
					Help:      "Total number of requests matching no route",
				},
			),
			handlerErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "router",
					Name:      "handler_errors_total",
					Help:      "Total number of handler failures converted to 500s",
				},
				[]string{"route"},
			),
		}
	})
	return dispatchMetricsInstance
}
