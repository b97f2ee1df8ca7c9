// Package metrics は Prometheus のメトリクスを定義します。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sushi",
		Name:      "http_requests_total",
		Help:      "HTTP requests by handler and status code.",
	}, []string{"handler", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sushi",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by handler.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler"})

	scanPages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sushi",
		Name:      "store_scan_pages_total",
		Help:      "Order detail scan pages read, by storage backend.",
	}, []string{"backend"})

	overallocations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sushi",
		Name:      "pattern_overallocation_total",
		Help:      "Order items whose change pattern quantities exceed the item quantity.",
	})
)

// Register は全メトリクスを reg に登録します。
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{requests, requestDuration, scanPages, overallocations} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveRequest(handler string, status int, elapsed time.Duration) {
	requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(handler).Observe(elapsed.Seconds())
}

func IncScanPage(backend string) {
	scanPages.WithLabelValues(backend).Inc()
}

func IncOverallocation() {
	overallocations.Inc()
}
