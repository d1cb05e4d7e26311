// Package metrics exposes Prometheus counters and histograms for the
// session operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophauth"

// OutcomeOK labels operations that returned no error.
const OutcomeOK = "OK"

// Collector owns a private registry so several instances can coexist in
// one process (tests in particular).
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	revocation *prometheus.CounterVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Session operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "auth_operation_duration_seconds",
			Help:      "Session operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		revocation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_token_revocations_total",
			Help:      "Refresh token revocation attempts by result.",
		}, []string{"reason", "result"}),
	}
}

// Observe records one finished operation. The outcome label is the domain
// error code, OK, or INTERNAL_ERROR for anything else.
func (c *Collector) Observe(operation string, started time.Time, err error) {
	c.operations.WithLabelValues(operation, Outcome(err)).Inc()
	c.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Revocation records a compare-and-set revoke attempt; won is false when
// the token was unknown or already revoked.
func (c *Collector) Revocation(reason string, won bool) {
	result := "lost"
	if won {
		result = "won"
	}
	c.revocation.WithLabelValues(reason, result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if de, ok := common.AsDomainError(err); ok {
		return de.Code
	}
	return common.CodeInternal
}
