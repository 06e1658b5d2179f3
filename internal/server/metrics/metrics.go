// Package metrics exports server telemetry to Prometheus. A nil *Recorder is
// valid and records nothing.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "selva"

// Download token outcomes.
const (
	TokenIssued   = "issued"
	TokenConsumed = "consumed"
	TokenRejected = "rejected"
	TokenFailed   = "failed"
)

// Field map kinds reported by FieldsReconciled.
const (
	KindBaseProfile     = "base_profile"
	KindExternalProfile = "external_profile"
	KindTemplate        = "template"
)

type Recorder struct {
	registry        *prometheus.Registry
	downloadTokens  *prometheus.CounterVec
	fieldChanges    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the server metrics on reg, or on a fresh registry when reg
// is nil.
func New(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		downloadTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_tokens_total",
			Help:      "One-time download tokens by outcome.",
		}, []string{"outcome"}),
		fieldChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_fields_total",
			Help:      "Fields created, updated or deleted by form reconciliation.",
		}, []string{"kind", "change"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	collectors := []prometheus.Collector{r.downloadTokens, r.fieldChanges, r.requestDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) DownloadToken(outcome string) {
	if r == nil {
		return
	}
	r.downloadTokens.WithLabelValues(outcome).Inc()
}

func (r *Recorder) FieldsReconciled(kind string, created, updated, deleted int) {
	if r == nil {
		return
	}
	r.fieldChanges.WithLabelValues(kind, "created").Add(float64(created))
	r.fieldChanges.WithLabelValues(kind, "updated").Add(float64(updated))
	r.fieldChanges.WithLabelValues(kind, "deleted").Add(float64(deleted))
}

func (r *Recorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
