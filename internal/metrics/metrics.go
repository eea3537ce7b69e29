// Package metrics exposes Prometheus counters for SCE tool invocations,
// setting changes and REST requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all biosctl metrics.
type Registry struct {
	reg *prometheus.Registry

	ToolRuns      *prometheus.CounterVec
	ToolDuration  *prometheus.HistogramVec
	SettingWrites *prometheus.CounterVec
	Restores      *prometheus.CounterVec
	APIRequests   *prometheus.CounterVec
}

// New returns a Registry backed by its own prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		ToolRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biosctl_tool_runs_total",
			Help: "SCE tool invocations by operation and result",
		}, []string{"op", "result"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biosctl_tool_duration_seconds",
			Help:    "SCE tool invocation latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"op"}),
		SettingWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biosctl_setting_writes_total",
			Help: "Setting updates by result",
		}, []string{"result"}),
		Restores: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biosctl_restores_total",
			Help: "Restore-from-backup attempts by result",
		}, []string{"result"}),
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biosctl_api_requests_total",
			Help: "REST requests by operation and HTTP status code",
		}, []string{"operation", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveToolRun records one SCE invocation.
func (r *Registry) ObserveToolRun(op string, d time.Duration, err error) {
	r.ToolRuns.WithLabelValues(op, result(err == nil)).Inc()
	r.ToolDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveSettingWrite records one setting update.
func (r *Registry) ObserveSettingWrite(ok bool) {
	r.SettingWrites.WithLabelValues(result(ok)).Inc()
}

// ObserveRestore records one restore attempt.
func (r *Registry) ObserveRestore(ok bool) {
	r.Restores.WithLabelValues(result(ok)).Inc()
}

// ObserveRequest records one REST request.
func (r *Registry) ObserveRequest(operation string, code int) {
	r.APIRequests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
