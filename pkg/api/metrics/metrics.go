// Package metrics serves the Prometheus metrics of tagwatch over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicholas-fedor/tagwatch/pkg/metrics"
)

// Handler serves collected metrics in the Prometheus text format.
type Handler struct {
	Path    string
	Handle  http.HandlerFunc
	Metrics *metrics.Metrics
}

// New creates the /v1/metrics handler backed by the default registry.
func New() *Handler {
	handler := promhttp.Handler()

	return &Handler{
		Path:    "/v1/metrics",
		Handle:  handler.ServeHTTP,
		Metrics: metrics.Default(),
	}
}
