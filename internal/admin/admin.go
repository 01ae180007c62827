// Package admin serves the operational HTTP endpoint of the echo server.
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StateFunc reports the server phase and whether it still accepts
// connections.
type StateFunc func() (state string, accepting bool)

// NewRouter returns the admin handler:
//
//	GET /metrics  Prometheus exposition
//	GET /healthz  200 while accepting, 503 otherwise
func NewRouter(state StateFunc, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		name, accepting := state()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !accepting {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(name + "\n"))
	})
	return r
}
