package observability

import (
	"fmt"
	"net/http"
)

// customCollectors contains callbacks that return fully formatted Prometheus
// metric lines. Packages register lightweight counters without introducing a
// dependency on a metrics client library here.
var customCollectors []func() []string

// RegisterCustomCollector adds a collector whose returned lines are emitted on
// /metrics. Registration happens from package init functions, before any
// scrape can run; it is not safe to call once a server is serving.
func RegisterCustomCollector(f func() []string) {
	customCollectors = append(customCollectors, f)
}

// SetupMetrics registers a minimal Prometheus-compatible text endpoint at
// /metrics. The format is hand-rolled to stay scrape-friendly without pulling
// in the client library for a handful of counters.
func SetupMetrics(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		for _, f := range customCollectors {
			if f == nil {
				continue
			}
			for _, line := range f() {
				if line == "" {
					continue
				}
				fmt.Fprintln(w, line)
			}
		}
	})
}
