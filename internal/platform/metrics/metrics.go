// Package metrics exposes the Prometheus scrape endpoint. Module-specific
// collectors register themselves via promauto; this package only serves
// them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
