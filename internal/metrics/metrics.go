package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation counts assignment attempts by source mode and outcome.
var Generation = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "challenger",
	Name:      "generation_attempts_total",
	Help:      "Problem assignment attempts by mode and result.",
}, []string{"mode", "result"})

// Draws counts wheel draws by trigger (manual or auto).
var Draws = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "challenger",
	Name:      "draws_total",
	Help:      "Wheel draws performed, by trigger.",
}, []string{"trigger"})

// CatalogFetches counts catalog source fetches by result (hit, miss, error).
var CatalogFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "challenger",
	Name:      "catalog_fetches_total",
	Help:      "Catalog source fetches, by result.",
}, []string{"result"})

// Webhooks counts payment webhook deliveries by provider and result.
var Webhooks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "challenger",
	Name:      "billing_webhooks_total",
	Help:      "Payment webhook deliveries, by provider and result.",
}, []string{"provider", "result"})
