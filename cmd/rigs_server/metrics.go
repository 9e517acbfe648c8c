//nolint:gochecknoglobals
package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kdudkov/rigs/internal/apperr"
)

var (
	opsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rigs",
		Name:      "operations_total",
		Help:      "The total number of state changing operations",
	}, []string{"op", "result"})

	wsClientsMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rigs",
		Name:      "ws_clients",
		Help:      "The number of connected event listeners",
	})
)

// track counts op by outcome and passes err through.
func track(op string, err error) error {
	result := "ok"
	if err != nil {
		result = apperr.Kind(err)
	}

	opsMetric.With(prometheus.Labels{"op": op, "result": result}).Inc()

	return err
}

func getMetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{DisableCompression: true},
	))
}
