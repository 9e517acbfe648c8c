package log

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rigs",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "The latency of the HTTP requests by route and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"api", "route", "outcome"})

	httpRequestsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rigs",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of the HTTP requests.",
	}, []string{"api", "route", "method", "code", "outcome"})
)

// Outcome maps a handler error to the response status and a short label such
// as "duplicate" or "insufficient_weight". It is called with nil for success.
type Outcome func(err error) (status int, kind string)

type LoggerConfig struct {
	Name          string
	UserGetter    func(c *fiber.Ctx) string
	Outcome       Outcome
	DoMetrics     bool
	LogErrorsOnly bool
}

// fiberOutcome is used without a configured Outcome.
func fiberOutcome(err error) (int, string) {
	if err == nil {
		return fiber.StatusOK, "ok"
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "http"
	}

	return fiber.StatusInternalServerError, "internal"
}

// NewFiberLogger logs and counts every request. The error handler runs after
// the middleware chain, so the status of a failed request comes from Outcome
// rather than from the response.
func NewFiberLogger(conf *LoggerConfig) fiber.Handler {
	if conf == nil {
		conf = &LoggerConfig{Name: "http"}
	}

	outcome := conf.Outcome
	if outcome == nil {
		outcome = fiberOutcome
	}

	logger := slog.Default().With(slog.String("logger", conf.Name))

	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		wt := time.Since(start)

		status, kind := c.Response().StatusCode(), "ok"

		if chainErr != nil {
			status, kind = outcome(chainErr)
		}

		route := c.Route().Path

		if conf.DoMetrics {
			httpRequestsDuration.With(prometheus.Labels{"api": conf.Name, "route": route, "outcome": kind}).Observe(wt.Seconds())

			httpRequestsCount.With(prometheus.Labels{
				"api":     conf.Name,
				"route":   route,
				"method":  c.Method(),
				"code":    strconv.Itoa(status),
				"outcome": kind,
			}).Inc()
		}

		msg := fmt.Sprintf("%d %s %s", status, c.Method(), c.OriginalURL())

		attrs := []any{
			slog.String("client", c.IP()+":"+c.Port()),
			slog.Int("status", status),
			slog.String("outcome", kind),
			slog.Int64("ms", wt.Milliseconds()),
		}

		if conf.UserGetter != nil {
			attrs = append(attrs, slog.String("user", conf.UserGetter(c)))
		}

		if chainErr != nil {
			attrs = append(attrs, slog.Any("error", chainErr))
		}

		level := slog.LevelInfo

		if conf.LogErrorsOnly {
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			default:
				level = slog.LevelDebug
			}
		}

		logger.Log(c.UserContext(), level, msg, attrs...)

		return chainErr
	}
}
