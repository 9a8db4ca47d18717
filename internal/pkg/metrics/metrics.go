package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EngineOperations counts engine calls by engine, operation and result.
	EngineOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopfloor_engine_operations_total",
		Help: "Engine operations by engine, operation and result",
	}, []string{"engine", "operation", "result"})

	// EngineDuration tracks engine call latency, dominated by the row-lock wait.
	EngineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopfloor_engine_duration_seconds",
		Help:    "Engine operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"engine", "operation"})

	PinAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopfloor_pin_attempts_total",
		Help: "PIN verification attempts by result",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopfloor_rate_limited_total",
		Help: "Requests rejected by the PIN rate limiter",
	})

	PinsFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopfloor_pins_flagged_total",
		Help: "Employees flagged for a PIN change by the expiry sweep",
	})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopfloor_event_publish_failures_total",
		Help: "Domain events that could not be published",
	})
)

// Observe records one engine call. Use as
// defer metrics.Observe("loyalty", "award_point", time.Now(), &err).
func Observe(engine, operation string, start time.Time, errp *error) {
	EngineDuration.WithLabelValues(engine, operation).Observe(time.Since(start).Seconds())
	EngineOperations.WithLabelValues(engine, operation, Result(*errp)).Inc()
}

// Result classifies err into a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, database.ErrStore):
		return "store_error"
	default:
		return "rejected"
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
