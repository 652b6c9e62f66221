package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// AI completions
	AIRequestDuration *prometheus.HistogramVec
	AIResults         *prometheus.CounterVec

	// Authorization decisions that ended in a 403
	AuthzDenied *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sprintsync",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sprintsync",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sprintsync",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sprintsync",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sprintsync",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sprintsync",
				Subsystem: "ai",
				Name:      "request_duration_seconds",
				Help:      "Completion API latency by suggestion kind and result.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"kind", "result"}, // result=ai|fallback
		),
		AIResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sprintsync",
				Subsystem: "ai",
				Name:      "results_total",
				Help:      "Suggestion outcomes by kind and result.",
			},
			[]string{"kind", "result"},
		),
		AuthzDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sprintsync",
				Subsystem: "authz",
				Name:      "denied_total",
				Help:      "Requests refused by a permission check, by route.",
			},
			[]string{"route"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.AIRequestDuration, p.AIResults,
		p.AuthzDenied,
	)

	return p
}

// ObserveAI records one suggestion outcome. A nil receiver is a no-op so
// callers without metrics wiring (tests, CLI) need no guard.
func (p *Prom) ObserveAI(kind, result string, d time.Duration) {
	if p == nil {
		return
	}
	p.AIResults.WithLabelValues(kind, result).Inc()
	p.AIRequestDuration.WithLabelValues(kind, result).Observe(d.Seconds())
}

func (p *Prom) IncDenied(route string) {
	if p == nil {
		return
	}
	p.AuthzDenied.WithLabelValues(route).Inc()
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
