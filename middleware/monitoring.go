package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized or forbidden requests",
		},
		[]string{"reason"},
	)
	taskCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_completions_total",
			Help: "Task completion attempts by outcome",
		},
		[]string{"outcome"},
	)

	registerOnce sync.Once
)

// Completion outcomes reported through ObserveCompletion.
const (
	OutcomeCompleted        = "completed"
	OutcomeAlreadyCompleted = "already_completed"
	OutcomeNotFound         = "not_found"
	OutcomeFailed           = "failed"
)

// InitPrometheus registers the metrics with the default registry. Safe to call more than once.
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, authRejections, taskCompletions)
	})
}

// MonitorMiddleware records request counts and latency by route template.
func MonitorMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := ctx.Writer.Status()

		httpRequestsTotal.WithLabelValues(path, ctx.Request.Method, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(path, ctx.Request.Method).Observe(time.Since(start).Seconds())

		switch status {
		case 401:
			authRejections.WithLabelValues("401_unauthorized").Inc()
		case 403:
			authRejections.WithLabelValues("403_forbidden").Inc()
		}
	}
}

// ObserveCompletion counts one completion attempt by outcome.
func ObserveCompletion(outcome string) {
	taskCompletions.WithLabelValues(outcome).Inc()
}

// MetricsHandler exposes the default registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
