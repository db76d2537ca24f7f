package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

// requireAction runs the handler only when the policy lets the context user perform `action`.
func requireAction(policy authz.Policy, action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if err = policy.Check(usr, action); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
					status = herr.Code
				} else if !ctx.Response().Committed {
					status = 0 // decided by the error handler
				}
			}
			route := ctx.Path()
			method := ctx.Request().Method
			httpRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
