package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/jpapi/internal/catalog"
	"github.com/good-yellow-bee/jpapi/internal/metrics"
)

// unmatchedRoute labels requests no route matched, so unknown paths share one series.
const unmatchedRoute = "unmatched"

var entityNames = map[string]bool{
	catalog.PeopleGroups: true,
	catalog.Countries:    true,
	catalog.Languages:    true,
	catalog.Resources:    true,
}

// PrometheusMiddleware records request counts and latency per route and entity.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		entity := routeEntity(route)

		metrics.HTTPRequestsTotal.WithLabelValues(route, entity, strconv.Itoa(rw.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, entity).Observe(time.Since(start).Seconds())
	})
}

// routeEntity names the dataset entity a route pattern serves, or "none".
// The innermost entity wins: /v1/languages/{id}/resources.{format} is resources.
func routeEntity(route string) string {
	segments := strings.Split(strings.Trim(route, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		name, _, _ := strings.Cut(segments[i], ".")
		if entityNames[name] {
			return name
		}
	}
	return "none"
}
