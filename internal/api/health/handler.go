// Package health serves the process and dependency status endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/jpapi/pkg/config"
)

// readyTimeout bounds one readiness pass across all dependencies.
const readyTimeout = 5 * time.Second

// Checker is one dependency the API needs to answer requests.
type Checker interface {
	Name() string
	Backend() string
	Check(ctx context.Context) error
}

// Status values reported per dependency.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// Dependency is the readiness result of one Checker.
type Dependency struct {
	Status    string `json:"status"`
	Backend   string `json:"backend,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Report is the body of every health endpoint.
type Report struct {
	Status       string                `json:"status"`
	Version      string                `json:"version"`
	Dependencies map[string]Dependency `json:"dependencies,omitempty"`
}

// Handler serves /health, /health/live and /health/ready.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterChecker adds a dependency to the readiness report.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	h.checkers = append(h.checkers, c)
	h.mu.Unlock()
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeReport(w, http.StatusOK, Report{Status: "ok", Version: config.Version})
}

func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeReport(w, http.StatusOK, Report{Status: "live", Version: config.Version})
}

// Ready pings the dataset and the key store in parallel. Any dependency
// that is down makes the API not ready, since no /v1 request can succeed.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	h.mu.RLock()
	checkers := append([]Checker(nil), h.checkers...)
	h.mu.RUnlock()

	deps := checkAll(ctx, checkers)

	report := Report{Status: "ready", Version: config.Version, Dependencies: deps}
	status := http.StatusOK
	for _, d := range deps {
		if d.Status != StatusUp {
			report.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeReport(w, status, report)
}

func checkAll(ctx context.Context, checkers []Checker) map[string]Dependency {
	results := make([]Dependency, len(checkers))

	var g errgroup.Group
	for i, c := range checkers {
		i, c := i, c
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			d := Dependency{
				Status:    StatusUp,
				Backend:   c.Backend(),
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				d.Status = StatusDown
				d.Error = err.Error()
			}
			results[i] = d
			return nil
		})
	}
	_ = g.Wait()

	deps := make(map[string]Dependency, len(checkers))
	for i, c := range checkers {
		deps[c.Name()] = results[i]
	}
	return deps
}

func writeReport(w http.ResponseWriter, status int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}
