// Package health aggregates named liveness probes behind one endpoint.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Overall status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// ProbeFunc checks one dependency. A nil error means healthy.
type ProbeFunc func(ctx context.Context) error

// Check is one registered probe.
type Check struct {
	Name     string
	URL      string // informational, where the probe points
	Timeout  time.Duration
	Probe    ProbeFunc
	Critical bool
}

// Status is the aggregate health report.
type Status struct {
	Status      string            `json:"status"`
	Connections map[string]string `json:"connections"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Registry holds registered probes. Components register themselves at
// startup; the HTTP handler runs every probe per request.
type Registry struct {
	mu     sync.RWMutex
	checks []Check
	log    *zap.SugaredLogger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{log: log}
}

// Register adds a probe. A critical probe failing marks the whole
// service down; a non-critical one only degrades it.
func (r *Registry) Register(name, url string, timeout time.Duration, probe ProbeFunc, critical bool) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	r.mu.Lock()
	r.checks = append(r.checks, Check{
		Name:     name,
		URL:      url,
		Timeout:  timeout,
		Probe:    probe,
		Critical: critical,
	})
	r.mu.Unlock()
}

// Check runs every registered probe and aggregates the result.
func (r *Registry) Check(ctx context.Context) Status {
	r.mu.RLock()
	checks := make([]Check, len(r.checks))
	copy(checks, r.checks)
	r.mu.RUnlock()

	status := Status{
		Status:      StatusOK,
		Connections: make(map[string]string, len(checks)),
		Timestamp:   time.Now().UTC(),
	}

	for _, c := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		err := c.Probe(probeCtx)
		cancel()

		if err == nil {
			status.Connections[c.Name] = StatusOK
			continue
		}

		status.Connections[c.Name] = err.Error()
		r.log.Warnw("health probe failed",
			"name", c.Name,
			"url", c.URL,
			"critical", c.Critical,
			"error", err,
		)

		if c.Critical {
			status.Status = StatusDown
		} else if status.Status != StatusDown {
			status.Status = StatusDegraded
		}
	}

	return status
}

// Handler serves the aggregate status as JSON. Critical failures return
// 503 so load balancers stop routing; degraded still returns 200.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		status := r.Check(req.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if err := json.NewEncoder(w).Encode(status); err != nil {
			r.log.Errorw("encode health status", "error", err)
		}
	})
}
