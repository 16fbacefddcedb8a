// Package healthcheck provides health, readiness and liveness probes.
//
// Dependencies are registered as checkers. A failing critical dependency
// makes the service unhealthy and not ready; a failing optional one only
// degrades it.
package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check is the outcome of one dependency probe
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Critical    bool          `json:"critical"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// Response is the aggregated probe result
type Response struct {
	Status        Status        `json:"status"`
	Version       string        `json:"version"`
	Timestamp     time.Time     `json:"timestamp"`
	Checks        []Check       `json:"checks"`
	Degraded      []string      `json:"degraded,omitempty"`
	TotalDuration time.Duration `json:"total_duration_ms"`
}

// Ready reports whether the service can take traffic
func (r Response) Ready() bool {
	return r.Status != StatusUnhealthy
}

// Checker probes one dependency
type Checker interface {
	Check(ctx context.Context) Check
}

// HealthCheck runs the registered checkers and caches the last response
type HealthCheck struct {
	version  string
	checkers map[string]Checker
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	cache    *Response
	cacheTTL time.Duration
}

// New creates a new health check instance
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		checkers: make(map[string]Checker),
		logger:   logger.Named("healthcheck"),
		now:      time.Now,
		cacheTTL: 5 * time.Second,
	}
}

// Register adds a checker under name, replacing any previous one
func (h *HealthCheck) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
	h.cache = nil
}

// SetCacheTTL sets how long a response is reused; zero disables caching
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
	h.cache = nil
}

// Handler serves the full report. Only an unhealthy service answers 503.
func (h *HealthCheck) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.Check(c.Request.Context())
		c.JSON(statusCode(response), response)
	}
}

// LivenessHandler answers as long as the process serves requests
func (h *HealthCheck) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": h.now(),
		})
	}
}

// ReadinessHandler answers 200 while every critical dependency is up.
// Degraded optional dependencies are listed but do not fail readiness.
func (h *HealthCheck) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.Check(c.Request.Context())

		if !response.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"checks": response.Checks,
			})
			return
		}

		body := gin.H{
			"status":    "ready",
			"timestamp": response.Timestamp,
		}
		if len(response.Degraded) > 0 {
			body["degraded"] = response.Degraded
		}
		c.JSON(http.StatusOK, body)
	}
}

// Check runs every checker concurrently. Results are ordered by name.
func (h *HealthCheck) Check(ctx context.Context) Response {
	h.mu.RLock()
	if h.cache != nil && h.now().Sub(h.cache.Timestamp) < h.cacheTTL {
		cached := *h.cache
		h.mu.RUnlock()
		return cached
	}
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make([]Checker, len(names))
	sort.Strings(names)
	for i, name := range names {
		checkers[i] = h.checkers[name]
	}
	h.mu.RUnlock()

	start := h.now()
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	checks := make([]Check, len(names))
	var wg sync.WaitGroup
	for i := range checkers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			check := checkers[i].Check(checkCtx)
			check.Name = names[i]
			checks[i] = check
		}(i)
	}
	wg.Wait()

	response := aggregate(checks)
	response.Version = h.version
	response.Timestamp = start
	response.TotalDuration = h.now().Sub(start)

	if response.Status != StatusHealthy {
		h.logger.Warn("Health check not healthy",
			zap.String("status", string(response.Status)),
			zap.Strings("degraded", response.Degraded),
		)
	}

	h.mu.Lock()
	h.cache = &response
	h.mu.Unlock()

	return response
}

func aggregate(checks []Check) Response {
	response := Response{Status: StatusHealthy, Checks: checks}
	for _, check := range checks {
		switch check.Status {
		case StatusUnhealthy:
			response.Status = StatusUnhealthy
		case StatusDegraded:
			response.Degraded = append(response.Degraded, check.Name)
			if response.Status == StatusHealthy {
				response.Status = StatusDegraded
			}
		}
	}
	return response
}

func statusCode(r Response) int {
	if r.Status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// PingChecker reports a dependency as healthy when ping succeeds
type PingChecker struct {
	ping     func(ctx context.Context) error
	critical bool
	timeout  time.Duration
}

// NewPingChecker creates a checker around ping. A failed critical
// dependency is unhealthy, a failed optional one degraded.
func NewPingChecker(ping func(ctx context.Context) error, critical bool, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PingChecker{
		ping:     ping,
		critical: critical,
		timeout:  timeout,
	}
}

// Check performs the ping
func (p *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		Status:      StatusHealthy,
		Critical:    p.critical,
		LastChecked: start,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.ping(ctx); err != nil {
		check.Status = StatusDegraded
		if p.critical {
			check.Status = StatusUnhealthy
		}
		check.Message = err.Error()
	}

	check.Duration = time.Since(start)
	return check
}

// MarshalJSON reports the duration in milliseconds
func (c Check) MarshalJSON() ([]byte, error) {
	type alias Check
	return json.Marshal(&struct {
		Duration float64 `json:"duration_ms"`
		*alias
	}{
		Duration: float64(c.Duration.Microseconds()) / 1000,
		alias:    (*alias)(&c),
	})
}

// MarshalJSON reports the total duration in milliseconds
func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	return json.Marshal(&struct {
		TotalDuration float64 `json:"total_duration_ms"`
		*alias
	}{
		TotalDuration: float64(r.TotalDuration.Microseconds()) / 1000,
		alias:         (*alias)(&r),
	})
}
