package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

func okPing(context.Context) error   { return nil }
func failPing(context.Context) error { return errors.New("connection refused") }

type HealthCheckTestSuite struct {
	suite.Suite
	hc     *HealthCheck
	router *gin.Engine
}

func (s *HealthCheckTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.hc = New("1.2.3", zaptest.NewLogger(s.T()))
	s.hc.SetCacheTTL(0)
	s.router = gin.New()
	s.router.GET("/health", s.hc.Handler())
	s.router.GET("/ready", s.hc.ReadinessHandler())
	s.router.GET("/live", s.hc.LivenessHandler())
}

func (s *HealthCheckTestSuite) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (s *HealthCheckTestSuite) TestAllHealthy() {
	// Arrange
	s.hc.Register("graph", NewPingChecker(okPing, true, time.Second))
	s.hc.Register("cache", NewPingChecker(okPing, false, time.Second))

	// Act
	w := s.get("/health")

	// Assert
	s.Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("healthy", body["status"])
	s.Equal("1.2.3", body["version"])
	checks := body["checks"].([]interface{})
	s.Require().Len(checks, 2)
	s.Equal("cache", checks[0].(map[string]interface{})["name"])
	s.Equal("graph", checks[1].(map[string]interface{})["name"])

	s.Equal(http.StatusOK, s.get("/ready").Code)
}

func (s *HealthCheckTestSuite) TestOptionalFailureDegrades() {
	s.hc.Register("graph", NewPingChecker(okPing, true, time.Second))
	s.hc.Register("cache", NewPingChecker(failPing, false, time.Second))

	resp := s.hc.Check(context.Background())

	s.Equal(StatusDegraded, resp.Status)
	s.Equal([]string{"cache"}, resp.Degraded)
	s.True(resp.Ready())
	s.Equal(http.StatusOK, s.get("/health").Code)

	w := s.get("/ready")
	s.Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("ready", body["status"])
	s.Equal([]interface{}{"cache"}, body["degraded"])
}

func (s *HealthCheckTestSuite) TestCriticalFailureIsUnhealthy() {
	s.hc.Register("graph", NewPingChecker(failPing, true, time.Second))

	resp := s.hc.Check(context.Background())

	s.Equal(StatusUnhealthy, resp.Status)
	s.Require().Len(resp.Checks, 1)
	s.Equal("connection refused", resp.Checks[0].Message)
	s.Equal(http.StatusServiceUnavailable, s.get("/health").Code)
	s.Equal(http.StatusServiceUnavailable, s.get("/ready").Code)
}

func (s *HealthCheckTestSuite) TestLivenessIgnoresDependencies() {
	s.hc.Register("graph", NewPingChecker(failPing, true, time.Second))

	s.Equal(http.StatusOK, s.get("/live").Code)
}

func (s *HealthCheckTestSuite) TestPingTimeout() {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	s.hc.Register("inference", NewPingChecker(slow, true, 20*time.Millisecond))

	resp := s.hc.Check(context.Background())

	s.Equal(StatusUnhealthy, resp.Status)
}

func (s *HealthCheckTestSuite) TestResponseIsCached() {
	// Arrange
	calls := 0
	s.hc.SetCacheTTL(time.Minute)
	s.hc.Register("graph", NewPingChecker(func(context.Context) error {
		calls++
		return nil
	}, true, time.Second))

	// Act
	s.hc.Check(context.Background())
	s.hc.Check(context.Background())

	// Assert
	s.Equal(1, calls)
}

func TestHealthCheckSuite(t *testing.T) {
	suite.Run(t, new(HealthCheckTestSuite))
}

func TestCheck_MarshalJSONUsesMilliseconds(t *testing.T) {
	data, err := json.Marshal(Check{Name: "x", Status: StatusHealthy, Duration: 1500 * time.Millisecond})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 1500.0, out["duration_ms"])
}
