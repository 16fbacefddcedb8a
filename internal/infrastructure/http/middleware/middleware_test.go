package middleware

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alchemorsel/vitaplan/internal/infrastructure/config"
	"github.com/alchemorsel/vitaplan/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

type MiddlewareTestSuite struct {
	suite.Suite
	cfg *config.Config
}

func (s *MiddlewareTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.cfg = &config.Config{
		Server: config.ServerConfig{
			EnableCORS:     true,
			AllowedOrigins: []string{"https://app.example.com"},
		},
		RateLimit: config.RateLimitConfig{
			Enable:         true,
			RequestsPerMin: 60,
			BurstSize:      2,
		},
		Monitoring: config.MonitoringConfig{HealthCheckPath: "/health"},
	}
}

func (s *MiddlewareTestSuite) router(register func(r *gin.Engine)) *gin.Engine {
	m := New(s.cfg, zaptest.NewLogger(s.T()))
	r := gin.New()
	r.Use(m.RequestID(), m.Logger(), m.Recovery(), m.CORS(), m.RateLimit(), m.ErrorHandler())
	register(r)
	return r
}

func (s *MiddlewareTestSuite) do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *MiddlewareTestSuite) TestRequestIDGeneratedAndEchoed() {
	r := s.router(func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	})

	w := s.do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	s.NotEmpty(w.Header().Get("X-Request-ID"))
	s.Equal(w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = s.do(r, req)
	s.Equal("abc-123", w.Header().Get("X-Request-ID"))
}

func (s *MiddlewareTestSuite) TestErrorHandlerRendersAppError() {
	// Arrange
	r := s.router(func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) {
			_ = c.Error(errors.NewRetrievalUnavailableError(stderrors.New("dial tcp")))
		})
	})

	// Act
	w := s.do(r, httptest.NewRequest(http.MethodGet, "/x", nil))

	// Assert
	s.Equal(http.StatusServiceUnavailable, w.Code)
	var resp errors.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(errors.CodeRetrievalUnavailable, resp.Error.Code)
	s.NotEmpty(resp.Error.RequestID)
}

func (s *MiddlewareTestSuite) TestErrorHandlerWrapsPlainErrors() {
	r := s.router(func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) { _ = c.Error(stderrors.New("boom")) })
	})

	w := s.do(r, httptest.NewRequest(http.MethodGet, "/x", nil))

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Contains(w.Body.String(), string(errors.CodeInternal))
	s.NotContains(w.Body.String(), "boom")
}

func (s *MiddlewareTestSuite) TestRecovery() {
	r := s.router(func(r *gin.Engine) {
		r.GET("/panic", func(c *gin.Context) { panic("unexpected") })
	})

	w := s.do(r, httptest.NewRequest(http.MethodGet, "/panic", nil))

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Contains(w.Body.String(), string(errors.CodeInternal))
}

func (s *MiddlewareTestSuite) TestCORS() {
	r := s.router(func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := s.do(r, req)
	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = s.do(r, req)
	s.Equal(http.StatusOK, w.Code)
	s.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}

func (s *MiddlewareTestSuite) TestRateLimitPerClient() {
	// Arrange
	r := s.router(func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	})
	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		return s.do(r, req).Code
	}

	// Act / Assert: burst of two, then throttled
	s.Equal(http.StatusOK, request("10.0.0.1"))
	s.Equal(http.StatusOK, request("10.0.0.1"))
	s.Equal(http.StatusTooManyRequests, request("10.0.0.1"))
	s.Equal(http.StatusOK, request("10.0.0.2"))
}

func (s *MiddlewareTestSuite) TestRateLimitDisabled() {
	s.cfg.RateLimit.Enable = false
	r := s.router(func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	for i := 0; i < 5; i++ {
		s.Equal(http.StatusOK, s.do(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}

func TestClientLimiters_Bounded(t *testing.T) {
	l := &clientLimiters{limit: 1, burst: 0, limiters: make(map[string]*rate.Limiter)}

	first := l.get("10.0.0.1")
	require.Same(t, first, l.get("10.0.0.1"))
	assert.Equal(t, 1, first.Burst())

	for i := 0; i < maxTrackedClients; i++ {
		l.get(fmt.Sprintf("client-%d", i))
	}
	assert.LessOrEqual(t, len(l.limiters), maxTrackedClients)
}
