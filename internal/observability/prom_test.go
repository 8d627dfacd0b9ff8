package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestGinHandleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm(prometheus.NewRegistry())

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/api/appointments/:id", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.GET("/healthz", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	for _, path := range []string{"/api/appointments/1", "/api/appointments/2", "/healthz", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/api/appointments/:id", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	// the two series read above, nothing for /healthz
	require.Equal(t, 2, testutil.CollectAndCount(p.RequestsTotal))
}

func TestObserveAuthAndRateLimited(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveAuth("login", "failure")
	p.ObserveAuth("login", "failure")
	p.ObserveRateLimited("auth")

	require.Equal(t, 2.0, testutil.ToFloat64(p.AuthEvents.WithLabelValues("login", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.RateLimitedTotal.WithLabelValues("auth")))
}
