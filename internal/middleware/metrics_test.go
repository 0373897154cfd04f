package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/learnify-api/internal/service"
)

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metricsSvc := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metricsSvc, "/metrics"))
	router.GET("/courses/:id/view", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	for _, path := range []string{"/courses/c1/view", "/courses/c2/view", "/courses/c3/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	rec := httptest.NewRecorder()
	metricsSvc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/courses/:id/view",status="200"} 2`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.NotContains(t, body, `path="/metrics"`)
	assert.NotContains(t, body, `path="/courses/c3/missing"`)
}

func TestMetricsWithoutService(t *testing.T) {
	router := newTestRouter(Metrics(nil))
	assert.Equal(t, http.StatusOK, serve(router, "").Code)
}
