package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveReadiness(t *testing.T, checks map[string]HealthCheck) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.GET("/health/ready", NewHandler(prometheus.NewRegistry(), checks).ReadinessCheck)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	return w
}

func TestReadinessCheck_AllDependenciesUp(t *testing.T) {
	w := serveReadiness(t, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadinessCheck_FailingDependencyReported(t *testing.T) {
	w := serveReadiness(t, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status  string            `json:"status"`
		Failing map[string]string `json:"failing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Contains(t, body.Failing, "redis")
	assert.NotContains(t, body.Failing, "database")
}
