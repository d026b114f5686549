package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convergence/internal/config"
)

func TestServer_Health(t *testing.T) {
	t.Run("ok when no health func is set", func(t *testing.T) {
		s := New(zap.NewNop(), config.ServerConfig{Port: 9090, ShutdownTimeout: time.Second}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		s.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reports 503 when health func errors", func(t *testing.T) {
		s := New(zap.NewNop(), config.ServerConfig{Port: 9090, ShutdownTimeout: time.Second}, func() error {
			return errors.New("temporal client not connected")
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		s.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	s := New(zap.NewNop(), config.ServerConfig{Port: 9090, ShutdownTimeout: time.Second}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}
