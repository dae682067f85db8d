package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/quotebot/core/config"
)

func TestNewServerDisabled(t *testing.T) {
	assert.Nil(t, NewServer(coreconfig.MetricsConfig{}))
	var s *Server
	assert.NoError(t, s.Start())
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestServerMetricsAndHealth(t *testing.T) {
	healthy := true
	s := NewServer(coreconfig.MetricsConfig{Listen: "127.0.0.1:0", Path: "/metrics"}, HealthCheck{
		Name: "db",
		Check: func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("down")
		},
	})
	require.NotNil(t, s)

	UpdatesTotal.WithLabelValues("message").Inc()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "quotebot_tg_updates_total"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db: down")
}
