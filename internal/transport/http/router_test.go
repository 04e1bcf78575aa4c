package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformmetrics "txguard/internal/platform/metrics"
	"txguard/pkg/platform/middleware/metadata"
	"txguard/pkg/requestcontext"
	"txguard/pkg/testutil"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

type echoModule struct{}

func (echoModule) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.RequestID(r.Context())))
	})
	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
}

func newTestRouter(checks map[string]HealthChecker) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewRouter(RouterConfig{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  platformmetrics.New(reg),
		Gatherer: reg,
		Checks:   checks,
	}, echoModule{}), reg
}

func TestRouterRequestID(t *testing.T) {
	router, _ := newTestRouter(nil)

	t.Run("propagates caller id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/echo", nil)
		req.Header.Set(metadata.HeaderRequestID, "req-42")
		rr := testutil.DoRequest(router, req)
		assert.Equal(t, "req-42", rr.Body.String())
		assert.Equal(t, "req-42", rr.Header().Get(metadata.HeaderRequestID))
	})

	t.Run("generates id when absent", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/echo", nil))
		assert.NotEmpty(t, rr.Body.String())
		assert.Equal(t, rr.Body.String(), rr.Header().Get(metadata.HeaderRequestID))
	})
}

func TestRouterUnknownRoutes(t *testing.T) {
	router, _ := newTestRouter(nil)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/nope", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/echo", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusMethodNotAllowed, "method_not_allowed")
}

func TestRouterRecoversPanics(t *testing.T) {
	router, _ := newTestRouter(nil)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRouterHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router, _ := newTestRouter(map[string]HealthChecker{
			"redis": checkFunc(func(context.Context) error { return nil }),
			"none":  nil,
		})
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, "ok", (*body)["status"])
		assert.Equal(t, "ok", (*body)["redis"])
	})

	t.Run("degraded", func(t *testing.T) {
		router, _ := newTestRouter(map[string]HealthChecker{
			"redis": checkFunc(func(context.Context) error { return errors.New("connection refused") }),
		})
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, "degraded", (*body)["status"])
		assert.Equal(t, "connection refused", (*body)["redis"])
	})
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(nil)
	testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/echo", nil))

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `txguard_http_requests_total{method="GET",route="/echo",status="200"} 1`))
}
