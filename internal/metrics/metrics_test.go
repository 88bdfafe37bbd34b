package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ConnectionOpened()
	r.Event("photo", true)
	r.PhotoAccepted(10)
	assert.Nil(t, r.Registry())

	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	assert.NotNil(t, h)
}

func TestCounters(t *testing.T) {
	r := New()
	r.ConnectionOpened()
	r.ConnectionOpened()
	r.ConnectionClosed()
	r.Event("photo", true)
	r.Event("photo", false)
	r.Event("photo", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("photo", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("photo", "rejected")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	rec := New()
	router := chi.NewRouter()
	router.Use(rec.Middleware)
	router.Get("/teams", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	router.Get("/metrics", rec.Handler().ServeHTTP)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teams?token=x", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.requests.WithLabelValues("/teams", "GET", "418")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "towerman_http_requests_total"))
}
