package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"trendsetter/monitoring"
	"trendsetter/monitoring/middleware"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestServerMiddlewareLabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := middleware.Instrument(mux)

	matched := monitoring.HttpRequestsTotal.WithLabelValues("GET /items/{id}", "418")
	unmatched := monitoring.HttpRequestsTotal.WithLabelValues("unmatched", "404")
	matchedBefore := testutil.ToFloat64(matched)
	unmatchedBefore := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, matchedBefore+2, testutil.ToFloat64(matched))
	require.Equal(t, unmatchedBefore+1, testutil.ToFloat64(unmatched))
}

func TestServerMiddlewareSkipsMetrics(t *testing.T) {
	handler := middleware.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	counter := monitoring.HttpRequestsTotal.WithLabelValues("unmatched", "200")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, before, testutil.ToFloat64(counter))
}
