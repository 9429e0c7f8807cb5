package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"
	"trendsetter/monitoring"
)

type ServerMiddleware struct {
	handler http.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack keeps websocket upgrades working through the wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (m *ServerMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/metrics" {
		m.handler.ServeHTTP(w, r)
		return
	}

	monitoring.ActiveConnections.Inc()
	defer monitoring.ActiveConnections.Dec()

	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	m.handler.ServeHTTP(recorder, r)

	// Labelled by the matched route pattern, not the raw path with ids
	path := r.Pattern
	if path == "" {
		path = "unmatched"
	}
	monitoring.HttpRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	monitoring.HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(recorder.status)).Inc()
}

func NewServerMiddleware(handlerToWrap http.Handler) *ServerMiddleware {
	return &ServerMiddleware{handlerToWrap}
}

// Instrument adapts NewServerMiddleware to the func(http.Handler) http.Handler shape.
func Instrument(next http.Handler) http.Handler {
	return NewServerMiddleware(next)
}
