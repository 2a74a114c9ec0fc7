package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/fatih/color"
)

var (
	okColor       = color.New(color.FgGreen)
	redirectColor = color.New(color.FgCyan)
	clientColor   = color.New(color.FgYellow)
	serverColor   = color.New(color.FgRed)
)

// Logger logs every request with its status and duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrapper to capture the status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		statusColor(wrapped.statusCode).Printf("[API] %s %s - Status: %d - Duration: %v\n",
			r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return serverColor
	case code >= 400:
		return clientColor
	case code >= 300:
		return redirectColor
	}
	return okColor
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
