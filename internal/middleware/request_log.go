package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yogastudio/internal/logger"
)

// IsWebSocketUpgrade reports a websocket handshake; such requests must reach
// the upgrader with the original http.Hijacker intact.
func IsWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func requestLabel(r *http.Request, status int) string {
	return "http " + r.Method + " " + r.URL.Path + " status=" + strconv.Itoa(status)
}

// RequestLog records method, path, status and duration. Slow requests are
// logged at info level, 5xx answers always as errors.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if IsWebSocketUpgrade(r) {
			defer logger.DeferLogDuration("ws "+r.URL.Path, start)()
			next.ServeHTTP(w, r)
			return
		}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusInternalServerError {
			logger.Errorf("%s duration_ms=%d", requestLabel(r, status), time.Since(start).Milliseconds())
			return
		}
		logger.LogDuration(requestLabel(r, status), start)
	})
}
