package web

import (
	"net/http"
	"net/url"
	"time"

	appLog "wodcal/internal/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests emits one line per request. Tokens never reach the log.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started).Round(time.Millisecond),
		}
		if r.URL.RawQuery != "" {
			kv = append(kv, "query", redactToken(r.URL.RawQuery))
		}
		if rec.status >= http.StatusInternalServerError {
			appLog.Warn("http request", kv...)
			return
		}
		appLog.Info("http request", kv...)
	})
}

// redactToken masks the token query parameter.
func redactToken(rawQuery string) string {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "(unparseable)"
	}
	if _, ok := q["token"]; ok {
		q.Set("token", "REDACTED")
	}
	return q.Encode()
}
