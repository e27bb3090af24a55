package middleware

import "net/http"

// NewMaxBodySizeHandler limits request bodies to limit bytes. A declared
// Content-Length above the limit is rejected with 413 before the next handler
// runs; bodies of unknown length are wrapped in http.MaxBytesReader so the
// read inside the handler fails once the limit is crossed.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(`{"code":"PAYLOAD_TOO_LARGE","message":"Request body too large"}`))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
