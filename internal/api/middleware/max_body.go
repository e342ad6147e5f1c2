package middleware

import (
	"net/http"

	"github.com/cadenlabs/brandgov/internal/api"
)

// MaxBodyBytes caps request body size. The limit is sized for multipart
// audit image uploads, the largest bodies this API accepts.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Declared length lets us refuse early; MaxBytesReader
			// still guards chunked bodies that lie about it.
			if r.ContentLength > limit && r.ContentLength != -1 {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
