// Package requestid assigns a correlation ID to every request. Incoming
// X-Request-ID headers are trusted as-is (the gateway in front sets them);
// requests without one get a fresh UUID.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"coopaml/pkg/requestcontext"
)

const Header = "X-Request-ID"

// Middleware ensures the request carries a correlation ID, stores it in the
// context, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
