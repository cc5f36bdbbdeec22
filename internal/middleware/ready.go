package middleware

import (
	"encoding/json"
	"net/http"
)

// ReadinessChecker reports whether the backing store is connected.
type ReadinessChecker interface {
	Ready() bool
}

// RequireReady gates store-dependent routes. The store connects in the
// background after startup, so requests (including Stripe webhook deliveries)
// can arrive before it is usable; 503 tells the caller to retry.
func RequireReady(checker ReadinessChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checker.Ready() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"message": "store not ready, retry later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
