package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// WebhookAuth guards the administrator callback endpoints. Each inbound
// request must carry the shared webhook secret; only its bcrypt hash is held
// in memory. An empty hash disables the check for local development.
func WebhookAuth(secretHash []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secretHash) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			secret := r.Header.Get("X-Webhook-Secret")
			if secret == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(secretHash, []byte(secret)); err != nil {
				logger.WarnContext(r.Context(), "webhook secret mismatch",
					"request_id", GetRequestID(r.Context()),
					"remote", r.RemoteAddr,
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
