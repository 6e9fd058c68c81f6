package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tablewise-app/tablewise-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

// Session resolves the browsing session identifier. A client without one yet
// gets a fresh id, echoed back so it can be replayed on subsequent requests.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(sessionIDHeader)
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			w.Header().Set(sessionIDHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
