package middleware

import (
	"net/http"
	"strings"

	"github.com/tablewise-app/tablewise-backend/api/responses"
	"github.com/tablewise-app/tablewise-backend/internal/identity"
	"github.com/tablewise-app/tablewise-backend/pkg/config"
	pkgerrors "github.com/tablewise-app/tablewise-backend/pkg/errors"
	"github.com/tablewise-app/tablewise-backend/pkg/logger"
)

// Auth resolves the optional bearer token. The cart works anonymously, so a
// missing token passes through untouched; a token that is present but invalid
// is rejected rather than silently downgraded to anonymous.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" || token == header {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed authorization header"))
				return
			}

			userID, err := identity.ResolveToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
