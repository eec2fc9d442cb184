package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/printforge/quickorder-backend/api/responses"
	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/session"
)

type sessionIDKey struct{}

// Session requires a valid guest token on every pipeline route and
// stores the session id on the context.
func Session(mgr *session.Manager, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.Error(r.Context(), w, logg,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "session token required"))
				return
			}
			sessionID, err := mgr.Parse(token)
			if err != nil {
				responses.Error(r.Context(), w, logg,
					pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token"))
				return
			}
			ctx := context.WithValue(r.Context(), sessionIDKey{}, sessionID)
			ctx = logg.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// SessionIDFrom returns the session id stored by the middleware.
func SessionIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}
