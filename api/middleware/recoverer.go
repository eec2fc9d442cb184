package middleware

import (
	"fmt"
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

// Recoverer converts panics into 500 responses instead of dropped
// connections.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err := pkgerrors.Wrap(pkgerrors.CodeInternal,
						fmt.Errorf("panic: %v", rec), "request panicked")
					responses.Error(r.Context(), w, logg, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
