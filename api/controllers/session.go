package controllers

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/session"
)

// StartSession mints a guest session token for a new browser.
func StartSession(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, sessionID, err := mgr.Issue()
		if err != nil {
			responses.Error(r.Context(), w, logg,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session"))
			return
		}
		responses.JSON(w, http.StatusCreated, map[string]string{
			"token":      token,
			"session_id": sessionID,
		})
	}
}
