// Package quickorder exposes the per-session pipeline over HTTP. Every
// handler resolves the caller's orchestrator from the registry using
// the session middleware's id.
package quickorder

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/middleware"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
)

func orchestratorFor(registry *pipeline.Registry, r *http.Request) (*pipeline.Orchestrator, error) {
	sessionID := middleware.SessionIDFrom(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	orch, err := registry.Get(sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve pipeline")
	}
	return orch, nil
}
