// Package controllers holds the top-level HTTP handlers that do not
// belong to the quick-order pipeline itself.
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/printforge/quickorder-backend/api/responses"
)

// Pinger is the health surface shared by the datastores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Live reports process liveness.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Ready reports readiness by pinging every registered dependency.
func Ready(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{}
		for name, p := range deps {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		responses.JSON(w, status, checks)
	}
}
