package quickorder

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/api/validators"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/types"
)

// ComputePrice quotes the pipeline as currently configured.
func ComputePrice(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		price, err := orch.ComputePrice(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, price)
	}
}

// SetAddress stores the delivery address; a live price reprices in the
// background.
func SetAddress(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		var addr types.Address
		if err := validators.DecodeJSON(r, &addr); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		orch.SetAddress(addr)
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

// WalletBalance reports the session's available store credit.
func WalletBalance(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		balance, err := orch.WalletBalance(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, map[string]float64{"balance": balance})
	}
}
