package quickorder

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/api/validators"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

type checkoutRequest struct {
	CreditRequested float64 `json:"credit_requested_amount" validate:"gte=0"`
}

// Checkout submits the order.
func Checkout(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		var body checkoutRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		result, err := orch.Checkout(r.Context(), pipeline.CheckoutParams{
			CreditRequested: body.CreditRequested,
		})
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, result)
	}
}
