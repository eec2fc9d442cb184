package quickorder

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/api/validators"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

// State renders the whole pipeline for the client.
func State(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

type goToStepRequest struct {
	Step string `json:"step" validate:"required"`
}

// GoToStep navigates the pipeline to a stage.
func GoToStep(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		var body goToStepRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.GoToStep(pipeline.Step(body.Step)); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}
