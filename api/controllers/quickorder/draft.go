package quickorder

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

type pendingDraftResponse struct {
	Pending bool            `json:"pending"`
	Draft   *pipeline.Draft `json:"draft,omitempty"`
}

// PendingDraft reports whether a saved draft is waiting for this
// session. The first call consumes the prompt.
func PendingDraft(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		draft, err := orch.PendingDraft(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, pendingDraftResponse{
			Pending: draft != nil,
			Draft:   draft,
		})
	}
}

// ResumeDraft rehydrates the pipeline from the saved draft.
func ResumeDraft(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.ResumeSavedDraft(r.Context()); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

// DiscardDraft throws the saved draft away.
func DiscardDraft(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.DiscardDraft(r.Context()); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.NoContent(w)
	}
}

// FlushDraft saves the draft immediately, bypassing the debounce. The
// client calls this on page unload.
func FlushDraft(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.SaveDraft(r.Context()); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.NoContent(w)
	}
}
