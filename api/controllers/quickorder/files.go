package quickorder

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/api/validators"
	"github.com/printforge/quickorder-backend/internal/materials"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/internal/uploads"
	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

// UploadFile streams a model to the upload service and registers it on
// the pipeline with catalog-default settings.
func UploadFile(registry *pipeline.Registry, uploader *uploads.Client, catalog materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		if err := r.ParseMultipartForm(uploader.MaxBytes()); err != nil {
			responses.Error(r.Context(), w, logg,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.Error(r.Context(), w, logg,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field required"))
			return
		}
		defer file.Close()

		upload, err := uploader.Upload(r.Context(), header.Filename, header.Size, file)
		if err != nil {
			responses.Error(r.Context(), w, logg,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload file"))
			return
		}

		def, err := catalog.Default(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.AddUpload(upload, pipeline.DefaultSettings(def.ID)); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusCreated, orch.Snapshot())
	}
}

// RemoveFile drops a file and everything derived from it.
func RemoveFile(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.RemoveUpload(chi.URLParam(r, "fileID")); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

// UpdateSettings applies a partial settings change to one file.
func UpdateSettings(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		var patch pipeline.SettingsPatch
		if err := validators.DecodeJSON(r, &patch); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.UpdateSettings(chi.URLParam(r, "fileID"), patch); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

// ResetSettings restores one file to catalog defaults.
func ResetSettings(registry *pipeline.Registry, catalog materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		def, err := catalog.Default(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.ResetSettings(chi.URLParam(r, "fileID"), pipeline.DefaultSettings(def.ID)); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}
