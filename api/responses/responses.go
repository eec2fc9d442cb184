// Package responses writes the JSON envelopes every endpoint uses.
package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
	"github.com/printforge/quickorder-backend/pkg/logger"
	"github.com/printforge/quickorder-backend/pkg/types"
)

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.SuccessEnvelope{Data: data})
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps an error to its HTTP representation. Typed errors carry
// their own code and status; anything else becomes an opaque 500.
func Error(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	payload := types.APIError{
		Code:    string(typed.Code()),
		Message: typed.Message(),
	}
	if payload.Message == "" {
		payload.Message = meta.PublicMessage
	}
	if meta.DetailsAllowed {
		payload.Details = typed.Details()
	}

	if logg != nil {
		switch {
		case meta.HTTPStatus >= http.StatusInternalServerError:
			logg.Error(logg.WithField(ctx, "error_dump", pkgerrors.Dump(err)), "request failed", err)
		case typed.Code() == pkgerrors.CodeDependency:
			logg.Error(ctx, "dependency failure", err)
		default:
			logg.Warn(ctx, typed.Error())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(meta.HTTPStatus)
	_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{Error: payload})
}
