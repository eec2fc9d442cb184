// Package validators decodes and validates request bodies.
package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/printforge/quickorder-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSON parses the request body into dst and runs struct
// validation. Unknown fields are rejected to catch client drift early.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validating request")
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(fieldErrors(err))
	}
	return nil
}

func fieldErrors(err error) map[string]string {
	details := map[string]string{}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		for _, fe := range fields {
			details[strings.ToLower(fe.Field())] = fmt.Sprintf("failed %q validation", fe.Tag())
		}
	}
	return details
}
