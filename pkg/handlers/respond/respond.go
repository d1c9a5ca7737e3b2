// Package respond writes JSON responses and translates core errors into HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// retryAfterSeconds is sent with retryable internal errors.
const retryAfterSeconds = "1"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Amounts travel as decimal strings.
		_ = validate.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && d.IsPositive()
		})
	})
	return validate
}

// Decode reads a JSON body into dst and runs its validate tags.
// The returned error is always InvalidInput.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.New(apperrors.InvalidInput, "request body is required")
		}
		return apperrors.Wrap(apperrors.InvalidInput, err, "invalid request body")
	}
	if err := validatorInstance().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
			}
			return apperrors.New(apperrors.InvalidInput, "invalid request: %s", strings.Join(fields, "; "))
		}
		return apperrors.Wrap(apperrors.InvalidInput, err, "invalid request")
	}
	return nil
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Error writes err as an api.Error with the status its kind maps to.
// Internal errors are logged and their detail is not sent to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status := StatusFor(kind)
	message := err.Error()

	if kind == apperrors.Internal {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
		if apperrors.IsRetryable(err) {
			w.Header().Set("Retry-After", retryAfterSeconds)
			message = "temporarily unavailable, retry the request"
		}
	}

	JSON(w, status, api.Error{Code: kind.String(), Message: message})
}

// ParamError is the api.ChiServerOptions ErrorHandlerFunc: malformed or missing
// path, query and header parameters are client errors.
func ParamError(w http.ResponseWriter, r *http.Request, err error) {
	Error(w, r, apperrors.Wrap(apperrors.InvalidInput, err, "invalid parameters"))
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.InvalidInput:
		return http.StatusBadRequest
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.PreconditionFailed:
		return http.StatusPreconditionFailed
	case apperrors.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
