package httpx

import (
	"errors"
	"net/http"

	"github.com/smartexpense/smartexpense/internal/shared"
)

// RespondError maps domain errors to HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	switch {
	case errors.As(err, &vErr):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: "Validation failed", Message: vErr.Error(), Details: vErr.Fields})
	case errors.Is(err, shared.ErrValidation):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: "Validation failed", Message: err.Error()})
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, shared.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, "Not authorized")
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, "Not authorized to access this resource")
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, shared.ErrDuplicateEmail):
		Error(w, http.StatusConflict, "Email already registered")
	default:
		body := ErrorBody{Error: "Server error"}
		if err != nil {
			body.Message = err.Error()
		}
		var persistErr *shared.PersistenceError
		if errors.As(err, &persistErr) {
			body.Details = persistErr.Fields
		}
		JSON(w, http.StatusInternalServerError, body)
	}
}
