package httpx

import (
	"errors"
	"net/http"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Consistency violations surface as 409 so clients can distinguish
// state conflicts from bad input.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrConsistency):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
