package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/yologdev/yocore/internal/errors"
)

// renderJSON writes data as a JSON response body.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes err as the JSON error envelope expects at
// every service surface. Internal error Details are never exposed.
func renderError(w http.ResponseWriter, err error) {
	var yerr *errors.YocoreError
	if !stderrors.As(err, &yerr) {
		yerr = errors.NewInternal(err)
	}

	errorObj := map[string]any{
		"code": string(yerr.Code),
		"message": yerr.Message,
		"status": yerr.Status,
	}
	if yerr.Code != errors.ErrInternal && yerr.Details != nil {
		errorObj["details"] = yerr.Details
	}

	renderJSON(w, httpStatus(yerr.Status), map[string]any{"error": errorObj})
}

// httpStatus clamps a YocoreError.Status to a valid HTTP status code.
// ErrConfig/ErrPortInUse carry CLI exit codes (2, 3), not HTTP statuses,
// in the error taxonomy; neither surfaces through this service surface,
// but the clamp keeps renderError total over the whole ErrorCode set.
func httpStatus(status int) int {
	if status < 100 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}
