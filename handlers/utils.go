package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"canon-router/errors"
	"canon-router/models"
)

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes a generic error response
func writeErrorResponse(w http.ResponseWriter, statusCode int, message, details string) {
	writeJSONResponse(w, statusCode, models.APIError{
		Type:    "error",
		Code:    http.StatusText(statusCode),
		Message: message,
		Details: details,
	})
}

// writeAppErrorResponse writes an AppError as an HTTP response
func writeAppErrorResponse(w http.ResponseWriter, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		writeJSONResponse(w, appErr.GetHTTPStatusCode(), models.APIError{
			Type:    string(appErr.Type),
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", err.Error())
}
