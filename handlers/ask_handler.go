package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"canon-router/errors"
	"canon-router/models"
	"canon-router/services"
)

// AskHandler serves the query routing endpoint
type AskHandler struct {
	engine *services.RoutingEngine
}

// NewAskHandler creates an ask handler
func NewAskHandler(engine *services.RoutingEngine) *AskHandler {
	return &AskHandler{engine: engine}
}

// Ask handles POST /api/v1/ask. Refusals are successful responses with
// is_valid=false and a reason; only malformed input produces an error
// status.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeAppErrorResponse(w, errors.NewValidationError(errors.ErrCodeMissingField,
			"Required field is empty: question", nil))
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeAppErrorResponse(w, errors.NewValidationError(errors.ErrCodeMissingField,
			"Required field is empty: category", nil))
		return
	}

	result, err := h.engine.Route(r.Context(), req.Question, req.Category, req.Subcategory)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.AskResponse{
		Question: req.Question,
		Result:   *result,
	})
}
