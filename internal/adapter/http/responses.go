package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// Client-facing messages.
const (
	ErrMsgMissingFarmer    = "Missing X-Farmer-ID header"
	ErrMsgInvalidRequest   = "Invalid request body"
	ErrMsgValidationFailed = "Invalid request"
	ErrMsgInvalidLimit     = "Invalid limit parameter"
	ErrMsgInvalidBool      = "Invalid %s parameter"
	ErrMsgServerError      = "Something went wrong"

	MsgETCLComputed        = "ETCL computed successfully"
	MsgSnapshotsFetched    = "Risk snapshots fetched successfully"
	MsgCropAdded           = "Crop added successfully"
	MsgCropsFetched        = "Crops fetched successfully"
	MsgCropFetched         = "Crop fetched successfully"
	MsgCropStageUpdated    = "Crop stage updated successfully"
	MsgDefinitionsFetched  = "Crop definitions fetched successfully"
	MsgDefinitionFetched   = "Crop definition fetched successfully"
	MsgNotificationsListed = "Notifications fetched successfully"
	MsgNotificationRead    = "Notification marked as read"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// DataResponse wraps a successful payload.
type DataResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// SuccessResponse is a payload-free success.
type SuccessResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode json response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError maps domain error classes to 400 and 404. Anything else
// is logged and reported as a generic 500.
func (h *handlers) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, userMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrBadRequest):
		respondError(w, http.StatusBadRequest, userMessage(err, domain.ErrBadRequest))
	default:
		h.logger.ErrorContext(r.Context(), op+" failed", "error", err, "farmer_id", farmerID(r))
		respondError(w, http.StatusInternalServerError, ErrMsgServerError)
	}
}

// userMessage strips wrapping context and the class prefix, leaving the
// domain message ("crop not found for this farmer").
func userMessage(err, class error) string {
	msg := err.Error()
	prefix := class.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
