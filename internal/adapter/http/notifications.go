package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly, err := queryBool(r, "unreadOnly", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryLimit(r, defaultNotificationLimit, maxNotificationLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	notes, err := h.svc.Notifications.ListNotifications(r.Context(), farmerID(r), unreadOnly, limit)
	if err != nil {
		h.respondServiceError(w, r, "list notifications", err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgNotificationsListed, Data: notes})
}

func (h *handlers) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Notifications.MarkRead(r.Context(), farmerID(r), chi.URLParam(r, "notificationID"))
	if err != nil {
		h.respondServiceError(w, r, "mark notification read", err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgNotificationRead})
}
