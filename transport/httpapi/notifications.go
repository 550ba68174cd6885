package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type NotificationsHandler struct {
	Inbox Inbox
}

type notificationView struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// List hands out the caller's unsent notifications and marks them sent.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	events, err := h.Inbox.Pending(r.Context(), u.ID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", u.ID).Msg("poll notifications")
		jsonError(w, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}

	views := make([]notificationView, 0, len(events))
	for _, ev := range events {
		views = append(views, notificationView{
			ID:        ev.ID,
			Message:   ev.Message,
			CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"notifications": views,
		"count":         len(views),
	})
}
