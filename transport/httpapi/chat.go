package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	"github.com/tanpawarit/kcartbot/marketplace/notify"
)

type ChatHandler struct {
	Conversation Conversation
	Inbox        Inbox
	now          func() time.Time
}

type chatRequest struct {
	Message string                     `json:"message"`
	History []contractx.HistoryMessage `json:"history"`
}

type chatResponse struct {
	Reply     string             `json:"reply"`
	Language  contractx.Language `json:"language"`
	Timestamp string             `json:"timestamp"`
}

type historyEntry struct {
	Sender      string `json:"sender"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	OrderID     string `json:"order_id,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Post runs one turn for the caller, who may be anonymous.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		jsonError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := h.Conversation.HandleMessage(r.Context(), actorFor(UserFrom(r.Context())), req.Message, req.History)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			jsonError(w, http.StatusBadRequest, "Message is required")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("handle chat message")
		jsonError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	jsonResponse(w, http.StatusOK, chatResponse{
		Reply:     reply.Reply,
		Language:  reply.Language,
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// History returns the caller's stored transcript, oldest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	turns, err := h.Inbox.History(r.Context(), u.ID, notify.DefaultHistoryLimit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", u.ID).Msg("load chat history")
		jsonError(w, http.StatusInternalServerError, "Failed to retrieve chat history")
		return
	}

	entries := make([]historyEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, historyEntry{
			Sender:      string(t.Sender),
			Message:     t.Message,
			MessageType: string(t.MessageType),
			OrderID:     t.OrderID,
			Timestamp:   t.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	jsonResponse(w, http.StatusOK, map[string]any{"history": entries})
}
