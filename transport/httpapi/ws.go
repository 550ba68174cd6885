package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/tanpawarit/kcartbot/marketplace/notify"
)

const (
	StatusAuthRequired websocket.StatusCode = 4001
	StatusServerError  websocket.StatusCode = 4000

	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 4 << 10
)

const connectedMessage = "Connected to KcartBot notifications"

type WSHandler struct {
	auth           authenticator
	Hub            Subscriber
	OriginPatterns []string
}

type clientFrame struct {
	Type string `json:"type"`
}

// Serve joins the caller's broadcast group for the life of the connection.
// The token comes from ?token= because browsers cannot set headers on upgrade.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	u, authErr := h.auth.resolve(r.Context(), token)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(wsReadLimit)

	switch {
	case authErr != nil && !errors.Is(authErr, ErrInvalidToken) && !errors.Is(authErr, ErrUnknownUser):
		log.Error().Err(authErr).Msg("websocket resolve actor")
		conn.Close(StatusServerError, "server error")
		return
	case u == nil:
		conn.Close(StatusAuthRequired, "authentication required")
		return
	}

	sub, leave := h.Hub.Subscribe(u.ID)
	defer leave()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pongs := make(chan struct{}, 1)
	go func() {
		defer cancel()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var in clientFrame
			if json.Unmarshal(data, &in) != nil || in.Type != "ping" {
				continue
			}
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}()

	if err := h.write(ctx, conn, notify.Message{Type: notify.TypeConnectionEstablished, Message: connectedMessage}); err != nil {
		return
	}
	log.Debug().Str("user_id", u.ID).Msg("websocket connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				log.Debug().Err(err).Str("user_id", u.ID).Msg("websocket write")
				return
			}
		case <-pongs:
			if err := h.write(ctx, conn, notify.Message{Type: notify.TypePong}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
