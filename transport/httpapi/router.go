package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	"github.com/tanpawarit/kcartbot/agent/orchestrator"
	"github.com/tanpawarit/kcartbot/marketplace/expiry"
	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/notify"
	"github.com/tanpawarit/kcartbot/marketplace/order"
)

const SweepPath = "/internal/expiry-sweep"

type Conversation interface {
	HandleMessage(ctx context.Context, actor *capabilityx.Actor, message string, history []contractx.HistoryMessage) (orchestrator.Reply, error)
}

// Inbox is the durable side of notification fan-out plus the stored transcript.
type Inbox interface {
	Pending(ctx context.Context, userID string) ([]*model.NotificationEvent, error)
	History(ctx context.Context, userID string, limit int) ([]*model.ConversationTurn, error)
}

type OrderActions interface {
	Transition(ctx context.Context, supplier *model.User, orderID string, status model.OrderStatus, reason string) (*order.Transitioned, error)
}

type Subscriber interface {
	Subscribe(userID string) (*notify.Subscription, func())
}

type Sweeper interface {
	Trigger(ctx context.Context) (expiry.Report, error)
}

type SignatureVerifier interface {
	VerifyRequest(r *http.Request, body []byte, destination string) error
}

// Config for the router. PublicURL is where QStash reaches this service; empty
// skips the destination check on the sweep webhook.
type Config struct {
	JWTSecret      string
	PublicURL      string
	AllowedOrigins []string
}

// Deps are the collaborators behind the routes. Sweeper and Verifier are optional;
// the sweep webhook is only mounted when both are set.
type Deps struct {
	Users        Users
	Conversation Conversation
	Inbox        Inbox
	Orders       OrderActions
	Hub          Subscriber
	Sweeper      Sweeper
	Verifier     SignatureVerifier
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config, deps Deps, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	auth := authenticator{secret: cfg.JWTSecret, users: deps.Users}
	actorMW := ActorMiddleware(auth)

	chatHandler := &ChatHandler{Conversation: deps.Conversation, Inbox: deps.Inbox, now: time.Now}
	notificationsHandler := &NotificationsHandler{Inbox: deps.Inbox}
	ordersHandler := &OrdersHandler{Orders: deps.Orders}
	wsHandler := &WSHandler{auth: auth, Hub: deps.Hub, OriginPatterns: cfg.AllowedOrigins}

	// Anonymous allowed.
	mux.Handle("POST /api/chat", actorMW(http.HandlerFunc(chatHandler.Post)))

	mux.Handle("GET /api/chat", actorMW(RequireUser(http.HandlerFunc(chatHandler.History))))
	mux.Handle("GET /api/notifications", actorMW(RequireUser(http.HandlerFunc(notificationsHandler.List))))
	mux.Handle("POST /api/orders/action", actorMW(RequireUser(http.HandlerFunc(ordersHandler.Action))))

	// Authenticates from the query string and reports failure as a close code.
	mux.HandleFunc("GET /ws", wsHandler.Serve)

	if deps.Sweeper != nil && deps.Verifier != nil {
		sweepHandler := &SweepHandler{Sweeper: deps.Sweeper, Verifier: deps.Verifier}
		if base := strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/"); base != "" {
			sweepHandler.Destination = base + SweepPath
		}
		mux.HandleFunc("POST "+SweepPath, sweepHandler.Trigger)
	}

	return LoggingMiddleware(log)(mux)
}
