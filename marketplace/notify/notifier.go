package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/store"
	"github.com/tanpawarit/kcartbot/pkg/keylock"
)

const DefaultHistoryLimit = 100

// Broadcaster is the live push side of the fan-out.
type Broadcaster interface {
	Publish(userID string, msg Message) (int, error)
}

// Event describes one thing to tell one user. A non-empty Turn also appends a
// bot transcript entry and switches the push shape to chat_message.
type Event struct {
	UserID      string
	Message     string
	Type        model.NotificationType
	Turn        model.TurnType
	OrderID     string
	InventoryID string
}

// Delivery is handed back once the durable write committed. Done yields the
// broadcast outcome and is closed afterwards.
type Delivery struct {
	Notification *model.NotificationEvent
	Turn         *model.ConversationTurn
	Done         <-chan error
}

type Notifier struct {
	store *store.Store
	hub   Broadcaster
	polls *keylock.Map
	log   zerolog.Logger
	now   func() time.Time
}

type Option func(*Notifier)

func WithLogger(l zerolog.Logger) Option {
	return func(n *Notifier) { n.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

func NewNotifier(st *store.Store, hub Broadcaster, opts ...Option) *Notifier {
	n := &Notifier{
		store: st,
		hub:   hub,
		polls: keylock.New(),
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Notify commits the event and only then starts the broadcast.
func (n *Notifier) Notify(ctx context.Context, ev Event) (*Delivery, error) {
	if strings.TrimSpace(ev.UserID) == "" {
		return nil, fmt.Errorf("%w: notification target is empty", model.ErrValidation)
	}
	if ev.Type == "" {
		ev.Type = model.NotificationGeneral
	}
	now := n.now().UTC()

	ne := &model.NotificationEvent{
		UserID:      ev.UserID,
		Message:     ev.Message,
		Type:        ev.Type,
		InventoryID: ev.InventoryID,
		OrderID:     ev.OrderID,
		CreatedAt:   now,
	}
	var turn *model.ConversationTurn
	if ev.Turn != "" {
		turn = &model.ConversationTurn{
			UserID:      ev.UserID,
			Sender:      model.SenderBot,
			Message:     ev.Message,
			MessageType: ev.Turn,
			OrderID:     ev.OrderID,
			Timestamp:   now,
		}
	}

	err := n.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		if err := tx.InsertNotification(ctx, ne); err != nil {
			return err
		}
		if turn != nil {
			return tx.InsertTurn(ctx, turn)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}

	msg := Message{
		Type:           TypeNotification,
		Message:        ne.Message,
		NotificationID: ne.ID,
		Timestamp:      now.Format(time.RFC3339Nano),
	}
	if turn != nil {
		msg = Message{
			Type:        TypeChatMessage,
			Message:     turn.Message,
			MessageType: string(turn.MessageType),
			OrderID:     turn.OrderID,
			Timestamp:   turn.Timestamp.Format(time.RFC3339Nano),
		}
	}

	done := make(chan error, 1)
	go n.broadcast(ev.UserID, msg, done)

	return &Delivery{Notification: ne, Turn: turn, Done: done}, nil
}

func (n *Notifier) broadcast(userID string, msg Message, done chan<- error) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("broadcast panic: %v", r)
			n.log.Error().Err(err).Str("user_id", userID).Msg("broadcast failed")
			done <- err
		}
	}()

	if n.hub == nil {
		done <- nil
		return
	}
	delivered, err := n.hub.Publish(userID, msg)
	if err != nil {
		n.log.Warn().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("broadcast incomplete")
	} else {
		n.log.Debug().Str("user_id", userID).Str("type", msg.Type).Int("sessions", delivered).Msg("broadcast sent")
	}
	done <- err
}

// Pending returns the user's unsent events and marks them sent in the same
// transaction, so each event is handed out as unsent at most once.
func (n *Notifier) Pending(ctx context.Context, userID string) ([]*model.NotificationEvent, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is empty", model.ErrValidation)
	}
	unlock := n.polls.Lock(userID)
	defer unlock()

	var out []*model.NotificationEvent
	err := n.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		unsent, err := tx.UnsentNotifications(ctx, userID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(unsent))
		for _, ev := range unsent {
			ids = append(ids, ev.ID)
		}
		if err := tx.MarkNotificationsSent(ctx, ids); err != nil {
			return err
		}
		out = unsent
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("poll notifications: %w", err)
	}
	return out, nil
}

// History returns the last limit transcript turns, oldest first.
func (n *Notifier) History(ctx context.Context, userID string, limit int) ([]*model.ConversationTurn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return n.store.Transcript(ctx, userID, limit)
}

// RecordExchange appends the user's message and the bot reply in order.
func (n *Notifier) RecordExchange(ctx context.Context, userID, message, reply string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("record exchange: user id is empty")
	}
	at := n.now().UTC()
	return n.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		if err := tx.InsertTurn(ctx, &model.ConversationTurn{
			UserID:      userID,
			Sender:      model.SenderUser,
			Message:     message,
			MessageType: model.TurnText,
			Timestamp:   at,
		}); err != nil {
			return err
		}
		return tx.InsertTurn(ctx, &model.ConversationTurn{
			UserID:      userID,
			Sender:      model.SenderBot,
			Message:     reply,
			MessageType: model.TurnText,
			Timestamp:   at.Add(time.Microsecond),
		})
	})
}
