package model

import (
	"time"

	"github.com/uptrace/bun"
)

type NotificationType string

const (
	NotificationExpiryAlert NotificationType = "expiry_alert"
	NotificationOrderUpdate NotificationType = "order_update"
	NotificationGeneral     NotificationType = "general"
)

type NotificationEvent struct {
	bun.BaseModel `bun:"table:notification_events,alias:ne"`

	ID          string           `bun:"id,pk" json:"id"`
	UserID      string           `bun:"user_id,notnull" json:"user_id"`
	Message     string           `bun:"message,notnull" json:"message"`
	Sent        bool             `bun:"sent,notnull" json:"sent"`
	Type        NotificationType `bun:"type,notnull" json:"type"`
	InventoryID string           `bun:"inventory_id,nullzero" json:"inventory_id,omitempty"`
	OrderID     string           `bun:"order_id,nullzero" json:"order_id,omitempty"`
	CreatedAt   time.Time        `bun:"created_at,notnull" json:"created_at"`
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type TurnType string

const (
	TurnText              TurnType = "text"
	TurnOrderNotification TurnType = "order_notification"
	TurnOrderResponse     TurnType = "order_response"
)

// ConversationTurn is an append-only transcript entry.
type ConversationTurn struct {
	bun.BaseModel `bun:"table:conversation_turns,alias:ct"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull" json:"user_id"`
	Sender      Sender    `bun:"sender,notnull" json:"sender"`
	Message     string    `bun:"message,notnull" json:"message"`
	MessageType TurnType  `bun:"message_type,notnull" json:"message_type"`
	OrderID     string    `bun:"order_id,nullzero" json:"order_id,omitempty"`
	Timestamp   time.Time `bun:"timestamp,notnull" json:"timestamp"`
}
