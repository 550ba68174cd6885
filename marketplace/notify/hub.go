package notify

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

const (
	TypeNotification          = "notification"
	TypeChatMessage           = "chat_message"
	TypeConnectionEstablished = "connection_established"
	TypePong                  = "pong"
)

const defaultBuffer = 16

var ErrDropped = errors.New("push dropped for slow connection")

// Message is one frame on the live push channel.
type Message struct {
	Type           string `json:"type"`
	Message        string `json:"message,omitempty"`
	MessageType    string `json:"message_type,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

type Subscription struct {
	C      <-chan Message
	UserID string
}

// Hub keeps one broadcast group per user id. All sessions of a user share the group.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[uint64]chan Message
	nextID uint64
	buffer int
	log    zerolog.Logger
}

type HubOption func(*Hub)

func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithHubLogger(l zerolog.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		groups: make(map[string]map[uint64]chan Message),
		buffer: defaultBuffer,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Subscribe joins userID's group. The returned cancel leaves the group and closes C.
func (h *Hub) Subscribe(userID string) (*Subscription, func()) {
	ch := make(chan Message, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	group, ok := h.groups[userID]
	if !ok {
		group = make(map[uint64]chan Message)
		h.groups[userID] = group
	}
	group[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if g, ok := h.groups[userID]; ok {
				delete(g, id)
				if len(g) == 0 {
					delete(h.groups, userID)
				}
			}
			close(ch)
		})
	}
	return &Subscription{C: ch, UserID: userID}, cancel
}

// Publish never blocks. A connection whose buffer is full misses the message.
func (h *Hub) Publish(userID string, msg Message) (delivered int, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group := h.groups[userID]
	dropped := 0
	for _, ch := range group {
		select {
		case ch <- msg:
			delivered++
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return delivered, fmt.Errorf("%w: user=%s dropped=%d delivered=%d", ErrDropped, userID, dropped, delivered)
	}
	return delivered, nil
}

func (h *Hub) Sessions(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID])
}
