package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

func (s *Store) InsertNotification(ctx context.Context, n *model.NotificationEvent) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Type == "" {
		n.Type = model.NotificationGeneral
	}
	if _, err := s.db.NewInsert().Model(n).Exec(ctx); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// UnsentNotifications selects the user's unsent events oldest first, row-locked
// on dialects that support it.
func (s *Store) UnsentNotifications(ctx context.Context, userID string) ([]*model.NotificationEvent, error) {
	var out []*model.NotificationEvent
	q := s.db.NewSelect().Model(&out).
		Where("ne.user_id = ?", userID).
		Where("ne.sent = ?", false).
		OrderExpr("ne.created_at ASC, ne.id ASC")
	if s.supportsRowLocks() {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select unsent notifications: %w", err)
	}
	return out, nil
}

func (s *Store) MarkNotificationsSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.NewUpdate().Model((*model.NotificationEvent)(nil)).
		Set("sent = ?", true).
		Where("id IN (?)", bun.In(ids)).
		Where("sent = ?", false).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark notifications sent: %w", err)
	}
	return nil
}

// RecentNotificationExists reports whether an event of type typ linked to
// inventoryID was created at or after since.
func (s *Store) RecentNotificationExists(ctx context.Context, inventoryID string, typ model.NotificationType, since time.Time) (bool, error) {
	exists, err := s.db.NewSelect().Model((*model.NotificationEvent)(nil)).
		Where("ne.inventory_id = ?", inventoryID).
		Where("ne.type = ?", typ).
		Where("ne.created_at >= ?", since.UTC()).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check recent notification: %w", err)
	}
	return exists, nil
}

func (s *Store) NotificationsFor(ctx context.Context, userID string) ([]*model.NotificationEvent, error) {
	var out []*model.NotificationEvent
	err := s.db.NewSelect().Model(&out).
		Where("ne.user_id = ?", userID).
		OrderExpr("ne.created_at ASC, ne.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	return out, nil
}

func (s *Store) InsertTurn(ctx context.Context, t *model.ConversationTurn) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.MessageType == "" {
		t.MessageType = model.TurnText
	}
	if _, err := s.db.NewInsert().Model(t).Exec(ctx); err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}

// Transcript returns the last limit turns of the user in chronological order.
func (s *Store) Transcript(ctx context.Context, userID string, limit int) ([]*model.ConversationTurn, error) {
	var out []*model.ConversationTurn
	q := s.db.NewSelect().Model(&out).
		Where("ct.user_id = ?", userID).
		OrderExpr("ct.timestamp DESC, ct.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select transcript: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
