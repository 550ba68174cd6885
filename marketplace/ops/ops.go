package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/order"
	"github.com/tanpawarit/kcartbot/marketplace/store"
)

const (
	dateLayout         = "2006-01-02"
	expiringSoonDays   = 5
	defaultHistoryDays = 30
	NoKnowledgeMessage = "No relevant information found in the knowledge base."
)

// ImageGenerator turns a product description into a hosted image URL.
type ImageGenerator interface {
	Generate(ctx context.Context, description string) (string, error)
}

// KnowledgeBase answers free-text questions about produce, storage and nutrition.
type KnowledgeBase interface {
	Search(ctx context.Context, query string) (string, error)
}

// Service holds the marketplace operations the assistant may call on behalf of a user.
type Service struct {
	store     *store.Store
	orders    *order.Service
	images    ImageGenerator
	knowledge KnowledgeBase
	log       zerolog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithImageGenerator(g ImageGenerator) Option {
	return func(s *Service) { s.images = g }
}

func WithKnowledgeBase(kb KnowledgeBase) Option {
	return func(s *Service) { s.knowledge = kb }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(st *store.Store, orders *order.Service, opts ...Option) *Service {
	s := &Service{
		store:  st,
		orders: orders,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func requireRole(actor *model.User, role model.Role, action string) error {
	if actor == nil || actor.Role != role {
		return fmt.Errorf("%w: only %ss can %s", model.ErrForbidden, role, action)
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return model.Day(fallback), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", model.ErrValidation, s)
	}
	return t, nil
}
