package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(u).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	u := new(model.User)
	if err := s.db.NewSelect().Model(u).Where("u.id = ?", id).Scan(ctx); err != nil {
		return nil, notFound(err, "user "+id)
	}
	return u, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.InternalName == "" {
		p.InternalName = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p.Name), " ", "_"))
	}
	if _, err := s.db.NewInsert().Model(p).Exec(ctx); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// FindProduct returns the first product whose display or internal name contains
// name, case-insensitively; name is matched literally. Ties go to the lowest
// display name, then the lowest id, so overlapping names ("onion", "red onion")
// always resolve the same way.
func (s *Store) FindProduct(ctx context.Context, name string) (*model.Product, error) {
	term := strings.ToLower(strings.TrimSpace(name))
	if term == "" {
		return nil, fmt.Errorf("%w: empty product name", model.ErrValidation)
	}
	needle := "%" + likeEscaper.Replace(term) + "%"

	p := new(model.Product)
	err := s.db.NewSelect().Model(p).
		Where("LOWER(p.name) LIKE ? ESCAPE '!' OR LOWER(p.internal_name) LIKE ? ESCAPE '!'", needle, needle).
		OrderExpr("p.name ASC, p.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "product "+name)
	}
	return p, nil
}
