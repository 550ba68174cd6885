package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
}

// Open connects to Postgres through pgdriver.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
	))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

var tables = []any{
	(*model.User)(nil),
	(*model.Product)(nil),
	(*model.InventoryListing)(nil),
	(*model.CompetitorPrice)(nil),
	(*model.Order)(nil),
	(*model.OrderLineItem)(nil),
	(*model.SupplierOrder)(nil),
	(*model.NotificationEvent)(nil),
	(*model.ConversationTurn)(nil),
}

var indexes = []struct {
	name   string
	model  any
	column []string
}{
	{"idx_listings_expiry", (*model.InventoryListing)(nil), []string{"status", "expiry_date"}},
	{"idx_line_items_order", (*model.OrderLineItem)(nil), []string{"order_id", "supplier_id"}},
	{"idx_line_items_product", (*model.OrderLineItem)(nil), []string{"product_id"}},
	{"idx_notifications_user_sent", (*model.NotificationEvent)(nil), []string{"user_id", "sent", "created_at"}},
	{"idx_notifications_inventory", (*model.NotificationEvent)(nil), []string{"inventory_id", "type", "created_at"}},
	{"idx_turns_user_ts", (*model.ConversationTurn)(nil), []string{"user_id", "timestamp"}},
	{"idx_competitor_date", (*model.CompetitorPrice)(nil), []string{"date"}},
}

// EnsureSchema creates every table and index that does not exist yet.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", m, err)
		}
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// Store runs queries against a database or an open transaction.
type Store struct {
	db bun.IDB
}

func New(db bun.IDB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() bun.IDB { return s.db }

// RunInTx runs fn inside one transaction; fn receives a Store bound to it.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: tx})
	})
}

func (s *Store) supportsRowLocks() bool {
	return s.db.Dialect().Name() == dialect.PG
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	}
	return err
}
