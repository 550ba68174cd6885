package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

// InsertOrder writes the order with its line items and supplier portions.
// Callers wrap it in RunInTx.
func (s *Store) InsertOrder(ctx context.Context, o *model.Order, items []*model.OrderLineItem, portions []*model.SupplierOrder) error {
	if _, err := s.db.NewInsert().Model(o).Exec(ctx); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if len(items) > 0 {
		if _, err := s.db.NewInsert().Model(&items).Exec(ctx); err != nil {
			return fmt.Errorf("insert line items: %w", err)
		}
	}
	if len(portions) > 0 {
		if _, err := s.db.NewInsert().Model(&portions).Exec(ctx); err != nil {
			return fmt.Errorf("insert supplier orders: %w", err)
		}
	}
	return nil
}

// GetOrder loads an order with its items and supplier portions.
func (s *Store) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o := new(model.Order)
	err := s.db.NewSelect().Model(o).
		Relation("Customer").
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("oli.created_at ASC, oli.id ASC")
		}).
		Relation("Items.Product").
		Relation("Suppliers").
		Where("o.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "order "+id)
	}
	return o, nil
}

// LockOrder takes the row lock on the order for the rest of the transaction.
// SQLite has no row locks; its writers are serialized by the database.
func (s *Store) LockOrder(ctx context.Context, id string) error {
	q := s.db.NewSelect().Model((*model.Order)(nil)).Column("o.id").Where("o.id = ?", id)
	if s.supportsRowLocks() {
		q = q.For("UPDATE")
	}
	var got string
	if err := q.Scan(ctx, &got); err != nil {
		return notFound(err, "order "+id)
	}
	return nil
}

// SupplierItems returns the line items of orderID fulfilled by supplierID.
func (s *Store) SupplierItems(ctx context.Context, orderID, supplierID string) ([]*model.OrderLineItem, error) {
	var out []*model.OrderLineItem
	err := s.db.NewSelect().Model(&out).
		Relation("Product").
		Where("oli.order_id = ?", orderID).
		Where("oli.supplier_id = ?", supplierID).
		OrderExpr("oli.created_at ASC, oli.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select supplier items: %w", err)
	}
	return out, nil
}

// RespondSupplierOrder moves the supplier's portion out of pending. It reports
// false when the portion was no longer pending.
func (s *Store) RespondSupplierOrder(ctx context.Context, orderID, supplierID string, status model.OrderStatus, reason string, at time.Time) (bool, error) {
	res, err := s.db.NewUpdate().Model((*model.SupplierOrder)(nil)).
		Set("status = ?", status).
		Set("reason = ?", nullString(reason)).
		Set("responded_at = ?", at.UTC()).
		Where("order_id = ?", orderID).
		Where("supplier_id = ?", supplierID).
		Where("status = ?", model.OrderPendingAcceptance).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update supplier order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) SupplierOrders(ctx context.Context, orderID string) ([]*model.SupplierOrder, error) {
	var out []*model.SupplierOrder
	if err := s.db.NewSelect().Model(&out).Where("so.order_id = ?", orderID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select supplier orders: %w", err)
	}
	return out, nil
}

func (s *Store) SetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus, at time.Time) error {
	_, err := s.db.NewUpdate().Model((*model.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", at.UTC()).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// SupplierOrderFilter narrows OrdersForSupplier to orders created in [From, To).
type SupplierOrderFilter struct {
	From time.Time
	To   time.Time
}

// OrdersForSupplier returns orders in which supplierID has at least one line
// item, newest first. Items and Suppliers are narrowed to that supplier, so
// Suppliers holds at most the caller's own portion.
func (s *Store) OrdersForSupplier(ctx context.Context, supplierID string, f SupplierOrderFilter) ([]*model.Order, error) {
	var out []*model.Order
	q := s.db.NewSelect().Model(&out).
		Relation("Customer").
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("oli.supplier_id = ?", supplierID).OrderExpr("oli.created_at ASC, oli.id ASC")
		}).
		Relation("Items.Product").
		Relation("Suppliers", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("so.supplier_id = ?", supplierID)
		}).
		Where("EXISTS (SELECT 1 FROM order_line_items AS x WHERE x.order_id = o.id AND x.supplier_id = ?)", supplierID).
		OrderExpr("o.created_at DESC")
	if !f.From.IsZero() {
		q = q.Where("o.created_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("o.created_at < ?", f.To.UTC())
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select supplier orders: %w", err)
	}
	return out, nil
}

// HighestVolumeItem returns the largest-quantity line item for a product ordered since.
func (s *Store) HighestVolumeItem(ctx context.Context, productID string, since time.Time) (*model.OrderLineItem, error) {
	item := new(model.OrderLineItem)
	err := s.db.NewSelect().Model(item).
		Join("JOIN orders AS o ON o.id = oli.order_id").
		Where("oli.product_id = ?", productID).
		Where("o.created_at >= ?", since.UTC()).
		OrderExpr("oli.quantity DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "line item")
	}
	return item, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
