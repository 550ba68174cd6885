package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

// UpsertListing writes the (supplier, product) listing, replacing any prior one.
func (s *Store) UpsertListing(ctx context.Context, l *model.InventoryListing) (created bool, err error) {
	existing, err := s.GetListing(ctx, l.SupplierID, l.ProductID)
	switch {
	case err == nil:
		l.ID = existing.ID
	case isNotFound(err):
		created = true
		l.ID = uuid.NewString()
	default:
		return false, err
	}
	if l.Status == "" {
		l.Status = model.ListingActive
	}
	l.UpdatedAt = time.Now().UTC()

	_, err = s.db.NewInsert().Model(l).
		On("CONFLICT (supplier_id, product_id) DO UPDATE").
		Set("quantity = EXCLUDED.quantity").
		Set("price = EXCLUDED.price").
		Set("status = EXCLUDED.status").
		Set("available_date = EXCLUDED.available_date").
		Set("expiry_date = EXCLUDED.expiry_date").
		Set("image_url = EXCLUDED.image_url").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("upsert listing: %w", err)
	}
	return created, nil
}

func (s *Store) GetListing(ctx context.Context, supplierID, productID string) (*model.InventoryListing, error) {
	l := new(model.InventoryListing)
	err := s.db.NewSelect().Model(l).
		Relation("Product").
		Where("il.supplier_id = ?", supplierID).
		Where("il.product_id = ?", productID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "listing")
	}
	return l, nil
}

// ActiveListing returns the supplier's active listing for a product.
func (s *Store) ActiveListing(ctx context.Context, supplierID, productID string) (*model.InventoryListing, error) {
	l, err := s.GetListing(ctx, supplierID, productID)
	if err != nil {
		return nil, err
	}
	if l.Status != model.ListingActive {
		return nil, fmt.Errorf("%w: listing is %s", model.ErrNotFound, l.Status)
	}
	return l, nil
}

// ListingsForProduct returns active listings holding at least minQty, cheapest first.
func (s *Store) ListingsForProduct(ctx context.Context, productID string, minQty float64) ([]*model.InventoryListing, error) {
	var out []*model.InventoryListing
	err := s.db.NewSelect().Model(&out).
		Relation("Supplier").
		Relation("Product").
		Where("il.product_id = ?", productID).
		Where("il.status = ?", model.ListingActive).
		Where("il.quantity >= ?", minQty).
		OrderExpr("il.price ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select listings for product: %w", err)
	}
	return out, nil
}

// SupplierListings returns the supplier's active listings, newest availability first.
func (s *Store) SupplierListings(ctx context.Context, supplierID string) ([]*model.InventoryListing, error) {
	var out []*model.InventoryListing
	err := s.db.NewSelect().Model(&out).
		Relation("Product").
		Where("il.supplier_id = ?", supplierID).
		Where("il.status = ?", model.ListingActive).
		OrderExpr("il.available_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select supplier listings: %w", err)
	}
	return out, nil
}

// ExpiringListings returns active listings whose expiry date is within [from, to].
func (s *Store) ExpiringListings(ctx context.Context, from, to time.Time) ([]*model.InventoryListing, error) {
	var out []*model.InventoryListing
	err := s.db.NewSelect().Model(&out).
		Relation("Product").
		Where("il.status = ?", model.ListingActive).
		Where("il.expiry_date IS NOT NULL").
		Where("il.expiry_date >= ?", from.UTC()).
		Where("il.expiry_date <= ?", to.UTC()).
		OrderExpr("il.expiry_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select expiring listings: %w", err)
	}
	return out, nil
}
