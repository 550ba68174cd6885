package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is catalog reference data. InternalName is the normalized unique key.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID           string `bun:"id,pk" json:"id"`
	Name         string `bun:"name,notnull" json:"name"`
	InternalName string `bun:"internal_name,notnull,unique" json:"internal_name"`
	Unit         string `bun:"unit,notnull" json:"unit"`
	PhotoURL     string `bun:"photo_url,nullzero" json:"photo_url,omitempty"`
}

type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
	ListingSoldOut  ListingStatus = "sold_out"
)

// InventoryListing is one supplier's offer of one product; (supplier, product) is unique.
type InventoryListing struct {
	bun.BaseModel `bun:"table:inventory_listings,alias:il"`

	ID            string          `bun:"id,pk" json:"id"`
	SupplierID    string          `bun:"supplier_id,notnull,unique:listing_supplier_product" json:"supplier_id"`
	ProductID     string          `bun:"product_id,notnull,unique:listing_supplier_product" json:"product_id"`
	Quantity      float64         `bun:"quantity,notnull" json:"quantity"`
	Price         decimal.Decimal `bun:"price,type:decimal(12,2),notnull" json:"price"`
	Status        ListingStatus   `bun:"status,notnull" json:"status"`
	AvailableDate time.Time       `bun:"available_date,notnull" json:"available_date"`
	ExpiryDate    *time.Time      `bun:"expiry_date" json:"expiry_date,omitempty"`
	ImageURL      string          `bun:"image_url,nullzero" json:"image_url,omitempty"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull" json:"updated_at"`

	Product  *Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
	Supplier *User    `bun:"rel:belongs-to,join:supplier_id=id" json:"supplier,omitempty"`
}

// DaysUntilExpiry counts whole calendar days from today; ok is false without an expiry date.
func (l *InventoryListing) DaysUntilExpiry(today time.Time) (days int, ok bool) {
	if l.ExpiryDate == nil {
		return 0, false
	}
	return int(Day(*l.ExpiryDate).Sub(Day(today)).Hours() / 24), true
}

type CompetitorTier string

const (
	TierLocalShop          CompetitorTier = "local_shop"
	TierSupermarket        CompetitorTier = "supermarket"
	TierDistributionCenter CompetitorTier = "distribution_center"
)

// CompetitorPrice is one observed market price; (product, date, tier) is unique.
type CompetitorPrice struct {
	bun.BaseModel `bun:"table:competitor_prices,alias:cp"`

	ID        string          `bun:"id,pk" json:"id"`
	ProductID string          `bun:"product_id,notnull,unique:competitor_product_date_tier" json:"product_id"`
	Date      time.Time       `bun:"date,notnull,unique:competitor_product_date_tier" json:"date"`
	Tier      CompetitorTier  `bun:"tier,notnull,unique:competitor_product_date_tier" json:"tier"`
	Price     decimal.Decimal `bun:"price,type:decimal(12,2),notnull" json:"price"`
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
