package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPendingAcceptance OrderStatus = "pending_acceptance"
	OrderAccepted          OrderStatus = "accepted"
	OrderDeclined          OrderStatus = "declined"
	OrderOutForDelivery    OrderStatus = "out_for_delivery"
	OrderCompleted         OrderStatus = "completed"
)

var OrderStatuses = []OrderStatus{
	OrderPendingAcceptance,
	OrderAccepted,
	OrderDeclined,
	OrderOutForDelivery,
	OrderCompleted,
}

func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID               string      `bun:"id,pk" json:"id"`
	CustomerID       string      `bun:"customer_id,notnull" json:"customer_id"`
	Status           OrderStatus `bun:"status,notnull" json:"status"`
	DeliveryDate     string      `bun:"delivery_date,nullzero" json:"delivery_date,omitempty"`
	DeliveryLocation string      `bun:"delivery_location,nullzero" json:"delivery_location,omitempty"`
	CreatedAt        time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time   `bun:"updated_at,notnull" json:"updated_at"`

	Customer  *User            `bun:"rel:belongs-to,join:customer_id=id" json:"customer,omitempty"`
	Items     []*OrderLineItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
	Suppliers []*SupplierOrder `bun:"rel:has-many,join:id=order_id" json:"suppliers,omitempty"`
}

// OrderLineItem snapshots the listing price at order time.
type OrderLineItem struct {
	bun.BaseModel `bun:"table:order_line_items,alias:oli"`

	ID         string          `bun:"id,pk" json:"id"`
	OrderID    string          `bun:"order_id,notnull" json:"order_id"`
	ProductID  string          `bun:"product_id,notnull" json:"product_id"`
	SupplierID string          `bun:"supplier_id,notnull" json:"supplier_id"`
	Quantity   float64         `bun:"quantity,notnull" json:"quantity"`
	UnitPrice  decimal.Decimal `bun:"unit_price,type:decimal(12,2),notnull" json:"unit_price"`
	CreatedAt  time.Time       `bun:"created_at,notnull" json:"created_at"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
}

func (i *OrderLineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromFloat(i.Quantity))
}

// SupplierOrder is one supplier's portion of an order and carries that supplier's response.
type SupplierOrder struct {
	bun.BaseModel `bun:"table:supplier_orders,alias:so"`

	ID          string      `bun:"id,pk" json:"id"`
	OrderID     string      `bun:"order_id,notnull,unique:supplier_order_order_supplier" json:"order_id"`
	SupplierID  string      `bun:"supplier_id,notnull,unique:supplier_order_order_supplier" json:"supplier_id"`
	Status      OrderStatus `bun:"status,notnull" json:"status"`
	Reason      string      `bun:"reason,nullzero" json:"reason,omitempty"`
	RespondedAt *time.Time  `bun:"responded_at" json:"responded_at,omitempty"`
}
