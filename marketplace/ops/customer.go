package ops

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/order"
)

type ListingOption struct {
	SupplierName      string          `json:"supplier_name"`
	SupplierID        string          `json:"supplier_id"`
	QuantityAvailable float64         `json:"quantity_available"`
	Unit              string          `json:"unit"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	AvailableDate     string          `json:"available_date"`
	ExpiryDate        string          `json:"expiry_date,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
}

// FindProductListings lists suppliers holding at least quantity of the product,
// cheapest first. An unknown product yields an empty list.
func (s *Service) FindProductListings(ctx context.Context, actor *model.User, productName string, quantity float64) ([]ListingOption, error) {
	if err := requireRole(actor, model.RoleCustomer, "search listings"); err != nil {
		return nil, err
	}
	product, err := s.store.FindProduct(ctx, productName)
	if errors.Is(err, model.ErrNotFound) {
		return []ListingOption{}, nil
	}
	if err != nil {
		return nil, err
	}

	listings, err := s.store.ListingsForProduct(ctx, product.ID, quantity)
	if err != nil {
		return nil, err
	}

	qty := decimal.NewFromFloat(quantity)
	out := make([]ListingOption, 0, len(listings))
	for _, l := range listings {
		opt := ListingOption{
			SupplierID:        l.SupplierID,
			QuantityAvailable: l.Quantity,
			Unit:              product.Unit,
			PricePerUnit:      l.Price,
			TotalPrice:        l.Price.Mul(qty),
			AvailableDate:     formatDate(&l.AvailableDate),
			ExpiryDate:        formatDate(l.ExpiryDate),
			ImageURL:          l.ImageURL,
		}
		if l.Supplier != nil {
			opt.SupplierName = l.Supplier.Name
		}
		out = append(out, opt)
	}
	return out, nil
}

type OrderResult struct {
	Success          bool                `json:"success"`
	OrderID          string              `json:"order_id"`
	OrderDate        string              `json:"order_date"`
	Status           model.OrderStatus   `json:"status"`
	DeliveryDate     string              `json:"delivery_date,omitempty"`
	DeliveryLocation string              `json:"delivery_location,omitempty"`
	Items            []order.Line        `json:"items"`
	Total            decimal.Decimal     `json:"total"`
	NotIncluded      []order.ItemRequest `json:"not_included,omitempty"`
}

// CreateOrder places the order; the result enumerates exactly the items included.
func (s *Service) CreateOrder(ctx context.Context, actor *model.User, items []order.ItemRequest, delivery order.Delivery) (*OrderResult, error) {
	if err := requireRole(actor, model.RoleCustomer, "create orders"); err != nil {
		return nil, err
	}
	created, err := s.orders.Create(ctx, actor, items, delivery)
	if err != nil {
		return nil, err
	}
	return &OrderResult{
		Success:          len(created.Items) > 0,
		OrderID:          created.Order.ID,
		OrderDate:        created.Order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Status:           created.Order.Status,
		DeliveryDate:     created.Order.DeliveryDate,
		DeliveryLocation: created.Order.DeliveryLocation,
		Items:            created.Items,
		Total:            created.Total,
		NotIncluded:      created.Dropped,
	}, nil
}

// KnowledgeSearch never fails; a missing or failing knowledge base yields a fixed answer.
func (s *Service) KnowledgeSearch(ctx context.Context, query string) string {
	if s.knowledge == nil || strings.TrimSpace(query) == "" {
		return NoKnowledgeMessage
	}
	answer, err := s.knowledge.Search(ctx, query)
	if err != nil {
		s.log.Warn().Err(err).Msg("knowledge search failed")
		return NoKnowledgeMessage
	}
	if strings.TrimSpace(answer) == "" {
		return NoKnowledgeMessage
	}
	return answer
}
