package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/store"
)

type InventoryView struct {
	InventoryID       string              `json:"inventory_id"`
	ProductName       string              `json:"product_name"`
	QuantityAvailable float64             `json:"quantity_available"`
	Unit              string              `json:"unit"`
	PricePerUnit      decimal.Decimal     `json:"price_per_unit"`
	Status            model.ListingStatus `json:"status"`
	AvailableDate     string              `json:"available_date"`
	ExpiryDate        string              `json:"expiry_date,omitempty"`
	ImageURL          string              `json:"image_url,omitempty"`
}

func viewOf(l *model.InventoryListing) InventoryView {
	v := InventoryView{
		InventoryID:       l.ID,
		QuantityAvailable: l.Quantity,
		PricePerUnit:      l.Price,
		Status:            l.Status,
		AvailableDate:     formatDate(&l.AvailableDate),
		ExpiryDate:        formatDate(l.ExpiryDate),
		ImageURL:          l.ImageURL,
	}
	if l.Product != nil {
		v.ProductName = l.Product.Name
		v.Unit = l.Product.Unit
	}
	return v
}

type ExistingInventory struct {
	Found     bool           `json:"found"`
	Inventory *InventoryView `json:"inventory,omitempty"`
}

func (s *Service) CheckExistingInventory(ctx context.Context, actor *model.User, productName string) (*ExistingInventory, error) {
	if err := requireRole(actor, model.RoleSupplier, "check inventory"); err != nil {
		return nil, err
	}
	product, err := s.store.FindProduct(ctx, productName)
	if errors.Is(err, model.ErrNotFound) {
		return &ExistingInventory{}, nil
	}
	if err != nil {
		return nil, err
	}
	l, err := s.store.GetListing(ctx, actor.ID, product.ID)
	if errors.Is(err, model.ErrNotFound) {
		return &ExistingInventory{}, nil
	}
	if err != nil {
		return nil, err
	}
	v := viewOf(l)
	return &ExistingInventory{Found: true, Inventory: &v}, nil
}

type PricingSuggestion struct {
	ProductName        string                     `json:"product_name"`
	CompetitorAverages map[string]decimal.Decimal `json:"competitor_averages"`
	HighestVolumePrice *decimal.Decimal           `json:"highest_volume_price_last_30_days"`
	AnalysisPeriodDays int                        `json:"analysis_period_days"`
	Recommendation     string                     `json:"recommendation"`
}

// GetPricingSuggestion combines competitor tier averages over days of history
// with the price of the largest sale in the last 30 days.
func (s *Service) GetPricingSuggestion(ctx context.Context, actor *model.User, productName string, days int) (*PricingSuggestion, error) {
	if err := requireRole(actor, model.RoleSupplier, "request pricing suggestions"); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = defaultHistoryDays
	}
	product, err := s.store.FindProduct(ctx, productName)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	end := model.Day(now)
	avgs, err := s.store.CompetitorAverages(ctx, product.ID, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}

	out := &PricingSuggestion{
		ProductName:        product.Name,
		CompetitorAverages: make(map[string]decimal.Decimal, len(avgs)),
		AnalysisPeriodDays: days,
	}
	for tier, avg := range avgs {
		out.CompetitorAverages[string(tier)] = avg.Round(2)
	}

	item, err := s.store.HighestVolumeItem(ctx, product.ID, now.AddDate(0, 0, -defaultHistoryDays))
	switch {
	case err == nil:
		p := item.UnitPrice
		out.HighestVolumePrice = &p
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	out.Recommendation = recommendPrice(avgs, out.HighestVolumePrice)
	return out, nil
}

func recommendPrice(avgs map[model.CompetitorTier]decimal.Decimal, volume *decimal.Decimal) string {
	prices := make([]decimal.Decimal, 0, len(avgs)+1)
	for _, p := range avgs {
		prices = append(prices, p)
	}
	if volume != nil && !volume.IsZero() {
		prices = append(prices, *volume)
	}
	if len(prices) == 0 {
		return "Insufficient market data for recommendation."
	}
	market := decimal.Avg(prices[0], prices[1:]...)
	low := market.Mul(decimal.RequireFromString("0.9"))
	high := market.Mul(decimal.RequireFromString("1.1"))
	return fmt.Sprintf("Suggested price range: %s - %s ETB per unit", low.StringFixed(2), high.StringFixed(2))
}

type InventoryInput struct {
	ProductName   string          `json:"product_name"`
	Quantity      float64         `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	AvailableDate string          `json:"available_date,omitempty"`
	ExpiryDate    string          `json:"expiry_date,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
}

type InventoryChange struct {
	Success      bool            `json:"success"`
	Action       string          `json:"action"`
	InventoryID  string          `json:"inventory_id"`
	ProductName  string          `json:"product_name"`
	Quantity     float64         `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// AddOrUpdateInventory writes the supplier's single listing for the product.
func (s *Service) AddOrUpdateInventory(ctx context.Context, actor *model.User, in InventoryInput) (*InventoryChange, error) {
	if err := requireRole(actor, model.RoleSupplier, "manage inventory"); err != nil {
		return nil, err
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", model.ErrValidation)
	}
	if !in.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", model.ErrValidation)
	}

	product, err := s.store.FindProduct(ctx, in.ProductName)
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", in.ProductName, err)
	}

	now := s.now()
	available, err := parseDate(in.AvailableDate, now)
	if err != nil {
		return nil, err
	}
	var expiry *time.Time
	if strings.TrimSpace(in.ExpiryDate) != "" {
		t, err := parseDate(in.ExpiryDate, now)
		if err != nil {
			return nil, err
		}
		expiry = &t
	}

	l := &model.InventoryListing{
		SupplierID:    actor.ID,
		ProductID:     product.ID,
		Quantity:      in.Quantity,
		Price:         in.Price.Round(2),
		Status:        model.ListingActive,
		AvailableDate: available,
		ExpiryDate:    expiry,
		ImageURL:      strings.TrimSpace(in.ImageURL),
	}
	if l.ImageURL == "" {
		if prev, err := s.store.GetListing(ctx, actor.ID, product.ID); err == nil {
			l.ImageURL = prev.ImageURL
		}
	}
	created, err := s.store.UpsertListing(ctx, l)
	if err != nil {
		return nil, err
	}

	action := "updated"
	if created {
		action = "created"
	}
	s.log.Info().Str("supplier_id", actor.ID).Str("product", product.Name).Str("action", action).Msg("inventory saved")

	return &InventoryChange{
		Success:      true,
		Action:       action,
		InventoryID:  l.ID,
		ProductName:  product.Name,
		Quantity:     l.Quantity,
		PricePerUnit: l.Price,
	}, nil
}

type ExpiringView struct {
	InventoryView
	DaysUntilExpiry int    `json:"days_until_expiry"`
	ExpiresOn       string `json:"expires_on"`
}

type SupplierInventory struct {
	Inventory        []InventoryView `json:"inventory"`
	ExpiringSoon     []ExpiringView  `json:"expiring_soon"`
	HasExpiringItems bool            `json:"has_expiring_items"`
}

// GetMyInventory lists active listings and flags those expiring within five days.
func (s *Service) GetMyInventory(ctx context.Context, actor *model.User) (*SupplierInventory, error) {
	if err := requireRole(actor, model.RoleSupplier, "view inventory"); err != nil {
		return nil, err
	}
	listings, err := s.store.SupplierListings(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	today := model.Day(s.now())
	out := &SupplierInventory{Inventory: []InventoryView{}, ExpiringSoon: []ExpiringView{}}
	for _, l := range listings {
		v := viewOf(l)
		out.Inventory = append(out.Inventory, v)
		if days, ok := l.DaysUntilExpiry(today); ok && days <= expiringSoonDays {
			out.ExpiringSoon = append(out.ExpiringSoon, ExpiringView{
				InventoryView:   v,
				DaysUntilExpiry: days,
				ExpiresOn:       formatDate(l.ExpiryDate),
			})
		}
	}
	out.HasExpiringItems = len(out.ExpiringSoon) > 0
	return out, nil
}

// SupplierOrderView is one order as its supplier sees it. Status is the
// supplier's own standing; OrderStatus is the order as a whole.
type SupplierOrderView struct {
	OrderID     string            `json:"order_id"`
	Customer    string            `json:"customer"`
	OrderDate   string            `json:"order_date"`
	Status      model.OrderStatus `json:"status"`
	OrderStatus model.OrderStatus `json:"order_status"`
	Items       []OrderItemView   `json:"items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

type OrderItemView struct {
	Product      string          `json:"product"`
	Quantity     float64         `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type SupplierOrders struct {
	Orders      map[model.OrderStatus][]SupplierOrderView `json:"orders"`
	Counts      map[model.OrderStatus]int                 `json:"counts"`
	TotalOrders int                                       `json:"total_orders"`
}

// GetMyOrders groups the supplier's orders by the supplier's own status, see
// supplierStatus. dateFilter accepts "today", "yesterday" or YYYY-MM-DD; an
// unparseable value is ignored.
func (s *Service) GetMyOrders(ctx context.Context, actor *model.User, statusFilter, dateFilter string) (*SupplierOrders, error) {
	if err := requireRole(actor, model.RoleSupplier, "view orders"); err != nil {
		return nil, err
	}

	var (
		f    store.SupplierOrderFilter
		only model.OrderStatus
	)
	if st := model.OrderStatus(strings.TrimSpace(statusFilter)); st != "" {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown order status %q", model.ErrValidation, st)
		}
		only = st
	}
	if day, ok := s.dayFilter(dateFilter); ok {
		f.From, f.To = day, day.AddDate(0, 0, 1)
	}

	orders, err := s.store.OrdersForSupplier(ctx, actor.ID, f)
	if err != nil {
		return nil, err
	}

	out := &SupplierOrders{
		Orders: make(map[model.OrderStatus][]SupplierOrderView, len(model.OrderStatuses)),
		Counts: make(map[model.OrderStatus]int, len(model.OrderStatuses)),
	}
	for _, st := range model.OrderStatuses {
		out.Orders[st] = []SupplierOrderView{}
	}
	for _, o := range orders {
		status := supplierStatus(o, actor.ID)
		if only != "" && status != only {
			continue
		}
		view := SupplierOrderView{
			OrderID:     o.ID,
			Customer:    "Unknown",
			OrderDate:   o.CreatedAt.UTC().Format("2006-01-02 15:04"),
			Status:      status,
			OrderStatus: o.Status,
			Items:       make([]OrderItemView, 0, len(o.Items)),
			TotalAmount: decimal.Zero,
		}
		if o.Customer != nil {
			view.Customer = o.Customer.Name
		}
		for _, it := range o.Items {
			name := ""
			if it.Product != nil {
				name = it.Product.Name
			}
			sub := it.Subtotal()
			view.Items = append(view.Items, OrderItemView{
				Product:      name,
				Quantity:     it.Quantity,
				PricePerUnit: it.UnitPrice,
				Subtotal:     sub,
			})
			view.TotalAmount = view.TotalAmount.Add(sub)
		}
		out.Orders[status] = append(out.Orders[status], view)
	}
	for st, list := range out.Orders {
		out.Counts[st] = len(list)
		out.TotalOrders += len(list)
	}
	return out, nil
}

// supplierStatus is the supplier's own portion status. Once the supplier has
// accepted, later order stages (out for delivery, completed) show through.
func supplierStatus(o *model.Order, supplierID string) model.OrderStatus {
	for _, p := range o.Suppliers {
		if p.SupplierID != supplierID {
			continue
		}
		if p.Status == model.OrderAccepted && o.Status != model.OrderPendingAcceptance && o.Status != model.OrderDeclined {
			return o.Status
		}
		return p.Status
	}
	return o.Status
}

func (s *Service) dayFilter(v string) (time.Time, bool) {
	today := model.Day(s.now())
	switch v = strings.ToLower(strings.TrimSpace(v)); v {
	case "":
		return time.Time{}, false
	case "today":
		return today, true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type StatusUpdate struct {
	Success     bool              `json:"success"`
	OrderID     string            `json:"order_id"`
	NewStatus   model.OrderStatus `json:"new_status"`
	OrderStatus model.OrderStatus `json:"order_status"`
	Message     string            `json:"message"`
}

func (s *Service) UpdateOrderStatus(ctx context.Context, actor *model.User, orderID string, status model.OrderStatus, reason string) (*StatusUpdate, error) {
	if err := requireRole(actor, model.RoleSupplier, "update order status"); err != nil {
		return nil, err
	}
	res, err := s.orders.Transition(ctx, actor, strings.TrimSpace(orderID), status, reason)
	if err != nil {
		return nil, err
	}
	return &StatusUpdate{
		Success:     true,
		OrderID:     res.OrderID,
		NewStatus:   res.SupplierStatus,
		OrderStatus: res.OrderStatus,
		Message:     fmt.Sprintf("Order %s successfully", res.SupplierStatus),
	}, nil
}

type GeneratedImage struct {
	ImageURL string `json:"image_url"`
}

func (s *Service) GenerateProductImage(ctx context.Context, actor *model.User, description string) (*GeneratedImage, error) {
	if err := requireRole(actor, model.RoleSupplier, "generate product images"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: description is empty", model.ErrValidation)
	}
	if s.images == nil {
		return nil, errors.New("image generation is not configured")
	}
	url, err := s.images.Generate(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	return &GeneratedImage{ImageURL: url}, nil
}
