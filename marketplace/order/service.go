package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/notify"
	"github.com/tanpawarit/kcartbot/marketplace/store"
	"github.com/tanpawarit/kcartbot/pkg/keylock"
)

// Notifier records an event durably and pushes it to the user's live sessions.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) (*notify.Delivery, error)
}

type ItemRequest struct {
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	SupplierID  string  `json:"supplier_id"`
}

type Delivery struct {
	Date     string `json:"delivery_date"`
	Location string `json:"delivery_location"`
}

// Line is one resolved line item as shown to customers and suppliers.
type Line struct {
	ProductName string          `json:"product"`
	Unit        string          `json:"unit"`
	SupplierID  string          `json:"supplier_id"`
	Quantity    float64         `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price_per_unit"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Created struct {
	Order *model.Order    `json:"-"`
	Items []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
	// Dropped lists requests that did not resolve to a product and an active listing.
	Dropped []ItemRequest `json:"dropped,omitempty"`
	// Notified holds one delivery per distinct supplier among Items.
	Notified map[string]*notify.Delivery `json:"-"`
}

type Transitioned struct {
	OrderID        string            `json:"order_id"`
	SupplierStatus model.OrderStatus `json:"new_status"`
	OrderStatus    model.OrderStatus `json:"order_status"`
	Delivery       *notify.Delivery  `json:"-"`
}

type Service struct {
	store    *store.Store
	notifier Notifier
	locks    *keylock.Map
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

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

func NewService(st *store.Store, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    st,
		notifier: notifier,
		locks:    keylock.New(),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type resolved struct {
	product *model.Product
	listing *model.InventoryListing
	req     ItemRequest
}

// Create places an order with every request that resolves and drops the rest.
// An order is created even when nothing resolves.
func (s *Service) Create(ctx context.Context, customer *model.User, reqs []ItemRequest, delivery Delivery) (*Created, error) {
	if !customer.IsCustomer() {
		return nil, fmt.Errorf("%w: only customers can create orders", model.ErrForbidden)
	}

	var (
		ok      []resolved
		dropped []ItemRequest
	)
	for _, req := range reqs {
		r, err := s.resolve(ctx, req)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation) {
				s.log.Debug().Err(err).Str("product", req.ProductName).Str("supplier_id", req.SupplierID).Msg("order item dropped")
				dropped = append(dropped, req)
				continue
			}
			return nil, err
		}
		ok = append(ok, r)
	}

	now := s.now().UTC()
	o := &model.Order{
		ID:               uuid.NewString(),
		CustomerID:       customer.ID,
		Status:           model.OrderPendingAcceptance,
		DeliveryDate:     strings.TrimSpace(delivery.Date),
		DeliveryLocation: strings.TrimSpace(delivery.Location),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	items := make([]*model.OrderLineItem, 0, len(ok))
	lines := make([]Line, 0, len(ok))
	var suppliers []string
	bySupplier := map[string][]Line{}
	total := decimal.Zero
	for i, r := range ok {
		item := &model.OrderLineItem{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			ProductID:  r.product.ID,
			SupplierID: r.listing.SupplierID,
			Quantity:   r.req.Quantity,
			UnitPrice:  r.listing.Price,
			CreatedAt:  now.Add(time.Duration(i) * time.Microsecond),
		}
		items = append(items, item)

		line := Line{
			ProductName: r.product.Name,
			Unit:        r.product.Unit,
			SupplierID:  item.SupplierID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal(),
		}
		lines = append(lines, line)
		total = total.Add(line.Subtotal)

		if _, seen := bySupplier[item.SupplierID]; !seen {
			suppliers = append(suppliers, item.SupplierID)
		}
		bySupplier[item.SupplierID] = append(bySupplier[item.SupplierID], line)
	}

	portions := make([]*model.SupplierOrder, 0, len(suppliers))
	for _, sid := range suppliers {
		portions = append(portions, &model.SupplierOrder{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			SupplierID: sid,
			Status:     model.OrderPendingAcceptance,
		})
	}

	if err := s.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		return tx.InsertOrder(ctx, o, items, portions)
	}); err != nil {
		return nil, err
	}
	o.Items = items
	o.Suppliers = portions

	s.log.Info().
		Str("order_id", o.ID).
		Str("customer_id", customer.ID).
		Int("requested", len(reqs)).
		Int("items", len(items)).
		Int("suppliers", len(suppliers)).
		Msg("order created")

	out := &Created{Order: o, Items: lines, Total: total, Dropped: dropped, Notified: map[string]*notify.Delivery{}}
	// The order is committed; its notifications must be written even if the caller goes away.
	notifyCtx := context.WithoutCancel(ctx)
	for _, sid := range suppliers {
		group := bySupplier[sid]
		subtotal := decimal.Zero
		for _, l := range group {
			subtotal = subtotal.Add(l.Subtotal)
		}
		d, err := s.notifier.Notify(notifyCtx, notify.Event{
			UserID:  sid,
			Message: supplierMessage(o, customer.Name, group, subtotal),
			Type:    model.NotificationOrderUpdate,
			Turn:    model.TurnOrderNotification,
			OrderID: o.ID,
		})
		if err != nil {
			s.log.Error().Err(err).Str("order_id", o.ID).Str("supplier_id", sid).Msg("supplier notification failed")
			continue
		}
		out.Notified[sid] = d
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, req ItemRequest) (resolved, error) {
	if req.Quantity <= 0 {
		return resolved{}, fmt.Errorf("%w: quantity must be positive", model.ErrValidation)
	}
	if strings.TrimSpace(req.SupplierID) == "" {
		return resolved{}, fmt.Errorf("%w: supplier id is empty", model.ErrValidation)
	}
	product, err := s.store.FindProduct(ctx, req.ProductName)
	if err != nil {
		return resolved{}, err
	}
	listing, err := s.store.ActiveListing(ctx, req.SupplierID, product.ID)
	if err != nil {
		return resolved{}, err
	}
	return resolved{product: product, listing: listing, req: req}, nil
}

// Transition records the supplier's response to its portion of the order and
// recomputes the order status. Checks run in order: order exists, supplier
// participates, status is a supplier response, portion is still pending.
func (s *Service) Transition(ctx context.Context, supplier *model.User, orderID string, status model.OrderStatus, reason string) (*Transitioned, error) {
	if !supplier.IsSupplier() {
		return nil, fmt.Errorf("%w: only suppliers can update order status", model.ErrForbidden)
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	var (
		o         *model.Order
		aggregate model.OrderStatus
	)
	now := s.now().UTC()
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		// Other instances responding for other suppliers wait here, so each
		// recompute sees every committed portion.
		if err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		o, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		items, err := tx.SupplierItems(ctx, orderID, supplier.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: supplier has no items in order %s", model.ErrForbidden, orderID)
		}

		if !IsSupplierResponse(status) {
			return fmt.Errorf("%w: status must be one of [accepted declined], got %q", model.ErrValidation, status)
		}

		moved, err := tx.RespondSupplierOrder(ctx, orderID, supplier.ID, status, reason, now)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: supplier already responded to order %s", model.ErrInvalidTransition, orderID)
		}

		portions, err := tx.SupplierOrders(ctx, orderID)
		if err != nil {
			return err
		}
		statuses := make([]model.OrderStatus, 0, len(portions))
		for _, p := range portions {
			statuses = append(statuses, p.Status)
		}
		aggregate = Aggregate(statuses)
		if aggregate == o.Status {
			return nil
		}
		if !CanTransition(o.Status, aggregate) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, o.Status, aggregate)
		}
		return tx.SetOrderStatus(ctx, orderID, aggregate, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", orderID).
		Str("supplier_id", supplier.ID).
		Str("response", string(status)).
		Str("order_status", string(aggregate)).
		Msg("order transitioned")

	out := &Transitioned{OrderID: orderID, SupplierStatus: status, OrderStatus: aggregate}
	d, err := s.notifier.Notify(context.WithoutCancel(ctx), notify.Event{
		UserID:  o.CustomerID,
		Message: customerMessage(orderID, supplier.Name, status, reason),
		Type:    model.NotificationOrderUpdate,
		Turn:    model.TurnOrderResponse,
		OrderID: orderID,
	})
	if err != nil {
		s.log.Error().Err(err).Str("order_id", orderID).Msg("customer notification failed")
		return out, nil
	}
	out.Delivery = d
	return out, nil
}
