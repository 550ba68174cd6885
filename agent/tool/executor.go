package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/ops"
	"github.com/tanpawarit/kcartbot/marketplace/order"
)

// Operations is the marketplace surface the executor calls into. *ops.Service implements it.
type Operations interface {
	KnowledgeSearch(ctx context.Context, query string) string
	FindProductListings(ctx context.Context, actor *model.User, productName string, quantity float64) ([]ops.ListingOption, error)
	CreateOrder(ctx context.Context, actor *model.User, items []order.ItemRequest, delivery order.Delivery) (*ops.OrderResult, error)
	CheckExistingInventory(ctx context.Context, actor *model.User, productName string) (*ops.ExistingInventory, error)
	GetPricingSuggestion(ctx context.Context, actor *model.User, productName string, days int) (*ops.PricingSuggestion, error)
	AddOrUpdateInventory(ctx context.Context, actor *model.User, in ops.InventoryInput) (*ops.InventoryChange, error)
	GetMyInventory(ctx context.Context, actor *model.User) (*ops.SupplierInventory, error)
	GetMyOrders(ctx context.Context, actor *model.User, statusFilter, dateFilter string) (*ops.SupplierOrders, error)
	UpdateOrderStatus(ctx context.Context, actor *model.User, orderID string, status model.OrderStatus, reason string) (*ops.StatusUpdate, error)
	GenerateProductImage(ctx context.Context, actor *model.User, description string) (*ops.GeneratedImage, error)
}

var _ Operations = (*ops.Service)(nil)

// Executor runs one tool call for actor. It never returns an error: failures,
// including panics in handlers, come back in ToolResult.Error.
type Executor func(ctx context.Context, actor *capabilityx.Actor, req contractx.ToolRequest) contractx.ToolResult

func NewExecutor(svc Operations, log zerolog.Logger) Executor {
	return func(ctx context.Context, actor *capabilityx.Actor, req contractx.ToolRequest) (out contractx.ToolResult) {
		out.Tool = req.Tool
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("tool", req.Tool).
					Interface("panic", r).
					Msg("tool handler panicked")
				out = contractx.ToolResult{Tool: req.Tool, Error: fmt.Sprintf("tool %s failed unexpectedly", req.Tool)}
			}
		}()

		result, err := execute(ctx, svc, toUser(actor), req)
		if err != nil {
			log.Debug().Err(err).Str("tool", req.Tool).Msg("tool returned error")
			out.Error = err.Error()
			return out
		}
		out.Result = result
		return out
	}
}

// DefaultExecutor answers every call as unavailable.
func DefaultExecutor() Executor {
	return func(_ context.Context, actor *capabilityx.Actor, req contractx.ToolRequest) contractx.ToolResult {
		return contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool=%s is unavailable for role=%s", req.Tool, actor.EffectiveRole()),
		}
	}
}

func toUser(actor *capabilityx.Actor) *model.User {
	if !actor.Authenticated() {
		return nil
	}
	u := &model.User{ID: actor.ID, Name: actor.Name}
	switch actor.EffectiveRole() {
	case capabilityx.RoleCustomer:
		u.Role = model.RoleCustomer
	case capabilityx.RoleSupplier:
		u.Role = model.RoleSupplier
	}
	return u
}

func execute(ctx context.Context, svc Operations, user *model.User, req contractx.ToolRequest) (any, error) {
	switch capabilityx.Operation(req.Tool) {
	case capabilityx.OpKnowledgeSearch:
		var in struct {
			Query string `json:"query"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return map[string]string{"answer": svc.KnowledgeSearch(ctx, in.Query)}, nil

	case capabilityx.OpFindProductListings:
		var in struct {
			ProductName string  `json:"product_name"`
			Quantity    float64 `json:"quantity"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		listings, err := svc.FindProductListings(ctx, user, in.ProductName, in.Quantity)
		if err != nil {
			return nil, err
		}
		return map[string]any{"product_name": in.ProductName, "suppliers": listings}, nil

	case capabilityx.OpCreateOrder:
		var in struct {
			Items            itemList `json:"items"`
			DeliveryDate     string   `json:"delivery_date"`
			DeliveryLocation string   `json:"delivery_location"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return svc.CreateOrder(ctx, user, []order.ItemRequest(in.Items), order.Delivery{Date: in.DeliveryDate, Location: in.DeliveryLocation})

	case capabilityx.OpCheckExistingInventory:
		var in struct {
			ProductName string `json:"product_name"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return svc.CheckExistingInventory(ctx, user, in.ProductName)

	case capabilityx.OpGetPricingSuggestion:
		var in struct {
			ProductName string `json:"product_name"`
			Days        int    `json:"days"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return svc.GetPricingSuggestion(ctx, user, in.ProductName, in.Days)

	case capabilityx.OpAddOrUpdateInventory:
		var in struct {
			ProductName   string          `json:"product_name"`
			Quantity      float64         `json:"quantity"`
			Price         decimal.Decimal `json:"price"`
			AvailableDate string          `json:"available_date"`
			ExpiryDate    string          `json:"expiry_date"`
			ImageURL      string          `json:"image_url"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return svc.AddOrUpdateInventory(ctx, user, ops.InventoryInput{
			ProductName:   in.ProductName,
			Quantity:      in.Quantity,
			Price:         in.Price,
			AvailableDate: in.AvailableDate,
			ExpiryDate:    in.ExpiryDate,
			ImageURL:      in.ImageURL,
		})

	case capabilityx.OpGetMyInventory:
		return svc.GetMyInventory(ctx, user)

	case capabilityx.OpGetMyOrders:
		var in struct {
			StatusFilter string `json:"status_filter"`
			DateFilter   string `json:"date_filter"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return svc.GetMyOrders(ctx, user, in.StatusFilter, in.DateFilter)

	case capabilityx.OpUpdateOrderStatus:
		var in struct {
			OrderID       string `json:"order_id"`
			NewStatus     string `json:"new_status"`
			DeclineReason string `json:"decline_reason"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return svc.UpdateOrderStatus(ctx, user, in.OrderID, model.OrderStatus(in.NewStatus), in.DeclineReason)

	case capabilityx.OpGenerateProductImage:
		var in struct {
			ProductDescription string `json:"product_description"`
		}
		if err := decodeArgs(req.Args, &in); err != nil {
			return nil, err
		}
		return svc.GenerateProductImage(ctx, user, in.ProductDescription)

	default:
		return nil, fmt.Errorf("%w: unknown tool %q", contractx.ErrToolUnavailable, req.Tool)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: encode tool args: %v", contractx.ErrSchemaViolation, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid tool args: %v", contractx.ErrSchemaViolation, err)
	}
	return nil
}

// itemList accepts either a JSON array of items or a string holding one;
// models sometimes send the latter.
type itemList []order.ItemRequest

func (l *itemList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	var items []order.ItemRequest
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = items
	return nil
}
