package tool

import (
	"github.com/cloudwego/eino/schema"
	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
)

var orderStatuses = []string{"pending_acceptance", "accepted", "declined", "out_for_delivery", "completed"}

var catalog = map[capabilityx.Operation]*schema.ToolInfo{
	capabilityx.OpKnowledgeSearch: {
		Name: string(capabilityx.OpKnowledgeSearch),
		Desc: "Search the marketplace knowledge base for company policies, services and procedures. Not for general farming, storage or recipe questions.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "Search query in English", Required: true},
		}),
	},
	capabilityx.OpFindProductListings: {
		Name: string(capabilityx.OpFindProductListings),
		Desc: "Find suppliers with an active listing of a product and at least the requested quantity, cheapest first.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_name": {Type: schema.String, Desc: "English product name", Required: true},
			"quantity":     {Type: schema.Number, Desc: "Quantity needed", Required: true},
		}),
	},
	capabilityx.OpCreateOrder: {
		Name: string(capabilityx.OpCreateOrder),
		Desc: "Create an order for the customer. Items without a matching supplier listing are left out and reported.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"items": {
				Type:     schema.Array,
				Desc:     "Items to order",
				Required: true,
				ElemInfo: &schema.ParameterInfo{
					Type: schema.Object,
					SubParams: map[string]*schema.ParameterInfo{
						"product_name": {Type: schema.String, Desc: "English product name", Required: true},
						"quantity":     {Type: schema.Number, Desc: "Quantity to order", Required: true},
						"supplier_id":  {Type: schema.String, Desc: "Supplier id from find_product_listings", Required: true},
					},
				},
			},
			"delivery_date":     {Type: schema.String, Desc: "Delivery date, YYYY-MM-DD", Required: true},
			"delivery_location": {Type: schema.String, Desc: "Delivery address", Required: true},
		}),
	},
	capabilityx.OpCheckExistingInventory: {
		Name: string(capabilityx.OpCheckExistingInventory),
		Desc: "Check whether the supplier already lists a product.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_name": {Type: schema.String, Desc: "English product name", Required: true},
		}),
	},
	capabilityx.OpGetPricingSuggestion: {
		Name: string(capabilityx.OpGetPricingSuggestion),
		Desc: "Competitor price averages per market tier, the highest-volume sale price of the last 30 days and a suggested price range.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_name": {Type: schema.String, Desc: "English product name", Required: true},
			"days":         {Type: schema.Integer, Desc: "Analysis window in days, default 30"},
		}),
	},
	capabilityx.OpAddOrUpdateInventory: {
		Name: string(capabilityx.OpAddOrUpdateInventory),
		Desc: "Create the supplier's listing for a product or overwrite the existing one.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_name":   {Type: schema.String, Desc: "English product name", Required: true},
			"quantity":       {Type: schema.Number, Desc: "Quantity available", Required: true},
			"price":          {Type: schema.Number, Desc: "Price per unit in ETB", Required: true},
			"available_date": {Type: schema.String, Desc: "Available from, YYYY-MM-DD, default today"},
			"expiry_date":    {Type: schema.String, Desc: "Expiry date, YYYY-MM-DD"},
			"image_url":      {Type: schema.String, Desc: "Accepted image url from generate_product_image"},
		}),
	},
	capabilityx.OpGetMyInventory: {
		Name:        string(capabilityx.OpGetMyInventory),
		Desc:        "List the supplier's active listings and those expiring within five days.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	},
	capabilityx.OpGetMyOrders: {
		Name: string(capabilityx.OpGetMyOrders),
		Desc: "List orders that contain the supplier's products, grouped by status.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"status_filter": {Type: schema.String, Desc: "Only orders in this status", Enum: orderStatuses},
			"date_filter":   {Type: schema.String, Desc: "today, yesterday or YYYY-MM-DD"},
		}),
	},
	capabilityx.OpUpdateOrderStatus: {
		Name: string(capabilityx.OpUpdateOrderStatus),
		Desc: "Accept or decline the supplier's part of an order.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"order_id":       {Type: schema.String, Desc: "Order id", Required: true},
			"new_status":     {Type: schema.String, Desc: "accepted or declined", Required: true, Enum: []string{"accepted", "declined"}},
			"decline_reason": {Type: schema.String, Desc: "Reason shown to the customer when declining"},
		}),
	},
	capabilityx.OpGenerateProductImage: {
		Name: string(capabilityx.OpGenerateProductImage),
		Desc: "Generate a product photo from a short description and return its url for the supplier to review.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_description": {Type: schema.String, Desc: "What the photo should show", Required: true},
		}),
	},
}

// Infos returns the tool schemas for ops in order. Operations without a schema are skipped.
func Infos(ops []capabilityx.Operation) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(ops))
	for _, op := range ops {
		if info, ok := catalog[op]; ok {
			out = append(out, info)
		}
	}
	return out
}
