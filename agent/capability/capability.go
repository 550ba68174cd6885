package capability

import (
	"slices"
	"strings"

	promptx "github.com/tanpawarit/kcartbot/agent/prompt"
)

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleCustomer  Role = "customer"
	RoleSupplier  Role = "supplier"
)

// ParseRole maps a stored role name to a Role. Unknown names are anonymous.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleSupplier:
		return r
	default:
		return RoleAnonymous
	}
}

type Operation string

const (
	OpKnowledgeSearch Operation = "knowledge_search"

	OpFindProductListings Operation = "find_product_listings"
	OpCreateOrder         Operation = "create_order"

	OpCheckExistingInventory Operation = "check_existing_inventory"
	OpGetPricingSuggestion   Operation = "get_pricing_suggestion"
	OpAddOrUpdateInventory   Operation = "add_or_update_inventory"
	OpGetMyInventory         Operation = "get_my_inventory"
	OpGetMyOrders            Operation = "get_my_orders"
	OpUpdateOrderStatus      Operation = "update_order_status"
	OpGenerateProductImage   Operation = "generate_product_image"
)

// Actor is whoever sent the current turn. A nil Actor or one without an ID is anonymous.
type Actor struct {
	ID   string
	Name string
	Role Role
}

func (a *Actor) Authenticated() bool {
	return a != nil && strings.TrimSpace(a.ID) != ""
}

func (a *Actor) EffectiveRole() Role {
	if !a.Authenticated() {
		return RoleAnonymous
	}
	switch a.Role {
	case RoleCustomer, RoleSupplier:
		return a.Role
	default:
		return RoleAnonymous
	}
}

// Set is what one actor may do during a turn.
type Set struct {
	Role         Role
	Operations   []Operation
	Instructions string
}

func (s Set) Allows(op Operation) bool {
	return slices.Contains(s.Operations, op)
}

var table = buildTable(promptx.LoadPromptSet())

func buildTable(p promptx.PromptSet) map[Role]Set {
	join := func(role string) string {
		return p.Base + "\n\n" + role
	}
	return map[Role]Set{
		RoleAnonymous: {
			Role:         RoleAnonymous,
			Operations:   []Operation{OpKnowledgeSearch},
			Instructions: join(p.Anonymous),
		},
		RoleCustomer: {
			Role: RoleCustomer,
			Operations: []Operation{
				OpKnowledgeSearch,
				OpFindProductListings,
				OpCreateOrder,
			},
			Instructions: join(p.Customer),
		},
		RoleSupplier: {
			Role: RoleSupplier,
			Operations: []Operation{
				OpKnowledgeSearch,
				OpCheckExistingInventory,
				OpGetPricingSuggestion,
				OpAddOrUpdateInventory,
				OpGetMyInventory,
				OpGetMyOrders,
				OpUpdateOrderStatus,
				OpGenerateProductImage,
			},
			Instructions: join(p.Supplier),
		},
	}
}

// For returns the capability set of actor. It is a pure table lookup; the returned
// Operations slice is a copy the caller may keep.
func For(actor *Actor) Set {
	set := table[actor.EffectiveRole()]
	set.Operations = slices.Clone(set.Operations)
	return set
}
