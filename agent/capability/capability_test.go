package capability

import (
	"strings"
	"testing"
)

func TestForAnonymous(t *testing.T) {
	t.Parallel()

	for _, actor := range []*Actor{nil, {}, {ID: "  ", Role: RoleSupplier}} {
		set := For(actor)
		if set.Role != RoleAnonymous {
			t.Fatalf("For(%+v).Role = %s, want anonymous", actor, set.Role)
		}
		if len(set.Operations) != 1 || set.Operations[0] != OpKnowledgeSearch {
			t.Fatalf("unexpected anonymous operations: %v", set.Operations)
		}
	}
}

func TestForCustomerAndSupplier(t *testing.T) {
	t.Parallel()

	customer := For(&Actor{ID: "c1", Role: RoleCustomer})
	if !customer.Allows(OpCreateOrder) || !customer.Allows(OpFindProductListings) {
		t.Fatalf("customer set is missing ordering operations: %v", customer.Operations)
	}
	if customer.Allows(OpUpdateOrderStatus) {
		t.Fatal("customer must not update order status")
	}

	supplier := For(&Actor{ID: "s1", Role: RoleSupplier})
	if len(supplier.Operations) != 8 {
		t.Fatalf("supplier operations = %d, want 8", len(supplier.Operations))
	}
	if supplier.Allows(OpCreateOrder) {
		t.Fatal("supplier must not create orders")
	}
}

func TestRoleSetsDisjointExceptKnowledgeSearch(t *testing.T) {
	t.Parallel()

	seen := map[Operation]Role{}
	for _, role := range []Role{RoleAnonymous, RoleCustomer, RoleSupplier} {
		for _, op := range For(&Actor{ID: "x", Role: role}).Operations {
			if op == OpKnowledgeSearch {
				continue
			}
			if prev, ok := seen[op]; ok {
				t.Fatalf("operation %s granted to both %s and %s", op, prev, role)
			}
			seen[op] = role
		}
	}
	for _, role := range []Role{RoleAnonymous, RoleCustomer, RoleSupplier} {
		if !For(&Actor{ID: "x", Role: role}).Allows(OpKnowledgeSearch) {
			t.Fatalf("%s lacks knowledge_search", role)
		}
	}
}

func TestForReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	a := For(&Actor{ID: "c1", Role: RoleCustomer})
	a.Operations[0] = "tampered"

	b := For(&Actor{ID: "c2", Role: RoleCustomer})
	if b.Operations[0] != OpKnowledgeSearch {
		t.Fatalf("table was mutated through a returned set: %v", b.Operations)
	}
}

func TestInstructionsComposeBaseAndRole(t *testing.T) {
	t.Parallel()

	supplier := For(&Actor{ID: "s1", Role: RoleSupplier})
	if !strings.HasPrefix(supplier.Instructions, "You are KcartBot") {
		t.Fatalf("instructions must start with the base block: %q", supplier.Instructions[:40])
	}
	if !strings.Contains(supplier.Instructions, "logged-in supplier") {
		t.Fatal("supplier instructions must include the supplier block")
	}
	if strings.Contains(supplier.Instructions, "logged-in customer") {
		t.Fatal("supplier instructions must not include the customer block")
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	cases := map[string]Role{
		"customer":  RoleCustomer,
		" Supplier": RoleSupplier,
		"admin":     RoleAnonymous,
		"":          RoleAnonymous,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Fatalf("ParseRole(%q) = %s, want %s", in, got, want)
		}
	}
}
