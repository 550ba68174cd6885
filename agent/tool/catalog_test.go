package tool

import (
	"testing"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
)

func TestInfosFollowCapabilitySet(t *testing.T) {
	t.Parallel()

	set := capabilityx.For(&capabilityx.Actor{ID: "c1", Role: capabilityx.RoleCustomer})
	infos := Infos(set.Operations)
	if len(infos) != 3 {
		t.Fatalf("expected 3 tool infos, got %d", len(infos))
	}
	for i, op := range set.Operations {
		if infos[i].Name != string(op) {
			t.Fatalf("infos[%d] = %s, want %s", i, infos[i].Name, op)
		}
	}
}

func TestEveryOperationHasSchema(t *testing.T) {
	t.Parallel()

	for _, role := range []capabilityx.Role{capabilityx.RoleAnonymous, capabilityx.RoleCustomer, capabilityx.RoleSupplier} {
		set := capabilityx.For(&capabilityx.Actor{ID: "x", Role: role})
		for _, op := range set.Operations {
			info, ok := catalog[op]
			if !ok {
				t.Fatalf("operation %s has no tool schema", op)
			}
			if info.Desc == "" || info.ParamsOneOf == nil {
				t.Fatalf("operation %s has an incomplete schema", op)
			}
		}
	}
}

func TestInfosSkipsUnknownOperations(t *testing.T) {
	t.Parallel()

	infos := Infos([]capabilityx.Operation{"math.evaluate", capabilityx.OpKnowledgeSearch})
	if len(infos) != 1 || infos[0].Name != "knowledge_search" {
		t.Fatalf("unexpected infos: %v", infos)
	}
}
