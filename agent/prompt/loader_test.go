package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSetNonEmpty(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	for name, body := range map[string]string{
		"base":      set.Base,
		"anonymous": set.Anonymous,
		"customer":  set.Customer,
		"supplier":  set.Supplier,
	} {
		if body == "" {
			t.Fatalf("%s prompt is empty", name)
		}
		if body != strings.TrimSpace(body) {
			t.Fatalf("%s prompt is not trimmed", name)
		}
	}
}

func TestRolePromptsMentionOnlyTheirTools(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if strings.Contains(set.Customer, "add_or_update_inventory") {
		t.Fatal("customer prompt must not mention supplier tools")
	}
	if strings.Contains(set.Supplier, "create_order") {
		t.Fatal("supplier prompt must not mention customer tools")
	}
	if !strings.Contains(set.Anonymous, "log in") {
		t.Fatal("anonymous prompt must ask the user to log in")
	}
}
