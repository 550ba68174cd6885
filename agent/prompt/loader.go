package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/base.txt
	baseRaw string

	//go:embed template/anonymous.txt
	anonymousRaw string

	//go:embed template/customer.txt
	customerRaw string

	//go:embed template/supplier.txt
	supplierRaw string
)

// PromptSet holds the system instruction blocks. Base applies to every actor and
// exactly one of the role blocks is appended to it.
type PromptSet struct {
	Base      string
	Anonymous string
	Customer  string
	Supplier  string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Base:      strings.TrimSpace(baseRaw),
		Anonymous: strings.TrimSpace(anonymousRaw),
		Customer:  strings.TrimSpace(customerRaw),
		Supplier:  strings.TrimSpace(supplierRaw),
	}
}
