package order

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

const currency = "ETB"

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + currency
}

func supplierMessage(o *model.Order, customer string, items []Line, subtotal decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("🛒 **NEW ORDER RECEIVED**\n\n")
	fmt.Fprintf(&b, "**Order ID:** #%s\n", o.ID)
	fmt.Fprintf(&b, "**Customer:** %s\n", customer)
	fmt.Fprintf(&b, "**Order Date:** %s\n", o.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Delivery Date:** %s\n", orDash(o.DeliveryDate))
	fmt.Fprintf(&b, "**Delivery Location:** %s\n\n", orDash(o.DeliveryLocation))
	b.WriteString("**Items Ordered:**\n")
	for _, it := range items {
		fmt.Fprintf(&b, "• %s: %s %s @ %s = %s\n", it.ProductName, formatQuantity(it.Quantity), it.Unit, formatMoney(it.UnitPrice), formatMoney(it.Subtotal))
	}
	fmt.Fprintf(&b, "\n**Total Amount:** %s\n", formatMoney(subtotal))
	b.WriteString("**Status:** Pending Your Response\n\n")
	b.WriteString("Please review the order details and respond by accepting or declining this order.")
	return b.String()
}

func customerMessage(orderID, supplier string, status model.OrderStatus, reason string) string {
	mark, verb := "✅", "accepted ✅"
	if status == model.OrderDeclined {
		mark, verb = "❌", "declined ❌"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **ORDER %s**\n\n", mark, strings.ToUpper(string(status)))
	fmt.Fprintf(&b, "Your order **#%s** has been **%s** by %s.", orderID, verb, supplier)
	switch {
	case status == model.OrderDeclined && strings.TrimSpace(reason) != "":
		fmt.Fprintf(&b, "\n\n**Reason:** %s", strings.TrimSpace(reason))
	case status == model.OrderAccepted:
		b.WriteString("\n\nYou will receive updates about your order delivery soon.")
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
