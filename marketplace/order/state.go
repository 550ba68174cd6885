package order

import "github.com/tanpawarit/kcartbot/marketplace/model"

var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPendingAcceptance: {model.OrderAccepted, model.OrderDeclined},
	model.OrderAccepted:          {model.OrderOutForDelivery},
	model.OrderOutForDelivery:    {model.OrderCompleted},
}

func CanTransition(from, to model.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsSupplierResponse reports whether status is a value a supplier may answer with.
func IsSupplierResponse(status model.OrderStatus) bool {
	return status == model.OrderAccepted || status == model.OrderDeclined
}

// Aggregate derives the order status from its supplier portions: any pending
// keeps the order pending, all declined declines it, anything else is accepted.
// An order with no portions stays pending.
func Aggregate(portions []model.OrderStatus) model.OrderStatus {
	if len(portions) == 0 {
		return model.OrderPendingAcceptance
	}
	declined := 0
	for _, st := range portions {
		switch st {
		case model.OrderPendingAcceptance:
			return model.OrderPendingAcceptance
		case model.OrderDeclined:
			declined++
		}
	}
	if declined == len(portions) {
		return model.OrderDeclined
	}
	return model.OrderAccepted
}
