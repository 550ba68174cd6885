package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]model.OrderStatus{
		{model.OrderPendingAcceptance, model.OrderAccepted},
		{model.OrderPendingAcceptance, model.OrderDeclined},
		{model.OrderAccepted, model.OrderOutForDelivery},
		{model.OrderOutForDelivery, model.OrderCompleted},
	}
	for _, from := range model.OrderStatuses {
		for _, to := range model.OrderStatuses {
			want := false
			for _, a := range allowed {
				if a[0] == from && a[1] == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestAggregate(t *testing.T) {
	p, a, d := model.OrderPendingAcceptance, model.OrderAccepted, model.OrderDeclined
	cases := []struct {
		in   []model.OrderStatus
		want model.OrderStatus
	}{
		{nil, p},
		{[]model.OrderStatus{p}, p},
		{[]model.OrderStatus{a, p}, p},
		{[]model.OrderStatus{d, p}, p},
		{[]model.OrderStatus{d}, d},
		{[]model.OrderStatus{d, d}, d},
		{[]model.OrderStatus{a, d}, a},
		{[]model.OrderStatus{a, a}, a},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Aggregate(tc.in), "%v", tc.in)
	}
}
