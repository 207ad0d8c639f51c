package model

import (
	"math"
	"testing"
)

func TestOrderTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
		want  float64
	}{
		{name: "no line items", items: nil, want: 0},
		{
			name:  "single item uses snapshot price",
			items: []LineItem{{ProductID: 1, Quantity: 3, PriceAtOrder: 9.99}},
			want:  29.97,
		},
		{
			name: "several items",
			items: []LineItem{
				{ProductID: 1, Quantity: 2, PriceAtOrder: 10},
				{ProductID: 2, Quantity: 1, PriceAtOrder: 0.5},
			},
			want: 20.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Products: tt.items}
			if got := o.Total(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Total() = %v, want %v", got, tt.want)
			}
		})
	}
}
