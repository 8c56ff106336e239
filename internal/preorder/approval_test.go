package preorder

import (
	"testing"

	"panaderia-be/internal/order"

	"github.com/stretchr/testify/assert"
)

func TestApprovalPolicy_RequiresApproval(t *testing.T) {
	policy := ApprovalPolicy{CountLimit: 100, WeightLimit: 100}

	tests := []struct {
		name  string
		items []order.LineItem
		want  bool
	}{
		{
			name: "BelowBothLimits",
			items: []order.LineItem{
				{ProductID: 1, Unit: order.UnitCount, Quantity: 99},
				{ProductID: 2, Unit: order.UnitWeight, Quantity: 99.999},
			},
			want: false,
		},
		{
			name: "CountAtLimit",
			items: []order.LineItem{
				{ProductID: 1, Unit: order.UnitCount, Quantity: 100},
			},
			want: true,
		},
		{
			name: "WeightAtLimit",
			items: []order.LineItem{
				{ProductID: 1, Unit: order.UnitWeight, Quantity: 100},
			},
			want: true,
		},
		{
			name: "SingleItemOverCount",
			items: []order.LineItem{
				{ProductID: 1, Unit: order.UnitCount, Quantity: 2},
				{ProductID: 2, Unit: order.UnitCount, Quantity: 150},
			},
			want: true,
		},
		{
			name: "QuantitiesDoNotAccumulateAcrossItems",
			items: []order.LineItem{
				{ProductID: 1, Unit: order.UnitCount, Quantity: 60},
				{ProductID: 2, Unit: order.UnitCount, Quantity: 60},
			},
			want: false,
		},
		{
			name:  "NoItems",
			items: nil,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.RequiresApproval(tt.items))
		})
	}
}
