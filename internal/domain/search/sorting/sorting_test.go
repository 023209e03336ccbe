package sorting

import "testing"

func TestOrder_IsValid(t *testing.T) {
	tests := []struct {
		order Order
		want  bool
	}{
		{Relevance, true},
		{Newest, true},
		{Updated, true},
		{Rating, true},
		{Downloads, true},
		{Trending, true},
		{"", false},
		{"popular", false},
		{"NEWEST", false},
	}
	for _, tc := range tests {
		if got := tc.order.IsValid(); got != tc.want {
			t.Errorf("Order(%q).IsValid() = %v, want %v", tc.order, got, tc.want)
		}
	}
}
