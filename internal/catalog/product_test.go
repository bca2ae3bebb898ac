package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	p := Product{ID: "1", Category: "shirts", Brand: "acme"}

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty", Filter{}, true},
		{"category", Filter{Category: "shirts"}, true},
		{"brand", Filter{Brand: "acme"}, true},
		{"both", Filter{Category: "shirts", Brand: "acme"}, true},
		{"wrong category", Filter{Category: "pants"}, false},
		{"wrong brand", Filter{Category: "shirts", Brand: "other"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Matches(p))
		})
	}
}

func TestHasSize(t *testing.T) {
	p := Product{Sizes: []string{"S", "M"}}
	assert.True(t, p.HasSize("M"))
	assert.False(t, p.HasSize("XL"))
	assert.False(t, Product{}.HasSize("M"))
}
