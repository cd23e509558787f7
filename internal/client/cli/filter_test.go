package cli

import (
	"testing"

	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	base := models.DefaultFilter().WithPage(3)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no args keeps filter", args: nil, want: "page=3&size=10&sort=createdAt%2Cdesc"},
		{name: "change resets page", args: []string{"category=tools"}, want: "category=tools&page=0&size=10&sort=createdAt%2Cdesc"},
		{name: "explicit page wins", args: []string{"category=tools", "page=2"}, want: "category=tools&page=2&size=10&sort=createdAt%2Cdesc"},
		{name: "zero min price kept", args: []string{"min=0", "max=15.5"}, want: "maxPrice=15.5&minPrice=0&page=0&size=10&sort=createdAt%2Cdesc"},
		{name: "status normalised", args: []string{"status=Active"}, want: "page=0&size=10&sort=createdAt%2Cdesc&status=active"},
		{name: "empty value clears", args: []string{"sort=", "size="}, want: "page=0"},
		{name: "reset", args: []string{"q=x", "reset"}, want: "page=0&size=10&sort=createdAt%2Cdesc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilter(base, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Values().Encode())
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	base := models.DefaultFilter()

	tests := []struct {
		args []string
		want error
	}{
		{args: []string{"tools"}, want: errUsage},
		{args: []string{"color=red"}, want: common.ErrValidation},
		{args: []string{"min=cheap"}, want: common.ErrValidation},
		{args: []string{"page=-1"}, want: common.ErrValidation},
		{args: []string{"size=ten"}, want: common.ErrValidation},
		{args: []string{"status=sold"}, want: common.ErrValidation},
	}

	for _, tt := range tests {
		got, err := parseFilter(base, tt.args)
		assert.ErrorIs(t, err, tt.want, "%v", tt.args)
		assert.Equal(t, base, got)
	}
}

func TestDescribeFilter(t *testing.T) {
	assert.Equal(t, "all products", describeFilter(models.ProductFilter{Page: models.Ptr(2)}))
	assert.Equal(t, "category=tools", describeFilter(models.ProductFilter{Category: models.Ptr("tools")}))
}
