package models

import (
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// ProductFilter selects a page of products. Nil fields are absent and never
// reach the query string; a zero MinPrice or MaxPrice is a real bound.
type ProductFilter struct {
	Q        *string          `json:"q,omitempty"`
	Category *string          `json:"category,omitempty"`
	MinPrice *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice *decimal.Decimal `json:"maxPrice,omitempty"`
	Status   *Status          `json:"status,omitempty"`
	Page     *int             `json:"page,omitempty"`
	Size     *int             `json:"size,omitempty"`
	Sort     *string          `json:"sort,omitempty"`
}

// DefaultFilter is the first page the list view shows.
func DefaultFilter() ProductFilter {
	return ProductFilter{
		Page: Ptr(0),
		Size: Ptr(10),
		Sort: Ptr("createdAt,desc"),
	}
}

// Values encodes the present fields as backend query parameters.
func (f ProductFilter) Values() url.Values {
	v := url.Values{}

	if f.Q != nil && *f.Q != "" {
		v.Set("q", *f.Q)
	}
	if f.Category != nil && *f.Category != "" {
		v.Set("category", *f.Category)
	}
	if f.MinPrice != nil {
		v.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", f.MaxPrice.String())
	}
	if f.Status != nil && *f.Status != "" {
		v.Set("status", string(*f.Status))
	}
	if f.Page != nil {
		v.Set("page", strconv.Itoa(*f.Page))
	}
	if f.Size != nil && *f.Size > 0 {
		v.Set("size", strconv.Itoa(*f.Size))
	}
	if f.Sort != nil && *f.Sort != "" {
		v.Set("sort", *f.Sort)
	}

	return v
}

// WithPage returns a copy of f pointing at page n.
func (f ProductFilter) WithPage(n int) ProductFilter {
	f.Page = Ptr(n)
	return f
}

// Ptr returns a pointer to v; handy for optional filter and patch fields.
func Ptr[T any](v T) *T {
	return &v
}
