// Package models holds the catalog client's data types: products, the list
// filter, paginated responses and the authenticated identity.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusDiscontinued Status = "discontinued"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDiscontinued
}

// ParseStatus accepts the enum values case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", common.ErrValidation, raw)
	}
	return s, nil
}

// Product is the backend's representation of a catalog item. ID and
// CreatedAt are assigned by the server.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Status      Status          `json:"status,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ProductInput is the create payload.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Status      Status          `json:"status,omitempty"`
}

// MarshalJSON writes the price as a JSON number, which is what the backend
// accepts.
func (in ProductInput) MarshalJSON() ([]byte, error) {
	type plain ProductInput
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain(in), priceNumber(in.Price)})
}

// Validate checks the payload and fills the default status.
func (in *ProductInput) Validate() error {
	var problems []string

	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		problems = append(problems, "category is required")
	}
	if in.Price.IsNegative() {
		problems = append(problems, "price must not be negative")
	}
	if in.Status == "" {
		in.Status = StatusActive
	} else if !in.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", in.Status))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// ProductPatch is the partial-update payload; nil fields are not sent.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Status      *Status          `json:"status,omitempty"`
}

func (p ProductPatch) MarshalJSON() ([]byte, error) {
	type plain ProductPatch
	out := struct {
		plain
		Price *json.Number `json:"price,omitempty"`
	}{plain: plain(p)}
	if p.Price != nil {
		n := priceNumber(*p.Price)
		out.Price = &n
	}
	return json.Marshal(out)
}

func priceNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Category == nil && p.Status == nil
}

// Validate checks only the supplied fields.
func (p ProductPatch) Validate() error {
	var problems []string

	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		problems = append(problems, "name must not be empty")
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		problems = append(problems, "category must not be empty")
	}
	if p.Price != nil && p.Price.IsNegative() {
		problems = append(problems, "price must not be negative")
	}
	if p.Status != nil && !p.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", *p.Status))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Apply returns a copy of prod with the supplied fields replaced.
func (p ProductPatch) Apply(prod Product) Product {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	if p.Status != nil {
		prod.Status = *p.Status
	}
	return prod
}
