package models

import (
	"slices"
	"time"
)

// RoleProductAdmin grants create, edit and delete on products.
const RoleProductAdmin = "PRODUCT_ADMIN"

// Identity is the authenticated user as seen by the client.
type Identity struct {
	UserID       string
	Username     string
	Email        string
	Roles        []string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, role)
}

// Clone returns a deep copy; nil stays nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Roles = slices.Clone(i.Roles)
	return &c
}
