package model

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              string    `bun:"id,pk" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	PhoneNumber     string    `bun:"phone_number,unique,nullzero" json:"phone_number,omitempty"`
	DefaultLocation string    `bun:"default_location,nullzero" json:"default_location,omitempty"`
	Role            Role      `bun:"role,notnull" json:"role"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (u *User) IsSupplier() bool { return u != nil && u.Role == RoleSupplier }
func (u *User) IsCustomer() bool { return u != nil && u.Role == RoleCustomer }
