package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk" json:"id"`
	FirstName    string    `bun:"first_name" json:"firstName"`
	LastName     string    `bun:"last_name" json:"lastName"`
	Username     string    `bun:"username,unique,notnull" json:"username"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	Phone        string    `bun:"phone,unique,nullzero" json:"phone,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         Role      `bun:"role,notnull,default:'buyer'" json:"role"`
	VendorProfile
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// VendorProfile is filled in when a buyer is promoted to vendor.
type VendorProfile struct {
	BusinessName     string `bun:"business_name,nullzero" json:"businessName,omitempty"`
	BusinessAddress  string `bun:"business_address,nullzero" json:"businessAddress,omitempty"`
	BusinessPhone    string `bun:"business_phone,nullzero" json:"businessPhone,omitempty"`
	StoreDescription string `bun:"store_description,nullzero" json:"storeDescription,omitempty"`
}

// DisplayName is what vendors and buyers are shown as on orders and ads.
func (u User) DisplayName() string {
	if u.Role == RoleVendor && u.BusinessName != "" {
		return u.BusinessName
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}
