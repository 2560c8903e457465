package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Ad struct {
	bun.BaseModel `bun:"table:ads"`

	ID          string    `bun:"id,pk" json:"id"`
	VendorID    string    `bun:"vendor_id,notnull" json:"vendorId"`
	VendorName  string    `bun:"vendor_name,notnull" json:"vendorName"`
	VendorEmail string    `bun:"vendor_email" json:"-"`
	ImageURL    string    `bun:"image_url,notnull" json:"img"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,notnull" json:"desc"`
	Link        string    `bun:"link,notnull" json:"link"`
	Location    string    `bun:"location,notnull" json:"location"`
	Duration    string    `bun:"duration,notnull" json:"duration"`
	Price       float64   `bun:"price,notnull" json:"price"`
	Reference   string    `bun:"reference,unique,notnull" json:"reference"`
	Active      bool      `bun:"active,notnull" json:"active"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// AdEvent is published when an ad is created or activated.
type AdEvent struct {
	AdID      string    `json:"adId"`
	VendorID  string    `json:"vendorId"`
	Reference string    `json:"reference"`
	Active    bool      `json:"active"`
	At        time.Time `json:"at"`
}
