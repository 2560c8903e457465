package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,notnull" json:"description"`
	ImageURLs   []string  `bun:"image_urls,type:jsonb" json:"imageUrls"`
	Price       float64   `bun:"price,notnull" json:"price"`
	Category    string    `bun:"category,nullzero" json:"category,omitempty"`
	Location    string    `bun:"location,notnull" json:"location"`
	VendorID    string    `bun:"vendor_id,notnull" json:"vendorId"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Snapshot freezes the fields an order keeps once the product is sold.
func (p Product) Snapshot() ProductSnapshot {
	s := ProductSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Location: p.Location,
		Category: p.Category,
	}
	if len(p.ImageURLs) > 0 {
		s.ImageURL = p.ImageURLs[0]
	}
	return s
}
