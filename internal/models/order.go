package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
)

// ProductSnapshot is copied into the order, not referenced.
type ProductSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Location string  `json:"location,omitempty"`
	Category string  `json:"category,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID         string          `bun:"id,pk" json:"id"`
	BuyerID    string          `bun:"buyer_id,notnull" json:"buyerId"`
	BuyerName  string          `bun:"buyer_name" json:"buyerName"`
	BuyerEmail string          `bun:"buyer_email" json:"buyerEmail,omitempty"`
	VendorID   string          `bun:"vendor_id,notnull" json:"vendorId"`
	VendorName string          `bun:"vendor_name" json:"vendorName"`
	Product    ProductSnapshot `bun:"product,type:jsonb" json:"product"`
	Amount     float64         `bun:"amount,notnull" json:"amount"`
	Reference  string          `bun:"reference,unique,notnull" json:"reference"`
	Provider   string          `bun:"provider,notnull" json:"provider"`
	Status     OrderStatus     `bun:"status,notnull" json:"status"`
	CreatedAt  time.Time       `bun:"created_at,notnull" json:"createdAt"`
}

// OrderSettledEvent is published once per newly settled order.
type OrderSettledEvent struct {
	OrderID   string    `json:"orderId"`
	Reference string    `json:"reference"`
	BuyerID   string    `json:"buyerId"`
	VendorID  string    `json:"vendorId"`
	ProductID string    `json:"productId"`
	Amount    float64   `json:"amount"`
	Provider  string    `json:"provider"`
	SettledAt time.Time `json:"settledAt"`
}
