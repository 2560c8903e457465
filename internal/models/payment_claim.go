package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ClaimKind string

const (
	ClaimOrder ClaimKind = "order"
	ClaimAd    ClaimKind = "ad"
)

// PaymentClaim records which entity a gateway reference paid for. The
// primary key makes one payment settle at most one order or ad.
type PaymentClaim struct {
	bun.BaseModel `bun:"table:payment_claims"`

	Reference string    `bun:"reference,pk" json:"reference"`
	Kind      ClaimKind `bun:"kind,notnull" json:"kind"`
	ClaimedAt time.Time `bun:"claimed_at,notnull" json:"claimedAt"`
}
