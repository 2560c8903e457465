// Package receipt renders the pickup QR a buyer shows the vendor. The QR
// carries a sealed payload that only this service can open.
package receipt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ms-marketplace/internal/models"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidReceipt = errors.New("invalid receipt payload")

// Payload is what the QR code proves.
type Payload struct {
	OrderID   string    `json:"orderId"`
	Reference string    `json:"reference"`
	BuyerID   string    `json:"buyerId"`
	VendorID  string    `json:"vendorId"`
	ProductID string    `json:"productId"`
	Amount    float64   `json:"amount"`
	PaidAt    time.Time `json:"paidAt"`
}

type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

func PayloadFor(order models.Order) Payload {
	return Payload{
		OrderID:   order.ID,
		Reference: order.Reference,
		BuyerID:   order.BuyerID,
		VendorID:  order.VendorID,
		ProductID: order.Product.ID,
		Amount:    order.Amount,
		PaidAt:    order.CreatedAt,
	}
}

// QR returns a 256px PNG for order.
func (g *Generator) QR(order models.Order) ([]byte, error) {
	sealed, err := g.Seal(PayloadFor(order))
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(sealed, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Seal encrypts p with AES-GCM and returns it URL-safe base64 encoded.
func (g *Generator) Seal(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	gcm, err := g.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Anything tampered with or sealed under another secret
// returns ErrInvalidReceipt.
func (g *Generator) Open(token string) (*Payload, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidReceipt
	}

	gcm, err := g.aead()
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, ErrInvalidReceipt
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	data, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidReceipt
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrInvalidReceipt
	}
	return &p, nil
}

func (g *Generator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(g.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
