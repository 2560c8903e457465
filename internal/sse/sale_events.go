package sse

import (
	"context"
	"sync"

	"ms-marketplace/internal/models"
)

// AllVendors subscribes to every vendor's sales. Used by the admin stream.
const AllVendors = "*"

const clientBuffer = 10

// SaleEventEmitter fans settled orders out to the vendor streams watching them.
type SaleEventEmitter struct {
	clients map[string][]chan models.Order
	mu      sync.RWMutex
}

func NewSaleEventEmitter() *SaleEventEmitter {
	return &SaleEventEmitter{
		clients: make(map[string][]chan models.Order),
	}
}

// Subscribe registers a client for vendorID until ctx is done, after which
// the returned channel is closed.
func (e *SaleEventEmitter) Subscribe(ctx context.Context, vendorID string) <-chan models.Order {
	clientChan := make(chan models.Order, clientBuffer)

	e.mu.Lock()
	e.clients[vendorID] = append(e.clients[vendorID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(vendorID, clientChan)
	}()

	return clientChan
}

// Emit never blocks. A client whose buffer is full misses the event.
func (e *SaleEventEmitter) Emit(order models.Order) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, key := range []string{order.VendorID, AllVendors} {
		for _, clientChan := range e.clients[key] {
			select {
			case clientChan <- order:
			default:
			}
		}
	}
}

func (e *SaleEventEmitter) remove(vendorID string, clientChan chan models.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[vendorID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[vendorID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[vendorID]) == 0 {
		delete(e.clients, vendorID)
	}
}

// ClientCount returns the number of clients currently subscribed to vendorID.
func (e *SaleEventEmitter) ClientCount(vendorID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[vendorID])
}
