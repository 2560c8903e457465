package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/sse"
	"ms-marketplace/internal/utils"
)

// SSEHandler streams a vendor's new sales as server-sent events.
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.SaleEventEmitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.SaleEventEmitter) *SSEHandler {
	return &SSEHandler{
		Logger:       log,
		EventEmitter: emitter,
	}
}

// HandleVendorSales streams `event: order` frames for the calling vendor.
// Admins may watch one vendor with ?vendor= or every sale without it.
func (h *SSEHandler) HandleVendorSales(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := auth.RequireRole(claims, models.RoleVendor, models.RoleAdmin); err != nil {
		utils.WriteError(w, err)
		return
	}

	vendorID := claims.ID
	if claims.Role == models.RoleAdmin {
		vendorID = r.URL.Query().Get("vendor")
		if vendorID == "" {
			vendorID = sse.AllVendors
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, apperror.Internal("streaming unsupported", nil))
		return
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.EventEmitter.Subscribe(ctx, vendorID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"vendorId\":%q}\n\n", vendorID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to sales stream for vendor: %s", vendorID))

	for {
		select {
		case sale, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for vendor: %s", vendorID))
				return
			}

			jsonData, err := json.Marshal(sale)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize sale event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: order\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from sales stream for: %s", vendorID))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
