package order_api

import (
	"fmt"
	"net/http"

	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/order"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		Logger:       log,
	}
}

type checkoutResponse struct {
	Order     *models.Order `json:"order"`
	Duplicate bool          `json:"duplicate"`
}

// Checkout settles a paid reference for the caller. A reference that was
// already settled answers 200 with duplicate set.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req order.CheckoutRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Checkout: product=%s reference=%s", req.ProductID, req.Reference))

	placed, duplicate, err := h.OrderService.Checkout(r.Context(), claims, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: %v", err))
		utils.WriteError(w, err)
		return
	}

	if duplicate {
		utils.WriteSuccess(w, http.StatusOK, "order already settled", checkoutResponse{Order: placed, Duplicate: true})
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "order placed", checkoutResponse{Order: placed})
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	orders, err := h.OrderService.ListBuyerOrders(r.Context(), claims)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "orders", orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	found, err := h.OrderService.GetOrder(r.Context(), claims, orderID)
	if err != nil {
		h.Logger.Debug("API", fmt.Sprintf("GetOrder %s: %v", orderID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "order", found)
}

// GetReceipt returns the pickup QR as a PNG.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	png, err := h.OrderService.ReceiptQR(r.Context(), claims, orderID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.png", orderID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetReceipt: failed to write response: %v", err))
	}
}

// ListVendorOrders lists the caller's sales; admins may pass ?vendor=.
func (h *Handler) ListVendorOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	orders, err := h.OrderService.ListVendorOrders(r.Context(), claims, r.URL.Query().Get("vendor"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "orders", orders)
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	orders, err := h.OrderService.ListAllOrders(r.Context(), claims)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "orders", orders)
}
