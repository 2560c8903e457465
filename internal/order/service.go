package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/notify"
	"ms-marketplace/internal/order/receipt"
	"ms-marketplace/internal/payment"

	"github.com/google/uuid"
)

const publishTimeout = 3 * time.Second

type DBLayer interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByReference(ctx context.Context, reference string) (*models.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	ListOrdersByVendor(ctx context.Context, vendorID string) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
}

type ProductLookup interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Notifier interface {
	Notify(kind, to, subject, html string)
}

type SaleEmitter interface {
	Emit(order models.Order)
}

// SettleRequest names the parties of a sale. The amount never comes from
// here; it is taken from the verified payment.
type SettleRequest struct {
	Buyer   models.User
	Vendor  models.User
	Product models.ProductSnapshot
}

type CheckoutRequest struct {
	Reference string `json:"reference"`
	ProductID string `json:"productId"`
}

type OrderService struct {
	DB       DBLayer
	Products ProductLookup
	Users    UserLookup
	Payments payment.Verifier
	Notifier Notifier
	Kafka    kafka.Publisher
	Events   SaleEmitter
	Receipts *receipt.Generator
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Topic    string

	now func() time.Time
}

func NewOrderService(db DBLayer, products ProductLookup, users UserLookup, payments payment.Verifier, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:       db,
		Products: products,
		Users:    users,
		Payments: payments,
		Kafka:    kafka.NopPublisher{},
		Logger:   log,
		Topic:    "marketplace.order.settled",
		now:      time.Now,
	}
}

// ---------------- SETTLEMENT ----------------

// Settle records a paid order exactly once per payment reference. A
// reference that was already settled returns the existing order with
// duplicate set and no error.
func (s *OrderService) Settle(ctx context.Context, req SettleRequest, result payment.Result) (*models.Order, bool, error) {
	if !result.Succeeded() {
		s.Metrics.OrderSettled("failed")
		s.Logger.Warn("SETTLEMENT", fmt.Sprintf("Refusing to settle %s: %s", result.Reference, result.Reason))
		return nil, false, apperror.PaymentDeclined("payment verification failed")
	}
	if result.Reference == "" {
		return nil, false, apperror.Validation("payment reference is required")
	}

	existing, err := s.DB.GetOrderByReference(ctx, result.Reference)
	if err != nil {
		return nil, false, apperror.Internal("failed to check existing order", err)
	}
	if existing != nil {
		s.Metrics.OrderSettled("duplicate")
		s.Logger.LogSettlement("DUPLICATE", result.Reference, fmt.Sprintf("already settled as order %s", existing.ID))
		return existing, true, nil
	}

	order := &models.Order{
		ID:         uuid.New().String(),
		BuyerID:    req.Buyer.ID,
		BuyerName:  req.Buyer.DisplayName(),
		BuyerEmail: req.Buyer.Email,
		VendorID:   req.Vendor.ID,
		VendorName: req.Vendor.DisplayName(),
		Product:    req.Product,
		Amount:     result.Amount,
		Reference:  result.Reference,
		Provider:   result.Provider,
		Status:     models.OrderPaid,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.DB.CreateOrder(ctx, order); err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, false, apperror.Internal("failed to record order", err)
		}
		// lost the race to a concurrent settlement of the same reference
		winner, readErr := s.DB.GetOrderByReference(ctx, result.Reference)
		if readErr != nil {
			return nil, false, apperror.Internal("failed to read settled order", fmt.Errorf("%v (after %w)", readErr, err))
		}
		if winner == nil {
			// the reference paid for something other than an order
			s.Metrics.OrderSettled("rejected")
			s.Logger.LogSecurity("SETTLEMENT", fmt.Sprintf("reference %s is already claimed by another payment", result.Reference))
			return nil, false, apperror.Conflict("payment reference already used")
		}
		s.Metrics.OrderSettled("duplicate")
		s.Logger.LogSettlement("DUPLICATE", result.Reference, fmt.Sprintf("concurrent settlement won by order %s", winner.ID))
		return winner, true, nil
	}

	s.Metrics.OrderSettled("created")
	s.Logger.LogSettlement("CREATED", order.Reference, fmt.Sprintf("order %s for %.2f via %s", order.ID, order.Amount, order.Provider))

	s.afterSettle(ctx, *order, req.Vendor.Email)
	return order, false, nil
}

// afterSettle runs the best-effort side effects of a new order. None of them
// can fail the settlement.
func (s *OrderService) afterSettle(ctx context.Context, order models.Order, vendorEmail string) {
	if s.Notifier != nil {
		subject, html := notify.OrderReceived(order)
		s.Notifier.Notify("order_settled", vendorEmail, subject, html)
	}

	if s.Events != nil {
		s.Events.Emit(order)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	kafka.PublishJSON(pubCtx, s.Kafka, s.Logger, s.Topic, order.ID, models.OrderSettledEvent{
		OrderID:   order.ID,
		Reference: order.Reference,
		BuyerID:   order.BuyerID,
		VendorID:  order.VendorID,
		ProductID: order.Product.ID,
		Amount:    order.Amount,
		Provider:  order.Provider,
		SettledAt: order.CreatedAt,
	})
}

// Checkout is the HTTP-facing purchase: it resolves the product and both
// parties, verifies the reference with the gateway and settles.
func (s *OrderService) Checkout(ctx context.Context, claims *auth.Claims, req CheckoutRequest) (*models.Order, bool, error) {
	if claims == nil {
		return nil, false, apperror.Unauthorized("authentication required")
	}
	req.Reference = strings.TrimSpace(req.Reference)
	if err := payment.ValidateReference(req.Reference); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, false, apperror.Validation("productId is required")
	}

	product, err := s.Products.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, false, apperror.Internal("failed to load product", err)
	}
	if product == nil {
		return nil, false, apperror.NotFound("product not found")
	}

	buyer, err := s.Users.GetUserByID(ctx, claims.ID)
	if err != nil {
		return nil, false, apperror.Internal("failed to load buyer", err)
	}
	if buyer == nil {
		return nil, false, apperror.NotFound("user not found")
	}

	vendor, err := s.Users.GetUserByID(ctx, product.VendorID)
	if err != nil {
		return nil, false, apperror.Internal("failed to load vendor", err)
	}
	if vendor == nil {
		return nil, false, apperror.NotFound("vendor not found")
	}

	result := s.Payments.Verify(ctx, req.Reference)
	if result.Succeeded() && result.Amount < product.Price {
		s.Metrics.OrderSettled("underpaid")
		s.Logger.LogSecurity("SETTLEMENT", fmt.Sprintf("reference %s paid %.2f for product %s priced %.2f", result.Reference, result.Amount, product.ID, product.Price))
		return nil, false, apperror.PaymentDeclined("payment amount is less than the product price")
	}

	// a client disconnect must not abandon a verified payment half-settled
	order, duplicate, err := s.Settle(context.WithoutCancel(ctx), SettleRequest{
		Buyer:   *buyer,
		Vendor:  *vendor,
		Product: product.Snapshot(),
	}, result)
	if err != nil {
		return nil, false, err
	}

	if duplicate && order.BuyerID != claims.ID && claims.Role != models.RoleAdmin {
		s.Logger.LogSecurity("SETTLEMENT", fmt.Sprintf("user %s replayed reference %s owned by %s", claims.ID, order.Reference, order.BuyerID))
		return nil, false, apperror.Conflict("payment reference already used")
	}
	return order, duplicate, nil
}

// ---------------- QUERIES ----------------

// GetOrder is visible to the buyer, the vendor and admins.
func (s *OrderService) GetOrder(ctx context.Context, claims *auth.Claims, id string) (*models.Order, error) {
	if claims == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.Role != models.RoleAdmin && claims.ID != order.BuyerID && claims.ID != order.VendorID {
		return nil, apperror.Forbidden("you do not have access to this order")
	}
	return order, nil
}

func (s *OrderService) ListBuyerOrders(ctx context.Context, claims *auth.Claims) ([]models.Order, error) {
	if claims == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	orders, err := s.DB.ListOrdersByBuyer(ctx, claims.ID)
	if err != nil {
		return nil, apperror.Internal("failed to list orders", err)
	}
	return orders, nil
}

// ListVendorOrders lists sales of vendorID, defaulting to the caller. Only
// admins may look at another vendor's sales.
func (s *OrderService) ListVendorOrders(ctx context.Context, claims *auth.Claims, vendorID string) ([]models.Order, error) {
	if err := auth.RequireRole(claims, models.RoleVendor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if vendorID == "" {
		vendorID = claims.ID
	}
	if err := auth.RequireOwnerOrAdmin(claims, vendorID); err != nil {
		return nil, err
	}
	orders, err := s.DB.ListOrdersByVendor(ctx, vendorID)
	if err != nil {
		return nil, apperror.Internal("failed to list orders", err)
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, claims *auth.Claims) ([]models.Order, error) {
	if err := auth.RequireAdmin(claims); err != nil {
		return nil, err
	}
	orders, err := s.DB.ListAllOrders(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list orders", err)
	}
	return orders, nil
}

// ReceiptQR renders the pickup QR for the buyer (or an admin).
func (s *OrderService) ReceiptQR(ctx context.Context, claims *auth.Claims, id string) ([]byte, error) {
	if claims == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	if s.Receipts == nil {
		return nil, apperror.Internal("receipts are not configured", nil)
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrAdmin(claims, order.BuyerID); err != nil {
		return nil, err
	}
	png, err := s.Receipts.QR(*order)
	if err != nil {
		return nil, apperror.Internal("failed to render receipt", err)
	}
	return png, nil
}

func (s *OrderService) loadOrder(ctx context.Context, id string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.Validation("order id is required")
	}
	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("failed to load order", err)
	}
	if order == nil {
		return nil, apperror.NotFound("order not found")
	}
	return order, nil
}
