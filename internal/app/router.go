// Package app assembles the HTTP surface of the marketplace.
package app

import (
	"fmt"
	"net/http"
	"time"

	"ms-marketplace/internal/ads/ads_api"
	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/order/order_api"
	"ms-marketplace/internal/products/products_api"
	"ms-marketplace/internal/users/users_api"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers groups every API handler the router mounts.
type Handlers struct {
	Users    *users_api.Handler
	Products *products_api.Handler
	Orders   *order_api.Handler
	Sales    *order_api.SSEHandler
	Ads      *ads_api.Handler
}

type RouterConfig struct {
	Tokens         auth.TokenVerifier
	Revocation     auth.RevocationStore
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

// RequestLogger logs one line per request once it completes.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(cfg.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var authOpts []auth.Option
	if cfg.Revocation != nil {
		authOpts = append(authOpts, auth.WithRevocation(cfg.Revocation))
	}
	requireAuth := auth.Middleware(cfg.Tokens, cfg.Logger, authOpts...)

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, http.StatusOK, "ok", map[string]string{"status": "healthy"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	r.Post("/register", h.Users.Register)
	r.Post("/login", h.Users.Login)
	r.Post("/logout", h.Users.Logout)
	r.Get("/api/products", h.Products.ListProducts)
	r.Get("/api/products/{productId}", h.Products.GetProduct)

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/profile", h.Users.Profile)

		r.Route("/api", func(r chi.Router) {
			r.Put("/users/{userId}/vendor", h.Users.PromoteToVendor)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.AdminOnly)
				r.Get("/users", h.Users.ListUsers)
				r.Get("/vendors", h.Users.ListVendors)
				r.Get("/orders", h.Orders.ListAllOrders)
			})

			r.With(auth.RolesOnly(models.RoleVendor, models.RoleAdmin)).Post("/products", h.Products.CreateProduct)
			r.Put("/products/{productId}", h.Products.UpdateProduct)
			r.Delete("/products/{productId}", h.Products.DeleteProduct)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/checkout", h.Orders.Checkout)
				r.Get("/", h.Orders.ListMyOrders)
				r.Get("/{orderId}", h.Orders.GetOrder)
				r.Get("/{orderId}/receipt", h.Orders.GetReceipt)
			})

			r.Route("/vendor/orders", func(r chi.Router) {
				r.Use(auth.RolesOnly(models.RoleVendor, models.RoleAdmin))
				r.Get("/", h.Orders.ListVendorOrders)
				r.Get("/stream", h.Sales.HandleVendorSales)
			})

			r.Route("/ads", func(r chi.Router) {
				r.Get("/", h.Ads.ListAds)
				r.With(auth.RolesOnly(models.RoleVendor, models.RoleAdmin)).Post("/", h.Ads.CreateAd)
				r.With(auth.AdminOnly).Put("/{adId}/activate", h.Ads.ActivateAd)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		cfg.Logger.Debug("HTTP", fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path))
		utils.WriteError(w, apperror.NotFound("route not found"))
	})

	return r
}
