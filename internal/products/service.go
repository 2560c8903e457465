package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/blob"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/notify"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, vendorID string) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// Audience lists who receives new-product alerts.
type Audience interface {
	ListEmails(ctx context.Context) ([]string, error)
}

type Notifier interface {
	NotifyAll(kind string, recipients []string, subject, html string)
}

type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
}

// UpdateRequest leaves nil fields unchanged.
type UpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Location    *string  `json:"location"`
}

type ProductService struct {
	DB       DBLayer
	Blob     blob.Store
	Audience Audience
	Notifier Notifier
	Logger   *logger.Logger

	now func() time.Time
}

func NewProductService(db DBLayer, store blob.Store, log *logger.Logger) *ProductService {
	return &ProductService{DB: db, Blob: store, Logger: log, now: time.Now}
}

func (r ProductRequest) validate(images []blob.File) error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Description) == "" || strings.TrimSpace(r.Location) == "" {
		return apperror.Validation("name, description and location are required")
	}
	if r.Price < 0 {
		return apperror.Validation("price must not be negative")
	}
	if len(images) == 0 {
		return apperror.Validation("at least one image is required")
	}
	return nil
}

func (s *ProductService) upload(ctx context.Context, images []blob.File) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.Blob.Upload(ctx, img.Filename, img.Body)
		if err != nil {
			return nil, apperror.Upstream("image upload failed", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Create lists a product for the calling vendor and alerts every user.
func (s *ProductService) Create(ctx context.Context, claims *auth.Claims, req ProductRequest, images []blob.File) (*models.Product, error) {
	if err := auth.RequireRole(claims, models.RoleVendor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := req.validate(images); err != nil {
		return nil, err
	}

	urls, err := s.upload(ctx, images)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := &models.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		ImageURLs:   urls,
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		Location:    strings.TrimSpace(req.Location),
		VendorID:    claims.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.CreateProduct(ctx, product); err != nil {
		return nil, apperror.Internal("failed to save product", err)
	}
	s.Logger.Info("PRODUCTS", fmt.Sprintf("Product %s listed by %s", product.ID, claims.ID))

	s.alert(ctx, claims, *product)
	return product, nil
}

func (s *ProductService) alert(ctx context.Context, claims *auth.Claims, product models.Product) {
	if s.Notifier == nil || s.Audience == nil {
		return
	}
	emails, err := s.Audience.ListEmails(ctx)
	if err != nil {
		s.Logger.Warn("PRODUCTS", fmt.Sprintf("Skipping new product alert for %s: %v", product.ID, err))
		return
	}
	recipients := make([]string, 0, len(emails))
	for _, e := range emails {
		if !strings.EqualFold(e, claims.Email) {
			recipients = append(recipients, e)
		}
	}
	subject, html := notify.NewProduct(claims.Name, product)
	s.Notifier.NotifyAll("new_product", recipients, subject, html)
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.DB.GetProductByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("failed to load product", err)
	}
	if product == nil {
		return nil, apperror.NotFound("product not found")
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, vendorID string) ([]models.Product, error) {
	products, err := s.DB.ListProducts(ctx, vendorID)
	if err != nil {
		return nil, apperror.Internal("failed to list products", err)
	}
	return products, nil
}

// Update applies req to a product the caller owns. New images, if any,
// replace the old set.
func (s *ProductService) Update(ctx context.Context, claims *auth.Claims, id string, req UpdateRequest, images []blob.File) (*models.Product, error) {
	if claims == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrAdmin(claims, product.VendorID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Location != nil {
		product.Location = strings.TrimSpace(*req.Location)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if product.Name == "" || product.Description == "" || product.Location == "" {
		return nil, apperror.Validation("name, description and location cannot be empty")
	}
	if product.Price < 0 {
		return nil, apperror.Validation("price must not be negative")
	}

	if len(images) > 0 {
		urls, err := s.upload(ctx, images)
		if err != nil {
			return nil, err
		}
		product.ImageURLs = urls
	}

	product.UpdatedAt = s.now().UTC()
	if err := s.DB.UpdateProduct(ctx, product); err != nil {
		return nil, apperror.Internal("failed to update product", err)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, claims *auth.Claims, id string) error {
	if claims == nil {
		return apperror.Unauthorized("authentication required")
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.RequireOwnerOrAdmin(claims, product.VendorID); err != nil {
		return err
	}
	if err := s.DB.DeleteProduct(ctx, id); err != nil {
		return apperror.Internal("failed to delete product", err)
	}
	s.Logger.Info("PRODUCTS", fmt.Sprintf("Product %s deleted by %s", id, claims.ID))
	return nil
}
