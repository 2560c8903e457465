package ads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/blob"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/notify"
	"ms-marketplace/internal/payment"

	"github.com/google/uuid"
)

const publishTimeout = 3 * time.Second

type DBLayer interface {
	CreateAd(ctx context.Context, ad *models.Ad) error
	GetAdByID(ctx context.Context, id string) (*models.Ad, error)
	GetAdByReference(ctx context.Context, reference string) (*models.Ad, error)
	ActivateAd(ctx context.Context, id string, at time.Time) error
	ListAds(ctx context.Context) ([]models.Ad, error)
}

type Notifier interface {
	Notify(kind, to, subject, html string)
}

type CreateAdRequest struct {
	Name        string `json:"name"`
	Description string `json:"desc"`
	Link        string `json:"link"`
	Location    string `json:"location"`
	Duration    string `json:"duration"`
	Reference   string `json:"reference"`
}

type Topics struct {
	Created   string
	Activated string
}

type AdService struct {
	DB       DBLayer
	Payments payment.Verifier
	Blob     blob.Store
	Notifier Notifier
	Kafka    kafka.Publisher
	Topics   Topics
	Metrics  *metrics.Metrics
	Logger   *logger.Logger

	now func() time.Time
}

func NewAdService(db DBLayer, payments payment.Verifier, store blob.Store, log *logger.Logger) *AdService {
	return &AdService{
		DB:       db,
		Payments: payments,
		Blob:     store,
		Kafka:    kafka.NopPublisher{},
		Topics: Topics{
			Created:   "marketplace.ad.created",
			Activated: "marketplace.ad.activated",
		},
		Logger: log,
		now:    time.Now,
	}
}

func (r CreateAdRequest) validate(image *blob.File) error {
	missing := []string{}
	for _, f := range []struct{ name, value string }{
		{"name", r.Name},
		{"desc", r.Description},
		{"link", r.Link},
		{"location", r.Location},
		{"duration", r.Duration},
		{"reference", r.Reference},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if image == nil || image.Body == nil {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return apperror.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// Create records a paid, inactive ad. A reference that already produced an
// ad returns that ad with duplicate set.
func (s *AdService) Create(ctx context.Context, claims *auth.Claims, req CreateAdRequest, image *blob.File) (*models.Ad, bool, error) {
	if err := auth.RequireRole(claims, models.RoleVendor, models.RoleAdmin); err != nil {
		return nil, false, err
	}
	req.Reference = strings.TrimSpace(req.Reference)
	if err := req.validate(image); err != nil {
		return nil, false, err
	}

	existing, err := s.DB.GetAdByReference(ctx, req.Reference)
	if err != nil {
		return nil, false, apperror.Internal("failed to check existing ad", err)
	}
	if existing != nil {
		return s.duplicate(claims, existing)
	}

	result := s.Payments.Verify(ctx, req.Reference)
	if !result.Succeeded() {
		s.Logger.Warn("ADS", fmt.Sprintf("Ad payment %s not confirmed: %s", req.Reference, result.Reason))
		return nil, false, apperror.PaymentDeclined("payment verification failed")
	}

	imageURL, err := s.Blob.Upload(ctx, image.Filename, image.Body)
	if err != nil {
		return nil, false, apperror.Upstream("image upload failed", err)
	}

	now := s.now().UTC()
	ad := &models.Ad{
		ID:          uuid.New().String(),
		VendorID:    claims.ID,
		VendorName:  claims.Name,
		VendorEmail: claims.Email,
		ImageURL:    imageURL,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Link:        strings.TrimSpace(req.Link),
		Location:    strings.TrimSpace(req.Location),
		Duration:    strings.TrimSpace(req.Duration),
		Price:       result.Amount,
		Reference:   req.Reference,
		Active:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.DB.CreateAd(ctx, ad); err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, false, apperror.Internal("failed to save ad", err)
		}
		winner, readErr := s.DB.GetAdByReference(ctx, req.Reference)
		if readErr != nil {
			return nil, false, apperror.Internal("failed to read existing ad", err)
		}
		if winner == nil {
			s.Logger.LogSecurity("ADS", fmt.Sprintf("reference %s already paid for an order", req.Reference))
			return nil, false, apperror.Conflict("payment reference already used")
		}
		return s.duplicate(claims, winner)
	}

	s.Logger.Info("ADS", fmt.Sprintf("Ad %s created by vendor %s (pending approval)", ad.ID, ad.VendorID))
	s.publish(ctx, s.Topics.Created, ad)
	return ad, false, nil
}

func (s *AdService) duplicate(claims *auth.Claims, ad *models.Ad) (*models.Ad, bool, error) {
	if ad.VendorID != claims.ID && claims.Role != models.RoleAdmin {
		return nil, false, apperror.Conflict("payment reference already used")
	}
	return ad, true, nil
}

// Activate approves an ad. Only admins may call it; activating an already
// active ad succeeds without a second email.
func (s *AdService) Activate(ctx context.Context, claims *auth.Claims, adID string) (*models.Ad, error) {
	if err := auth.RequireAdmin(claims); err != nil {
		return nil, err
	}

	ad, err := s.DB.GetAdByID(ctx, adID)
	if err != nil {
		return nil, apperror.Internal("failed to load ad", err)
	}
	if ad == nil {
		return nil, apperror.NotFound("ad not found")
	}
	if ad.Active {
		return ad, nil
	}

	now := s.now().UTC()
	if err := s.DB.ActivateAd(ctx, ad.ID, now); err != nil {
		return nil, apperror.Internal("failed to activate ad", err)
	}
	ad.Active = true
	ad.UpdatedAt = now

	s.Metrics.AdActivated()
	s.Logger.Info("ADS", fmt.Sprintf("Ad %s activated by %s", ad.ID, claims.ID))

	if s.Notifier != nil {
		subject, html := notify.AdApproved(*ad)
		s.Notifier.Notify("ad_approved", ad.VendorEmail, subject, html)
	}
	s.publish(ctx, s.Topics.Activated, ad)
	return ad, nil
}

func (s *AdService) publish(ctx context.Context, topic string, ad *models.Ad) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	kafka.PublishJSON(pubCtx, s.Kafka, s.Logger, topic, ad.ID, models.AdEvent{
		AdID:      ad.ID,
		VendorID:  ad.VendorID,
		Reference: ad.Reference,
		Active:    ad.Active,
		At:        ad.UpdatedAt,
	})
}

// List returns every ad, active or not, to any signed-in caller.
func (s *AdService) List(ctx context.Context, claims *auth.Claims) ([]models.Ad, error) {
	if claims == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	ads, err := s.DB.ListAds(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list ads", err)
	}
	return ads, nil
}
