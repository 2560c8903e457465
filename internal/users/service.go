package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindConflict(ctx context.Context, username, email, phone string) (string, error)
	PromoteToVendor(ctx context.Context, id string, profile models.VendorProfile) (*models.User, error)
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserService struct {
	DB         DBLayer
	Tokens     *auth.TokenService
	Revocation auth.RevocationStore
	Logger     *logger.Logger

	now func() time.Time
}

func NewUserService(db DBLayer, tokens *auth.TokenService, log *logger.Logger) *UserService {
	return &UserService{DB: db, Tokens: tokens, Logger: log, now: time.Now}
}

func (r *RegisterRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r RegisterRequest) validate() error {
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return apperror.Validation("username, email and password are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperror.Validation("email is invalid")
	}
	return nil
}

// Register creates a buyer. Any role in the request is ignored; promotion
// to vendor is a separate step.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	field, err := s.DB.FindConflict(ctx, req.Username, req.Email, req.Phone)
	if err != nil {
		return nil, apperror.Internal("failed to check existing users", err)
	}
	if field != "" {
		return nil, conflict(field)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         models.RoleBuyer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict(database.UniqueViolationField(err))
		}
		return nil, apperror.Internal("failed to create user", err)
	}

	s.Logger.Info("USERS", fmt.Sprintf("Registered user %s (%s)", user.ID, user.Username))
	return user, nil
}

func conflict(field string) error {
	if field == "" {
		return apperror.Conflict("user already exists")
	}
	return apperror.Conflict(field + " already registered")
}

// Login checks the password and issues a session token.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", apperror.Validation("email and password are required")
	}

	user, err := s.DB.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", apperror.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, "", apperror.NotFound("user not found")
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("bad password for user %s", user.ID))
		return nil, "", apperror.Unauthorized("invalid credentials")
	}

	token, err := s.Tokens.Issue(*user)
	if err != nil {
		return nil, "", apperror.Internal("failed to issue token", err)
	}
	return user, token, nil
}

// Logout records token in the revocation ledger when one is configured.
// Without a ledger, or for a token that no longer verifies, it is a no-op.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if s.Revocation == nil || token == "" {
		return nil
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil
	}
	if err := s.Revocation.Revoke(ctx, token, claims.ExpiresAtTime()); err != nil {
		return apperror.Internal("failed to revoke session", err)
	}
	s.Logger.LogSecurity("LOGOUT", fmt.Sprintf("revoked session for user %s", claims.ID))
	return nil
}

// Profile is the caller's claims as issued.
func (s *UserService) Profile(claims *auth.Claims) (*auth.Claims, error) {
	if claims == nil {
		return nil, apperror.Unauthorized("authentication required")
	}
	return claims, nil
}

// PromoteToVendor turns userID into a vendor. When callers promote
// themselves a fresh token carrying the new role is returned; otherwise the
// token is empty.
func (s *UserService) PromoteToVendor(ctx context.Context, claims *auth.Claims, userID string, profile models.VendorProfile) (*models.User, string, error) {
	if err := auth.RequireOwnerOrAdmin(claims, userID); err != nil {
		return nil, "", err
	}
	profile.BusinessName = strings.TrimSpace(profile.BusinessName)
	if profile.BusinessName == "" {
		return nil, "", apperror.Validation("businessName is required")
	}

	user, err := s.DB.PromoteToVendor(ctx, userID, profile)
	if err != nil {
		return nil, "", apperror.Internal("failed to promote user", err)
	}
	if user == nil {
		return nil, "", apperror.NotFound("user not found")
	}
	s.Logger.Info("USERS", fmt.Sprintf("User %s vendor profile set by %s (role %s)", user.ID, claims.ID, user.Role))

	if claims.ID != user.ID {
		return user, "", nil
	}
	token, err := s.Tokens.Issue(*user)
	if err != nil {
		return nil, "", apperror.Internal("failed to issue token", err)
	}
	return user, token, nil
}

func (s *UserService) ListUsers(ctx context.Context, claims *auth.Claims) ([]models.User, error) {
	return s.list(ctx, claims, "")
}

func (s *UserService) ListVendors(ctx context.Context, claims *auth.Claims) ([]models.User, error) {
	return s.list(ctx, claims, models.RoleVendor)
}

func (s *UserService) list(ctx context.Context, claims *auth.Claims, role models.Role) ([]models.User, error) {
	if err := auth.RequireAdmin(claims); err != nil {
		return nil, err
	}
	users, err := s.DB.ListUsers(ctx, role)
	if err != nil {
		return nil, apperror.Internal("failed to list users", err)
	}
	return users, nil
}
