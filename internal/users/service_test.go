package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database/dbtest"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	userdb "ms-marketplace/internal/users/db"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*UserService, *userdb.DB) {
	store := &userdb.DB{Bun: dbtest.New(t)}
	tokens := auth.NewTokenService(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	return NewUserService(store, tokens, logger.NewDiscard()), store
}

func register(t *testing.T, svc *UserService, username, email, phone string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Ada", LastName: "Obi",
		Username: username, Email: email, Phone: phone, Password: "hunter22",
	})
	require.NoError(t, err)
	return user
}

func TestRegister_AlwaysBuyer(t *testing.T) {
	svc, _ := setupService(t)

	user := register(t, svc, "ada", " Ada@Example.com ", "")
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.NoError(t, auth.CheckPassword(user.PasswordHash, "hunter22"))
}

func TestRegister_ConflictNamesField(t *testing.T) {
	svc, _ := setupService(t)
	register(t, svc, "ada", "ada@example.com", "+2348000000001")

	tests := []struct {
		name     string
		req      RegisterRequest
		contains string
	}{
		{"username", RegisterRequest{Username: "ada", Email: "new@example.com", Password: "pw"}, "username"},
		{"email", RegisterRequest{Username: "new", Email: "ADA@example.com", Password: "pw"}, "email"},
		{"phone", RegisterRequest{Username: "new", Email: "new@example.com", Phone: "+2348000000001", Password: "pw"}, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
			assert.Contains(t, apperror.MessageOf(err), tt.contains)
		})
	}
}

func TestRegister_MissingPhonesDoNotConflict(t *testing.T) {
	svc, _ := setupService(t)
	register(t, svc, "ada", "ada@example.com", "")
	register(t, svc, "obi", "obi@example.com", "")
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{Username: "ada", Password: "pw"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Register(context.Background(), RegisterRequest{Username: "ada", Email: "not-an-email", Password: "pw"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

type racyDB struct {
	*userdb.DB
}

// FindConflict misses so the insert hits the unique index.
func (racyDB) FindConflict(context.Context, string, string, string) (string, error) {
	return "", nil
}

func TestRegister_UniqueIndexMapsToConflict(t *testing.T) {
	svc, store := setupService(t)
	register(t, svc, "ada", "ada@example.com", "")

	svc.DB = racyDB{store}
	_, err := svc.Register(context.Background(), RegisterRequest{Username: "other", Email: "ada@example.com", Password: "pw"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Contains(t, apperror.MessageOf(err), "email")
}

func TestLogin(t *testing.T) {
	svc, _ := setupService(t)
	registered := register(t, svc, "ada", "ada@example.com", "")

	user, token, err := svc.Login(context.Background(), LoginRequest{Email: "ADA@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	claims, err := svc.Tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.ID)
	assert.Equal(t, models.RoleBuyer, claims.Role)

	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, "user not found", apperror.MessageOf(err))
}

func TestLogout_RevokesWhenLedgerConfigured(t *testing.T) {
	svc, _ := setupService(t)
	register(t, svc, "ada", "ada@example.com", "")
	_, token, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ledger := auth.NewRedisRevocationStore(client)
	svc.Revocation = ledger

	require.NoError(t, svc.Logout(context.Background(), token))
	revoked, err := ledger.IsRevoked(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.NoError(t, svc.Logout(context.Background(), "garbage"))
}

type MockRevocationStore struct {
	mock.Mock
}

func (m *MockRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	return m.Called(ctx, token, expiresAt).Error(0)
}

func (m *MockRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func TestLogout_LedgerFailure(t *testing.T) {
	svc, _ := setupService(t)
	register(t, svc, "ada", "ada@example.com", "")
	_, token, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)

	ledger := new(MockRevocationStore)
	ledger.On("Revoke", mock.Anything, token, mock.Anything).Return(errors.New("redis down"))
	svc.Revocation = ledger

	err = svc.Logout(context.Background(), token)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}

func TestPromoteToVendor(t *testing.T) {
	svc, _ := setupService(t)
	ada := register(t, svc, "ada", "ada@example.com", "")
	obi := register(t, svc, "obi", "obi@example.com", "")

	self := &auth.Claims{ID: ada.ID, Role: models.RoleBuyer}
	profile := models.VendorProfile{BusinessName: "Mama Put", BusinessAddress: "Yaba"}

	_, _, err := svc.PromoteToVendor(context.Background(), self, obi.ID, profile)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, _, err = svc.PromoteToVendor(context.Background(), self, ada.ID, models.VendorProfile{})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	user, token, err := svc.PromoteToVendor(context.Background(), self, ada.ID, profile)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, user.Role)
	assert.Equal(t, "Mama Put", user.BusinessName)
	require.NotEmpty(t, token)
	claims, err := svc.Tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, claims.Role)

	admin := &auth.Claims{ID: "admin-1", Role: models.RoleAdmin}
	user, token, err = svc.PromoteToVendor(context.Background(), admin, obi.ID, profile)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, user.Role)
	assert.Empty(t, token)

	_, _, err = svc.PromoteToVendor(context.Background(), admin, "missing", profile)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestPromoteToVendor_AdminKeepsRole(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	root := register(t, svc, "root", "root@example.com", "")
	_, err := store.Bun.NewUpdate().Model((*models.User)(nil)).
		Set("role = ?", models.RoleAdmin).
		Where("id = ?", root.ID).
		Exec(ctx)
	require.NoError(t, err)

	claims := &auth.Claims{ID: root.ID, Role: models.RoleAdmin}
	user, token, err := svc.PromoteToVendor(ctx, claims, root.ID, models.VendorProfile{BusinessName: "Shop"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Shop", user.BusinessName)

	issued, err := svc.Tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, issued.Role)

	stored, err := store.GetUserByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)
}

func TestListUsersAndVendors_AdminOnly(t *testing.T) {
	svc, _ := setupService(t)
	ada := register(t, svc, "ada", "ada@example.com", "")
	register(t, svc, "obi", "obi@example.com", "")
	admin := &auth.Claims{ID: "admin-1", Role: models.RoleAdmin}
	_, _, err := svc.PromoteToVendor(context.Background(), admin, ada.ID, models.VendorProfile{BusinessName: "Mama Put"})
	require.NoError(t, err)

	buyer := &auth.Claims{ID: ada.ID, Role: models.RoleBuyer}
	_, err = svc.ListUsers(context.Background(), buyer)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	_, err = svc.ListVendors(context.Background(), buyer)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	all, err := svc.ListUsers(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	vendors, err := svc.ListVendors(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, ada.ID, vendors[0].ID)
}
