package ads

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	addb "ms-marketplace/internal/ads/db"
	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/blob"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/database/dbtest"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, reference string) payment.Result {
	args := m.Called(ctx, reference)
	return args.Get(0).(payment.Result)
}

func (m *MockVerifier) Provider() string { return payment.ProviderPaystack }

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, filename)
	return args.String(0), args.Error(1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Notify(kind, to, subject, html string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to)
}

var (
	vendorClaims = &auth.Claims{ID: "vendor-1", Email: "mama@example.com", Name: "Mama Put", Role: models.RoleVendor}
	buyerClaims  = &auth.Claims{ID: "buyer-1", Email: "ada@example.com", Role: models.RoleBuyer}
	adminClaims  = &auth.Claims{ID: "admin-1", Role: models.RoleAdmin}
)

func validRequest(reference string) CreateAdRequest {
	return CreateAdRequest{
		Name:        "Weekend promo",
		Description: "Half price jollof",
		Link:        "https://mamaput.ng",
		Location:    "Yaba",
		Duration:    "7 days",
		Reference:   reference,
	}
}

func image() *blob.File {
	return &blob.File{Filename: "banner.png", Body: strings.NewReader("png-bytes")}
}

type fixture struct {
	svc      *AdService
	store    *addb.DB
	verifier *MockVerifier
	blob     *MockStore
	notifier *recordingNotifier
	metrics  *metrics.Metrics
}

func setup(t *testing.T) *fixture {
	f := &fixture{
		store:    &addb.DB{Bun: dbtest.New(t)},
		verifier: new(MockVerifier),
		blob:     new(MockStore),
		notifier: &recordingNotifier{},
		metrics:  metrics.New(),
	}
	f.svc = NewAdService(f.store, f.verifier, f.blob, logger.NewDiscard())
	f.svc.Notifier = f.notifier
	f.svc.Metrics = f.metrics
	return f
}

func (f *fixture) paid(reference string) {
	f.verifier.On("Verify", mock.Anything, reference).
		Return(payment.Result{Status: payment.StatusSuccess, Amount: 2000, Reference: reference, Provider: payment.ProviderPaystack})
	f.blob.On("Upload", mock.Anything, "banner.png").Return("https://cdn.example/banner.png", nil)
}

func TestCreate_InactiveWithVerifiedPrice(t *testing.T) {
	f := setup(t)
	f.paid("ad-ref-1")

	ad, duplicate, err := f.svc.Create(context.Background(), vendorClaims, validRequest("ad-ref-1"), image())
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.False(t, ad.Active)
	assert.Equal(t, 2000.0, ad.Price)
	assert.Equal(t, "https://cdn.example/banner.png", ad.ImageURL)
	assert.Equal(t, "Mama Put", ad.VendorName)

	again, duplicate, err := f.svc.Create(context.Background(), vendorClaims, validRequest("ad-ref-1"), image())
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, ad.ID, again.ID)
	f.verifier.AssertNumberOfCalls(t, "Verify", 1)
}

func TestCreate_Rejections(t *testing.T) {
	f := setup(t)

	_, _, err := f.svc.Create(context.Background(), buyerClaims, validRequest("r"), image())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, _, err = f.svc.Create(context.Background(), nil, validRequest("r"), image())
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	req := validRequest("r")
	req.Link = ""
	_, _, err = f.svc.Create(context.Background(), vendorClaims, req, image())
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Contains(t, apperror.MessageOf(err), "link")

	_, _, err = f.svc.Create(context.Background(), vendorClaims, validRequest("r"), nil)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestCreate_DeclinedPaymentWritesNothing(t *testing.T) {
	f := setup(t)
	f.verifier.On("Verify", mock.Anything, "ad-bad").
		Return(payment.Result{Status: payment.StatusFailed, Reference: "ad-bad", Reason: "declined"})

	_, _, err := f.svc.Create(context.Background(), vendorClaims, validRequest("ad-bad"), image())
	assert.Equal(t, apperror.KindUpstreamFailure, apperror.KindOf(err))
	f.blob.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)

	list, err := f.store.ListAds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_UploadFailureIsUpstream(t *testing.T) {
	f := setup(t)
	f.verifier.On("Verify", mock.Anything, "ad-ref").
		Return(payment.Result{Status: payment.StatusSuccess, Amount: 2000, Reference: "ad-ref"})
	f.blob.On("Upload", mock.Anything, "banner.png").Return("", errors.New("cdn unreachable"))

	_, _, err := f.svc.Create(context.Background(), vendorClaims, validRequest("ad-ref"), image())
	assert.Equal(t, apperror.KindUpstreamFailure, apperror.KindOf(err))
}

func TestCreate_OrderPaymentCannotBuyAd(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, database.ClaimPayment(ctx, f.store.Bun, "order-ref", models.ClaimOrder))
	f.paid("order-ref")

	ad, _, err := f.svc.Create(ctx, vendorClaims, validRequest("order-ref"), image())
	assert.Nil(t, ad)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	ads, err := f.store.ListAds(ctx)
	require.NoError(t, err)
	assert.Empty(t, ads)
}

func TestActivate(t *testing.T) {
	f := setup(t)
	f.paid("ad-ref-1")
	ad, _, err := f.svc.Create(context.Background(), vendorClaims, validRequest("ad-ref-1"), image())
	require.NoError(t, err)

	// listing is open to any signed-in caller and includes inactive ads
	list, err := f.svc.List(context.Background(), buyerClaims)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Active)

	_, err = f.svc.Activate(context.Background(), vendorClaims, ad.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	activated, err := f.svc.Activate(context.Background(), adminClaims, ad.ID)
	require.NoError(t, err)
	assert.True(t, activated.Active)
	assert.Equal(t, []string{"mama@example.com"}, f.notifier.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AdsActivated))

	again, err := f.svc.Activate(context.Background(), adminClaims, ad.ID)
	require.NoError(t, err)
	assert.True(t, again.Active)
	assert.Len(t, f.notifier.sent, 1)

	stored, err := f.store.GetAdByID(context.Background(), ad.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestActivate_ForbiddenBeforeLookup(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Activate(context.Background(), buyerClaims, "does-not-exist")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.svc.Activate(context.Background(), adminClaims, "does-not-exist")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestList_RequiresIdentity(t *testing.T) {
	f := setup(t)
	_, err := f.svc.List(context.Background(), nil)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}
