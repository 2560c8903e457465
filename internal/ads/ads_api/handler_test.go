package ads_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-marketplace/internal/ads"
	addb "ms-marketplace/internal/ads/db"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/database/dbtest"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/notify"
	"ms-marketplace/internal/payment"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paidVerifier struct{}

func (paidVerifier) Provider() string { return payment.ProviderPaystack }

func (paidVerifier) Verify(_ context.Context, reference string) payment.Result {
	return payment.Result{Status: payment.StatusSuccess, Amount: 1500, Reference: reference, Provider: payment.ProviderPaystack}
}

type fakeStore struct{}

func (fakeStore) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	return "https://cdn.example/" + filename, nil
}

type failingSender struct {
	calls int
}

func (s *failingSender) Send(context.Context, string, string, string) error {
	s.calls++
	return errors.New("smtp: 535 authentication failed")
}

type adEnvelope struct {
	Success bool      `json:"success"`
	Kind    string    `json:"kind"`
	Data    models.Ad `json:"data"`
}

func setup(t *testing.T) (http.Handler, *notify.Dispatcher, *failingSender, *metrics.Metrics) {
	log := logger.NewDiscard()
	m := metrics.New()
	sender := &failingSender{}
	dispatcher := notify.NewDispatcher(sender, time.Second, log, m)

	svc := ads.NewAdService(&addb.DB{Bun: dbtest.New(t)}, paidVerifier{}, fakeStore{}, log)
	svc.Notifier = dispatcher
	svc.Metrics = m
	h := NewHandler(svc, log)

	claimsByUser := map[string]*auth.Claims{
		"vendor": {ID: "vendor-1", Email: "mama@example.com", Name: "Mama Put", Role: models.RoleVendor},
		"buyer":  {ID: "buyer-1", Role: models.RoleBuyer},
		"admin":  {ID: "admin-1", Role: models.RoleAdmin},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, ok := claimsByUser[r.Header.Get("X-Test-User")]; ok {
				r = r.WithContext(auth.WithClaims(r.Context(), c))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/api/ads", h.CreateAd)
	r.Get("/api/ads", h.ListAds)
	r.Put("/api/ads/{adId}/activate", h.ActivateAd)
	return r, dispatcher, sender, m
}

func multipartAd(t *testing.T, withImage bool) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fields := map[string]string{
		"name":      "Weekend promo",
		"desc":      "Half price jollof",
		"link":      "https://mamaput.ng",
		"location":  "Yaba",
		"duration":  "7 days",
		"reference": "ad-ref-1",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withImage {
		part, err := mw.CreateFormFile("image", "banner.png")
		require.NoError(t, err)
		_, _ = part.Write([]byte("png-bytes"))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func request(router http.Handler, method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAdLifecycle(t *testing.T) {
	router, dispatcher, sender, m := setup(t)

	body, ct := multipartAd(t, true)
	rec := request(router, http.MethodPost, "/api/ads", "vendor", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created adEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.False(t, created.Data.Active)
	assert.Equal(t, "https://cdn.example/banner.png", created.Data.ImageURL)

	rec = request(router, http.MethodGet, "/api/ads", "buyer", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":false`)

	rec = request(router, http.MethodPut, "/api/ads/"+created.Data.ID+"/activate", "buyer", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = request(router, http.MethodPut, "/api/ads/"+created.Data.ID+"/activate", "admin", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var activated adEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activated))
	assert.True(t, activated.Success)
	assert.True(t, activated.Data.Active)

	dispatcher.Wait()
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsFailed.WithLabelValues("ad_approved")))
}

func TestCreateAd_MissingImage(t *testing.T) {
	router, _, _, _ := setup(t)
	body, ct := multipartAd(t, false)
	rec := request(router, http.MethodPost, "/api/ads", "vendor", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAd_NotMultipart(t *testing.T) {
	router, _, _, _ := setup(t)
	rec := request(router, http.MethodPost, "/api/ads", "vendor", bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivateAd_NotFound(t *testing.T) {
	router, _, _, _ := setup(t)
	rec := request(router, http.MethodPut, "/api/ads/missing/activate", "admin", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
