package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newPaystackServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPaystackVerify_Success(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","reference":"ref_123","amount":500000,"currency":"NGN"}}`))
	}))
	defer srv.Close()

	v := NewPaystackVerifier(srv.URL, "sk_test_secret", time.Second)
	result := v.Verify(context.Background(), "ref_123")

	assert.True(t, result.Succeeded())
	assert.Equal(t, 5000.0, result.Amount)
	assert.Equal(t, "ref_123", result.Reference)
	assert.Equal(t, ProviderPaystack, result.Provider)
	assert.Equal(t, "/transaction/verify/ref_123", path)
}

func TestPaystackVerify_FailureModes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"abandoned transaction", http.StatusOK, `{"status":true,"message":"Verification successful","data":{"status":"abandoned","reference":"r","amount":100}}`},
		{"status false", http.StatusOK, `{"status":false,"message":"Transaction reference not found"}`},
		{"not found", http.StatusNotFound, `{"status":false,"message":"Transaction reference not found"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"malformed body", http.StatusOK, `{"status":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newPaystackServer(t, tt.status, tt.body, nil)
			result := NewPaystackVerifier(srv.URL, "sk_test_secret", time.Second).Verify(context.Background(), "r")

			assert.False(t, result.Succeeded())
			assert.Equal(t, StatusFailed, result.Status)
			assert.NotEmpty(t, result.Reason)
			assert.Zero(t, result.Amount)
		})
	}
}

func TestPaystackVerify_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.Write([]byte(`{"status":true,"data":{"status":"success","amount":100}}`))
	}))
	defer srv.Close()

	result := NewPaystackVerifier(srv.URL, "sk", 50*time.Millisecond).Verify(context.Background(), "slow")
	assert.False(t, result.Succeeded())
}

func TestPaystackVerify_EmptyReferenceMakesNoCall(t *testing.T) {
	var calls int32
	srv := newPaystackServer(t, http.StatusOK, `{}`, &calls)

	result := NewPaystackVerifier(srv.URL, "sk_test_secret", time.Second).Verify(context.Background(), "")
	assert.False(t, result.Succeeded())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
