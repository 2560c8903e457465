package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeVerifier treats the reference as a PaymentIntent id.
type StripeVerifier struct {
	client *client.API
}

func NewStripeVerifier(secretKey string, timeout time.Duration) *StripeVerifier {
	return NewStripeVerifierWithBackend(secretKey, newStripeBackend(nil, timeout))
}

// NewStripeVerifierWithBackend lets tests point the client at a fake API.
func NewStripeVerifierWithBackend(secretKey string, backend stripe.Backend) *StripeVerifier {
	sc := client.New(secretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return &StripeVerifier{client: sc}
}

// newStripeBackend disables the SDK's own retries; a nil url keeps the
// default API host.
func newStripeBackend(apiURL *string, timeout time.Duration) stripe.Backend {
	return stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               apiURL,
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})
}

func (s *StripeVerifier) Provider() string {
	return ProviderStripe
}

func (s *StripeVerifier) Verify(ctx context.Context, reference string) Result {
	if reference == "" {
		return failed(ProviderStripe, reference, "empty reference")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.client.PaymentIntents.Get(reference, params)
	if err != nil {
		return failed(ProviderStripe, reference, fmt.Sprintf("stripe request failed: %v", err))
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return failed(ProviderStripe, reference, fmt.Sprintf("payment intent status %q", pi.Status))
	}

	return Result{
		Status:    StatusSuccess,
		Amount:    float64(pi.AmountReceived) / 100,
		Reference: pi.ID,
		Provider:  ProviderStripe,
	}
}
