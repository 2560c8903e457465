// Package payment confirms with the payment gateway that a client-supplied
// reference was actually paid. Amounts always come from the gateway.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/metrics"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

const (
	ProviderPaystack = "paystack"
	ProviderStripe   = "stripe"
)

// Result is the gateway's verdict on one reference.
type Result struct {
	Status    Status  `json:"status"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
	Provider  string  `json:"provider"`
	Reason    string  `json:"reason,omitempty"`
}

func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

func failed(provider, reference, reason string) Result {
	return Result{Status: StatusFailed, Reference: reference, Provider: provider, Reason: reason}
}

// Verifier checks a reference with one gateway. Every transport or protocol
// problem is reported as a Failed result, never as an error.
type Verifier interface {
	Verify(ctx context.Context, reference string) Result
	Provider() string
}

// ValidateReference rejects an empty reference before any gateway call.
func ValidateReference(reference string) error {
	if strings.TrimSpace(reference) == "" {
		return apperror.Validation("payment reference is required")
	}
	return nil
}

// NewVerifier picks the gateway named by cfg.Provider and wraps it with the
// timeout, logging and metrics every call gets.
func NewVerifier(cfg config.PaymentConfig, log *logger.Logger, m *metrics.Metrics) (Verifier, error) {
	var inner Verifier
	switch cfg.Provider {
	case "", ProviderPaystack:
		if cfg.PaystackSecretKey == "" {
			return nil, fmt.Errorf("PAYSTACK_SECRET_KEY not set")
		}
		inner = NewPaystackVerifier(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.Timeout)
	case ProviderStripe:
		if cfg.StripeSecretKey == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY not set")
		}
		inner = NewStripeVerifier(cfg.StripeSecretKey, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}

	log.Info("PAYMENT", fmt.Sprintf("Payment verifier initialized for %s", inner.Provider()))
	return Instrument(inner, cfg.Timeout, log, m), nil
}

type instrumented struct {
	next    Verifier
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Instrument bounds every call by timeout and records its outcome.
func Instrument(next Verifier, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) Verifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &instrumented{next: next, timeout: timeout, log: log, metrics: m}
}

func (v *instrumented) Provider() string {
	return v.next.Provider()
}

func (v *instrumented) Verify(ctx context.Context, reference string) Result {
	if strings.TrimSpace(reference) == "" {
		return failed(v.Provider(), reference, "empty reference")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	result := v.next.Verify(ctx, reference)
	if !result.Succeeded() && ctx.Err() == context.DeadlineExceeded {
		result = failed(v.Provider(), reference, "payment gateway timed out")
	}
	elapsed := time.Since(start)

	v.metrics.ObservePayment(v.Provider(), result.Succeeded(), elapsed)
	if result.Succeeded() {
		v.log.LogPayment(v.Provider(), reference, fmt.Sprintf("verified %.2f in %s", result.Amount, elapsed))
	} else {
		v.log.Warn("PAYMENT", fmt.Sprintf("[%s] %s - not verified: %s", v.Provider(), reference, result.Reason))
	}
	return result
}
