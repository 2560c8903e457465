package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultPaystackBaseURL = "https://api.paystack.co"

// PaystackVerifier calls GET /transaction/verify/{reference}.
type PaystackVerifier struct {
	client *resty.Client
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

func NewPaystackVerifier(baseURL, secretKey string, timeout time.Duration) *PaystackVerifier {
	if baseURL == "" {
		baseURL = DefaultPaystackBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(secretKey).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &PaystackVerifier{client: client}
}

func (p *PaystackVerifier) Provider() string {
	return ProviderPaystack
}

func (p *PaystackVerifier) Verify(ctx context.Context, reference string) Result {
	if reference == "" {
		return failed(ProviderPaystack, reference, "empty reference")
	}

	resp, err := p.client.R().
		SetContext(ctx).
		Get("/transaction/verify/" + url.PathEscape(reference))
	if err != nil {
		return failed(ProviderPaystack, reference, fmt.Sprintf("paystack request failed: %v", err))
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return failed(ProviderPaystack, reference, fmt.Sprintf("paystack returned status %d", resp.StatusCode()))
	}

	var body paystackVerifyResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return failed(ProviderPaystack, reference, "malformed paystack response")
	}
	if !body.Status || body.Data == nil {
		return failed(ProviderPaystack, reference, fmt.Sprintf("paystack verification failed: %s", body.Message))
	}
	if body.Data.Status != "success" {
		return failed(ProviderPaystack, reference, fmt.Sprintf("transaction status %q", body.Data.Status))
	}

	canonical := body.Data.Reference
	if canonical == "" {
		canonical = reference
	}
	return Result{
		Status:    StatusSuccess,
		Amount:    float64(body.Data.Amount) / 100,
		Reference: canonical,
		Provider:  ProviderPaystack,
	}
}
