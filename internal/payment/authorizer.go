package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"campusbite/internal/config"
	"campusbite/internal/logger"
)

// VerificationResult is the authorizer's answer for a payment reference
type VerificationResult string

const (
	Authorized VerificationResult = "authorized"
	Rejected   VerificationResult = "rejected"
	Unknown    VerificationResult = "unknown"
)

// Authorizer answers "was this payment authorized?". The actual
// card/UPI processing happens in the external gateway.
type Authorizer interface {
	Verify(ctx context.Context, paymentRef string) (VerificationResult, error)
}

// HTTPAuthorizer verifies payment references against the external
// gateway's verification endpoint, bounded by the configured timeout.
type HTTPAuthorizer struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *logger.Logger
}

// NewHTTPAuthorizer creates a gateway-backed authorizer
func NewHTTPAuthorizer(cfg *config.Config, log *logger.Logger) *HTTPAuthorizer {
	timeout := cfg.PaymentTimeout()
	return &HTTPAuthorizer{
		baseURL: cfg.Payment.BaseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// Verify asks the gateway whether the payment reference is authorized.
// A timeout or unreachable gateway yields Unknown, never a guess.
func (a *HTTPAuthorizer) Verify(ctx context.Context, paymentRef string) (VerificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"payment_ref": paymentRef})
	if err != nil {
		return Unknown, fmt.Errorf("failed to marshal verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/payments/verify", bytes.NewReader(body))
	if err != nil {
		return Unknown, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			a.logger.Error("payment_verify_timeout", "Payment authorizer did not respond in time", "", err, map[string]interface{}{
				"timeout": a.timeout.String(),
			})
			return Unknown, nil
		}
		return Unknown, fmt.Errorf("payment authorizer unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Rejected, nil
	}

	var result struct {
		Authorized bool `json:"authorized"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Unknown, fmt.Errorf("failed to decode verification response: %w", err)
	}

	if result.Authorized {
		return Authorized, nil
	}
	return Rejected, nil
}
