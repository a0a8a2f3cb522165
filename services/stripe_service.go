// services/stripe_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopro/mercadopro_backend/models"
)

// StripeService is the card-network gateway adapter. Payments are confirmed
// client-side with the client secret; the backend only creates and verifies
// intents.
type StripeService struct {
	baseURL        string
	secretKey      string
	publishableKey string
	client         *http.Client
}

// NewStripeService creates a new Stripe adapter from environment variables
func NewStripeService() *StripeService {
	secretKey := os.Getenv("STRIPE_SECRET_KEY")
	publishableKey := os.Getenv("STRIPE_PUBLISHABLE_KEY")

	if secretKey == "" {
		log.Printf("WARNING: STRIPE_SECRET_KEY is missing, card payments will fail")
	} else if !strings.HasPrefix(secretKey, "sk_") {
		log.Printf("WARNING: STRIPE_SECRET_KEY does not look like a secret key (expected sk_ prefix)")
	}
	if publishableKey == "" {
		log.Printf("WARNING: STRIPE_PUBLISHABLE_KEY is missing")
	}

	return &StripeService{
		baseURL:        "https://api.stripe.com/v1",
		secretKey:      secretKey,
		publishableKey: publishableKey,
		client:         &http.Client{Timeout: 8 * time.Second},
	}
}

// PublishableKey returns the public key the checkout frontend needs
func (s *StripeService) PublishableKey() (string, error) {
	if s.publishableKey == "" {
		return "", fmt.Errorf("%w: STRIPE_PUBLISHABLE_KEY is not configured", ErrGatewayAuth)
	}
	return s.publishableKey, nil
}

type stripeIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *StripeService) doForm(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("%w: STRIPE_SECRET_KEY is not configured", ErrGatewayAuth)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGatewayUnreachable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	var apiErr stripeError
	_ = json.Unmarshal(respBody, &apiErr)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		log.Printf("ALERT: Stripe authentication failed (%d): %s", resp.StatusCode, apiErr.Error.Message)
		return nil, fmt.Errorf("%w: %s", ErrGatewayAuth, apiErr.Error.Message)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: stripe returned %d", ErrGatewayUnreachable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: %s %s", ErrGatewayRejected, apiErr.Error.Code, apiErr.Error.Message)
	}
}

// CreateIntent creates a payment intent with attribution metadata attached
func (s *StripeService) CreateIntent(ctx context.Context, req models.CreateIntentRequest) (*models.IntentResult, error) {
	if err := validateIntentRequest(req); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("description", fmt.Sprintf("Order of %d item(s) - %s - Total: $%.2f",
		len(req.Items), req.CustomerInfo.Email, float64(req.Amount)/100))

	for key, value := range buildIntentMetadata(req) {
		form.Set("metadata["+key+"]", value)
	}

	log.Printf("Creating Stripe payment intent: amount=%d %s, items=%d, customer=%s",
		req.Amount, currency, len(req.Items), req.CustomerInfo.Email)

	respBody, err := s.doForm(ctx, http.MethodPost, "/payment_intents", form)
	if err != nil {
		return nil, err
	}

	var intent stripeIntent
	if err := json.Unmarshal(respBody, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse stripe response: %w", err)
	}

	log.Printf("Stripe payment intent created: id=%s status=%s", intent.ID, intent.Status)

	return &models.IntentResult{
		ProviderReference: intent.ID,
		ClientSecret:      intent.ClientSecret,
	}, nil
}

// Verify retrieves the intent and reports its settled state. Retries once
// when Stripe is unreachable; never retries a decline.
func (s *StripeService) Verify(ctx context.Context, providerRef string) (*models.VerificationResult, error) {
	respBody, err := s.doForm(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(providerRef), nil)
	if err != nil {
		if !errors.Is(err, ErrGatewayUnreachable) {
			return nil, err
		}
		log.Printf("Stripe verify failed transiently, retrying once: %v", err)
		time.Sleep(500 * time.Millisecond)
		respBody, err = s.doForm(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(providerRef), nil)
		if err != nil {
			return nil, err
		}
	}

	var intent stripeIntent
	if err := json.Unmarshal(respBody, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse stripe response: %w", err)
	}

	return &models.VerificationResult{
		ProviderReference: intent.ID,
		Status:            intent.Status,
		Succeeded:         intent.Status == "succeeded",
		AmountMinorUnits:  intent.Amount,
		Currency:          intent.Currency,
		Metadata:          intent.Metadata,
	}, nil
}
