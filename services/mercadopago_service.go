// services/mercadopago_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mercadopro/mercadopro_backend/models"
)

// MercadoPagoService is the redirect-based regional gateway adapter. The
// buyer is sent to a hosted checkout; completion arrives through a webhook.
type MercadoPagoService struct {
	baseURL     string
	accessToken string
	frontendURL string
	backendURL  string
	client      *http.Client
}

// NewMercadoPagoService creates a new MercadoPago adapter from environment
// variables
func NewMercadoPagoService() *MercadoPagoService {
	accessToken := os.Getenv("MERCADOPAGO_ACCESS_TOKEN")
	if accessToken == "" {
		log.Printf("WARNING: MERCADOPAGO_ACCESS_TOKEN is missing, MercadoPago payments will fail")
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8080"
	}

	return &MercadoPagoService{
		baseURL:     "https://api.mercadopago.com",
		accessToken: accessToken,
		frontendURL: frontendURL,
		backendURL:  backendURL,
		client:      &http.Client{Timeout: 8 * time.Second},
	}
}

type mpPreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpPreferenceRequest struct {
	Items []mpPreferenceItem `json:"items"`
	Payer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"payer"`
	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Pending string `json:"pending"`
	} `json:"back_urls"`
	ExternalReference   string            `json:"external_reference"`
	Metadata            map[string]string `json:"metadata"`
	NotificationURL     string            `json:"notification_url"`
	StatementDescriptor string            `json:"statement_descriptor"`
}

type mpPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type mpPayment struct {
	ID                json.Number       `json:"id"`
	Status            string            `json:"status"`
	TransactionAmount float64           `json:"transaction_amount"`
	CurrencyID        string            `json:"currency_id"`
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]string `json:"metadata"`
}

func (s *MercadoPagoService) doJSON(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	if s.accessToken == "" {
		return nil, fmt.Errorf("%w: MERCADOPAGO_ACCESS_TOKEN is not configured", ErrGatewayAuth)
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
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

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		log.Printf("ALERT: MercadoPago authentication failed (%d): %s", resp.StatusCode, string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrGatewayAuth, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: mercadopago returned %d", ErrGatewayUnreachable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, string(respBody))
	}
}

// CreateIntent creates a Checkout Pro preference and returns the redirect
// URL the buyer must be sent to
func (s *MercadoPagoService) CreateIntent(ctx context.Context, req models.CreateIntentRequest) (*models.IntentResult, error) {
	if err := validateIntentRequest(req); err != nil {
		return nil, err
	}

	userID := req.UserID
	if userID == "" {
		userID = "guest"
	}

	pref := mpPreferenceRequest{
		Items:               make([]mpPreferenceItem, 0, len(req.Items)),
		ExternalReference:   fmt.Sprintf("order_%s_%s", userID, uuid.NewString()),
		Metadata:            buildIntentMetadata(req),
		NotificationURL:     s.backendURL + "/payments/mercadopago/webhook",
		StatementDescriptor: "MERCADOPRO",
	}
	pref.Payer.Name = req.CustomerInfo.Name
	pref.Payer.Email = req.CustomerInfo.Email
	pref.BackURLs.Success = s.frontendURL + "/payment/success"
	pref.BackURLs.Failure = s.frontendURL + "/payment/failure"
	pref.BackURLs.Pending = s.frontendURL + "/payment/success"

	for _, item := range req.Items {
		pref.Items = append(pref.Items, mpPreferenceItem{
			ID:         item.ProductID,
			Title:      item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			CurrencyID: "USD",
		})
	}

	log.Printf("Creating MercadoPago preference: items=%d, customer=%s, ref=%s",
		len(req.Items), req.CustomerInfo.Email, pref.ExternalReference)

	respBody, err := s.doJSON(ctx, http.MethodPost, "/checkout/preferences", pref)
	if err != nil {
		return nil, err
	}

	var created mpPreferenceResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to parse mercadopago response: %w", err)
	}

	log.Printf("MercadoPago preference created: id=%s", created.ID)

	return &models.IntentResult{
		ProviderReference: created.ID,
		RedirectURL:       created.InitPoint,
		SandboxURL:        created.SandboxInitPoint,
	}, nil
}

// Verify fetches the payment and reports whether it was approved. The
// providerRef here is the MercadoPago payment id delivered by the webhook.
func (s *MercadoPagoService) Verify(ctx context.Context, providerRef string) (*models.VerificationResult, error) {
	respBody, err := s.doJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(providerRef), nil)
	if err != nil {
		if !errors.Is(err, ErrGatewayUnreachable) {
			return nil, err
		}
		log.Printf("MercadoPago verify failed transiently, retrying once: %v", err)
		time.Sleep(500 * time.Millisecond)
		respBody, err = s.doJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(providerRef), nil)
		if err != nil {
			return nil, err
		}
	}

	var payment mpPayment
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("failed to parse mercadopago response: %w", err)
	}

	return &models.VerificationResult{
		ProviderReference: payment.ID.String(),
		Status:            payment.Status,
		Succeeded:         payment.Status == "approved",
		AmountMinorUnits:  int64(math.Round(payment.TransactionAmount * 100)),
		Currency:          payment.CurrencyID,
		Metadata:          payment.Metadata,
	}, nil
}
