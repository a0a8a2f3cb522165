package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testStripeService(baseURL string) *StripeService {
	return &StripeService{
		baseURL:        baseURL,
		secretKey:      "sk_test_123",
		publishableKey: "pk_test_123",
		client:         &http.Client{Timeout: 2 * time.Second},
	}
}

func TestStripeCreateIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("posts amount, currency and metadata", func(t *testing.T) {
		var form map[string][]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payment_intents" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer sk_test_123" {
				t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
			}
			r.ParseForm()
			form = r.PostForm
			w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret","status":"requires_payment_method"}`))
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		req := validRequest()
		req.UserID = "user-1"
		req.ReferredBy = "ref-1"

		result, err := svc.CreateIntent(ctx, req)
		if err != nil {
			t.Fatalf("CreateIntent returned error: %v", err)
		}
		if result.ProviderReference != "pi_123" {
			t.Errorf("provider reference = %q, want pi_123", result.ProviderReference)
		}
		if result.ClientSecret != "pi_123_secret" {
			t.Errorf("client secret = %q", result.ClientSecret)
		}

		if got := form["amount"]; len(got) != 1 || got[0] != "5000" {
			t.Errorf("amount form field = %v, want 5000", got)
		}
		if got := form["currency"]; len(got) != 1 || got[0] != "usd" {
			t.Errorf("currency form field = %v, want usd", got)
		}
		if got := form["metadata[userId]"]; len(got) != 1 || got[0] != "user-1" {
			t.Errorf("metadata[userId] = %v, want user-1", got)
		}
		if got := form["metadata[referredBy]"]; len(got) != 1 || got[0] != "ref-1" {
			t.Errorf("metadata[referredBy] = %v, want ref-1", got)
		}
	})

	t.Run("rejects invalid requests before any network call", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("server should not be reached")
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		req := validRequest()
		req.Amount = 10

		if _, err := svc.CreateIntent(ctx, req); !errors.Is(err, ErrAmountTooSmall) {
			t.Fatalf("expected ErrAmountTooSmall, got %v", err)
		}
	})

	t.Run("maps a card decline to a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		if _, err := svc.CreateIntent(ctx, validRequest()); !errors.Is(err, ErrGatewayRejected) {
			t.Fatalf("expected ErrGatewayRejected, got %v", err)
		}
	})

	t.Run("maps bad credentials to an auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid API Key"}}`))
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		if _, err := svc.CreateIntent(ctx, validRequest()); !errors.Is(err, ErrGatewayAuth) {
			t.Fatalf("expected ErrGatewayAuth, got %v", err)
		}
	})
}

func TestStripeVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("reports a settled intent with its metadata", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payment_intents/pi_123" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":5000,"currency":"usd","metadata":{"userId":"user-1","referredBy":"ref-1"}}`))
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		result, err := svc.Verify(ctx, "pi_123")
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if !result.Succeeded {
			t.Error("Succeeded = false, want true")
		}
		if result.AmountMinorUnits != 5000 {
			t.Errorf("amount = %d, want 5000", result.AmountMinorUnits)
		}
		if result.Metadata["referredBy"] != "ref-1" {
			t.Errorf("metadata did not round-trip: %v", result.Metadata)
		}
	})

	t.Run("reports an unsettled intent without error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"pi_123","status":"requires_payment_method","amount":5000,"currency":"usd"}`))
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		result, err := svc.Verify(ctx, "pi_123")
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if result.Succeeded {
			t.Error("Succeeded = true for an unsettled intent")
		}
	})

	t.Run("retries once when the gateway is unreachable", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":5000,"currency":"usd"}`))
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		result, err := svc.Verify(ctx, "pi_123")
		if err != nil {
			t.Fatalf("Verify returned error after retry: %v", err)
		}
		if calls != 2 {
			t.Errorf("gateway called %d times, want 2", calls)
		}
		if !result.Succeeded {
			t.Error("Succeeded = false after successful retry")
		}
	})

	t.Run("does not retry a rejection", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such payment_intent"}}`))
		}))
		defer srv.Close()

		svc := testStripeService(srv.URL)
		if _, err := svc.Verify(ctx, "pi_missing"); !errors.Is(err, ErrGatewayRejected) {
			t.Fatalf("expected ErrGatewayRejected, got %v", err)
		}
		if calls != 1 {
			t.Errorf("gateway called %d times, want 1", calls)
		}
	})
}
