package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testMercadoPagoService(baseURL string) *MercadoPagoService {
	return &MercadoPagoService{
		baseURL:     baseURL,
		accessToken: "TEST-token",
		frontendURL: "https://shop.example.com",
		backendURL:  "https://api.example.com",
		client:      &http.Client{Timeout: 2 * time.Second},
	}
}

func TestMercadoPagoCreateIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a preference with back urls and metadata", func(t *testing.T) {
		var payload mpPreferenceRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/checkout/preferences" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer TEST-token" {
				t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
			}
			json.NewDecoder(r.Body).Decode(&payload)
			w.Write([]byte(`{"id":"pref_1","init_point":"https://mp.example/init","sandbox_init_point":"https://mp.example/sandbox"}`))
		}))
		defer srv.Close()

		svc := testMercadoPagoService(srv.URL)
		req := validRequest()
		req.UserID = "user-1"
		req.ReferredBy = "ref-1"

		result, err := svc.CreateIntent(ctx, req)
		if err != nil {
			t.Fatalf("CreateIntent returned error: %v", err)
		}
		if result.ProviderReference != "pref_1" {
			t.Errorf("provider reference = %q, want pref_1", result.ProviderReference)
		}
		if result.RedirectURL != "https://mp.example/init" {
			t.Errorf("redirect url = %q", result.RedirectURL)
		}

		if len(payload.Items) != 1 || payload.Items[0].UnitPrice != 25 || payload.Items[0].Quantity != 2 {
			t.Errorf("unexpected preference items: %+v", payload.Items)
		}
		if payload.BackURLs.Success != "https://shop.example.com/payment/success" {
			t.Errorf("success back url = %q", payload.BackURLs.Success)
		}
		if payload.NotificationURL != "https://api.example.com/payments/mercadopago/webhook" {
			t.Errorf("notification url = %q", payload.NotificationURL)
		}
		if payload.Metadata[MetaReferredBy] != "ref-1" {
			t.Errorf("metadata referredBy = %q, want ref-1", payload.Metadata[MetaReferredBy])
		}
		if payload.ExternalReference == "" {
			t.Error("external reference is empty")
		}
	})

	t.Run("maps server failures to unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		svc := testMercadoPagoService(srv.URL)
		if _, err := svc.CreateIntent(ctx, validRequest()); !errors.Is(err, ErrGatewayUnreachable) {
			t.Fatalf("expected ErrGatewayUnreachable, got %v", err)
		}
	})
}

func TestMercadoPagoVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("maps an approved payment", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/payments/12345" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"id":12345,"status":"approved","transaction_amount":59.97,"currency_id":"USD","metadata":{"user_id":"user-1","referred_by":"ref-1"}}`))
		}))
		defer srv.Close()

		svc := testMercadoPagoService(srv.URL)
		result, err := svc.Verify(ctx, "12345")
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if !result.Succeeded {
			t.Error("Succeeded = false, want true")
		}
		if result.AmountMinorUnits != 5997 {
			t.Errorf("amount = %d, want 5997", result.AmountMinorUnits)
		}
		if metadataValue(result.Metadata, MetaReferredBy) != "ref-1" {
			t.Errorf("normalized metadata lookup failed: %v", result.Metadata)
		}
	})

	t.Run("reports a rejected payment without error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":12346,"status":"rejected","transaction_amount":10,"currency_id":"USD"}`))
		}))
		defer srv.Close()

		svc := testMercadoPagoService(srv.URL)
		result, err := svc.Verify(ctx, "12346")
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if result.Succeeded {
			t.Error("Succeeded = true for a rejected payment")
		}
	})

	t.Run("retries once on a transient failure", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"id":12347,"status":"approved","transaction_amount":10,"currency_id":"USD"}`))
		}))
		defer srv.Close()

		svc := testMercadoPagoService(srv.URL)
		result, err := svc.Verify(ctx, "12347")
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
}
