package services

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/models"
)

type confirmFixture struct {
	*attributionFixture
	users     *memUserStore
	referrals *memReferralStore
	mailer    *memMailer
	push      *memPush
	latch     *memLatch
	gateway   *stubGateway
	service   *PaymentService

	referrer *models.User
}

func newConfirmFixture() *confirmFixture {
	f := &confirmFixture{
		attributionFixture: newAttributionFixture(),
		referrals:          &memReferralStore{},
		mailer:             &memMailer{},
		push:               &memPush{},
		latch:              newMemLatch(),
		gateway: &stubGateway{
			verification: &models.VerificationResult{Status: "succeeded", Succeeded: true},
		},
	}

	f.referrer = &models.User{
		ID:       primitive.NewObjectID(),
		Email:    "rita@example.com",
		FullName: "Rita Referrer",
	}
	f.users = newMemUserStore(f.referrer)

	f.catalog.companies[f.companyA] = &models.Company{
		ID: f.companyA, Name: "Company A", Email: "orders@company-a.example.com",
	}
	f.catalog.companies[f.companyB] = &models.Company{
		ID: f.companyB, Name: "Company B", Email: "orders@company-b.example.com",
	}

	referralService := NewReferralService(f.referrals, newMemShortCodeStore(), f.users)
	orderService := NewOrderService(f.catalog, f.orders, f.events)
	f.service = NewPaymentService(f.gateway, f.gateway, orderService, referralService,
		f.catalog, f.users, f.mailer, f.push, f.latch)
	return f
}

func (f *confirmFixture) confirmation(paymentID, referredBy string) models.PaymentConfirmation {
	return models.PaymentConfirmation{
		PaymentIntentID: paymentID,
		PayerID:         "buyer-1",
		ReferredBy:      referredBy,
		Items: []models.LineItem{
			{ProductID: f.assigned.ID.Hex(), Name: "Assigned", Price: 25, Quantity: 2},
		},
		CustomerInfo: models.CustomerContact{Name: "Ana Buyer", Email: "ana@example.com"},
	}
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms, attributes and notifies on a clean payment", func(t *testing.T) {
		f := newConfirmFixture()

		result, err := f.service.ConfirmPayment(ctx, f.gateway, f.confirmation("pi_1", ""))
		if err != nil {
			t.Fatalf("ConfirmPayment returned error: %v", err)
		}
		if !result.Success {
			t.Error("result.Success = false, want true")
		}
		if result.Commission != 0 {
			t.Errorf("commission = %.2f, want 0 without a referral", result.Commission)
		}

		orders, _ := f.orders.ListByPayment(ctx, "pi_1")
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if f.mailer.companyMailCount() != 1 {
			t.Errorf("company mails = %d, want 1", f.mailer.companyMailCount())
		}
	})

	t.Run("records the commission for a referred purchase", func(t *testing.T) {
		f := newConfirmFixture()

		result, err := f.service.ConfirmPayment(ctx, f.gateway, f.confirmation("pi_2", f.referrer.ID.Hex()))
		if err != nil {
			t.Fatalf("ConfirmPayment returned error: %v", err)
		}
		// 50.00 * 0.05
		if result.Commission != 2.50 {
			t.Errorf("commission = %.2f, want 2.50", result.Commission)
		}
		if len(f.referrals.rows) != 1 {
			t.Fatalf("ledger holds %d rows, want 1", len(f.referrals.rows))
		}
		if f.mailer.commissionMailCount() != 1 {
			t.Errorf("commission mails = %d, want 1", f.mailer.commissionMailCount())
		}
		if len(f.push.sends) != 1 || f.push.sends[0] != f.referrer.ID.Hex() {
			t.Errorf("unexpected pushes: %v", f.push.sends)
		}
	})

	t.Run("ignores a self-referral", func(t *testing.T) {
		f := newConfirmFixture()

		confirmation := f.confirmation("pi_3", "buyer-1")
		result, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation)
		if err != nil {
			t.Fatalf("ConfirmPayment returned error: %v", err)
		}
		if result.Commission != 0 {
			t.Errorf("commission = %.2f, want 0 for self-referral", result.Commission)
		}
		if len(f.referrals.rows) != 0 {
			t.Errorf("ledger holds %d rows, want 0", len(f.referrals.rows))
		}
	})

	t.Run("succeeds even when the referrer does not exist", func(t *testing.T) {
		f := newConfirmFixture()

		result, err := f.service.ConfirmPayment(ctx, f.gateway, f.confirmation("pi_4", primitive.NewObjectID().Hex()))
		if err != nil {
			t.Fatalf("ConfirmPayment returned error: %v", err)
		}
		if !result.Success {
			t.Error("payment failed because of a missing referrer")
		}
		if len(f.referrals.rows) != 0 {
			t.Errorf("ledger holds %d rows, want 0", len(f.referrals.rows))
		}
	})

	t.Run("succeeds even when company mail delivery fails", func(t *testing.T) {
		f := newConfirmFixture()
		f.mailer.failCompanyMails = true

		result, err := f.service.ConfirmPayment(ctx, f.gateway, f.confirmation("pi_5", ""))
		if err != nil {
			t.Fatalf("ConfirmPayment returned error: %v", err)
		}
		if !result.Success {
			t.Error("payment failed because of a mail error")
		}
	})

	t.Run("rejects an unsettled payment", func(t *testing.T) {
		f := newConfirmFixture()
		f.gateway.verification = &models.VerificationResult{Status: "requires_payment_method", Succeeded: false}

		_, err := f.service.ConfirmPayment(ctx, f.gateway, f.confirmation("pi_6", ""))
		if !errors.Is(err, ErrPaymentNotCompleted) {
			t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
		}

		orders, _ := f.orders.ListByPayment(ctx, "pi_6")
		if len(orders) != 0 {
			t.Errorf("unsettled payment created %d orders", len(orders))
		}
	})

	t.Run("propagates a verification failure", func(t *testing.T) {
		f := newConfirmFixture()
		f.gateway.verification = nil
		f.gateway.verifyErr = ErrGatewayUnreachable

		_, err := f.service.ConfirmPayment(ctx, f.gateway, f.confirmation("pi_7", ""))
		if !errors.Is(err, ErrGatewayUnreachable) {
			t.Fatalf("expected ErrGatewayUnreachable, got %v", err)
		}
	})

	t.Run("releases the latch after a failed verification so the retry settles", func(t *testing.T) {
		f := newConfirmFixture()
		f.gateway.verification = nil
		f.gateway.verifyErr = ErrGatewayUnreachable
		confirmation := f.confirmation("pi_20", f.referrer.ID.Hex())

		if _, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation); err == nil {
			t.Fatal("first ConfirmPayment succeeded, want verification error")
		}
		if f.latch.held("pi_20") {
			t.Fatal("latch still held after a failed confirmation")
		}

		f.gateway.verifyErr = nil
		f.gateway.verification = &models.VerificationResult{Status: "succeeded", Succeeded: true}
		result, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation)
		if err != nil {
			t.Fatalf("retry returned error: %v", err)
		}
		if result.Commission != 2.50 {
			t.Errorf("retry commission = %.2f, want 2.50", result.Commission)
		}

		orders, _ := f.orders.ListByPayment(ctx, "pi_20")
		if len(orders) != 1 {
			t.Errorf("retry created %d orders, want 1", len(orders))
		}
		if len(f.referrals.rows) != 1 {
			t.Errorf("ledger holds %d rows after retry, want 1", len(f.referrals.rows))
		}
	})

	t.Run("releases the latch after a failed attribution so the retry settles", func(t *testing.T) {
		f := newConfirmFixture()
		f.orders.failInsert = true
		confirmation := f.confirmation("pi_21", "")

		if _, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation); err == nil {
			t.Fatal("first ConfirmPayment succeeded, want attribution error")
		}
		if f.latch.held("pi_21") {
			t.Fatal("latch still held after a failed confirmation")
		}

		f.orders.failInsert = false
		result, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation)
		if err != nil {
			t.Fatalf("retry returned error: %v", err)
		}
		if !result.Success {
			t.Error("retry reported failure")
		}

		orders, _ := f.orders.ListByPayment(ctx, "pi_21")
		if len(orders) != 1 {
			t.Errorf("retry created %d orders, want 1", len(orders))
		}
	})

	t.Run("suppresses a racing duplicate through the latch", func(t *testing.T) {
		f := newConfirmFixture()
		confirmation := f.confirmation("pi_8", "")

		if _, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation); err != nil {
			t.Fatalf("first ConfirmPayment returned error: %v", err)
		}
		result, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation)
		if err != nil {
			t.Fatalf("duplicate ConfirmPayment returned error: %v", err)
		}
		if !result.Success {
			t.Error("duplicate confirmation reported failure")
		}

		orders, _ := f.orders.ListByPayment(ctx, "pi_8")
		if len(orders) != 1 {
			t.Errorf("duplicate confirmation created extra orders: %d", len(orders))
		}
	})

	t.Run("reports the recorded commission on a suppressed duplicate", func(t *testing.T) {
		f := newConfirmFixture()
		confirmation := f.confirmation("pi_22", f.referrer.ID.Hex())

		first, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation)
		if err != nil {
			t.Fatalf("first ConfirmPayment returned error: %v", err)
		}
		duplicate, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation)
		if err != nil {
			t.Fatalf("duplicate ConfirmPayment returned error: %v", err)
		}
		if duplicate.Commission != first.Commission {
			t.Errorf("duplicate commission = %.2f, want %.2f", duplicate.Commission, first.Commission)
		}
		if duplicate.Commission != 2.50 {
			t.Errorf("duplicate commission = %.2f, want 2.50", duplicate.Commission)
		}
	})

	t.Run("proceeds when the latch backend is down", func(t *testing.T) {
		f := newConfirmFixture()
		f.latch.err = errors.New("redis down")

		result, err := f.service.ConfirmPayment(ctx, f.gateway, f.confirmation("pi_9", ""))
		if err != nil {
			t.Fatalf("ConfirmPayment returned error: %v", err)
		}
		if !result.Success {
			t.Error("latch outage failed the payment")
		}
	})

	t.Run("ignores a replay that slipped past a broken latch", func(t *testing.T) {
		f := newConfirmFixture()
		f.latch.err = errors.New("redis down")
		confirmation := f.confirmation("pi_10", "")

		if _, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation); err != nil {
			t.Fatalf("first ConfirmPayment returned error: %v", err)
		}
		result, err := f.service.ConfirmPayment(ctx, f.gateway, confirmation)
		if err != nil {
			t.Fatalf("replayed ConfirmPayment returned error: %v", err)
		}
		if !result.Success {
			t.Error("replayed confirmation reported failure")
		}
		if f.mailer.companyMailCount() != 1 {
			t.Errorf("company mails = %d, want 1 after replay", f.mailer.companyMailCount())
		}
	})
}

func TestHandleMercadoPagoWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("records a commission from metadata", func(t *testing.T) {
		f := newConfirmFixture()
		f.gateway.verification = &models.VerificationResult{
			ProviderReference: "12345",
			Status:            "approved",
			Succeeded:         true,
			AmountMinorUnits:  5000,
			Metadata: map[string]string{
				MetaUserID:        "buyer-1",
				MetaReferredBy:    f.referrer.ID.Hex(),
				MetaCustomerEmail: "ana@example.com",
				MetaCustomerName:  "Ana Buyer",
				MetaTotalAmount:   "50.00",
			},
		}

		webhook := models.MercadoPagoWebhook{Type: "payment"}
		webhook.Data.ID = "12345"
		err := f.service.HandleMercadoPagoWebhook(ctx, webhook)
		if err != nil {
			t.Fatalf("HandleMercadoPagoWebhook returned error: %v", err)
		}
		if len(f.referrals.rows) != 1 {
			t.Fatalf("ledger holds %d rows, want 1", len(f.referrals.rows))
		}
		if f.referrals.rows[0].Commission != 2.50 {
			t.Errorf("commission = %.2f, want 2.50", f.referrals.rows[0].Commission)
		}
	})

	t.Run("tolerates snake_case metadata keys", func(t *testing.T) {
		f := newConfirmFixture()
		f.gateway.verification = &models.VerificationResult{
			ProviderReference: "12346",
			Status:            "approved",
			Succeeded:         true,
			AmountMinorUnits:  5000,
			Metadata: map[string]string{
				"user_id":     "buyer-1",
				"referred_by": f.referrer.ID.Hex(),
			},
		}

		webhook := models.MercadoPagoWebhook{Type: "payment"}
		webhook.Data.ID = "12346"
		err := f.service.HandleMercadoPagoWebhook(ctx, webhook)
		if err != nil {
			t.Fatalf("HandleMercadoPagoWebhook returned error: %v", err)
		}
		if len(f.referrals.rows) != 1 {
			t.Fatalf("ledger holds %d rows, want 1", len(f.referrals.rows))
		}
	})

	t.Run("records the commission when the gateway redelivers after a storage failure", func(t *testing.T) {
		f := newConfirmFixture()
		f.gateway.verification = &models.VerificationResult{
			ProviderReference: "12350",
			Status:            "approved",
			Succeeded:         true,
			AmountMinorUnits:  5000,
			Metadata: map[string]string{
				MetaUserID:     "buyer-1",
				MetaReferredBy: f.referrer.ID.Hex(),
			},
		}
		webhook := models.MercadoPagoWebhook{Type: "payment"}
		webhook.Data.ID = "12350"

		f.referrals.failInsert = true
		if err := f.service.HandleMercadoPagoWebhook(ctx, webhook); err == nil {
			t.Fatal("expected error from the failed commission insert")
		}
		if f.latch.held("12350") {
			t.Fatal("latch still held after the failed delivery")
		}

		f.referrals.failInsert = false
		if err := f.service.HandleMercadoPagoWebhook(ctx, webhook); err != nil {
			t.Fatalf("redelivered webhook returned error: %v", err)
		}
		if len(f.referrals.rows) != 1 {
			t.Fatalf("ledger holds %d rows after redelivery, want 1", len(f.referrals.rows))
		}
	})

	t.Run("ignores non-payment events", func(t *testing.T) {
		f := newConfirmFixture()

		err := f.service.HandleMercadoPagoWebhook(ctx, models.MercadoPagoWebhook{Type: "test"})
		if err != nil {
			t.Fatalf("HandleMercadoPagoWebhook returned error: %v", err)
		}
		if len(f.referrals.rows) != 0 {
			t.Errorf("ledger holds %d rows, want 0", len(f.referrals.rows))
		}
	})

	t.Run("ignores unapproved payments", func(t *testing.T) {
		f := newConfirmFixture()
		f.gateway.verification = &models.VerificationResult{Status: "rejected", Succeeded: false}

		webhook := models.MercadoPagoWebhook{Type: "payment"}
		webhook.Data.ID = "12347"
		err := f.service.HandleMercadoPagoWebhook(ctx, webhook)
		if err != nil {
			t.Fatalf("HandleMercadoPagoWebhook returned error: %v", err)
		}
		if len(f.referrals.rows) != 0 {
			t.Errorf("ledger holds %d rows, want 0", len(f.referrals.rows))
		}
	})
}
