// services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/mercadopro/mercadopro_backend/models"
)

// Confirmation pipeline states. FAILED is only reachable before attribution;
// once orders exist the payment is settled and later stages degrade instead
// of failing.
const (
	stateReceived     = "RECEIVED"
	stateVerified     = "VERIFIED"
	stateAttributed   = "ATTRIBUTED"
	stateCommissioned = "COMMISSIONED"
	stateNotified     = "NOTIFIED"
	stateFailed       = "FAILED"
)

// PaymentService orchestrates payment confirmation: verify with the gateway,
// attribute orders to vendors, record the referral commission, then notify
// companies and the referrer. Verification and attribution are load-bearing;
// commission and notification failures are absorbed.
type PaymentService struct {
	stripe      PaymentGateway
	mercadopago PaymentGateway
	orders      *OrderService
	referrals   *ReferralService
	catalog     CatalogStore
	users       UserStore
	mailer      Mailer
	push        PushNotifier
	latch       ConfirmationLatch
}

// NewPaymentService creates the orchestrator. push and latch may be nil when
// the corresponding backends are not configured.
func NewPaymentService(stripe, mercadopago PaymentGateway, orders *OrderService, referrals *ReferralService, catalog CatalogStore, users UserStore, mailer Mailer, push PushNotifier, latch ConfirmationLatch) *PaymentService {
	return &PaymentService{
		stripe:      stripe,
		mercadopago: mercadopago,
		orders:      orders,
		referrals:   referrals,
		catalog:     catalog,
		users:       users,
		mailer:      mailer,
		push:        push,
		latch:       latch,
	}
}

// Stripe returns the card gateway adapter
func (s *PaymentService) Stripe() PaymentGateway { return s.stripe }

// MercadoPago returns the redirect gateway adapter
func (s *PaymentService) MercadoPago() PaymentGateway { return s.mercadopago }

// PaymentHistory lists the orders created from the buyer's past payments,
// newest first
func (s *PaymentService) PaymentHistory(ctx context.Context, payerID string) ([]models.Order, error) {
	return s.orders.OrdersForUser(ctx, payerID)
}

func logState(paymentIntentID, state string) {
	log.Printf("Payment %s -> %s", paymentIntentID, state)
}

// ConfirmPayment runs the full confirmation pipeline for a payment reported
// complete by the client. Safe to retry: the latch short-circuits racing
// duplicates, a failed attempt releases it again, and the unique indexes
// make the writes idempotent regardless.
func (s *PaymentService) ConfirmPayment(ctx context.Context, gateway PaymentGateway, confirmation models.PaymentConfirmation) (*models.ConfirmResult, error) {
	logState(confirmation.PaymentIntentID, stateReceived)

	held := false
	if s.latch != nil {
		acquired, err := s.latch.TryLock(ctx, confirmation.PaymentIntentID)
		switch {
		case err != nil:
			log.Printf("WARNING: confirmation latch unavailable for %s, proceeding without it: %v",
				confirmation.PaymentIntentID, err)
		case acquired:
			held = true
		default:
			// The latch is held but only orders on record prove the payment
			// was processed; a stuck key must not swallow the confirmation
			if result := s.settledResult(ctx, confirmation); result != nil {
				log.Printf("Duplicate confirmation for %s suppressed by latch", confirmation.PaymentIntentID)
				return result, nil
			}
			log.Printf("WARNING: latch held for %s with no orders on record, reprocessing",
				confirmation.PaymentIntentID)
		}
	}

	// Orders already persisted for this payment mean the confirmation is a
	// replay that got past the latch
	if result := s.settledResult(ctx, confirmation); result != nil {
		log.Printf("Payment %s already attributed, replayed confirmation ignored", confirmation.PaymentIntentID)
		return result, nil
	}

	verification, err := gateway.Verify(ctx, confirmation.PaymentIntentID)
	if err != nil {
		s.releaseLatch(ctx, held, confirmation.PaymentIntentID)
		logState(confirmation.PaymentIntentID, stateFailed)
		return nil, fmt.Errorf("payment verification failed: %w", err)
	}
	if !verification.Succeeded {
		s.releaseLatch(ctx, held, confirmation.PaymentIntentID)
		logState(confirmation.PaymentIntentID, stateFailed)
		return nil, fmt.Errorf("%w: gateway reports status %q", ErrPaymentNotCompleted, verification.Status)
	}
	logState(confirmation.PaymentIntentID, stateVerified)

	createdOrders, err := s.orders.CreateOrders(ctx, confirmation)
	if err != nil {
		s.releaseLatch(ctx, held, confirmation.PaymentIntentID)
		logState(confirmation.PaymentIntentID, stateFailed)
		return nil, fmt.Errorf("order attribution failed: %w", err)
	}
	logState(confirmation.PaymentIntentID, stateAttributed)

	result := &models.ConfirmResult{
		Success:         true,
		PaymentIntentID: confirmation.PaymentIntentID,
	}

	if referral := s.recordCommission(ctx, confirmation); referral != nil {
		result.Commission = referral.Commission
	}
	logState(confirmation.PaymentIntentID, stateCommissioned)

	s.notifyCompanies(ctx, createdOrders, confirmation.CustomerInfo)
	logState(confirmation.PaymentIntentID, stateNotified)

	return result, nil
}

// settledResult rebuilds the success result for a payment whose orders are
// already on record, including the commission from the first pass. Returns
// nil when the payment has not been attributed yet.
func (s *PaymentService) settledResult(ctx context.Context, confirmation models.PaymentConfirmation) *models.ConfirmResult {
	existing, err := s.orders.OrdersForPayment(ctx, confirmation.PaymentIntentID)
	if err != nil || len(existing) == 0 {
		return nil
	}

	result := &models.ConfirmResult{Success: true, PaymentIntentID: confirmation.PaymentIntentID}
	if confirmation.ReferredBy != "" && confirmation.ReferredBy != confirmation.PayerID {
		referral, err := s.referrals.CommissionFor(ctx, confirmation.ReferredBy, confirmation.PaymentIntentID)
		if err == nil {
			result.Commission = referral.Commission
		}
	}
	return result
}

// releaseLatch frees the confirmation latch after a failed attempt so the
// next retry runs the pipeline instead of being treated as a duplicate
func (s *PaymentService) releaseLatch(ctx context.Context, held bool, paymentIntentID string) {
	if !held || s.latch == nil {
		return
	}
	if err := s.latch.Unlock(ctx, paymentIntentID); err != nil {
		log.Printf("WARNING: could not release confirmation latch for %s: %v", paymentIntentID, err)
	}
}

// recordCommission writes the referral commission when the payment carries a
// valid referral. Self-referrals are ignored. Every failure here is absorbed:
// a commission problem must never fail a settled payment.
func (s *PaymentService) recordCommission(ctx context.Context, confirmation models.PaymentConfirmation) *models.Referral {
	if confirmation.ReferredBy == "" || confirmation.ReferredBy == confirmation.PayerID {
		return nil
	}

	referral, err := s.referrals.RecordCommission(ctx, confirmation.ReferredBy, confirmation)
	if err != nil {
		if errors.Is(err, ErrReferrerNotFound) {
			log.Printf("WARNING: referrer %s not found for payment %s, commission skipped",
				confirmation.ReferredBy, confirmation.PaymentIntentID)
		} else {
			log.Printf("ERROR: failed to record commission for payment %s: %v",
				confirmation.PaymentIntentID, err)
		}
		return nil
	}

	s.notifyReferrer(ctx, referral)
	return referral
}

// notifyReferrer emails and pushes the commission notice. Best effort.
func (s *PaymentService) notifyReferrer(ctx context.Context, referral *models.Referral) {
	referrer, err := s.users.FindByID(ctx, referral.ReferrerID)
	if err != nil {
		log.Printf("WARNING: could not load referrer %s for notification: %v", referral.ReferrerID, err)
		return
	}

	if err := s.mailer.SendCommissionEmail(referrer.Email, referrer.FullName,
		referral.ReferredUserName, referral.Amount, referral.Commission); err != nil {
		log.Printf("WARNING: commission email to %s failed: %v", referrer.Email, err)
	}

	if s.push != nil {
		err := s.push.SendToUser(ctx, referral.ReferrerID,
			"You earned a commission!",
			fmt.Sprintf("You earned $%.2f from a referred purchase", referral.Commission),
			map[string]string{
				"type":            "commission",
				"referralId":      referral.ID.Hex(),
				"paymentIntentId": referral.PaymentIntentID,
			})
		if err != nil {
			log.Printf("WARNING: commission push to %s failed: %v", referral.ReferrerID, err)
		}
	}
}

// notifyCompanies emails every company that received an order, concurrently.
// One slow or failing mailbox never delays or fails the others.
func (s *PaymentService) notifyCompanies(ctx context.Context, orders []models.Order, customer models.CustomerContact) {
	var wg sync.WaitGroup
	for _, order := range orders {
		wg.Add(1)
		go func(order models.Order) {
			defer wg.Done()

			company, err := s.catalog.GetCompany(ctx, order.CompanyID)
			if err != nil {
				log.Printf("WARNING: could not load company %s for order %s: %v",
					order.CompanyID.Hex(), order.ID.Hex(), err)
				return
			}
			if company.Email == "" {
				log.Printf("WARNING: company %s has no email, order notification skipped", company.ID.Hex())
				return
			}

			details := CompanyOrderDetails{
				CustomerName:    customer.Name,
				CustomerEmail:   customer.Email,
				CustomerAddress: customer.Address,
				CustomerCity:    customer.City,
				CustomerPhone:   customer.Phone,
				Products:        order.Lines,
				TotalAmount:     order.Total,
				OrderID:         order.ID.Hex(),
			}
			if err := s.mailer.SendCompanyOrderNotification(company.Email, company.Name, details); err != nil {
				log.Printf("WARNING: order notification to %s (%s) failed: %v",
					company.Name, company.Email, err)
				return
			}
			log.Printf("Order notification sent to %s for order %s", company.Email, order.ID.Hex())
		}(order)
	}
	wg.Wait()
}

// HandleMercadoPagoWebhook processes a payment notification from MercadoPago.
// Only "payment" events are acted on. The confirmation is rebuilt from the
// metadata attached at preference creation, so only the commission side runs;
// there are no line items to attribute.
func (s *PaymentService) HandleMercadoPagoWebhook(ctx context.Context, webhook models.MercadoPagoWebhook) error {
	if webhook.Type != "payment" || webhook.Data.ID == "" {
		log.Printf("Ignoring MercadoPago webhook type=%q id=%q", webhook.Type, webhook.Data.ID)
		return nil
	}

	verification, err := s.mercadopago.Verify(ctx, webhook.Data.ID)
	if err != nil {
		return fmt.Errorf("webhook verification failed: %w", err)
	}
	if !verification.Succeeded {
		log.Printf("MercadoPago payment %s not approved (status=%s), nothing to do",
			verification.ProviderReference, verification.Status)
		return nil
	}

	held := false
	if s.latch != nil {
		acquired, err := s.latch.TryLock(ctx, verification.ProviderReference)
		if err != nil {
			log.Printf("WARNING: confirmation latch unavailable for webhook %s: %v",
				verification.ProviderReference, err)
		} else if !acquired {
			log.Printf("Duplicate webhook for %s suppressed by latch", verification.ProviderReference)
			return nil
		} else {
			held = true
		}
	}

	payerID := metadataValue(verification.Metadata, MetaUserID)
	referredBy := metadataValue(verification.Metadata, MetaReferredBy)
	if payerID == "guest" {
		payerID = ""
	}
	if referredBy == "" || referredBy == payerID {
		log.Printf("MercadoPago payment %s approved, no referral attached", verification.ProviderReference)
		return nil
	}

	amount := float64(verification.AmountMinorUnits) / 100
	if raw := metadataValue(verification.Metadata, MetaTotalAmount); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			amount = parsed
		}
	}

	referral, err := s.referrals.RecordCommissionForAmount(ctx, referredBy, payerID,
		metadataValue(verification.Metadata, MetaCustomerEmail),
		metadataValue(verification.Metadata, MetaCustomerName),
		amount, verification.ProviderReference)
	if err != nil {
		if errors.Is(err, ErrReferrerNotFound) {
			log.Printf("WARNING: referrer %s from webhook %s not found, commission skipped",
				referredBy, verification.ProviderReference)
			return nil
		}
		// The gateway re-delivers after our 500; the latch must not swallow
		// that retry or the commission is lost for good
		s.releaseLatch(ctx, held, verification.ProviderReference)
		return fmt.Errorf("failed to record webhook commission: %w", err)
	}

	s.notifyReferrer(ctx, referral)
	return nil
}
