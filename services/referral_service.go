// services/referral_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/utils"
)

// CommissionRate is the referral commission taken from the gross payment
// amount
const CommissionRate = 0.05

// shortCodeAttempts bounds the collision retry loop when minting codes
const shortCodeAttempts = 5

// ReferralService owns the commission ledger and the referral short codes
type ReferralService struct {
	referrals  ReferralStore
	shortCodes ShortCodeStore
	users      UserStore
}

// NewReferralService creates a new referral service
func NewReferralService(referrals ReferralStore, shortCodes ShortCodeStore, users UserStore) *ReferralService {
	return &ReferralService{
		referrals:  referrals,
		shortCodes: shortCodes,
		users:      users,
	}
}

// roundMoney rounds to two decimal places, half away from zero
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// RecordCommission writes one pending commission row for a verified payment.
// Idempotent per (referrer, payment): a retried confirmation returns the
// existing row instead of double-paying. A missing referrer account returns
// ErrReferrerNotFound and writes nothing.
func (s *ReferralService) RecordCommission(ctx context.Context, referrerID string, confirmation models.PaymentConfirmation) (*models.Referral, error) {
	return s.RecordCommissionForAmount(ctx, referrerID, confirmation.PayerID,
		confirmation.CustomerInfo.Email, confirmation.CustomerInfo.Name,
		confirmation.TotalAmount(), confirmation.PaymentIntentID)
}

// RecordCommissionForAmount is the webhook-flow variant: attribution fields
// come from gateway metadata instead of a request body, so only the gross
// amount is known.
func (s *ReferralService) RecordCommissionForAmount(ctx context.Context, referrerID, payerID, payerEmail, payerName string, amount float64, paymentIntentID string) (*models.Referral, error) {
	referrer, err := s.users.FindByID(ctx, referrerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReferrerNotFound, referrerID)
		}
		return nil, fmt.Errorf("failed to look up referrer %s: %w", referrerID, err)
	}

	gross := roundMoney(amount)
	commission := roundMoney(gross * CommissionRate)
	now := time.Now()

	referral := &models.Referral{
		ReferrerID:        referrerID,
		ReferredUserID:    payerID,
		ReferredUserEmail: payerEmail,
		ReferredUserName:  payerName,
		Amount:            gross,
		Commission:        commission,
		PaymentIntentID:   paymentIntentID,
		Status:            models.ReferralStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.referrals.Insert(ctx, referral); err != nil {
		if errors.Is(err, ErrDuplicateCommission) {
			existing, findErr := s.referrals.FindByReferrerAndPayment(ctx, referrerID, paymentIntentID)
			if findErr != nil {
				return nil, fmt.Errorf("commission exists but could not be read back: %w", findErr)
			}
			log.Printf("Commission already recorded for referrer=%s payment=%s, returning existing",
				referrerID, paymentIntentID)
			return existing, nil
		}
		return nil, fmt.Errorf("failed to record commission: %w", err)
	}

	log.Printf("Commission recorded: referrer=%s (%s) payment=%s amount=%.2f commission=%.2f",
		referrerID, referrer.Email, paymentIntentID, gross, commission)
	return referral, nil
}

// CommissionFor returns the commission recorded for one (referrer, payment)
// pair, ErrNotFound when none exists
func (s *ReferralService) CommissionFor(ctx context.Context, referrerID, paymentIntentID string) (*models.Referral, error) {
	return s.referrals.FindByReferrerAndPayment(ctx, referrerID, paymentIntentID)
}

// MarkCommissionPaid transitions a commission to paid. Marking an already
// paid commission is a no-op returning the current row.
func (s *ReferralService) MarkCommissionPaid(ctx context.Context, referralID string) (*models.Referral, error) {
	referral, err := s.referrals.FindByID(ctx, referralID)
	if err != nil {
		return nil, err
	}
	if referral.Status == models.ReferralStatusPaid {
		return referral, nil
	}
	return s.referrals.MarkPaid(ctx, referralID, time.Now())
}

// GetUserCommissions lists one referrer's commissions, newest first
func (s *ReferralService) GetUserCommissions(ctx context.Context, referrerID string) ([]models.Referral, error) {
	return s.referrals.ListByReferrer(ctx, referrerID)
}

// GetAllCommissions lists every commission in the ledger, newest first
func (s *ReferralService) GetAllCommissions(ctx context.Context) ([]models.Referral, error) {
	return s.referrals.ListAll(ctx)
}

// StatsFor aggregates a referrer's ledger into totals
func (s *ReferralService) StatsFor(ctx context.Context, referrerID string) (*models.ReferralStats, error) {
	referrals, err := s.referrals.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	stats := &models.ReferralStats{TotalReferrals: len(referrals)}
	for _, r := range referrals {
		stats.TotalCommissions += r.Commission
		if r.Status == models.ReferralStatusPaid {
			stats.PaidCommissions += r.Commission
		} else {
			stats.PendingCommissions += r.Commission
		}
	}
	stats.TotalCommissions = roundMoney(stats.TotalCommissions)
	stats.PaidCommissions = roundMoney(stats.PaidCommissions)
	stats.PendingCommissions = roundMoney(stats.PendingCommissions)
	return stats, nil
}

// mintShortCode generates a code that is free in both the referral code and
// shared cart spaces, retrying a bounded number of times on collision
func (s *ReferralService) mintShortCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		code, err := utils.GenerateShortCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		inUse, err := s.shortCodes.CodeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
		log.Printf("Short code collision on %s, retrying (%d/%d)", code, attempt+1, shortCodeAttempts)
	}
	return "", fmt.Errorf("could not mint a free short code after %d attempts", shortCodeAttempts)
}

// GetOrCreateShortCode returns the user's referral code, minting one on
// first use. Losing an insert race to a concurrent request returns the
// winner's code.
func (s *ReferralService) GetOrCreateShortCode(ctx context.Context, userID string) (*models.ReferralShortCode, error) {
	if existing, err := s.shortCodes.FindByUser(ctx, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	code, err := s.mintShortCode(ctx)
	if err != nil {
		return nil, err
	}

	sc := &models.ReferralShortCode{
		ShortCode: code,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := s.shortCodes.Insert(ctx, sc); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return s.shortCodes.FindByUser(ctx, userID)
		}
		return nil, err
	}

	log.Printf("Referral short code created: user=%s code=%s", userID, code)
	return sc, nil
}

// ReferralLink renders the frontend URL for a referral code
func ReferralLink(code string) string {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	return fmt.Sprintf("%s/?ref=%s", frontendURL, code)
}

// SharedCartLinkURL renders the frontend URL for a shared cart code
func SharedCartLinkURL(code string) string {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	return fmt.Sprintf("%s/cart/shared/%s", frontendURL, code)
}

// ResolveReferralCode maps a short code back to the owning referrer
func (s *ReferralService) ResolveReferralCode(ctx context.Context, code string) (*models.ReferralShortCode, error) {
	return s.shortCodes.FindByCode(ctx, code)
}

// CreateSharedCartLink snapshots a cart under a fresh short code so the
// owner can share it and earn attribution on resulting purchases
func (s *ReferralService) CreateSharedCartLink(ctx context.Context, userID string, items []models.SharedCartItem) (*models.SharedCartLink, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	code, err := s.mintShortCode(ctx)
	if err != nil {
		return nil, err
	}

	cart := &models.SharedCartLink{
		ShortCode: code,
		UserID:    userID,
		CartData:  items,
		Type:      "shared_cart",
		CreatedAt: time.Now(),
	}
	if err := s.shortCodes.InsertCart(ctx, cart); err != nil {
		return nil, err
	}

	log.Printf("Shared cart link created: user=%s code=%s items=%d", userID, code, len(items))
	return cart, nil
}

// ResolveSharedCartLink returns the cart snapshot behind a short code
func (s *ReferralService) ResolveSharedCartLink(ctx context.Context, code string) (*models.SharedCartLink, error) {
	return s.shortCodes.FindCartByCode(ctx, code)
}
