// services/gateway.go
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mercadopro/mercadopro_backend/models"
)

// PaymentGateway is the contract both processor adapters implement. The
// orchestrator only ever picks which adapter to call; everything after
// Verify is gateway-agnostic.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req models.CreateIntentRequest) (*models.IntentResult, error)
	Verify(ctx context.Context, providerRef string) (*models.VerificationResult, error)
}

// Metadata keys attached at intent creation. They must round-trip through
// Verify bit-exact, because webhook flows rebuild referral attribution from
// them without the original request context.
const (
	MetaUserID        = "userId"
	MetaReferredBy    = "referredBy"
	MetaItemsSummary  = "itemsSummary"
	MetaItemsCount    = "itemsCount"
	MetaCustomerEmail = "customerEmail"
	MetaCustomerName  = "customerName"
	MetaTotalAmount   = "totalAmount"
)

// minAmountMinorUnits is the processor minimum (50 cents for card networks)
const minAmountMinorUnits = 50

// maxSummaryLength keeps metadata fields inside the processors' 500-char
// field limit
const maxSummaryLength = 450

func validateIntentRequest(req models.CreateIntentRequest) error {
	if req.Amount <= 0 {
		return ErrInvalidAmount
	}
	if req.Amount < minAmountMinorUnits {
		return ErrAmountTooSmall
	}
	if len(req.Items) == 0 {
		return ErrNoItems
	}
	if req.CustomerInfo.Email == "" {
		return ErrMissingEmail
	}
	return nil
}

// summarizeItems renders the purchased items as "name xN ($price)" entries,
// truncated to the metadata field limit
func summarizeItems(items []models.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d ($%.2f)", item.Name, item.Quantity, item.Price))
	}
	summary := strings.Join(parts, ", ")
	// Truncate by runes, not bytes; product names are not ASCII-only
	if runes := []rune(summary); len(runes) > maxSummaryLength {
		summary = string(runes[:maxSummaryLength-3]) + "..."
	}
	return summary
}

// buildIntentMetadata assembles the round-trippable metadata for an intent
func buildIntentMetadata(req models.CreateIntentRequest) map[string]string {
	userID := req.UserID
	if userID == "" {
		userID = "guest"
	}

	return map[string]string{
		MetaUserID:        userID,
		MetaReferredBy:    req.ReferredBy,
		MetaItemsSummary:  summarizeItems(req.Items),
		MetaItemsCount:    strconv.Itoa(len(req.Items)),
		MetaCustomerEmail: req.CustomerInfo.Email,
		MetaCustomerName:  req.CustomerInfo.Name,
		MetaTotalAmount:   fmt.Sprintf("%.2f", float64(req.Amount)/100),
	}
}

// metadataValue reads a metadata key tolerating the snake_case form some
// gateways normalize keys into
func metadataValue(metadata map[string]string, key string) string {
	if v, ok := metadata[key]; ok {
		return v
	}
	var snake strings.Builder
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			snake.WriteByte('_')
			snake.WriteRune(r - 'A' + 'a')
			continue
		}
		snake.WriteRune(r)
	}
	return metadata[snake.String()]
}
