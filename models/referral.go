// models/referral.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReferralStatus is the commission lifecycle: pending -> paid, one-way
type ReferralStatus string

const (
	ReferralStatusPending ReferralStatus = "pending"
	ReferralStatusPaid    ReferralStatus = "paid"
)

// Referral is a single commission earned by a referrer from one payment.
// The (referrerId, paymentIntentId) pair is unique so retried confirmations
// can never double-pay.
type Referral struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ReferrerID        string             `json:"referrerId" bson:"referrerId"`
	ReferredUserID    string             `json:"referredUserId,omitempty" bson:"referredUserId,omitempty"`
	ReferredUserEmail string             `json:"referredUserEmail,omitempty" bson:"referredUserEmail,omitempty"`
	ReferredUserName  string             `json:"referredUserName,omitempty" bson:"referredUserName,omitempty"`
	Amount            float64            `json:"amount" bson:"amount"`
	Commission        float64            `json:"commission" bson:"commission"`
	PaymentIntentID   string             `json:"paymentIntentId" bson:"paymentIntentId"`
	Status            ReferralStatus     `json:"status" bson:"status"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
	PaidAt            *time.Time         `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// ReferralShortCode maps a 6-char code to a user, 1:1, immutable once created
type ReferralShortCode struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ShortCode string             `json:"shortCode" bson:"shortCode"`
	UserID    string             `json:"userId" bson:"userId"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// SharedCartItem is one entry of a shared cart snapshot
type SharedCartItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

// SharedCartLink maps a short code to a cart snapshot plus owning user
type SharedCartLink struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ShortCode string             `json:"shortCode" bson:"shortCode"`
	UserID    string             `json:"userId" bson:"userId"`
	CartData  []SharedCartItem   `json:"cartData" bson:"cartData"`
	Type      string             `json:"type" bson:"type"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// ReferralStats aggregates one referrer's commissions
type ReferralStats struct {
	TotalCommissions   float64 `json:"totalCommissions"`
	TotalReferrals     int     `json:"totalReferrals"`
	PendingCommissions float64 `json:"pendingCommissions"`
	PaidCommissions    float64 `json:"paidCommissions"`
}

// SharedCartRequest is the create-shared-cart request body
type SharedCartRequest struct {
	CartData  []SharedCartItem `json:"cartData" validate:"required,min=1"`
	ShortCode string           `json:"shortCode,omitempty"`
}
