// services/errors.go
package services

import "errors"

// Validation errors surface to the caller as 4xx-equivalent failures
var (
	ErrAmountTooSmall = errors.New("amount is below the processor minimum of 50 minor units")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrNoItems        = errors.New("at least one item is required")
	ErrMissingEmail   = errors.New("customer email is required")
)

// Gateway errors. Rejected is terminal, unreachable is retryable, auth is
// fatal and must never be retried automatically.
var (
	ErrGatewayRejected    = errors.New("payment rejected by gateway")
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
	ErrGatewayAuth        = errors.New("payment gateway authentication failed")
)

// ErrPaymentNotCompleted is returned when verification finds the payment in
// any non-success state
var ErrPaymentNotCompleted = errors.New("payment not completed")

// Storage-level outcomes
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateCommission = errors.New("commission already recorded for this referrer and payment")
	ErrDuplicateOrder      = errors.New("order already exists for this vendor and payment")
	ErrDuplicateCode       = errors.New("short code already in use")
	ErrPersistence         = errors.New("persistence failure")
)

// ErrReferrerNotFound is non-fatal to a payment confirmation: the commission
// is skipped, the purchase stands
var ErrReferrerNotFound = errors.New("referrer not found")
