// models/payment.go
package models

// LineItem is one purchased item as sent by the checkout client
type LineItem struct {
	ProductID string  `json:"id" validate:"required"`
	Name      string  `json:"name"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	CompanyID string  `json:"companyId,omitempty"`
}

// Subtotal returns price * quantity for the item
func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

// CustomerContact is the buyer's contact information captured at checkout
type CustomerContact struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// PaymentConfirmation identifies one external payment event to confirm.
// PayerID and ReferredBy may be empty (guest checkout, no referral).
type PaymentConfirmation struct {
	PaymentIntentID string          `json:"paymentIntentId" validate:"required"`
	PayerID         string          `json:"userId,omitempty"`
	ReferredBy      string          `json:"referredBy,omitempty"`
	Items           []LineItem      `json:"items" validate:"required,min=1,dive"`
	CustomerInfo    CustomerContact `json:"customerInfo" validate:"required"`
}

// TotalAmount sums price * quantity over all line items
func (pc PaymentConfirmation) TotalAmount() float64 {
	var total float64
	for _, item := range pc.Items {
		total += item.Subtotal()
	}
	return total
}

// CreateIntentRequest is the create-payment-intent request body. Amount is
// in minor units (cents), the way card processors count.
type CreateIntentRequest struct {
	Amount       int64           `json:"amount" validate:"required,gt=0"`
	Currency     string          `json:"currency"`
	Items        []LineItem      `json:"items" validate:"required,min=1,dive"`
	CustomerInfo CustomerContact `json:"customerInfo" validate:"required"`
	UserID       string          `json:"userId,omitempty"`
	ReferredBy   string          `json:"referredBy,omitempty"`
}

// IntentResult is what a gateway returns after creating a payment attempt.
// Card gateways fill ClientSecret; redirect gateways fill RedirectURL.
type IntentResult struct {
	ProviderReference string `json:"paymentIntentId"`
	ClientSecret      string `json:"clientSecret,omitempty"`
	RedirectURL       string `json:"redirectUrl,omitempty"`
	SandboxURL        string `json:"sandboxRedirectUrl,omitempty"`
}

// VerificationResult is the gateway's answer to a verify call. Metadata
// round-trips the keys attached at intent creation so webhook flows can
// recover attribution without the original request context.
type VerificationResult struct {
	ProviderReference string            `json:"paymentIntentId"`
	Status            string            `json:"status"`
	Succeeded         bool              `json:"succeeded"`
	AmountMinorUnits  int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
}

// ConfirmResult is the user-visible outcome of a confirmed payment
type ConfirmResult struct {
	Success         bool    `json:"success"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Commission      float64 `json:"commission"`
}

// MercadoPagoWebhook is the notification payload MercadoPago posts to us
type MercadoPagoWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}
