// models/order.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderLine is one purchased product inside an order, with its quantity at
// purchase time
type OrderLine struct {
	ProductID   primitive.ObjectID `json:"productId" bson:"productId"`
	ProductName string             `json:"productName" bson:"productName"`
	Quantity    int                `json:"quantity" bson:"quantity"`
	UnitPrice   float64            `json:"unitPrice" bson:"unitPrice"`
}

// Order is one vendor's fulfillment batch for a single payment. Orders are
// created once by the attribution engine and never updated or deleted.
type Order struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	VendorID        primitive.ObjectID `json:"vendorId" bson:"vendorId"`
	CompanyID       primitive.ObjectID `json:"companyId" bson:"companyId"`
	PaymentIntentID string             `json:"paymentIntentId" bson:"paymentIntentId"`
	PayerID         string             `json:"payerId,omitempty" bson:"payerId,omitempty"`
	Lines           []OrderLine        `json:"lines" bson:"lines"`
	Total           float64            `json:"total" bson:"total"`
	CustomerName    string             `json:"customerName,omitempty" bson:"customerName,omitempty"`
	CustomerEmail   string             `json:"customerEmail,omitempty" bson:"customerEmail,omitempty"`
	CustomerAddress string             `json:"customerAddress,omitempty" bson:"customerAddress,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
}
