// models/catalog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company is a seller account that lists products on the marketplace
type Company struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Vendor is an agent of a company who fulfills orders for its products
type Vendor struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	CompanyID primitive.ObjectID `json:"companyId" bson:"companyId"`
	UserID    primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Product belongs to exactly one company; vendors are attached through
// ProductVendor assignments
type Product struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Price     float64            `json:"price" bson:"price"`
	Category  string             `json:"category,omitempty" bson:"category,omitempty"`
	Inventory int                `json:"inventory" bson:"inventory"`
	CompanyID primitive.ObjectID `json:"companyId" bson:"companyId"`
	Image     string             `json:"image,omitempty" bson:"image,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// ProductVendor assigns a vendor to a product with a vendor-specific
// commission percentage (e.g. 12.5 = 12.5%)
type ProductVendor struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProductID         primitive.ObjectID `json:"productId" bson:"productId"`
	VendorID          primitive.ObjectID `json:"vendorId" bson:"vendorId"`
	CommissionPercent float64            `json:"commissionPercent" bson:"commissionPercent"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
}
