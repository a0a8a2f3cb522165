// services/ports.go
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/models"
)

// UserStore resolves user accounts. Returns ErrNotFound when absent.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
}

// CatalogStore reads the pre-existing catalog reference data (products,
// vendors, companies). The confirmation pipeline never writes it.
type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	VendorAssignments(ctx context.Context, productID primitive.ObjectID) ([]models.ProductVendor, error)
	GetVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error)
	FirstVendorOfCompany(ctx context.Context, companyID primitive.ObjectID) (*models.Vendor, error)
	GetCompany(ctx context.Context, id primitive.ObjectID) (*models.Company, error)
}

// OrderStore persists fulfillment orders. Insert returns ErrDuplicateOrder
// when an order for the same (vendor, payment) already exists.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	ListByPayment(ctx context.Context, paymentIntentID string) ([]models.Order, error)
	ListByCompany(ctx context.Context, companyID primitive.ObjectID) ([]models.Order, error)
	ListByPayer(ctx context.Context, payerID string) ([]models.Order, error)
	Totals(ctx context.Context) (count int64, revenue float64, err error)
}

// ReferralStore persists commissions. Insert returns ErrDuplicateCommission
// when the (referrer, payment) pair already has a row.
type ReferralStore interface {
	Insert(ctx context.Context, referral *models.Referral) error
	FindByReferrerAndPayment(ctx context.Context, referrerID, paymentIntentID string) (*models.Referral, error)
	FindByID(ctx context.Context, id string) (*models.Referral, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) (*models.Referral, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error)
	ListAll(ctx context.Context) ([]models.Referral, error)
}

// ShortCodeStore persists referral short codes and shared cart links. The
// two code spaces are unified: CodeInUse reports a code taken in either.
type ShortCodeStore interface {
	FindByUser(ctx context.Context, userID string) (*models.ReferralShortCode, error)
	FindByCode(ctx context.Context, code string) (*models.ReferralShortCode, error)
	Insert(ctx context.Context, sc *models.ReferralShortCode) error
	CodeInUse(ctx context.Context, code string) (bool, error)
	InsertCart(ctx context.Context, cart *models.SharedCartLink) error
	FindCartByCode(ctx context.Context, code string) (*models.SharedCartLink, error)
}

// MailOptions is one outbound email
type MailOptions struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// CompanyOrderDetails feeds the new-order email template
type CompanyOrderDetails struct {
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	CustomerCity    string
	CustomerPhone   string
	Products        []models.OrderLine
	TotalAmount     float64
	OrderID         string
}

// Mailer sends transactional email. The orchestrator treats every call as
// fire-and-forget: a returned error is logged, never propagated.
type Mailer interface {
	SendMail(opts MailOptions) error
	SendCompanyOrderNotification(companyEmail, companyName string, details CompanyOrderDetails) error
	SendCommissionEmail(to, referrerName, referredName string, amount, commission float64) error
}

// ConfirmationLatch short-circuits duplicate confirmations racing each
// other for the same payment reference. Correctness does not depend on it;
// the unique indexes do the real work. A failed confirmation must Unlock so
// the client's retry is not mistaken for a duplicate.
type ConfirmationLatch interface {
	TryLock(ctx context.Context, paymentIntentID string) (bool, error)
	Unlock(ctx context.Context, paymentIntentID string) error
}

// OrderEventPublisher pushes best-effort live events when orders are created
type OrderEventPublisher interface {
	PublishOrderEvent(event models.OrderEvent)
}

// PushNotifier delivers push notifications to a user's registered device.
// Errors are logged by callers, never propagated.
type PushNotifier interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

// NotificationStore persists in-app notifications
type NotificationStore interface {
	Insert(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
}
