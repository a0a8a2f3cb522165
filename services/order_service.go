// services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/models"
)

// OrderService is the attribution engine: it maps the purchased items of a
// verified payment to the vendors responsible for fulfilling them and writes
// one order per vendor.
type OrderService struct {
	catalog CatalogStore
	orders  OrderStore
	events  OrderEventPublisher
}

// NewOrderService creates a new order service. events may be nil when live
// order events are disabled.
func NewOrderService(catalog CatalogStore, orders OrderStore, events OrderEventPublisher) *OrderService {
	return &OrderService{
		catalog: catalog,
		orders:  orders,
		events:  events,
	}
}

// resolveVendor finds the vendor responsible for a product: the earliest
// vendor assignment wins, otherwise any vendor of the owning company. A nil
// vendor with nil error means the product is unattributable.
func (s *OrderService) resolveVendor(ctx context.Context, product *models.Product) (*models.Vendor, error) {
	assignments, err := s.catalog.VendorAssignments(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor assignments for product %s: %w", product.ID.Hex(), err)
	}
	if len(assignments) > 0 {
		vendor, err := s.catalog.GetVendor(ctx, assignments[0].VendorID)
		if err == nil {
			return vendor, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Printf("WARNING: vendor %s assigned to product %s no longer exists, falling back to company vendor",
			assignments[0].VendorID.Hex(), product.ID.Hex())
	}

	vendor, err := s.catalog.FirstVendorOfCompany(ctx, product.CompanyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return vendor, nil
}

type vendorBatch struct {
	vendor *models.Vendor
	lines  []models.OrderLine
	total  float64
}

// CreateOrders attributes every purchased item to a vendor and writes one
// order per vendor. Items whose product or vendor cannot be resolved are
// skipped with a warning so one bad catalog row never blocks the rest of the
// purchase. Re-running for the same payment is idempotent: existing orders
// are left untouched.
func (s *OrderService) CreateOrders(ctx context.Context, confirmation models.PaymentConfirmation) ([]models.Order, error) {
	batches := make(map[primitive.ObjectID]*vendorBatch)
	batchOrder := make([]primitive.ObjectID, 0)

	for _, item := range confirmation.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				log.Printf("WARNING: product %s from payment %s not found, skipping item",
					item.ProductID, confirmation.PaymentIntentID)
				continue
			}
			return nil, fmt.Errorf("failed to load product %s: %w", item.ProductID, err)
		}

		vendor, err := s.resolveVendor(ctx, product)
		if err != nil {
			return nil, err
		}
		if vendor == nil {
			log.Printf("WARNING: no vendor found for product %s (company %s), skipping item",
				product.ID.Hex(), product.CompanyID.Hex())
			continue
		}

		batch, ok := batches[vendor.ID]
		if !ok {
			batch = &vendorBatch{vendor: vendor}
			batches[vendor.ID] = batch
			batchOrder = append(batchOrder, vendor.ID)
		}

		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		batch.lines = append(batch.lines, models.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			UnitPrice:   item.Price,
		})
		batch.total += item.Price * float64(quantity)
	}

	created := make([]models.Order, 0, len(batches))
	for _, vendorID := range batchOrder {
		batch := batches[vendorID]
		order := models.Order{
			VendorID:        batch.vendor.ID,
			CompanyID:       batch.vendor.CompanyID,
			PaymentIntentID: confirmation.PaymentIntentID,
			PayerID:         confirmation.PayerID,
			Lines:           batch.lines,
			Total:           roundMoney(batch.total),
			CustomerName:    confirmation.CustomerInfo.Name,
			CustomerEmail:   confirmation.CustomerInfo.Email,
			CustomerAddress: confirmation.CustomerInfo.Address,
			CreatedAt:       time.Now(),
		}

		if err := s.orders.Insert(ctx, &order); err != nil {
			if errors.Is(err, ErrDuplicateOrder) {
				log.Printf("Order already exists for vendor=%s payment=%s, skipping",
					vendorID.Hex(), confirmation.PaymentIntentID)
				continue
			}
			return nil, fmt.Errorf("%w: failed to insert order for vendor %s: %v",
				ErrPersistence, vendorID.Hex(), err)
		}

		log.Printf("Order created: id=%s vendor=%s company=%s payment=%s total=%.2f lines=%d",
			order.ID.Hex(), order.VendorID.Hex(), order.CompanyID.Hex(),
			order.PaymentIntentID, order.Total, len(order.Lines))
		created = append(created, order)

		if s.events != nil {
			s.events.PublishOrderEvent(models.OrderEvent{
				Type:            "order.created",
				OrderID:         order.ID.Hex(),
				CompanyID:       order.CompanyID.Hex(),
				VendorID:        order.VendorID.Hex(),
				PaymentIntentID: order.PaymentIntentID,
				Total:           order.Total,
				CreatedAt:       order.CreatedAt,
			})
		}
	}

	return created, nil
}

// OrdersForPayment lists the orders attributed to one payment
func (s *OrderService) OrdersForPayment(ctx context.Context, paymentIntentID string) ([]models.Order, error) {
	return s.orders.ListByPayment(ctx, paymentIntentID)
}

// OrdersForCompany lists a company's orders, newest first
func (s *OrderService) OrdersForCompany(ctx context.Context, companyID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.ListByCompany(ctx, companyID)
}

// OrdersForUser lists the orders a buyer has paid for, newest first
func (s *OrderService) OrdersForUser(ctx context.Context, payerID string) ([]models.Order, error) {
	return s.orders.ListByPayer(ctx, payerID)
}
