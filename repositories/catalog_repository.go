package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercadopro/mercadopro_backend/config"
	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/services"
)

// CatalogRepository reads products, vendors, vendor assignments and
// companies. The attribution engine only ever reads; catalog writes happen
// through the admin surface.
type CatalogRepository struct {
	products       *mongo.Collection
	vendors        *mongo.Collection
	productVendors *mongo.Collection
	companies      *mongo.Collection
}

var _ services.CatalogStore = (*CatalogRepository)(nil)

func NewCatalogRepository(db *mongo.Client) *CatalogRepository {
	database := db.Database(config.DatabaseName())
	return &CatalogRepository{
		products:       database.Collection("products"),
		vendors:        database.Collection("vendors"),
		productVendors: database.Collection("productVendors"),
		companies:      database.Collection("companies"),
	}
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, services.ErrNotFound
	}

	var product models.Product
	err = r.products.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// VendorAssignments returns a product's vendor assignments ordered oldest
// first, so the first assignment always wins attribution
func (r *CatalogRepository) VendorAssignments(ctx context.Context, productID primitive.ObjectID) ([]models.ProductVendor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.productVendors.Find(ctx, bson.M{"productId": productID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []models.ProductVendor
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *CatalogRepository) GetVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.vendors.FindOne(ctx, bson.M{"_id": id}).Decode(&vendor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

// FirstVendorOfCompany returns the company's oldest vendor, a deterministic
// fallback when a product has no explicit assignment
func (r *CatalogRepository) FirstVendorOfCompany(ctx context.Context, companyID primitive.ObjectID) (*models.Vendor, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	var vendor models.Vendor
	err := r.vendors.FindOne(ctx, bson.M{"companyId": companyID}, opts).Decode(&vendor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

// FindCompanyByUser resolves the company behind a company-role account
func (r *CatalogRepository) FindCompanyByUser(ctx context.Context, userID primitive.ObjectID) (*models.Company, error) {
	var company models.Company
	err := r.companies.FindOne(ctx, bson.M{"userId": userID}).Decode(&company)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *CatalogRepository) GetCompany(ctx context.Context, id primitive.ObjectID) (*models.Company, error) {
	var company models.Company
	err := r.companies.FindOne(ctx, bson.M{"_id": id}).Decode(&company)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}
