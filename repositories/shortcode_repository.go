package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mercadopro/mercadopro_backend/config"
	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/services"
)

// ShortCodeRepository persists referral short codes and shared cart links.
// Both collections carry a unique index on shortCode and share one code
// space: a code used by either is taken for both.
type ShortCodeRepository struct {
	codes *mongo.Collection
	carts *mongo.Collection
}

var _ services.ShortCodeStore = (*ShortCodeRepository)(nil)

func NewShortCodeRepository(db *mongo.Client) *ShortCodeRepository {
	database := db.Database(config.DatabaseName())
	return &ShortCodeRepository{
		codes: database.Collection("referralShortCodes"),
		carts: database.Collection("sharedCartLinks"),
	}
}

func (r *ShortCodeRepository) FindByUser(ctx context.Context, userID string) (*models.ReferralShortCode, error) {
	var sc models.ReferralShortCode
	err := r.codes.FindOne(ctx, bson.M{"userId": userID}).Decode(&sc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &sc, nil
}

func (r *ShortCodeRepository) FindByCode(ctx context.Context, code string) (*models.ReferralShortCode, error) {
	var sc models.ReferralShortCode
	err := r.codes.FindOne(ctx, bson.M{"shortCode": code}).Decode(&sc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &sc, nil
}

func (r *ShortCodeRepository) Insert(ctx context.Context, sc *models.ReferralShortCode) error {
	if sc.ID.IsZero() {
		sc.ID = primitive.NewObjectID()
	}
	_, err := r.codes.InsertOne(ctx, sc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return services.ErrDuplicateCode
		}
		return err
	}
	return nil
}

// CodeInUse reports whether a code is taken in either code space
func (r *ShortCodeRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	count, err := r.codes.CountDocuments(ctx, bson.M{"shortCode": code})
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	count, err = r.carts.CountDocuments(ctx, bson.M{"shortCode": code})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ShortCodeRepository) InsertCart(ctx context.Context, cart *models.SharedCartLink) error {
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	_, err := r.carts.InsertOne(ctx, cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return services.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *ShortCodeRepository) FindCartByCode(ctx context.Context, code string) (*models.SharedCartLink, error) {
	var cart models.SharedCartLink
	err := r.carts.FindOne(ctx, bson.M{"shortCode": code}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &cart, nil
}
