package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mercadopro/mercadopro_backend/config"
	"github.com/mercadopro/mercadopro_backend/models"
	"github.com/mercadopro/mercadopro_backend/services"
)

type ReferralRepository struct {
	collection *mongo.Collection
}

var _ services.ReferralStore = (*ReferralRepository)(nil)

func NewReferralRepository(db *mongo.Client) *ReferralRepository {
	return &ReferralRepository{
		collection: config.GetCollection(db, "referrals"),
	}
}

// Insert writes one commission row. The unique (referrerId, paymentIntentId)
// index turns a replay into ErrDuplicateCommission.
func (r *ReferralRepository) Insert(ctx context.Context, referral *models.Referral) error {
	if referral.ID.IsZero() {
		referral.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, referral)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return services.ErrDuplicateCommission
		}
		return err
	}
	return nil
}

func (r *ReferralRepository) FindByReferrerAndPayment(ctx context.Context, referrerID, paymentIntentID string) (*models.Referral, error) {
	var referral models.Referral
	err := r.collection.FindOne(ctx, bson.M{
		"referrerId":      referrerID,
		"paymentIntentId": paymentIntentID,
	}).Decode(&referral)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *ReferralRepository) FindByID(ctx context.Context, id string) (*models.Referral, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, services.ErrNotFound
	}

	var referral models.Referral
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&referral)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &referral, nil
}

// MarkPaid flips a pending commission to paid and returns the updated row
func (r *ReferralRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (*models.Referral, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, services.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"status":    models.ReferralStatusPaid,
		"paidAt":    paidAt,
		"updatedAt": time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var referral models.Referral
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&referral)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &referral, nil
}

func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"referrerId": referrerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var referrals []models.Referral
	if err := cursor.All(ctx, &referrals); err != nil {
		return nil, err
	}
	return referrals, nil
}

func (r *ReferralRepository) ListAll(ctx context.Context) ([]models.Referral, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var referrals []models.Referral
	if err := cursor.All(ctx, &referrals); err != nil {
		return nil, err
	}
	return referrals, nil
}
