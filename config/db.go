// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	// Only use Docker service name as fallback in development
	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://localhost:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// DatabaseName returns the configured database name
func DatabaseName() string {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "mercadopro"
	}
	return dbName
}

// GetCollection returns MongoDB collection
func GetCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	return client.Database(DatabaseName()).Collection(collectionName)
}

// setupCollections ensures all necessary collections and indexes exist
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(DatabaseName())

	collections := []string{
		"users", "companies", "vendors", "products", "productVendors",
		"orders", "referrals", "referralShortCodes", "sharedCartLinks",
		"notifications",
	}
	for _, collName := range collections {
		db.CreateCollection(ctx, collName)
	}

	// Email index for users collection
	userColl := db.Collection("users")
	emailIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := userColl.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		log.Printf("Error creating email index: %v", err)
	}

	// One commission per (referrer, payment): retried confirmations must not
	// double-pay
	referralColl := db.Collection("referrals")
	referralIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "referrerId", Value: 1},
			{Key: "paymentIntentId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = referralColl.Indexes().CreateOne(ctx, referralIndexModel)
	if err != nil {
		log.Printf("Error creating referral uniqueness index: %v", err)
	}

	// One order per (vendor, payment): duplicate webhook deliveries must not
	// duplicate fulfillment batches
	orderColl := db.Collection("orders")
	orderIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "vendorId", Value: 1},
			{Key: "paymentIntentId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	_, err = orderColl.Indexes().CreateOne(ctx, orderIndexModel)
	if err != nil {
		log.Printf("Error creating order uniqueness index: %v", err)
	}

	// Short codes are globally unique within each collection
	for _, collName := range []string{"referralShortCodes", "sharedCartLinks"} {
		coll := db.Collection(collName)
		codeIndexModel := mongo.IndexModel{
			Keys:    bson.D{{Key: "shortCode", Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		_, err := coll.Indexes().CreateOne(ctx, codeIndexModel)
		if err != nil {
			log.Printf("Error creating shortCode index for %s: %v", collName, err)
		}
	}

	// Vendor assignment lookups during attribution
	pvColl := db.Collection("productVendors")
	pvIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: 1}},
	}
	_, err = pvColl.Indexes().CreateOne(ctx, pvIndexModel)
	if err != nil {
		log.Printf("Error creating productVendors index: %v", err)
	}

	log.Println("Database collections and indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
