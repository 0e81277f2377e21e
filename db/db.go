package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection       *mongo.Collection
	ProductsCollection   *mongo.Collection
	CartCollection       *mongo.Collection
	OrdersCollection     *mongo.Collection
	OrderItemsCollection *mongo.Collection
	Client               *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("storedb")
	UserCollection = database.Collection("users")
	ProductsCollection = database.Collection("products")
	CartCollection = database.Collection("carts")
	OrdersCollection = database.Collection("orders")
	OrderItemsCollection = database.Collection("orderitems")

	EnsureIndexes(context.TODO())
}

// EnsureIndexes creates the indexes the order pipeline relies on.
func EnsureIndexes(ctx context.Context) {
	_, err := OrdersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userid", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		log.Printf("orders index creation failed: %v", err)
	}

	_, err = OrderItemsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderid", Value: 1}}},
	})
	if err != nil {
		log.Printf("orderitems index creation failed: %v", err)
	}

	_, err = CartCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userid", Value: 1}, {Key: "productid", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		log.Printf("carts index creation failed: %v", err)
	}
}
