package orders

import (
	"context"
	"time"

	"vendo/db"
	"vendo/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the persistence layer for orders and their line items. It
// holds no business logic; status legality lives in the checkout
// service, which is the single writer of payment status.
type Store struct {
	orders *mongo.Collection
	items  *mongo.Collection
}

func NewStore() *Store {
	return &Store{orders: db.OrdersCollection, items: db.OrderItemsCollection}
}

// Create persists the order and its line items. The order row goes in
// first so a failure here aborts checkout before the gateway is called.
func (s *Store) Create(ctx context.Context, order models.Order, items []models.OrderItem) error {
	if _, err := s.orders.InsertOne(ctx, order); err != nil {
		return err
	}

	docs := make([]interface{}, 0, len(items))
	for _, it := range items {
		docs = append(docs, it)
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := s.items.InsertMany(ctx, docs)
	return err
}

func (s *Store) GetByID(ctx context.Context, orderID string) (models.Order, error) {
	var order models.Order
	err := s.orders.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&order)
	return order, err
}

func (s *Store) ItemsFor(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	cur, err := s.items.Find(ctx, bson.M{"orderid": orderID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.OrderItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := s.orders.Find(ctx, bson.M{"userid": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Order
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) ListAll(ctx context.Context, limit, skip int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit).
		SetSkip(skip)
	cur, err := s.orders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.Order
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetPaymentRef records the provider reference and redirect URL once
// the gateway accepts the transaction.
func (s *Store) SetPaymentRef(ctx context.Context, orderID, reference, paymentURL string) error {
	_, err := s.orders.UpdateOne(ctx,
		bson.M{"orderid": orderID},
		bson.M{"$set": bson.M{
			"payment_ref": reference,
			"payment_url": paymentURL,
			"updated_at":  time.Now(),
		}},
	)
	return err
}

// TransitionStatus flips payment status from -> to as one conditional
// write. Returns false when no row matched in the `from` status, which
// is how a redelivered webhook is detected: the race between two
// concurrent deliveries collapses onto this single compare-and-set.
func (s *Store) TransitionStatus(ctx context.Context, orderID, from, to string) (bool, error) {
	res, err := s.orders.UpdateOne(ctx,
		bson.M{"orderid": orderID, "payment_status": from},
		bson.M{"$set": bson.M{
			"payment_status": to,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
