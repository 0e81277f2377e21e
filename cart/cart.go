package cart

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"vendo/db"
	"vendo/models"
	"vendo/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store exposes cart persistence to the checkout pipeline without
// dragging the HTTP handlers along.
type Store struct{}

func NewStore() *Store { return &Store{} }

func (s *Store) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	return itemsFor(ctx, userID)
}

// ClearCart empties the user's cart. Called by checkout only after a
// confirmed paid transition.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	_, err := db.CartCollection.DeleteMany(ctx, bson.M{"userid": userID})
	return err
}

func itemsFor(ctx context.Context, userID string) ([]models.CartItem, error) {
	cursor, err := db.CartCollection.Find(ctx, bson.M{"userid": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart increments quantity if the item exists, or inserts a new line.
func AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var item models.CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		log.Println("AddToCart decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	item.UserID = userID

	if item.ProductID == "" || item.Quantity <= 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	// The cart line snapshots the catalog price at add time; the price
	// carried to the order is whatever is in the cart at checkout.
	var product models.Product
	if err := db.ProductsCollection.FindOne(ctx, bson.M{"productid": item.ProductID}).Decode(&product); err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	filter := bson.M{"userid": userID, "productid": item.ProductID}
	update := bson.M{
		"$inc": bson.M{"quantity": item.Quantity},
		"$setOnInsert": bson.M{
			"price":        product.Price,
			"product_name": product.Name,
			"added_at":     time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := db.CartCollection.UpdateOne(ctx, filter, update, opts); err != nil {
		log.Println("AddToCart UpdateOne error:", err)
		http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// GetCart returns all cart items for the user.
func GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := itemsFor(ctx, userID)
	if err != nil {
		log.Println("GetCart error:", err)
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}
	if len(items) == 0 {
		items = []models.CartItem{}
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

// UpdateQuantity sets the quantity of one cart line; zero removes it.
func UpdateQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Quantity < 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	productID := ps.ByName("productid")
	filter := bson.M{"userid": userID, "productid": productID}

	if payload.Quantity == 0 {
		if _, err := db.CartCollection.DeleteOne(ctx, filter); err != nil {
			log.Println("UpdateQuantity delete error:", err)
			http.Error(w, "Failed to remove item", http.StatusInternalServerError)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		return
	}

	res, err := db.CartCollection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"quantity": payload.Quantity}})
	if err != nil {
		log.Println("UpdateQuantity error:", err)
		http.Error(w, "Failed to update quantity", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Item not in cart", http.StatusNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RemoveCartItem deletes one line from the user's cart.
func RemoveCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := db.CartCollection.DeleteOne(ctx, bson.M{"userid": userID, "productid": ps.ByName("productid")}); err != nil {
		log.Println("RemoveCartItem error:", err)
		http.Error(w, "Failed to remove item", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ClearCart empties the cart on explicit user request.
func ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := NewStore().ClearCart(ctx, userID); err != nil {
		log.Println("ClearCart error:", err)
		http.Error(w, "Failed to clear cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
