package products

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"vendo/db"
	"vendo/models"
	"vendo/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetProducts lists the catalog with paging and optional search/category
// filters.
func GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := utils.ParseQueryOptions(r)

	filter := bson.M{}
	if q.Search != "" {
		filter["name"] = bson.M{"$regex": q.Search, "$options": "i"}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(q.Limit)).
		SetSkip(int64((q.Page - 1) * q.Limit))

	cursor, err := db.ProductsCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Println("GetProducts Find error:", err)
		http.Error(w, "Could not retrieve products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var items []models.Product
	if err := cursor.All(ctx, &items); err != nil {
		log.Println("GetProducts cursor.All error:", err)
		http.Error(w, "Error reading products", http.StatusInternalServerError)
		return
	}
	if len(items) == 0 {
		items = []models.Product{}
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var product models.Product
	err := db.ProductsCollection.FindOne(ctx, bson.M{"productid": ps.ByName("productid")}).Decode(&product)
	if err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct inserts a catalog entry. Multipart form so an image can
// ride along; price and stock arrive as form fields.
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil || price <= 0 {
		http.Error(w, "Price must be a positive integer in minor units", http.StatusBadRequest)
		return
	}
	stock, _ := strconv.Atoi(r.FormValue("stock"))

	product := models.Product{
		ProductID:   "p" + utils.GenerateID(12),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		Stock:       stock,
		Category:    r.FormValue("category"),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if product.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	imageURL, thumbURL, err := saveProductImage(w, r)
	if err != nil {
		// saveProductImage already wrote the error response
		return
	}
	product.ImageURL = imageURL
	product.ThumbURL = thumbURL

	if _, err := db.ProductsCollection.InsertOne(ctx, product); err != nil {
		log.Println("CreateProduct insert error:", err)
		http.Error(w, "Failed to create product", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// EditProduct updates catalog fields. Historical order items keep their
// captured price regardless.
func EditProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	set := bson.M{"updated_at": time.Now()}
	if v := r.FormValue("name"); v != "" {
		set["name"] = v
	}
	if v := r.FormValue("description"); v != "" {
		set["description"] = v
	}
	if v := r.FormValue("category"); v != "" {
		set["category"] = v
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil || price <= 0 {
			http.Error(w, "Price must be a positive integer in minor units", http.StatusBadRequest)
			return
		}
		set["price"] = price
	}
	if v := r.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil || stock < 0 {
			http.Error(w, "Invalid stock", http.StatusBadRequest)
			return
		}
		set["stock"] = stock
	}

	if hasProductImage(r) {
		imageURL, thumbURL, err := saveProductImage(w, r)
		if err != nil {
			return
		}
		set["image_url"] = imageURL
		set["thumb_url"] = thumbURL
	}

	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productid": ps.ByName("productid")},
		bson.M{"$set": set},
	)
	if err != nil {
		log.Println("EditProduct error:", err)
		http.Error(w, "Failed to update product", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := db.ProductsCollection.DeleteOne(ctx, bson.M{"productid": ps.ByName("productid")})
	if err != nil {
		log.Println("DeleteProduct error:", err)
		http.Error(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}
	if res.DeletedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
