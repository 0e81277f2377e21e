package orders

import (
	"context"
	"log"
	"net/http"
	"time"

	"vendo/globals"
	"vendo/models"
	"vendo/utils"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
)

type Handlers struct {
	Store *Store
}

func NewHandlers(store *Store) *Handlers {
	return &Handlers{Store: store}
}

func isAdmin(r *http.Request) bool {
	roles, ok := r.Context().Value(globals.RoleKey).([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if role == "admin" {
			return true
		}
	}
	return false
}

// GetOrder returns one order with its line items. This is the polling
// fallback for payment outcomes, so it is owner-readable even while the
// websocket channel is down.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := h.Store.GetByID(ctx, ps.ByName("orderid"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if order.UserID != userID && !isAdmin(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	items, err := h.Store.ItemsFor(ctx, order.OrderID)
	if err != nil {
		log.Println("GetOrder items error:", err)
		http.Error(w, "Could not load order items", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"order": order,
		"items": items,
	})
}

// GetMyOrders lists the requesting user's orders, newest first.
func (h *Handlers) GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.Store.ListByUser(ctx, userID)
	if err != nil {
		log.Println("GetMyOrders error:", err)
		http.Error(w, "Could not load orders", http.StatusInternalServerError)
		return
	}
	if len(list) == 0 {
		list = []models.Order{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// AdminListOrders is the back-office order table.
func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := utils.ParseQueryOptions(r)
	list, err := h.Store.ListAll(ctx, int64(opts.Limit), int64((opts.Page-1)*opts.Limit))
	if err != nil {
		log.Println("AdminListOrders error:", err)
		http.Error(w, "Could not load orders", http.StatusInternalServerError)
		return
	}
	if len(list) == 0 {
		list = []models.Order{}
	}

	rows := make([]utils.M, 0, len(list))
	for _, order := range list {
		items, err := h.Store.ItemsFor(ctx, order.OrderID)
		if err != nil {
			log.Println("AdminListOrders items error:", err)
			continue
		}
		rows = append(rows, utils.M{"order": order, "items": items})
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

// PaymentQR renders the order's payment redirect link as a QR PNG so a
// buyer can resume an unpaid checkout on another device.
func (h *Handlers) PaymentQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := h.Store.GetByID(ctx, ps.ByName("orderid"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if order.UserID != userID && !isAdmin(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if order.PaymentStatus != models.StatusUnpaid || order.PaymentURL == "" {
		http.Error(w, "Order has no pending payment link", http.StatusConflict)
		return
	}

	png, err := qrcode.Encode(order.PaymentURL, qrcode.Medium, 256)
	if err != nil {
		log.Println("PaymentQR encode error:", err)
		http.Error(w, "Could not render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
