package orders

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"vendo/models"
	"vendo/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
)

func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// InvoicePDF renders a downloadable invoice for a settled order.
func (h *Handlers) InvoicePDF(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	if order.PaymentStatus != models.StatusPaid && order.PaymentStatus != models.StatusRefunded {
		http.Error(w, "Invoice available for settled orders only", http.StatusConflict)
		return
	}

	items, err := h.Store.ItemsFor(ctx, order.OrderID)
	if err != nil {
		log.Println("InvoicePDF items error:", err)
		http.Error(w, "Could not load order items", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Invoice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Order: "+order.OrderID)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+order.CreatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status: "+order.PaymentStatus)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Ship to: "+order.ShippingAddress)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "Product", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Unit Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Line Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range items {
		name := it.ProductName
		if name == "" {
			name = it.ProductID
		}
		lineTotal := it.PriceAtPurchase * int64(it.Quantity)
		pdf.CellFormat(80, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, formatAmount(it.PriceAtPurchase), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, formatAmount(lineTotal), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(140, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, formatAmount(order.TotalAmount), "1", 1, "R", false, 0, "")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", order.OrderID))
	if err := pdf.Output(w); err != nil {
		log.Println("InvoicePDF output error:", err)
	}
}
