package routes

import (
	"net/http"

	"vendo/auth"
	"vendo/cart"
	"vendo/middleware"
	"vendo/orders"
	"vendo/products"
	"vendo/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/productpic/*filepath", http.Dir("static/productpic"))
}

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
	router.POST("/api/auth/token/refresh", rl.Limit(auth.RefreshToken))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.LogoutUser))
}

func AddProductRoutes(router *httprouter.Router) {
	router.GET("/api/products", products.GetProducts)
	router.GET("/api/products/:productid", products.GetProduct)

	admin := middleware.RequireRoles("admin")
	router.POST("/api/products", middleware.Authenticate(admin(products.CreateProduct)))
	router.PUT("/api/products/:productid", middleware.Authenticate(admin(products.EditProduct)))
	router.DELETE("/api/products/:productid", middleware.Authenticate(admin(products.DeleteProduct)))
}

func AddCartRoutes(router *httprouter.Router) {
	router.GET("/api/cart", middleware.Authenticate(cart.GetCart))
	router.POST("/api/cart", middleware.Authenticate(cart.AddToCart))
	router.PUT("/api/cart/:productid", middleware.Authenticate(cart.UpdateQuantity))
	router.DELETE("/api/cart/:productid", middleware.Authenticate(cart.RemoveCartItem))
	router.DELETE("/api/cart", middleware.Authenticate(cart.ClearCart))
}

func AddOrderRoutes(router *httprouter.Router, h *orders.Handlers) {
	router.GET("/api/orders", middleware.Authenticate(h.GetMyOrders))
	router.GET("/api/orders/:orderid", middleware.Authenticate(h.GetOrder))
	router.GET("/api/orders/:orderid/invoice", middleware.Authenticate(h.InvoicePDF))
	router.GET("/api/orders/:orderid/qr", middleware.Authenticate(h.PaymentQR))

	admin := middleware.RequireRoles("admin")
	router.GET("/api/admin/orders", middleware.Authenticate(admin(h.AdminListOrders)))
}
