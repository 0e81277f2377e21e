package routes

import (
	"vendo/checkout"
	"vendo/middleware"
	"vendo/notify"
	"vendo/ratelim"

	"github.com/julienschmidt/httprouter"
)

// AddCheckoutRoutes wires the order lifecycle endpoints. The webhook is
// deliberately unauthenticated at the middleware level: the provider
// proves itself with the body signature, not a bearer token.
func AddCheckoutRoutes(router *httprouter.Router, svc *checkout.Service, rl *ratelim.RateLimiter) {
	router.POST("/api/checkout/initialize", rl.Limit(middleware.Authenticate(svc.Initialize)))
	router.POST("/api/checkout/webhook", svc.Webhook)
}

func AddNotifyRoutes(router *httprouter.Router, hub *notify.Hub) {
	router.GET("/ws/notifications", notify.WebSocketHandler(hub))
}
