package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-store/internal/controller"
	"campus-store/internal/middleware"
)

type routerDeps struct {
	orders   *controller.OrderController
	payments *controller.PaymentController
	reviews  *controller.ReviewController
	auth     middleware.TokenValidator
	limiter  *middleware.IPRateLimiter
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.Default()

	// Rutas públicas
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/payments/callback/:orderId", middleware.CallbackRateLimit(d.limiter), d.payments.Callback)

	// Rutas protegidas (requieren token)
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.auth))

	auth.POST("/orders", d.orders.PlaceOrder)
	auth.GET("/orders/mine", d.orders.GetMyOrders)
	auth.GET("/orders/:orderId", d.orders.GetOrder)
	auth.GET("/orders/:orderId/status", d.orders.GetPaymentStatus)
	auth.GET("/orders/:orderId/review", d.reviews.GetReview)
	auth.POST("/payments/stkpush", d.payments.StkPush)
	auth.POST("/reviews", d.reviews.CreateReview)

	// Rutas admin
	admin := auth.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/orders", d.orders.GetAllOrders)
	admin.PUT("/orders/:orderId/pay", d.orders.MarkPaid)
	admin.PUT("/orders/:orderId/deliver", d.orders.MarkDelivered)

	return r
}
