package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-store/internal/dto"
	"campus-store/internal/model"
	"campus-store/internal/service"
)

type OrderService interface {
	GetOrder(ctx context.Context, actor service.Actor, orderID string) (*model.Order, error)
	GetPaymentStatus(ctx context.Context, actor service.Actor, orderID string) (*dto.PaymentStatusResponse, error)
	GetByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	GetAll(ctx context.Context) ([]*model.Order, error)
	MarkPaid(ctx context.Context, orderID string, req dto.MarkPaidRequest) (*model.Order, error)
	MarkDelivered(ctx context.Context, orderID string) (*model.Order, error)
}

type Checkout interface {
	PlaceOrderAndPay(ctx context.Context, actor service.Actor, req dto.PlaceOrderRequest, idempotencyKey string) (*service.CheckoutResult, error)
}

type OrderController struct {
	Service  OrderService
	Checkout Checkout
}

func NewOrderController(s OrderService, checkout Checkout) *OrderController {
	return &OrderController{Service: s, Checkout: checkout}
}

// POST /orders — crea la orden; si viene phone dispara el STK push
func (ctl *OrderController) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := ctl.Checkout.PlaceOrderAndPay(c.Request.Context(), actorFrom(c), req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		// La orden quedó creada pero el push falló: el cliente reintenta con /payments/stkpush
		if res != nil && res.Order != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "orderId": res.Order.ID.Hex()})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.PlaceOrderResponse{
		OrderID: res.Order.ID.Hex(),
		Order:   res.Order,
		Payment: res.Payment,
	})
}

// GET /orders/mine - user (middleware debe poner userID)
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := ctl.Service.GetByUserID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:orderId
func (ctl *OrderController) GetOrder(c *gin.Context) {
	o, err := ctl.Service.GetOrder(c.Request.Context(), actorFrom(c), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /orders/:orderId/status — lo consulta el poller del cliente
func (ctl *OrderController) GetPaymentStatus(c *gin.Context) {
	status, err := ctl.Service.GetPaymentStatus(c.Request.Context(), actorFrom(c), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GET /admin/orders - admin only (middleware AdminOnly)
func (ctl *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := ctl.Service.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// PUT /admin/orders/:orderId/pay - admin only
func (ctl *OrderController) MarkPaid(c *gin.Context) {
	var req dto.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := ctl.Service.MarkPaid(c.Request.Context(), c.Param("orderId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// PUT /admin/orders/:orderId/deliver - admin only
func (ctl *OrderController) MarkDelivered(c *gin.Context) {
	o, err := ctl.Service.MarkDelivered(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
