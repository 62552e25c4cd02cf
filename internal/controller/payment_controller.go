package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-store/internal/dto"
	"campus-store/internal/service"
)

type PaymentService interface {
	InitiatePayment(ctx context.Context, actor service.Actor, req dto.StkPushRequest) (*dto.StkPushAck, error)
	HandleCallback(ctx context.Context, orderID, sig string, env dto.CallbackEnvelope) error
}

type PaymentController struct {
	Service PaymentService
}

func NewPaymentController(s PaymentService) *PaymentController {
	return &PaymentController{Service: s}
}

// POST /payments/stkpush — reintento de pago sobre una orden existente
func (ctl *PaymentController) StkPush(c *gin.Context) {
	var req dto.StkPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ack, err := ctl.Service.InitiatePayment(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// POST /payments/callback/:orderId — No requiere token.
// Siempre responde 200 para que el proveedor no reintente; los errores solo se loguean.
func (ctl *PaymentController) Callback(c *gin.Context) {
	orderID := c.Param("orderId")

	var env dto.CallbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		logger.Warn().Err(err).Str("orderId", orderID).Msg("Payload de callback ilegible")
		c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
		return
	}

	err := ctl.Service.HandleCallback(c.Request.Context(), orderID, c.Query("sig"), env)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNotFound):
		logger.Warn().Str("orderId", orderID).Msg("Callback de una orden inexistente")
	case errors.Is(err, service.ErrAlreadyPaid):
		logger.Info().Str("orderId", orderID).Msg("Callback de una orden ya pagada")
	default:
		logger.Error().Err(err).Str("orderId", orderID).Msg("Error procesando callback")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
