package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campus-store/internal/model"
)

var errMissingOrderID = errors.New("mensaje sin orderId")

type DeliveryMarker interface {
	MarkDelivered(ctx context.Context, orderID string) (*model.Order, error)
}

type OrderDeliveredConsumer struct {
	Service DeliveryMarker
}

func NewOrderDeliveredConsumer(s DeliveryMarker) *OrderDeliveredConsumer {
	return &OrderDeliveredConsumer{Service: s}
}

type OrderDeliveredMessage struct {
	OrderID string `json:"orderId"`
}

func (c *OrderDeliveredConsumer) Handle(msg []byte) error {
	logger.Info().Msg("[Rabbit] Evento recibido: order_delivered")

	var event Envelope[OrderDeliveredMessage]
	if err := json.Unmarshal(msg, &event); err != nil {
		logger.Error().Err(err).Msg("Error parseando mensaje")
		return err
	}
	if event.Message.OrderID == "" {
		logger.Error().Str("correlationId", event.CorrelationID).Msg("Mensaje sin orderId")
		return errMissingOrderID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.Service.MarkDelivered(ctx, event.Message.OrderID); err != nil {
		logger.Error().Err(err).Str("orderId", event.Message.OrderID).Msg("Error marcando entrega")
		return err
	}

	logger.Info().Str("orderId", event.Message.OrderID).Msg("Orden marcada como entregada")
	return nil
}
