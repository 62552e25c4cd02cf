// publisher.go
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"campus-store/internal/dto"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	ExchangeOrderPaid      = "order_paid"
	ExchangeOrderDelivered = "order_delivered"
)

// Envelope es el formato común de los mensajes entre microservicios.
type Envelope[T any] struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       T      `json:"message"`
}

// Channel es el subconjunto de *amqp091.Channel que usa el publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

type Publisher struct {
	ch Channel
}

// NewPublisher declara el exchange fanout order_paid.
func NewPublisher(ch Channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(ExchangeOrderPaid, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declarando exchange %s: %w", ExchangeOrderPaid, err)
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) PublishOrderPaid(ctx context.Context, evt dto.OrderPaidEvent) error {
	env := Envelope[dto.OrderPaidEvent]{
		CorrelationID: uuid.NewString(),
		Exchange:      ExchangeOrderPaid,
		RoutingKey:    "",
		Message:       evt,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, ExchangeOrderPaid, "", false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: env.CorrelationID,
		Timestamp:     time.Now(),
		Body:          body,
	})
	if err != nil {
		return err
	}

	logger.Info().Str("orderId", evt.OrderID).Str("correlationId", env.CorrelationID).Msg("order_paid publicado")
	return nil
}
