// setup.go
package rabbit

import (
	"github.com/rabbitmq/amqp091-go"
)

const deliveredQueue = "store_order_delivered"

func SetupConsumers(ch *amqp091.Channel, svc DeliveryMarker) {
	consumer := NewOrderDeliveredConsumer(svc)

	// 1. El exchange puede no existir todavía si el servicio de delivery no arrancó
	if err := ch.ExchangeDeclare(ExchangeOrderDelivered, "fanout", true, false, false, false, nil); err != nil {
		logger.Error().Err(err).Msg("Error declarando exchange")
		return
	}

	// 2. Declarar la queue
	q, err := ch.QueueDeclare(
		deliveredQueue, // cola exclusiva para este micro
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Error declarando queue")
		return
	}

	// 3. Bindear al exchange fanout
	err = ch.QueueBind(
		q.Name,
		"", // fanout ignora routing key
		ExchangeOrderDelivered,
		false,
		nil,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Error binding exchange")
		return
	}

	// 4. Consumir
	msgs, err := ch.Consume(
		q.Name,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Error al consumir queue")
		return
	}

	go func() {
		for m := range msgs {
			_ = consumer.Handle(m.Body)
		}
	}()

	logger.Info().Str("exchange", ExchangeOrderDelivered).Msg("Suscrito a exchange (fanout)")
}
