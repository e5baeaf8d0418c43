package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/streadway/amqp"
)

// maxInFlight: число одновременно обрабатываемых сообщений.
const maxInFlight = 10

// ErrRejected помечает сообщение, которое нет смысла обрабатывать повторно.
// Такое сообщение отклоняется без возврата в очередь.
var ErrRejected = errors.New("message rejected")

// ConsumerMessage запускает потребителя очереди queueName. Сообщение подтверждается,
// если handler вернул nil, отбрасывается при ErrRejected, иначе возвращается в очередь. Потребление прекращается
// при отмене ctx или закрытии канала.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger,
	handler func(ctx context.Context, body []byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(sl.Op(op), slog.String("queue", queueName))
	sem := make(chan struct{}, maxInFlight)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(ctx, d.Body); err != nil {
						log.Error("failed to handle message", sl.Err(err))
						requeue := !errors.Is(err, ErrRejected)
						if nackErr := d.Nack(false, requeue); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
