package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/magabrotheeeer/lab-notebook/internal/models"
	"github.com/streadway/amqp"
)

// PublishMessage публикует сообщение в RabbitMQ в JSON.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher ставит письма в очередь. Канал amqp не потокобезопасен,
// поэтому публикации сериализуются.
type Publisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher создаёт Publisher поверх настроенного канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// SendEmail публикует письмо в очередь почтового воркера.
func (p *Publisher) SendEmail(ctx context.Context, msg models.EmailMessage) error {
	const op = "rabbitmq.SendEmail"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := PublishMessage(p.ch, Exchange, EmailRoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
