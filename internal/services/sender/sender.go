// Package sender доставляет письма из очереди RabbitMQ через SMTP.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/smtp"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// ErrNoRecipients: в сообщении нет ни одного адресата.
var ErrNoRecipients = errors.New("message has no recipients")

// Service отправляет письма.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
	now       func() time.Time
}

// New создает новый экземпляр Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
		now:       time.Now,
	}
}

// HandleEmail разбирает тело сообщения очереди и отправляет письмо.
// Нечитаемое сообщение или письмо без адресатов помечается rabbitmq.ErrRejected.
func (s *Service) HandleEmail(ctx context.Context, body []byte) error {
	const op = "sender.HandleEmail"

	var message models.EmailMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w: %w", op, rabbitmq.ErrRejected, err)
	}
	if len(message.To) == 0 {
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrRejected, ErrNoRecipients)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendEmail(message.To, message.Subject, message.Body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) compose(to []string, subject, bodyText string) string {
	return strings.Join([]string{
		"From: " + s.transport.Sender(),
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"Date: " + s.now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := s.compose(to, subject, bodyText)
	from := s.transport.Sender()

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
