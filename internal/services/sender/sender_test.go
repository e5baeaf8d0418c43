package sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) Sender() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type bufferWriter struct {
	strings.Builder
	closed bool
}

func (b *bufferWriter) Close() error {
	b.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestService_HandleEmail(t *testing.T) {
	body := []byte(`{"to":["a@lab.io","b@lab.io"],"subject":"Напоминание","body":"Встреча через час"}`)

	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport, *MockSMTPClient, *bufferWriter)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "success",
			body: body,
			setupMocks: func(tr *MockTransport, c *MockSMTPClient, w *bufferWriter) {
				tr.On("Sender").Return("lab@example.com")
				tr.On("Connect").Return(c, nil).Once()
				c.On("Mail", "lab@example.com").Return(nil).Once()
				c.On("Rcpt", "a@lab.io").Return(nil).Once()
				c.On("Rcpt", "b@lab.io").Return(nil).Once()
				c.On("Data").Return(w, nil).Once()
				c.On("Quit").Return(nil).Once()
				c.On("Close").Return(nil).Once()
			},
		},
		{
			name:          "invalid JSON",
			body:          []byte(`invalid json`),
			setupMocks:    func(*MockTransport, *MockSMTPClient, *bufferWriter) {},
			expectedError: true,
			errorMessage:  "error unmarshalling message",
		},
		{
			name:          "no recipients",
			body:          []byte(`{"to":[],"subject":"x","body":"y"}`),
			setupMocks:    func(*MockTransport, *MockSMTPClient, *bufferWriter) {},
			expectedError: true,
			errorMessage:  ErrNoRecipients.Error(),
		},
		{
			name: "SMTP connection error",
			body: body,
			setupMocks: func(tr *MockTransport, _ *MockSMTPClient, _ *bufferWriter) {
				tr.On("Sender").Return("lab@example.com")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
		{
			name: "recipient rejected",
			body: body,
			setupMocks: func(tr *MockTransport, c *MockSMTPClient, _ *bufferWriter) {
				tr.On("Sender").Return("lab@example.com")
				tr.On("Connect").Return(c, nil).Once()
				c.On("Mail", "lab@example.com").Return(nil).Once()
				c.On("Rcpt", "a@lab.io").Return(errors.New("550 no such user")).Once()
				c.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "550",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			client := new(MockSMTPClient)
			writer := &bufferWriter{}
			tt.setupMocks(transport, client, writer)

			service := New(transport, newNoopLogger())
			service.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

			err := service.HandleEmail(context.Background(), tt.body)
			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
				assert.True(t, writer.closed)
				msg := writer.String()
				assert.Contains(t, msg, "To: a@lab.io, b@lab.io\r\n")
				assert.Contains(t, msg, "Subject: =?utf-8?q?")
				assert.True(t, strings.HasSuffix(msg, "\r\n\r\nВстреча через час"))
			}

			transport.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestHandleEmail_RejectsUnprocessable(t *testing.T) {
	service := New(new(MockTransport), newNoopLogger())

	err := service.HandleEmail(context.Background(), []byte(`{"to":`))
	assert.ErrorIs(t, err, rabbitmq.ErrRejected)

	err = service.HandleEmail(context.Background(), []byte(`{"to":[],"subject":"x"}`))
	assert.ErrorIs(t, err, rabbitmq.ErrRejected)
	assert.ErrorIs(t, err, ErrNoRecipients)
}
