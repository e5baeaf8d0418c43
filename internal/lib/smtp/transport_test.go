package smtp

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/magabrotheeeer/lab-notebook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer отвечает как SMTP-сервер без поддержки STARTTLS.
func fakeServer(t *testing.T) (string, int) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		r := bufio.NewReader(conn)
		_, _ = conn.Write([]byte("220 localhost ESMTP\r\n"))
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			switch {
			case len(line) >= 4 && line[:4] == "EHLO":
				_, _ = conn.Write([]byte("250-localhost\r\n250 AUTH PLAIN\r\n"))
			case len(line) >= 4 && line[:4] == "QUIT":
				_, _ = conn.Write([]byte("221 bye\r\n"))
				return
			default:
				_, _ = conn.Write([]byte("250 ok\r\n"))
			}
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestTransport_RequiresStartTLS(t *testing.T) {
	host, port := fakeServer(t)
	tr := NewTransport(config.SMTP{SMTPHost: host, SMTPPort: port, SMTPUser: "u", SMTPPass: "p"}, discardLogger())

	client, err := tr.Connect()
	assert.Nil(t, client)
	require.ErrorIs(t, err, ErrNoStartTLS)
}

func TestTransport_DialError(t *testing.T) {
	tr := NewTransport(config.SMTP{SMTPHost: "127.0.0.1", SMTPPort: 1}, discardLogger())
	_, err := tr.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dial")
}

func TestTransport_Sender(t *testing.T) {
	assert.Equal(t, "lab@example.com",
		NewTransport(config.SMTP{SMTPUser: "user", SMTPFrom: "lab@example.com"}, discardLogger()).Sender())
	assert.Equal(t, "user", NewTransport(config.SMTP{SMTPUser: "user"}, discardLogger()).Sender())
}
