package smtp

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-service/internal/alerts"
)

func TestConfig_Configured(t *testing.T) {
	full := Config{Server: "smtp.example.com", Port: 587, Username: "alerts@example.com", Password: "secret"}
	assert.True(t, full.Configured())

	noPass := full
	noPass.Password = ""
	assert.False(t, noPass.Configured())

	noServer := full
	noServer.Server = ""
	assert.False(t, noServer.Configured())
}

func TestNewMessage(t *testing.T) {
	m, err := newMessage("alerts@example.com", "ana@example.com", alerts.Message{Subject: "Smoke advisory", Body: "Stay indoors."})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "From: <alerts@example.com>")
	assert.Contains(t, raw, "To: <ana@example.com>")
	assert.Contains(t, raw, "Subject: Smoke advisory")
	assert.Contains(t, raw, "Stay indoors.")
}

func TestNewMessage_InvalidRecipient(t *testing.T) {
	_, err := newMessage("alerts@example.com", "not an address", alerts.Message{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSend_UnreachableServer(t *testing.T) {
	// Grab a free port and close it so the dial is refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	s, err := NewSender(Config{Server: "127.0.0.1", Port: port, Username: "alerts@example.com", Password: "secret"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = s.Send(ctx, "ana@example.com", alerts.Message{Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send to ana@example.com")
}
