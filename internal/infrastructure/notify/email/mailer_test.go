package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

func newTestMailer(t *testing.T, send sendFunc) *Mailer {
	t.Helper()
	m, err := NewMailer(Config{
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "mailer",
		Password:    "secret",
		FromAddress: "compliance@example.com",
		FromName:    "Compliance Engine",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	m.send = send
	return m
}

func TestNewMailer_Validation(t *testing.T) {
	log := logging.NewNopLogger()

	_, err := NewMailer(Config{FromAddress: "a@b.c"}, log)
	assert.Error(t, err, "host required")

	_, err = NewMailer(Config{Host: "smtp.example.com"}, log)
	assert.Error(t, err, "from address required")

	m, err := NewMailer(Config{Host: "smtp.example.com", FromAddress: "a@b.c"}, log)
	require.NoError(t, err)
	assert.Equal(t, 587, m.config.Port)
}

func TestSend_Success(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := newTestMailer(t, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})

	err := m.Send(context.Background(), "pm@subcontractor.com", "Pat Miller",
		"CRITICAL: 2 days remaining", "Notice deadline approaching for RFI-042.")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "compliance@example.com", gotFrom)
	assert.Equal(t, []string{"pm@subcontractor.com"}, gotTo)

	body := string(gotMsg)
	assert.Contains(t, body, "From: Compliance Engine <compliance@example.com>\r\n")
	assert.Contains(t, body, "To: Pat Miller <pm@subcontractor.com>\r\n")
	assert.Contains(t, body, "Subject: CRITICAL: 2 days remaining\r\n")
	assert.True(t, strings.HasSuffix(body, "Notice deadline approaching for RFI-042."))
}

func TestSend_TransportFailure(t *testing.T) {
	m := newTestMailer(t, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	})

	err := m.Send(context.Background(), "pm@subcontractor.com", "", "subj", "body")
	assert.Error(t, err)
}

func TestSend_EmptyRecipient(t *testing.T) {
	m := newTestMailer(t, nil)
	err := m.Send(context.Background(), "", "", "subj", "body")
	assert.Error(t, err)
}

func TestSend_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	m := newTestMailer(t, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, "pm@subcontractor.com", "", "subj", "body")
	assert.ErrorIs(t, err, context.Canceled)
}
