// Package email is the outbound SMTP boundary.  Compliance alerts and notice
// delivery both go through Mailer; a transport failure never blocks the
// legal workflow, callers log and continue.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
)

// Config holds SMTP transport settings.
type Config struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	UseTLS      bool   `mapstructure:"use_tls"`
	Timeout     time.Duration
}

// Mailer sends plain-text email over SMTP.
type Mailer struct {
	config Config
	logger logging.Logger
	send   sendFunc
}

// sendFunc matches smtp.SendMail; swapped in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// NewMailer creates a Mailer.  FromAddress and Host are required.
func NewMailer(cfg Config, logger logging.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New(errors.ErrCodeValidation, "smtp host required")
	}
	if cfg.FromAddress == "" {
		return nil, errors.New(errors.ErrCodeValidation, "smtp from address required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	m := &Mailer{config: cfg, logger: logger}
	if cfg.UseTLS {
		m.send = m.sendTLS
	} else {
		m.send = smtp.SendMail
	}
	return m, nil
}

// Send delivers one message.  Returns nil once the transport accepted it.
func (m *Mailer) Send(ctx context.Context, to, toName, subject, body string) error {
	if to == "" {
		return errors.New(errors.ErrCodeValidation, "recipient address required")
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	msg := m.buildMessage(to, toName, subject, body)

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.config.FromAddress, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "smtp send failed")
		}
	}

	m.logger.Debug("Email sent",
		logging.String("to", to),
		logging.String("subject", subject))
	return nil
}

func (m *Mailer) buildMessage(to, toName, subject, body string) []byte {
	var b strings.Builder
	from := m.config.FromAddress
	if m.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromAddress)
	}
	toHeader := to
	if toName != "" {
		toHeader = fmt.Sprintf("%s <%s>", toName, to)
	}

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", toHeader)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// sendTLS dials with implicit TLS (port 465 style) instead of STARTTLS.
func (m *Mailer) sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: m.config.Timeout}, "tcp", addr, &tls.Config{
		ServerName: m.config.Host,
	})
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
