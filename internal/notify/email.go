package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/track-notifier/internal/fanout"
	"github.com/nhle/track-notifier/internal/model"
)

const dialTimeout = 30 * time.Second

// sendFunc hands a composed RFC 5322 message to a mail server.
type sendFunc func(ctx context.Context, cfg model.SMTPConfig, from, to string, msg []byte) error

// Email delivers notifications over SMTP.
type Email struct {
	cfg  model.SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewEmail returns an SMTP notifier. Host and From are required.
func NewEmail(cfg model.SMTPConfig) (*Email, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	return &Email{cfg: cfg, send: sendSMTP, now: time.Now}, nil
}

// Notify mails the plain-text rendering of n to the recipient's address.
func (e *Email) Notify(ctx context.Context, n fanout.Notification) error {
	to := n.Recipient.Email
	if to == "" {
		return fmt.Errorf("email to %s: no address on file", n.Recipient.UserID)
	}

	msg, err := composeMessage(e.cfg.From, to, n.Subject, n.PlainText, e.now())
	if err != nil {
		return fmt.Errorf("composing email to %s: %w", to, err)
	}

	if err := e.send(ctx, e.cfg, e.cfg.From, to, msg); err != nil {
		return fmt.Errorf("email to %s: %w", to, err)
	}
	return nil
}

// composeMessage renders a single-part text/plain message.
func composeMessage(from, to, subject, body string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sendSMTP dials the configured server with implicit TLS or STARTTLS,
// authenticates when a username is set, and submits msg.
func sendSMTP(ctx context.Context, cfg model.SMTPConfig, from, to string, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	var conn net.Conn
	var err error
	if cfg.TLS {
		d := &tls.Dialer{NetDialer: &net.Dialer{Timeout: dialTimeout}, Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		d := &net.Dialer{Timeout: dialTimeout}
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if !cfg.TLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password.Value(), cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	return sendViaClient(client, from, to, msg)
}

// sendViaClient runs the MAIL/RCPT/DATA exchange on an established client.
func sendViaClient(client *smtp.Client, from, to string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
