package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Mailer sends one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer delivers mail through an SMTP relay. Port 465 uses implicit
// TLS; any other port upgrades with STARTTLS when the server offers it.
type SMTPMailer struct {
	addr   string
	host   string
	port   int
	from   string
	auth   smtp.Auth
	tlsCfg *tls.Config
}

// NewSMTPMailer validates the relay settings.
func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	host = strings.TrimSpace(host)
	from = strings.TrimSpace(from)
	if host == "" {
		return nil, errors.New("mailer: host is required (set SMTP_HOST)")
	}
	if from == "" {
		return nil, errors.New("mailer: from address is required")
	}
	if port <= 0 {
		port = 587
	}

	var auth smtp.Auth
	if strings.TrimSpace(username) != "" && strings.TrimSpace(password) != "" {
		auth = smtp.PlainAuth("", strings.TrimSpace(username), strings.TrimSpace(password), host)
	}

	return &SMTPMailer{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		host:   host,
		port:   port,
		from:   from,
		auth:   auth,
		tlsCfg: &tls.Config{ServerName: host},
	}, nil
}

// Send delivers the message or returns when ctx is done.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("mailer: recipient email is required")
	}

	message := buildMessage(m.from, to, subject, htmlBody)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.send(message, to)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=utf-8"},
	}

	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h[0])
		b.WriteString(": ")
		b.WriteString(h[1])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func (m *SMTPMailer) dial() (*smtp.Client, error) {
	if m.port == 465 {
		conn, err := tls.Dial("tcp", m.addr, m.tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("mailer: dial smtp: %w", err)
		}
		client, err := smtp.NewClient(conn, m.host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("mailer: create smtp client: %w", err)
		}
		return client, nil
	}

	client, err := smtp.Dial(m.addr)
	if err != nil {
		return nil, fmt.Errorf("mailer: dial smtp: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(m.tlsCfg); err != nil {
			client.Close()
			return nil, fmt.Errorf("mailer: starttls: %w", err)
		}
	}
	return client, nil
}

func (m *SMTPMailer) send(message []byte, to string) error {
	client, err := m.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if m.auth != nil {
		if err := client.Auth(m.auth); err != nil {
			return fmt.Errorf("mailer: authenticate: %w", err)
		}
	}

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("mailer: set from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("mailer: set recipient: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("mailer: get data writer: %w", err)
	}
	if _, err := wc.Write(message); err != nil {
		wc.Close()
		return fmt.Errorf("mailer: write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("mailer: close writer: %w", err)
	}
	return client.Quit()
}
