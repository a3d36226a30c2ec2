package channels

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// EmailConfig holds SMTP configuration for the email adapter
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// EmailAdapter delivers reminder messages over SMTP
type EmailAdapter struct {
	config EmailConfig
}

// NewEmailAdapter creates a new email adapter
func NewEmailAdapter(config EmailConfig) *EmailAdapter {
	return &EmailAdapter{config: config}
}

// Send sends a plain-text email to the recipient address
func (a *EmailAdapter) Send(ctx context.Context, to, subject, body string) error {
	from := a.config.FromEmail
	if a.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", a.config.FromName, a.config.FromEmail)
	}

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", a.config.SMTPUsername, a.config.SMTPPassword, a.config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", a.config.SMTPHost, a.config.SMTPPort)

	// Implicit TLS on port 465
	if a.config.SMTPPort == 465 {
		return a.sendTLS(addr, auth, to, message)
	}

	// STARTTLS for other ports
	return smtp.SendMail(addr, auth, a.config.FromEmail, []string{to}, []byte(message))
}

func (a *EmailAdapter) sendTLS(addr string, auth smtp.Auth, to, message string) error {
	tlsConfig := &tls.Config{
		ServerName: a.config.SMTPHost,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, a.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err = client.Mail(a.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return w.Close()
}
