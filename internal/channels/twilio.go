package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioConfig holds Twilio REST API configuration
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
}

// TwilioAdapter delivers reminder messages over the Twilio Messages API.
// The same client serves both the SMS and WhatsApp channels; WhatsApp
// addresses are the phone number with a "whatsapp:" prefix.
type TwilioAdapter struct {
	config TwilioConfig
	client *http.Client
}

// NewTwilioAdapter creates a new Twilio adapter
func NewTwilioAdapter(config TwilioConfig) *TwilioAdapter {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.twilio.com"
	}

	return &TwilioAdapter{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendSMS sends an SMS to the given phone number
func (a *TwilioAdapter) SendSMS(ctx context.Context, to, message string) error {
	return a.createMessage(ctx, a.config.FromNumber, to, message)
}

// SendWhatsApp sends a WhatsApp message to the given phone number
func (a *TwilioAdapter) SendWhatsApp(ctx context.Context, to, message string) error {
	return a.createMessage(ctx, "whatsapp:"+a.config.FromNumber, "whatsapp:"+to, message)
}

// SMSSender adapts the Twilio client to the dispatcher's text interface
type SMSSender struct {
	adapter *TwilioAdapter
}

// NewSMSSender creates an SMS-facing view of the Twilio adapter
func NewSMSSender(adapter *TwilioAdapter) *SMSSender {
	return &SMSSender{adapter: adapter}
}

// Send sends an SMS
func (s *SMSSender) Send(ctx context.Context, to, message string) error {
	return s.adapter.SendSMS(ctx, to, message)
}

// WhatsAppSender adapts the Twilio client to the dispatcher's text interface
type WhatsAppSender struct {
	adapter *TwilioAdapter
}

// NewWhatsAppSender creates a WhatsApp-facing view of the Twilio adapter
func NewWhatsAppSender(adapter *TwilioAdapter) *WhatsAppSender {
	return &WhatsAppSender{adapter: adapter}
}

// Send sends a WhatsApp message
func (s *WhatsAppSender) Send(ctx context.Context, to, message string) error {
	return s.adapter.SendWhatsApp(ctx, to, message)
}

func (a *TwilioAdapter) createMessage(ctx context.Context, from, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.config.BaseURL, a.config.AccountSID)

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.config.AccountSID, a.config.AuthToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("twilio returned non-2xx status: %d", resp.StatusCode)
	}

	return nil
}
