package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushConfig holds Firebase Cloud Messaging configuration
type PushConfig struct {
	ProjectID   string
	AccessToken string
	BaseURL     string
}

// PushAdapter delivers reminder notifications over FCM, one call per
// registered device token.
type PushAdapter struct {
	config PushConfig
	client *http.Client
}

// NewPushAdapter creates a new push adapter
func NewPushAdapter(config PushConfig) *PushAdapter {
	if config.BaseURL == "" {
		config.BaseURL = "https://fcm.googleapis.com"
	}

	return &PushAdapter{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type fcmMessage struct {
	Message struct {
		Token        string `json:"token"`
		Notification struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"notification"`
	} `json:"message"`
}

// Send sends a push notification to a single device token
func (a *PushAdapter) Send(ctx context.Context, token, title, body string) error {
	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", a.config.BaseURL, a.config.ProjectID)

	var msg fcmMessage
	msg.Message.Token = token
	msg.Message.Notification.Title = title
	msg.Message.Notification.Body = body

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fcm returned non-2xx status: %d", resp.StatusCode)
	}

	return nil
}
