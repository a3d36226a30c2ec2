package consumer

import (
	"context"
	"encoding/json"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"github.com/vhvplatform/go-reminder-service/internal/shared/rabbitmq"
)

const (
	accountsExchange   = "accounts"
	accountsQueue      = "reminder_account_events"
	accountsRoutingKey = "user.*"
	consumerTag        = "reminder-service"
)

// AccountConsumer consumes account events from RabbitMQ and keeps the
// stored notification preferences in sync with the account service.
type AccountConsumer struct {
	client *rabbitmq.RabbitMQClient
	prefs  *repository.PreferencesRepository
	tokens *repository.DeviceTokenRepository
	log    *logger.Logger
}

// NewAccountConsumer creates a new account event consumer
func NewAccountConsumer(client *rabbitmq.RabbitMQClient, prefs *repository.PreferencesRepository, tokens *repository.DeviceTokenRepository, log *logger.Logger) *AccountConsumer {
	return &AccountConsumer{
		client: client,
		prefs:  prefs,
		tokens: tokens,
		log:    log,
	}
}

// Start starts consuming account events
func (c *AccountConsumer) Start() error {
	c.log.Info("Starting account event consumer", "queue", accountsQueue)

	if err := c.client.DeclareExchange(accountsExchange, "topic"); err != nil {
		return err
	}
	if err := c.client.DeclareQueue(accountsQueue); err != nil {
		return err
	}
	if err := c.client.BindQueue(accountsQueue, accountsRoutingKey, accountsExchange); err != nil {
		return err
	}

	messages, err := c.client.Consume(accountsQueue, consumerTag)
	if err != nil {
		return err
	}

	for msg := range messages {
		var event domain.AccountEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			c.log.Error("Failed to unmarshal account event", "error", err)
			msg.Nack(false, false) // Don't requeue invalid messages
			continue
		}

		ctx := context.Background()
		if err := c.handleEvent(ctx, &event); err != nil {
			c.log.Error("Failed to process account event", "error", err, "type", event.Type)
			msg.Nack(false, true) // Requeue for retry
			continue
		}

		msg.Ack(false)
	}

	return nil
}

func (c *AccountConsumer) handleEvent(ctx context.Context, event *domain.AccountEvent) error {
	switch event.Type {
	case domain.EventUserUpdated:
		return c.syncContactDetails(ctx, event)
	case domain.EventUserDeleted:
		return c.pruneUser(ctx, event)
	default:
		c.log.Warn("Unknown account event type", "type", event.Type)
		return nil
	}
}

// syncContactDetails refreshes the contact fields channel adapters rely on
func (c *AccountConsumer) syncContactDetails(ctx context.Context, event *domain.AccountEvent) error {
	prefs, err := c.prefs.GetByUserID(ctx, event.UserID)
	if err != nil {
		return err
	}

	if event.Email != "" {
		prefs.Email = event.Email
	}
	if event.PhoneNumber != "" {
		prefs.PhoneNumber = event.PhoneNumber
	}

	return c.prefs.Update(ctx, prefs)
}

// pruneUser clears contact details and registered tokens for a deleted user
func (c *AccountConsumer) pruneUser(ctx context.Context, event *domain.AccountEvent) error {
	tokens, err := c.tokens.FindByUser(ctx, event.UserID)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := c.tokens.Delete(ctx, event.UserID, token.Token); err != nil {
			return err
		}
	}

	prefs, err := c.prefs.GetByUserID(ctx, event.UserID)
	if err != nil {
		return err
	}
	prefs.Email = ""
	prefs.PhoneNumber = ""
	prefs.EmailEnabled = false
	prefs.SMSEnabled = false
	prefs.PushEnabled = false
	prefs.WhatsAppEnabled = false

	return c.prefs.Update(ctx, prefs)
}
