package publisher

import (
	"encoding/json"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"github.com/vhvplatform/go-reminder-service/internal/shared/rabbitmq"
)

const (
	remindersExchange = "reminders"

	routingKeyTaskSent   = "task.sent"
	routingKeyTaskFailed = "task.failed"
)

// OutcomeEvent is the wire form of a dispatch outcome
type OutcomeEvent struct {
	TaskID      string           `json:"task_id"`
	RecipientID string           `json:"recipient_id"`
	CycleID     string           `json:"cycle_id"`
	Sent        bool             `json:"sent"`
	Channels    []domain.Channel `json:"channels,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// OutcomePublisher publishes dispatch outcomes to the reminders exchange
// for downstream analytics consumers.
type OutcomePublisher struct {
	client *rabbitmq.RabbitMQClient
	log    *logger.Logger
}

// NewOutcomePublisher creates a publisher and declares the exchange
func NewOutcomePublisher(client *rabbitmq.RabbitMQClient, log *logger.Logger) (*OutcomePublisher, error) {
	if err := client.DeclareExchange(remindersExchange, "topic"); err != nil {
		return nil, err
	}

	return &OutcomePublisher{client: client, log: log}, nil
}

// PublishOutcome announces the result of one task dispatch
func (p *OutcomePublisher) PublishOutcome(taskID, recipientID, cycleID string, sent bool, succeeded []domain.Channel) error {
	event := OutcomeEvent{
		TaskID:      taskID,
		RecipientID: recipientID,
		CycleID:     cycleID,
		Sent:        sent,
		Channels:    succeeded,
		Timestamp:   time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	routingKey := routingKeyTaskFailed
	if sent {
		routingKey = routingKeyTaskSent
	}

	return p.client.Publish(remindersExchange, routingKey, body)
}
