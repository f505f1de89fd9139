// Package notify delivers reminder notifications when a reminder reaches one
// of its lead times or becomes overdue.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/reminders"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Message is the payload published for one notification.
type Message struct {
	ReminderID        string              `json:"reminder_id"`
	Type              models.ReminderType `json:"type"`
	Title             string              `json:"title"`
	VehicleID         string              `json:"vehicle_id"`
	VehicleName       string              `json:"vehicle_name,omitempty"`
	DueDate           string              `json:"due_date"`
	DaysUntilDue      int                 `json:"days_until_due"`
	IsOverdue         bool                `json:"is_overdue"`
	EffectivePriority models.Priority     `json:"effective_priority"`
	LeadDays          int                 `json:"lead_days"`
	SentAt            time.Time           `json:"sent_at"`
}

// NewMessage builds the payload of n.
func NewMessage(n reminders.Notification, sentAt time.Time) Message {
	return Message{
		ReminderID:        n.Reminder.ID,
		Type:              n.Reminder.Type,
		Title:             n.Reminder.Title,
		VehicleID:         n.Reminder.VehicleID,
		VehicleName:       n.Reminder.VehicleName,
		DueDate:           n.Reminder.DueDate.Format(time.DateOnly),
		DaysUntilDue:      n.Urgency.DaysUntilDue,
		IsOverdue:         n.Urgency.IsOverdue,
		EffectivePriority: n.Urgency.EffectivePriority,
		LeadDays:          n.LeadDays,
		SentAt:            sentAt,
	}
}

// Notifier delivers one message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	Close()
}

// Publisher is the subset of mqtt.Client used to publish.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes messages as JSON to <prefix>/reminders/<vehicle_id>.
type MQTTNotifier struct {
	client  Publisher
	prefix  string
	qos     byte
	timeout time.Duration
	close   func()
}

// NewMQTTNotifier connects to cfg.Broker.
func NewMQTTNotifier(cfg config.MQTTConfig) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}

	n := NewMQTTNotifierWithClient(client, cfg.TopicPrefix)
	n.close = func() { client.Disconnect(250) }
	return n, nil
}

// NewMQTTNotifierWithClient wraps an existing publisher.
func NewMQTTNotifierWithClient(p Publisher, topicPrefix string) *MQTTNotifier {
	return &MQTTNotifier{client: p, prefix: topicPrefix, qos: 1, timeout: 5 * time.Second}
}

// Topic returns the topic a vehicle's notifications go to.
func (n *MQTTNotifier) Topic(vehicleID string) string {
	if vehicleID == "" {
		vehicleID = "unassigned"
	}
	if n.prefix == "" {
		return "reminders/" + vehicleID
	}
	return n.prefix + "/reminders/" + vehicleID
}

func (n *MQTTNotifier) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	token := n.client.Publish(n.Topic(msg.VehicleID), n.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(n.timeout):
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing reminder %s: %w", msg.ReminderID, err)
	}
	return nil
}

func (n *MQTTNotifier) Close() {
	if n.close != nil {
		n.close()
	}
}

// LogNotifier writes notifications to the log. It is used when no broker is configured.
type LogNotifier struct {
	Log log.FieldLogger
}

func (n LogNotifier) Notify(_ context.Context, msg Message) error {
	n.Log.WithFields(log.Fields{
		"reminder_id":    msg.ReminderID,
		"vehicle_id":     msg.VehicleID,
		"due_date":       msg.DueDate,
		"days_until_due": msg.DaysUntilDue,
		"overdue":        msg.IsOverdue,
		"priority":       msg.EffectivePriority,
	}).Info(msg.Title)
	return nil
}

func (LogNotifier) Close() {}
