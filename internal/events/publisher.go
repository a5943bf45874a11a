package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lockerroom/lockerroom-core/internal/infrastructure/config"
	"github.com/lockerroom/lockerroom-core/internal/infrastructure/logging"
)

// Event types carried in the payload.
const (
	EventMessagePosted  = "message.posted"
	EventMessageEdited  = "message.edited"
	EventMessageDeleted = "message.deleted"
)

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrPublishFailed    = errors.New("mqtt publish failed")
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Event is the JSON payload published for message lifecycle changes.
type Event struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	LobbyID   string `json:"lobby_id"`
	UserID    string `json:"user_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Publisher delivers message lifecycle events to interested subscribers.
type Publisher interface {
	Publish(event Event) error
	Close()
}

// NewPublisher returns an MQTT-backed publisher, or a no-op publisher
// when MQTT is disabled in configuration.
func NewPublisher(cfg config.MQTTConfig, logger *logging.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	return connect(cfg, logger)
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
func (NopPublisher) Close()              {}

// MQTTPublisher publishes events to an MQTT broker.
type MQTTPublisher struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	logger *logging.Logger
}

func connect(cfg config.MQTTConfig, logger *logging.Logger) (*MQTTPublisher, error) {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(cfg.Broker.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", brokerURL)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &MQTTPublisher{client: client, cfg: cfg, logger: logger}, nil
}

// Publish sends one event to its lobby topic with the configured QoS.
func (p *MQTTPublisher) Publish(event Event) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %w", ErrPublishFailed, err)
	}

	topic := lobbyTopic(p.cfg.TopicPrefix, event.LobbyID)
	token := p.client.Publish(topic, byte(p.cfg.QoS), false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// Close disconnects from the broker, allowing in-flight messages to drain.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// lobbyTopic builds the per-lobby event topic.
func lobbyTopic(prefix, lobbyID string) string {
	return fmt.Sprintf("%s/lobby/%s/messages", prefix, lobbyID)
}
