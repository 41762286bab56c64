package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/petwatch/petwatch-go/internal/errors"
)

const (
	mqttConnectTimeout = 30 * time.Second
	mqttPublishTimeout = 10 * time.Second
)

// MQTTProvider publishes notifications as JSON to an MQTT topic, feeding home
// automation systems that subscribe to the broker. The connection is
// established lazily on the first delivery and reused afterwards.
type MQTTProvider struct {
	name     string
	enabled  bool
	broker   string
	topic    string
	username string
	password string
	clientID string
	retain   bool

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTProvider creates an MQTT provider.
func NewMQTTProvider(enabled bool, broker, topic, username, password, clientID string, retain bool) *MQTTProvider {
	if clientID == "" {
		clientID = "petwatch"
	}
	return &MQTTProvider{
		name:     "mqtt",
		enabled:  enabled,
		broker:   broker,
		topic:    topic,
		username: username,
		password: password,
		clientID: clientID,
		retain:   retain,
	}
}

func (p *MQTTProvider) GetName() string { return p.name }
func (p *MQTTProvider) IsEnabled() bool { return p.enabled }

// ValidateConfig checks broker and topic are set.
func (p *MQTTProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if strings.TrimSpace(p.broker) == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if strings.TrimSpace(p.topic) == "" {
		return fmt.Errorf("mqtt topic is required")
	}
	return nil
}

// Send publishes the notification JSON to the configured topic.
func (p *MQTTProvider) Send(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal mqtt payload: %w", err)
	}

	client, err := p.connect(ctx)
	if err != nil {
		return err
	}

	token := client.Publish(p.topic, 0, p.retain, payload)
	if !waitToken(ctx, token, mqttPublishTimeout) {
		return errors.Newf("publish to %s timed out", p.topic).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.client = nil
}

func (p *MQTTProvider) connect(ctx context.Context) (mqtt.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.IsConnectionOpen() {
		return p.client, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(p.clientID)
	opts.SetUsername(p.username)
	opts.SetPassword(p.password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !waitToken(ctx, token, mqttConnectTimeout) {
		return nil, errors.Newf("connection to %s timed out", p.broker).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Build()
	}
	if err := token.Error(); err != nil {
		return nil, errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Build()
	}

	p.client = client
	return client, nil
}

// waitToken waits for a paho token honoring both the context deadline and the
// fallback timeout.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) bool {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return false
	}
	return token.WaitTimeout(timeout)
}
