package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// MQTTConfig describes the connection to one or more MQTT servers.
type MQTTConfig struct {
	Endpoints      []string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	Retain         bool
	ConnectTimeout time.Duration
	Quiesce        time.Duration
}

func (c *MQTTConfig) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "sensorlog-" + uuid.NewString()
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Quiesce <= 0 {
		c.Quiesce = 250 * time.Millisecond
	}
}

func (c *MQTTConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("mqtt: at least one endpoint is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

// MQTT publishes each payload to the topic it is given.
type MQTT struct {
	cfg MQTTConfig

	mu     sync.Mutex
	client mqtt.Client
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MQTT{cfg: cfg}, nil
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return nil
	}

	opts := mqtt.NewClientOptions()
	for _, ep := range m.cfg.Endpoints {
		opts.AddBroker(ep)
	}
	opts.SetClientID(m.cfg.ClientID)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
	}
	if m.cfg.Password != "" {
		opts.SetPassword(m.cfg.Password)
	}
	opts.SetConnectTimeout(m.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if err := await(ctx, client.Connect()); err != nil {
		return fmt.Errorf("%w: mqtt connect: %w", domain.ErrSinkUnavailable, err)
	}
	m.client = client
	return nil
}

func (m *MQTT) Send(ctx context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return fmt.Errorf("%w: mqtt not started", domain.ErrSinkUnavailable)
	}

	if err := await(ctx, client.Publish(topic, m.cfg.QoS, m.cfg.Retain, payload)); err != nil {
		return fmt.Errorf("%w: mqtt publish to %s: %w", domain.ErrSinkSendFailed, topic, err)
	}
	return nil
}

// Stop lets in-flight publishes finish within the quiesce window and
// disconnects.
func (m *MQTT) Stop(context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client != nil {
		client.Disconnect(uint(m.cfg.Quiesce / time.Millisecond))
	}
	return nil
}

func await(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.Broker = (*MQTT)(nil)
