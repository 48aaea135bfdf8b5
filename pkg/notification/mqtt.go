package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CompanionGuard/pkg/crisis"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic 前缀，实际主题为 <Topic>/<severity>
	Topic string
	QoS   byte
}

// Publisher 便于替换/注入的发布接口
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

type pahoPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to the broker and returns a publisher with
// auto reconnect enabled.
func NewMQTTPublisher(cfg MQTTConfig) (Publisher, func(), error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &pahoPublisher{client: client}, func() { client.Disconnect(250) }, nil
}

func (p *pahoPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publish to topic %s timed out", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// MQTT 将警报发布到护理端订阅的主题
type MQTT struct {
	cfg MQTTConfig
	pub Publisher
	now func() time.Time
}

func NewMQTT(cfg MQTTConfig, pub Publisher) *MQTT {
	if cfg.Topic == "" {
		cfg.Topic = "crisis/alerts"
	}
	if cfg.QoS > 2 {
		cfg.QoS = 1
	}
	return &MQTT{cfg: cfg, pub: pub, now: time.Now}
}

func (m *MQTT) topic(alert crisis.CrisisAlert) string {
	return strings.TrimRight(m.cfg.Topic, "/") + "/" + alert.Severity.String()
}

func (m *MQTT) Deliver(ctx context.Context, alert crisis.CrisisAlert) (crisis.DeliveryReceipt, error) {
	if m.pub == nil {
		return crisis.DeliveryReceipt{}, fmt.Errorf("mqtt publisher not configured")
	}
	if err := ctx.Err(); err != nil {
		return crisis.DeliveryReceipt{}, err
	}
	payload, err := json.Marshal(NewMessage(alert))
	if err != nil {
		return crisis.DeliveryReceipt{}, err
	}
	topic := m.topic(alert)
	if err := m.pub.Publish(topic, m.cfg.QoS, false, payload); err != nil {
		return crisis.DeliveryReceipt{}, err
	}
	return crisis.DeliveryReceipt{DeliveredAt: m.now(), Channel: "mqtt", Reference: topic}, nil
}
