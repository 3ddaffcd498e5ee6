package events

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Config describes the broker connection.
type Config struct {
	Enabled  bool
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

func DefaultConfig() Config {
	return Config{
		Broker:   "tcp://localhost:1883",
		ClientID: "thermalctl",
		Topic:    DefaultTopic,
	}
}

func (c Config) Validate() error {
	if c.Enabled && (c.Broker == "" || c.Topic == "") {
		return errors.New().WithMessage(ErrInvalidConfig, "mqtt broker and topic are required")
	}

	return nil
}

// RealPublisher publishes to an MQTT broker. A retained "offline" status is
// registered as the last will and replaced with "online" on every connect.
type RealPublisher struct {
	client paho.Client
	topic  string
	logger logger.Logger
}

// NewRealPublisher connects to the configured broker.
func NewRealPublisher(cfg Config, log logger.Logger) (*RealPublisher, error) {
	errFactory := errors.New()

	status := cfg.Topic + StatusSuffix
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(status, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			c.Publish(status, 1, true, "online")
			log.Info().Str("broker", cfg.Broker).Msg("Connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, errFactory.WithMessage(ErrConnectFailed, "connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, errFactory.Wrap(ErrConnectFailed, err)
	}

	return &RealPublisher{
		client: client,
		topic:  cfg.Topic,
		logger: log,
	}, nil
}

// Publish sends a transition with QoS 1 so releases are not lost.
func (p *RealPublisher) Publish(event Event) error {
	errFactory := errors.New()

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errFactory.New(ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(ErrPublishFailed, err)
	}

	return nil
}

// IsConnected reports whether the client currently holds a connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close publishes the offline status and disconnects.
func (p *RealPublisher) Close() error {
	token := p.client.Publish(p.topic+StatusSuffix, 1, true, "offline")
	token.WaitTimeout(publishTimeout)
	p.client.Disconnect(1000)

	return nil
}
