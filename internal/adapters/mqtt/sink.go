// Package mqtt publishes decoded readings and retransmission telemetry to
// an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
)

// Config holds broker settings.
type Config struct {
	Broker   string
	Username string
	Password string

	// TopicPrefix roots all topics: <prefix>/readings/<id> and
	// <prefix>/telemetry.
	TopicPrefix string
	QoS         byte
	Retain      bool

	// InstanceID identifies this relay in client IDs and payloads. A
	// random UUID is used when empty.
	InstanceID string

	// PublishTimeout bounds how long the scheduling loop waits for a
	// publish to be handed to the client.
	PublishTimeout time.Duration
}

const (
	defaultTopicPrefix    = "tpmsrelay"
	defaultPublishTimeout = 500 * time.Millisecond
)

// publisher is the subset of paho.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// ReadingMessage is the JSON document published per decoded reading.
type ReadingMessage struct {
	Instance    string   `json:"instance"`
	Timestamp   int64    `json:"timestamp"`
	Model       string   `json:"model"`
	ID          string   `json:"id"`
	Flags       uint32   `json:"flags"`
	PressureKPa float64  `json:"pressure_kpa"`
	PressurePSI float64  `json:"pressure_psi"`
	Temperature *float64 `json:"temperature,omitempty"`
	TempUnit    string   `json:"temperature_unit,omitempty"`
	Integrity   string   `json:"integrity"`
	MIC         uint8    `json:"mic"`
}

// Sink implements ports.TelemetrySink over MQTT.
type Sink struct {
	client  publisher
	cfg     Config
	logger  ports.Logger
	now     func() time.Time
	closeFn func()
}

// Dial connects to the broker and returns a sink. The client reconnects on
// its own after the initial connection.
func Dial(cfg Config, logger ports.Logger) (*Sink, error) {
	cfg = withDefaults(cfg)

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID(cfg.InstanceID))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		logger.Info("mqtt connected", ports.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", ports.Err(err))
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect mqtt %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, err)
	}

	s := newSink(client, cfg, logger)
	s.closeFn = func() { client.Disconnect(250) }
	return s, nil
}

func newSink(client publisher, cfg Config, logger ports.Logger) *Sink {
	return &Sink{
		client: client,
		cfg:    withDefaults(cfg),
		logger: logger,
		now:    time.Now,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = defaultTopicPrefix
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	return cfg
}

// clientID derives the broker client ID from at most the first eight
// characters of the instance ID.
func clientID(instance string) string {
	if len(instance) > 8 {
		instance = instance[:8]
	}
	return "tpmsrelay-" + instance
}

// Reading implements ports.TelemetrySink.
func (s *Sink) Reading(ctx context.Context, r domain.Reading) {
	msg := ReadingMessage{
		Instance:    s.cfg.InstanceID,
		Timestamp:   s.now().Unix(),
		Model:       r.Variant.Model(),
		ID:          r.IDString(),
		Flags:       r.Flags,
		PressureKPa: r.PressureKPa(),
		PressurePSI: r.PressurePSI(),
		Integrity:   r.Integrity.String(),
		MIC:         r.MIC,
	}
	if v, unit, ok := r.Temperature(); ok {
		msg.Temperature = &v
		msg.TempUnit = unit
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encode reading", ports.Err(err))
		return
	}
	s.publish(s.cfg.TopicPrefix+"/readings/"+msg.ID, data)
}

// Line implements ports.TelemetrySink.
func (s *Sink) Line(ctx context.Context, line string) {
	s.publish(s.cfg.TopicPrefix+"/telemetry", []byte(line))
}

func (s *Sink) publish(topic string, payload []byte) {
	token := s.client.Publish(topic, s.cfg.QoS, s.cfg.Retain, payload)
	if !token.WaitTimeout(s.cfg.PublishTimeout) {
		s.logger.Warn("mqtt publish pending", ports.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		s.logger.Error("mqtt publish failed", ports.String("topic", topic), ports.Err(err))
	}
}

// InstanceID returns the identifier carried in published payloads.
func (s *Sink) InstanceID() string {
	return s.cfg.InstanceID
}

// Close disconnects from the broker.
func (s *Sink) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

var _ ports.TelemetrySink = (*Sink)(nil)
