// Package telemetry publishes render progress and mix-bus levels to an
// MQTT broker for headless monitoring, grounded on the teacher's
// MQTTPublisher (mqtt_publisher.go): random client-ID generation,
// connect-retry options, and a small JSON payload published per topic.
package telemetry

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config configures the MQTT publisher.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retain   bool
}

// Publisher publishes render-progress and mix-level payloads to MQTT.
type Publisher struct {
	client mqtt.Client
	cfg    Config
}

// RenderProgressPayload mirrors render.Progress for wire transport.
type RenderProgressPayload struct {
	Timestamp          int64   `json:"timestamp"`
	RenderID           string  `json:"render_id"`
	Phase              string  `json:"phase"`
	ChunksCompleted    int     `json:"chunks_completed"`
	ChunksTotal        int     `json:"chunks_total"`
	OverallProgressPct float64 `json:"overall_progress_pct"`
}

// MixLevelsPayload reports instantaneous mix-bus peak/RMS levels.
type MixLevelsPayload struct {
	Timestamp int64   `json:"timestamp"`
	PeakDB    float64 `json:"peak_db"`
	RMSDB     float64 `json:"rms_db"`
}

// generateClientID mirrors the teacher's generateClientID: a random hex
// suffix so multiple daemon instances never collide on a shared broker.
func generateClientID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "noiseforge_fallback"
	}
	return "noiseforge_" + hex.EncodeToString(b)
}

// New connects to the configured broker. If cfg.ClientID is empty, a
// random one is generated.
func New(cfg Config) (*Publisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = generateClientID()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("telemetry: connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("telemetry: MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connecting to %s: %w", cfg.Broker, token.Error())
	}

	return &Publisher{client: client, cfg: cfg}, nil
}

// PublishRenderProgress publishes a render-progress snapshot to
// "<topic>/render/progress".
func (p *Publisher) PublishRenderProgress(now time.Time, payload RenderProgressPayload) error {
	payload.Timestamp = now.Unix()
	return p.publish(p.cfg.Topic+"/render/progress", payload)
}

// PublishMixLevels publishes an instantaneous mix-bus level snapshot to
// "<topic>/mix/levels".
func (p *Publisher) PublishMixLevels(now time.Time, payload MixLevelsPayload) error {
	payload.Timestamp = now.Unix()
	return p.publish(p.cfg.Topic+"/mix/levels", payload)
}

func (p *Publisher) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telemetry: marshaling payload: %w", err)
	}
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, data)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker, waiting up to 250ms for in-flight
// publishes to settle.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
