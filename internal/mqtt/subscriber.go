package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"envirogram/internal/config"
	"envirogram/internal/derived"
	"envirogram/internal/join"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscriber receives station readings and hands complete InputRecords to its handler.
// Plain-text temperature and humidity topics are paired by a join.Joiner; the record
// topic carries whole JSON objects.
type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	joiner    *join.Joiner
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	// subscribed is set after the first successful subscribe so reconnects restore it.
	subscribed bool

	stopCh   chan struct{}
	stopOnce sync.Once

	handlerMu sync.RWMutex
	handler   func(derived.InputRecord)
}

func NewSubscriber(cfg config.Config, joiner *join.Joiner, logger *slog.Logger) *Subscriber {
	s := &Subscriber{
		cfg:    cfg,
		joiner: joiner,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := newClientOptions(cfg.MQTTBroker, cfg.MQTTPort, cfg.MQTTClientID, logger,
		func() {
			s.setConnected(true)
			s.mu.RLock()
			resubscribe := s.subscribed
			s.mu.RUnlock()
			if resubscribe {
				// Clean sessions drop subscriptions; paho must not block in this callback.
				go func() {
					if err := s.subscribe(); err != nil {
						s.logger.Error("mqtt resubscribe failed", "error", err)
					}
				}()
			}
		},
		func() { s.setConnected(false) },
	)

	s.client = mqtt.NewClient(opts)
	return s
}

// SetMessageHandler sets the callback for complete input records.
func (s *Subscriber) SetMessageHandler(handler func(derived.InputRecord)) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Connect establishes the broker connection and subscribes to the configured topics.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}

	if s.IsConnected() {
		return nil
	}

	if err := waitToken(ctx, s.client.Connect(), s.stopCh); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("mqtt connect: %w", err)
	}
	// OnConnect runs on its own goroutine and may not have fired yet.
	s.setConnected(true)

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Subscriber) topics() []string {
	var out []string
	for _, t := range []string{s.cfg.TemperatureTopic, s.cfg.HumidityTopic, s.cfg.RecordTopic} {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	onMessage := func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	}

	for _, topic := range s.topics() {
		token := s.client.Subscribe(topic, qosAtLeastOnce, onMessage)
		if !token.WaitTimeout(5 * time.Second) {
			return fmt.Errorf("subscribe timeout for topic %s", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qosAtLeastOnce)
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var (
		rec      derived.InputRecord
		complete bool
	)
	switch topic {
	case s.cfg.TemperatureTopic:
		rec, complete = s.joiner.Offer(join.Temperature, derived.ParsePlainValue(payload))
	case s.cfg.HumidityTopic:
		rec, complete = s.joiner.Offer(join.Humidity, derived.ParsePlainValue(payload))
	case s.cfg.RecordTopic:
		if err := json.Unmarshal(payload, &rec); err != nil {
			s.logger.Warn("failed to parse reading message",
				"topic", topic,
				"error", err,
				"payload", string(payload),
			)
			return
		}
		complete = true
	default:
		s.logger.Debug("ignoring message on unexpected topic", "topic", topic)
		return
	}

	if !complete {
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler != nil {
		handler(rec)
	}
}

// PublishRecord publishes rec as JSON on topic over the subscriber's connection.
func (s *Subscriber) PublishRecord(topic string, rec derived.OutputRecord) error {
	if !s.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return publish(s.client, topic, data)
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.topics()...)
		token.WaitTimeout(2 * time.Second)
	}

	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
