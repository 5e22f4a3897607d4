package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client publishes station readings.
type Client struct {
	client    mqtt.Client
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(broker string, port int, clientID string, logger *slog.Logger) *Client {
	c := &Client{
		logger: logger,
		stopCh: make(chan struct{}),
	}
	opts := newClientOptions(broker, port, clientID, logger,
		func() { c.setConnected(true) },
		func() { c.setConnected(false) },
	)
	c.client = mqtt.NewClient(opts)
	return c
}

// Connect establishes connection to the MQTT broker.
// This function waits for the initial connection, and respects ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) paho keeps retrying until the token completes.
	if err := waitToken(ctx, c.client.Connect(), c.stopCh); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.setConnected(true)
	return nil
}

// PublishValue publishes v as plain text, the format stations have always used.
func (c *Client) PublishValue(topic string, v float64) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	if err := publish(c.client, topic, []byte(FormatValue(v))); err != nil {
		c.logger.Error("failed to publish reading", "topic", topic, "error", err)
		return err
	}
	c.logger.Debug("published reading", "topic", topic, "value", v)
	return nil
}

// FormatValue renders v with the shortest representation that parses back exactly.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent; after Disconnect, Connect returns an error.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
