// Package mqtt connects the pipeline to the broker: Subscriber feeds station readings in,
// Client publishes plain-text readings from a station, and OutputSink forwards derived
// records back out.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qosAtLeastOnce = byte(1)
	publishTimeout = 5 * time.Second
)

// newClientOptions returns the session settings shared by every connection. onConnect
// and onLost keep the caller's connected flag accurate.
func newClientOptions(broker string, port int, clientID string, logger *slog.Logger, onConnect func(), onLost func()) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID(clientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		onConnect()
		logger.Info("mqtt connected", "broker", broker, "port", port, "client_id", clientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		onLost()
		logger.Warn("mqtt connection lost", "error", err)
	})
	return opts
}

func publish(c mqtt.Client, topic string, payload []byte) error {
	token := c.Publish(topic, qosAtLeastOnce, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// ErrStopped is returned by Connect after Disconnect.
var ErrStopped = errors.New("mqtt connection stopped")

// waitToken polls token until it completes, ctx is done or stop is closed.
func waitToken(ctx context.Context, token mqtt.Token, stop <-chan struct{}) error {
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			return token.Error()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return ErrStopped
		default:
		}
	}
}
