// Package station samples a temperature and humidity sensor and publishes each value as
// plain text on its own MQTT topic, the format the server pairs back into records.
package station

import (
	"context"
	"log/slog"
	"time"
)

// Reading is one sensor sample in °C and %RH.
type Reading struct {
	Temperature float64
	Humidity    float64
}

type Sensor interface {
	Sense() (Reading, error)
}

type Publisher interface {
	PublishValue(topic string, v float64) error
}

type Options struct {
	TemperatureTopic string
	HumidityTopic    string
	Interval         time.Duration
}

// Run samples immediately and then every opts.Interval until ctx is done. Sensor and
// publish failures are logged and the loop carries on.
func Run(ctx context.Context, sensor Sensor, pub Publisher, opts Options, logger *slog.Logger) error {
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		sample(sensor, pub, opts, logger)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sample(sensor Sensor, pub Publisher, opts Options, logger *slog.Logger) {
	r, err := sensor.Sense()
	if err != nil {
		logger.Error("sensor read failed", "error", err)
		return
	}

	logger.Debug("sensor reading", "temperature", r.Temperature, "humidity", r.Humidity)

	if err := pub.PublishValue(opts.TemperatureTopic, r.Temperature); err != nil {
		logger.Warn("publish temperature failed", "topic", opts.TemperatureTopic, "error", err)
	}
	if err := pub.PublishValue(opts.HumidityTopic, r.Humidity); err != nil {
		logger.Warn("publish humidity failed", "topic", opts.HumidityTopic, "error", err)
	}
}
