package app

import (
	"context"
	"errors"
	"log/slog"

	"envirogram/internal/config"
	"envirogram/internal/mqtt"
	"envirogram/internal/station"
)

// RunStation samples the local BME280 and publishes readings until ctx is cancelled.
func RunStation(ctx context.Context, cfg config.StationConfig, logger *slog.Logger) error {
	logger.Info("initializing station",
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"bme280_address", cfg.BME280Address,
		"poll_interval", cfg.SensorPollInterval,
	)

	sensor, err := station.OpenBME280(cfg.BME280Address)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sensor.Close(); closeErr != nil {
			logger.Error("sensor close", "error", closeErr)
		}
	}()

	client := mqtt.NewClient(cfg.MQTTBroker, cfg.MQTTPort, cfg.MQTTClientID, logger)
	defer client.Disconnect()

	// Readings taken before the broker is reachable are logged and dropped.
	go func() {
		err := client.Connect(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, mqtt.ErrStopped) {
			logger.Error("mqtt connect failed", "error", err)
		}
	}()

	return station.Run(ctx, sensor, client, station.Options{
		TemperatureTopic: cfg.TemperatureTopic,
		HumidityTopic:    cfg.HumidityTopic,
		Interval:         cfg.SensorPollInterval,
	}, logger)
}
