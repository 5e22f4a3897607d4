package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"envirogram/internal/config"
	"envirogram/internal/db"
	"envirogram/internal/derived"
	"envirogram/internal/httpapi"
	"envirogram/internal/influx"
	"envirogram/internal/join"
	"envirogram/internal/migrate"
	"envirogram/internal/modules/readings"
	"envirogram/internal/modules/readings/repository"
	"envirogram/internal/modules/readings/service"
	"envirogram/internal/mqtt"
	"envirogram/internal/stats"
	"envirogram/internal/ws"
)

// Run wires the server and blocks until ctx is cancelled or the HTTP server fails.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbLogSQL", cfg.LogSQL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"temperatureTopic", cfg.TemperatureTopic,
		"humidityTopic", cfg.HumidityTopic,
		"recordTopic", cfg.RecordTopic,
		"outputTopic", cfg.OutputTopic,
		"joinWindow", cfg.JoinWindow,
		"location", cfg.Display.Location,
		"timezone", cfg.Display.Timezone,
		"configFile", cfg.ConfigFile,
		"influxEnabled", cfg.InfluxHost != "",
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	calc, err := newCalculator(cfg.Display, logger)
	if err != nil {
		return err
	}

	repo := repository.NewRepository(dbConn)
	hub := ws.New(logger)
	counters := stats.NewCounters()
	subscriber := mqtt.NewSubscriber(cfg, join.New(cfg.JoinWindow), logger)

	sinks := []service.Sink{service.NewRepositorySink(repo), hub}
	if cfg.OutputTopic != "" {
		sinks = append(sinks, mqtt.NewOutputSink(subscriber, cfg.OutputTopic))
	}
	if cfg.InfluxHost != "" {
		influxSink, err := influx.New(cfg.InfluxHost, cfg.InfluxToken, cfg.InfluxDatabase)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := influxSink.Close(); closeErr != nil {
				logger.Error("influx close", "error", closeErr)
			}
		}()
		sinks = append(sinks, influxSink)
	}

	svc := service.NewService(calc, counters, logger, sinks...)

	// The handler must be in place before Connect: the broker may deliver queued
	// messages right after CONNACK.
	subscriber.SetMessageHandler(svc.HandleMessage(ctx))

	mux := httpapi.NewMux(httpapi.Routes{
		DB:   repo,
		Feed: hub,
		Metrics: stats.Handler(counters, stats.Gauge{
			Name:  "ws_clients",
			Help:  "Connected dashboard clients.",
			Value: func() float64 { return float64(hub.Count()) },
		}),
	}, logger)
	readings.RegisterFeature(mux, repo, svc)

	go hub.Run(ctx)

	if cfg.ConfigFile != "" {
		go func() {
			err := config.WatchDisplay(ctx, cfg.ConfigFile, cfg.EnvDisplay, func(d config.Display) {
				next, err := newCalculator(d, logger)
				if err != nil {
					logger.Error("display reload rejected", "error", err)
					return
				}
				svc.SetCalculator(next)
			})
			if err != nil {
				logger.Error("config watcher stopped", "path", cfg.ConfigFile, "error", err)
			}
		}()
	}

	// Connect in the background so /healthz and the API work while the broker is down.
	go func() {
		err := subscriber.Connect(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, mqtt.ErrStopped) {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}()

	srv := httpapi.NewServer(cfg.HTTPAddr, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		subscriber.Disconnect()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("mqtt disconnecting")
	subscriber.Disconnect()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

func newCalculator(d config.Display, logger *slog.Logger) (*derived.Calculator, error) {
	zone, err := d.Zone()
	if err != nil {
		return nil, err
	}
	return derived.NewCalculator(d.Location, logger, derived.WithTimeZone(zone)), nil
}
