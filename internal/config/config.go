package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// LogSQL routes every statement through the logging connector at debug level.
	LogSQL bool

	MQTTBroker       string
	MQTTPort         int
	MQTTClientID     string
	TemperatureTopic string
	HumidityTopic    string
	RecordTopic      string
	// OutputTopic receives every derived record; empty disables publishing.
	OutputTopic string
	JoinWindow  time.Duration

	// Display is the effective display configuration: EnvDisplay overlaid by ConfigFile.
	Display    Display
	EnvDisplay Display
	// ConfigFile is an optional YAML overlay for Display, watched for changes.
	ConfigFile string

	InfluxHost     string
	InfluxToken    string
	InfluxDatabase string
}

func LoadFromEnv() (Config, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if path == "" {
		path = "data/envirogram.db"
	}

	maxOpenConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_OPEN_CONNS"))
	if maxOpenConnsStr == "" {
		maxOpenConnsStr = "1"
	}
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_IDLE_CONNS"))
	if maxIdleConnsStr == "" {
		maxIdleConnsStr = "1"
	}
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := strings.TrimSpace(os.Getenv("DB_CONN_MAX_LIFETIME"))
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQLStr := strings.TrimSpace(os.Getenv("DB_LOG_SQL"))
	if logSQLStr == "" {
		logSQLStr = "false"
	}
	logSQL, err := strconv.ParseBool(logSQLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", logSQLStr, err)
	}

	broker, port, err := loadMQTTBroker()
	if err != nil {
		return Config{}, err
	}

	clientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if clientID == "" {
		clientID = "envirogram-server"
	}

	temperatureTopic, humidityTopic := loadReadingTopics()

	recordTopic := strings.TrimSpace(os.Getenv("MQTT_RECORD_TOPIC"))
	if recordTopic == "" {
		recordTopic = "envirogram/readings"
	}

	// An explicitly empty MQTT_OUTPUT_TOPIC disables publishing.
	outputTopic, ok := os.LookupEnv("MQTT_OUTPUT_TOPIC")
	if !ok {
		outputTopic = "envirogram/derived"
	}
	outputTopic = strings.TrimSpace(outputTopic)

	joinWindowStr := strings.TrimSpace(os.Getenv("MQTT_JOIN_WINDOW"))
	if joinWindowStr == "" {
		joinWindowStr = "10s"
	}
	joinWindow, err := time.ParseDuration(joinWindowStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_JOIN_WINDOW %q: %w", joinWindowStr, err)
	}
	if joinWindow <= 0 {
		return Config{}, fmt.Errorf("MQTT_JOIN_WINDOW must be positive, got %v", joinWindow)
	}

	envDisplay := Display{
		Location: strings.TrimSpace(os.Getenv("LOCATION")),
		Timezone: strings.TrimSpace(os.Getenv("DISPLAY_TIMEZONE")),
	}
	display := envDisplay
	configFile := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if configFile != "" {
		overlay, err := LoadDisplay(configFile)
		if err != nil {
			return Config{}, err
		}
		display = display.Merge(overlay)
	}
	display = display.withDefaults()
	if _, err := display.Zone(); err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:           appEnv,
		LogLevel:         level,
		HTTPAddr:         httpAddr,
		Driver:           driver,
		DSN:              dsn,
		Path:             path,
		MaxOpenConns:     maxOpenConns,
		MaxIdleConns:     maxIdleConns,
		ConnMaxLifetime:  connMaxLifetime,
		LogSQL:           logSQL,
		MQTTBroker:       broker,
		MQTTPort:         port,
		MQTTClientID:     clientID,
		TemperatureTopic: temperatureTopic,
		HumidityTopic:    humidityTopic,
		RecordTopic:      recordTopic,
		OutputTopic:      outputTopic,
		JoinWindow:       joinWindow,
		Display:          display,
		EnvDisplay:       envDisplay,
		ConfigFile:       configFile,
		InfluxHost:       strings.TrimSpace(os.Getenv("INFLUX_HOST")),
		InfluxToken:      strings.TrimSpace(os.Getenv("INFLUX_TOKEN")),
		InfluxDatabase:   strings.TrimSpace(os.Getenv("INFLUX_DATABASE")),
	}, nil
}

// StationConfig configures the sensor publisher.
type StationConfig struct {
	AppEnv       string
	LogLevel     slog.Level
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	TemperatureTopic string
	HumidityTopic    string

	BME280Address      uint16
	SensorPollInterval time.Duration
}

func LoadStationFromEnv() (StationConfig, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return StationConfig{}, err
	}

	broker, port, err := loadMQTTBroker()
	if err != nil {
		return StationConfig{}, err
	}

	clientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if clientID == "" {
		clientID = "envirogram-station"
	}

	temperatureTopic, humidityTopic := loadReadingTopics()

	bme280AddressStr := strings.TrimSpace(os.Getenv("BME280_ADDRESS"))
	if bme280AddressStr == "" {
		bme280AddressStr = "0x76"
	}
	bme280Address, err := strconv.ParseUint(bme280AddressStr, 0, 16)
	if err != nil {
		return StationConfig{}, fmt.Errorf("invalid BME280_ADDRESS %q: %w", bme280AddressStr, err)
	}

	sensorPollIntervalStr := strings.TrimSpace(os.Getenv("SENSOR_POLL_INTERVAL"))
	if sensorPollIntervalStr == "" {
		sensorPollIntervalStr = "30s"
	}
	sensorPollInterval, err := time.ParseDuration(sensorPollIntervalStr)
	if err != nil {
		return StationConfig{}, fmt.Errorf("invalid SENSOR_POLL_INTERVAL %q: %w", sensorPollIntervalStr, err)
	}
	if sensorPollInterval <= 0 {
		return StationConfig{}, fmt.Errorf("SENSOR_POLL_INTERVAL must be positive, got %v", sensorPollInterval)
	}

	return StationConfig{
		AppEnv:             appEnv,
		LogLevel:           level,
		MQTTBroker:         broker,
		MQTTPort:           port,
		MQTTClientID:       clientID,
		TemperatureTopic:   temperatureTopic,
		HumidityTopic:      humidityTopic,
		BME280Address:      uint16(bme280Address),
		SensorPollInterval: sensorPollInterval,
	}, nil
}

func loadCommon() (string, slog.Level, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return "", slog.LevelInfo, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return "", slog.LevelInfo, err
	}
	return appEnv, level, nil
}

func loadMQTTBroker() (string, int, error) {
	broker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if broker == "" {
		broker = "localhost"
	}

	portStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if portStr == "" {
		portStr = "1883"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid MQTT_PORT %q: %w", portStr, err)
	}
	if port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("MQTT_PORT %d is out of range [1, 65535]", port)
	}
	return broker, port, nil
}

// loadReadingTopics returns the plain-text topics the ESP32 stations publish to.
func loadReadingTopics() (string, string) {
	temperatureTopic := strings.TrimSpace(os.Getenv("MQTT_TEMPERATURE_TOPIC"))
	if temperatureTopic == "" {
		temperatureTopic = "ProIT_IoT/Ravi/temp"
	}
	humidityTopic := strings.TrimSpace(os.Getenv("MQTT_HUMIDITY_TOPIC"))
	if humidityTopic == "" {
		humidityTopic = "ProIT_IoT/Ravi/humi"
	}
	return temperatureTopic, humidityTopic
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
