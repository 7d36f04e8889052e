// Package config загружает конфигурацию шлюза: значения по умолчанию,
// затем необязательный YAML-файл, затем переменные окружения
// После старта конфигурация неизменяема
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config содержит всю конфигурацию шлюза
type Config struct {
	ServerAddr string `yaml:"server_addr"`

	// Геометрия агрегации
	WindowSize        int `yaml:"window_size"`         // емкость окна выборок N
	PeakWindowSeconds int `yaml:"peak_window_seconds"` // окно пиков W, под интервал скрейпа с запасом

	// Геометрия истории
	HistoryLength       int `yaml:"history_length"`        // элементов на поток H
	HistoryElementWidth int `yaml:"history_element_width"` // байт на элемент E
	HistoryBudgetBytes  int `yaml:"history_budget_bytes"`  // бюджет региона истории

	// Кадансы, в секундах
	PollIntervalSeconds    int `yaml:"poll_interval_seconds"`    // опрос сенсоров
	TickIntervalSeconds    int `yaml:"tick_interval_seconds"`    // запись в историю
	PublishIntervalSeconds int `yaml:"publish_interval_seconds"` // публикация в MQTT
	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"` // обновление Prometheus-гейджей

	// MQTT
	MqttEnabled   bool   `yaml:"mqtt_enabled"`
	MqttServer    string `yaml:"mqtt_server"`
	MqttPort      int    `yaml:"mqtt_port"`
	MqttUser      string `yaml:"mqtt_user"`
	MqttPassword  string `yaml:"mqtt_password"`
	MqttTopicBase string `yaml:"mqtt_topic_base"`
	MqttUseTLS    bool   `yaml:"mqtt_use_tls"`

	// Redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		ServerAddr: ":8080",

		WindowSize:        60,
		PeakWindowSeconds: 100,

		HistoryLength:       450,
		HistoryElementWidth: 10,
		HistoryBudgetBytes:  64 * 1024,

		PollIntervalSeconds:    1,
		TickIntervalSeconds:    15,
		PublishIntervalSeconds: 15,
		RefreshIntervalSeconds: 5,

		MqttEnabled:   false,
		MqttServer:    "localhost",
		MqttPort:      1883,
		MqttTopicBase: "home/sensors/gateway/",

		RedisAddr: "localhost:6379",
	}
}

// Load собирает конфигурацию: Default, затем YAML-файл из CONFIG_FILE
// (если задан), затем переменные окружения
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv накладывает переменные окружения поверх текущих значений
func (c *Config) applyEnv() {
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)

	c.WindowSize = getEnvInt("WINDOW_SIZE", c.WindowSize)
	c.PeakWindowSeconds = getEnvInt("PEAK_WINDOW_SECONDS", c.PeakWindowSeconds)

	c.HistoryLength = getEnvInt("HISTORY_LENGTH", c.HistoryLength)
	c.HistoryElementWidth = getEnvInt("HISTORY_ELEMENT_WIDTH", c.HistoryElementWidth)
	c.HistoryBudgetBytes = getEnvInt("HISTORY_BUDGET_BYTES", c.HistoryBudgetBytes)

	c.PollIntervalSeconds = getEnvInt("POLL_INTERVAL_SECONDS", c.PollIntervalSeconds)
	c.TickIntervalSeconds = getEnvInt("TICK_INTERVAL_SECONDS", c.TickIntervalSeconds)
	c.PublishIntervalSeconds = getEnvInt("PUBLISH_INTERVAL_SECONDS", c.PublishIntervalSeconds)
	c.RefreshIntervalSeconds = getEnvInt("REFRESH_INTERVAL_SECONDS", c.RefreshIntervalSeconds)

	c.MqttEnabled = getEnvBool("MQTT_ENABLED", c.MqttEnabled)
	c.MqttServer = getEnv("MQTT_SERVER", c.MqttServer)
	c.MqttPort = getEnvInt("MQTT_PORT", c.MqttPort)
	c.MqttUser = getEnv("MQTT_USER", c.MqttUser)
	c.MqttPassword = getEnv("MQTT_PASSWORD", c.MqttPassword)
	c.MqttTopicBase = getEnv("MQTT_TOPIC_BASE", c.MqttTopicBase)
	c.MqttUseTLS = getEnvBool("MQTT_USE_TLS", c.MqttUseTLS)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
}

// validate проверяет, что геометрия и кадансы имеют смысл
func (c *Config) validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("config: window_size must be positive, got %d", c.WindowSize)
	}
	if c.PeakWindowSeconds <= 0 {
		return fmt.Errorf("config: peak_window_seconds must be positive, got %d", c.PeakWindowSeconds)
	}
	if c.PollIntervalSeconds <= 0 || c.TickIntervalSeconds <= 0 ||
		c.PublishIntervalSeconds <= 0 || c.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("config: intervals must be positive")
	}
	return nil
}

// PollInterval возвращает интервал опроса сенсоров
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// TickInterval возвращает интервал записи в историю
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// PublishInterval возвращает интервал публикации в MQTT
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.PublishIntervalSeconds) * time.Second
}

// RefreshInterval возвращает интервал обновления Prometheus-гейджей
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// getEnv получает переменную окружения со значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool получает булеву переменную окружения
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
