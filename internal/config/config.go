// Package config loads process configuration from the environment.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	widgetModel "github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/store"
)

// Config aggregates every configuration section.
type Config struct {
	Server  ServerConfig
	Backend ServerConfig
	Log     LogConfig
	Widget  WidgetConfig
	Store   StoreConfig
	AI      AIConfig
}

// Load reads configuration from environment variables. Callers load .env
// beforehand if they want one.
func Load() (*Config, error) {
	server, err := loadServerConfig("PORT", "8080")
	if err != nil {
		return nil, err
	}

	backend, err := loadServerConfig("BACKEND_PORT", "8000")
	if err != nil {
		return nil, err
	}

	storeCfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Backend: backend,
		Log:     loadLogConfig(),
		Widget:  loadWidgetConfig(),
		Store:   storeCfg,
		AI:      ai,
	}, nil
}

// ServerConfig describes one HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig(key, defaultPort string) (ServerConfig, error) {
	port := getEnvOrDefault(key, defaultPort)

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are taken as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid %s value: %q", key, port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "auto"),
	}
}

// WidgetConfig holds deployment-level widget settings.
type WidgetConfig struct {
	DefaultAPIURL string
	HostPage      string
	HostElementID string
}

// Defaults returns resolver defaults with the deployment's API URL applied.
func (c WidgetConfig) Defaults() widgetModel.Defaults {
	d := widgetModel.BuiltinDefaults()
	if c.DefaultAPIURL != "" {
		d.APIBaseURL = c.DefaultAPIURL
	}
	return d
}

func loadWidgetConfig() WidgetConfig {
	return WidgetConfig{
		DefaultAPIURL: getEnvOrDefault("WIDGET_DEFAULT_API_URL", widgetModel.DefaultAPIBaseURL),
		HostPage:      getEnvOrDefault("WIDGET_HOST_PAGE", ""),
		HostElementID: getEnvOrDefault("WIDGET_HOST_ELEMENT_ID", "botura-chat-widget"),
	}
}

// StoreConfig selects where conversation identities persist.
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	RedisPrefix string
}

// Options maps the configuration onto store.Options.
func (c StoreConfig) Options() store.Options {
	return store.Options{
		Driver:     c.Driver,
		SQLitePath: c.SQLitePath,
		Redis: store.RedisOptions{
			Addr:   c.RedisAddr,
			DB:     c.RedisDB,
			Prefix: c.RedisPrefix,
		},
	}
}

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", store.DriverSQLite))
	switch driver {
	case store.DriverMemory, store.DriverSQLite, store.DriverRedis:
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q", driver)
	}

	db := 0
	if override, err := parseOptionalIntEnv("STORE_REDIS_DB"); err != nil {
		return StoreConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return StoreConfig{}, fmt.Errorf("invalid STORE_REDIS_DB value %d", *override)
		}
		db = *override
	}

	return StoreConfig{
		Driver:      driver,
		SQLitePath:  getEnvOrDefault("STORE_SQLITE_PATH", "./data/widget.db"),
		RedisAddr:   getEnvOrDefault("STORE_REDIS_ADDR", "localhost:6379"),
		RedisDB:     db,
		RedisPrefix: getEnvOrDefault("STORE_REDIS_PREFIX", "botura:"),
	}, nil
}

// AIConfig describes the LLM used by the development backend.
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	HistoryLimit int
}

// Enabled reports whether credentials and a model were provided.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY and Model, or ARK_ACCESS_KEY and ARK_SECRET_KEY")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	history := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		history = max(*override, 1)
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("Model")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		HistoryLimit: history,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
