package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// RefreshPerMinute bounds POST /refresh calls per client.
		RefreshPerMinute int `yaml:"refresh_per_minute" default:"30" validate:"gte=0"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Data struct {
		RawDir       string `yaml:"raw_dir" default:"data/raw"`
		ProcessedDir string `yaml:"processed_dir" default:"data/processed"`
	} `yaml:"data"`
	Finnhub struct {
		APIKey  string        `yaml:"api_key" validate:"required"`
		BaseURL string        `yaml:"base_url" default:"https://finnhub.io/api/v1"`
		Freq    string        `yaml:"freq" default:"annual" validate:"oneof=annual quarterly"`
		Timeout time.Duration `yaml:"timeout" default:"20s"`
	} `yaml:"finnhub"`
	Store struct {
		// Raw is csv or clickhouse.
		Raw string `yaml:"raw" default:"csv" validate:"oneof=csv clickhouse"`
		// Kpi is csv, memory, redis, layered or clickhouse.
		Kpi string `yaml:"kpi" default:"csv" validate:"oneof=csv memory redis layered clickhouse"`
	} `yaml:"store"`
	Redis struct {
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"finkpi:"`
	} `yaml:"redis"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"finkpi"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		EventsTopic  string        `yaml:"events_topic" default:"kpi.refreshed"`
		RequestTopic string        `yaml:"request_topic" default:"kpi.refresh.requests"`
		GroupID      string        `yaml:"group_id" default:"finkpi"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		// Consume enables the refresh-request consumer.
		Consume bool `yaml:"consume"`
	} `yaml:"kafka"`
	Universe Universe `yaml:"universe"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := decode(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path yields the defaults plus the environment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := decode(path)
	if err != nil {
		return nil, err
	}
	applyEnv(c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse applies defaults, decodes b over them and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decodeBytes(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(path string) (*Config, error) {
	if path == "" {
		return decodeBytes(nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decodeBytes(b)
}

func decodeBytes(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Universe) == 0 {
		c.Universe = DefaultUniverse()
	}
	return &c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("KPI_STORE"); v != "" {
		c.Store.Kpi = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Data.RawDir = strings.TrimRight(v, "/") + "/raw"
		c.Data.ProcessedDir = strings.TrimRight(v, "/") + "/processed"
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return c.Universe.validate()
}
