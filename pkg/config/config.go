// Package config provides configuration management for the metrics SDK.
//
// Configuration is loaded from multiple sources in this order:
// 1. Configuration files (YAML)
// 2. Environment variables (OTELMETRIC_ prefix plus standard OTEL_ keys)
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/brokle-ai/otelmetric/pkg/otlp"
	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// Config represents the complete SDK configuration.
type Config struct {
	Exporter ExporterConfig `mapstructure:"exporter"`
	Reader   ReaderConfig   `mapstructure:"reader"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ExporterConfig contains transport settings.
type ExporterConfig struct {
	// Endpoint is the collector address (URL for HTTP, host:port for gRPC).
	Endpoint string `mapstructure:"endpoint"`
	// Protocol selects the transport: grpc, http/protobuf, http/json or
	// http/ndjson.
	Protocol string `mapstructure:"protocol"`
}

// Validate validates exporter configuration.
func (ec *ExporterConfig) Validate() error {
	switch ec.Protocol {
	case "grpc", "http/protobuf", "http/json", "http/ndjson":
	default:
		return sdkerrors.Newf(sdkerrors.CodeConfiguration,
			"unsupported exporter protocol %q", ec.Protocol)
	}
	if ec.Endpoint == "" {
		return sdkerrors.New(sdkerrors.CodeConfiguration, "exporter endpoint is required")
	}
	return nil
}

// ContentType maps the protocol onto the transport content type.
func (ec *ExporterConfig) ContentType() string {
	switch ec.Protocol {
	case "http/json":
		return otlp.ContentTypeJSON
	case "http/ndjson":
		return otlp.ContentTypeNDJSON
	default:
		return otlp.ContentTypeProtobuf
	}
}

// ReaderConfig contains periodic reader settings.
type ReaderConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Validate validates reader configuration.
func (rc *ReaderConfig) Validate() error {
	if rc.Interval <= 0 {
		return sdkerrors.Newf(sdkerrors.CodeConfiguration,
			"reader interval must be positive, got %s", rc.Interval)
	}
	if rc.Timeout <= 0 {
		return sdkerrors.Newf(sdkerrors.CodeConfiguration,
			"reader timeout must be positive, got %s", rc.Timeout)
	}
	if rc.Timeout > rc.Interval {
		return sdkerrors.Newf(sdkerrors.CodeConfiguration,
			"reader timeout %s exceeds interval %s", rc.Timeout, rc.Interval)
	}
	return nil
}

// LoggingConfig contains self-diagnostics settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the optional file at path and the
// environment.
func Load(path string) (*Config, error) {
	// A missing .env file is fine; explicit environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("exporter.endpoint", "http://localhost:4318/v1/metrics")
	v.SetDefault("exporter.protocol", "http/protobuf")
	v.SetDefault("reader.interval", time.Minute)
	v.SetDefault("reader.timeout", 30*time.Second)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("OTELMETRIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Standard OpenTelemetry environment keys take precedence over defaults.
	_ = v.BindEnv("exporter.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTELMETRIC_EXPORTER_ENDPOINT")
	_ = v.BindEnv("exporter.protocol", "OTEL_EXPORTER_OTLP_PROTOCOL", "OTELMETRIC_EXPORTER_PROTOCOL")
	_ = v.BindEnv("reader.interval", "OTEL_METRIC_EXPORT_INTERVAL", "OTELMETRIC_READER_INTERVAL")
	_ = v.BindEnv("reader.timeout", "OTEL_METRIC_EXPORT_TIMEOUT", "OTELMETRIC_READER_TIMEOUT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, sdkerrors.Wrap(err, sdkerrors.CodeConfiguration, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sdkerrors.Wrap(err, sdkerrors.CodeConfiguration, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates all sections.
func (c *Config) Validate() error {
	if err := c.Exporter.Validate(); err != nil {
		return err
	}
	return c.Reader.Validate()
}
