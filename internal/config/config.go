// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	PostgresURL    string
	PostgresSchema string
	MigrationsPath string
	KafkaBrokers   []string
	OrderTopic     string
	RedisURL       string

	OrdersServiceURL  string
	CatalogServiceURL string
	EmailServiceURL   string
	AuthProviderURL   string

	// PublicBaseURL is where customers reach the storefront. Relative links
	// such as uploaded image references are resolved against it.
	PublicBaseURL *url.URL

	AdminEmails []string

	SessionTTL      time.Duration
	SessionCacheTTL time.Duration
	ChannelTimeout  time.Duration

	SMTP      SMTPConfig
	Twilio    TwilioConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	APIURL     string
}

type StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UsePathStyle      bool
	PresignExpiration time.Duration
}

type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
	Enabled        bool
}

// Load reads the environment for the named service. defaultPort is used when
// PORT is unset.
func Load(service, defaultPort string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("env", "production")
	v.SetDefault("port", defaultPort)
	v.SetDefault("log_level", "info")
	v.SetDefault("postgres_schema", "storefront")
	v.SetDefault("migrations_path", "file://migrations")
	v.SetDefault("order_topic", "order.events")
	v.SetDefault("session_ttl", 7*24*time.Hour)
	v.SetDefault("session_cache_ttl", 5*time.Minute)
	v.SetDefault("notify_channel_timeout", 10*time.Second)
	v.SetDefault("twilio_api_url", "https://api.twilio.com/2010-04-01")
	v.SetDefault("storage_region", "us-east-1")
	v.SetDefault("storage_use_path_style", true)
	v.SetDefault("storage_presign_expiration", 15*time.Minute)
	v.SetDefault("otel_enabled", true)
	v.SetDefault("otel_exporter_otlp_endpoint", "localhost:4317")
	v.SetDefault("service_version", "0.1.0")
	v.SetDefault("public_base_url", "http://localhost:8080")

	cfg := &Config{
		Env:               v.GetString("env"),
		Port:              v.GetString("port"),
		LogLevel:          v.GetString("log_level"),
		PostgresURL:       v.GetString("postgres_url"),
		PostgresSchema:    v.GetString("postgres_schema"),
		MigrationsPath:    v.GetString("migrations_path"),
		KafkaBrokers:      splitList(v.GetString("kafka_brokers")),
		OrderTopic:        v.GetString("order_topic"),
		RedisURL:          v.GetString("redis_url"),
		OrdersServiceURL:  v.GetString("orders_service_url"),
		CatalogServiceURL: v.GetString("catalog_service_url"),
		EmailServiceURL:   v.GetString("email_service_url"),
		AuthProviderURL:   v.GetString("auth_provider_url"),
		AdminEmails:       splitList(strings.ToLower(v.GetString("admin_emails"))),
		SessionTTL:        v.GetDuration("session_ttl"),
		SessionCacheTTL:   v.GetDuration("session_cache_ttl"),
		ChannelTimeout:    v.GetDuration("notify_channel_timeout"),
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetString("smtp_port"),
			Username: v.GetString("smtp_user"),
			Password: v.GetString("smtp_pass"),
			From:     v.GetString("smtp_from"),
		},
		Twilio: TwilioConfig{
			AccountSID: v.GetString("twilio_account_sid"),
			AuthToken:  v.GetString("twilio_auth_token"),
			From:       v.GetString("twilio_whatsapp_from"),
			APIURL:     v.GetString("twilio_api_url"),
		},
		Storage: StorageConfig{
			Endpoint:          v.GetString("storage_endpoint"),
			Region:            v.GetString("storage_region"),
			Bucket:            v.GetString("storage_bucket"),
			AccessKey:         v.GetString("storage_access_key"),
			SecretKey:         v.GetString("storage_secret_key"),
			UsePathStyle:      v.GetBool("storage_use_path_style"),
			PresignExpiration: v.GetDuration("storage_presign_expiration"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:    service,
			ServiceVersion: v.GetString("service_version"),
			OTLPEndpoint:   v.GetString("otel_exporter_otlp_endpoint"),
			Enabled:        v.GetBool("otel_enabled"),
		},
	}

	if cfg.ChannelTimeout <= 0 {
		return nil, fmt.Errorf("NOTIFY_CHANNEL_TIMEOUT must be positive, got %s", cfg.ChannelTimeout)
	}

	base, err := url.Parse(v.GetString("public_base_url"))
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("PUBLIC_BASE_URL must be an absolute url, got %q", v.GetString("public_base_url"))
	}
	cfg.PublicBaseURL = base

	return cfg, nil
}

// Require returns an error naming an empty setting, if any.
func Require(settings map[string]string) error {
	for name, value := range settings {
		if value == "" {
			return fmt.Errorf("%s environment variable is required", name)
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
