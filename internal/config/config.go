package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTIssuer       string        `mapstructure:"JWT_ISSUER"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`

	StorageDir    string `mapstructure:"STORAGE_DIR"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	// Native push backend. Empty brokers selects the browser backend.
	PushBrokers     string        `mapstructure:"PUSH_BROKERS"`
	PushTopic       string        `mapstructure:"PUSH_TOPIC"`
	PushEventsTopic string        `mapstructure:"PUSH_EVENTS_TOPIC"`
	PushRetries     int           `mapstructure:"PUSH_RETRIES"`
	PushBackoff     time.Duration `mapstructure:"PUSH_BACKOFF"`

	TaxRate float64 `mapstructure:"TAX_RATE"`

	RealtimeChannel string `mapstructure:"REALTIME_CHANNEL"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	// Unmarshal only sees keys viper knows about, so env-only keys need an empty default.
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("PUSH_BROKERS", "")

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_ISSUER", "techsupport-pro")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 50)
	v.SetDefault("STORAGE_DIR", "./storage")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("PUSH_TOPIC", "push-outbox")
	v.SetDefault("PUSH_EVENTS_TOPIC", "push-events")
	v.SetDefault("PUSH_RETRIES", 3)
	v.SetDefault("PUSH_BACKOFF", "2s")
	v.SetDefault("TAX_RATE", 0)
	v.SetDefault("REALTIME_CHANNEL", "table_changes")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Brokers splits PUSH_BROKERS on commas.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.PushBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
