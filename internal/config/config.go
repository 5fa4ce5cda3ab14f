// Package config loads the service configuration from configs/config.yml,
// an optional .env file and PVI_* environment variables, in increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"pv_informant/internal/decision"
	"pv_informant/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PVI"

	WorkerStoreSQLite = "sqlite"
	WorkerStoreMemory = "memory"
)

type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	DB        DBConfig                 `mapstructure:"db"`
	Storage   StorageConfig            `mapstructure:"storage"`
	Policy    decision.ThresholdPolicy `mapstructure:"thresholds"`
	Scheduler SchedulerConfig          `mapstructure:"scheduler"`
	Wake      WakeConfig               `mapstructure:"wake"`
	Registry  RegistryConfig           `mapstructure:"registry"`
	Query     QueryConfig              `mapstructure:"query"`
	Auth      AuthConfig               `mapstructure:"auth"`
	MQTT      MQTTConfig               `mapstructure:"mqtt"`
	Log       LogConfig                `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig selects where registered workers live. Readings and activity
// always go to SQLite.
type StorageConfig struct {
	Workers string `mapstructure:"workers"`
}

type SchedulerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Freshness time.Duration `mapstructure:"freshness"`
}

type WakeConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
	Broadcast string        `mapstructure:"broadcast"`
	Port      int           `mapstructure:"port"`
	Pacing    time.Duration `mapstructure:"pacing"`
}

type RegistryConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type QueryConfig struct {
	MaxRange time.Duration `mapstructure:"max_range"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
	QoS      byte   `mapstructure:"qos"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.path", "informant.db")
	v.SetDefault("storage.workers", WorkerStoreSQLite)

	v.SetDefault("thresholds.battery_low", 12.0)
	v.SetDefault("thresholds.battery_high", 13.2)
	v.SetDefault("thresholds.current_low", 0.5)
	v.SetDefault("thresholds.current_high", 2.0)

	v.SetDefault("scheduler.interval", 600*time.Second)
	v.SetDefault("scheduler.freshness", 30*time.Minute)

	v.SetDefault("wake.enabled", true)
	v.SetDefault("wake.cooldown", 5*time.Minute)
	v.SetDefault("wake.broadcast", "255.255.255.255")
	v.SetDefault("wake.port", 9)
	v.SetDefault("wake.pacing", 10*time.Millisecond)

	v.SetDefault("registry.stale_after", 10*time.Minute)
	v.SetDefault("query.max_range", 20*24*time.Hour)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "pv-informant")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "pv/readings")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads config.yml from the first of dirs that has one (default
// "configs"). A missing file or .env is not an error: defaults and the
// environment still apply.
func Load(dirs ...string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: load .env: %w", models.ErrConfig, err)
	}

	v := viper.New()
	setDefaults(v)

	if len(dirs) == 0 {
		dirs = []string{"configs"}
	}
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetConfigName("config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%w: read config: %w", models.ErrConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode config: %w", models.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at runtime.
// Every returned error wraps models.ErrConfig.
func (c Config) Validate() error {
	if _, err := decision.NewThresholdPolicy(c.Policy.BatteryLow, c.Policy.BatteryHigh, c.Policy.CurrentLow, c.Policy.CurrentHigh); err != nil {
		return err
	}

	var problems []string
	if strings.TrimSpace(c.Server.Port) == "" {
		problems = append(problems, "server.port is empty")
	}
	if c.DB.Path == "" {
		problems = append(problems, "db.path is empty")
	}
	switch c.Storage.Workers {
	case WorkerStoreSQLite, WorkerStoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.workers must be %q or %q, got %q", WorkerStoreSQLite, WorkerStoreMemory, c.Storage.Workers))
	}
	for key, d := range map[string]time.Duration{
		"scheduler.interval":   c.Scheduler.Interval,
		"scheduler.freshness":  c.Scheduler.Freshness,
		"registry.stale_after": c.Registry.StaleAfter,
		"auth.token_ttl":       c.Auth.TokenTTL,
	} {
		if d <= 0 {
			problems = append(problems, key+" must be positive")
		}
	}
	if c.Wake.Cooldown < 0 || c.Wake.Pacing < 0 || c.Query.MaxRange < 0 {
		problems = append(problems, "wake.cooldown, wake.pacing and query.max_range must not be negative")
	}
	// ticks arrive with some delay, so two consecutive ticks can be less than
	// one interval apart; the cooldown must leave room for that
	if c.Wake.Enabled && c.Wake.Cooldown > c.Scheduler.Interval/2 {
		problems = append(problems, fmt.Sprintf("wake.cooldown %s must be at most half of scheduler.interval %s", c.Wake.Cooldown, c.Scheduler.Interval))
	}
	if c.Wake.Enabled && (c.Wake.Port <= 0 || c.Wake.Port > 65535) {
		problems = append(problems, fmt.Sprintf("wake.port %d out of range", c.Wake.Port))
	}
	if c.Auth.SigningKey == "" {
		problems = append(problems, "auth.signing_key is empty (set PVI_AUTH_SIGNING_KEY)")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker == "" || c.MQTT.Topic == "") {
		problems = append(problems, "mqtt.broker and mqtt.topic are required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		problems = append(problems, fmt.Sprintf("mqtt.qos %d out of range", c.MQTT.QoS))
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("%w: %s", models.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}
