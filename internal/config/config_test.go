package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pv_informant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("PVI_AUTH_SIGNING_KEY", "k")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, WorkerStoreSQLite, cfg.Storage.Workers)
	assert.Equal(t, 600*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Freshness)
	assert.True(t, cfg.Wake.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Wake.Cooldown)
	assert.Equal(t, "255.255.255.255", cfg.Wake.Broadcast)
	assert.Equal(t, 9, cfg.Wake.Port)
	assert.Equal(t, 10*time.Millisecond, cfg.Wake.Pacing)
	assert.Equal(t, 10*time.Minute, cfg.Registry.StaleAfter)
	assert.Equal(t, 20*24*time.Hour, cfg.Query.MaxRange)
	assert.Equal(t, 12.0, cfg.Policy.BatteryLow)
	assert.Equal(t, 2.0, cfg.Policy.CurrentHigh)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
thresholds:
  battery_low: 24.0
  battery_high: 26.4
  current_low: 1
  current_high: 4
scheduler:
  interval: 1m
wake:
  enabled: true
  cooldown: 30s
storage:
  workers: memory
auth:
  signing_key: from-file
`)
	t.Setenv("PVI_WAKE_ENABLED", "false")
	t.Setenv("PVI_AUTH_SIGNING_KEY", "from-env")
	t.Setenv("PVI_QUERY_MAX_RANGE", "72h")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 24.0, cfg.Policy.BatteryLow)
	assert.Equal(t, 26.4, cfg.Policy.BatteryHigh)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 30*time.Second, cfg.Wake.Cooldown)
	assert.Equal(t, WorkerStoreMemory, cfg.Storage.Workers)
	assert.False(t, cfg.Wake.Enabled)
	assert.Equal(t, "from-env", cfg.Auth.SigningKey)
	assert.Equal(t, 72*time.Hour, cfg.Query.MaxRange)
}

func TestLoad_InvalidThresholds(t *testing.T) {
	dir := writeConfig(t, `
thresholds:
  battery_low: 14
  battery_high: 13
auth:
  signing_key: k
`)
	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfig)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := writeConfig(t, "server: [unclosed\n")
	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfig)
}

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: "8080"},
		DB:        DBConfig{Path: "x.db"},
		Storage:   StorageConfig{Workers: WorkerStoreSQLite},
		Scheduler: SchedulerConfig{Interval: time.Minute, Freshness: time.Minute},
		Wake:      WakeConfig{Enabled: true, Port: 9},
		Registry:  RegistryConfig{StaleAfter: time.Minute},
		Auth:      AuthConfig{SigningKey: "k", TokenTTL: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(c *Config){
		"empty port":                   func(c *Config) { c.Server.Port = " " },
		"unknown store":                func(c *Config) { c.Storage.Workers = "redis" },
		"zero interval":                func(c *Config) { c.Scheduler.Interval = 0 },
		"negative pacing":              func(c *Config) { c.Wake.Pacing = -time.Millisecond },
		"bad wake port":                func(c *Config) { c.Wake.Port = 70000 },
		"no signing key":               func(c *Config) { c.Auth.SigningKey = "" },
		"mqtt no broker":               func(c *Config) { c.MQTT = MQTTConfig{Enabled: true, Topic: "t"} },
		"qos out of range":             func(c *Config) { c.MQTT.QoS = 3 },
		"cooldown equals interval":     func(c *Config) { c.Wake.Cooldown = c.Scheduler.Interval },
		"cooldown above half interval": func(c *Config) { c.Wake.Cooldown = c.Scheduler.Interval/2 + time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), models.ErrConfig)
		})
	}

	// wake port and cooldown are irrelevant while the loop is disabled
	c := validConfig()
	c.Wake = WakeConfig{Enabled: false, Cooldown: time.Hour}
	assert.NoError(t, c.Validate())

	c = validConfig()
	c.Wake.Cooldown = c.Scheduler.Interval / 2
	assert.NoError(t, c.Validate())
}
