package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON journal backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds in-memory SQLite backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds live journal stream settings
type WebSocketConfig struct {
	URL               string `json:"url" mapstructure:"url"`
	Secret            string `json:"secret" mapstructure:"secret"`
	ReconnectAttempts int    `json:"reconnectAttempts" mapstructure:"reconnectAttempts"`
	// ReconnectDelay is the first reconnect backoff; it doubles per attempt.
	ReconnectDelay time.Duration `json:"reconnectDelay" mapstructure:"reconnectDelay"`
	QueueSize      int           `json:"queueSize" mapstructure:"queueSize"`
}

// StorageConfig selects and tunes the journal backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry exporter settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
	// Metrics dumps dispatcher and cooldown instruments next to the OTel log.
	Metrics        bool          `json:"metrics" mapstructure:"metrics"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
}

// SimConfig drives the headless runner
type SimConfig struct {
	TickRate float64       `json:"tickRate" mapstructure:"tickRate"`
	Duration time.Duration `json:"duration" mapstructure:"duration"`
	Seed     uint64        `json:"seed" mapstructure:"seed"`
	Scenario string        `json:"scenario" mapstructure:"scenario"`
	// Realtime paces ticks on the wall clock instead of running flat out, and
	// runs cooldowns on the wall clock.
	Realtime bool `json:"realtime" mapstructure:"realtime"`
	// TimeScale is game seconds per real second. Cooldowns ignore it.
	TimeScale float64 `json:"timeScale" mapstructure:"timeScale"`
}

// CatalogConfig points at the tuning data overlay
type CatalogConfig struct {
	Path  string `json:"path" mapstructure:"path"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// UploadConfig holds journal archive upload settings
type UploadConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	APIKey  string `json:"apiKey" mapstructure:"apiKey"`
	Tag     string `json:"tag" mapstructure:"tag"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName("enrichments.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./simlogs")

	viper.SetDefault("sim.tickRate", 60.0)
	viper.SetDefault("sim.duration", "30s")
	viper.SetDefault("sim.seed", 1)
	viper.SetDefault("sim.scenario", "")
	viper.SetDefault("sim.realtime", false)
	viper.SetDefault("sim.timeScale", 1.0)

	viper.SetDefault("catalog.path", "")
	viper.SetDefault("catalog.watch", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./journals")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./journals/journal.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/journal")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.reconnectAttempts", 10)
	viper.SetDefault("storage.websocket.reconnectDelay", "1s")
	viper.SetDefault("storage.websocket.queueSize", 10000)

	viper.SetDefault("upload.enabled", false)
	viper.SetDefault("upload.url", "http://localhost:5000")
	viper.SetDefault("upload.apiKey", "")
	viper.SetDefault("upload.tag", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "enrichments")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "enrichments")
	viper.SetDefault("influx.bucket", "journal")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "imbue-sim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metrics", false)
	viper.SetDefault("otel.metricInterval", "1m")

	viper.SetDefault("monitor.interval", "5s")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStorageConfig returns the journal backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:               viper.GetString("storage.websocket.url"),
			Secret:            viper.GetString("storage.websocket.secret"),
			ReconnectAttempts: viper.GetInt("storage.websocket.reconnectAttempts"),
			ReconnectDelay:    viper.GetDuration("storage.websocket.reconnectDelay"),
			QueueSize:         viper.GetInt("storage.websocket.queueSize"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
		Metrics:        viper.GetBool("otel.metrics"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}

// GetSimConfig returns the runner settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickRate:  viper.GetFloat64("sim.tickRate"),
		Duration:  viper.GetDuration("sim.duration"),
		Seed:      viper.GetUint64("sim.seed"),
		Scenario:  viper.GetString("sim.scenario"),
		Realtime:  viper.GetBool("sim.realtime"),
		TimeScale: viper.GetFloat64("sim.timeScale"),
	}
}

// GetCatalogConfig returns the catalog overlay settings.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Path:  viper.GetString("catalog.path"),
		Watch: viper.GetBool("catalog.watch"),
	}
}

// GetUploadConfig returns the journal archive upload settings.
func GetUploadConfig() UploadConfig {
	return UploadConfig{
		Enabled: viper.GetBool("upload.enabled"),
		URL:     viper.GetString("upload.url"),
		APIKey:  viper.GetString("upload.apiKey"),
		Tag:     viper.GetString("upload.tag"),
	}
}
