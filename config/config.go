package config

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Audit     AuditConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN string
}

type KafkaConfig struct {
	Brokers       []string
	EventTopic    string
	MirrorTopic   string
	ConsumerGroup string
}

// AuditConfig drives the audit pipeline. Invalid values fall back to
// documented defaults with a warning; configuration is never fatal.
type AuditConfig struct {
	MinLevel        string
	AsyncWrites     bool
	MaxQueueSize    int
	FlushIntervalMs int
	OverflowPolicy  string
	Redaction       RedactionConfig
	SpillFilePath   string
	Rotation        RotationConfig
	Performance     PerformanceConfig
}

type RedactionConfig struct {
	Enabled      bool
	CustomFields []string
}

// RotationConfig is parsed and validated but not consulted by the
// pipeline. Reserved for log rotation support.
type RotationConfig struct {
	MaxFileSizeMB int
	MaxFiles      int
	Compress      bool
}

// PerformanceConfig is parsed and validated but not consulted by the
// pipeline. Reserved for write throttling support.
type PerformanceConfig struct {
	SampleRate          float64
	MaxConcurrentWrites int
}

type SchedulerConfig struct {
	StatsSchedule string
}

const (
	DefaultMinLevel        = "INFO"
	DefaultMaxQueueSize    = 1000
	DefaultFlushIntervalMs = 1000
	MinFlushIntervalMs     = 100

	// OverflowDropIncoming drops the entry being enqueued when the queue
	// is full; OverflowDropOldest evicts the head instead.
	OverflowDropIncoming = "drop_incoming"
	OverflowDropOldest   = "drop_oldest"
)

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_AUDIT_EVENT_TOPIC", "audit_events")
	viper.SetDefault("KAFKA_AUDIT_MIRROR_TOPIC", "audit_log_mirror")
	viper.SetDefault("KAFKA_CONSUMER_GROUP", "audit_pipeline_group")
	viper.SetDefault("AUDIT_MIN_LOG_LEVEL", DefaultMinLevel)
	viper.SetDefault("AUDIT_ASYNC_WRITES", true)
	viper.SetDefault("AUDIT_MAX_QUEUE_SIZE", DefaultMaxQueueSize)
	viper.SetDefault("AUDIT_FLUSH_INTERVAL_MS", DefaultFlushIntervalMs)
	viper.SetDefault("AUDIT_OVERFLOW_POLICY", OverflowDropIncoming)
	viper.SetDefault("AUDIT_REDACTION_ENABLED", true)
	viper.SetDefault("AUDIT_REDACTION_CUSTOM_FIELDS", "")
	viper.SetDefault("AUDIT_SPILL_FILE_PATH", "./audit_spill.json")
	viper.SetDefault("AUDIT_ROTATION_MAX_FILE_SIZE_MB", 100)
	viper.SetDefault("AUDIT_ROTATION_MAX_FILES", 10)
	viper.SetDefault("AUDIT_ROTATION_COMPRESS", false)
	viper.SetDefault("AUDIT_PERFORMANCE_SAMPLE_RATE", 1.0)
	viper.SetDefault("AUDIT_PERFORMANCE_MAX_CONCURRENT_WRITES", 4)
	viper.SetDefault("SCHEDULER_STATS_SCHEDULE", "*/30 * * * * *")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config
	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.DSN = viper.GetString("DATABASE_DSN")

	// --- Kafka ---
	brokers := viper.GetString("KAFKA_BROKERS")
	if brokers != "" {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}
	config.Kafka.EventTopic = viper.GetString("KAFKA_AUDIT_EVENT_TOPIC")
	config.Kafka.MirrorTopic = viper.GetString("KAFKA_AUDIT_MIRROR_TOPIC")
	config.Kafka.ConsumerGroup = viper.GetString("KAFKA_CONSUMER_GROUP")

	// --- Audit pipeline ---
	config.Audit.MinLevel = viper.GetString("AUDIT_MIN_LOG_LEVEL")
	config.Audit.AsyncWrites = viper.GetBool("AUDIT_ASYNC_WRITES")
	config.Audit.MaxQueueSize = viper.GetInt("AUDIT_MAX_QUEUE_SIZE")
	config.Audit.FlushIntervalMs = viper.GetInt("AUDIT_FLUSH_INTERVAL_MS")
	config.Audit.OverflowPolicy = viper.GetString("AUDIT_OVERFLOW_POLICY")
	config.Audit.Redaction.Enabled = viper.GetBool("AUDIT_REDACTION_ENABLED")
	customFields := viper.GetString("AUDIT_REDACTION_CUSTOM_FIELDS")
	if customFields != "" {
		fields := strings.Split(customFields, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		config.Audit.Redaction.CustomFields = fields
	}
	config.Audit.SpillFilePath = viper.GetString("AUDIT_SPILL_FILE_PATH")
	config.Audit.Rotation.MaxFileSizeMB = viper.GetInt("AUDIT_ROTATION_MAX_FILE_SIZE_MB")
	config.Audit.Rotation.MaxFiles = viper.GetInt("AUDIT_ROTATION_MAX_FILES")
	config.Audit.Rotation.Compress = viper.GetBool("AUDIT_ROTATION_COMPRESS")
	config.Audit.Performance.SampleRate = viper.GetFloat64("AUDIT_PERFORMANCE_SAMPLE_RATE")
	config.Audit.Performance.MaxConcurrentWrites = viper.GetInt("AUDIT_PERFORMANCE_MAX_CONCURRENT_WRITES")

	config.Scheduler.StatsSchedule = viper.GetString("SCHEDULER_STATS_SCHEDULE")

	config.Audit.Validate()

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}

// Validate normalizes the audit section in place, replacing invalid
// values with their defaults. It logs each correction and never fails.
func (c *AuditConfig) Validate() {
	level := strings.ToUpper(strings.TrimSpace(c.MinLevel))
	switch level {
	case "INFO", "WARN", "ERROR":
		c.MinLevel = level
	default:
		log.Warn().Str("min_log_level", c.MinLevel).Str("fallback", DefaultMinLevel).Msg("Invalid minimum log level, using default")
		c.MinLevel = DefaultMinLevel
	}

	if c.MaxQueueSize < 1 {
		log.Warn().Int("max_queue_size", c.MaxQueueSize).Int("fallback", DefaultMaxQueueSize).Msg("Invalid max queue size, using default")
		c.MaxQueueSize = DefaultMaxQueueSize
	}

	if c.FlushIntervalMs <= 0 {
		log.Warn().Int("flush_interval_ms", c.FlushIntervalMs).Int("fallback", DefaultFlushIntervalMs).Msg("Invalid flush interval, using default")
		c.FlushIntervalMs = DefaultFlushIntervalMs
	} else if c.FlushIntervalMs < MinFlushIntervalMs {
		log.Warn().Int("flush_interval_ms", c.FlushIntervalMs).Int("floor", MinFlushIntervalMs).Msg("Flush interval below floor, clamping")
		c.FlushIntervalMs = MinFlushIntervalMs
	}

	switch c.OverflowPolicy {
	case OverflowDropIncoming, OverflowDropOldest:
	default:
		log.Warn().Str("overflow_policy", c.OverflowPolicy).Str("fallback", OverflowDropIncoming).Msg("Invalid overflow policy, using default")
		c.OverflowPolicy = OverflowDropIncoming
	}

	if c.Rotation.MaxFileSizeMB < 1 {
		log.Warn().Int("max_file_size_mb", c.Rotation.MaxFileSizeMB).Msg("Invalid rotation file size, using default")
		c.Rotation.MaxFileSizeMB = 100
	}
	if c.Rotation.MaxFiles < 1 {
		log.Warn().Int("max_files", c.Rotation.MaxFiles).Msg("Invalid rotation file count, using default")
		c.Rotation.MaxFiles = 10
	}
	if c.Performance.SampleRate <= 0 || c.Performance.SampleRate > 1 {
		log.Warn().Float64("sample_rate", c.Performance.SampleRate).Msg("Invalid performance sample rate, using default")
		c.Performance.SampleRate = 1.0
	}
	if c.Performance.MaxConcurrentWrites < 1 {
		log.Warn().Int("max_concurrent_writes", c.Performance.MaxConcurrentWrites).Msg("Invalid max concurrent writes, using default")
		c.Performance.MaxConcurrentWrites = 4
	}
}
