package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"streampay-audit-backend/config"
)

func validAuditConfig() config.AuditConfig {
	return config.AuditConfig{
		MinLevel:        "WARN",
		MaxQueueSize:    500,
		FlushIntervalMs: 2000,
		OverflowPolicy:  config.OverflowDropOldest,
		Rotation:        config.RotationConfig{MaxFileSizeMB: 50, MaxFiles: 5},
		Performance:     config.PerformanceConfig{SampleRate: 0.5, MaxConcurrentWrites: 2},
	}
}

func TestAuditConfigValidate_ValidValuesKept(t *testing.T) {
	cfg := validAuditConfig()
	cfg.Validate()

	assert.Equal(t, "WARN", cfg.MinLevel)
	assert.Equal(t, 500, cfg.MaxQueueSize)
	assert.Equal(t, 2000, cfg.FlushIntervalMs)
	assert.Equal(t, config.OverflowDropOldest, cfg.OverflowPolicy)
}

func TestAuditConfigValidate_MinLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Lowercase Normalized", input: "warn", expected: "WARN"},
		{name: "Whitespace Trimmed", input: "  ERROR ", expected: "ERROR"},
		{name: "Unknown Falls Back", input: "VERBOSE", expected: config.DefaultMinLevel},
		{name: "Empty Falls Back", input: "", expected: config.DefaultMinLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAuditConfig()
			cfg.MinLevel = tt.input
			cfg.Validate()
			assert.Equal(t, tt.expected, cfg.MinLevel)
		})
	}
}

func TestAuditConfigValidate_QueueSize(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "Zero Falls Back", input: 0, expected: config.DefaultMaxQueueSize},
		{name: "Negative Falls Back", input: -10, expected: config.DefaultMaxQueueSize},
		{name: "One Is Valid", input: 1, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAuditConfig()
			cfg.MaxQueueSize = tt.input
			cfg.Validate()
			assert.Equal(t, tt.expected, cfg.MaxQueueSize)
		})
	}
}

func TestAuditConfigValidate_FlushInterval(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "Zero Falls Back", input: 0, expected: config.DefaultFlushIntervalMs},
		{name: "Negative Falls Back", input: -500, expected: config.DefaultFlushIntervalMs},
		{name: "Below Floor Clamped", input: 50, expected: config.MinFlushIntervalMs},
		{name: "Floor Is Valid", input: config.MinFlushIntervalMs, expected: config.MinFlushIntervalMs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAuditConfig()
			cfg.FlushIntervalMs = tt.input
			cfg.Validate()
			assert.Equal(t, tt.expected, cfg.FlushIntervalMs)
		})
	}
}

func TestAuditConfigValidate_OverflowPolicy(t *testing.T) {
	cfg := validAuditConfig()
	cfg.OverflowPolicy = "drop_everything"
	cfg.Validate()
	assert.Equal(t, config.OverflowDropIncoming, cfg.OverflowPolicy)
}

func TestAuditConfigValidate_ReservedSections(t *testing.T) {
	cfg := validAuditConfig()
	cfg.Rotation = config.RotationConfig{MaxFileSizeMB: 0, MaxFiles: -1}
	cfg.Performance = config.PerformanceConfig{SampleRate: 1.5, MaxConcurrentWrites: 0}
	cfg.Validate()

	assert.Equal(t, 100, cfg.Rotation.MaxFileSizeMB)
	assert.Equal(t, 10, cfg.Rotation.MaxFiles)
	assert.Equal(t, 1.0, cfg.Performance.SampleRate)
	assert.Equal(t, 4, cfg.Performance.MaxConcurrentWrites)
}
