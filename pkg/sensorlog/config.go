package sensorlog

import (
	"github.com/ghalamif/SensorLog/internal/adapters/opcua"
	"github.com/ghalamif/SensorLog/internal/app/config"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls dispatch and queue thresholds.
	Policy = ports.Policy
	// BrokerConfig selects and addresses the network broker.
	BrokerConfig = config.BrokerConfig
	// JournalConfig sizes the local journal.
	JournalConfig = config.JournalConfig
	// DispatchConfig bounds send, drain and queue behaviour.
	DispatchConfig = config.DispatchConfig
	// LoggingConfig configures the process logger.
	LoggingConfig = config.LoggingConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// MachineConfig holds vocabulary defaults for collected readings.
	MachineConfig = config.MachineConfig
	// OPCUAConfig holds connection + node details.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig maps a monitored node to a sensor.
	OPCUANodeConfig = opcua.NodeConfig
)

// LoadConfig loads YAML from disk and applies SENSORLOG_* environment
// overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
