package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/SensorLog/internal/adapters/broker"
	"github.com/ghalamif/SensorLog/internal/adapters/journal"
	"github.com/ghalamif/SensorLog/internal/adapters/opcua"
	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SENSORLOG"

type Config struct {
	Broker   BrokerConfig   `yaml:"broker"`
	Journal  JournalConfig  `yaml:"journal"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Machine  MachineConfig  `yaml:"machine"`
	OPCUA    opcua.Config   `yaml:"opcua"`
}

type BrokerConfig struct {
	// Enabled defaults to true; false keeps records in the journal only.
	Enabled        *bool         `yaml:"enabled"`
	Kind           string        `yaml:"kind"`
	Endpoints      []string      `yaml:"endpoints"`
	Topic          string        `yaml:"topic"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Token          string        `yaml:"token"`
	QoS            byte          `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RedisDB        int           `yaml:"redis_db"`
	StreamMaxLen   int64         `yaml:"stream_max_len"`
	Table          string        `yaml:"table"`
	CreateTable    bool          `yaml:"create_table"`
}

// JournalConfig sizes the local journal. A MaxBackups of -1 keeps no rotated
// generations; 0 means the default.
type JournalConfig struct {
	Dir        string `yaml:"dir"`
	FileName   string `yaml:"file_name"`
	MaxBytes   int64  `yaml:"max_bytes"`
	MaxBackups int    `yaml:"max_backups"`
}

type DispatchConfig struct {
	SendTimeout  time.Duration `yaml:"send_timeout"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	MaxQueueLen  int           `yaml:"max_queue_len"`
	MaxBatchSize int           `yaml:"max_batch_size"`
	IdleSleep    time.Duration `yaml:"idle_sleep"`
	OnQueueFull  string        `yaml:"on_queue_full"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Service string `yaml:"service"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// MachineConfig holds the vocabulary defaults stamped on collected readings,
// written with their external names ("Factory 1", "Manual Input", ...).
type MachineConfig struct {
	Channel       string `yaml:"channel"`
	DataCenter    string `yaml:"data_center"`
	Product       string `yaml:"product"`
	Status        string `yaml:"status"`
	InitialAction string `yaml:"initial_action"`
}

// Machine is MachineConfig parsed into vocabulary values. InitialAction is
// zero when unset.
type Machine struct {
	Channel       domain.Channel
	DataCenter    domain.DataCenter
	Product       domain.Product
	Status        domain.Status
	InitialAction domain.Action
}

// Load reads YAML from path, applies environment overrides and defaults and
// validates the result. An empty path starts from an empty document.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(EnvPrefix); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied and no
// environment overrides.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// LoadFromEnv overrides fields from <prefix>_BROKER_KIND,
// <prefix>_BROKER_ENDPOINTS (comma separated), <prefix>_BROKER_TOPIC,
// <prefix>_BROKER_ENABLED, <prefix>_JOURNAL_DIR and <prefix>_LOG_LEVEL.
func (c *Config) LoadFromEnv(prefix string) error {
	if kind := os.Getenv(prefix + "_BROKER_KIND"); kind != "" {
		c.Broker.Kind = kind
	}
	if eps := os.Getenv(prefix + "_BROKER_ENDPOINTS"); eps != "" {
		c.Broker.Endpoints = splitList(eps)
	}
	if topic := os.Getenv(prefix + "_BROKER_TOPIC"); topic != "" {
		c.Broker.Topic = topic
	}
	if enabled := os.Getenv(prefix + "_BROKER_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("%s_BROKER_ENABLED: %w", prefix, err)
		}
		c.Broker.Enabled = &v
	}
	if dir := os.Getenv(prefix + "_JOURNAL_DIR"); dir != "" {
		c.Journal.Dir = dir
	}
	if level := os.Getenv(prefix + "_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) ApplyDefaults() {
	if c.Broker.Enabled == nil {
		enabled := true
		c.Broker.Enabled = &enabled
	}
	if c.Broker.Kind == "" {
		c.Broker.Kind = broker.KindMQTT
	}
	c.Broker.Kind = strings.ToLower(c.Broker.Kind)
	if c.Broker.Topic == "" {
		c.Broker.Topic = "sensor_logs"
	}
	if len(c.Broker.Endpoints) == 0 {
		switch c.Broker.Kind {
		case broker.KindMQTT:
			c.Broker.Endpoints = []string{"tcp://localhost:1883"}
		case broker.KindRedis:
			c.Broker.Endpoints = []string{"localhost:6379"}
		case broker.KindNATS:
			c.Broker.Endpoints = []string{"nats://localhost:4222"}
		}
	}
	if c.Broker.ConnectTimeout <= 0 {
		c.Broker.ConnectTimeout = 10 * time.Second
	}

	if c.Journal.Dir == "" {
		c.Journal.Dir = "./logs"
	}
	if c.Journal.MaxBytes == 0 {
		c.Journal.MaxBytes = journal.DefaultMaxBytes
	}
	if c.Journal.MaxBackups == 0 {
		c.Journal.MaxBackups = journal.DefaultMaxBackups
	}

	if c.Dispatch.SendTimeout == 0 {
		c.Dispatch.SendTimeout = 5 * time.Second
	}
	if c.Dispatch.DrainTimeout == 0 {
		c.Dispatch.DrainTimeout = 10 * time.Second
	}
	if c.Dispatch.MaxQueueLen == 0 {
		c.Dispatch.MaxQueueLen = 10_000
	}
	if c.Dispatch.MaxBatchSize == 0 {
		c.Dispatch.MaxBatchSize = 500
	}
	if c.Dispatch.IdleSleep == 0 {
		c.Dispatch.IdleSleep = 5 * time.Millisecond
	}
	if c.Dispatch.OnQueueFull == "" {
		c.Dispatch.OnQueueFull = "block"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "sensorlog"
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	if c.Machine.Channel == "" {
		c.Machine.Channel = domain.ChannelSensor.String()
	}
	if c.Machine.DataCenter == "" {
		c.Machine.DataCenter = domain.DataCenterFactory1.String()
	}
	if c.Machine.Product == "" {
		c.Machine.Product = domain.ProductMachineMonitoring.String()
	}
	if c.Machine.Status == "" {
		c.Machine.Status = domain.StatusNormal.String()
	}

	if c.OPCUAEnabled() {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	kindOK := false
	for _, k := range broker.Kinds() {
		kindOK = kindOK || c.Broker.Kind == k
	}
	if !kindOK {
		return fmt.Errorf("broker.kind %q is not one of %s", c.Broker.Kind, strings.Join(broker.Kinds(), ", "))
	}
	if c.DispatchEnabled() && len(c.Broker.Endpoints) == 0 {
		return fmt.Errorf("broker.endpoints is required for %s", c.Broker.Kind)
	}
	if c.Broker.QoS > 2 {
		return fmt.Errorf("broker.qos must be 0, 1 or 2")
	}
	if c.Journal.Dir == "" {
		return errors.New("journal.dir is required")
	}
	if c.Journal.MaxBytes < 0 {
		return errors.New("journal.max_bytes must not be negative")
	}
	if c.Dispatch.MaxQueueLen <= 0 {
		return errors.New("dispatch.max_queue_len must be > 0")
	}
	if c.Dispatch.MaxBatchSize <= 0 {
		return errors.New("dispatch.max_batch_size must be > 0")
	}
	switch c.Dispatch.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("dispatch.on_queue_full %q is not one of block, drop, reject", c.Dispatch.OnQueueFull)
	}
	if _, err := c.Machine.Parse(); err != nil {
		return fmt.Errorf("machine: %w", err)
	}
	if c.OPCUAEnabled() {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	return nil
}

// OPCUAEnabled reports whether an OPC UA section was given.
func (c *Config) OPCUAEnabled() bool {
	return c.OPCUA.Endpoint != "" || len(c.OPCUA.Nodes) > 0
}

func (c *Config) DispatchEnabled() bool {
	return c.Broker.Enabled == nil || *c.Broker.Enabled
}

// Policy is the pipeline policy derived from the broker and dispatch sections.
func (c *Config) Policy() ports.Policy {
	return ports.Policy{
		DispatchEnabled: c.DispatchEnabled(),
		Topic:           c.Broker.Topic,
		SendTimeout:     c.Dispatch.SendTimeout,
		DrainTimeout:    c.Dispatch.DrainTimeout,
		MaxQueueLen:     c.Dispatch.MaxQueueLen,
		MaxBatchSize:    c.Dispatch.MaxBatchSize,
		IdleSleep:       c.Dispatch.IdleSleep,
		OnQueueFull:     c.Dispatch.OnQueueFull,
	}
}

func (c *Config) BrokerSettings() broker.Config {
	return broker.Config{
		Kind:           c.Broker.Kind,
		Endpoints:      c.Broker.Endpoints,
		ClientID:       c.Broker.ClientID,
		Username:       c.Broker.Username,
		Password:       c.Broker.Password,
		Token:          c.Broker.Token,
		QoS:            c.Broker.QoS,
		Retain:         c.Broker.Retain,
		ConnectTimeout: c.Broker.ConnectTimeout,
		DrainTimeout:   c.Dispatch.DrainTimeout,
		RedisDB:        c.Broker.RedisDB,
		StreamMaxLen:   c.Broker.StreamMaxLen,
		Table:          c.Broker.Table,
		CreateTable:    c.Broker.CreateTable,
	}
}

func (c *Config) JournalSettings() journal.Config {
	return journal.Config{
		Dir:        c.Journal.Dir,
		FileName:   c.Journal.FileName,
		MaxBytes:   c.Journal.MaxBytes,
		MaxBackups: c.Journal.MaxBackups,
	}
}

func (m MachineConfig) Parse() (Machine, error) {
	var (
		out  Machine
		errs []error
		err  error
	)
	if out.Channel, err = domain.ParseChannel(m.Channel); err != nil {
		errs = append(errs, err)
	}
	if out.DataCenter, err = domain.ParseDataCenter(m.DataCenter); err != nil {
		errs = append(errs, err)
	}
	if out.Product, err = domain.ParseProduct(m.Product); err != nil {
		errs = append(errs, err)
	}
	if out.Status, err = domain.ParseStatus(m.Status); err != nil {
		errs = append(errs, err)
	}
	if m.InitialAction != "" {
		if out.InitialAction, err = domain.ParseAction(m.InitialAction); err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}
