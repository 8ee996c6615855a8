package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghalamif/SensorLog/internal/domain"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensorlog.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
broker:
  endpoints: ["tcp://broker:1883"]
dispatch:
  max_queue_len: 1000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Broker.Kind != "mqtt" || cfg.Broker.Topic != "sensor_logs" {
		t.Fatalf("unexpected broker defaults %+v", cfg.Broker)
	}
	if !cfg.DispatchEnabled() {
		t.Fatalf("dispatch must default to enabled")
	}
	if cfg.Journal.Dir != "./logs" || cfg.Journal.MaxBytes != 10<<20 || cfg.Journal.MaxBackups != 24 {
		t.Fatalf("unexpected journal defaults %+v", cfg.Journal)
	}
	if cfg.Dispatch.SendTimeout != 5*time.Second {
		t.Fatalf("expected send timeout 5s, got %s", cfg.Dispatch.SendTimeout)
	}
	if cfg.Dispatch.MaxQueueLen != 1000 || cfg.Dispatch.IdleSleep != 5*time.Millisecond {
		t.Fatalf("unexpected dispatch %+v", cfg.Dispatch)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}
	if cfg.OPCUAEnabled() {
		t.Fatalf("opcua must stay disabled without a section")
	}

	pol := cfg.Policy()
	if !pol.DispatchEnabled || pol.Topic != "sensor_logs" || pol.OnQueueFull != "block" {
		t.Fatalf("unexpected policy %+v", pol)
	}
	m, err := cfg.Machine.Parse()
	if err != nil {
		t.Fatalf("parse machine: %v", err)
	}
	if m.Channel != domain.ChannelSensor || m.DataCenter != domain.DataCenterFactory1 || m.InitialAction != 0 {
		t.Fatalf("unexpected machine defaults %+v", m)
	}
}

func TestLoadFullDocument(t *testing.T) {
	path := writeConfig(t, `
broker:
  enabled: false
  kind: redis
  endpoints: ["redis:6379"]
  topic: plant_a
  stream_max_len: 5000
journal:
  dir: /var/log/sensorlog
  max_bytes: 1048576
  max_backups: -1
machine:
  channel: Manual Input
  data_center: Power Plant
  product: Power Plant
  status: Warning
  initial_action: Error Detected
opcua:
  endpoint: opc.tcp://plc:4840
  publish_interval: 1s
  nodes:
    - node_id: "ns=2;s=Turbine.Vibration"
      sensor_id: turbine-vib
      kind: vibration
      scale: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DispatchEnabled() || cfg.Policy().DispatchEnabled {
		t.Fatalf("broker.enabled false must disable dispatch")
	}
	bs := cfg.BrokerSettings()
	if bs.Kind != "redis" || bs.StreamMaxLen != 5000 || bs.Endpoints[0] != "redis:6379" {
		t.Fatalf("unexpected broker settings %+v", bs)
	}
	js := cfg.JournalSettings()
	if js.MaxBytes != 1<<20 || js.MaxBackups != -1 {
		t.Fatalf("unexpected journal settings %+v", js)
	}
	m, err := cfg.Machine.Parse()
	if err != nil {
		t.Fatalf("machine: %v", err)
	}
	if m.DataCenter != domain.DataCenterPowerPlant || m.Product != domain.ProductPowerPlant || m.InitialAction != domain.ActionErrorDetected {
		t.Fatalf("unexpected machine %+v", m)
	}
	if !cfg.OPCUAEnabled() || cfg.OPCUA.PublishInterval != time.Second || cfg.OPCUA.Nodes[0].Scale != 0.5 {
		t.Fatalf("unexpected opcua %+v", cfg.OPCUA)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("SENSORLOG_BROKER_KIND", "NATS")
	t.Setenv("SENSORLOG_BROKER_ENDPOINTS", "nats://a:4222, nats://b:4222")
	t.Setenv("SENSORLOG_BROKER_TOPIC", "env_topic")
	t.Setenv("SENSORLOG_BROKER_ENABLED", "false")
	t.Setenv("SENSORLOG_JOURNAL_DIR", "/tmp/env-journal")
	t.Setenv("SENSORLOG_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "broker:\n  topic: file_topic\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Broker.Kind != "nats" || cfg.Broker.Topic != "env_topic" || cfg.DispatchEnabled() {
		t.Fatalf("env overrides not applied: %+v", cfg.Broker)
	}
	if len(cfg.Broker.Endpoints) != 2 || cfg.Broker.Endpoints[1] != "nats://b:4222" {
		t.Fatalf("unexpected endpoints %q", cfg.Broker.Endpoints)
	}
	if cfg.Journal.Dir != "/tmp/env-journal" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected journal/logging %+v %+v", cfg.Journal, cfg.Logging)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Broker.Endpoints[0] != "tcp://localhost:1883" {
		t.Fatalf("unexpected default endpoint %q", cfg.Broker.Endpoints)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"kind":       "broker:\n  kind: kafka\n",
		"qos":        "broker:\n  qos: 3\n",
		"postgres":   "broker:\n  kind: postgres\n",
		"policy":     "dispatch:\n  on_queue_full: spill\n",
		"channel":    "machine:\n  channel: Radio\n",
		"opcua kind": "opcua:\n  endpoint: opc.tcp://x\n  nodes:\n    - node_id: a\n      kind: sonar\n",
	}
	for name, doc := range cases {
		if _, err := Load(writeConfig(t, doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	t.Setenv("SENSORLOG_BROKER_ENABLED", "maybe")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected invalid boolean to be rejected")
	}
}

func TestMachineParseReportsEveryField(t *testing.T) {
	_, err := MachineConfig{Channel: "Radio", DataCenter: "Moon", Product: "Power Plant", Status: "Normal"}.Parse()
	if !errors.Is(err, domain.ErrUnrecognizedVocabulary) {
		t.Fatalf("expected vocabulary error, got %v", err)
	}
	var ve *domain.UnrecognizedVocabularyError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *UnrecognizedVocabularyError in %v", err)
	}
}
