package sensorlog

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/SensorLog/internal/adapters/broker"
	"github.com/ghalamif/SensorLog/internal/adapters/journal"
	"github.com/ghalamif/SensorLog/internal/adapters/observability"
	"github.com/ghalamif/SensorLog/internal/app/pipeline"
	"github.com/ghalamif/SensorLog/internal/app/status"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// Option customizes the dependencies used by an Emitter.
type Option func(*emitterOverrides)

type emitterOverrides struct {
	broker        Broker
	journal       Journal
	observability Observability
	logger        *zap.Logger
	registerer    prometheus.Registerer
	clock         func() time.Time
	onError       ErrorHandler
	host          *hostIdentity
}

type hostIdentity struct {
	hostname string
	ip       string
}

// WithBroker replaces the broker built from the config (MQTT, Redis, NATS,
// Postgres) with any Broker implementation.
func WithBroker(b Broker) Option {
	return func(o *emitterOverrides) {
		o.broker = b
	}
}

// WithJournal lets callers bring their own durable sink.
func WithJournal(j Journal) Option {
	return func(o *emitterOverrides) {
		o.journal = j
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) Option {
	return func(o *emitterOverrides) {
		o.observability = obs
	}
}

// WithLogger reuses an existing zap logger instead of building one from the
// logging section.
func WithLogger(l *zap.Logger) Option {
	return func(o *emitterOverrides) {
		o.logger = l
	}
}

// WithRegisterer registers the emitter's Prometheus collectors on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *emitterOverrides) {
		o.registerer = reg
	}
}

// WithClock injects the time source used for record timestamps and
// uptime/downtime.
func WithClock(clock func() time.Time) Option {
	return func(o *emitterOverrides) {
		o.clock = clock
	}
}

// WithErrorHandler receives every delivery failure in addition to the journal
// error entry.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(o *emitterOverrides) {
		o.onError = fn
	}
}

// WithHostIdentity sets the hostname and ip stamped on machine status
// records. By default both are resolved from the local host; empty values
// are left out.
func WithHostIdentity(hostname, ip string) Option {
	return func(o *emitterOverrides) {
		o.host = &hostIdentity{hostname: hostname, ip: ip}
	}
}

// Emitter is the entry point for monitored processes: it records sensor
// readings and machine actions, appends them to the journal and dispatches
// them to the configured broker.
type Emitter struct {
	cfg        *Config
	pipeline   *pipeline.Pipeline
	journal    ports.Journal
	obs        ports.Observability
	logger     *zap.Logger
	ownsLogger bool
}

// NewEmitter wires the journal, broker and observability described by cfg.
// Call Initialize before emitting to connect the broker.
func NewEmitter(cfg *Config, opts ...Option) (*Emitter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides emitterOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	logger := overrides.logger
	ownsLogger := false
	if logger == nil {
		var err error
		logger, err = observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Service)
		if err != nil {
			return nil, err
		}
		ownsLogger = true
	}

	obs := overrides.observability
	if obs == nil {
		prom, err := observability.NewPromObs(overrides.registerer, logger)
		if err != nil {
			return nil, err
		}
		obs = prom
	}

	j := overrides.journal
	if j == nil {
		fj, err := journal.NewFileJournal(cfg.JournalSettings())
		if err != nil {
			return nil, err
		}
		j = fj
	}

	pol := cfg.Policy()
	b := overrides.broker
	if b == nil && pol.DispatchEnabled {
		var err error
		b, err = broker.New(cfg.BrokerSettings())
		if err != nil {
			_ = j.Close()
			return nil, err
		}
	}

	p, err := pipeline.New(pipeline.Options{
		Journal: j,
		Broker:  b,
		Policy:  pol,
		Obs:     obs,
		Clock:   overrides.clock,
		OnError: overrides.onError,
		Host:    overrides.hostMetadata(),
	})
	if err != nil {
		_ = j.Close()
		return nil, err
	}

	return &Emitter{
		cfg:        cfg,
		pipeline:   p,
		journal:    j,
		obs:        obs,
		logger:     logger,
		ownsLogger: ownsLogger,
	}, nil
}

func (o emitterOverrides) hostMetadata() Metadata {
	id := o.host
	if id == nil {
		id = localHost()
	}
	md := Metadata{}
	if id.hostname != "" {
		md[pipeline.KeyHostname] = id.hostname
	}
	if id.ip != "" {
		md[pipeline.KeyIP] = id.ip
	}
	return md
}

// localHost resolves the hostname and the first non-loopback address,
// preferring IPv4.
func localHost() *hostIdentity {
	id := &hostIdentity{}
	if h, err := os.Hostname(); err == nil {
		id.hostname = h
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return id
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() || ipn.IP.IsLinkLocalUnicast() {
			continue
		}
		if v4 := ipn.IP.To4(); v4 != nil {
			id.ip = v4.String()
			return id
		}
		if id.ip == "" {
			id.ip = ipn.IP.String()
		}
	}
	return id
}

// Initialize connects the broker. A failure is also written to the journal;
// records emitted afterwards still reach the journal.
func (e *Emitter) Initialize(ctx context.Context) error {
	return e.pipeline.Initialize(ctx)
}

// Close drains in-flight dispatches, stops the broker and closes the journal.
func (e *Emitter) Close(ctx context.Context) error {
	err := e.pipeline.Close(ctx)
	if e.ownsLogger {
		_ = e.logger.Sync()
	}
	return err
}

// UpdateStatus records action as the current machine status. Only a real
// transition is written, and only to the journal.
func (e *Emitter) UpdateStatus(action Action, md Metadata) error {
	return e.pipeline.UpdateStatus(action, md)
}

// LogMachineStatus applies action and publishes a machine status record
// through both sinks.
func (e *Emitter) LogMachineStatus(ctx context.Context, action Action, md Metadata) (MachineStatusRecord, error) {
	return e.pipeline.EmitMachineStatus(ctx, action, md)
}

// EmitSensor records r as it is. r.Kind selects the sensor type and unit.
func (e *Emitter) EmitSensor(ctx context.Context, r Reading) (SensorRecord, error) {
	return e.pipeline.EmitSensor(ctx, r)
}

// Log records r as a reading of the given kind.
func (e *Emitter) Log(ctx context.Context, kind SensorKind, r Reading) (SensorRecord, error) {
	r.Kind = kind
	return e.pipeline.EmitSensor(ctx, r)
}

func (e *Emitter) LogVibration(ctx context.Context, r Reading) (SensorRecord, error) {
	return e.Log(ctx, KindVibration, r)
}

func (e *Emitter) LogTemperature(ctx context.Context, r Reading) (SensorRecord, error) {
	return e.Log(ctx, KindTemperature, r)
}

func (e *Emitter) LogPressure(ctx context.Context, r Reading) (SensorRecord, error) {
	return e.Log(ctx, KindPressure, r)
}

func (e *Emitter) LogElectrical(ctx context.Context, r Reading) (SensorRecord, error) {
	return e.Log(ctx, KindElectrical, r)
}

func (e *Emitter) LogHumidity(ctx context.Context, r Reading) (SensorRecord, error) {
	return e.Log(ctx, KindHumidity, r)
}

// StatusMetadata returns machine_status plus uptime or downtime in seconds.
func (e *Emitter) StatusMetadata() Metadata {
	return e.pipeline.Tracker().StatusMetadata()
}

// ElapsedSeconds is the time spent in the current status.
func (e *Emitter) ElapsedSeconds() float64 {
	return e.pipeline.Tracker().ElapsedSeconds()
}

// OnStatusChange registers fn for every machine status transition.
func (e *Emitter) OnStatusChange(fn func(StatusChange)) {
	e.pipeline.Tracker().OnChange(status.Listener(fn))
}

func (e *Emitter) JournalStats() JournalStats {
	return e.journal.Stats()
}

// DispatchEnabled reports whether records are handed to a broker.
func (e *Emitter) DispatchEnabled() bool {
	return e.pipeline.DispatchEnabled()
}

// Logger is the zap logger the emitter reports through.
func (e *Emitter) Logger() *zap.Logger {
	return e.logger
}
