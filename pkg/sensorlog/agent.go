package sensorlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ghalamif/SensorLog/internal/adapters/opcua"
	"github.com/ghalamif/SensorLog/internal/adapters/queue"
	"github.com/ghalamif/SensorLog/internal/app/pipeline"
	"github.com/ghalamif/SensorLog/internal/app/transform"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// AgentOption customizes the dependencies used by Agent.
type AgentOption func(*agentOverrides)

type agentOverrides struct {
	collector   Collector
	transformer Transformer
	queue       ReadingQueue
	registry    *prometheus.Registry
	emitterOpts []Option
}

// WithCollector injects a custom collector implementation (MQTT, Modbus, simulators, etc.).
func WithCollector(col Collector) AgentOption {
	return func(o *agentOverrides) {
		o.collector = col
	}
}

// WithTransformer overrides the default calibrator.
func WithTransformer(t Transformer) AgentOption {
	return func(o *agentOverrides) {
		o.transformer = t
	}
}

// WithReadingQueue injects a custom queue implementation (e.g., lock-free, sharded).
func WithReadingQueue(q ReadingQueue) AgentOption {
	return func(o *agentOverrides) {
		o.queue = q
	}
}

// WithEmitterOptions forwards opts to the agent's Emitter.
func WithEmitterOptions(opts ...Option) AgentOption {
	return func(o *agentOverrides) {
		o.emitterOpts = append(o.emitterOpts, opts...)
	}
}

// WithMetricsRegistry registers collectors on reg and serves it on /metrics
// instead of the default registry.
func WithMetricsRegistry(reg *prometheus.Registry) AgentOption {
	return func(o *agentOverrides) {
		o.registry = reg
	}
}

// Agent wires up the collector → queue → emitter pipeline and exposes simple
// lifecycle hooks for embedding SensorLog inside any Go service.
type Agent struct {
	cfg         *Config
	policy      ports.Policy
	emitter     *Emitter
	queue       ports.ReadingQueue
	collector   ports.Collector
	transformer ports.Transformer
	registry    *prometheus.Registry
	log         *zap.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
	emitDoneCh  chan struct{}
}

// NewAgent bootstraps the default adapters (OPC UA collector, in-memory
// queue, calibrator, configured broker, file journal, Prometheus
// observability). AgentOption values override any of them.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides agentOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	machine, err := cfg.Machine.Parse()
	if err != nil {
		return nil, err
	}

	emitterOpts := overrides.emitterOpts
	if overrides.registry != nil {
		emitterOpts = append([]Option{WithRegisterer(overrides.registry)}, emitterOpts...)
	}
	em, err := NewEmitter(cfg, emitterOpts...)
	if err != nil {
		return nil, err
	}

	pol := cfg.Policy()
	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(pol.MaxQueueLen)
	}

	col := overrides.collector
	if col == nil {
		if !cfg.OPCUAEnabled() {
			_ = em.Close(context.Background())
			return nil, fmt.Errorf("opcua section is required without a custom collector")
		}
		col, err = opcua.NewCollector(cfg.OPCUA, em.Logger())
		if err != nil {
			_ = em.Close(context.Background())
			return nil, err
		}
	}

	tr := overrides.transformer
	if tr == nil {
		linear := make(map[string]transform.Linear, len(cfg.OPCUA.Nodes))
		for _, n := range cfg.OPCUA.Nodes {
			id := n.SensorID
			if id == "" {
				id = n.NodeID
			}
			scale := n.Scale
			if scale == 0 {
				scale = 1
			}
			linear[id] = transform.Linear{Scale: scale, Offset: n.Offset}
		}
		tr = transform.NewCalibrator(transform.Defaults{
			Channel:    machine.Channel,
			DataCenter: machine.DataCenter,
			Product:    machine.Product,
			Status:     machine.Status,
			EmitterID:  uuid.NewString(),
		}, linear)
	}

	return &Agent{
		cfg:         cfg,
		policy:      pol,
		emitter:     em,
		queue:       q,
		collector:   col,
		transformer: tr,
		registry:    overrides.registry,
		log:         em.Logger().Named("agent"),
	}, nil
}

// Emitter exposes the agent's emitter so callers can record machine status
// or extra readings alongside collected ones.
func (a *Agent) Emitter() *Emitter { return a.emitter }

// Start connects the broker, applies the configured initial action and
// begins collecting. It returns immediately; call Run to block on a context
// instead. A broker that cannot be reached is logged and journaled, and
// collection continues into the journal.
func (a *Agent) Start(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return fmt.Errorf("agent already started")
	}

	machine, err := a.cfg.Machine.Parse()
	if err != nil {
		return err
	}

	if err := a.emitter.Initialize(ctx); err != nil {
		a.log.Warn("broker unavailable, continuing with journal only", zap.Error(err))
	}

	if machine.InitialAction != 0 {
		if _, err := a.emitter.LogMachineStatus(ctx, machine.InitialAction, nil); err != nil {
			return a.abortStart(ctx, err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if _, err := pipeline.RunIntake(runCtx, a.collector, a.queue, a.policy, a.emitter.obs); err != nil {
		cancel()
		return a.abortStart(ctx, err)
	}
	a.cancel = cancel

	a.emitDoneCh = make(chan struct{})
	go func() {
		defer close(a.emitDoneCh)
		pipeline.RunEmitLoop(runCtx, a.queue, a.transformer, a.emitter.pipeline, a.policy, a.emitter.obs)
	}()

	a.startMetrics()
	a.log.Info("agent started",
		zap.String("metrics_addr", a.cfg.Metrics.Addr),
		zap.Bool("dispatch", a.emitter.DispatchEnabled()))
	return nil
}

// abortStart releases the broker connection and the journal opened by a
// failed Start.
func (a *Agent) abortStart(ctx context.Context, cause error) error {
	if err := a.emitter.Close(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("close emitter: %w", err))
	}
	return cause
}

// Run starts the agent and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	timeout := a.policy.DrainTimeout + 5*time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the collector and the metrics server, emits what is still
// queued and closes the emitter.
func (a *Agent) Shutdown(ctx context.Context) error {
	var errs []error

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gaugeStopCh != nil {
		close(a.gaugeStopCh)
		a.gaugeStopCh = nil
	}

	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		a.metricsSrv = nil
	}

	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.cancel != nil {
		a.cancel()
		select {
		case <-a.emitDoneCh:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("drain reading queue: %w", ctx.Err()))
		}
	}

	if err := a.emitter.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (a *Agent) handler() http.Handler {
	mux := http.NewServeMux()
	if a.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		stats := a.emitter.JournalStats()
		body := map[string]any{
			"status":        a.emitter.StatusMetadata(),
			"queue_length":  a.queue.Len(),
			"journal_path":  stats.Path,
			"journal_bytes": stats.SizeBytes,
			"journal_lines": stats.Lines,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

func (a *Agent) startMetrics() {
	a.gaugeStopCh = make(chan struct{})
	go a.recordResourceGauges(a.gaugeStopCh, time.Second)

	if a.cfg.Metrics.Addr == "" {
		return
	}
	a.metricsSrv = &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := a.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server exited", zap.Error(err))
		}
	}()
}

func (a *Agent) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := a.emitter.JournalStats()
			a.emitter.obs.SetGauge(ports.MetricJournalSize, float64(stats.SizeBytes))
			a.emitter.obs.SetGauge(ports.MetricQueueLength, float64(a.queue.Len()))
		}
	}
}
