package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ghalamif/SensorLog/internal/app/status"
	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

const (
	KeyPreviousStatus   = "previous_status"
	KeyPreviousDuration = "previous_duration"
	KeyHostname         = "hostname"
	KeyIP               = "ip"
)

// ErrorHandler receives every delivery-path failure. op names the failing
// step: "broker_start", "broker_send", "journal_append" or "broker_stop".
type ErrorHandler func(op string, err error)

// Options wires a Pipeline. Journal is required; a nil Broker or a policy
// with DispatchEnabled unset keeps records local.
type Options struct {
	Tracker *status.Tracker
	Journal ports.Journal
	Broker  ports.Broker
	Policy  ports.Policy
	Obs     ports.Observability
	Clock   func() time.Time
	OnError ErrorHandler

	// Host is stamped on machine status records under the caller's metadata,
	// typically hostname and ip.
	Host domain.Metadata
}

// Pipeline builds records, appends them to the journal and dispatches them to
// the broker. Delivery failures never reach the caller; they are written to
// the journal as error entries, logged, counted and handed to OnError.
type Pipeline struct {
	tracker *status.Tracker
	journal ports.Journal
	trail   *zap.Logger
	broker  ports.Broker
	policy  ports.Policy
	obs     ports.Observability
	clock   func() time.Time
	onError ErrorHandler
	host    domain.Metadata

	mu       sync.Mutex
	started  bool
	closed   bool
	inflight sync.WaitGroup
}

func New(opts Options) (*Pipeline, error) {
	if opts.Journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if opts.Obs == nil {
		return nil, fmt.Errorf("observability is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = status.NewTracker(clock)
	}

	p := &Pipeline{
		tracker: tracker,
		journal: opts.Journal,
		trail:   newTrail(opts.Journal),
		broker:  opts.Broker,
		policy:  opts.Policy,
		obs:     opts.Obs,
		clock:   clock,
		onError: opts.OnError,
		host:    opts.Host.Clone(),
	}
	tracker.OnChange(p.statusChanged)
	return p, nil
}

// newTrail writes warn and error entries into the journal itself so delivery
// failures stay next to the records they concern.
func newTrail(j ports.Journal) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), j, zapcore.WarnLevel)
	return zap.New(core).With(zap.String("component", "sensorlog"))
}

func (p *Pipeline) Tracker() *status.Tracker { return p.tracker }

// DispatchEnabled reports whether records are handed to the broker.
func (p *Pipeline) DispatchEnabled() bool {
	return p.broker != nil && p.policy.DispatchEnabled
}

// Initialize starts the broker connection. It is idempotent and a no-op when
// dispatch is disabled.
func (p *Pipeline) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.ErrPipelineClosed
	}
	if p.started || !p.DispatchEnabled() {
		return nil
	}

	if err := p.broker.Start(ctx); err != nil {
		if !errors.Is(err, domain.ErrSinkUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSinkUnavailable, err)
		}
		err = fmt.Errorf("start %s broker: %w", p.broker.Name(), err)
		p.report("broker_start", err, ports.Field{Key: "broker", Value: p.broker.Name()})
		return err
	}
	p.started = true
	p.obs.LogInfo("broker_started",
		ports.Field{Key: "broker", Value: p.broker.Name()},
		ports.Field{Key: "topic", Value: p.policy.Topic})
	return nil
}

// UpdateStatus moves the tracker to action. A real transition is recorded in
// the journal as a machine status record; the broker is not involved.
func (p *Pipeline) UpdateStatus(action domain.Action, metadata domain.Metadata) error {
	if err := action.Validate(); err != nil {
		return err
	}
	rec, changed := p.statusRecord(action, metadata)
	if !changed {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	p.appendJournal(payload, ports.Field{Key: "action", Value: action.String()})
	return nil
}

// EmitMachineStatus applies action and publishes the resulting machine status
// record through the journal and the broker.
func (p *Pipeline) EmitMachineStatus(ctx context.Context, action domain.Action, metadata domain.Metadata) (domain.MachineStatusRecord, error) {
	if err := action.Validate(); err != nil {
		return domain.MachineStatusRecord{}, err
	}
	rec, _ := p.statusRecord(action, metadata)
	payload, err := json.Marshal(rec)
	if err != nil {
		return domain.MachineStatusRecord{}, err
	}
	p.deliver(ctx, payload, ports.Field{Key: "action", Value: action.String()})
	return rec, nil
}

func (p *Pipeline) statusRecord(action domain.Action, metadata domain.Metadata) (domain.MachineStatusRecord, bool) {
	change, changed, derived := p.tracker.Apply(action)
	md := p.host.Clone().Merge(metadata.Clone())
	if changed {
		md[KeyPreviousStatus] = change.FromString()
		md[KeyPreviousDuration] = change.Elapsed
	}
	md.Merge(derived)

	// action was validated by the caller
	rec, _ := domain.BuildMachineStatusRecord(change.At, action, md)
	return rec, changed
}

// EmitSensor builds a sensor record from r with the tracker's status metadata
// merged over r.Metadata, appends it to the journal and dispatches it. Only
// construction errors are returned.
func (p *Pipeline) EmitSensor(ctx context.Context, r domain.Reading) (domain.SensorRecord, error) {
	r.Metadata = r.Metadata.Clone().Merge(p.tracker.StatusMetadata())

	rec, err := domain.BuildSensorRecord(p.clock(), r)
	if err != nil {
		p.obs.IncCounter(ports.MetricRecordsRejected, 1)
		return domain.SensorRecord{}, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		p.obs.IncCounter(ports.MetricRecordsRejected, 1)
		return domain.SensorRecord{}, fmt.Errorf("encode sensor record: %w", err)
	}

	p.deliver(ctx, payload,
		ports.Field{Key: "sensor_id", Value: rec.SensorID},
		ports.Field{Key: "kind", Value: r.Kind.String()})
	return rec, nil
}

func (p *Pipeline) deliver(ctx context.Context, payload []byte, fields ...ports.Field) {
	p.appendJournal(payload, fields...)
	if p.DispatchEnabled() {
		p.dispatch(ctx, payload, fields...)
	}
	p.obs.IncCounter(ports.MetricRecordsEmitted, 1)
}

func (p *Pipeline) appendJournal(payload []byte, fields ...ports.Field) {
	if err := p.journal.Append(payload); err != nil {
		p.report("journal_append", fmt.Errorf("journal append: %w", err), fields...)
	}
}

// dispatch hands payload to the broker and waits for the outcome. Close waits
// for every dispatch registered here.
func (p *Pipeline) dispatch(ctx context.Context, payload []byte, fields ...ports.Field) {
	fields = append(fields,
		ports.Field{Key: "broker", Value: p.broker.Name()},
		ports.Field{Key: "topic", Value: p.policy.Topic})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.report("broker_send", domain.ErrPipelineClosed, fields...)
		return
	}
	started := p.started
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	if !started {
		p.report("broker_send", fmt.Errorf("%w: %s broker not initialized", domain.ErrSinkUnavailable, p.broker.Name()), fields...)
		return
	}

	sendCtx := ctx
	if p.policy.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, p.policy.SendTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := p.broker.Send(sendCtx, p.policy.Topic, payload); err != nil {
		if !errors.Is(err, domain.ErrSinkSendFailed) && !errors.Is(err, domain.ErrSinkUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSinkSendFailed, err)
		}
		p.report("broker_send", err, fields...)
		return
	}
	p.obs.ObserveLatency(ports.MetricDispatchLatency, time.Since(start).Seconds())
}

// Close stops accepting dispatches, waits for in-flight ones, stops the
// broker and closes the journal. It is safe to call more than once.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	var errs []error

	drainCtx := ctx
	if p.policy.DrainTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(ctx, p.policy.DrainTimeout)
		defer cancel()
	}
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-drainCtx.Done():
		errs = append(errs, fmt.Errorf("drain in-flight dispatches: %w", drainCtx.Err()))
	}

	if started {
		if err := p.broker.Stop(ctx); err != nil {
			err = fmt.Errorf("stop %s broker: %w", p.broker.Name(), err)
			p.report("broker_stop", err)
			errs = append(errs, err)
		}
	}

	_ = p.trail.Sync()
	if err := p.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close journal: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Pipeline) statusChanged(c status.Change) {
	p.obs.IncCounter(ports.MetricStatusTransitions, 1)
	p.obs.LogInfo("machine_status_changed",
		ports.Field{Key: "from", Value: c.FromString()},
		ports.Field{Key: "to", Value: c.To.String()},
		ports.Field{Key: "at", Value: c.At.UTC().Format(domain.TimestampLayout)},
		ports.Field{Key: "previous_duration", Value: c.Elapsed})
}

func (p *Pipeline) report(op string, err error, fields ...ports.Field) {
	switch op {
	case "journal_append":
		p.obs.IncCounter(ports.MetricJournalFailures, 1)
	default:
		p.obs.IncCounter(ports.MetricBrokerFailures, 1)
	}
	p.obs.LogError(op, err, fields...)

	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.Error(err))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	p.trail.Error(op, zf...)

	if p.onError != nil {
		p.onError(op, err)
	}
}
