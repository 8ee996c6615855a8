package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/SensorLog/internal/ports"
)

// PromObs reports through Prometheus collectors and a zap logger. Unknown
// metric names are ignored.
type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the sensorlog collectors on reg, reusing collectors a
// previous PromObs already registered there. A nil reg means the default
// registerer; a nil log discards log output.
func NewPromObs(reg prometheus.Registerer, log *zap.Logger) (*PromObs, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &PromObs{
		log:      log,
		counters: map[string]prometheus.Counter{},
		gauges:   map[string]prometheus.Gauge{},
		histos:   map[string]prometheus.Observer{},
	}

	counters := []struct{ name, help string }{
		{ports.MetricRecordsEmitted, "Records appended to the journal."},
		{ports.MetricRecordsRejected, "Readings rejected before a record was built."},
		{ports.MetricBrokerFailures, "Broker start, send and stop failures."},
		{ports.MetricJournalFailures, "Failed journal appends."},
		{ports.MetricStatusTransitions, "Machine status transitions."},
		{ports.MetricQueueDropped, "Readings lost to queue backpressure."},
	}
	for _, c := range counters {
		col, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: c.name, Help: c.help}))
		if err != nil {
			return nil, err
		}
		p.counters[c.name] = col
	}

	gauges := []struct{ name, help string }{
		{ports.MetricJournalSize, "Size of the active journal file."},
		{ports.MetricQueueLength, "Readings buffered between collector and pipeline."},
	}
	for _, g := range gauges {
		col, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}))
		if err != nil {
			return nil, err
		}
		p.gauges[g.name] = col
	}

	latency, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricDispatchLatency,
		Help:    "Time from broker hand-off to acknowledgement.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}))
	if err != nil {
		return nil, err
	}
	p.histos[ports.MetricDispatchLatency] = latency

	return p, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func (p *PromObs) Logger() *zap.Logger { return p.log }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err), zap.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
