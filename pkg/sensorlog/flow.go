package sensorlog

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → StreamIN → StreamOUT
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []AgentOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the collector/queue side of the agent.
type StreamInOption func(*Flow)

// StreamOutOption configures the transformer/broker/journal side of the agent.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw AgentOption values to the builder.
func (f *Flow) Options(opts ...AgentOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records collector-side overrides.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records output-side overrides and builds an Agent ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Agent, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewAgent(f.cfg, f.opts...)
}

// Build returns a standalone Emitter for processes that record readings
// themselves instead of running a collector. Emitter options recorded with
// StreamOutBroker, StreamOutJournal or StreamOutObservability apply.
func (f *Flow) Build(opts ...StreamOutOption) (*Emitter, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	var o agentOverrides
	for _, opt := range f.opts {
		opt(&o)
	}
	emitterOpts := o.emitterOpts
	if o.registry != nil {
		emitterOpts = append([]Option{WithRegisterer(o.registry)}, emitterOpts...)
	}
	return NewEmitter(f.cfg, emitterOpts...)
}

// Run is a shortcut for StreamOUT + agent.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	a, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// WithFlowOptions appends AgentOption values during Conf.
func WithFlowOptions(opts ...AgentOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInCollector injects a custom collector (MQTT, Modbus, simulators, etc.).
func StreamInCollector(col Collector) StreamInOption {
	return func(f *Flow) {
		if f != nil && col != nil {
			f.appendOptions(WithCollector(col))
		}
	}
}

// StreamInQueue swaps the in-memory queue for a caller-provided implementation.
func StreamInQueue(q ReadingQueue) StreamInOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithReadingQueue(q))
		}
	}
}

// StreamOutTransformer overrides the default calibrator.
func StreamOutTransformer(tr Transformer) StreamOutOption {
	return func(f *Flow) {
		if f != nil && tr != nil {
			f.appendOptions(WithTransformer(tr))
		}
	}
}

// StreamOutBroker injects a custom Broker implementation.
func StreamOutBroker(b Broker) StreamOutOption {
	return func(f *Flow) {
		if f != nil && b != nil {
			f.appendOptions(WithEmitterOptions(WithBroker(b)))
		}
	}
}

// StreamOutJournal injects a custom durable sink.
func StreamOutJournal(j Journal) StreamOutOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithEmitterOptions(WithJournal(j)))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithEmitterOptions(WithObservability(obs)))
		}
	}
}

// StreamOutCallback installs a broker built from a simple callback function.
func StreamOutCallback(name string, fn SendFunc) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithEmitterOptions(WithBroker(NewCallbackBroker(name, fn))))
		}
	}
}

func (f *Flow) appendOptions(opts ...AgentOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
