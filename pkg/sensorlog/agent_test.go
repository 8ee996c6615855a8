package sensorlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/SensorLog/internal/domain"
)

func TestNewAgentWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	queueStub := &stubQueue{}
	collectorStub := &stubCollector{}
	transformerStub := &stubTransformer{}

	a, err := NewAgent(
		cfg,
		WithCollector(collectorStub),
		WithTransformer(transformerStub),
		WithReadingQueue(queueStub),
		WithMetricsRegistry(prometheus.NewRegistry()),
		WithEmitterOptions(WithLogger(zap.NewNop()), WithObservability(&stubObservability{})),
	)
	if err != nil {
		t.Fatalf("NewAgent returned error: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.collector != collectorStub {
		t.Fatalf("expected custom collector to be used")
	}
	if a.transformer != transformerStub {
		t.Fatalf("expected custom transformer to be used")
	}
	if a.queue != queueStub {
		t.Fatalf("expected custom queue to be used")
	}
	if _, ok := a.emitter.obs.(*stubObservability); !ok {
		t.Fatalf("expected custom observability to be used")
	}
}

func TestNewAgentRequiresCollectorSource(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewAgent(cfg,
		WithMetricsRegistry(prometheus.NewRegistry()),
		WithEmitterOptions(WithLogger(zap.NewNop())))
	if err == nil {
		t.Fatalf("expected error without opcua section or collector")
	}
}

func TestAgentCollectsCalibratesAndEmits(t *testing.T) {
	cfg := testConfig(t)
	cfg.Machine.InitialAction = "Start"
	cfg.OPCUA.Nodes = []OPCUANodeConfig{{NodeID: "ns=2;s=Temp", SensorID: "temp-1", Kind: "temperature", Scale: 0.5}}
	cfg.Dispatch.IdleSleep = time.Millisecond

	b, ch, closeCh := NewChannelBroker("chan", 16)
	defer closeCh()

	col := &stubCollector{readings: []*domain.Reading{
		{Kind: KindTemperature, SensorID: "temp-1", Measurement: 43, SourceNodeID: "ns=2;s=Temp"},
		{Kind: KindTemperature, SensorID: "temp-1", Measurement: 44, SourceNodeID: "ns=2;s=Temp"},
	}}

	a, err := NewAgent(cfg,
		WithCollector(col),
		WithMetricsRegistry(prometheus.NewRegistry()),
		WithEmitterOptions(WithLogger(zap.NewNop()), WithBroker(b)))
	if err != nil {
		t.Fatalf("NewAgent returned error: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	var got []map[string]any
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case msg := <-ch:
			var m map[string]any
			if err := json.Unmarshal(msg.Payload, &m); err != nil {
				t.Fatalf("payload is not JSON: %s", msg.Payload)
			}
			got = append(got, m)
		case <-deadline:
			t.Fatalf("timed out, got %d messages", len(got))
		}
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	if got[0]["action"] != "Start" {
		t.Fatalf("expected initial Start record, got %v", got[0])
	}
	if got[1]["measurement"] != 21.5 || got[2]["measurement"] != 22.0 {
		t.Fatalf("expected calibrated measurements, got %v and %v", got[1]["measurement"], got[2]["measurement"])
	}
	md, _ := got[1]["metadata"].(map[string]any)
	if md[KeyMachineStatus] != "Start" || md["source_node"] != "ns=2;s=Temp" || md["emitter_id"] == nil {
		t.Fatalf("unexpected metadata: %v", md)
	}
	if got[1]["channel"] != "Sensor" || got[1]["data_center"] != "Factory 1" {
		t.Fatalf("expected machine defaults, got %v", got[1])
	}
	if !col.stopped() {
		t.Fatalf("expected collector to be stopped")
	}
}

func TestAgentStatusEndpoint(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewAgent(cfg,
		WithCollector(&stubCollector{}),
		WithMetricsRegistry(prometheus.NewRegistry()),
		WithEmitterOptions(WithLogger(zap.NewNop()), WithBroker(NewCallbackBroker("", func(string, []byte) error { return nil }))))
	if err != nil {
		t.Fatalf("NewAgent returned error: %v", err)
	}
	defer a.Shutdown(context.Background())

	if err := a.Emitter().UpdateStatus(ActionMaintenance, nil); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	srv := httptest.NewServer(a.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status       map[string]any `json:"status"`
		JournalLines uint64         `json:"journal_lines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /status: %v", err)
	}
	if body.Status[KeyMachineStatus] != "Maintenance" {
		t.Fatalf("unexpected status: %v", body.Status)
	}
	if _, ok := body.Status[KeyDowntime]; !ok {
		t.Fatalf("expected downtime in status: %v", body.Status)
	}
	if body.JournalLines != 1 {
		t.Fatalf("expected 1 journal line, got %d", body.JournalLines)
	}

	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("unexpected /healthz status %d", health.StatusCode)
	}
}

func TestAgentStartFailureReleasesEmitter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Machine.InitialAction = "Start"
	startErr := errors.New("opc ua endpoint refused")
	b := &trackingBroker{}

	a, err := NewAgent(cfg,
		WithCollector(&stubCollector{startErr: startErr}),
		WithMetricsRegistry(prometheus.NewRegistry()),
		WithEmitterOptions(WithLogger(zap.NewNop()), WithBroker(b)))
	if err != nil {
		t.Fatalf("NewAgent returned error: %v", err)
	}

	if err := a.Run(context.Background()); !errors.Is(err, startErr) {
		t.Fatalf("expected collector start error, got %v", err)
	}
	if !b.wasStopped() {
		t.Fatalf("expected broker to be stopped after a failed start")
	}
	if err := a.Emitter().Close(context.Background()); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestAgentStartRejectsBadMachineConfigBeforeConnecting(t *testing.T) {
	cfg := testConfig(t)
	b := &trackingBroker{}

	a, err := NewAgent(cfg,
		WithCollector(&stubCollector{}),
		WithMetricsRegistry(prometheus.NewRegistry()),
		WithEmitterOptions(WithLogger(zap.NewNop()), WithBroker(b)))
	if err != nil {
		t.Fatalf("NewAgent returned error: %v", err)
	}
	defer a.Shutdown(context.Background())

	cfg.Machine.InitialAction = "Launch"
	if err := a.Start(context.Background()); !errors.Is(err, ErrUnrecognizedVocabulary) {
		t.Fatalf("expected ErrUnrecognizedVocabulary, got %v", err)
	}
	if b.wasStarted() {
		t.Fatalf("broker must not be connected when the machine section is invalid")
	}
}

type trackingBroker struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (b *trackingBroker) Start(context.Context) error {
	b.mu.Lock()
	b.started = true
	b.mu.Unlock()
	return nil
}

func (b *trackingBroker) Send(context.Context, string, []byte) error { return nil }

func (b *trackingBroker) Stop(context.Context) error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	return nil
}

func (b *trackingBroker) Name() string { return "tracking" }

func (b *trackingBroker) wasStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

func (b *trackingBroker) wasStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

type stubCollector struct {
	readings []*domain.Reading
	startErr error

	mu   sync.Mutex
	done bool
}

func (s *stubCollector) Start(out chan<- *domain.Reading) error {
	if s.startErr != nil {
		return s.startErr
	}
	go func() {
		for _, r := range s.readings {
			out <- r
		}
	}()
	return nil
}

func (s *stubCollector) Stop() error {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	return nil
}

func (s *stubCollector) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

type stubTransformer struct{}

func (s *stubTransformer) Transform(r *domain.Reading) (*domain.Reading, error) {
	return r, nil
}
func (s *stubTransformer) Version() uint16 { return 42 }

type stubQueue struct{}

func (s *stubQueue) Enqueue(*domain.Reading) bool       { return true }
func (s *stubQueue) DequeueBatch(int) []*domain.Reading { return nil }
func (s *stubQueue) Len() int                           { return 0 }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
