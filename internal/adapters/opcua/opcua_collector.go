package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"go.uber.org/zap"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint         string        `yaml:"endpoint"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	SecurityMode     string        `yaml:"security_mode"`
	SecurityPolicy   string        `yaml:"security_policy"`
	ApplicationName  string        `yaml:"application_name"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	Nodes            []NodeConfig  `yaml:"nodes"`
}

// NodeConfig maps a monitored node to a sensor. Kind names the sensor kind
// (vibration, temperature, ...); Scale and Offset calibrate the raw value as
// raw*Scale + Offset.
type NodeConfig struct {
	NodeID   string  `yaml:"node_id"`
	SensorID string  `yaml:"sensor_id"`
	Kind     string  `yaml:"kind"`
	Scale    float64 `yaml:"scale"`
	Offset   float64 `yaml:"offset"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "SensorLog Agent"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
	for i := range c.Nodes {
		if c.Nodes[i].SensorID == "" {
			c.Nodes[i].SensorID = c.Nodes[i].NodeID
		}
		if c.Nodes[i].Scale == 0 {
			c.Nodes[i].Scale = 1
		}
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	for _, n := range c.Nodes {
		if n.NodeID == "" {
			return errors.New("node_id is required")
		}
		if _, err := domain.ParseSensorKind(n.Kind); err != nil {
			return fmt.Errorf("node %q: %w", n.NodeID, err)
		}
	}
	return nil
}

// Collector subscribes to the configured nodes and turns every data change
// into a Reading. Duration is the time since the previous value of the same
// sensor, zero for the first one.
type Collector struct {
	cfg       Config
	log       *zap.Logger
	client    *opcua.Client
	sub       *opcua.Subscription
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	handleMap map[uint32]node
	lastSeen  map[string]time.Time
	mu        sync.Mutex
	started   bool
}

type node struct {
	NodeConfig
	kind domain.SensorKind
}

func NewCollector(cfg Config, log *zap.Logger) (*Collector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{
		cfg:      cfg,
		log:      log.Named("opcua"),
		lastSeen: make(map[string]time.Time),
	}, nil
}

func (c *Collector) Start(out chan<- *domain.Reading) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("opcua collector already started")
	}
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	client, err := opcua.NewClient(c.cfg.Endpoint, c.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(c.cfg.Nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: c.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	handleMap, err := c.monitor(ctx, sub)
	if err != nil {
		cancel()
		_ = sub.Cancel(ctx)
		_ = client.Close(ctx)
		return err
	}

	c.mu.Lock()
	c.client = client
	c.sub = sub
	c.cancel = cancel
	c.handleMap = handleMap
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consume(ctx, notifyCh, out)
	return nil
}

func (c *Collector) monitor(ctx context.Context, sub *opcua.Subscription) (map[uint32]node, error) {
	handleMap := make(map[uint32]node, len(c.cfg.Nodes))
	for i, cfg := range c.cfg.Nodes {
		nodeID, err := ua.ParseNodeID(cfg.NodeID)
		if err != nil {
			return nil, fmt.Errorf("parse node id %q: %w", cfg.NodeID, err)
		}
		kind, _ := domain.ParseSensorKind(cfg.Kind)

		handle := uint32(i + 1)
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if c.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(c.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			return nil, fmt.Errorf("monitor node %q: %w", cfg.NodeID, err)
		}
		if len(res.Results) == 0 {
			return nil, fmt.Errorf("monitor node %q failed: empty result", cfg.NodeID)
		}
		if res.Results[0].StatusCode != ua.StatusOK {
			return nil, fmt.Errorf("monitor node %q failed: %s", cfg.NodeID, res.Results[0].StatusCode)
		}
		handleMap[handle] = node{NodeConfig: cfg, kind: kind}
	}
	return handleMap, nil
}

// Stop cancels the subscription and closes the session. The output channel
// is left open.
func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	sub := c.sub
	client := c.client
	c.started = false
	c.cancel = nil
	c.sub = nil
	c.client = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	c.wg.Wait()
	return err
}

func (c *Collector) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData, out chan<- *domain.Reading) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				c.log.Warn("notification error", zap.Error(notif.Error))
				continue
			}
			data, ok := notif.Value.(*ua.DataChangeNotification)
			if !ok {
				continue
			}
			for _, item := range data.MonitoredItems {
				r, ok := c.reading(item)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- r:
				}
			}
		}
	}
}

func (c *Collector) reading(item *ua.MonitoredItemNotification) (*domain.Reading, bool) {
	if item == nil || item.Value == nil {
		return nil, false
	}
	c.mu.Lock()
	n, ok := c.handleMap[item.ClientHandle]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	fv, ok := variantToFloat(item.Value.Value)
	if !ok {
		c.log.Warn("unsupported value type",
			zap.String("node_id", n.NodeID),
			zap.String("type", fmt.Sprintf("%T", item.Value.Value)))
		return nil, false
	}

	ts := item.Value.SourceTimestamp
	if ts.IsZero() {
		ts = item.Value.ServerTimestamp
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	return &domain.Reading{
		Kind:         n.kind,
		SensorID:     n.SensorID,
		Duration:     c.sinceLast(n.SensorID, ts),
		Measurement:  fv,
		ObservedAt:   ts,
		SourceNodeID: n.NodeID,
	}, true
}

func (c *Collector) sinceLast(sensor string, ts time.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.lastSeen[sensor]
	c.lastSeen[sensor] = ts
	if !ok || !ts.After(prev) {
		return 0
	}
	return ts.Sub(prev).Seconds()
}

func (c *Collector) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(c.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(c.cfg.SecurityPolicy)),
		opcua.ApplicationName(c.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if c.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(c.cfg.Username, c.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Collector = (*Collector)(nil)
