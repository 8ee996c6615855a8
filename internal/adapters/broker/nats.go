package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

type NATSConfig struct {
	Endpoints     []string
	ClientName    string
	Username      string
	Password      string
	Token         string
	Timeout       time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
	DrainTimeout  time.Duration
}

func (c *NATSConfig) ApplyDefaults() {
	if c.ClientName == "" {
		c.ClientName = "sensorlog"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
}

func (c *NATSConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("nats: at least one endpoint is required")
	}
	return nil
}

// NATS publishes each payload on the subject named by the topic and flushes
// before Send returns.
type NATS struct {
	cfg NATSConfig

	mu   sync.Mutex
	conn *nats.Conn
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &NATS{cfg: cfg}, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) options() []nats.Option {
	opts := []nats.Option{
		nats.Name(n.cfg.ClientName),
		nats.Timeout(n.cfg.Timeout),
		nats.MaxReconnects(n.cfg.MaxReconnects),
		nats.ReconnectWait(n.cfg.ReconnectWait),
		nats.DrainTimeout(n.cfg.DrainTimeout),
	}
	if n.cfg.Username != "" && n.cfg.Password != "" {
		opts = append(opts, nats.UserInfo(n.cfg.Username, n.cfg.Password))
	}
	if n.cfg.Token != "" {
		opts = append(opts, nats.Token(n.cfg.Token))
	}
	return opts
}

func (n *NATS) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		return nil
	}

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(strings.Join(n.cfg.Endpoints, ","), n.options()...)
		done <- result{conn, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("%w: nats connect: %w", domain.ErrSinkUnavailable, res.err)
		}
		n.conn = res.conn
		return nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.conn != nil {
				res.conn.Close()
			}
		}()
		return fmt.Errorf("%w: nats connect: %w", domain.ErrSinkUnavailable, ctx.Err())
	}
}

func (n *NATS) Send(ctx context.Context, topic string, payload []byte) error {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: nats not started", domain.ErrSinkUnavailable)
	}

	if err := conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("%w: nats publish %s: %w", domain.ErrSinkSendFailed, topic, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: nats flush %s: %w", domain.ErrSinkSendFailed, topic, err)
	}
	return nil
}

// Stop drains pending publishes, giving up after DrainTimeout or when ctx
// ends.
func (n *NATS) Stop(ctx context.Context) error {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.mu.Unlock()
	if conn == nil {
		return nil
	}

	drainDone := make(chan error, 1)
	go func() { drainDone <- conn.Drain() }()

	select {
	case err := <-drainDone:
		if err != nil {
			conn.Close()
			return fmt.Errorf("nats drain: %w", err)
		}
		return nil
	case <-time.After(n.cfg.DrainTimeout):
		conn.Close()
		return fmt.Errorf("nats drain timeout after %v", n.cfg.DrainTimeout)
	case <-ctx.Done():
		conn.Close()
		return fmt.Errorf("nats drain: %w", ctx.Err())
	}
}

var _ ports.Broker = (*NATS)(nil)
