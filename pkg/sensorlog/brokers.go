package sensorlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghalamif/SensorLog/internal/domain"
)

// Message is one payload handed to an in-process broker.
type Message struct {
	Topic   string
	Payload []byte
}

// SendFunc receives every dispatched payload.
type SendFunc func(topic string, payload []byte) error

// NewCallbackBroker adapts a SendFunc into a full Broker implementation so
// callers can plug arbitrary functions without defining structs.
func NewCallbackBroker(name string, fn SendFunc) Broker {
	if name == "" {
		name = "callback"
	}
	return &callbackBroker{name: name, fn: fn}
}

// NewChannelBroker exposes payloads via a channel; it returns the broker, the
// read-only channel, and a close function that the caller should invoke
// during shutdown. Send blocks while the buffer is full, until ctx ends.
func NewChannelBroker(name string, buffer int) (Broker, <-chan Message, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Message, buffer)
	b := &channelBroker{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return b, ch, b.close
}

type callbackBroker struct {
	name string
	fn   SendFunc
}

func (b *callbackBroker) Start(context.Context) error {
	if b.fn == nil {
		return fmt.Errorf("%w: callback broker %q: nil handler", domain.ErrSinkUnavailable, b.name)
	}
	return nil
}

func (b *callbackBroker) Send(_ context.Context, topic string, payload []byte) error {
	if b.fn == nil {
		return fmt.Errorf("%w: callback broker %q: nil handler", domain.ErrSinkUnavailable, b.name)
	}
	return b.fn(topic, payload)
}

func (b *callbackBroker) Stop(context.Context) error { return nil }

func (b *callbackBroker) Name() string { return b.name }

type channelBroker struct {
	name   string
	ch     chan Message
	closed chan struct{}
	once   sync.Once

	// mu orders sends against close so a send never hits a closed channel.
	mu       sync.RWMutex
	isClosed bool
}

func (b *channelBroker) Start(context.Context) error {
	select {
	case <-b.closed:
		return fmt.Errorf("%w: %w", domain.ErrSinkUnavailable, domain.ErrChannelBrokerClosed)
	default:
		return nil
	}
}

func (b *channelBroker) Send(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.isClosed {
		return domain.ErrChannelBrokerClosed
	}

	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	select {
	case <-b.closed:
		return domain.ErrChannelBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	case b.ch <- msg:
		return nil
	}
}

func (b *channelBroker) Stop(context.Context) error { return nil }

func (b *channelBroker) Name() string { return b.name }

func (b *channelBroker) close() {
	// closed is signalled first so senders blocked on a full buffer release
	// their read lock.
	b.once.Do(func() { close(b.closed) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed {
		return
	}
	b.isClosed = true
	close(b.ch)
}
