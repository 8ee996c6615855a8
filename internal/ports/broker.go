package ports

import "context"

// Broker is the remote sink serialized records are dispatched to.
//
// Start is idempotent and fails with domain.ErrSinkUnavailable when the
// broker cannot be reached. Send fails with domain.ErrSinkSendFailed; callers
// decide whether to retry. Stop drains buffered payloads before releasing the
// connection.
type Broker interface {
	Start(ctx context.Context) error
	Send(ctx context.Context, topic string, payload []byte) error
	Stop(ctx context.Context) error
	Name() string
}
