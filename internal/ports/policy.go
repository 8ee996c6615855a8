package ports

import "time"

type Policy struct {
	DispatchEnabled bool
	Topic           string
	SendTimeout     time.Duration
	DrainTimeout    time.Duration

	MaxQueueLen  int
	MaxBatchSize int
	IdleSleep    time.Duration
	OnQueueFull  string // "block", "drop", "reject"
}
