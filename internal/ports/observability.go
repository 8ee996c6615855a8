package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}

// Metric names shared by the pipeline, the agent and the Prometheus adapter.
const (
	MetricRecordsEmitted    = "sensorlog_records_emitted_total"
	MetricRecordsRejected   = "sensorlog_records_rejected_total"
	MetricBrokerFailures    = "sensorlog_broker_failures_total"
	MetricJournalFailures   = "sensorlog_journal_failures_total"
	MetricStatusTransitions = "sensorlog_status_transitions_total"
	MetricQueueDropped      = "sensorlog_queue_dropped_total"
	MetricJournalSize       = "sensorlog_journal_size_bytes"
	MetricQueueLength       = "sensorlog_queue_length"
	MetricDispatchLatency   = "sensorlog_dispatch_latency_seconds"
)
