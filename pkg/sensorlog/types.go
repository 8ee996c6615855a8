package sensorlog

import (
	"github.com/ghalamif/SensorLog/internal/app/pipeline"
	"github.com/ghalamif/SensorLog/internal/app/status"
	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// Reading is the input of a sensor emission. Kind selects the sensor type and
// unit; the record timestamp is always the emission instant.
type Reading = domain.Reading

// Metadata is the open key/value mapping attached to every record.
type Metadata = domain.Metadata

// SensorRecord is the serialized form of one sensor reading.
type SensorRecord = domain.SensorRecord

// MachineStatusRecord is the serialized form of one machine action.
type MachineStatusRecord = domain.MachineStatusRecord

// StatusChange describes a machine status transition.
type StatusChange = status.Change

// Broker is the remote sink records are dispatched to.
type Broker = ports.Broker

// Journal is the durable local sink.
type Journal = ports.Journal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// Collector streams readings from any data source (OPC UA, simulators, etc.) into the agent.
type Collector = ports.Collector

// ReadingQueue is the bounded queue between collector and pipeline.
type ReadingQueue = ports.ReadingQueue

// Transformer lets callers calibrate or enrich readings before emission.
type Transformer = ports.Transformer

// Observability emits metrics/logs about emission, delivery and queueing.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// ErrorHandler receives delivery failures: op is "broker_start",
// "broker_send", "journal_append" or "broker_stop".
type ErrorHandler = pipeline.ErrorHandler

// Metadata keys derived from the machine status.
const (
	KeyMachineStatus    = status.KeyMachineStatus
	KeyUptime           = status.KeyUptime
	KeyDowntime         = status.KeyDowntime
	KeyPreviousStatus   = pipeline.KeyPreviousStatus
	KeyPreviousDuration = pipeline.KeyPreviousDuration
	KeyHostname         = pipeline.KeyHostname
	KeyIP               = pipeline.KeyIP
	StatusUnknown       = status.Unknown
)

var (
	ErrUnrecognizedVocabulary = domain.ErrUnrecognizedVocabulary
	ErrInvalidMeasurement     = domain.ErrInvalidMeasurement
	ErrSinkUnavailable        = domain.ErrSinkUnavailable
	ErrSinkSendFailed         = domain.ErrSinkSendFailed
	ErrPipelineClosed         = domain.ErrPipelineClosed
	ErrChannelBrokerClosed    = domain.ErrChannelBrokerClosed
)
