package sensorlog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	base "github.com/ghalamif/SensorLog/pkg/sensorlog"
)

// Re-exported errors for convenience.
var (
	ErrUnrecognizedVocabulary = base.ErrUnrecognizedVocabulary
	ErrInvalidMeasurement     = base.ErrInvalidMeasurement
	ErrSinkUnavailable        = base.ErrSinkUnavailable
	ErrSinkSendFailed         = base.ErrSinkSendFailed
	ErrPipelineClosed         = base.ErrPipelineClosed
	ErrChannelBrokerClosed    = base.ErrChannelBrokerClosed
)

// Type aliases so consumers can import github.com/ghalamif/SensorLog directly.
type (
	Config              = base.Config
	Policy              = base.Policy
	BrokerConfig        = base.BrokerConfig
	JournalConfig       = base.JournalConfig
	DispatchConfig      = base.DispatchConfig
	LoggingConfig       = base.LoggingConfig
	MetricsConfig       = base.MetricsConfig
	MachineConfig       = base.MachineConfig
	OPCUAConfig         = base.OPCUAConfig
	OPCUANodeConfig     = base.OPCUANodeConfig
	Reading             = base.Reading
	Metadata            = base.Metadata
	SensorRecord        = base.SensorRecord
	MachineStatusRecord = base.MachineStatusRecord
	StatusChange        = base.StatusChange
	Broker              = base.Broker
	Journal             = base.Journal
	JournalStats        = base.JournalStats
	Collector           = base.Collector
	ReadingQueue        = base.ReadingQueue
	Transformer         = base.Transformer
	Observability       = base.Observability
	Field               = base.Field
	ErrorHandler        = base.ErrorHandler
	Emitter             = base.Emitter
	Option              = base.Option
	Agent               = base.Agent
	AgentOption         = base.AgentOption
	Flow                = base.Flow
	FlowOption          = base.FlowOption
	StreamInOption      = base.StreamInOption
	StreamOutOption     = base.StreamOutOption
	Message             = base.Message
	SendFunc            = base.SendFunc
	Channel             = base.Channel
	Product             = base.Product
	DataCenter          = base.DataCenter
	Status              = base.Status
	Action              = base.Action
	SensorType          = base.SensorType
	UnitOfMeasurement   = base.UnitOfMeasurement
	SensorKind          = base.SensorKind
)

// Metadata keys derived from the machine status.
const (
	KeyMachineStatus    = base.KeyMachineStatus
	KeyUptime           = base.KeyUptime
	KeyDowntime         = base.KeyDowntime
	KeyPreviousStatus   = base.KeyPreviousStatus
	KeyPreviousDuration = base.KeyPreviousDuration
	KeyHostname         = base.KeyHostname
	KeyIP               = base.KeyIP
	StatusUnknown       = base.StatusUnknown
)

// Vocabulary values.
const (
	ChannelSensor             = base.ChannelSensor
	ChannelSystem             = base.ChannelSystem
	ChannelManualInput        = base.ChannelManualInput
	ProductMachineMonitoring  = base.ProductMachineMonitoring
	ProductFactoryAutomation  = base.ProductFactoryAutomation
	ProductPowerPlant         = base.ProductPowerPlant
	ProductOilAndGas          = base.ProductOilAndGas
	ProductChemicalProcessing = base.ProductChemicalProcessing
	ProductHeavyEquipment     = base.ProductHeavyEquipment
	ProductMetalProduction    = base.ProductMetalProduction
	DataCenterFactory1        = base.DataCenterFactory1
	DataCenterFactory2        = base.DataCenterFactory2
	DataCenterWarehouse       = base.DataCenterWarehouse
	DataCenterPowerPlant      = base.DataCenterPowerPlant
	DataCenterChemicalPlant   = base.DataCenterChemicalPlant
	DataCenterOilRefinery     = base.DataCenterOilRefinery
	StatusNormal              = base.StatusNormal
	StatusWarning             = base.StatusWarning
	StatusCritical            = base.StatusCritical
	StatusFault               = base.StatusFault
	ActionStart               = base.ActionStart
	ActionStop                = base.ActionStop
	ActionMaintenance         = base.ActionMaintenance
	ActionCalibration         = base.ActionCalibration
	ActionErrorDetected       = base.ActionErrorDetected
	ActionReset               = base.ActionReset
	KindVibration             = base.KindVibration
	KindTemperature           = base.KindTemperature
	KindPressure              = base.KindPressure
	KindElectrical            = base.KindElectrical
	KindHumidity              = base.KindHumidity
	KindFlow                  = base.KindFlow
	KindCurrent               = base.KindCurrent
	KindGas                   = base.KindGas
	KindSpeed                 = base.KindSpeed
	KindTorque                = base.KindTorque
	KindLight                 = base.KindLight
	KindPH                    = base.KindPH
)

// Vocabulary parsers.
var (
	ParseChannel    = base.ParseChannel
	ParseProduct    = base.ParseProduct
	ParseDataCenter = base.ParseDataCenter
	ParseStatus     = base.ParseStatus
	ParseAction     = base.ParseAction
	ParseSensorKind = base.ParseSensorKind
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Emitter and options.
func NewEmitter(cfg *Config, opts ...Option) (*Emitter, error) {
	return base.NewEmitter(cfg, opts...)
}

func WithBroker(b Broker) Option {
	return base.WithBroker(b)
}

func WithJournal(j Journal) Option {
	return base.WithJournal(j)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}

func WithLogger(l *zap.Logger) Option {
	return base.WithLogger(l)
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return base.WithRegisterer(reg)
}

func WithClock(clock func() time.Time) Option {
	return base.WithClock(clock)
}

func WithErrorHandler(fn ErrorHandler) Option {
	return base.WithErrorHandler(fn)
}

func WithHostIdentity(hostname, ip string) Option {
	return base.WithHostIdentity(hostname, ip)
}

// Agent and options.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	return base.NewAgent(cfg, opts...)
}

func WithCollector(col Collector) AgentOption {
	return base.WithCollector(col)
}

func WithTransformer(tr Transformer) AgentOption {
	return base.WithTransformer(tr)
}

func WithReadingQueue(q ReadingQueue) AgentOption {
	return base.WithReadingQueue(q)
}

func WithEmitterOptions(opts ...Option) AgentOption {
	return base.WithEmitterOptions(opts...)
}

func WithMetricsRegistry(reg *prometheus.Registry) AgentOption {
	return base.WithMetricsRegistry(reg)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...AgentOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInQueue(q ReadingQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamOutTransformer(tr Transformer) StreamOutOption {
	return base.StreamOutTransformer(tr)
}

func StreamOutBroker(b Broker) StreamOutOption {
	return base.StreamOutBroker(b)
}

func StreamOutJournal(j Journal) StreamOutOption {
	return base.StreamOutJournal(j)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn SendFunc) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// In-process brokers.
func NewCallbackBroker(name string, fn SendFunc) Broker {
	return base.NewCallbackBroker(name, fn)
}

func NewChannelBroker(name string, buffer int) (Broker, <-chan Message, func()) {
	return base.NewChannelBroker(name, buffer)
}
