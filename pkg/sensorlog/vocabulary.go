package sensorlog

import "github.com/ghalamif/SensorLog/internal/domain"

// Vocabulary types are closed sets with stable external names. The zero value
// of each is invalid.
type (
	Channel           = domain.Channel
	Product           = domain.Product
	DataCenter        = domain.DataCenter
	Status            = domain.Status
	Action            = domain.Action
	SensorType        = domain.SensorType
	UnitOfMeasurement = domain.UnitOfMeasurement
	SensorKind        = domain.SensorKind
)

// UnrecognizedVocabularyError names an unknown vocabulary string and the
// accepted values.
type UnrecognizedVocabularyError = domain.UnrecognizedVocabularyError

// Channels.
const (
	ChannelSensor      = domain.ChannelSensor
	ChannelSystem      = domain.ChannelSystem
	ChannelManualInput = domain.ChannelManualInput
)

// Products.
const (
	ProductMachineMonitoring  = domain.ProductMachineMonitoring
	ProductFactoryAutomation  = domain.ProductFactoryAutomation
	ProductPowerPlant         = domain.ProductPowerPlant
	ProductOilAndGas          = domain.ProductOilAndGas
	ProductChemicalProcessing = domain.ProductChemicalProcessing
	ProductHeavyEquipment     = domain.ProductHeavyEquipment
	ProductMetalProduction    = domain.ProductMetalProduction
)

// Data centers.
const (
	DataCenterFactory1      = domain.DataCenterFactory1
	DataCenterFactory2      = domain.DataCenterFactory2
	DataCenterWarehouse     = domain.DataCenterWarehouse
	DataCenterPowerPlant    = domain.DataCenterPowerPlant
	DataCenterChemicalPlant = domain.DataCenterChemicalPlant
	DataCenterOilRefinery   = domain.DataCenterOilRefinery
)

// Statuses.
const (
	StatusNormal   = domain.StatusNormal
	StatusWarning  = domain.StatusWarning
	StatusCritical = domain.StatusCritical
	StatusFault    = domain.StatusFault
)

// Machine actions.
const (
	ActionStart         = domain.ActionStart
	ActionStop          = domain.ActionStop
	ActionMaintenance   = domain.ActionMaintenance
	ActionCalibration   = domain.ActionCalibration
	ActionErrorDetected = domain.ActionErrorDetected
	ActionReset         = domain.ActionReset
)

// Sensor kinds; each fixes the sensor type and unit of its records.
const (
	KindVibration   = domain.KindVibration
	KindTemperature = domain.KindTemperature
	KindPressure    = domain.KindPressure
	KindElectrical  = domain.KindElectrical
	KindHumidity    = domain.KindHumidity
	KindFlow        = domain.KindFlow
	KindCurrent     = domain.KindCurrent
	KindGas         = domain.KindGas
	KindSpeed       = domain.KindSpeed
	KindTorque      = domain.KindTorque
	KindLight       = domain.KindLight
	KindPH          = domain.KindPH
)

// Parsers accept the external names, e.g. ParseDataCenter("Factory 1").
var (
	ParseChannel    = domain.ParseChannel
	ParseProduct    = domain.ParseProduct
	ParseDataCenter = domain.ParseDataCenter
	ParseStatus     = domain.ParseStatus
	ParseAction     = domain.ParseAction
	ParseSensorKind = domain.ParseSensorKind
)
