package domain

import (
	"fmt"
	"slices"
)

// vocabulary maps the values of a closed uint8 enumeration to their external
// strings. Value v is stored at names[v-1]; the zero value is never valid.
type vocabulary[T ~uint8] struct {
	kind  string
	names []string
}

func (v vocabulary[T]) valid(x T) bool {
	return x > 0 && int(x) <= len(v.names)
}

func (v vocabulary[T]) name(x T) string {
	if !v.valid(x) {
		return fmt.Sprintf("%s(%d)", v.kind, uint8(x))
	}
	return v.names[x-1]
}

func (v vocabulary[T]) parse(s string) (T, error) {
	for i, n := range v.names {
		if n == s {
			return T(i + 1), nil
		}
	}
	return 0, &UnrecognizedVocabularyError{
		Vocabulary: v.kind,
		Value:      s,
		Expected:   slices.Clone(v.names),
	}
}

func (v vocabulary[T]) marshal(x T) ([]byte, error) {
	if !v.valid(x) {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedVocabulary, v.name(x))
	}
	return []byte(v.names[x-1]), nil
}

func (v vocabulary[T]) check(x T) error {
	if v.valid(x) {
		return nil
	}
	return &UnrecognizedVocabularyError{
		Vocabulary: v.kind,
		Value:      v.name(x),
		Expected:   slices.Clone(v.names),
	}
}

func (v vocabulary[T]) all() []T {
	out := make([]T, len(v.names))
	for i := range v.names {
		out[i] = T(i + 1)
	}
	return out
}

// Channel is the source a record came from.
type Channel uint8

const (
	ChannelSensor Channel = iota + 1
	ChannelSystem
	ChannelManualInput
)

var channels = vocabulary[Channel]{kind: "channel", names: []string{
	"Sensor",
	"System",
	"Manual Input",
}}

func ParseChannel(s string) (Channel, error)   { return channels.parse(s) }
func Channels() []Channel                      { return channels.all() }
func (c Channel) Valid() bool                  { return channels.valid(c) }
func (c Channel) String() string               { return channels.name(c) }
func (c Channel) MarshalText() ([]byte, error) { return channels.marshal(c) }
func (c *Channel) UnmarshalText(text []byte) (err error) {
	*c, err = channels.parse(string(text))
	return err
}

// Product is the product line or business unit a machine belongs to.
type Product uint8

const (
	ProductMachineMonitoring Product = iota + 1
	ProductFactoryAutomation
	ProductPowerPlant
	ProductOilAndGas
	ProductChemicalProcessing
	ProductHeavyEquipment
	ProductMetalProduction
)

var products = vocabulary[Product]{kind: "product", names: []string{
	"Machine Monitoring",
	"Factory Automation",
	"Power Plant",
	"Oil and Gas",
	"Chemical Processing",
	"Heavy Equipment",
	"Metal Production",
}}

func ParseProduct(s string) (Product, error)   { return products.parse(s) }
func Products() []Product                      { return products.all() }
func (p Product) Valid() bool                  { return products.valid(p) }
func (p Product) String() string               { return products.name(p) }
func (p Product) MarshalText() ([]byte, error) { return products.marshal(p) }
func (p *Product) UnmarshalText(text []byte) (err error) {
	*p, err = products.parse(string(text))
	return err
}

// DataCenter is the site where the machine is installed.
type DataCenter uint8

const (
	DataCenterFactory1 DataCenter = iota + 1
	DataCenterFactory2
	DataCenterWarehouse
	DataCenterPowerPlant
	DataCenterChemicalPlant
	DataCenterOilRefinery
)

var dataCenters = vocabulary[DataCenter]{kind: "data center", names: []string{
	"Factory 1",
	"Factory 2",
	"Warehouse",
	"Power Plant",
	"Chemical Plant",
	"Oil Refinery",
}}

func ParseDataCenter(s string) (DataCenter, error) { return dataCenters.parse(s) }
func DataCenters() []DataCenter                    { return dataCenters.all() }
func (d DataCenter) Valid() bool                   { return dataCenters.valid(d) }
func (d DataCenter) String() string                { return dataCenters.name(d) }
func (d DataCenter) MarshalText() ([]byte, error)  { return dataCenters.marshal(d) }
func (d *DataCenter) UnmarshalText(text []byte) (err error) {
	*d, err = dataCenters.parse(string(text))
	return err
}

// Status is the health classification attached to a reading.
type Status uint8

const (
	StatusNormal Status = iota + 1
	StatusWarning
	StatusCritical
	StatusFault
)

var statuses = vocabulary[Status]{kind: "status", names: []string{
	"Normal",
	"Warning",
	"Critical",
	"Fault",
}}

func ParseStatus(s string) (Status, error)    { return statuses.parse(s) }
func Statuses() []Status                      { return statuses.all() }
func (s Status) Valid() bool                  { return statuses.valid(s) }
func (s Status) String() string               { return statuses.name(s) }
func (s Status) MarshalText() ([]byte, error) { return statuses.marshal(s) }
func (s *Status) UnmarshalText(text []byte) (err error) {
	*s, err = statuses.parse(string(text))
	return err
}

// Action is an operation performed on a machine; the current action drives
// uptime and downtime attribution.
type Action uint8

const (
	ActionStart Action = iota + 1
	ActionStop
	ActionMaintenance
	ActionCalibration
	ActionErrorDetected
	ActionReset
)

var actions = vocabulary[Action]{kind: "action", names: []string{
	"Start",
	"Stop",
	"Maintenance",
	"Calibration",
	"Error Detected",
	"Reset",
}}

func ParseAction(s string) (Action, error)    { return actions.parse(s) }
func Actions() []Action                       { return actions.all() }
func (a Action) Valid() bool                  { return actions.valid(a) }
func (a Action) String() string               { return actions.name(a) }
func (a Action) MarshalText() ([]byte, error) { return actions.marshal(a) }
func (a *Action) UnmarshalText(text []byte) (err error) {
	*a, err = actions.parse(string(text))
	return err
}

// Validate returns an *UnrecognizedVocabularyError for values outside the set.
func (a Action) Validate() error { return actions.check(a) }

// Running reports whether time spent in this action counts as uptime.
func (a Action) Running() bool { return a == ActionStart }

// Halted reports whether time spent in this action counts as downtime.
func (a Action) Halted() bool {
	switch a {
	case ActionStop, ActionMaintenance, ActionCalibration:
		return true
	default:
		return false
	}
}

// SensorType names the physical sensor family.
type SensorType uint8

const (
	SensorTypeVibration SensorType = iota + 1
	SensorTypeTemperature
	SensorTypePressure
	SensorTypeHumidity
	SensorTypeFlow
	SensorTypeElectrical
	SensorTypeCurrent
	SensorTypeGas
	SensorTypeSpeed
	SensorTypeTorque
	SensorTypeLight
	SensorTypePH
)

var sensorTypes = vocabulary[SensorType]{kind: "sensor type", names: []string{
	"Vibration Sensor",
	"Temperature Sensor",
	"Pressure Sensor",
	"Humidity Sensor",
	"Flow Sensor",
	"Electrical Sensor",
	"Current Sensor",
	"Gas Sensor",
	"Speed Sensor",
	"Torque Sensor",
	"Light Sensor",
	"pH Sensor",
}}

func ParseSensorType(s string) (SensorType, error) { return sensorTypes.parse(s) }
func (t SensorType) Valid() bool                   { return sensorTypes.valid(t) }
func (t SensorType) String() string                { return sensorTypes.name(t) }
func (t SensorType) MarshalText() ([]byte, error)  { return sensorTypes.marshal(t) }
func (t *SensorType) UnmarshalText(text []byte) (err error) {
	*t, err = sensorTypes.parse(string(text))
	return err
}

// UnitOfMeasurement is the unit a measurement is expressed in.
type UnitOfMeasurement uint8

const (
	UnitHertz UnitOfMeasurement = iota + 1
	UnitCelsius
	UnitFahrenheit
	UnitBar
	UnitPascal
	UnitLitersPerSecond
	UnitAmpere
	UnitVoltage
	UnitPercent
	UnitMetersPerSecond
	UnitNewtonMeter
	UnitLux
	UnitPHValue
)

var units = vocabulary[UnitOfMeasurement]{kind: "unit", names: []string{
	"Hz",
	"°C",
	"°F",
	"Bar",
	"Pa",
	"L/s",
	"A",
	"V",
	"%",
	"m/s",
	"Nm",
	"lux",
	"pH",
}}

func ParseUnit(s string) (UnitOfMeasurement, error)      { return units.parse(s) }
func (u UnitOfMeasurement) Valid() bool                  { return units.valid(u) }
func (u UnitOfMeasurement) String() string               { return units.name(u) }
func (u UnitOfMeasurement) MarshalText() ([]byte, error) { return units.marshal(u) }
func (u *UnitOfMeasurement) UnmarshalText(text []byte) (err error) {
	*u, err = units.parse(string(text))
	return err
}

// SensorKind selects the emission operation, and with it the fixed
// (SensorType, UnitOfMeasurement) pair recorded on every reading.
type SensorKind uint8

const (
	KindVibration SensorKind = iota + 1
	KindTemperature
	KindPressure
	KindElectrical
	KindHumidity
	KindFlow
	KindCurrent
	KindGas
	KindSpeed
	KindTorque
	KindLight
	KindPH
)

var sensorKinds = vocabulary[SensorKind]{kind: "sensor kind", names: []string{
	"vibration",
	"temperature",
	"pressure",
	"electrical",
	"humidity",
	"flow",
	"current",
	"gas",
	"speed",
	"torque",
	"light",
	"ph",
}}

type kindSpec struct {
	sensorType SensorType
	unit       UnitOfMeasurement
}

var kindTable = map[SensorKind]kindSpec{
	KindVibration:   {SensorTypeVibration, UnitHertz},
	KindTemperature: {SensorTypeTemperature, UnitCelsius},
	KindPressure:    {SensorTypePressure, UnitBar},
	KindElectrical:  {SensorTypeElectrical, UnitAmpere},
	KindHumidity:    {SensorTypeHumidity, UnitPercent},
	KindFlow:        {SensorTypeFlow, UnitLitersPerSecond},
	KindCurrent:     {SensorTypeCurrent, UnitAmpere},
	KindGas:         {SensorTypeGas, UnitPercent},
	KindSpeed:       {SensorTypeSpeed, UnitMetersPerSecond},
	KindTorque:      {SensorTypeTorque, UnitNewtonMeter},
	KindLight:       {SensorTypeLight, UnitLux},
	KindPH:          {SensorTypePH, UnitPHValue},
}

func ParseSensorKind(s string) (SensorKind, error) { return sensorKinds.parse(s) }
func SensorKinds() []SensorKind                    { return sensorKinds.all() }
func (k SensorKind) Valid() bool                   { return sensorKinds.valid(k) }
func (k SensorKind) String() string                { return sensorKinds.name(k) }
func (k SensorKind) MarshalText() ([]byte, error)  { return sensorKinds.marshal(k) }
func (k *SensorKind) UnmarshalText(text []byte) (err error) {
	*k, err = sensorKinds.parse(string(text))
	return err
}

func (k SensorKind) Validate() error { return sensorKinds.check(k) }

// Pair returns the sensor type and unit fixed for k.
func (k SensorKind) Pair() (SensorType, UnitOfMeasurement, bool) {
	spec, ok := kindTable[k]
	return spec.sensorType, spec.unit, ok
}
