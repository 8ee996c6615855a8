package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// TimestampLayout renders record timestamps as ISO-8601 UTC with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// SensorRecord is one sensor reading as it is written to the journal and the broker.
type SensorRecord struct {
	Timestamp   time.Time
	SensorID    string
	Channel     Channel
	DataCenter  DataCenter
	Duration    float64
	Measurement float64
	Product     Product
	Status      Status
	Type        SensorType
	Unit        UnitOfMeasurement
	Metadata    Metadata
}

type sensorRecordJSON struct {
	Timestamp   string            `json:"timestamp"`
	SensorID    string            `json:"sensor_id"`
	Channel     Channel           `json:"channel"`
	DataCenter  DataCenter        `json:"data_center"`
	Duration    float64           `json:"duration"`
	Measurement float64           `json:"measurement"`
	Product     Product           `json:"product"`
	Status      Status            `json:"status"`
	Type        SensorType        `json:"type"`
	Unit        UnitOfMeasurement `json:"unit"`
	Metadata    Metadata          `json:"metadata"`
}

// BuildSensorRecord validates r and stamps it with now. The sensor type and
// unit come from r.Kind and cannot be chosen by the caller.
func BuildSensorRecord(now time.Time, r Reading) (SensorRecord, error) {
	sensorType, unit, ok := r.Kind.Pair()
	if !ok {
		return SensorRecord{}, sensorKinds.check(r.Kind)
	}
	for _, err := range []error{
		channels.check(r.Channel),
		dataCenters.check(r.DataCenter),
		products.check(r.Product),
		statuses.check(r.Status),
	} {
		if err != nil {
			return SensorRecord{}, err
		}
	}
	if math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0) || r.Duration < 0 {
		return SensorRecord{}, fmt.Errorf("%w: duration %v must be a finite number of seconds >= 0", ErrInvalidMeasurement, r.Duration)
	}
	if math.IsNaN(r.Measurement) || math.IsInf(r.Measurement, 0) {
		return SensorRecord{}, fmt.Errorf("%w: measurement %v is not finite", ErrInvalidMeasurement, r.Measurement)
	}

	return SensorRecord{
		Timestamp:   now.UTC(),
		SensorID:    r.SensorID,
		Channel:     r.Channel,
		DataCenter:  r.DataCenter,
		Duration:    r.Duration,
		Measurement: r.Measurement,
		Product:     r.Product,
		Status:      r.Status,
		Type:        sensorType,
		Unit:        unit,
		Metadata:    r.Metadata.Clone(),
	}, nil
}

func (r SensorRecord) MarshalJSON() ([]byte, error) {
	md := r.Metadata
	if md == nil {
		md = Metadata{}
	}
	return json.Marshal(sensorRecordJSON{
		Timestamp:   r.Timestamp.UTC().Format(TimestampLayout),
		SensorID:    r.SensorID,
		Channel:     r.Channel,
		DataCenter:  r.DataCenter,
		Duration:    r.Duration,
		Measurement: r.Measurement,
		Product:     r.Product,
		Status:      r.Status,
		Type:        r.Type,
		Unit:        r.Unit,
		Metadata:    md,
	})
}

func (r *SensorRecord) UnmarshalJSON(data []byte) error {
	var raw sensorRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("sensor record timestamp: %w", err)
	}
	*r = SensorRecord{
		Timestamp:   ts.UTC(),
		SensorID:    raw.SensorID,
		Channel:     raw.Channel,
		DataCenter:  raw.DataCenter,
		Duration:    raw.Duration,
		Measurement: raw.Measurement,
		Product:     raw.Product,
		Status:      raw.Status,
		Type:        raw.Type,
		Unit:        raw.Unit,
		Metadata:    raw.Metadata.Clone(),
	}
	return nil
}

// MachineStatusRecord captures an explicit machine action change.
type MachineStatusRecord struct {
	Timestamp time.Time
	Action    Action
	Metadata  Metadata
}

type machineStatusRecordJSON struct {
	Timestamp string   `json:"timestamp"`
	Action    Action   `json:"action"`
	Metadata  Metadata `json:"metadata"`
}

// BuildMachineStatusRecord stamps action with now.
func BuildMachineStatusRecord(now time.Time, action Action, metadata Metadata) (MachineStatusRecord, error) {
	if err := actions.check(action); err != nil {
		return MachineStatusRecord{}, err
	}
	return MachineStatusRecord{
		Timestamp: now.UTC(),
		Action:    action,
		Metadata:  metadata.Clone(),
	}, nil
}

func (r MachineStatusRecord) MarshalJSON() ([]byte, error) {
	md := r.Metadata
	if md == nil {
		md = Metadata{}
	}
	return json.Marshal(machineStatusRecordJSON{
		Timestamp: r.Timestamp.UTC().Format(TimestampLayout),
		Action:    r.Action,
		Metadata:  md,
	})
}

func (r *MachineStatusRecord) UnmarshalJSON(data []byte) error {
	var raw machineStatusRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("machine status record timestamp: %w", err)
	}
	*r = MachineStatusRecord{
		Timestamp: ts.UTC(),
		Action:    raw.Action,
		Metadata:  raw.Metadata.Clone(),
	}
	return nil
}
