package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func validReading(kind SensorKind) Reading {
	return Reading{
		Kind:        kind,
		SensorID:    "sensor-1234",
		Channel:     ChannelSensor,
		DataCenter:  DataCenterFactory1,
		Product:     ProductMachineMonitoring,
		Status:      StatusNormal,
		Duration:    2.0,
		Measurement: 4.5,
		Metadata:    Metadata{"line": "A", "shift": float64(2)},
	}
}

func TestBuildSensorRecordFixesTypeAndUnitByKind(t *testing.T) {
	cases := map[SensorKind][2]string{
		KindVibration:   {"Vibration Sensor", "Hz"},
		KindTemperature: {"Temperature Sensor", "°C"},
		KindPressure:    {"Pressure Sensor", "Bar"},
		KindElectrical:  {"Electrical Sensor", "A"},
		KindHumidity:    {"Humidity Sensor", "%"},
		KindFlow:        {"Flow Sensor", "L/s"},
		KindTorque:      {"Torque Sensor", "Nm"},
		KindPH:          {"pH Sensor", "pH"},
	}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for kind, want := range cases {
		rec, err := BuildSensorRecord(now, validReading(kind))
		if err != nil {
			t.Fatalf("%s: build: %v", kind, err)
		}
		if rec.Type.String() != want[0] || rec.Unit.String() != want[1] {
			t.Fatalf("%s: expected (%s, %s), got (%s, %s)", kind, want[0], want[1], rec.Type, rec.Unit)
		}
	}
}

func TestEveryKindHasAPair(t *testing.T) {
	for _, kind := range SensorKinds() {
		if _, _, ok := kind.Pair(); !ok {
			t.Fatalf("kind %s has no sensor type/unit pair", kind)
		}
	}
}

func TestSensorRecordRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 15, 123456000, time.FixedZone("CET", 3600))
	rec, err := BuildSensorRecord(now, validReading(KindTemperature))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"timestamp", "sensor_id", "channel", "data_center", "duration", "measurement", "product", "status", "type", "unit", "metadata"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected key %q in %s", key, b)
		}
	}
	if raw["timestamp"] != "2025-03-01T11:30:15.123456Z" {
		t.Fatalf("unexpected timestamp %v", raw["timestamp"])
	}
	if raw["channel"] != "Sensor" || raw["data_center"] != "Factory 1" || raw["unit"] != "°C" {
		t.Fatalf("vocabulary not rendered as strings: %s", b)
	}

	var back SensorRecord
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Timestamp.Equal(rec.Timestamp) {
		t.Fatalf("timestamp mismatch: %s vs %s", back.Timestamp, rec.Timestamp)
	}
	if back.SensorID != rec.SensorID || back.Channel != rec.Channel || back.DataCenter != rec.DataCenter ||
		back.Product != rec.Product || back.Status != rec.Status || back.Type != rec.Type || back.Unit != rec.Unit ||
		back.Duration != rec.Duration || back.Measurement != rec.Measurement {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", back, rec)
	}
	if back.Metadata["line"] != "A" || back.Metadata["shift"] != float64(2) {
		t.Fatalf("metadata mismatch: %+v", back.Metadata)
	}
}

func TestBuildSensorRecordRejectsInvalidNumbers(t *testing.T) {
	now := time.Now()
	for name, mutate := range map[string]func(*Reading){
		"nan measurement":   func(r *Reading) { r.Measurement = math.NaN() },
		"inf measurement":   func(r *Reading) { r.Measurement = math.Inf(1) },
		"-inf measurement":  func(r *Reading) { r.Measurement = math.Inf(-1) },
		"negative duration": func(r *Reading) { r.Duration = -0.5 },
		"nan duration":      func(r *Reading) { r.Duration = math.NaN() },
	} {
		r := validReading(KindPressure)
		mutate(&r)
		if _, err := BuildSensorRecord(now, r); !errors.Is(err, ErrInvalidMeasurement) {
			t.Fatalf("%s: expected ErrInvalidMeasurement, got %v", name, err)
		}
	}
}

func TestBuildSensorRecordAllowsZeroDurationAndNegativeMeasurement(t *testing.T) {
	r := validReading(KindTemperature)
	r.Duration = 0
	r.Measurement = -40
	if _, err := BuildSensorRecord(time.Now(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildSensorRecordRejectsUnsetVocabulary(t *testing.T) {
	r := validReading(KindVibration)
	r.DataCenter = 0

	_, err := BuildSensorRecord(time.Now(), r)
	var verr *UnrecognizedVocabularyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected UnrecognizedVocabularyError, got %v", err)
	}
	if verr.Vocabulary != "data center" || len(verr.Expected) != 6 {
		t.Fatalf("unexpected error detail: %+v", verr)
	}

	r = validReading(0)
	if _, err := BuildSensorRecord(time.Now(), r); !errors.Is(err, ErrUnrecognizedVocabulary) {
		t.Fatalf("expected unrecognized sensor kind, got %v", err)
	}
}

func TestBuildSensorRecordCopiesMetadata(t *testing.T) {
	r := validReading(KindHumidity)
	r.Metadata = nil
	rec, err := BuildSensorRecord(time.Now(), r)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if rec.Metadata == nil {
		t.Fatalf("expected empty metadata map, got nil")
	}

	caller := Metadata{"k": "v"}
	r.Metadata = caller
	rec, _ = BuildSensorRecord(time.Now(), r)
	caller["k"] = "changed"
	if rec.Metadata["k"] != "v" {
		t.Fatalf("record metadata aliased caller map")
	}
}

func TestRecordMetadataIsDeepCopied(t *testing.T) {
	nested := map[string]any{"line": "A"}
	tags := []any{"hot", map[string]any{"zone": 1}}
	r := validReading(KindPressure)
	r.Metadata = Metadata{"site": nested, "tags": tags, "ids": []string{"x"}}

	rec, err := BuildSensorRecord(time.Now(), r)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	status, err := BuildMachineStatusRecord(time.Now(), ActionStart, r.Metadata)
	if err != nil {
		t.Fatalf("build status: %v", err)
	}

	nested["line"] = "B"
	tags[0] = "cold"
	tags[1].(map[string]any)["zone"] = 2
	r.Metadata["ids"].([]string)[0] = "y"

	for _, md := range []Metadata{rec.Metadata, status.Metadata} {
		if md["site"].(map[string]any)["line"] != "A" {
			t.Fatalf("nested map aliased caller: %v", md["site"])
		}
		got := md["tags"].([]any)
		if got[0] != "hot" || got[1].(map[string]any)["zone"] != 1 {
			t.Fatalf("nested slice aliased caller: %v", got)
		}
		if md["ids"].([]string)[0] != "x" {
			t.Fatalf("string slice aliased caller: %v", md["ids"])
		}
	}
}

func TestMachineStatusRecordJSON(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec, err := BuildMachineStatusRecord(now, ActionMaintenance, Metadata{"previous_status": "Start"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"timestamp":"2025-01-02T03:04:05.000000Z","action":"Maintenance","metadata":{"previous_status":"Start"}}`
	if string(b) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", b, want)
	}

	var back MachineStatusRecord
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Action != ActionMaintenance || !back.Timestamp.Equal(now) {
		t.Fatalf("unexpected round trip: %+v", back)
	}

	if _, err := BuildMachineStatusRecord(now, Action(42), nil); !errors.Is(err, ErrUnrecognizedVocabulary) {
		t.Fatalf("expected invalid action to fail, got %v", err)
	}
}

func TestUnmarshalRejectsUnknownVocabulary(t *testing.T) {
	payload := `{"timestamp":"2025-01-02T03:04:05Z","sensor_id":"s","channel":"Radio","data_center":"Factory 1",
"duration":1,"measurement":1,"product":"Power Plant","status":"Normal","type":"Gas Sensor","unit":"%","metadata":{}}`
	var rec SensorRecord
	err := json.Unmarshal([]byte(payload), &rec)
	if err == nil || !strings.Contains(err.Error(), `"Radio"`) {
		t.Fatalf("expected error naming the bad channel, got %v", err)
	}
}
