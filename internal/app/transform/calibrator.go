package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/ghalamif/SensorLog/internal/domain"
	"github.com/ghalamif/SensorLog/internal/ports"
)

// Metadata keys added to collected readings.
const (
	KeySourceNode = "source_node"
	KeyObservedAt = "observed_at"
	KeyEmitterID  = "emitter_id"
)

// Version is stamped on readings by Calibrator.
const Version uint16 = 1

// Linear calibrates a raw value as raw*Scale + Offset.
type Linear struct {
	Scale  float64
	Offset float64
}

// Defaults fill the vocabulary fields a collector cannot observe.
type Defaults struct {
	Channel    domain.Channel
	DataCenter domain.DataCenter
	Product    domain.Product
	Status     domain.Status
	EmitterID  string
}

// Calibrator completes collected readings: it applies per-sensor linear
// calibration, fills unset vocabulary fields from Defaults and records where
// and when the value was observed.
type Calibrator struct {
	defaults Defaults
	linear   map[string]Linear
}

func NewCalibrator(d Defaults, linear map[string]Linear) *Calibrator {
	cp := make(map[string]Linear, len(linear))
	for k, v := range linear {
		cp[k] = v
	}
	return &Calibrator{defaults: d, linear: cp}
}

func (c *Calibrator) Version() uint16 { return Version }

func (c *Calibrator) Transform(in *domain.Reading) (*domain.Reading, error) {
	if in == nil {
		return nil, fmt.Errorf("nil reading")
	}
	out := *in
	out.Metadata = in.Metadata.Clone()

	if l, ok := c.linear[in.SensorID]; ok {
		out.Measurement = in.Measurement*l.Scale + l.Offset
		if math.IsNaN(out.Measurement) || math.IsInf(out.Measurement, 0) {
			return nil, fmt.Errorf("%w: calibrated value of %s is not finite", domain.ErrInvalidMeasurement, in.SensorID)
		}
	}

	if !out.Channel.Valid() {
		out.Channel = c.defaults.Channel
	}
	if !out.DataCenter.Valid() {
		out.DataCenter = c.defaults.DataCenter
	}
	if !out.Product.Valid() {
		out.Product = c.defaults.Product
	}
	if !out.Status.Valid() {
		out.Status = c.defaults.Status
	}

	if in.SourceNodeID != "" {
		out.Metadata[KeySourceNode] = in.SourceNodeID
	}
	if !in.ObservedAt.IsZero() {
		out.Metadata[KeyObservedAt] = in.ObservedAt.UTC().Format(time.RFC3339Nano)
	}
	if c.defaults.EmitterID != "" {
		out.Metadata[KeyEmitterID] = c.defaults.EmitterID
	}
	return &out, nil
}

var _ ports.Transformer = (*Calibrator)(nil)
