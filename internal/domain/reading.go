package domain

import "time"

// Reading is the canonical unit of sensor telemetry handed to the emission
// pipeline, either by a caller or by a collector.
type Reading struct {
	Kind        SensorKind
	SensorID    string
	Channel     Channel
	DataCenter  DataCenter
	Product     Product
	Status      Status
	Duration    float64
	Measurement float64
	Metadata    Metadata

	// ObservedAt and SourceNodeID are set by collectors; the record timestamp
	// is always the emission instant.
	ObservedAt   time.Time
	SourceNodeID string
}

// Metadata is the open key/value mapping attached to every record.
type Metadata map[string]any

// Clone returns a copy that is never nil. Nested maps and slices of the
// generic JSON shapes are copied too, so a record never shares mutable state
// with the caller.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+3)
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Metadata:
		if t == nil {
			return t
		}
		return t.Clone()
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case map[string]string:
		if t == nil {
			return t
		}
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}

// Merge writes every key of src into m, overwriting existing keys.
func (m Metadata) Merge(src Metadata) Metadata {
	for k, v := range src {
		m[k] = v
	}
	return m
}
