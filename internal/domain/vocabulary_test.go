package domain

import (
	"errors"
	"testing"
)

func TestParseRoundTripsEveryValue(t *testing.T) {
	for _, c := range Channels() {
		got, err := ParseChannel(c.String())
		if err != nil || got != c {
			t.Fatalf("channel %s: got %v, %v", c, got, err)
		}
	}
	for _, p := range Products() {
		got, err := ParseProduct(p.String())
		if err != nil || got != p {
			t.Fatalf("product %s: got %v, %v", p, got, err)
		}
	}
	for _, d := range DataCenters() {
		got, err := ParseDataCenter(d.String())
		if err != nil || got != d {
			t.Fatalf("data center %s: got %v, %v", d, got, err)
		}
	}
	for _, s := range Statuses() {
		got, err := ParseStatus(s.String())
		if err != nil || got != s {
			t.Fatalf("status %s: got %v, %v", s, got, err)
		}
	}
	for _, a := range Actions() {
		got, err := ParseAction(a.String())
		if err != nil || got != a {
			t.Fatalf("action %s: got %v, %v", a, got, err)
		}
	}
}

func TestSameStringDifferentVocabulariesAreDistinct(t *testing.T) {
	// "Power Plant" is both a product and a data center.
	p, err := ParseProduct("Power Plant")
	if err != nil {
		t.Fatalf("parse product: %v", err)
	}
	d, err := ParseDataCenter("Power Plant")
	if err != nil {
		t.Fatalf("parse data center: %v", err)
	}
	if p != ProductPowerPlant || d != DataCenterPowerPlant {
		t.Fatalf("unexpected values %v %v", p, d)
	}
}

func TestParseUnknownValue(t *testing.T) {
	_, err := ParseStatus("Degraded")
	if !errors.Is(err, ErrUnrecognizedVocabulary) {
		t.Fatalf("expected ErrUnrecognizedVocabulary, got %v", err)
	}
	var verr *UnrecognizedVocabularyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *UnrecognizedVocabularyError, got %T", err)
	}
	if verr.Value != "Degraded" || len(verr.Expected) != 4 || verr.Expected[0] != "Normal" {
		t.Fatalf("unexpected error detail: %+v", verr)
	}

	if _, err := ParseChannel("sensor"); err == nil {
		t.Fatalf("parsing must be case sensitive")
	}
}

func TestMarshalTextRejectsZeroValue(t *testing.T) {
	var c Channel
	if _, err := c.MarshalText(); !errors.Is(err, ErrUnrecognizedVocabulary) {
		t.Fatalf("expected zero channel to fail marshalling, got %v", err)
	}
	if c.Valid() {
		t.Fatalf("zero channel must be invalid")
	}
}

func TestActionAttribution(t *testing.T) {
	if !ActionStart.Running() || ActionStart.Halted() {
		t.Fatalf("start must count as uptime only")
	}
	for _, a := range []Action{ActionStop, ActionMaintenance, ActionCalibration} {
		if !a.Halted() || a.Running() {
			t.Fatalf("%s must count as downtime only", a)
		}
	}
	for _, a := range []Action{ActionErrorDetected, ActionReset} {
		if a.Halted() || a.Running() {
			t.Fatalf("%s must be neither uptime nor downtime", a)
		}
	}
}

func TestParseSensorKind(t *testing.T) {
	k, err := ParseSensorKind("vibration")
	if err != nil || k != KindVibration {
		t.Fatalf("got %v, %v", k, err)
	}
	if _, err := ParseSensorKind("sonar"); !errors.Is(err, ErrUnrecognizedVocabulary) {
		t.Fatalf("expected unknown kind to fail, got %v", err)
	}
}
