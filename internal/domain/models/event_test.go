package models

import (
	"testing"
	"time"
)

func TestParseEventTrade(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"trade","symbol":"spy","price":450.10,"size":100,"timestamp":"2024-01-01T09:30:15Z"}`))

	if ev.Kind != EventTrade {
		t.Fatalf("expected trade, got %v", ev.Kind)
	}
	tr := ev.Trade
	if tr.Symbol != "spy" || tr.Price != 450.10 || tr.Size != 100 {
		t.Fatalf("unexpected trade %+v", tr)
	}
	want := time.Date(2024, 1, 1, 9, 30, 15, 0, time.UTC)
	if !tr.Timestamp.Equal(want) {
		t.Fatalf("expected ts %v, got %v", want, tr.Timestamp)
	}
}

func TestParseEventTypeIsCaseInsensitive(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"TRADE","symbol":"SPY","price":1}`))
	if ev.Kind != EventTrade {
		t.Fatalf("expected trade, got %v", ev.Kind)
	}
	ev = ParseEvent([]byte(`{"type":"Summary","symbol":"SPY","close":2}`))
	if ev.Kind != EventSummary {
		t.Fatalf("expected summary, got %v", ev.Kind)
	}
}

func TestParseEventSummarySubsetOfFields(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"summary","symbol":"SPY","high":451.0,"volume":500}`))

	if ev.Kind != EventSummary {
		t.Fatalf("expected summary, got %v", ev.Kind)
	}
	s := ev.Summary
	if s.Fields.High == nil || *s.Fields.High != 451.0 {
		t.Fatalf("expected high set, got %+v", s.Fields)
	}
	if s.Fields.Volume == nil || *s.Fields.Volume != 500 {
		t.Fatalf("expected volume set, got %+v", s.Fields)
	}
	if s.Fields.Open != nil || s.Fields.Low != nil || s.Fields.Close != nil {
		t.Fatalf("expected absent fields nil, got %+v", s.Fields)
	}
	if s.Interval != "1min" {
		t.Fatalf("expected default interval, got %q", s.Interval)
	}
}

func TestParseEventSummaryZeroFieldIsPresent(t *testing.T) {
	// An explicit zero differs from an absent field.
	ev := ParseEvent([]byte(`{"type":"summary","symbol":"SPY","volume":0}`))
	if ev.Summary.Fields.Volume == nil || *ev.Summary.Fields.Volume != 0 {
		t.Fatalf("expected explicit zero volume, got %+v", ev.Summary.Fields)
	}
}

func TestParseEventRejectsMalformed(t *testing.T) {
	cases := []string{
		`{"type":"trade","price":450.10}`,          // missing symbol
		`{"type":"trade","symbol":"SPY"}`,          // missing price
		`{"type":"heartbeat","symbol":"SPY"}`,      // unrecognized type
		`{"symbol":"SPY","price":1}`,               // missing type
		`not even json`,                            // undecodable
	}
	for _, c := range cases {
		if ev := ParseEvent([]byte(c)); ev.Kind != EventUnknown {
			t.Fatalf("expected unknown for %q, got %v", c, ev.Kind)
		}
	}
}

func TestParseEventMissingTimestampIsZero(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"trade","symbol":"SPY","price":1}`))
	if !ev.Trade.Timestamp.IsZero() {
		t.Fatalf("expected zero timestamp, got %v", ev.Trade.Timestamp)
	}
}

func TestParseEventNumericTimestamp(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"trade","symbol":"SPY","price":1,"timestamp":1696946415}`))
	if ev.Kind != EventTrade {
		t.Fatalf("expected trade, got %v", ev.Kind)
	}
	want := time.Unix(1696946415, 0)
	if !ev.Trade.Timestamp.Equal(want) {
		t.Fatalf("expected %v, got %v", want, ev.Trade.Timestamp)
	}
}
