package models

import (
	"encoding/json"
	"strings"
	"time"

	"BarFlow/pkg/util"
)

// EventKind tags the decoded shape of an inbound feed event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventTrade
	EventSummary
)

func (k EventKind) String() string {
	switch k {
	case EventTrade:
		return "trade"
	case EventSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// TradeEvent is a single trade print.
type TradeEvent struct {
	Symbol    string
	Price     float64
	Size      float64
	Timestamp time.Time
}

// SummaryEvent is a cumulative OHLCV snapshot for one bucket.
type SummaryEvent struct {
	Symbol    string
	Interval  string
	Timestamp time.Time
	Fields    SummaryFields
}

// Event is the tagged union dispatched through the streaming client. Exactly
// one of Trade/Summary is set when Kind is not EventUnknown.
type Event struct {
	Kind    EventKind
	Trade   *TradeEvent
	Summary *SummaryEvent
}

// rawEvent is the upstream wire shape: {type, symbol, timestamp?, ...}.
// Timestamp arrives either as an RFC3339 string or a unix-seconds number,
// so it decodes as a raw message and gets normalized afterwards.
type rawEvent struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol"`
	Timestamp json.RawMessage `json:"timestamp"`
	Interval  string   `json:"interval"`
	Price     *float64 `json:"price"`
	Size      *float64 `json:"size"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
}

// ParseEvent decodes one upstream payload into the tagged union. The type
// field is matched case-insensitively; an unrecognized type, a missing symbol,
// or a trade without a price yields EventUnknown. A missing or unparsable
// timestamp is left zero for the dispatcher to fill with arrival time.
func ParseEvent(payload []byte) Event {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{Kind: EventUnknown}
	}
	if raw.Symbol == "" {
		return Event{Kind: EventUnknown}
	}

	ts, _ := util.ParseTime(strings.Trim(string(raw.Timestamp), `"`))

	switch strings.ToLower(raw.Type) {
	case "trade":
		if raw.Price == nil {
			return Event{Kind: EventUnknown}
		}
		var size float64
		if raw.Size != nil {
			size = *raw.Size
		}
		return Event{
			Kind: EventTrade,
			Trade: &TradeEvent{
				Symbol:    raw.Symbol,
				Price:     *raw.Price,
				Size:      size,
				Timestamp: ts,
			},
		}
	case "summary":
		interval := raw.Interval
		if interval == "" {
			interval = "1min"
		}
		return Event{
			Kind: EventSummary,
			Summary: &SummaryEvent{
				Symbol:    raw.Symbol,
				Interval:  interval,
				Timestamp: ts,
				Fields: SummaryFields{
					Open:   raw.Open,
					High:   raw.High,
					Low:    raw.Low,
					Close:  raw.Close,
					Volume: raw.Volume,
				},
			},
		}
	default:
		return Event{Kind: EventUnknown}
	}
}
