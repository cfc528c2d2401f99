package models

import "time"

// Bar is one OHLCV aggregate for one symbol, one interval granularity, and one
// bucket start time. The (Symbol, Interval, Bucket) triple is unique; the
// repository owns persistence and is the only component that mutates a Bar.
type Bar struct {
	Symbol   string
	Interval string
	Bucket   time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// SummaryFields carries the optional fields of a summary event. A nil field
// means the upstream did not report it, which keeps "unset" distinguishable
// from a genuine zero.
type SummaryFields struct {
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *float64
}

// ApplyTrade merges one trade print into the bar. The first observed value
// seeds all four prices; afterwards high/low widen, close follows arrival
// order, and volume accumulates when size is non-zero.
func (b *Bar) ApplyTrade(price, size float64) {
	if b.uninitialized() {
		b.Open = price
		b.High = price
		b.Low = price
		b.Close = price
	} else {
		if price > b.High {
			b.High = price
		}
		if price < b.Low {
			b.Low = price
		}
		b.Close = price
	}
	if size != 0 {
		b.Volume += size
	}
}

// ApplySummary merges a summary snapshot. Open and close overwrite
// unconditionally; high/low take the widest value, treating a current value of
// exactly zero as unset; volume keeps the maximum since summaries report
// cumulative totals, not deltas.
//
// The zero-means-unset rule conflates a genuine zero price with "not yet
// initialized". Kept as-is pending a product decision; see DESIGN.md.
func (b *Bar) ApplySummary(f SummaryFields) {
	if f.Open != nil {
		b.Open = *f.Open
	}
	if f.High != nil {
		if b.High == 0 || *f.High > b.High {
			b.High = *f.High
		}
	}
	if f.Low != nil {
		if b.Low == 0 || *f.Low < b.Low {
			b.Low = *f.Low
		}
	}
	if f.Close != nil {
		b.Close = *f.Close
	}
	if f.Volume != nil && *f.Volume > b.Volume {
		b.Volume = *f.Volume
	}
}

func (b *Bar) uninitialized() bool {
	return b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0
}
