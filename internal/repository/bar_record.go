package repository

import (
	"time"

	"BarFlow/internal/domain/models"
)

// BarRecord is the persisted form of a Bar. The unique index on
// (symbol, interval, bucket) is the sole backstop against concurrent
// upsert races; merge invariants are enforced in the model, not here.
type BarRecord struct {
	ID uint `gorm:"primaryKey"`

	Symbol   string    `gorm:"type:text;not null;index:idx_bar_symbol;index:idx_symbol_interval_bucket,unique"`
	Interval string    `gorm:"type:varchar(10);not null;index:idx_symbol_interval_bucket,unique"`
	Bucket   time.Time `gorm:"not null;index:idx_symbol_interval_bucket,unique"`

	Open  float64 `gorm:"type:numeric;not null"`
	High  float64 `gorm:"type:numeric;not null"`
	Low   float64 `gorm:"type:numeric;not null"`
	Close float64 `gorm:"type:numeric;not null"`

	Volume float64 `gorm:"type:numeric;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (BarRecord) TableName() string {
	return "bars"
}

func toBarRecord(b models.Bar) BarRecord {
	return BarRecord{
		Symbol:   b.Symbol,
		Interval: b.Interval,
		Bucket:   b.Bucket,
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		Volume:   b.Volume,
	}
}

func (r *BarRecord) toBar() models.Bar {
	return models.Bar{
		Symbol:   r.Symbol,
		Interval: r.Interval,
		Bucket:   r.Bucket,
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		Volume:   r.Volume,
	}
}

func (r *BarRecord) setBar(b models.Bar) {
	r.Open = b.Open
	r.High = b.High
	r.Low = b.Low
	r.Close = b.Close
	r.Volume = b.Volume
}
