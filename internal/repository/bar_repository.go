package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"BarFlow/internal/domain/models"
	domrepo "BarFlow/internal/domain/repository"
	"BarFlow/pkg/logger"
	"BarFlow/pkg/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultInterval is the bucket granularity used when a caller passes none.
const DefaultInterval = "1min"

// BarRepository implements BarStore over Postgres. Every operation opens its
// own transaction; no locks are held across calls. A duplicate-key conflict
// means a concurrent writer created the same bucket first — the losing write
// is rolled back and dropped, since the surviving row already reflects a valid
// merge of at least one event.
type BarRepository struct {
	db      *gorm.DB
	logger  *logger.Logger
	metrics domrepo.Metrics
}

// NewBarRepository creates the Postgres-backed bar store.
func NewBarRepository(db *gorm.DB, l *logger.Logger, m domrepo.Metrics) domrepo.BarStore {
	return &BarRepository{db: db, logger: l, metrics: m}
}

// RecordTrade merges one trade print into its bucket's bar, creating the bar
// when the bucket has no row yet. A zero price means the event carried no
// price and is skipped.
func (r *BarRepository) RecordTrade(ctx context.Context, symbol string, price, size float64, ts time.Time, interval string) error {
	if price == 0 {
		return nil
	}
	symbol = strings.ToUpper(symbol)
	if interval == "" {
		interval = DefaultInterval
	}
	bucket := util.BucketStart(ts.UTC(), interval)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec BarRecord
		err := tx.Where("symbol = ? AND interval = ? AND bucket = ?", symbol, interval, bucket).
			First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			bar := models.Bar{Symbol: symbol, Interval: interval, Bucket: bucket}
			bar.ApplyTrade(price, size)
			rec = toBarRecord(bar)
			return tx.Create(&rec).Error
		case err != nil:
			return fmt.Errorf("lookup bar: %w", err)
		default:
			bar := rec.toBar()
			bar.ApplyTrade(price, size)
			rec.setBar(bar)
			return tx.Save(&rec).Error
		}
	})
	return r.tolerateDuplicate(err, symbol, interval, bucket)
}

// ApplySummary merges a summary snapshot using the same bucket resolution and
// create-or-update flow as RecordTrade.
func (r *BarRepository) ApplySummary(ctx context.Context, symbol, interval string, ts time.Time, fields models.SummaryFields) error {
	symbol = strings.ToUpper(symbol)
	if interval == "" {
		interval = DefaultInterval
	}
	bucket := util.BucketStart(ts.UTC(), interval)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec BarRecord
		err := tx.Where("symbol = ? AND interval = ? AND bucket = ?", symbol, interval, bucket).
			First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			bar := models.Bar{Symbol: symbol, Interval: interval, Bucket: bucket}
			bar.ApplySummary(fields)
			rec = toBarRecord(bar)
			return tx.Create(&rec).Error
		case err != nil:
			return fmt.Errorf("lookup bar: %w", err)
		default:
			bar := rec.toBar()
			bar.ApplySummary(fields)
			rec.setBar(bar)
			return tx.Save(&rec).Error
		}
	})
	return r.tolerateDuplicate(err, symbol, interval, bucket)
}

// GetIntradayBars returns the most recent limit bars in ascending
// chronological order. The query fetches descending by bucket and the result
// is reversed before return.
func (r *BarRepository) GetIntradayBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	symbol = strings.ToUpper(symbol)
	if interval == "" {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = 100
	}

	var recs []BarRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND interval = ?", symbol, interval).
		Order("bucket DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}

	bars := make([]models.Bar, len(recs))
	for i, rec := range recs {
		bars[len(recs)-1-i] = rec.toBar()
	}
	return bars, nil
}

// BulkInsert persists bars in one batch, used for backfill and test seeding.
// Buckets that already exist keep their live-aggregated values; backfill never
// overwrites them.
func (r *BarRepository) BulkInsert(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	recs := make([]BarRecord, len(bars))
	for i, b := range bars {
		recs[i] = toBarRecord(b)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&recs).Error
	if err != nil {
		return fmt.Errorf("bulk insert bars: %w", err)
	}
	return nil
}

func (r *BarRepository) tolerateDuplicate(err error, symbol, interval string, bucket time.Time) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		r.logger.Debug("concurrent writer won bucket, dropping write",
			logger.String("symbol", symbol),
			logger.String("interval", interval),
			logger.Time("bucket", bucket),
		)
		r.metrics.RecordDroppedWrite("duplicate_key")
		return nil
	}
	return err
}
