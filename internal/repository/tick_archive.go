package repository

import (
	"context"
	"database/sql"
	"fmt"

	"BarFlow/internal/domain/models"
	"BarFlow/internal/domain/repository"
)

// ClickHouseTickArchive appends raw trade prints to ClickHouse. The archive is
// wired as a fan-out listener on the streaming client, so its failures go
// through the same per-listener isolation as any other listener.
type ClickHouseTickArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickArchive creates the ClickHouse-backed tick archive.
func NewClickHouseTickArchive(db *sql.DB, table string) repository.TickArchive {
	return &ClickHouseTickArchive{db: db, table: table}
}

func (a *ClickHouseTickArchive) Archive(ctx context.Context, t *models.TradeEvent) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, size, event_id) VALUES (?, ?, ?, ?, ?)", a.table)
	// event_id dedupes replays: symbol plus event time at second precision
	eventID := fmt.Sprintf("%s-%d", t.Symbol, t.Timestamp.Unix())
	_, err := a.db.ExecContext(ctx, q,
		t.Timestamp,
		t.Symbol,
		t.Price,
		t.Size,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("archive tick: %w", err)
	}
	return nil
}

func (a *ClickHouseTickArchive) Close() error {
	return nil // pool is owned by pkg/clickhouse.Client
}

// ArchiveSchema returns the idempotent DDL for the tick archive table.
func ArchiveSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime64(3), symbol String, price Float64, size Float64, event_id String) ENGINE=MergeTree ORDER BY (symbol, ts)", table),
	}
}
