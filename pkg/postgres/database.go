package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// CreateDatabase connects to the maintenance DB and creates the target
// database if it does not exist yet. Idempotent.
func CreateDatabase(adminDSN, dbName string) error {
	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRow(query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}
	return nil
}
