package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Client wraps the GORM connection to the bar database.
type Client struct {
	DB *gorm.DB
}

// NewClient opens a GORM connection. TranslateError is enabled so unique
// constraint violations surface as gorm.ErrDuplicatedKey regardless of driver.
func NewClient(dsn string) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Client{DB: db}, nil
}

// Migrate runs AutoMigrate for the given models.
func (c *Client) Migrate(models ...interface{}) error {
	if err := c.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Health pings the underlying connection pool.
func (c *Client) Health(ctx context.Context) error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
