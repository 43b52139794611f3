package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteBusyTimeout is how long a query waits on a locked database, in milliseconds
const sqliteBusyTimeout = 5000

// SQLiteClient wraps the connection used for introspection
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient opens the database file at path, creating it when missing
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

// sqliteDSN enables foreign key enforcement and a busy timeout
func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", fmt.Sprint(sqliteBusyTimeout))
	return "file:" + path + "?" + params.Encode()
}

// Close closes the connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying connection
func (c *SQLiteClient) GetDB() *sql.DB {
	return c.db
}
