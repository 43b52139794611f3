package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLClient wraps the connection pool used for introspection
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient connects with a go-sql-driver DSN such as
// user:pass@tcp(host:3306)/database
func NewMySQLClient(ctx context.Context, dsn string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db}, nil
}

// Close closes the connection pool
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying connection pool
func (c *MySQLClient) GetDB() *sql.DB {
	return c.db
}
