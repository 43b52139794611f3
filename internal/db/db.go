// Package db reads the current schema of a live database.
//
// Each supported engine has a client, which owns the connection, and an
// introspector, which turns the engine catalog into a *schema.Schema using
// the logical types of the matching platform.
package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/tordrt/liquischema/internal/platform"
	"github.com/tordrt/liquischema/internal/schema"
)

// Introspector reads the current schema of a database
type Introspector interface {
	IntrospectSchema(ctx context.Context) (*schema.Schema, error)
}

// Driver identifies a database engine
type Driver string

// Supported drivers
const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// Database is an open connection together with its introspector and platform
type Database struct {
	Introspector
	Platform platform.Platform

	close func(ctx context.Context) error
}

// Close releases the connection
func (d *Database) Close(ctx context.Context) error {
	if d.close == nil {
		return nil
	}
	return d.close(ctx)
}

// Open connects to the database behind url. schemaName selects the
// PostgreSQL schema or MySQL database; it defaults to "public" on PostgreSQL
// and to the database named in the MySQL DSN.
func Open(ctx context.Context, url, schemaName string) (*Database, error) {
	driver, connStr, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverPostgres:
		client, err := NewPostgresClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		p := platform.NewPostgres()
		if schemaName == "" {
			schemaName = p.DefaultNamespace()
		}
		return &Database{
			Introspector: NewPostgresIntrospector(client, schemaName, p),
			Platform:     p,
			close:        client.Close,
		}, nil

	case DriverMySQL:
		if schemaName == "" {
			if schemaName, err = ParseDatabaseName(connStr); err != nil {
				return nil, fmt.Errorf("failed to determine database name: %w", err)
			}
		}
		client, err := NewMySQLClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		p := platform.NewMySQL()
		return &Database{
			Introspector: NewMySQLIntrospector(client, schemaName, p),
			Platform:     p,
			close:        func(context.Context) error { return client.Close() },
		}, nil

	default:
		client, err := NewSQLiteClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		p := platform.NewSQLite()
		return &Database{
			Introspector: NewSQLiteIntrospector(client, p),
			Platform:     p,
			close:        func(context.Context) error { return client.Close() },
		}, nil
	}
}

// ParseURL detects the driver of a database URL and returns the connection
// string the driver expects
func ParseURL(url string) (Driver, string, error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres, url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// the Go MySQL driver takes a bare DSN
		return DriverMySQL, strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
}

// ParseDatabaseName extracts the database name from a MySQL DSN
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("MySQL DSN has no database name")
	}
	return cfg.DBName, nil
}

var defaultCast = regexp.MustCompile(`^(.*?)::[a-zA-Z_ "\[\]()0-9]+$`)

// normalizeDefault turns a catalog default expression into a column default:
// nil, a bool for boolean columns, or the unquoted literal
func normalizeDefault(raw *string, typ schema.Type) any {
	if raw == nil {
		return nil
	}

	v := strings.TrimSpace(*raw)
	if m := defaultCast.FindStringSubmatch(v); m != nil {
		v = m[1]
	}
	if strings.EqualFold(v, "null") {
		return nil
	}
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		v = strings.ReplaceAll(v[1:len(v)-1], "''", "'")
	}

	if typ == schema.TypeBoolean {
		switch strings.ToLower(v) {
		case "1", "true", "t", "b'1'":
			return true
		case "0", "false", "f", "b'0'":
			return false
		}
	}
	return v
}

// foreignKeyBuilder groups one row per column into multi-column foreign keys
// while keeping the catalog order
type foreignKeyBuilder struct {
	namespace string
	keys      []*schema.ForeignKey
	byName    map[string]*schema.ForeignKey
}

func newForeignKeyBuilder(namespace string) *foreignKeyBuilder {
	return &foreignKeyBuilder{namespace: namespace, byName: make(map[string]*schema.ForeignKey)}
}

func (b *foreignKeyBuilder) add(name, column, foreignTable, foreignColumn, onUpdate, onDelete string) {
	fk, ok := b.byName[name]
	if !ok {
		fk = &schema.ForeignKey{
			Asset:        schema.NewAsset(name, b.namespace),
			ForeignTable: foreignTable,
			OnUpdate:     strings.ToUpper(onUpdate),
			OnDelete:     strings.ToUpper(onDelete),
		}
		b.byName[name] = fk
		b.keys = append(b.keys, fk)
	}
	fk.LocalColumns = append(fk.LocalColumns, column)
	fk.ForeignColumns = append(fk.ForeignColumns, foreignColumn)
}

func (b *foreignKeyBuilder) foreignKeys() []*schema.ForeignKey {
	return b.keys
}
