package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/liquischema/internal/schema"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver Driver
		wantConn   string
		wantErr    bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/db", wantDriver: DriverPostgres, wantConn: "postgres://u:p@localhost/db"},
		{name: "postgresql", url: "postgresql://localhost/db", wantDriver: DriverPostgres, wantConn: "postgresql://localhost/db"},
		{name: "mysql", url: "mysql://root:pw@tcp(localhost:3306)/shop", wantDriver: DriverMySQL, wantConn: "root:pw@tcp(localhost:3306)/shop"},
		{name: "sqlite", url: "sqlite://data/app.db", wantDriver: DriverSQLite, wantConn: "data/app.db"},
		{name: "empty", url: "", wantErr: true},
		{name: "unknown scheme", url: "oracle://db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, conn, err := ParseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantConn, conn)
		})
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("root:pw@tcp(localhost:3306)/shop?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	_, err = ParseDatabaseName("root:pw@tcp(localhost:3306)/")
	assert.Error(t, err)
}

func TestNormalizeDefault(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name string
		raw  *string
		typ  schema.Type
		want any
	}{
		{name: "absent", raw: nil, typ: schema.TypeString, want: nil},
		{name: "null literal", raw: str("NULL"), typ: schema.TypeString, want: nil},
		{name: "plain", raw: str("pending"), typ: schema.TypeString, want: "pending"},
		{name: "quoted", raw: str("'it''s'"), typ: schema.TypeString, want: "it's"},
		{name: "postgres cast", raw: str("'draft'::character varying"), typ: schema.TypeString, want: "draft"},
		{name: "numeric", raw: str("1.5"), typ: schema.TypeFloat, want: "1.5"},
		{name: "boolean one", raw: str("1"), typ: schema.TypeBoolean, want: true},
		{name: "boolean false", raw: str("false"), typ: schema.TypeBoolean, want: false},
		{name: "function", raw: str("now()"), typ: schema.TypeDateTime, want: "now()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeDefault(tt.raw, tt.typ))
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "open.db")

	d, err := Open(ctx, "sqlite://"+path, "")
	require.NoError(t, err)
	defer func() { _ = d.Close(ctx) }()

	assert.Equal(t, "sqlite", d.Platform.Name())

	s, err := d.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Tables)
}

func TestOpenInvalidURL(t *testing.T) {
	_, err := Open(context.Background(), "ftp://nowhere", "")
	assert.ErrorContains(t, err, "invalid database URL scheme")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:data/app.db?_busy_timeout=5000&_foreign_keys=on", sqliteDSN("data/app.db"))
}

func TestNewMySQLClientInvalidDSN(t *testing.T) {
	_, err := NewMySQLClient(context.Background(), "not a dsn")
	assert.ErrorContains(t, err, "invalid MySQL DSN")
}

func TestNewPostgresClientInvalidURL(t *testing.T) {
	_, err := NewPostgresClient(context.Background(), "postgres://host:notaport/db")
	assert.ErrorContains(t, err, "invalid PostgreSQL connection string")
}
