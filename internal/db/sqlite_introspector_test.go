package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/liquischema/internal/schema"
)

const sqliteFixture = `
CREATE TABLE teams (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(100) NOT NULL
);
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	email VARCHAR(180) NOT NULL,
	active BOOLEAN NOT NULL DEFAULT 1,
	score DOUBLE PRECISION DEFAULT 1.5,
	team_id INTEGER REFERENCES teams(id) ON DELETE CASCADE,
	owner_id INTEGER REFERENCES teams
);
CREATE UNIQUE INDEX uniq_users_email ON users (email);
CREATE INDEX idx_users_active_score ON users (active, score);
CREATE TABLE audit_log (message TEXT);
`

func newSQLiteFixture(t *testing.T) *SQLiteClient {
	t.Helper()
	ctx := context.Background()

	client, err := NewSQLiteClient(ctx, filepath.Join(t.TempDir(), "fixture.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.GetDB().ExecContext(ctx, sqliteFixture)
	require.NoError(t, err)
	return client
}

func findForeignKey(table *schema.Table, name string) *schema.ForeignKey {
	for _, fk := range table.ForeignKeys {
		if fk.Name == name {
			return fk
		}
	}
	return nil
}

func TestSQLiteIntrospectSchema(t *testing.T) {
	client := newSQLiteFixture(t)

	s, err := NewSQLiteIntrospector(client, nil).IntrospectSchema(context.Background())
	require.NoError(t, err)

	var names []string
	for _, table := range s.Tables {
		names = append(names, table.Name)
	}
	assert.Equal(t, []string{"audit_log", "teams", "users"}, names)
	assert.Empty(t, s.Namespaces())

	users := s.Table("users")
	require.NotNil(t, users)
	require.Len(t, users.Columns, 6)

	t.Run("columns", func(t *testing.T) {
		id := users.Column("id")
		assert.Equal(t, schema.TypeInteger, id.Type)
		assert.True(t, id.NotNull)
		assert.True(t, id.Autoincrement)

		email := users.Column("email")
		assert.Equal(t, schema.TypeString, email.Type)
		require.NotNil(t, email.Length)
		assert.Equal(t, 180, *email.Length)
		assert.True(t, email.NotNull)

		assert.Equal(t, true, users.Column("active").Default)

		score := users.Column("score")
		assert.Equal(t, schema.TypeFloat, score.Type)
		assert.Equal(t, "1.5", score.Default)
		assert.False(t, score.NotNull)
	})

	t.Run("indexes", func(t *testing.T) {
		pk := users.PrimaryKey()
		require.NotNil(t, pk)
		assert.Equal(t, []string{"id"}, pk.Columns)

		uniq := users.Index("uniq_users_email")
		require.NotNil(t, uniq)
		assert.True(t, uniq.Unique)
		assert.Equal(t, []string{"email"}, uniq.Columns)

		idx := users.Index("idx_users_active_score")
		require.NotNil(t, idx)
		assert.False(t, idx.Unique)
		assert.Equal(t, []string{"active", "score"}, idx.Columns)

		assert.Len(t, users.Indexes, 3)
	})

	t.Run("foreign keys", func(t *testing.T) {
		require.Len(t, users.ForeignKeys, 2)

		team := findForeignKey(users, "fk_users_team_id")
		require.NotNil(t, team)
		assert.Equal(t, "teams", team.ForeignTable)
		assert.Equal(t, []string{"team_id"}, team.LocalColumns)
		assert.Equal(t, []string{"id"}, team.ForeignColumns)
		assert.Equal(t, "CASCADE", team.OnDelete)

		owner := findForeignKey(users, "fk_users_owner_id")
		require.NotNil(t, owner)
		assert.Equal(t, []string{"id"}, owner.ForeignColumns, "implicit reference resolves to the primary key")
	})

	t.Run("table without primary key", func(t *testing.T) {
		audit := s.Table("audit_log")
		require.NotNil(t, audit)
		assert.Nil(t, audit.PrimaryKey())
		assert.Equal(t, schema.TypeText, audit.Column("message").Type)
	})
}
