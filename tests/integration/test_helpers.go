//go:build integration
// +build integration

package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/tordrt/liquischema"
	"github.com/tordrt/liquischema/internal/changelog"
	"github.com/tordrt/liquischema/internal/db"
	"github.com/tordrt/liquischema/internal/metadata"
	"github.com/tordrt/liquischema/internal/schema"
)

// fixtureMetadata keeps it_orders, drops it_users and adds it_payments
const fixtureMetadata = `
entities:
  - name: it.Order
    table: it_orders
    id: [id]
    columns:
      - name: id
        type: integer
        autoincrement: true
  - name: it.Payment
    table: it_payments
    id: [id]
    columns:
      - name: id
        type: integer
        autoincrement: true
      - name: order_id
        type: integer
    foreignKeys:
      - columns: [order_id]
        references: {table: it_orders, columns: [id]}
`

// verifyTablesExist checks that all expected tables are present in the schema
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	for _, tableName := range expectedTables {
		if !s.HasTable(tableName) {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if !table.HasColumn(colName) {
			t.Errorf("Expected column %s not found in %s table", colName, table.AssetName())
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	pk := table.PrimaryKey()
	if pk == nil {
		t.Errorf("Expected primary key %v on %s, got none", expectedPK, table.AssetName())
		return
	}
	if !equalColumns(pk.Columns, expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, pk.Columns)
	}
}

// verifyUniqueIndex checks that a column is covered by a single-column unique index
func verifyUniqueIndex(t *testing.T, table *schema.Table, columnName string) {
	t.Helper()

	set := schema.NewIndexSet(table)
	if _, ok := set.UniqueIndex(columnName); !ok {
		t.Errorf("Expected %s column to have a unique index", columnName)
	}
}

// verifyForeignKey checks that a foreign key from sourceColumn to targetTable exists
func verifyForeignKey(t *testing.T, table *schema.Table, sourceColumn, targetTable, onDelete string) {
	t.Helper()

	for _, fk := range table.ForeignKeys {
		target := schema.ParseQualifiedName(fk.ForeignTable).Name
		if strings.EqualFold(target, targetTable) && equalColumns(fk.LocalColumns, []string{sourceColumn}) {
			if fk.OnDelete != onDelete {
				t.Errorf("Expected ON DELETE %q on %s, got %q", onDelete, fk.Name, fk.OnDelete)
			}
			return
		}
	}

	t.Errorf("Expected foreign key from %s.%s to %s not found", table.AssetName(), sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, table *schema.Table, indexName string, expectedColumns []string) {
	t.Helper()

	idx := table.Index(indexName)
	if idx == nil {
		t.Errorf("Expected index %s on %s table not found", indexName, table.AssetName())
		return
	}
	if !equalColumns(idx.Columns, expectedColumns) {
		t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
	}
}

// findTable fails the test when the table is missing
func findTable(t *testing.T, s *schema.Schema, tableName string) *schema.Table {
	t.Helper()

	table := s.Table(tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	return table
}

// verifyDiffChangeLog diffs the fixture database against fixtureMetadata
func verifyDiffChangeLog(t *testing.T, ctx context.Context, database *db.Database) {
	t.Helper()

	f, err := metadata.Parse([]byte(fixtureMetadata))
	if err != nil {
		t.Fatalf("Failed to parse metadata: %v", err)
	}
	reg := metadata.NewRegistry()
	reg.Add(f)

	tool := liquischema.New(database.Platform,
		liquischema.WithMetadata(reg),
		liquischema.WithIntrospector(database),
	)

	opts := changelog.DefaultOptions().WithChangeSetUniqueID(false)
	doc, err := tool.DiffChangeLog(ctx, &opts, nil)
	if err != nil {
		t.Fatalf("Failed to generate diff changelog: %v", err)
	}

	var ids []string
	for _, cs := range doc.ChangeSets() {
		ids = append(ids, cs.SelectAttrValue("id", ""))
	}

	for _, want := range []struct{ prefix, table string }{
		{"create-table-", "it-payments"},
		{"create-foreign-keys-", "it-payments"},
		{"drop-table-", "it-users"},
	} {
		if !hasChangeSet(ids, want.prefix, want.table) {
			t.Errorf("Expected a %s change set for %s, got %v", want.prefix, want.table, ids)
		}
	}
	if hasChangeSet(ids, "create-table-", "it-orders") || hasChangeSet(ids, "drop-table-", "it-orders") {
		t.Errorf("it_orders exists on both sides and must not be recreated, got %v", ids)
	}
}

func hasChangeSet(ids []string, prefix, table string) bool {
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) && strings.HasSuffix(id, table) {
			return true
		}
	}
	return false
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
