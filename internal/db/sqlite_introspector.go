package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/tordrt/liquischema/internal/platform"
	"github.com/tordrt/liquischema/internal/schema"
)

// SQLiteIntrospector reads a SQLite database
type SQLiteIntrospector struct {
	client   *SQLiteClient
	platform platform.Platform
}

// NewSQLiteIntrospector creates a new SQLite introspector
func NewSQLiteIntrospector(client *SQLiteClient, p platform.Platform) *SQLiteIntrospector {
	if p == nil {
		p = platform.NewSQLite()
	}
	return &SQLiteIntrospector{
		client:   client,
		platform: p,
	}
}

// IntrospectSchema implements Introspector
func (e *SQLiteIntrospector) IntrospectSchema(ctx context.Context) (*schema.Schema, error) {
	s := schema.NewSchema()

	tableNames, err := e.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, err := e.introspectTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, table)
	}

	return s, nil
}

func (e *SQLiteIntrospector) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func (e *SQLiteIntrospector) introspectTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Asset: schema.NewAsset(tableName, "")}

	columns, primary, err := e.getColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	table.Columns = columns
	if primary != nil {
		table.Indexes = append(table.Indexes, primary)
	}

	indexes, err := e.getIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	table.Indexes = append(table.Indexes, indexes...)

	foreignKeys, err := e.getForeignKeys(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	table.ForeignKeys = foreignKeys

	return table, nil
}

// getColumns also returns the primary key, which SQLite reports per column.
// A single INTEGER primary key aliases the rowid and is treated as autoincrement.
func (e *SQLiteIntrospector) getColumns(ctx context.Context, tableName string) ([]*schema.Column, *schema.Index, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkColumn struct {
		order int
		col   *schema.Column
	}

	var columns []*schema.Column
	var pk []pkColumn

	for rows.Next() {
		var cid, notNull, pkOrder int
		var name, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pkOrder); err != nil {
			return nil, nil, err
		}

		typ, length := e.platform.LogicalType(colType)
		col := &schema.Column{
			Asset:   schema.NewAsset(name, ""),
			Type:    typ,
			Length:  length,
			NotNull: notNull == 1 || pkOrder > 0,
		}
		if defaultValue.Valid {
			col.Default = normalizeDefault(&defaultValue.String, typ)
		}
		if pkOrder > 0 {
			pk = append(pk, pkColumn{order: pkOrder, col: col})
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(pk) == 0 {
		return columns, nil, nil
	}

	slices.SortFunc(pk, func(a, b pkColumn) int { return a.order - b.order })
	primary := &schema.Index{Asset: schema.NewAsset("primary", ""), Unique: true, Primary: true}
	for _, p := range pk {
		primary.Columns = append(primary.Columns, p.col.Name)
	}
	if len(pk) == 1 && pk[0].col.Type == schema.TypeInteger {
		pk[0].col.Autoincrement = true
	}

	return columns, primary, nil
}

// getIndexes skips the automatic index backing the primary key
func (e *SQLiteIntrospector) getIndexes(ctx context.Context, tableName string) ([]*schema.Index, error) {
	entries, err := e.listIndexes(ctx, tableName)
	if err != nil {
		return nil, err
	}

	var indexes []*schema.Index
	for _, entry := range entries {
		columns, err := e.getIndexColumns(ctx, entry.Name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		entry.Columns = columns
		indexes = append(indexes, entry)
	}

	return indexes, nil
}

// listIndexes returns the indexes of a table sorted by name, without columns
func (e *SQLiteIntrospector) listIndexes(ctx context.Context, tableName string) ([]*schema.Index, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []*schema.Index
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		if origin == "pk" {
			continue
		}
		indexes = append(indexes, &schema.Index{Asset: schema.NewAsset(name, ""), Unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(indexes, func(a, b *schema.Index) int { return strings.Compare(a.Name, b.Name) })
	return indexes, nil
}

func (e *SQLiteIntrospector) getIndexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		// expression columns have no name
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}

// getForeignKeys names each key like generated metadata names, since SQLite
// does not report constraint names
func (e *SQLiteIntrospector) getForeignKeys(ctx context.Context, tableName string) ([]*schema.ForeignKey, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type fkRow struct {
		id          int
		targetTable string
		fromCol     string
		toCol       sql.NullString
		onUpdate    string
		onDelete    string
	}

	var fkRows []fkRow
	for rows.Next() {
		var r fkRow
		var seq int
		var match string

		if err := rows.Scan(&r.id, &seq, &r.targetTable, &r.fromCol, &r.toCol, &r.onUpdate, &r.onDelete, &match); err != nil {
			return nil, err
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// rows of one key share an id
	slices.SortStableFunc(fkRows, func(a, b fkRow) int { return a.id - b.id })

	var keys []*schema.ForeignKey
	var current *schema.ForeignKey
	lastID := -1
	for _, r := range fkRows {
		if current == nil || r.id != lastID {
			current = &schema.ForeignKey{
				ForeignTable: r.targetTable,
				OnUpdate:     strings.ToUpper(r.onUpdate),
				OnDelete:     strings.ToUpper(r.onDelete),
			}
			keys = append(keys, current)
			lastID = r.id
		}
		current.LocalColumns = append(current.LocalColumns, r.fromCol)
		current.ForeignColumns = append(current.ForeignColumns, r.toCol.String)
	}

	for _, fk := range keys {
		fk.Name = strings.ToLower(strings.Join(append([]string{"fk", tableName}, fk.LocalColumns...), "_"))

		// an omitted target column list references the primary key
		if slices.Contains(fk.ForeignColumns, "") {
			_, primary, err := e.getColumns(ctx, fk.ForeignTable)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve foreign key %s: %w", fk.Name, err)
			}
			if primary != nil && len(primary.Columns) == len(fk.ForeignColumns) {
				fk.ForeignColumns = slices.Clone(primary.Columns)
			}
		}
	}

	return keys, nil
}
