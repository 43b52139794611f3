package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/liquischema/internal/platform"
	"github.com/tordrt/liquischema/internal/schema"
)

// MySQLIntrospector reads one MySQL database. Tables carry no namespace:
// the database itself is the schema.
type MySQLIntrospector struct {
	client     *MySQLClient
	schemaName string
	platform   platform.Platform
}

// NewMySQLIntrospector creates a new MySQL introspector
func NewMySQLIntrospector(client *MySQLClient, schemaName string, p platform.Platform) *MySQLIntrospector {
	if p == nil {
		p = platform.NewMySQL()
	}
	return &MySQLIntrospector{
		client:     client,
		schemaName: schemaName,
		platform:   p,
	}
}

// IntrospectSchema implements Introspector
func (e *MySQLIntrospector) IntrospectSchema(ctx context.Context) (*schema.Schema, error) {
	s := schema.NewSchema()

	tables, err := e.getTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	for _, table := range tables {
		if err := e.fillTable(ctx, table); err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", table.Name, err)
		}
		s.Tables = append(s.Tables, table)
	}

	return s, nil
}

func (e *MySQLIntrospector) getTables(ctx context.Context) ([]*schema.Table, error) {
	query := `
		SELECT table_name, table_comment
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*schema.Table
	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, err
		}
		tables = append(tables, &schema.Table{Asset: schema.NewAsset(name, ""), Comment: comment})
	}

	return tables, rows.Err()
}

func (e *MySQLIntrospector) fillTable(ctx context.Context, table *schema.Table) error {
	columns, err := e.getColumns(ctx, table.Name)
	if err != nil {
		return fmt.Errorf("failed to get columns: %w", err)
	}
	table.Columns = columns

	indexes, err := e.getIndexes(ctx, table.Name)
	if err != nil {
		return fmt.Errorf("failed to get indexes: %w", err)
	}
	table.Indexes = indexes

	foreignKeys, err := e.getForeignKeys(ctx, table.Name)
	if err != nil {
		return fmt.Errorf("failed to get foreign keys: %w", err)
	}
	table.ForeignKeys = foreignKeys

	return nil
}

func (e *MySQLIntrospector) getColumns(ctx context.Context, tableName string) ([]*schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.extra,
			c.column_comment,
			c.numeric_precision,
			c.numeric_scale
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []*schema.Column
	for rows.Next() {
		var (
			name, columnType, nullable, extra, comment string
			defaultVal                                 sql.NullString
			precision, scale                           sql.NullInt64
		)

		if err := rows.Scan(&name, &columnType, &nullable, &defaultVal, &extra, &comment, &precision, &scale); err != nil {
			return nil, err
		}

		typ, length := e.platform.LogicalType(columnType)
		col := &schema.Column{
			Asset:         schema.NewAsset(name, ""),
			Type:          typ,
			Length:        length,
			NotNull:       nullable == "NO",
			Comment:       comment,
			Unsigned:      strings.Contains(strings.ToLower(columnType), "unsigned"),
			Fixed:         strings.HasPrefix(strings.ToLower(columnType), "char("),
			Autoincrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		}
		if typ == schema.TypeDecimal {
			col.Precision = nullInt(precision)
			col.Scale = nullInt(scale)
		}
		if defaultVal.Valid {
			col.Default = normalizeDefault(&defaultVal.String, typ)
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func (e *MySQLIntrospector) getIndexes(ctx context.Context, tableName string) ([]*schema.Index, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name = 'PRIMARY' DESC, s.index_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []*schema.Index
	for rows.Next() {
		var name, columnNames string
		var isUnique int

		if err := rows.Scan(&name, &isUnique, &columnNames); err != nil {
			return nil, err
		}

		primary := name == "PRIMARY"
		if primary {
			name = "primary"
		}
		indexes = append(indexes, &schema.Index{
			Asset:   schema.NewAsset(name, ""),
			Columns: strings.Split(columnNames, ","),
			Unique:  isUnique == 1,
			Primary: primary,
		})
	}

	return indexes, rows.Err()
}

func (e *MySQLIntrospector) getForeignKeys(ctx context.Context, tableName string) ([]*schema.ForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_schema,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.constraint_schema
			AND rc.constraint_name = kcu.constraint_name
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	b := newForeignKeyBuilder("")
	for rows.Next() {
		var name, column, foreignSchema, foreignTable, foreignColumn, onUpdate, onDelete string
		if err := rows.Scan(&name, &column, &foreignSchema, &foreignTable, &foreignColumn, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		if !strings.EqualFold(foreignSchema, e.schemaName) {
			foreignTable = foreignSchema + "." + foreignTable
		}
		b.add(name, column, foreignTable, foreignColumn, onUpdate, onDelete)
	}

	return b.foreignKeys(), rows.Err()
}
