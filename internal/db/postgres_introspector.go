package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/liquischema/internal/platform"
	"github.com/tordrt/liquischema/internal/schema"
)

// PostgresIntrospector reads one PostgreSQL schema
type PostgresIntrospector struct {
	client   *PostgresClient
	schema   string
	platform platform.Platform
}

// NewPostgresIntrospector creates a new PostgreSQL introspector
func NewPostgresIntrospector(client *PostgresClient, schemaName string, p platform.Platform) *PostgresIntrospector {
	if p == nil {
		p = platform.NewPostgres()
	}
	return &PostgresIntrospector{
		client:   client,
		schema:   schemaName,
		platform: p,
	}
}

// IntrospectSchema implements Introspector
func (e *PostgresIntrospector) IntrospectSchema(ctx context.Context) (*schema.Schema, error) {
	s := schema.NewSchema()
	s.ExplicitNamespaces = []string{e.schema}

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

	sequences, err := e.getSequences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sequences: %w", err)
	}
	s.Sequences = sequences

	return s, nil
}

func (e *PostgresIntrospector) getTables(ctx context.Context) ([]*schema.Table, error) {
	query := `
		SELECT c.relname, COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p')
		ORDER BY c.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
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
		tables = append(tables, &schema.Table{Asset: schema.NewAsset(name, e.schema), Comment: comment})
	}

	return tables, rows.Err()
}

func (e *PostgresIntrospector) fillTable(ctx context.Context, table *schema.Table) error {
	name := schema.ResolveName(table).Name

	columns, err := e.getColumns(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get columns: %w", err)
	}
	table.Columns = columns

	indexes, err := e.getIndexes(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get indexes: %w", err)
	}
	table.Indexes = indexes

	foreignKeys, err := e.getForeignKeys(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get foreign keys: %w", err)
	}
	table.ForeignKeys = foreignKeys

	return nil
}

// nativePostgresType picks the declaration to map: arrays keep their element
// type, user-defined types (enums, domains) their own name
func nativePostgresType(dataType, udtName string) string {
	switch dataType {
	case "ARRAY":
		return strings.TrimPrefix(udtName, "_") + "[]"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

func (e *PostgresIntrospector) getColumns(ctx context.Context, tableName string) ([]*schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.is_identity,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []*schema.Column
	for rows.Next() {
		var (
			name, dataType, udtName, nullable, identity, comment string
			defaultVal                                           *string
			charMaxLength, precision, scale                      *int
		)

		if err := rows.Scan(&name, &dataType, &udtName, &nullable, &defaultVal, &identity, &charMaxLength, &precision, &scale, &comment); err != nil {
			return nil, err
		}

		typ, _ := e.platform.LogicalType(nativePostgresType(dataType, udtName))
		col := &schema.Column{
			Asset:   schema.NewAsset(name, ""),
			Type:    typ,
			NotNull: nullable == "NO",
			Comment: comment,
		}

		switch typ {
		case schema.TypeString:
			col.Length = charMaxLength
			col.Fixed = dataType == "character"
		case schema.TypeDecimal:
			col.Precision = precision
			col.Scale = scale
		}

		if identity == "YES" || (defaultVal != nil && strings.HasPrefix(*defaultVal, "nextval(")) {
			col.Autoincrement = true
		} else {
			col.Default = normalizeDefault(defaultVal, typ)
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (e *PostgresIntrospector) getIndexes(ctx context.Context, tableName string) ([]*schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			ix.indisprimary AS is_primary,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind IN ('r', 'p')
			AND n.nspname = $1
			AND t.relname = $2
		GROUP BY i.relname, ix.indisunique, ix.indisprimary
		ORDER BY ix.indisprimary DESC, i.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []*schema.Index
	for rows.Next() {
		var (
			name            string
			unique, primary bool
			columns         []string
		)
		if err := rows.Scan(&name, &unique, &primary, &columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, &schema.Index{
			Asset:   schema.NewAsset(name, ""),
			Columns: columns,
			Unique:  unique,
			Primary: primary,
		})
	}

	return indexes, rows.Err()
}

// postgresActions decodes pg_constraint referential action codes
var postgresActions = map[string]string{
	"a": "NO ACTION",
	"r": "RESTRICT",
	"c": "CASCADE",
	"n": "SET NULL",
	"d": "SET DEFAULT",
}

func (e *PostgresIntrospector) getForeignKeys(ctx context.Context, tableName string) ([]*schema.ForeignKey, error) {
	query := `
		SELECT
			con.conname,
			att.attname,
			fn.nspname,
			fc.relname,
			fatt.attname,
			con.confupdtype::text,
			con.confdeltype::text
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_class fc ON fc.oid = con.confrelid
		JOIN pg_namespace fn ON fn.oid = fc.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
		JOIN pg_attribute fatt ON fatt.attrelid = con.confrelid AND fatt.attnum = k.fattnum
		WHERE con.contype = 'f'
			AND n.nspname = $1
			AND c.relname = $2
		ORDER BY con.conname, k.ord
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	b := newForeignKeyBuilder(e.schema)
	for rows.Next() {
		var name, column, foreignSchema, foreignTable, foreignColumn, onUpdate, onDelete string
		if err := rows.Scan(&name, &column, &foreignSchema, &foreignTable, &foreignColumn, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		b.add(name, column, foreignSchema+"."+foreignTable, foreignColumn, postgresActions[onUpdate], postgresActions[onDelete])
	}

	return b.foreignKeys(), rows.Err()
}

// getSequences skips sequences owned by serial and identity columns
func (e *PostgresIntrospector) getSequences(ctx context.Context) ([]*schema.Sequence, error) {
	query := `
		SELECT c.relname, s.seqstart, s.seqincrement
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_sequence s ON s.seqrelid = c.oid
		WHERE c.relkind = 'S'
			AND n.nspname = $1
			AND NOT EXISTS (
				SELECT 1 FROM pg_depend d
				WHERE d.objid = c.oid AND d.deptype IN ('a', 'i')
			)
		ORDER BY c.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sequences []*schema.Sequence
	for rows.Next() {
		var name string
		var start, increment int64
		if err := rows.Scan(&name, &start, &increment); err != nil {
			return nil, err
		}
		sequences = append(sequences, &schema.Sequence{
			Asset:          schema.NewAsset(name, e.schema),
			InitialValue:   start,
			AllocationSize: increment,
		})
	}

	return sequences, rows.Err()
}
