package platform

import (
	"fmt"

	"github.com/tordrt/liquischema/internal/schema"
)

// Postgres targets PostgreSQL
type Postgres struct{}

// NewPostgres creates a PostgreSQL platform
func NewPostgres() *Postgres {
	return &Postgres{}
}

// Name implements Platform
func (p *Postgres) Name() string {
	return "postgresql"
}

// DefaultNamespace implements Platform
func (p *Postgres) DefaultNamespace() string {
	return "public"
}

// CreateSchemaSQL implements Platform
func (p *Postgres) CreateSchemaSQL(namespace string) (string, error) {
	return "CREATE SCHEMA " + namespace, nil
}

// SQLDeclaration implements Platform
func (p *Postgres) SQLDeclaration(col *schema.Column) string {
	switch col.Type {
	case schema.TypeString:
		if col.Fixed {
			return fmt.Sprintf("CHAR(%d)", lengthOr(col, 255))
		}
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255))
	case schema.TypeText:
		return "TEXT"
	case schema.TypeInteger:
		if col.Autoincrement {
			return "SERIAL"
		}
		return "INT"
	case schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeBigInt:
		if col.Autoincrement {
			return "BIGSERIAL"
		}
		return "BIGINT"
	case schema.TypeFloat:
		return "DOUBLE PRECISION"
	case schema.TypeDecimal:
		return decimalDeclaration(col)
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDate, schema.TypeDateImmutable:
		return "DATE"
	case schema.TypeDateTime, schema.TypeDateTimeImmutable:
		return "TIMESTAMP(0) WITHOUT TIME ZONE"
	case schema.TypeDateTimeTz:
		return "TIMESTAMP(0) WITH TIME ZONE"
	case schema.TypeTime:
		return "TIME(0) WITHOUT TIME ZONE"
	case schema.TypeJSON:
		return "JSON"
	case schema.TypeGUID:
		return "UUID"
	case schema.TypeBinary, schema.TypeBlob:
		return "BYTEA"
	default:
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255))
	}
}

// LogicalType implements Platform
func (p *Postgres) LogicalType(native string) (schema.Type, *int) {
	nt := parseNativeType(native)
	if nt.array {
		return schema.TypeJSON, nil
	}

	switch nt.base {
	case "character varying", "varchar", "character", "char", "bpchar":
		return schema.TypeString, nt.length
	case "text", "citext":
		return schema.TypeText, nil
	case "integer", "int", "int4", "serial":
		return schema.TypeInteger, nil
	case "smallint", "int2", "smallserial":
		return schema.TypeSmallInt, nil
	case "bigint", "int8", "bigserial":
		return schema.TypeBigInt, nil
	case "double precision", "float8", "real", "float4":
		return schema.TypeFloat, nil
	case "numeric", "decimal", "money":
		return schema.TypeDecimal, nil
	case "boolean", "bool":
		return schema.TypeBoolean, nil
	case "date":
		return schema.TypeDate, nil
	case "timestamp", "timestamp without time zone":
		return schema.TypeDateTime, nil
	case "timestamptz", "timestamp with time zone":
		return schema.TypeDateTimeTz, nil
	case "time", "time without time zone", "timetz", "time with time zone":
		return schema.TypeTime, nil
	case "json", "jsonb":
		return schema.TypeJSON, nil
	case "uuid":
		return schema.TypeGUID, nil
	case "bytea":
		return schema.TypeBlob, nil
	default:
		return schema.TypeString, nt.length
	}
}
