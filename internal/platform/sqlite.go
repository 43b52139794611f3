package platform

import (
	"fmt"
	"strings"

	"github.com/tordrt/liquischema/internal/schema"
)

// SQLite targets SQLite 3
type SQLite struct{}

// NewSQLite creates a SQLite platform
func NewSQLite() *SQLite {
	return &SQLite{}
}

// Name implements Platform
func (p *SQLite) Name() string {
	return "sqlite"
}

// DefaultNamespace implements Platform
func (p *SQLite) DefaultNamespace() string {
	return ""
}

// CreateSchemaSQL implements Platform
func (p *SQLite) CreateSchemaSQL(namespace string) (string, error) {
	return "", fmt.Errorf("create schema %s: %w", namespace, ErrSchemaNotSupported)
}

// SQLDeclaration implements Platform
func (p *SQLite) SQLDeclaration(col *schema.Column) string {
	switch col.Type {
	case schema.TypeString:
		if col.Fixed {
			return fmt.Sprintf("CHAR(%d)", lengthOr(col, 255))
		}
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255))
	case schema.TypeText, schema.TypeJSON:
		return "CLOB"
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeBigInt:
		return "BIGINT"
	case schema.TypeFloat:
		return "DOUBLE PRECISION"
	case schema.TypeDecimal:
		return decimalDeclaration(col)
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeDate, schema.TypeDateImmutable:
		return "DATE"
	case schema.TypeDateTime, schema.TypeDateTimeImmutable, schema.TypeDateTimeTz:
		return "DATETIME"
	case schema.TypeTime:
		return "TIME"
	case schema.TypeGUID:
		return "CHAR(36)"
	case schema.TypeBinary, schema.TypeBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255))
	}
}

// LogicalType implements Platform, following SQLite's type affinity rules
// for declarations it does not recognize
func (p *SQLite) LogicalType(native string) (schema.Type, *int) {
	nt := parseNativeType(native)
	switch nt.base {
	case "varchar", "char", "character", "nvarchar", "nchar", "varying character":
		return schema.TypeString, nt.length
	case "text", "clob":
		return schema.TypeText, nil
	case "integer", "int", "mediumint":
		return schema.TypeInteger, nil
	case "smallint", "tinyint":
		return schema.TypeSmallInt, nil
	case "bigint":
		return schema.TypeBigInt, nil
	case "real", "double", "double precision", "float":
		return schema.TypeFloat, nil
	case "numeric", "decimal":
		return schema.TypeDecimal, nil
	case "boolean", "bool":
		return schema.TypeBoolean, nil
	case "date":
		return schema.TypeDate, nil
	case "datetime", "timestamp":
		return schema.TypeDateTime, nil
	case "time":
		return schema.TypeTime, nil
	case "blob", "":
		return schema.TypeBlob, nil
	}

	switch {
	case strings.Contains(nt.base, "int"):
		return schema.TypeInteger, nil
	case strings.Contains(nt.base, "char"), strings.Contains(nt.base, "clob"), strings.Contains(nt.base, "text"):
		return schema.TypeText, nil
	case strings.Contains(nt.base, "real"), strings.Contains(nt.base, "floa"), strings.Contains(nt.base, "doub"):
		return schema.TypeFloat, nil
	default:
		return schema.TypeDecimal, nil
	}
}
