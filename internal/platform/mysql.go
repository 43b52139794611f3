package platform

import (
	"fmt"

	"github.com/tordrt/liquischema/internal/schema"
)

// MySQL targets MySQL and MariaDB
type MySQL struct{}

// NewMySQL creates a MySQL platform
func NewMySQL() *MySQL {
	return &MySQL{}
}

// Name implements Platform
func (p *MySQL) Name() string {
	return "mysql"
}

// DefaultNamespace implements Platform. MySQL databases are not namespaces.
func (p *MySQL) DefaultNamespace() string {
	return ""
}

// CreateSchemaSQL implements Platform
func (p *MySQL) CreateSchemaSQL(namespace string) (string, error) {
	return "", fmt.Errorf("create schema %s: %w", namespace, ErrSchemaNotSupported)
}

// SQLDeclaration implements Platform
func (p *MySQL) SQLDeclaration(col *schema.Column) string {
	var decl string
	switch col.Type {
	case schema.TypeString:
		if col.Fixed {
			decl = fmt.Sprintf("CHAR(%d)", lengthOr(col, 255))
		} else {
			decl = fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255))
		}
	case schema.TypeText:
		decl = "LONGTEXT"
	case schema.TypeInteger:
		decl = "INT"
	case schema.TypeSmallInt:
		decl = "SMALLINT"
	case schema.TypeBigInt:
		decl = "BIGINT"
	case schema.TypeFloat:
		decl = "DOUBLE PRECISION"
	case schema.TypeDecimal:
		decl = decimalDeclaration(col)
	case schema.TypeBoolean:
		decl = "TINYINT(1)"
	case schema.TypeDate, schema.TypeDateImmutable:
		decl = "DATE"
	case schema.TypeDateTime, schema.TypeDateTimeImmutable, schema.TypeDateTimeTz:
		decl = "DATETIME"
	case schema.TypeTime:
		decl = "TIME"
	case schema.TypeJSON:
		decl = "JSON"
	case schema.TypeGUID:
		decl = "CHAR(36)"
	case schema.TypeBinary:
		decl = fmt.Sprintf("VARBINARY(%d)", lengthOr(col, 255))
	case schema.TypeBlob:
		decl = "LONGBLOB"
	default:
		decl = fmt.Sprintf("VARCHAR(%d)", lengthOr(col, 255))
	}

	if col.Unsigned && isMySQLNumeric(col.Type) {
		decl += " UNSIGNED"
	}
	return decl
}

func isMySQLNumeric(t schema.Type) bool {
	switch t {
	case schema.TypeInteger, schema.TypeSmallInt, schema.TypeBigInt, schema.TypeFloat, schema.TypeDecimal:
		return true
	}
	return false
}

// LogicalType implements Platform
func (p *MySQL) LogicalType(native string) (schema.Type, *int) {
	nt := parseNativeType(native)
	switch nt.base {
	case "varchar", "char":
		return schema.TypeString, nt.length
	case "tinytext", "text", "mediumtext", "longtext":
		return schema.TypeText, nil
	case "tinyint":
		if nt.length != nil && *nt.length == 1 {
			return schema.TypeBoolean, nil
		}
		return schema.TypeSmallInt, nil
	case "smallint":
		return schema.TypeSmallInt, nil
	case "int", "integer", "mediumint":
		return schema.TypeInteger, nil
	case "bigint":
		return schema.TypeBigInt, nil
	case "float", "double", "double precision", "real":
		return schema.TypeFloat, nil
	case "decimal", "numeric":
		return schema.TypeDecimal, nil
	case "bool", "boolean":
		return schema.TypeBoolean, nil
	case "date":
		return schema.TypeDate, nil
	case "datetime", "timestamp":
		return schema.TypeDateTime, nil
	case "time":
		return schema.TypeTime, nil
	case "json":
		return schema.TypeJSON, nil
	case "binary", "varbinary":
		return schema.TypeBinary, nt.length
	case "tinyblob", "blob", "mediumblob", "longblob":
		return schema.TypeBlob, nil
	default:
		return schema.TypeString, nt.length
	}
}
