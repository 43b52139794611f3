// Package platform describes the database engines a changelog can target.
//
// A Platform knows how to declare a logical column type in the engine's
// native SQL, how to create a schema namespace, and how to map a native type
// reported by introspection back to a logical type.
package platform

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tordrt/liquischema/internal/schema"
)

// ErrSchemaNotSupported is returned by platforms without first-class schemas
var ErrSchemaNotSupported = errors.New("platform does not support schemas")

// Platform is the database capability object used by the changelog emitter
type Platform interface {
	// Name returns the canonical platform name
	Name() string
	// DefaultNamespace returns the namespace objects live in when unqualified
	DefaultNamespace() string
	// CreateSchemaSQL returns the statement creating a namespace
	CreateSchemaSQL(namespace string) (string, error)
	// SQLDeclaration returns the native type declaration of a column
	SQLDeclaration(col *schema.Column) string
	// LogicalType maps a native type to a logical type and its declared length
	LogicalType(native string) (schema.Type, *int)
}

// ByName resolves a platform from its name
func ByName(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return NewMySQL(), nil
	case "postgres", "postgresql", "pg":
		return NewPostgres(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s (must be mysql, postgres, or sqlite)", name)
	}
}

var nativeTypeRe = regexp.MustCompile(`^([a-z][a-z0-9 _]*?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?(\s+unsigned)?(\[\])?$`)

// nativeType is a parsed native declaration such as "varchar(255)"
type nativeType struct {
	base     string
	length   *int
	scale    *int
	unsigned bool
	array    bool
}

func parseNativeType(native string) nativeType {
	s := strings.ToLower(strings.TrimSpace(native))
	m := nativeTypeRe.FindStringSubmatch(s)
	if m == nil {
		return nativeType{base: s}
	}

	nt := nativeType{
		base:     strings.TrimSpace(m[1]),
		unsigned: m[4] != "",
		array:    m[5] != "",
	}
	if m[2] != "" {
		if n, err := strconv.Atoi(m[2]); err == nil {
			nt.length = &n
		}
	}
	if m[3] != "" {
		if n, err := strconv.Atoi(m[3]); err == nil {
			nt.scale = &n
		}
	}
	return nt
}

// lengthOr returns the column length or a fallback
func lengthOr(col *schema.Column, fallback int) int {
	if col.Length != nil {
		return *col.Length
	}
	return fallback
}

func decimalDeclaration(col *schema.Column) string {
	precision, scale := 10, 0
	if col.Precision != nil {
		precision = *col.Precision
	}
	if col.Scale != nil {
		scale = *col.Scale
	}
	return fmt.Sprintf("NUMERIC(%d, %d)", precision, scale)
}
