// Package formatter renders schema diffs as human-readable change plans and
// writes changelogs split into one file per change set.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/liquischema/internal/schema"
)

// Formatter renders a schema diff
type Formatter interface {
	Format(diff *schema.SchemaDiff) error
}

// New returns the formatter for format, "text" or "markdown"
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case formatText:
		return NewTextFormatter(w), nil
	case formatMarkdown:
		return NewMarkdownFormatter(w), nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
	}
}

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// errWriter keeps the first write error and skips every later write
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) println(s string) {
	e.printf("%s\n", s)
}

func formatType(col *schema.Column) string {
	if col.ColumnDefinition != "" {
		return col.ColumnDefinition
	}

	t := string(col.Type)
	switch {
	case col.Precision != nil && col.Scale != nil:
		t = fmt.Sprintf("%s(%d,%d)", t, *col.Precision, *col.Scale)
	case col.Precision != nil:
		t = fmt.Sprintf("%s(%d)", t, *col.Precision)
	case col.Length != nil:
		t = fmt.Sprintf("%s(%d)", t, *col.Length)
	}
	if col.Unsigned {
		t += " unsigned"
	}
	return t
}

func columnConstraints(col *schema.Column) []string {
	var parts []string
	if col.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if col.Autoincrement {
		parts = append(parts, "AUTOINCREMENT")
	}
	if col.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %v", col.Default))
	}
	return parts
}

func formatColumn(col *schema.Column) string {
	parts := append([]string{col.Name + ":", formatType(col)}, columnConstraints(col)...)
	return strings.Join(parts, " ")
}

func formatIndex(idx *schema.Index) string {
	s := fmt.Sprintf("%s (%s)", idx.Name, strings.Join(idx.Columns, ", "))
	if idx.Unique {
		s += " UNIQUE"
	}
	return s
}

func formatForeignKey(fk *schema.ForeignKey) string {
	s := fmt.Sprintf("%s (%s) -> %s(%s)",
		fk.Name,
		strings.Join(fk.LocalColumns, ", "),
		fk.ForeignTable,
		strings.Join(fk.ForeignColumns, ", "))
	if fk.OnDelete != "" {
		s += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		s += " ON UPDATE " + fk.OnUpdate
	}
	return s
}

func formatSequence(seq *schema.Sequence) string {
	return fmt.Sprintf("%s (start %d, increment %d)", seq.AssetName(), seq.InitialValue, seq.AllocationSize)
}
