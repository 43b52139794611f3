package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/liquischema/internal/schema"
)

// TextFormatter writes a schema diff as a compact change plan
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the diff in plan order
func (f *TextFormatter) Format(diff *schema.SchemaDiff) error {
	if diff.IsEmpty() {
		_, err := fmt.Fprintln(f.writer, "NO CHANGES")
		return err
	}

	w := &errWriter{w: f.writer}

	for _, ns := range diff.CreatedNamespaces {
		w.printf("CREATE SCHEMA %s\n", ns)
	}
	for _, seq := range diff.AlteredSequences {
		w.printf("ALTER SEQUENCE %s\n", formatSequence(seq))
	}
	for _, seq := range diff.DroppedSequences {
		w.printf("DROP SEQUENCE %s\n", seq.AssetName())
	}
	for _, seq := range diff.CreatedSequences {
		w.printf("CREATE SEQUENCE %s\n", formatSequence(seq))
	}
	for _, table := range diff.CreatedTables {
		f.formatCreatedTable(w, table)
	}
	for _, table := range diff.DroppedTables {
		w.printf("DROP TABLE %s\n", table.AssetName())
	}
	for _, td := range diff.AlteredTables {
		if !td.IsEmpty() {
			f.formatAlteredTable(w, td)
		}
	}

	return w.err
}

func (f *TextFormatter) formatCreatedTable(w *errWriter, table *schema.Table) {
	pkStr := ""
	if pk := table.PrimaryKey(); pk != nil {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(pk.Columns, ", "))
	}
	w.printf("CREATE TABLE %s%s\n", table.AssetName(), pkStr)

	for _, col := range table.Columns {
		w.printf("  %s\n", formatColumn(col))
	}

	var indexes []*schema.Index
	for _, idx := range table.Indexes {
		if !idx.Primary {
			indexes = append(indexes, idx)
		}
	}
	if len(indexes) > 0 {
		w.println("  INDEXES:")
		for _, idx := range indexes {
			w.printf("    %s\n", formatIndex(idx))
		}
	}

	if len(table.ForeignKeys) > 0 {
		w.println("  FOREIGN KEYS:")
		for _, fk := range table.ForeignKeys {
			w.printf("    %s\n", formatForeignKey(fk))
		}
	}
}

func (f *TextFormatter) formatAlteredTable(w *errWriter, td *schema.TableDiff) {
	w.printf("ALTER TABLE %s\n", td.OldTable.AssetName())

	for _, col := range td.AddedColumns {
		w.printf("  + %s\n", formatColumn(col))
	}
	for _, cd := range td.ChangedColumns {
		w.printf("  ~ %s: %s\n", cd.NewColumn.Name, strings.Join(cd.ChangedProperties(), ", "))
	}
	for _, rc := range td.RenamedColumns {
		w.printf("  > %s -> %s\n", rc.OldName, rc.Column.Name)
	}
	for _, col := range td.DroppedColumns {
		w.printf("  - %s\n", col.Name)
	}

	if len(td.AddedIndexes)+len(td.RenamedIndexes)+len(td.DroppedIndexes) > 0 {
		w.println("  INDEXES:")
		for _, idx := range td.AddedIndexes {
			w.printf("    + %s\n", formatIndex(idx))
		}
		for _, ri := range td.RenamedIndexes {
			w.printf("    > %s -> %s\n", ri.OldName, ri.Index.Name)
		}
		for _, idx := range td.DroppedIndexes {
			w.printf("    - %s\n", idx.Name)
		}
	}

	if len(td.AddedForeignKeys)+len(td.ModifiedForeignKeys)+len(td.DroppedForeignKeys) > 0 {
		w.println("  FOREIGN KEYS:")
		for _, fk := range td.AddedForeignKeys {
			w.printf("    + %s\n", formatForeignKey(fk))
		}
		for _, fk := range td.ModifiedForeignKeys {
			w.printf("    ~ %s\n", formatForeignKey(fk))
		}
		for _, fk := range td.DroppedForeignKeys {
			w.printf("    - %s\n", fk.Name)
		}
	}
}
