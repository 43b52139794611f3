package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/liquischema/internal/schema"
)

// MarkdownFormatter writes a schema diff as a markdown report
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the diff in markdown format
func (f *MarkdownFormatter) Format(diff *schema.SchemaDiff) error {
	w := &errWriter{w: f.writer}
	w.println("# Schema Changes")
	w.println("")

	if diff.IsEmpty() {
		w.println("No changes.")
		return w.err
	}

	if len(diff.CreatedNamespaces) > 0 {
		w.println("## Created schemas")
		w.println("")
		for _, ns := range diff.CreatedNamespaces {
			w.printf("- %s\n", ns)
		}
		w.println("")
	}

	f.formatSequences(w, "Altered sequences", diff.AlteredSequences)
	f.formatSequences(w, "Dropped sequences", diff.DroppedSequences)
	f.formatSequences(w, "Created sequences", diff.CreatedSequences)

	for _, table := range diff.CreatedTables {
		f.formatCreatedTable(w, table)
	}

	if len(diff.DroppedTables) > 0 {
		w.println("## Dropped tables")
		w.println("")
		for _, table := range diff.DroppedTables {
			w.printf("- %s\n", table.AssetName())
		}
		w.println("")
	}

	for _, td := range diff.AlteredTables {
		if !td.IsEmpty() {
			f.formatAlteredTable(w, td)
		}
	}

	return w.err
}

func (f *MarkdownFormatter) formatSequences(w *errWriter, title string, sequences []*schema.Sequence) {
	if len(sequences) == 0 {
		return
	}
	w.printf("## %s\n\n", title)
	for _, seq := range sequences {
		w.printf("- %s\n", formatSequence(seq))
	}
	w.println("")
}

func (f *MarkdownFormatter) formatCreatedTable(w *errWriter, table *schema.Table) {
	w.printf("## Create %s\n\n", table.AssetName())

	var pk []string
	if idx := table.PrimaryKey(); idx != nil {
		pk = idx.Columns
	}

	w.println("### Columns")
	w.println("")
	for _, col := range table.Columns {
		constraints := columnConstraints(col)
		if isPrimary(pk, col.Name) {
			constraints = append([]string{"PK"}, constraints...)
		}
		if len(constraints) > 0 {
			w.printf("- **%s:** %s, %s\n", col.Name, formatType(col), strings.Join(constraints, ", "))
		} else {
			w.printf("- **%s:** %s\n", col.Name, formatType(col))
		}
	}
	w.println("")

	f.formatIndexes(w, table.Indexes)

	if len(table.ForeignKeys) > 0 {
		w.println("### References")
		w.println("")
		for _, fk := range table.ForeignKeys {
			w.printf("- %s\n", formatForeignKey(fk))
		}
		w.println("")
	}
}

func (f *MarkdownFormatter) formatIndexes(w *errWriter, indexes []*schema.Index) {
	var secondary []*schema.Index
	for _, idx := range indexes {
		if !idx.Primary {
			secondary = append(secondary, idx)
		}
	}
	if len(secondary) == 0 {
		return
	}

	w.println("### Idx")
	w.println("")
	for _, idx := range secondary {
		if idx.Unique {
			w.printf("- %s on (%s), unique\n", idx.Name, strings.Join(idx.Columns, ", "))
		} else {
			w.printf("- %s on (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
		}
	}
	w.println("")
}

func (f *MarkdownFormatter) formatAlteredTable(w *errWriter, td *schema.TableDiff) {
	w.printf("## Alter %s\n\n", td.OldTable.AssetName())

	var lines []string
	for _, col := range td.AddedColumns {
		lines = append(lines, fmt.Sprintf("add column **%s** %s", col.Name, formatType(col)))
	}
	for _, cd := range td.ChangedColumns {
		lines = append(lines, fmt.Sprintf("change column **%s** (%s)", cd.NewColumn.Name, strings.Join(cd.ChangedProperties(), ", ")))
	}
	for _, rc := range td.RenamedColumns {
		lines = append(lines, fmt.Sprintf("rename column **%s** to **%s**", rc.OldName, rc.Column.Name))
	}
	for _, col := range td.DroppedColumns {
		lines = append(lines, fmt.Sprintf("drop column **%s**", col.Name))
	}
	for _, idx := range td.AddedIndexes {
		lines = append(lines, "add index "+formatIndex(idx))
	}
	for _, ri := range td.RenamedIndexes {
		lines = append(lines, fmt.Sprintf("rename index %s to %s", ri.OldName, ri.Index.Name))
	}
	for _, idx := range td.DroppedIndexes {
		lines = append(lines, "drop index "+idx.Name)
	}
	for _, fk := range td.AddedForeignKeys {
		lines = append(lines, "add foreign key "+formatForeignKey(fk))
	}
	for _, fk := range td.ModifiedForeignKeys {
		lines = append(lines, "modify foreign key "+formatForeignKey(fk))
	}
	for _, fk := range td.DroppedForeignKeys {
		lines = append(lines, "drop foreign key "+fk.Name)
	}

	for _, line := range lines {
		w.printf("- %s\n", line)
	}
	w.println("")
}

func isPrimary(pk []string, column string) bool {
	for _, c := range pk {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}
