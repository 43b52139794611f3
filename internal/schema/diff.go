package schema

import (
	"fmt"
	"maps"
	"strings"
)

// Column properties tracked by ColumnDiff
const (
	PropertyName             = "name"
	PropertyType             = "type"
	PropertyLength           = "length"
	PropertyPrecision        = "precision"
	PropertyScale            = "scale"
	PropertyUnsigned         = "unsigned"
	PropertyFixed            = "fixed"
	PropertyNotNull          = "notnull"
	PropertyDefault          = "default"
	PropertyAutoincrement    = "autoincrement"
	PropertyComment          = "comment"
	PropertyColumnDefinition = "columnDefinition"
	PropertyPlatformOptions  = "platformOptions"
)

// SchemaDiff describes the changes needed to turn one schema into another
type SchemaDiff struct {
	CreatedNamespaces []string
	DroppedNamespaces []string
	CreatedSequences  []*Sequence
	AlteredSequences  []*Sequence
	DroppedSequences  []*Sequence
	CreatedTables     []*Table
	AlteredTables     []*TableDiff
	DroppedTables     []*Table
}

// IsEmpty reports whether the diff carries no change at all
func (d *SchemaDiff) IsEmpty() bool {
	if len(d.CreatedNamespaces)+len(d.DroppedNamespaces)+len(d.CreatedSequences)+
		len(d.AlteredSequences)+len(d.DroppedSequences)+len(d.CreatedTables)+
		len(d.DroppedTables) > 0 {
		return false
	}
	for _, td := range d.AlteredTables {
		if !td.IsEmpty() {
			return false
		}
	}
	return true
}

// RenamedColumn is a column whose only change is its name
type RenamedColumn struct {
	OldName string
	Column  *Column
}

// RenamedIndex is an index whose only change is its name
type RenamedIndex struct {
	OldName string
	Index   *Index
}

// TableDiff describes the changes of a single table
type TableDiff struct {
	OldTable *Table

	AddedColumns   []*Column
	ChangedColumns []*ColumnDiff
	RenamedColumns []*RenamedColumn
	DroppedColumns []*Column

	AddedIndexes   []*Index
	RenamedIndexes []*RenamedIndex
	DroppedIndexes []*Index

	AddedForeignKeys    []*ForeignKey
	ModifiedForeignKeys []*ForeignKey
	DroppedForeignKeys  []*ForeignKey
}

// IsEmpty reports whether the table diff carries no change
func (d *TableDiff) IsEmpty() bool {
	return len(d.AddedColumns)+len(d.ChangedColumns)+len(d.RenamedColumns)+len(d.DroppedColumns)+
		len(d.AddedIndexes)+len(d.RenamedIndexes)+len(d.DroppedIndexes)+
		len(d.AddedForeignKeys)+len(d.ModifiedForeignKeys)+len(d.DroppedForeignKeys) == 0
}

// AddedColumn returns an added column by name
func (d *TableDiff) AddedColumn(name string) *Column {
	for _, c := range d.AddedColumns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// RenamedColumn returns the new definition of a column that was renamed,
// either plainly or together with other changes
func (d *TableDiff) RenamedColumn(name string) *Column {
	for _, rc := range d.RenamedColumns {
		if rc.Column != nil && strings.EqualFold(rc.Column.Name, name) {
			return rc.Column
		}
	}
	for _, cd := range d.ChangedColumns {
		if cd.NewColumn != nil && strings.EqualFold(cd.NewColumn.Name, name) {
			return cd.NewColumn
		}
	}
	return nil
}

// ColumnDiff pairs the old and new definition of a changed column
type ColumnDiff struct {
	OldColumn *Column
	NewColumn *Column
}

// HasNameChanged reports a rename
func (d *ColumnDiff) HasNameChanged() bool {
	return d.OldColumn.Name != d.NewColumn.Name
}

// HasTypeChanged reports a change of the logical type
func (d *ColumnDiff) HasTypeChanged() bool {
	return d.OldColumn.Type != d.NewColumn.Type
}

// HasLengthChanged reports a change of the declared length
func (d *ColumnDiff) HasLengthChanged() bool {
	return !equalIntPtr(d.OldColumn.Length, d.NewColumn.Length)
}

// HasDefaultChanged reports a change of the default value
func (d *ColumnDiff) HasDefaultChanged() bool {
	return !sameDefault(d.OldColumn.Default, d.NewColumn.Default)
}

// HasNotNullChanged reports a change of nullability
func (d *ColumnDiff) HasNotNullChanged() bool {
	return d.OldColumn.NotNull != d.NewColumn.NotNull
}

// ChangedProperties lists every changed property except the name, in a fixed order
func (d *ColumnDiff) ChangedProperties() []string {
	o, n := d.OldColumn, d.NewColumn
	var props []string
	if d.HasTypeChanged() {
		props = append(props, PropertyType)
	}
	if d.HasLengthChanged() {
		props = append(props, PropertyLength)
	}
	if !equalIntPtr(o.Precision, n.Precision) {
		props = append(props, PropertyPrecision)
	}
	if !equalIntPtr(o.Scale, n.Scale) {
		props = append(props, PropertyScale)
	}
	if o.Unsigned != n.Unsigned {
		props = append(props, PropertyUnsigned)
	}
	if o.Fixed != n.Fixed {
		props = append(props, PropertyFixed)
	}
	if d.HasNotNullChanged() {
		props = append(props, PropertyNotNull)
	}
	if d.HasDefaultChanged() {
		props = append(props, PropertyDefault)
	}
	if o.Autoincrement != n.Autoincrement {
		props = append(props, PropertyAutoincrement)
	}
	if o.Comment != n.Comment {
		props = append(props, PropertyComment)
	}
	if o.ColumnDefinition != n.ColumnDefinition {
		props = append(props, PropertyColumnDefinition)
	}
	if !maps.Equal(o.PlatformOptions, n.PlatformOptions) {
		props = append(props, PropertyPlatformOptions)
	}
	return props
}

// IsEmpty reports whether nothing but possibly the name changed
func (d *ColumnDiff) IsEmpty() bool {
	return len(d.ChangedProperties()) == 0
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameDefault(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
