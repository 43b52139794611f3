package schema

import "strings"

// Type is a logical, engine-independent column type
type Type string

// Logical column types
const (
	TypeString            Type = "string"
	TypeText              Type = "text"
	TypeInteger           Type = "integer"
	TypeSmallInt          Type = "smallint"
	TypeBigInt            Type = "bigint"
	TypeFloat             Type = "float"
	TypeDecimal           Type = "decimal"
	TypeBoolean           Type = "boolean"
	TypeDate              Type = "date"
	TypeDateImmutable     Type = "date_immutable"
	TypeDateTime          Type = "datetime"
	TypeDateTimeImmutable Type = "datetime_immutable"
	TypeDateTimeTz        Type = "datetimetz"
	TypeTime              Type = "time"
	TypeJSON              Type = "json"
	TypeGUID              Type = "guid"
	TypeBinary            Type = "binary"
	TypeBlob              Type = "blob"
)

var knownTypes = map[Type]bool{
	TypeString: true, TypeText: true, TypeInteger: true, TypeSmallInt: true, TypeBigInt: true,
	TypeFloat: true, TypeDecimal: true, TypeBoolean: true, TypeDate: true, TypeDateImmutable: true,
	TypeDateTime: true, TypeDateTimeImmutable: true, TypeDateTimeTz: true, TypeTime: true,
	TypeJSON: true, TypeGUID: true, TypeBinary: true, TypeBlob: true,
}

// Valid reports whether t is one of the known logical types
func (t Type) Valid() bool {
	return knownTypes[t]
}

// Schema represents a complete database schema
type Schema struct {
	Tables    []*Table
	Sequences []*Sequence

	// ExplicitNamespaces lists namespaces that exist even without tables
	ExplicitNamespaces []string
}

// NewSchema creates an empty schema
func NewSchema() *Schema {
	return &Schema{}
}

// Namespaces returns every namespace referenced by the schema in first-seen order
func (s *Schema) Namespaces() []string {
	seen := make(map[string]bool)
	var namespaces []string
	add := func(ns string) {
		key := strings.ToLower(ns)
		if ns == "" || seen[key] {
			return
		}
		seen[key] = true
		namespaces = append(namespaces, ns)
	}

	for _, ns := range s.ExplicitNamespaces {
		add(ns)
	}
	for _, t := range s.Tables {
		add(t.NamespaceName())
	}
	for _, seq := range s.Sequences {
		add(seq.NamespaceName())
	}
	return namespaces
}

// HasNamespace reports whether ns is referenced by the schema
func (s *Schema) HasNamespace(ns string) bool {
	for _, n := range s.Namespaces() {
		if strings.EqualFold(n, ns) {
			return true
		}
	}
	return false
}

// Table returns a table by qualified or local name, or nil if not found
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if matchesName(t, name) {
			return t
		}
	}
	return nil
}

// HasTable checks if the schema contains a table
func (s *Schema) HasTable(name string) bool {
	return s.Table(name) != nil
}

// DropTable removes a table from the schema, returning false when it was not present
func (s *Schema) DropTable(name string) bool {
	for i, t := range s.Tables {
		if matchesName(t, name) {
			s.Tables = append(s.Tables[:i:i], s.Tables[i+1:]...)
			return true
		}
	}
	return false
}

// Sequence returns a sequence by name, or nil if not found
func (s *Schema) Sequence(name string) *Sequence {
	for _, seq := range s.Sequences {
		if matchesName(seq, name) {
			return seq
		}
	}
	return nil
}

func matchesName(obj Object, name string) bool {
	if strings.EqualFold(obj.AssetName(), name) {
		return true
	}
	return strings.EqualFold(ResolveName(obj).Name, name)
}

// Table represents a database table
type Table struct {
	Asset
	Columns     []*Column
	Indexes     []*Index
	ForeignKeys []*ForeignKey
	Comment     string
}

// Column returns a column by name, or nil if not found
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// HasColumn checks if a table has a column by name
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// Index returns an index by name, or nil if not found
func (t *Table) Index(name string) *Index {
	for _, idx := range t.Indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx
		}
	}
	return nil
}

// PrimaryKey returns the primary index, or nil when the table has none
func (t *Table) PrimaryKey() *Index {
	for _, idx := range t.Indexes {
		if idx.Primary {
			return idx
		}
	}
	return nil
}

// Column represents a table column
type Column struct {
	Asset
	Type      Type
	Length    *int
	Precision *int
	Scale     *int
	Unsigned  bool
	Fixed     bool
	NotNull   bool

	// Default holds nil, a bool, a number or a string
	Default       any
	Comment       string
	Autoincrement bool

	// ColumnDefinition is a raw type declaration used verbatim when set
	ColumnDefinition string

	PlatformOptions map[string]string
}

// Index represents a database index
type Index struct {
	Asset
	Columns []string
	Unique  bool
	Primary bool
	Flags   []string
}

// SameDefinition reports whether two indexes cover the same columns with the same kind
func (i *Index) SameDefinition(other *Index) bool {
	if i.Unique != other.Unique || i.Primary != other.Primary {
		return false
	}
	return equalFoldSlices(i.Columns, other.Columns) && equalFoldSlices(i.Flags, other.Flags)
}

// ForeignKey represents a foreign key constraint
type ForeignKey struct {
	Asset
	LocalColumns []string

	// ForeignTable is the referenced table, possibly namespace-qualified
	ForeignTable   string
	ForeignColumns []string
	OnDelete       string
	OnUpdate       string
}

// SameDefinition reports whether two foreign keys reference the same columns with the same actions
func (fk *ForeignKey) SameDefinition(other *ForeignKey) bool {
	return equalFoldSlices(fk.LocalColumns, other.LocalColumns) &&
		strings.EqualFold(fk.ForeignTable, other.ForeignTable) &&
		equalFoldSlices(fk.ForeignColumns, other.ForeignColumns) &&
		strings.EqualFold(fk.OnDelete, other.OnDelete) &&
		strings.EqualFold(fk.OnUpdate, other.OnUpdate)
}

// Sequence represents a database sequence
type Sequence struct {
	Asset
	InitialValue   int64
	AllocationSize int64
}

func equalFoldSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
