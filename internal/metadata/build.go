package metadata

import (
	"fmt"
	"maps"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/tordrt/liquischema/internal/schema"
)

// BuildSchema converts entities and sequences into the desired schema.
// Every validation problem is reported, not only the first one.
func BuildSchema(entities []Entity, sequences []Sequence) (*schema.Schema, error) {
	var result *multierror.Error
	s := schema.NewSchema()
	seen := make(map[string]string)

	for _, e := range entities {
		table, err := buildTable(e)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		key := strings.ToLower(table.AssetName())
		if prev, ok := seen[key]; ok {
			result = multierror.Append(result, fmt.Errorf("entity %s: table %s is already mapped by %s", e.Name, table.AssetName(), prev))
			continue
		}
		seen[key] = e.Name
		s.Tables = append(s.Tables, table)
	}

	for _, seq := range sequences {
		if seq.Name == "" {
			result = multierror.Append(result, fmt.Errorf("sequence: name is required"))
			continue
		}
		s.Sequences = append(s.Sequences, &schema.Sequence{
			Asset:          schema.NewAsset(seq.Name, seq.Namespace),
			InitialValue:   valueOr(seq.InitialValue, 1),
			AllocationSize: valueOr(seq.AllocationSize, 1),
		})
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildTable(e Entity) (*schema.Table, error) {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("entity %s: "+format, append([]any{e.Name}, args...)...))
	}

	if e.Table == "" {
		fail("table is required")
		return nil, result.ErrorOrNil()
	}

	table := &schema.Table{Asset: schema.NewAsset(e.Table, e.Namespace), Comment: e.Comment}
	local := schema.ResolveName(table).Name

	for _, c := range e.Columns {
		typ := schema.Type(strings.ToLower(c.Type))
		switch {
		case c.Name == "":
			fail("column name is required")
			continue
		case !typ.Valid():
			fail("column %s: unknown type %q", c.Name, c.Type)
			continue
		case table.HasColumn(c.Name):
			fail("column %s is declared twice", c.Name)
			continue
		}
		table.Columns = append(table.Columns, &schema.Column{
			Asset:            schema.NewAsset(c.Name, ""),
			Type:             typ,
			Length:           c.Length,
			Precision:        c.Precision,
			Scale:            c.Scale,
			Unsigned:         c.Unsigned,
			Fixed:            c.Fixed,
			NotNull:          !c.Nullable,
			Default:          c.Default,
			Comment:          c.Comment,
			Autoincrement:    c.Autoincrement,
			ColumnDefinition: c.ColumnDefinition,
			PlatformOptions:  maps.Clone(c.Options),
		})
	}

	checkColumns := func(what string, columns []string) bool {
		if len(columns) == 0 {
			fail("%s has no columns", what)
			return false
		}
		ok := true
		for _, name := range columns {
			if !table.HasColumn(name) {
				fail("%s references unknown column %s", what, name)
				ok = false
			}
		}
		return ok
	}

	if len(e.ID) > 0 && checkColumns("id", e.ID) {
		table.Indexes = append(table.Indexes, &schema.Index{
			Asset:   schema.NewAsset("primary", ""),
			Columns: e.ID,
			Unique:  true,
			Primary: true,
		})
	}

	addIndex := func(idx Index, unique bool) {
		name := idx.Name
		if name == "" {
			prefix := "idx"
			if unique {
				prefix = "uniq"
			}
			name = generatedName(prefix, local, idx.Columns)
		}
		if !checkColumns("index "+name, idx.Columns) {
			return
		}
		if table.Index(name) != nil {
			fail("index %s is declared twice", name)
			return
		}
		table.Indexes = append(table.Indexes, &schema.Index{
			Asset:   schema.NewAsset(name, ""),
			Columns: idx.Columns,
			Unique:  unique,
			Flags:   idx.Flags,
		})
	}
	for _, uc := range e.UniqueConstraints {
		addIndex(uc, true)
	}
	for _, idx := range e.Indexes {
		addIndex(idx, idx.Unique)
	}

	for _, fk := range e.ForeignKeys {
		name := fk.Name
		if name == "" {
			name = generatedName("fk", local, fk.Columns)
		}
		if !checkColumns("foreign key "+name, fk.Columns) {
			continue
		}
		if fk.References.Table == "" {
			fail("foreign key %s: referenced table is required", name)
			continue
		}
		if len(fk.References.Columns) != len(fk.Columns) {
			fail("foreign key %s: %d local columns but %d referenced columns", name, len(fk.Columns), len(fk.References.Columns))
			continue
		}
		table.ForeignKeys = append(table.ForeignKeys, &schema.ForeignKey{
			Asset:          schema.NewAsset(name, e.Namespace),
			LocalColumns:   fk.Columns,
			ForeignTable:   qualifyTarget(fk.References.Table, e.Namespace),
			ForeignColumns: fk.References.Columns,
			OnDelete:       strings.ToUpper(fk.OnDelete),
			OnUpdate:       strings.ToUpper(fk.OnUpdate),
		})
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return table, nil
}

// qualifyTarget places an unqualified referenced table in the namespace of the
// referencing entity
func qualifyTarget(table, namespace string) string {
	if namespace == "" || schema.ParseQualifiedName(table).HasNamespace() {
		return table
	}
	return namespace + "." + table
}

// generatedName derives a stable object name such as "idx_users_email"
func generatedName(prefix, table string, columns []string) string {
	parts := append([]string{prefix, table}, columns...)
	return strings.ToLower(strings.Join(parts, "_"))
}

func valueOr(v, fallback int64) int64 {
	if v == 0 {
		return fallback
	}
	return v
}
