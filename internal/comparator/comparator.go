// Package comparator computes the difference between two schemas.
package comparator

import (
	"strings"

	"github.com/tordrt/liquischema/internal/schema"
)

// Comparator diffs schemas. Objects in DefaultNamespace match their
// unqualified counterparts, so "public.users" and "users" are the same table
// on PostgreSQL.
type Comparator struct {
	DefaultNamespace string
}

// New creates a comparator for a platform default namespace ("" for none)
func New(defaultNamespace string) *Comparator {
	return &Comparator{DefaultNamespace: defaultNamespace}
}

// Compare diffs two schemas with no default namespace
func Compare(from, to *schema.Schema) *schema.SchemaDiff {
	return New("").Compare(from, to)
}

// Compare returns the changes turning from into to. Created objects follow
// the order of to, dropped objects the order of from.
func (c *Comparator) Compare(from, to *schema.Schema) *schema.SchemaDiff {
	if from == nil {
		from = schema.NewSchema()
	}
	if to == nil {
		to = schema.NewSchema()
	}

	diff := &schema.SchemaDiff{}
	c.compareNamespaces(diff, from, to)
	c.compareSequences(diff, from, to)
	c.compareTables(diff, from, to)
	return diff
}

// key normalizes a name for matching
func (c *Comparator) key(name string) string {
	k := strings.ToLower(name)
	if c.DefaultNamespace != "" {
		k = strings.TrimPrefix(k, strings.ToLower(c.DefaultNamespace)+".")
	}
	return k
}

func (c *Comparator) isDefaultNamespace(ns string) bool {
	return c.DefaultNamespace != "" && strings.EqualFold(ns, c.DefaultNamespace)
}

func (c *Comparator) compareNamespaces(diff *schema.SchemaDiff, from, to *schema.Schema) {
	for _, ns := range to.Namespaces() {
		if !from.HasNamespace(ns) && !c.isDefaultNamespace(ns) {
			diff.CreatedNamespaces = append(diff.CreatedNamespaces, ns)
		}
	}
	for _, ns := range from.Namespaces() {
		if !to.HasNamespace(ns) && !c.isDefaultNamespace(ns) {
			diff.DroppedNamespaces = append(diff.DroppedNamespaces, ns)
		}
	}
}

func (c *Comparator) compareSequences(diff *schema.SchemaDiff, from, to *schema.Schema) {
	old := make(map[string]*schema.Sequence, len(from.Sequences))
	for _, seq := range from.Sequences {
		old[c.key(seq.AssetName())] = seq
	}

	seen := make(map[string]bool, len(to.Sequences))
	for _, seq := range to.Sequences {
		k := c.key(seq.AssetName())
		seen[k] = true

		prev, ok := old[k]
		switch {
		case !ok:
			diff.CreatedSequences = append(diff.CreatedSequences, seq)
		case prev.InitialValue != seq.InitialValue || prev.AllocationSize != seq.AllocationSize:
			diff.AlteredSequences = append(diff.AlteredSequences, seq)
		}
	}

	for _, seq := range from.Sequences {
		if !seen[c.key(seq.AssetName())] {
			diff.DroppedSequences = append(diff.DroppedSequences, seq)
		}
	}
}

func (c *Comparator) compareTables(diff *schema.SchemaDiff, from, to *schema.Schema) {
	old := make(map[string]*schema.Table, len(from.Tables))
	for _, t := range from.Tables {
		old[c.key(t.AssetName())] = t
	}

	seen := make(map[string]bool, len(to.Tables))
	for _, t := range to.Tables {
		k := c.key(t.AssetName())
		seen[k] = true

		prev, ok := old[k]
		if !ok {
			diff.CreatedTables = append(diff.CreatedTables, t)
			continue
		}
		if td := c.CompareTables(prev, t); !td.IsEmpty() {
			diff.AlteredTables = append(diff.AlteredTables, td)
		}
	}

	for _, t := range from.Tables {
		if !seen[c.key(t.AssetName())] {
			diff.DroppedTables = append(diff.DroppedTables, t)
		}
	}
}

// CompareTables diffs two versions of one table
func (c *Comparator) CompareTables(from, to *schema.Table) *schema.TableDiff {
	td := &schema.TableDiff{OldTable: from}
	c.compareColumns(td, from, to)
	c.compareIndexes(td, from, to)
	c.compareForeignKeys(td, from, to)
	return td
}

func (c *Comparator) compareColumns(td *schema.TableDiff, from, to *schema.Table) {
	for _, col := range to.Columns {
		prev := from.Column(col.Name)
		if prev == nil {
			td.AddedColumns = append(td.AddedColumns, col)
			continue
		}
		cd := &schema.ColumnDiff{OldColumn: prev, NewColumn: col}
		if !cd.IsEmpty() {
			td.ChangedColumns = append(td.ChangedColumns, cd)
		}
	}
	for _, col := range from.Columns {
		if !to.HasColumn(col.Name) {
			td.DroppedColumns = append(td.DroppedColumns, col)
		}
	}

	detectColumnRenames(td)
}

// detectColumnRenames turns a dropped+added pair into a rename when the added
// column has exactly one dropped candidate with an identical definition
func detectColumnRenames(td *schema.TableDiff) {
	usedDropped := make(map[*schema.Column]bool)
	renamedAdded := make(map[*schema.Column]bool)

	for _, added := range td.AddedColumns {
		var candidates []*schema.Column
		for _, dropped := range td.DroppedColumns {
			if usedDropped[dropped] {
				continue
			}
			if (&schema.ColumnDiff{OldColumn: dropped, NewColumn: added}).IsEmpty() {
				candidates = append(candidates, dropped)
			}
		}
		if len(candidates) != 1 {
			continue
		}

		usedDropped[candidates[0]] = true
		renamedAdded[added] = true
		td.RenamedColumns = append(td.RenamedColumns, &schema.RenamedColumn{OldName: candidates[0].Name, Column: added})
	}

	td.AddedColumns = without(td.AddedColumns, renamedAdded)
	td.DroppedColumns = without(td.DroppedColumns, usedDropped)
}

func (c *Comparator) compareIndexes(td *schema.TableDiff, from, to *schema.Table) {
	matched := make(map[*schema.Index]bool)

	for _, idx := range to.Indexes {
		prev := matchingIndex(from, idx)
		if prev == nil {
			td.AddedIndexes = append(td.AddedIndexes, idx)
			continue
		}
		matched[prev] = true
		if !prev.SameDefinition(idx) {
			td.DroppedIndexes = append(td.DroppedIndexes, prev)
			td.AddedIndexes = append(td.AddedIndexes, idx)
		}
	}
	for _, idx := range from.Indexes {
		if !matched[idx] {
			td.DroppedIndexes = append(td.DroppedIndexes, idx)
		}
	}

	detectIndexRenames(td)
}

// matchingIndex finds the counterpart of idx by name. Primary keys match
// each other whatever their names.
func matchingIndex(table *schema.Table, idx *schema.Index) *schema.Index {
	if idx.Primary {
		return table.PrimaryKey()
	}
	if prev := table.Index(idx.Name); prev != nil && !prev.Primary {
		return prev
	}
	return nil
}

func detectIndexRenames(td *schema.TableDiff) {
	usedDropped := make(map[*schema.Index]bool)
	renamedAdded := make(map[*schema.Index]bool)

	for _, added := range td.AddedIndexes {
		if added.Primary {
			continue
		}
		var candidates []*schema.Index
		for _, dropped := range td.DroppedIndexes {
			if usedDropped[dropped] || strings.EqualFold(dropped.Name, added.Name) {
				continue
			}
			if dropped.SameDefinition(added) {
				candidates = append(candidates, dropped)
			}
		}
		if len(candidates) != 1 {
			continue
		}

		usedDropped[candidates[0]] = true
		renamedAdded[added] = true
		td.RenamedIndexes = append(td.RenamedIndexes, &schema.RenamedIndex{OldName: candidates[0].Name, Index: added})
	}

	td.AddedIndexes = without(td.AddedIndexes, renamedAdded)
	td.DroppedIndexes = without(td.DroppedIndexes, usedDropped)
}

func (c *Comparator) compareForeignKeys(td *schema.TableDiff, from, to *schema.Table) {
	matched := make(map[*schema.ForeignKey]bool)

	for _, fk := range to.ForeignKeys {
		if prev := c.sameForeignKey(from.ForeignKeys, fk, matched); prev != nil {
			matched[prev] = true
			continue
		}
		if prev := c.namedForeignKey(from.ForeignKeys, fk, matched); prev != nil {
			matched[prev] = true
			td.ModifiedForeignKeys = append(td.ModifiedForeignKeys, fk)
			continue
		}
		td.AddedForeignKeys = append(td.AddedForeignKeys, fk)
	}

	for _, fk := range from.ForeignKeys {
		if !matched[fk] {
			td.DroppedForeignKeys = append(td.DroppedForeignKeys, fk)
		}
	}
}

func (c *Comparator) sameForeignKey(candidates []*schema.ForeignKey, fk *schema.ForeignKey, matched map[*schema.ForeignKey]bool) *schema.ForeignKey {
	for _, prev := range candidates {
		if !matched[prev] && c.sameForeignKeyDefinition(prev, fk) {
			return prev
		}
	}
	return nil
}

func (c *Comparator) namedForeignKey(candidates []*schema.ForeignKey, fk *schema.ForeignKey, matched map[*schema.ForeignKey]bool) *schema.ForeignKey {
	for _, prev := range candidates {
		if !matched[prev] && c.key(prev.AssetName()) == c.key(fk.AssetName()) {
			return prev
		}
	}
	return nil
}

func (c *Comparator) sameForeignKeyDefinition(a, b *schema.ForeignKey) bool {
	na, nb := *a, *b
	na.ForeignTable = c.key(a.ForeignTable)
	nb.ForeignTable = c.key(b.ForeignTable)
	na.OnDelete, nb.OnDelete = normalizeAction(a.OnDelete), normalizeAction(b.OnDelete)
	na.OnUpdate, nb.OnUpdate = normalizeAction(a.OnUpdate), normalizeAction(b.OnUpdate)
	return na.SameDefinition(&nb)
}

// normalizeAction treats the engine defaults as an absent action
func normalizeAction(action string) string {
	switch a := strings.ToUpper(strings.TrimSpace(action)); a {
	case "", "NO ACTION", "RESTRICT":
		return ""
	default:
		return a
	}
}

func without[T any](items []*T, remove map[*T]bool) []*T {
	if len(remove) == 0 {
		return items
	}
	var out []*T
	for _, item := range items {
		if !remove[item] {
			out = append(out, item)
		}
	}
	return out
}
