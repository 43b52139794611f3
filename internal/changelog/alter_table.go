package changelog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/tordrt/liquischema/internal/schema"
)

// alterTable aggregates every change of one table into a single change set.
// The change set is dropped when nothing in the diff produced output.
func (b *builder) alterTable(td *schema.TableDiff) error {
	if td == nil || td.OldTable == nil || td.IsEmpty() {
		return nil
	}

	cs := b.changeSet("alter-table-" + td.OldTable.AssetName())
	tableName := schema.ResolveName(td.OldTable)
	indexes := schema.NewIndexSet(td.OldTable)

	b.addedColumns(cs, td, tableName, indexes)
	for _, idx := range td.AddedIndexes {
		if err := b.createIndex(cs, td, tableName, idx, indexes); err != nil {
			return err
		}
	}
	for _, fk := range td.AddedForeignKeys {
		b.fillForeignKeyAttributes(cs.CreateElement("addForeignKeyConstraint"), fk, td.OldTable)
	}

	for _, rc := range td.RenamedColumns {
		renameColumn(cs, tableName, rc.OldName, schema.ResolveName(rc.Column).Name)
	}
	for _, ri := range td.RenamedIndexes {
		dropIndex(cs, tableName, ri.OldName)
		if err := b.createIndex(cs, td, tableName, ri.Index, schema.NewIndexSet(td.OldTable)); err != nil {
			return err
		}
	}

	for _, cd := range td.ChangedColumns {
		b.changedColumn(cs, cd, tableName)
	}
	for _, fk := range td.ModifiedForeignKeys {
		cs.CreateComment(" foreign key changes are not supported (foreignKey: " + fk.AssetName() + ")")
	}

	for _, col := range td.DroppedColumns {
		el := cs.CreateElement("dropColumn")
		setSchemaName(el, "schemaName", tableName)
		el.CreateAttr("tableName", tableName.Name)
		el.CreateAttr("columnName", schema.ResolveName(col).Name)
	}
	for _, idx := range td.DroppedIndexes {
		dropIndex(cs, tableName, idx.AssetName())
	}
	for _, fk := range td.DroppedForeignKeys {
		b.dropForeignKeyConstraint(cs, fk, tableName)
	}

	if len(cs.Child) > 0 {
		b.append(cs)
	}
	return nil
}

func (b *builder) addedColumns(cs *etree.Element, td *schema.TableDiff, tableName schema.QualifiedName, indexes *schema.IndexSet) {
	if len(td.AddedColumns) == 0 {
		return
	}

	el := cs.CreateElement("addColumn")
	setSchemaName(el, "schemaName", tableName)
	el.CreateAttr("tableName", tableName.Name)
	for _, col := range td.AddedColumns {
		b.fillColumnAttributes(el.CreateElement("column"), col, indexes)
	}
}

// createIndex renders an index with full column definitions, looking columns
// up in the old table, then the added columns, then the renamed columns
func (b *builder) createIndex(cs *etree.Element, td *schema.TableDiff, tableName schema.QualifiedName, idx *schema.Index, indexes *schema.IndexSet) error {
	el := cs.CreateElement("createIndex")
	setSchemaName(el, "schemaName", tableName)
	el.CreateAttr("tableName", tableName.Name)
	el.CreateAttr("indexName", idx.AssetName())
	el.CreateAttr("unique", fmt.Sprint(idx.Unique))

	for _, name := range idx.Columns {
		col := td.OldTable.Column(name)
		if col == nil {
			col = td.AddedColumn(name)
		}
		if col == nil {
			col = td.RenamedColumn(name)
		}
		if col == nil {
			return fmt.Errorf("%w: index %s of table %s references unknown column %s",
				ErrInconsistentDiff, idx.AssetName(), td.OldTable.AssetName(), name)
		}
		b.fillColumnAttributes(el.CreateElement("column"), col, indexes)
	}
	return nil
}

func renameColumn(cs *etree.Element, tableName schema.QualifiedName, oldName, newName string) {
	el := cs.CreateElement("renameColumn")
	setSchemaName(el, "schemaName", tableName)
	el.CreateAttr("tableName", tableName.Name)
	el.CreateAttr("oldColumnName", oldName)
	el.CreateAttr("newColumnName", newName)
}

func dropIndex(cs *etree.Element, tableName schema.QualifiedName, indexName string) {
	el := cs.CreateElement("dropIndex")
	setSchemaName(el, "schemaName", tableName)
	el.CreateAttr("tableName", tableName.Name)
	el.CreateAttr("indexName", indexName)
}

// changedColumn emits the supported sub-changes of a column and a comment
// listing whatever is left
func (b *builder) changedColumn(cs *etree.Element, cd *schema.ColumnDiff, tableName schema.QualifiedName) {
	if cd == nil || cd.OldColumn == nil || cd.NewColumn == nil {
		return
	}
	col := cd.NewColumn

	if cd.HasNameChanged() {
		renameColumn(cs, tableName, schema.ResolveName(cd.OldColumn).Name, schema.ResolveName(col).Name)
	}

	remaining := cd.ChangedProperties()
	handled := func(props ...string) {
		remaining = slices.DeleteFunc(remaining, func(p string) bool {
			return slices.Contains(props, p)
		})
	}

	if cd.HasTypeChanged() || cd.HasLengthChanged() {
		el := b.columnChange(cs, "modifyDataType", tableName, col)
		el.CreateAttr("newDataType", b.columnType(col))
		handled(schema.PropertyType, schema.PropertyLength)
	}

	if cd.HasDefaultChanged() {
		b.columnChange(cs, "dropDefaultValue", tableName, col).CreateAttr("columnDataType", b.columnType(col))

		el := b.columnChange(cs, "addDefaultValue", tableName, col)
		el.CreateAttr("columnDataType", b.columnType(col))
		switch v := col.Default; {
		case isBool(v):
			el.CreateAttr("defaultValueBoolean", formatValue(v))
		case isNumeric(v):
			el.CreateAttr("defaultValueNumeric", strings.TrimSpace(formatValue(v)))
		default:
			el.CreateAttr("defaultValue", defaultString(v))
		}
		handled(schema.PropertyDefault)
	}

	if cd.HasNotNullChanged() {
		b.columnChange(cs, "addNotNullConstraint", tableName, col).CreateAttr("columnDataType", b.columnType(col))
		handled(schema.PropertyNotNull)
	}

	if len(remaining) > 0 {
		cs.CreateComment(fmt.Sprintf(" Some column property changes are not supported (column: %s for properties [%s]) ",
			cd.OldColumn.AssetName(), strings.Join(remaining, ", ")))
	}
}

func (b *builder) columnChange(cs *etree.Element, tag string, tableName schema.QualifiedName, col *schema.Column) *etree.Element {
	el := cs.CreateElement(tag)
	setSchemaName(el, "schemaName", tableName)
	el.CreateAttr("tableName", tableName.Name)
	el.CreateAttr("columnName", col.AssetName())
	return el
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func defaultString(v any) string {
	if v == nil {
		return ""
	}
	return formatValue(v)
}
