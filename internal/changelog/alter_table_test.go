package changelog

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/liquischema/internal/schema"
)

const alterChangeSet = "/databaseChangeLog/changeSet[@id='alter-table-namespace-mytable'][@author='tester']"

func column(name string, typ schema.Type) *schema.Column {
	return &schema.Column{Asset: schema.NewAsset(name, ""), Type: typ}
}

func TestAlterTableAddedColumns(t *testing.T) {
	col := column("column1", schema.TypeString)
	col.Length = intPtr(10)

	doc := emitAlter(t, &schema.TableDiff{OldTable: testTable(), AddedColumns: []*schema.Column{col}})

	assertPath(t, doc, alterChangeSet+"/addColumn[@schemaName='namespace'][@tableName='mytable']/column[@name='column1'][@type='varchar(10)']")
}

func TestAlterTableAddedIndex(t *testing.T) {
	col1 := column("column1", schema.TypeString)
	col1.Length = intPtr(10)
	col2 := column("column2", schema.TypeInteger)

	table := testTable()
	table.Columns = []*schema.Column{column("column3", schema.TypeString), column("column4", schema.TypeString)}

	doc := emitAlter(t, &schema.TableDiff{
		OldTable:     table,
		AddedColumns: []*schema.Column{col1, col2},
		AddedIndexes: []*schema.Index{
			{Asset: schema.NewAsset("myindex1", ""), Columns: []string{"column1", "column2"}, Unique: true},
			{Asset: schema.NewAsset("myindex2", ""), Columns: []string{"column3", "column4"}},
		},
	})

	assertPath(t, doc, alterChangeSet+"/createIndex[@schemaName='namespace'][@tableName='mytable'][@indexName='myindex1'][@unique='true']")
	assert.Len(t, doc.FindElements("//createIndex[@indexName='myindex1']/column"), 2)
	assertPath(t, doc, "//createIndex[@indexName='myindex1']/column[1][@name='column1'][@type='varchar(10)']")
	assertPath(t, doc, "//createIndex[@indexName='myindex1']/column[2][@name='column2'][@type='int']")

	assertPath(t, doc, alterChangeSet+"/createIndex[@schemaName='namespace'][@tableName='mytable'][@indexName='myindex2'][@unique='false']")
	assert.Len(t, doc.FindElements("//createIndex[@indexName='myindex2']/column"), 2)
	assertPath(t, doc, "//createIndex[@indexName='myindex2']/column[1][@name='column3']")
	assertPath(t, doc, "//createIndex[@indexName='myindex2']/column[2][@name='column4']")
}

func TestAlterTableInconsistentIndex(t *testing.T) {
	e := NewEmitter(nil, testOptions())
	doc, err := e.Emit([]Change{{Kind: KindAlterTable, TableDiff: &schema.TableDiff{
		OldTable:     testTable(),
		AddedIndexes: []*schema.Index{{Asset: schema.NewAsset("idx", ""), Columns: []string{"missing"}}},
	}}})

	assert.ErrorIs(t, err, ErrInconsistentDiff)
	assert.ErrorContains(t, err, "missing")
	assert.Nil(t, doc)
}

func TestAlterTableIndexOnRenamedColumn(t *testing.T) {
	renamed := column("mail", schema.TypeString)
	renamed.Length = intPtr(180)
	retyped := column("nickname", schema.TypeText)

	table := testTable()
	table.Columns = []*schema.Column{column("email", schema.TypeString), column("nick", schema.TypeString)}

	doc := emitAlter(t, &schema.TableDiff{
		OldTable:       table,
		RenamedColumns: []*schema.RenamedColumn{{OldName: "email", Column: renamed}},
		ChangedColumns: []*schema.ColumnDiff{{OldColumn: table.Columns[1], NewColumn: retyped}},
		AddedIndexes: []*schema.Index{
			{Asset: schema.NewAsset("idx_mytable_mail", ""), Columns: []string{"mail"}},
			{Asset: schema.NewAsset("idx_mytable_nickname", ""), Columns: []string{"nickname"}},
		},
		DroppedIndexes: []*schema.Index{{Asset: schema.NewAsset("idx_mytable_email", ""), Columns: []string{"email"}}},
	})

	assertPath(t, doc, "//createIndex[@indexName='idx_mytable_mail']/column[@name='mail'][@type='varchar(180)']")
	assertPath(t, doc, "//createIndex[@indexName='idx_mytable_nickname']/column[@name='nickname']")
	assertPath(t, doc, alterChangeSet+"/renameColumn[@oldColumnName='email'][@newColumnName='mail']")
	assertPath(t, doc, alterChangeSet+"/dropIndex[@indexName='idx_mytable_email']")
}

func TestAlterTableAddForeignKeys(t *testing.T) {
	doc := emitAlter(t, &schema.TableDiff{
		OldTable: testTable(),
		AddedForeignKeys: []*schema.ForeignKey{{
			Asset:          schema.NewAsset("test", "namespace"),
			LocalColumns:   []string{"test1", "test2"},
			ForeignTable:   "namespace.othertable",
			ForeignColumns: []string{"test3", "test4"},
		}},
	})

	assertPath(t, doc, alterChangeSet+"/addForeignKeyConstraint"+
		"[@baseTableSchemaName='namespace'][@baseTableName='mytable'][@baseColumnNames='test1,test2']"+
		"[@referencedTableSchemaName='namespace'][@referencedTableName='othertable'][@referencedColumnNames='test3,test4']")
}

func TestAlterTableRenameColumns(t *testing.T) {
	doc := emitAlter(t, &schema.TableDiff{
		OldTable:       testTable(),
		RenamedColumns: []*schema.RenamedColumn{{OldName: "oldcolumn", Column: column("newcolumn", schema.TypeString)}},
	})

	assertPath(t, doc, alterChangeSet+"/renameColumn[@schemaName='namespace'][@tableName='mytable']"+
		"[@oldColumnName='oldcolumn'][@newColumnName='newcolumn']")
}

func TestAlterTableRenameIndexes(t *testing.T) {
	col1 := column("test1", schema.TypeString)
	col1.NotNull = true
	col2 := column("test2", schema.TypeString)
	col2.NotNull = true

	table := testTable()
	table.Columns = []*schema.Column{col1, col2}

	doc := emitAlter(t, &schema.TableDiff{
		OldTable: table,
		RenamedIndexes: []*schema.RenamedIndex{{
			OldName: "oldindex",
			Index:   &schema.Index{Asset: schema.NewAsset("index1", ""), Columns: []string{"test1", "test2"}},
		}},
	})

	assertPath(t, doc, alterChangeSet+"/dropIndex[@schemaName='namespace'][@tableName='mytable'][@indexName='oldindex']")
	for _, name := range []string{"test1", "test2"} {
		assertPath(t, doc, alterChangeSet+"/createIndex[@schemaName='namespace'][@tableName='mytable'][@indexName='index1'][@unique='false']"+
			"/column[@name='"+name+"'][@type='varchar']/constraints[@nullable='false']")
	}

	children := doc.FindElements(alterChangeSet + "/*")
	require.Len(t, children, 2)
	assert.Equal(t, "dropIndex", children[0].Tag)
	assert.Equal(t, "createIndex", children[1].Tag)
}

func TestAlterTableRemoved(t *testing.T) {
	col := column("removedcolumn", schema.TypeString)
	fk := &schema.ForeignKey{Asset: schema.NewAsset("test", "namespace"), ForeignTable: "namespace.othertable"}

	doc := emitAlter(t, &schema.TableDiff{
		OldTable:           testTable(),
		DroppedColumns:     []*schema.Column{col},
		DroppedIndexes:     []*schema.Index{{Asset: schema.NewAsset("removeindex", ""), Columns: []string{"test1", "test2"}}},
		DroppedForeignKeys: []*schema.ForeignKey{fk, {Asset: schema.NewAsset("plain", "")}},
	})

	assertPath(t, doc, alterChangeSet+"/dropColumn[@schemaName='namespace'][@tableName='mytable'][@columnName='removedcolumn']")
	assertPath(t, doc, alterChangeSet+"/dropIndex[@schemaName='namespace'][@tableName='mytable'][@indexName='removeindex']")
	assertPath(t, doc, alterChangeSet+"/dropForeignKeyConstraint[@baseTableSchemaName='namespace'][@baseTableName='mytable'][@constraintName='test']")
	assertPath(t, doc, alterChangeSet+"/dropForeignKeyConstraint[@baseTableSchemaName='namespace'][@baseTableName='mytable'][@constraintName='plain']")
}

func TestAlterTableChangedColumns(t *testing.T) {
	t.Run("renamed", func(t *testing.T) {
		newCol := column("changed", schema.TypeString)
		doc := emitAlter(t, &schema.TableDiff{
			OldTable:       testTable(),
			ChangedColumns: []*schema.ColumnDiff{{OldColumn: column("oldname", schema.TypeString), NewColumn: newCol}},
		})

		assertPath(t, doc, alterChangeSet+"/renameColumn[@schemaName='namespace'][@tableName='mytable'][@oldColumnName='oldname'][@newColumnName='changed']")
		assert.NotContains(t, doc.String(), "not supported")
	})

	t.Run("changed type", func(t *testing.T) {
		newCol := column("notchangedname", schema.TypeString)
		newCol.Length = intPtr(10)
		doc := emitAlter(t, &schema.TableDiff{
			OldTable:       testTable(),
			ChangedColumns: []*schema.ColumnDiff{{OldColumn: column("notchangedname", schema.TypeText), NewColumn: newCol}},
		})

		assertPath(t, doc, alterChangeSet+"/modifyDataType[@schemaName='namespace'][@tableName='mytable'][@columnName='notchangedname'][@newDataType='varchar(10)']")
		assert.Empty(t, doc.FindElements("//renameColumn"))
		assert.NotContains(t, doc.String(), "not supported")
	})

	t.Run("other properties", func(t *testing.T) {
		oldCol := column("notchangedname", schema.TypeString)
		oldCol.PlatformOptions = map[string]string{"someotherproperty": "foo"}
		newCol := column("notchangedname", schema.TypeString)
		newCol.PlatformOptions = map[string]string{"someotherproperty": "bar"}

		doc := emitAlter(t, &schema.TableDiff{
			OldTable:       testTable(),
			ChangedColumns: []*schema.ColumnDiff{{OldColumn: oldCol, NewColumn: newCol}},
		})

		assert.Contains(t, doc.String(), "<!-- Some column property changes are not supported (column: notchangedname for properties [platformOptions]) -->")
	})

	t.Run("mixed properties", func(t *testing.T) {
		oldCol := column("price", schema.TypeInteger)
		newCol := column("price", schema.TypeFloat)
		newCol.NotNull = true
		newCol.Comment = "in cents"
		newCol.Unsigned = true

		doc := emitAlter(t, &schema.TableDiff{
			OldTable:       testTable(),
			ChangedColumns: []*schema.ColumnDiff{{OldColumn: oldCol, NewColumn: newCol}},
		})

		children := doc.FindElements(alterChangeSet + "/*")
		require.Len(t, children, 2)
		assert.Equal(t, "modifyDataType", children[0].Tag)
		assert.Equal(t, "float", children[0].SelectAttrValue("newDataType", ""))
		assert.Equal(t, "addNotNullConstraint", children[1].Tag)
		assert.Equal(t, "float", children[1].SelectAttrValue("columnDataType", ""))
		assert.Contains(t, doc.String(), "(column: price for properties [unsigned, comment])")
	})
}

func TestAlterTableChangedDefault(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		wantAttr  string
		wantValue string
	}{
		{"bool true", true, "defaultValueBoolean", "true"},
		{"bool false", false, "defaultValueBoolean", "false"},
		{"int", 42, "defaultValueNumeric", "42"},
		{"float", 1.5, "defaultValueNumeric", "1.5"},
		{"numeric string", "3.25", "defaultValueNumeric", "3.25"},
		{"exponent string", "1e3", "defaultValueNumeric", "1e3"},
		{"text", "abc", "defaultValue", "abc"},
		{"hex is not numeric", "0x1A", "defaultValue", "0x1A"},
		{"removed", nil, "defaultValue", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldCol := column("col", schema.TypeString)
			oldCol.Default = "previous"
			newCol := column("col", schema.TypeString)
			newCol.Default = tt.value

			doc := emitAlter(t, &schema.TableDiff{
				OldTable:       testTable(),
				ChangedColumns: []*schema.ColumnDiff{{OldColumn: oldCol, NewColumn: newCol}},
			})

			children := doc.FindElements(alterChangeSet + "/*")
			require.Len(t, children, 2)
			assert.Equal(t, "dropDefaultValue", children[0].Tag)
			assert.Equal(t, "varchar", children[0].SelectAttrValue("columnDataType", ""))
			assert.Equal(t, "addDefaultValue", children[1].Tag)

			attr := children[1].SelectAttr(tt.wantAttr)
			require.NotNil(t, attr, doc.String())
			assert.Equal(t, tt.wantValue, attr.Value)
		})
	}
}

func TestAlterTableChangedForeignKey(t *testing.T) {
	doc := emitAlter(t, &schema.TableDiff{
		OldTable:            testTable(),
		ModifiedForeignKeys: []*schema.ForeignKey{{Asset: schema.NewAsset("test", "namespace")}},
	})

	assert.Contains(t, doc.String(), "<!-- foreign key changes are not supported (foreignKey: namespace.test)-->")
}

func TestAlterTableSubOrder(t *testing.T) {
	table := testTable()
	table.Columns = []*schema.Column{column("a", schema.TypeString), column("b", schema.TypeString)}

	doc := emitAlter(t, &schema.TableDiff{
		OldTable:            table,
		AddedColumns:        []*schema.Column{column("c", schema.TypeString)},
		AddedIndexes:        []*schema.Index{{Asset: schema.NewAsset("idx_c", ""), Columns: []string{"c"}}},
		AddedForeignKeys:    []*schema.ForeignKey{{Asset: schema.NewAsset("fk_new", ""), ForeignTable: "other"}},
		RenamedColumns:      []*schema.RenamedColumn{{OldName: "x", Column: column("y", schema.TypeString)}},
		RenamedIndexes:      []*schema.RenamedIndex{{OldName: "idx_old", Index: &schema.Index{Asset: schema.NewAsset("idx_new", ""), Columns: []string{"a"}}}},
		ChangedColumns:      []*schema.ColumnDiff{{OldColumn: column("b", schema.TypeString), NewColumn: column("b", schema.TypeInteger)}},
		ModifiedForeignKeys: []*schema.ForeignKey{{Asset: schema.NewAsset("fk_mod", "")}},
		DroppedColumns:      []*schema.Column{column("z", schema.TypeString)},
		DroppedIndexes:      []*schema.Index{{Asset: schema.NewAsset("idx_drop", "")}},
		DroppedForeignKeys:  []*schema.ForeignKey{{Asset: schema.NewAsset("fk_drop", "")}},
	})

	sets := doc.ChangeSets()
	require.Len(t, sets, 1)

	var tags []string
	for _, tok := range sets[0].Child {
		switch v := tok.(type) {
		case *etree.Element:
			tags = append(tags, v.Tag)
		case *etree.Comment:
			tags = append(tags, "#comment")
		}
	}

	assert.Equal(t, []string{
		"addColumn",
		"createIndex",
		"addForeignKeyConstraint",
		"renameColumn",
		"dropIndex",
		"createIndex",
		"modifyDataType",
		"#comment",
		"dropColumn",
		"dropIndex",
		"dropForeignKeyConstraint",
	}, tags)
}

func TestAlterTableSkipped(t *testing.T) {
	tests := []struct {
		name string
		td   *schema.TableDiff
	}{
		{"empty diff", &schema.TableDiff{OldTable: testTable()}},
		{"no old table", &schema.TableDiff{DroppedColumns: []*schema.Column{column("a", schema.TypeString)}}},
		{"nothing rendered", &schema.TableDiff{OldTable: testTable(), ChangedColumns: []*schema.ColumnDiff{{OldColumn: column("a", schema.TypeString)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := emitAlter(t, tt.td)
			assert.Empty(t, doc.ChangeSets())
		})
	}
}

func TestAlterTableWithoutNamespace(t *testing.T) {
	doc := emitAlter(t, &schema.TableDiff{
		OldTable:       &schema.Table{Asset: schema.NewAsset("users", "")},
		DroppedColumns: []*schema.Column{column("legacy", schema.TypeString)},
	})

	els := doc.FindElements("/databaseChangeLog/changeSet[@id='alter-table-users']/dropColumn")
	require.Len(t, els, 1)
	assert.Nil(t, els[0].SelectAttr("schemaName"))
}
