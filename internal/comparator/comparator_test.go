package comparator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/liquischema/internal/metadata"
	"github.com/tordrt/liquischema/internal/schema"
)

func intPtr(i int) *int {
	return &i
}

func col(name string, typ schema.Type) *schema.Column {
	return &schema.Column{Asset: schema.NewAsset(name, ""), Type: typ}
}

func idx(name string, unique bool, columns ...string) *schema.Index {
	return &schema.Index{Asset: schema.NewAsset(name, ""), Columns: columns, Unique: unique}
}

func pk(name string, columns ...string) *schema.Index {
	return &schema.Index{Asset: schema.NewAsset(name, ""), Columns: columns, Unique: true, Primary: true}
}

func names[T schema.Object](items []T) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.AssetName())
	}
	return out
}

func TestCompareAgainstEmptySchema(t *testing.T) {
	users := &schema.Table{
		Asset:   schema.NewAsset("users", "app"),
		Columns: []*schema.Column{col("id", schema.TypeInteger)},
		Indexes: []*schema.Index{pk("primary", "id")},
	}
	groups := &schema.Table{Asset: schema.NewAsset("groups", "")}
	to := &schema.Schema{
		Tables:    []*schema.Table{users, groups},
		Sequences: []*schema.Sequence{{Asset: schema.NewAsset("users_seq", "app"), InitialValue: 1, AllocationSize: 1}},
	}

	diff := Compare(schema.NewSchema(), to)

	assert.Equal(t, []string{"app"}, diff.CreatedNamespaces)
	assert.Equal(t, []string{"app.users", "groups"}, names(diff.CreatedTables))
	assert.Equal(t, []string{"app.users_seq"}, names(diff.CreatedSequences))
	assert.Empty(t, diff.AlteredTables)
	assert.Empty(t, diff.DroppedTables)
	assert.Empty(t, diff.DroppedNamespaces)
}

func TestCompareIdenticalSchemas(t *testing.T) {
	build := func() *schema.Schema {
		return &schema.Schema{Tables: []*schema.Table{{
			Asset:   schema.NewAsset("users", ""),
			Columns: []*schema.Column{col("id", schema.TypeInteger), col("email", schema.TypeString)},
			Indexes: []*schema.Index{pk("primary", "id"), idx("uniq_email", true, "email")},
		}}}
	}

	diff := Compare(build(), build())
	assert.True(t, diff.IsEmpty())
}

func TestCompareTablesAndSequences(t *testing.T) {
	from := &schema.Schema{
		Tables:    []*schema.Table{{Asset: schema.NewAsset("legacy", "")}, {Asset: schema.NewAsset("Users", "")}},
		Sequences: []*schema.Sequence{{Asset: schema.NewAsset("a_seq", ""), InitialValue: 1, AllocationSize: 1}, {Asset: schema.NewAsset("old_seq", "")}},
	}
	to := &schema.Schema{
		Tables:    []*schema.Table{{Asset: schema.NewAsset("users", "")}, {Asset: schema.NewAsset("posts", "")}},
		Sequences: []*schema.Sequence{{Asset: schema.NewAsset("a_seq", ""), InitialValue: 1, AllocationSize: 50}, {Asset: schema.NewAsset("new_seq", "")}},
	}

	diff := Compare(from, to)

	assert.Equal(t, []string{"posts"}, names(diff.CreatedTables))
	assert.Equal(t, []string{"legacy"}, names(diff.DroppedTables))
	assert.Empty(t, diff.AlteredTables)
	assert.Equal(t, []string{"new_seq"}, names(diff.CreatedSequences))
	assert.Equal(t, []string{"a_seq"}, names(diff.AlteredSequences))
	assert.Equal(t, []string{"old_seq"}, names(diff.DroppedSequences))
}

func TestCompareDefaultNamespace(t *testing.T) {
	from := &schema.Schema{Tables: []*schema.Table{{
		Asset:   schema.NewAsset("users", "public"),
		Columns: []*schema.Column{col("id", schema.TypeInteger)},
	}}}
	to := &schema.Schema{Tables: []*schema.Table{{
		Asset:   schema.NewAsset("users", ""),
		Columns: []*schema.Column{col("id", schema.TypeInteger)},
	}}}

	diff := New("public").Compare(from, to)
	assert.True(t, diff.IsEmpty())

	diff = Compare(from, to)
	assert.Equal(t, []string{"public"}, diff.DroppedNamespaces)
	assert.Len(t, diff.CreatedTables, 1)
	assert.Len(t, diff.DroppedTables, 1)
}

func TestCompareColumns(t *testing.T) {
	name := col("name", schema.TypeString)
	name.Length = intPtr(100)
	widened := col("name", schema.TypeString)
	widened.Length = intPtr(255)

	from := &schema.Table{
		Asset:   schema.NewAsset("users", ""),
		Columns: []*schema.Column{col("id", schema.TypeInteger), name, col("obsolete", schema.TypeBoolean)},
	}
	to := &schema.Table{
		Asset:   schema.NewAsset("users", ""),
		Columns: []*schema.Column{col("ID", schema.TypeInteger), widened, col("created_at", schema.TypeDateTime)},
	}

	td := New("").CompareTables(from, to)

	assert.Same(t, from, td.OldTable)
	assert.Equal(t, []string{"created_at"}, names(td.AddedColumns))
	assert.Equal(t, []string{"obsolete"}, names(td.DroppedColumns))
	require.Len(t, td.ChangedColumns, 1)
	assert.Same(t, name, td.ChangedColumns[0].OldColumn)
	assert.Same(t, widened, td.ChangedColumns[0].NewColumn)
	assert.Empty(t, td.RenamedColumns)
}

func TestCompareColumnRenames(t *testing.T) {
	tests := []struct {
		name        string
		from        []*schema.Column
		to          []*schema.Column
		wantRenamed map[string]string
		wantAdded   []string
		wantDropped []string
	}{
		{
			name:        "single candidate",
			from:        []*schema.Column{col("id", schema.TypeInteger), col("login", schema.TypeString)},
			to:          []*schema.Column{col("id", schema.TypeInteger), col("username", schema.TypeString)},
			wantRenamed: map[string]string{"login": "username"},
		},
		{
			name:        "different definition",
			from:        []*schema.Column{col("login", schema.TypeString)},
			to:          []*schema.Column{col("username", schema.TypeText)},
			wantRenamed: map[string]string{},
			wantAdded:   []string{"username"},
			wantDropped: []string{"login"},
		},
		{
			name:        "ambiguous candidates",
			from:        []*schema.Column{col("a", schema.TypeString), col("b", schema.TypeString)},
			to:          []*schema.Column{col("c", schema.TypeString)},
			wantRenamed: map[string]string{},
			wantAdded:   []string{"c"},
			wantDropped: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := Compare(
				&schema.Schema{Tables: []*schema.Table{{Asset: schema.NewAsset("t", ""), Columns: tt.from}}},
				&schema.Schema{Tables: []*schema.Table{{Asset: schema.NewAsset("t", ""), Columns: tt.to}}},
			).AlteredTables
			require.Len(t, td, 1)

			renamed := map[string]string{}
			for _, rc := range td[0].RenamedColumns {
				renamed[rc.OldName] = rc.Column.Name
			}
			if d := cmp.Diff(tt.wantRenamed, renamed); d != "" {
				t.Errorf("renamed columns mismatch (-want +got):\n%s", d)
			}
			assert.Equal(t, tt.wantAdded, names(td[0].AddedColumns))
			assert.Equal(t, tt.wantDropped, names(td[0].DroppedColumns))
		})
	}
}

func TestCompareIndexes(t *testing.T) {
	columns := []*schema.Column{col("id", schema.TypeInteger), col("a", schema.TypeString), col("b", schema.TypeString)}
	from := &schema.Table{
		Asset:   schema.NewAsset("t", ""),
		Columns: columns,
		Indexes: []*schema.Index{
			pk("primary", "id"),
			idx("idx_a", false, "a"),
			idx("idx_b", false, "b"),
			idx("idx_gone", false, "a", "b"),
		},
	}
	to := &schema.Table{
		Asset:   schema.NewAsset("t", ""),
		Columns: columns,
		Indexes: []*schema.Index{
			pk("t_pkey", "id"),
			idx("idx_a_renamed", false, "a"),
			idx("idx_b", true, "b"),
			idx("idx_new", false, "b", "a"),
		},
	}

	td := New("").CompareTables(from, to)

	require.Len(t, td.RenamedIndexes, 1)
	assert.Equal(t, "idx_a", td.RenamedIndexes[0].OldName)
	assert.Equal(t, "idx_a_renamed", td.RenamedIndexes[0].Index.Name)

	assert.Equal(t, []string{"idx_b", "idx_new"}, names(td.AddedIndexes))
	assert.Equal(t, []string{"idx_b", "idx_gone"}, names(td.DroppedIndexes))
}

func TestComparePrimaryKeyChange(t *testing.T) {
	columns := []*schema.Column{col("id", schema.TypeInteger), col("tenant", schema.TypeInteger)}
	from := &schema.Table{Asset: schema.NewAsset("t", ""), Columns: columns, Indexes: []*schema.Index{pk("primary", "id")}}
	to := &schema.Table{Asset: schema.NewAsset("t", ""), Columns: columns, Indexes: []*schema.Index{pk("primary", "tenant", "id")}}

	td := New("").CompareTables(from, to)

	assert.Equal(t, []string{"primary"}, names(td.DroppedIndexes))
	assert.Equal(t, []string{"primary"}, names(td.AddedIndexes))
	assert.Empty(t, td.RenamedIndexes)
}

func TestCompareForeignKeys(t *testing.T) {
	fk := func(name, foreignTable, onDelete string) *schema.ForeignKey {
		return &schema.ForeignKey{
			Asset:          schema.NewAsset(name, ""),
			LocalColumns:   []string{"group_id"},
			ForeignTable:   foreignTable,
			ForeignColumns: []string{"id"},
			OnDelete:       onDelete,
		}
	}

	from := &schema.Table{
		Asset: schema.NewAsset("users", ""),
		ForeignKeys: []*schema.ForeignKey{
			fk("fk_same", "public.groups", "NO ACTION"),
			fk("fk_modified", "groups", ""),
			fk("fk_dropped", "teams", ""),
		},
	}
	modified := fk("fk_modified", "groups", "CASCADE")
	modified.LocalColumns = []string{"owner_id"}
	to := &schema.Table{
		Asset: schema.NewAsset("users", ""),
		ForeignKeys: []*schema.ForeignKey{
			fk("FK_SAME_RENAMED", "groups", ""),
			modified,
			fk("fk_added", "roles", ""),
		},
	}

	td := New("public").CompareTables(from, to)

	assert.Equal(t, []string{"fk_modified"}, names(td.ModifiedForeignKeys))
	assert.Same(t, modified, td.ModifiedForeignKeys[0])
	assert.Equal(t, []string{"fk_added"}, names(td.AddedForeignKeys))
	assert.Equal(t, []string{"fk_dropped"}, names(td.DroppedForeignKeys))
}

func TestCompareMetadataForeignKeyInNamespace(t *testing.T) {
	entities := []metadata.Entity{
		{
			Name:      "sales.Order",
			Table:     "orders",
			Namespace: "sales",
			Columns:   []metadata.Column{{Name: "id", Type: "integer"}},
			ID:        []string{"id"},
		},
		{
			Name:      "sales.Line",
			Table:     "lines",
			Namespace: "sales",
			Columns:   []metadata.Column{{Name: "id", Type: "integer"}, {Name: "order_id", Type: "integer"}},
			ID:        []string{"id"},
			ForeignKeys: []metadata.ForeignKey{{
				Columns:    []string{"order_id"},
				References: metadata.Reference{Table: "orders", Columns: []string{"id"}},
			}},
		},
	}
	to, err := metadata.BuildSchema(entities, nil)
	require.NoError(t, err)

	// the database reports the referenced table with its namespace
	from := &schema.Schema{}
	for _, table := range to.Tables {
		live := &schema.Table{Asset: table.Asset, Columns: table.Columns, Indexes: table.Indexes}
		for _, fk := range table.ForeignKeys {
			live.ForeignKeys = append(live.ForeignKeys, &schema.ForeignKey{
				Asset:          fk.Asset,
				LocalColumns:   fk.LocalColumns,
				ForeignTable:   "sales.orders",
				ForeignColumns: fk.ForeignColumns,
			})
		}
		from.Tables = append(from.Tables, live)
	}

	diff := New("public").Compare(from, to)
	assert.True(t, diff.IsEmpty())
	assert.Empty(t, diff.AlteredTables)
}

func TestCompareNilSchemas(t *testing.T) {
	diff := Compare(nil, nil)
	require.NotNil(t, diff)
	assert.True(t, diff.IsEmpty())
}
