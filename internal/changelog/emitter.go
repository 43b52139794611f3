// Package changelog renders schema diffs as Liquibase XML changelogs.
package changelog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/tordrt/liquischema/internal/platform"
	"github.com/tordrt/liquischema/internal/schema"
)

var (
	// ErrInconsistentDiff is returned when a diff references a column that
	// exists neither in the old table nor among the added columns
	ErrInconsistentDiff = errors.New("inconsistent table diff")

	// ErrUnknownChange is returned for a Change whose kind is not handled
	ErrUnknownChange = errors.New("unknown change kind")
)

var (
	idSanitizer     = regexp.MustCompile(`[_.]`)
	typeParentheses = regexp.MustCompile(`\(.*?\)`)
	numericValue    = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?\s*$`)
)

// IDFunc generates the unique suffix of change-set ids
type IDFunc func() string

// RandomID is the default IDFunc
func RandomID() string {
	return uuid.NewString()
}

// Emitter turns planned changes into a changelog document. An Emitter holds
// no per-run state and can be shared.
type Emitter struct {
	platform platform.Platform
	options  Options
	newID    IDFunc
}

// EmitterOption configures an Emitter
type EmitterOption func(*Emitter)

// WithIDFunc replaces the change-set id suffix generator
func WithIDFunc(f IDFunc) EmitterOption {
	return func(e *Emitter) {
		if f != nil {
			e.newID = f
		}
	}
}

// NewEmitter creates an emitter targeting p. A nil platform means MySQL.
func NewEmitter(p platform.Platform, opts Options, emitterOpts ...EmitterOption) *Emitter {
	if p == nil {
		p = platform.NewMySQL()
	}
	e := &Emitter{
		platform: p,
		options:  opts.WithIgnoreTables(opts.IgnoreTables...),
		newID:    RandomID,
	}
	for _, opt := range emitterOpts {
		opt(e)
	}
	return e
}

// Options returns the options the emitter was created with
func (e *Emitter) Options() Options {
	return e.options.WithIgnoreTables(e.options.IgnoreTables...)
}

// EmitDiff plans and emits a schema diff
func (e *Emitter) EmitDiff(diff *schema.SchemaDiff) (*Document, error) {
	return e.Emit(Plan(diff))
}

// Emit renders changes into a new document. On error no document is returned.
func (e *Emitter) Emit(changes []Change) (*Document, error) {
	b := &builder{Emitter: e, doc: newDocument()}

	for i, c := range changes {
		var err error
		switch c.Kind {
		case KindCreateSchema:
			b.createSchema(c.Namespace)
		case KindAlterSequence:
			b.alterSequence(c.Sequence)
		case KindDropSequence:
			b.dropSequence(c.Sequence)
		case KindCreateSequence:
			b.createSequence(c.Sequence)
		case KindCreateTable:
			b.createTable(c.Table)
		case KindCreateForeignKey:
			b.createForeignKey(c.ForeignKey, c.Table)
		case KindDropTable:
			b.dropTable(c.Table)
		case KindAlterTable:
			err = b.alterTable(c.TableDiff)
		case KindDropForeignKey:
			b.dropForeignKey(c.ForeignKey, c.Table)
		default:
			err = fmt.Errorf("change %d: %w: %s", i, ErrUnknownChange, c.Kind)
		}
		if err != nil {
			return nil, err
		}
	}

	return b.doc, nil
}

// builder owns the document of a single Emit call
type builder struct {
	*Emitter
	doc *Document
}

func (b *builder) changeSet(id string) *etree.Element {
	cs := etree.NewElement("changeSet")
	cs.CreateAttr("author", b.options.ChangeSetAuthor)

	sanitized := idSanitizer.ReplaceAllString(id, "-")
	if b.options.ChangeSetUniqueID {
		sanitized += "-" + b.newID()
	}
	cs.CreateAttr("id", sanitized)
	return cs
}

func (b *builder) append(cs *etree.Element) {
	b.doc.root.AddChild(cs)
}

func setSchemaName(el *etree.Element, attr string, name schema.QualifiedName) {
	if name.HasNamespace() && *name.Namespace != "" {
		el.CreateAttr(attr, *name.Namespace)
	}
}

func (b *builder) createSchema(namespace string) {
	cs := b.changeSet("create-schema-" + namespace)

	sql, err := b.platform.CreateSchemaSQL(namespace)
	if err != nil {
		sql = "CREATE SCHEMA `" + namespace + "`"
	}
	cs.CreateElement("sql").SetText(sql)
	b.append(cs)
}

func (b *builder) alterSequence(seq *schema.Sequence) {
	b.doc.root.CreateComment(" alterSequence is not supported (sequence: " + seq.AssetName() + ")")
}

func (b *builder) dropSequence(seq *schema.Sequence) {
	cs := b.changeSet("drop-sequence-" + seq.AssetName())
	name := schema.ResolveName(seq)

	el := cs.CreateElement("dropSequence")
	setSchemaName(el, "schemaName", name)
	el.CreateAttr("sequenceName", name.Name)
	b.append(cs)
}

func (b *builder) createSequence(seq *schema.Sequence) {
	cs := b.changeSet("create-sequence-" + seq.AssetName())
	name := schema.ResolveName(seq)

	el := cs.CreateElement("createSequence")
	setSchemaName(el, "schemaName", name)
	el.CreateAttr("sequenceName", name.Name)
	el.CreateAttr("startValue", strconv.FormatInt(seq.InitialValue, 10))
	b.append(cs)
}

func (b *builder) createTable(table *schema.Table) {
	cs := b.changeSet("create-table-" + table.AssetName())
	tableName := schema.ResolveName(table)

	el := cs.CreateElement("createTable")
	setSchemaName(el, "schemaName", tableName)
	el.CreateAttr("tableName", tableName.Name)

	indexes := schema.NewIndexSet(table)
	for _, col := range table.Columns {
		b.fillColumnAttributes(el.CreateElement("column"), col, indexes)
	}

	for _, idx := range indexes.OtherIndexes() {
		idxEl := cs.CreateElement("createIndex")
		setSchemaName(idxEl, "schemaName", tableName)
		idxEl.CreateAttr("tableName", tableName.Name)
		idxEl.CreateAttr("indexName", idx.AssetName())
		if idx.Unique {
			idxEl.CreateAttr("unique", "true")
		}
		for _, col := range idx.Columns {
			idxEl.CreateElement("column").CreateAttr("name", col)
		}
	}

	b.append(cs)
}

func (b *builder) createForeignKey(fk *schema.ForeignKey, table *schema.Table) {
	cs := b.changeSet("create-foreign-keys-" + table.AssetName())
	b.fillForeignKeyAttributes(cs.CreateElement("addForeignKeyConstraint"), fk, table)
	b.append(cs)
}

func (b *builder) fillForeignKeyAttributes(el *etree.Element, fk *schema.ForeignKey, table *schema.Table) {
	el.CreateAttr("constraintName", fk.AssetName())

	tableName := schema.ResolveName(table)
	setSchemaName(el, "baseTableSchemaName", tableName)
	el.CreateAttr("baseTableName", tableName.Name)
	el.CreateAttr("baseColumnNames", strings.Join(fk.LocalColumns, ","))

	referenced := schema.ParseQualifiedName(fk.ForeignTable)
	setSchemaName(el, "referencedTableSchemaName", referenced)
	el.CreateAttr("referencedTableName", referenced.Name)
	el.CreateAttr("referencedColumnNames", strings.Join(fk.ForeignColumns, ","))
}

func (b *builder) dropTable(table *schema.Table) {
	cs := b.changeSet("drop-table-" + table.AssetName())
	tableName := schema.ResolveName(table)

	el := cs.CreateElement("dropTable")
	setSchemaName(el, "schemaName", tableName)
	el.CreateAttr("tableName", tableName.Name)
	b.append(cs)
}

func (b *builder) dropForeignKey(fk *schema.ForeignKey, table *schema.Table) {
	cs := b.changeSet("drop-foreign-key-" + fk.AssetName())
	b.dropForeignKeyConstraint(cs, fk, schema.ResolveName(table))
	b.append(cs)
}

func (b *builder) dropForeignKeyConstraint(parent *etree.Element, fk *schema.ForeignKey, tableName schema.QualifiedName) {
	el := parent.CreateElement("dropForeignKeyConstraint")
	setSchemaName(el, "baseTableSchemaName", tableName)
	el.CreateAttr("baseTableName", tableName.Name)
	el.CreateAttr("constraintName", schema.ResolveName(fk).Name)
}

// columnType resolves the type attribute of a column
func (b *builder) columnType(col *schema.Column) string {
	if col.ColumnDefinition != "" {
		return col.ColumnDefinition
	}

	var sqlType string
	if b.options.UsePlatformTypes {
		sqlType = typeParentheses.ReplaceAllString(b.platform.SQLDeclaration(col), "")
	} else {
		switch col.Type {
		case schema.TypeDate, schema.TypeDateImmutable:
			sqlType = "date"
		case schema.TypeDateTime, schema.TypeDateTimeImmutable:
			sqlType = "datetime"
		case schema.TypeInteger:
			sqlType = "int"
		case schema.TypeFloat:
			sqlType = "float"
		default:
			sqlType = "varchar"
		}
	}

	if col.Length != nil {
		sqlType += "(" + strconv.Itoa(*col.Length) + ")"
	}
	return sqlType
}

func (b *builder) fillColumnAttributes(el *etree.Element, col *schema.Column, indexes *schema.IndexSet) {
	el.CreateAttr("name", schema.ResolveName(col).Name)
	el.CreateAttr("type", b.columnType(col))

	if col.Comment != "" {
		el.CreateAttr("remarks", col.Comment)
	}
	if hasDefault(col.Default) {
		el.CreateAttr("defaultValue", formatValue(col.Default))
	}

	primaryKey := indexes.IsPrimary(col.Name)
	uniqueIdx, unique := indexes.UniqueIndex(col.Name)
	nullable := !col.NotNull

	if !primaryKey && nullable && !unique {
		return
	}

	constraints := el.CreateElement("constraints")
	if primaryKey {
		constraints.CreateAttr("primaryKey", "true")
	}
	if !nullable {
		constraints.CreateAttr("nullable", "false")
	}
	if unique {
		constraints.CreateAttr("unique", "true")
		if name := uniqueIdx.AssetName(); name != "" {
			constraints.CreateAttr("uniqueConstraintName", name)
		}
	}
}

func hasDefault(v any) bool {
	if v == nil {
		return false
	}
	s, ok := v.(string)
	return !ok || s != ""
}

func isNumeric(v any) bool {
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		return numericValue.MatchString(t)
	default:
		return false
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
