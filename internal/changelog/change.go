package changelog

import (
	"fmt"

	"github.com/tordrt/liquischema/internal/schema"
)

// Kind identifies a single changelog operation
type Kind int

// Change kinds, in the order Plan emits them
const (
	KindCreateSchema Kind = iota + 1
	KindAlterSequence
	KindDropSequence
	KindCreateSequence
	KindCreateTable
	KindCreateForeignKey
	KindDropTable
	KindAlterTable
	KindDropForeignKey
)

var kindNames = map[Kind]string{
	KindCreateSchema:     "createSchema",
	KindAlterSequence:    "alterSequence",
	KindDropSequence:     "dropSequence",
	KindCreateSequence:   "createSequence",
	KindCreateTable:      "createTable",
	KindCreateForeignKey: "createForeignKey",
	KindDropTable:        "dropTable",
	KindAlterTable:       "alterTable",
	KindDropForeignKey:   "dropForeignKey",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Change is one planned operation. Which fields are set depends on Kind:
//
//	KindCreateSchema                     Namespace
//	KindAlterSequence, Drop..., Create.. Sequence
//	KindCreateTable, KindDropTable       Table
//	KindCreateForeignKey                 ForeignKey, Table
//	KindAlterTable                       TableDiff
//	KindDropForeignKey                   ForeignKey, Table (the old table)
type Change struct {
	Kind       Kind
	Namespace  string
	Sequence   *schema.Sequence
	Table      *schema.Table
	ForeignKey *schema.ForeignKey
	TableDiff  *schema.TableDiff
}

// Plan flattens a schema diff into the ordered list of changes to emit.
// Dropped namespaces are never emitted.
func Plan(diff *schema.SchemaDiff) []Change {
	if diff == nil {
		return nil
	}

	var changes []Change
	for _, ns := range diff.CreatedNamespaces {
		changes = append(changes, Change{Kind: KindCreateSchema, Namespace: ns})
	}
	for _, seq := range diff.AlteredSequences {
		changes = append(changes, Change{Kind: KindAlterSequence, Sequence: seq})
	}
	for _, seq := range diff.DroppedSequences {
		changes = append(changes, Change{Kind: KindDropSequence, Sequence: seq})
	}
	for _, seq := range diff.CreatedSequences {
		changes = append(changes, Change{Kind: KindCreateSequence, Sequence: seq})
	}
	for _, table := range diff.CreatedTables {
		changes = append(changes, Change{Kind: KindCreateTable, Table: table})
		for _, fk := range table.ForeignKeys {
			changes = append(changes, Change{Kind: KindCreateForeignKey, ForeignKey: fk, Table: table})
		}
	}
	for _, table := range diff.DroppedTables {
		changes = append(changes, Change{Kind: KindDropTable, Table: table})
	}
	for _, td := range diff.AlteredTables {
		changes = append(changes, Change{Kind: KindAlterTable, TableDiff: td})
		if td.OldTable == nil {
			continue
		}
		for _, fk := range td.DroppedForeignKeys {
			changes = append(changes, Change{Kind: KindDropForeignKey, ForeignKey: fk, Table: td.OldTable})
		}
	}
	return changes
}
