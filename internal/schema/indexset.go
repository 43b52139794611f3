package schema

import "strings"

// IndexSet partitions the indexes of a table into primary key columns,
// single-column unique indexes and everything else
type IndexSet struct {
	primaryColumns []string
	uniqueColumns  map[string]*Index
	otherIndexes   []*Index
}

// NewIndexSet classifies the indexes of table in declaration order
func NewIndexSet(table *Table) *IndexSet {
	s := &IndexSet{uniqueColumns: make(map[string]*Index)}
	if table == nil {
		return s
	}

	for _, idx := range table.Indexes {
		switch {
		case idx.Primary:
			s.primaryColumns = append(s.primaryColumns, idx.Columns...)
		case idx.Unique && len(idx.Columns) == 1:
			s.uniqueColumns[strings.ToLower(idx.Columns[0])] = idx
		default:
			s.otherIndexes = append(s.otherIndexes, idx)
		}
	}
	return s
}

// PrimaryColumns returns the primary key columns in key order
func (s *IndexSet) PrimaryColumns() []string {
	return s.primaryColumns
}

// IsPrimary reports whether column belongs to the primary key
func (s *IndexSet) IsPrimary(column string) bool {
	for _, c := range s.primaryColumns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// UniqueIndex returns the single-column unique index owning column
func (s *IndexSet) UniqueIndex(column string) (*Index, bool) {
	idx, ok := s.uniqueColumns[strings.ToLower(column)]
	return idx, ok
}

// UniqueColumnCount returns the number of single-column unique indexes
func (s *IndexSet) UniqueColumnCount() int {
	return len(s.uniqueColumns)
}

// OtherIndexes returns composite or non-unique indexes in declaration order
func (s *IndexSet) OtherIndexes() []*Index {
	return s.otherIndexes
}
