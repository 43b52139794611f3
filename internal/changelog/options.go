package changelog

import (
	"slices"
	"strings"
)

// DefaultAuthor is the change-set author used when none is configured
const DefaultAuthor = "migrations-liquibase"

// DefaultIgnoreTables are the bookkeeping tables of the changelog runner itself
var DefaultIgnoreTables = []string{"DATABASECHANGELOG", "DATABASECHANGELOGLOCK"}

// Options controls the shape of a generated changelog
type Options struct {
	// UsePlatformTypes renders native column types of the target platform
	// instead of portable logical type names
	UsePlatformTypes bool

	// ChangeSetUniqueID appends a random suffix to every change-set id
	ChangeSetUniqueID bool

	// ChangeSetAuthor is written to the author attribute of every change set
	ChangeSetAuthor string

	// IgnoreTables are removed from the introspected schema before diffing
	IgnoreTables []string
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		UsePlatformTypes:  false,
		ChangeSetUniqueID: true,
		ChangeSetAuthor:   DefaultAuthor,
		IgnoreTables:      slices.Clone(DefaultIgnoreTables),
	}
}

// WithUsePlatformTypes returns a copy with platform types toggled
func (o Options) WithUsePlatformTypes(v bool) Options {
	o.IgnoreTables = slices.Clone(o.IgnoreTables)
	o.UsePlatformTypes = v
	return o
}

// WithChangeSetUniqueID returns a copy with id suffixing toggled
func (o Options) WithChangeSetUniqueID(v bool) Options {
	o.IgnoreTables = slices.Clone(o.IgnoreTables)
	o.ChangeSetUniqueID = v
	return o
}

// WithChangeSetAuthor returns a copy with a different author. Empty is allowed.
func (o Options) WithChangeSetAuthor(author string) Options {
	o.IgnoreTables = slices.Clone(o.IgnoreTables)
	o.ChangeSetAuthor = author
	return o
}

// WithIgnoreTables returns a copy ignoring the given tables
func (o Options) WithIgnoreTables(tables ...string) Options {
	o.IgnoreTables = slices.Clone(tables)
	return o
}

// IsIgnoredTable reports whether name, qualified or not, is in the ignore list
func (o Options) IsIgnoredTable(name string) bool {
	_, local, found := strings.Cut(name, ".")
	for _, t := range o.IgnoreTables {
		if strings.EqualFold(t, name) || (found && strings.EqualFold(t, local)) {
			return true
		}
	}
	return false
}
