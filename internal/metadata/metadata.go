// Package metadata loads desired-schema definitions ("entities") from YAML.
//
// An entity maps an application type to a table:
//
//	entities:
//	  - name: app.User
//	    table: users
//	    namespace: app
//	    id: [id]
//	    columns:
//	      - name: id
//	        type: integer
//	        autoincrement: true
//	      - name: email
//	        type: string
//	        length: 180
//	    uniqueConstraints:
//	      - name: uniq_users_email
//	        columns: [email]
//	    foreignKeys:
//	      - columns: [group_id]
//	        references: {table: app.groups, columns: [id]}
//	        onDelete: CASCADE
//	sequences:
//	  - name: users_seq
//	    initialValue: 1
package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is one metadata document
type File struct {
	Entities  []Entity   `yaml:"entities"`
	Sequences []Sequence `yaml:"sequences"`
}

// Entity maps an application type to a table
type Entity struct {
	// Name is the fully-qualified entity name, used for ordering
	Name      string `yaml:"name"`
	Table     string `yaml:"table"`
	Namespace string `yaml:"namespace,omitempty"`
	Comment   string `yaml:"comment,omitempty"`

	Columns           []Column     `yaml:"columns"`
	ID                []string     `yaml:"id,omitempty"`
	Indexes           []Index      `yaml:"indexes,omitempty"`
	UniqueConstraints []Index      `yaml:"uniqueConstraints,omitempty"`
	ForeignKeys       []ForeignKey `yaml:"foreignKeys,omitempty"`
}

// Column describes a mapped field
type Column struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Length    *int   `yaml:"length,omitempty"`
	Precision *int   `yaml:"precision,omitempty"`
	Scale     *int   `yaml:"scale,omitempty"`
	Unsigned  bool   `yaml:"unsigned,omitempty"`
	Fixed     bool   `yaml:"fixed,omitempty"`

	// Nullable columns accept NULL. Columns are NOT NULL by default.
	Nullable bool   `yaml:"nullable,omitempty"`
	Default  any    `yaml:"default,omitempty"`
	Comment  string `yaml:"comment,omitempty"`

	Autoincrement    bool              `yaml:"autoincrement,omitempty"`
	ColumnDefinition string            `yaml:"columnDefinition,omitempty"`
	Options          map[string]string `yaml:"options,omitempty"`
}

// Index describes an index or a unique constraint
type Index struct {
	Name    string   `yaml:"name,omitempty"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
	Flags   []string `yaml:"flags,omitempty"`
}

// ForeignKey describes an association
type ForeignKey struct {
	Name       string    `yaml:"name,omitempty"`
	Columns    []string  `yaml:"columns"`
	References Reference `yaml:"references"`
	OnDelete   string    `yaml:"onDelete,omitempty"`
	OnUpdate   string    `yaml:"onUpdate,omitempty"`
}

// Reference is the target side of a foreign key
type Reference struct {
	// Table may be namespace-qualified
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
}

// Sequence describes an id generator sequence
type Sequence struct {
	Name           string `yaml:"name"`
	Namespace      string `yaml:"namespace,omitempty"`
	InitialValue   int64  `yaml:"initialValue,omitempty"`
	AllocationSize int64  `yaml:"allocationSize,omitempty"`
}

// Parse decodes a metadata document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &f, nil
}

// LoadFile reads and parses a single metadata file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LoadDir loads every .yaml and .yml file of dir in lexical order
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata directory: %w", err)
	}

	r := NewRegistry()
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		f, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		r.Add(f)
	}
	return r, nil
}

// Load loads a metadata file or directory
func Load(path string) (*Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat metadata path: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}

	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	r.Add(f)
	return r, nil
}

// Registry collects the entities and sequences of several files
type Registry struct {
	entities  []Entity
	sequences []Sequence
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Add merges a parsed file into the registry
func (r *Registry) Add(f *File) {
	if f == nil {
		return
	}
	r.entities = append(r.entities, f.Entities...)
	r.sequences = append(r.sequences, f.Sequences...)
}

// AllMetadata returns every entity sorted by name
func (r *Registry) AllMetadata() []Entity {
	return SortEntities(r.entities)
}

// Sequences returns the declared sequences in load order
func (r *Registry) Sequences() []Sequence {
	return slices.Clone(r.sequences)
}

// Entity looks up an entity by name
func (r *Registry) Entity(name string) (Entity, bool) {
	for _, e := range r.entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// SortEntities returns a copy of entities ordered by fully-qualified name
func SortEntities(entities []Entity) []Entity {
	sorted := slices.Clone(entities)
	slices.SortStableFunc(sorted, func(a, b Entity) int {
		return strings.Compare(a.Name, b.Name)
	})
	return sorted
}
