// Package catalog loads the entity metadata that drives query generation.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/jpapi/internal/query"
)

// Entity names served by the API.
const (
	PeopleGroups = "people_groups"
	Countries    = "countries"
	Languages    = "languages"
	Resources    = "resources"
)

//go:embed entities.yaml
var defaultEntities []byte

// File is the on-disk shape of an entities file.
type File struct {
	Entities []*query.Entity `yaml:"entities"`
}

// Catalog is a read-only set of entities keyed by name.
type Catalog struct {
	entities map[string]*query.Entity
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return LoadFromBytes(defaultEntities)
}

// Load returns the embedded catalog, or the one in path when path is set.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFromFile(path)
}

// LoadFromFile loads entities from a YAML file.
func LoadFromFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entities file: %w", err)
	}
	defer f.Close()

	return LoadFromReader(f)
}

// LoadFromReader loads entities from a reader.
func LoadFromReader(r io.Reader) (*Catalog, error) {
	var file File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse entities YAML: %w", err)
	}
	return build(file)
}

// LoadFromBytes loads entities from YAML bytes.
func LoadFromBytes(data []byte) (*Catalog, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse entities YAML: %w", err)
	}
	return build(file)
}

func build(file File) (*Catalog, error) {
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("no entities defined")
	}

	c := &Catalog{entities: make(map[string]*query.Entity, len(file.Entities))}
	for i, e := range file.Entities {
		if e == nil {
			return nil, fmt.Errorf("invalid entity at index %d: empty", i)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid entity at index %d: %w", i, err)
		}
		if _, dup := c.entities[e.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", e.Name)
		}
		c.entities[e.Name] = e
	}
	return c, nil
}

// Get returns the entity registered under name.
func (c *Catalog) Get(name string) (*query.Entity, bool) {
	e, ok := c.entities[name]
	return e, ok
}

// MustGet is Get for names the caller knows are present.
func (c *Catalog) MustGet(name string) *query.Entity {
	e, ok := c.entities[name]
	if !ok {
		panic(fmt.Sprintf("catalog: entity %q not defined", name))
	}
	return e
}

// Require checks that every name is defined.
func (c *Catalog) Require(names ...string) error {
	for _, n := range names {
		if _, ok := c.entities[n]; !ok {
			return fmt.Errorf("entity %q not defined", n)
		}
	}
	return nil
}

// Names returns the entity names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entities))
	for n := range c.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
