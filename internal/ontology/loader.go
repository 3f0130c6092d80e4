// Package ontology loads extraction ontologies from YAML configuration
// files at startup and serves immutable snapshots to the rest of the
// service. Modelled on internal/config's file-loading idiom in the
// teacher repository, using gopkg.in/yaml.v3 for the document format.
package ontology

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/graphmemory/graphmemory/pkg/types"
)

// Loader holds the set of ontologies loaded from a directory at startup.
// Once loaded, the registry is read-only: concurrent Get calls need no
// locking beyond the map's construction, which happens once before the
// Loader is handed to any other component.
type Loader struct {
	mu         sync.RWMutex
	ontologies map[string]*types.Ontology
}

// NewLoader reads every *.yaml / *.yml file in dir and parses it as an
// Ontology document. A missing or malformed ontology fails loading with
// a clear error, per the specification — ontologies are otherwise
// independent of one another.
func NewLoader(dir string) (*Loader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ontology: read dir %q: %w", dir, err)
	}

	l := &Loader{ontologies: make(map[string]*types.Ontology)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ontology: read %q: %w", path, err)
		}
		var o types.Ontology
		if err := yaml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("ontology: parse %q: %w", path, err)
		}
		if o.Name == "" {
			return nil, fmt.Errorf("ontology: %q declares no name", path)
		}
		if len(o.EntityTypes) == 0 {
			return nil, fmt.Errorf("ontology: %q declares no entity_types", path)
		}
		l.ontologies[o.Name] = &o
	}
	return l, nil
}

// Get returns the named ontology, or false if it is not loaded.
func (l *Loader) Get(name string) (*types.Ontology, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.ontologies[name]
	return o, ok
}

// List returns the names of every loaded ontology.
func (l *Loader) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.ontologies))
	for name := range l.ontologies {
		names = append(names, name)
	}
	return names
}
