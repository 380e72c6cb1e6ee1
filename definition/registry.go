package definition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/semtype/instance"
	"gopkg.in/yaml.v3"
)

// Service resolves definitions.
type Service interface {
	// Find returns the definition with the id or ErrNotFound.
	Find(ctx context.Context, id string) (*Definition, error)

	// InstanceDefinition returns the definition an instance is bound to.
	InstanceDefinition(ctx context.Context, inst *instance.Instance) (*Definition, error)
}

// DefaultPattern matches definition files below a directory.
const DefaultPattern = "**/*.yaml"

// Registry is an in memory Service.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates a registry holding the given definitions.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{defs: make(map[string]*Definition)}
	for _, d := range defs {
		r.Add(d)
	}
	return r
}

// Add registers or replaces a definition.
func (r *Registry) Add(d *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.ID] = d
}

// IDs returns the registered definition ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Find implements Service.
func (r *Registry) Find(_ context.Context, id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// InstanceDefinition implements Service.
func (r *Registry) InstanceDefinition(ctx context.Context, inst *instance.Instance) (*Definition, error) {
	if inst == nil {
		return nil, fmt.Errorf("%w: nil instance", ErrNotFound)
	}
	return r.Find(ctx, inst.Identifier)
}

// LoadDir reads every definition file below dir matching pattern. A file
// holds either a single definition or a "definitions" list.
func LoadDir(dir, pattern string) (*Registry, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob definitions %s: %w", pattern, err)
	}
	sort.Strings(matches)

	r := NewRegistry()
	for _, path := range matches {
		defs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if _, dup := r.defs[d.ID]; dup {
				return nil, fmt.Errorf("definition %s declared twice (%s)", d.ID, path)
			}
			r.Add(d)
		}
	}
	return r, nil
}

func loadFile(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	var file struct {
		Definitions []*Definition `yaml:"definitions"`
		Definition  `yaml:",inline"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse definition file %s: %w", path, err)
	}

	defs := file.Definitions
	if file.ID != "" {
		single := file.Definition
		defs = append(defs, &single)
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("definition file %s: definition without id", path)
		}
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("definition file %s: %w", path, err)
		}
	}
	return defs, nil
}

func validate(d *Definition) error {
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("definition %s: field without name", d.ID)
		}
		if seen[f.Name] {
			return fmt.Errorf("definition %s: duplicate field %s", d.ID, f.Name)
		}
		seen[f.Name] = true
		switch f.Kind {
		case "", KindData, KindObject:
		default:
			return fmt.Errorf("definition %s: field %s has unknown kind %q", d.ID, f.Name, f.Kind)
		}
	}
	return nil
}
