package instance

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sort"
	"sync"

	"github.com/c360studio/semtype/vocabulary/emf"
	"gopkg.in/yaml.v3"
)

// MemoryStore keeps instances in memory. Loads return clones so callers
// always work on a fresh copy.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewMemoryStore creates a store holding the given instances.
func NewMemoryStore(instances ...*Instance) *MemoryStore {
	s := &MemoryStore{instances: make(map[string]*Instance)}
	for _, inst := range instances {
		s.instances[inst.ID] = inst.Clone()
	}
	return s
}

// Put stores a copy of the instance.
func (s *MemoryStore) Put(_ context.Context, inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = inst.Clone()
	return nil
}

// Load implements Loader.
func (s *MemoryStore) Load(_ context.Context, id string) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return inst.Clone(), nil
}

// LoadAll implements BulkLoader.
func (s *MemoryStore) LoadAll(_ context.Context, ids []string) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Instance, 0, len(ids))
	for _, id := range ids {
		if inst, ok := s.instances[id]; ok {
			result = append(result, inst.Clone())
		}
	}
	return result, nil
}

// Scan yields a copy of every stored instance ordered by id.
func (s *MemoryStore) Scan(ctx context.Context) iter.Seq2[*Instance, error] {
	return func(yield func(*Instance, error) bool) {
		s.mu.RLock()
		ids := make([]string, 0, len(s.instances))
		for id := range s.instances {
			ids = append(ids, id)
		}
		s.mu.RUnlock()
		sort.Strings(ids)

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			s.mu.RLock()
			inst, ok := s.instances[id]
			if ok {
				inst = inst.Clone()
			}
			s.mu.RUnlock()
			if ok && !yield(inst, nil) {
				return
			}
		}
	}
}

// LoadFile reads instances from a YAML file with a top level "instances"
// list. Instances without a type take it from their semanticType property.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instances file: %w", err)
	}

	var file struct {
		Instances []*Instance `yaml:"instances"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse instances file: %w", err)
	}

	for _, inst := range file.Instances {
		if inst.ID == "" {
			return nil, fmt.Errorf("instances file %s: instance without id", path)
		}
		if inst.Properties == nil {
			inst.Properties = make(map[string]any)
		}
		if inst.Type.IsZero() {
			inst.Type = InstanceType(emf.Expand(inst.GetString(PropertySemanticType)))
		} else {
			inst.Type = InstanceType(emf.Expand(inst.Type.ID()))
		}
	}
	return NewMemoryStore(file.Instances...), nil
}
