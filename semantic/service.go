package semantic

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/c360studio/semtype/vocabulary/emf"
	"gopkg.in/yaml.v3"
)

// Service resolves classes and semantic properties by IRI.
type Service interface {
	// Class returns the class with the given IRI or ErrClassNotFound.
	Class(ctx context.Context, id string) (*Class, error)

	// Property returns the data property with the given IRI or ErrPropertyNotFound.
	Property(ctx context.Context, uri string) (*Property, error)

	// Relation returns the object property with the given IRI or ErrPropertyNotFound.
	Relation(ctx context.Context, uri string) (*Property, error)
}

// Registry is an in-memory Service.
type Registry struct {
	mu         sync.RWMutex
	classes    map[string]*Class
	subClasses map[string][]string
	properties map[string]*Property
	relations  map[string]*Property
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes:    make(map[string]*Class),
		subClasses: make(map[string][]string),
		properties: make(map[string]*Property),
		relations:  make(map[string]*Property),
	}
}

// AddClass registers a class. Compact IRIs are expanded.
func (r *Registry) AddClass(c Class) {
	c.ID = emf.Expand(c.ID)
	c.Parent = emf.Expand(c.Parent)

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.classes[c.ID]; ok && old.Parent != "" {
		r.subClasses[old.Parent] = remove(r.subClasses[old.Parent], c.ID)
	}
	r.classes[c.ID] = &c
	if c.Parent != "" {
		r.subClasses[c.Parent] = append(r.subClasses[c.Parent], c.ID)
	}
}

// AddProperty registers a data property.
func (r *Registry) AddProperty(p Property) {
	p = expandProperty(p)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[p.ID] = &p
}

// AddRelation registers an object property.
func (r *Registry) AddRelation(p Property) {
	p = expandProperty(p)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations[p.ID] = &p
}

// Class implements Service.
func (r *Registry) Class(_ context.Context, id string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[emf.Expand(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, id)
	}
	return c, nil
}

// Property implements Service.
func (r *Registry) Property(_ context.Context, uri string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.properties[emf.Expand(uri)]
	if !ok {
		return nil, fmt.Errorf("%w: data property %s", ErrPropertyNotFound, uri)
	}
	return p, nil
}

// Relation implements Service.
func (r *Registry) Relation(_ context.Context, uri string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.relations[emf.Expand(uri)]
	if !ok {
		return nil, fmt.Errorf("%w: object property %s", ErrPropertyNotFound, uri)
	}
	return p, nil
}

// SubClasses returns the direct subclasses of a class, sorted by IRI.
func (r *Registry) SubClasses(id string) []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := append([]string(nil), r.subClasses[emf.Expand(id)]...)
	sort.Strings(ids)
	result := make([]*Class, 0, len(ids))
	for _, sub := range ids {
		result = append(result, r.classes[sub])
	}
	return result
}

// modelFile is the YAML layout of an ontology fixture.
type modelFile struct {
	Classes    []Class    `yaml:"classes"`
	Properties []Property `yaml:"properties"`
	Relations  []Property `yaml:"relations"`
}

// LoadFile reads classes and properties from a YAML file into a new registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ontology file: %w", err)
	}

	var model modelFile
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse ontology file: %w", err)
	}

	r := NewRegistry()
	for _, c := range model.Classes {
		if c.ID == "" {
			return nil, fmt.Errorf("ontology file %s: class without id", path)
		}
		r.AddClass(c)
	}
	for _, p := range model.Properties {
		r.AddProperty(p)
	}
	for _, p := range model.Relations {
		r.AddRelation(p)
	}
	return r, nil
}

func expandProperty(p Property) Property {
	p.ID = emf.Expand(p.ID)
	p.Domain = emf.Expand(p.Domain)
	p.Range = emf.Expand(p.Range)
	return p
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
