// Package codelist serves the enumerations (code lists) that constrain
// the values of some definition fields.
package codelist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrValueNotFound is returned when a value is not part of a code list.
var ErrValueNotFound = errors.New("code value not found")

// CodeValue is a single entry of a code list.
type CodeValue struct {
	Value        string            `yaml:"value" json:"value"`
	CodeList     int               `yaml:"-" json:"codelist"`
	Descriptions map[string]string `yaml:"descriptions,omitempty" json:"descriptions,omitempty"`
	// Tags are matched against definition field filters.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Matches reports whether the value passes any of the filters. No filters
// always match.
func (v *CodeValue) Matches(filters ...string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if slices.Contains(v.Tags, f) {
			return true
		}
	}
	return false
}

// Service resolves code values.
type Service interface {
	// CodeValue returns the value of the list or ErrValueNotFound.
	CodeValue(ctx context.Context, codeList int, value string) (*CodeValue, error)

	// FilteredCodeValues returns the values of the list passing the filters,
	// keyed by value.
	FilteredCodeValues(ctx context.Context, codeList int, filters ...string) (map[string]*CodeValue, error)
}

// Registry is an in memory Service.
type Registry struct {
	mu    sync.RWMutex
	lists map[int]map[string]*CodeValue
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{lists: make(map[int]map[string]*CodeValue)}
}

// Add registers values under a code list.
func (r *Registry) Add(codeList int, values ...CodeValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.lists[codeList]
	if !ok {
		list = make(map[string]*CodeValue)
		r.lists[codeList] = list
	}
	for _, v := range values {
		v.CodeList = codeList
		list[v.Value] = &v
	}
}

// CodeValue implements Service.
func (r *Registry) CodeValue(_ context.Context, codeList int, value string) (*CodeValue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.lists[codeList][value]
	if !ok {
		return nil, fmt.Errorf("%w: %s in code list %d", ErrValueNotFound, value, codeList)
	}
	return v, nil
}

// FilteredCodeValues implements Service.
func (r *Registry) FilteredCodeValues(_ context.Context, codeList int, filters ...string) (map[string]*CodeValue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]*CodeValue)
	for key, v := range r.lists[codeList] {
		if v.Matches(filters...) {
			result[key] = v
		}
	}
	return result, nil
}

// LoadFile reads code lists from a YAML file with a top level "codelists"
// list of {id, values}.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read codelist file: %w", err)
	}

	var file struct {
		CodeLists []struct {
			ID     int         `yaml:"id"`
			Values []CodeValue `yaml:"values"`
		} `yaml:"codelists"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse codelist file: %w", err)
	}

	r := NewRegistry()
	for _, cl := range file.CodeLists {
		if cl.ID <= 0 {
			return nil, fmt.Errorf("codelist file %s: invalid code list id %d", path, cl.ID)
		}
		r.Add(cl.ID, cl.Values...)
	}
	return r, nil
}
