// Package instance provides the domain instance model: a mutable bag of
// named property values bound to a definition and a semantic type.
package instance

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// ErrNotFound is returned by loaders when an instance id does not resolve.
var ErrNotFound = errors.New("instance not found")

// InstanceType is the resolved semantic class IRI of an instance.
type InstanceType string

// ID returns the class IRI.
func (t InstanceType) ID() string { return string(t) }

// IsZero reports whether the type is unresolved.
func (t InstanceType) IsZero() bool { return t == "" }

// Instance is a domain object. Property values are scalars or ordered
// collections ([]any) of scalars.
type Instance struct {
	ID         string         `json:"id" yaml:"id"`
	Identifier string         `json:"definition" yaml:"definition"`
	Revision   int64          `json:"revision" yaml:"revision"`
	Type       InstanceType   `json:"type,omitempty" yaml:"type,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// New creates an instance bound to a definition.
func New(id, definitionID string) *Instance {
	return &Instance{
		ID:         id,
		Identifier: definitionID,
		Properties: make(map[string]any),
	}
}

// Get returns the value stored under name.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.Properties[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// GetString returns the value under name if it is a string.
func (i *Instance) GetString(name string) string {
	v, _ := i.Properties[name].(string)
	return v
}

// IsValueNotNil reports whether a non-nil value is stored under name.
func (i *Instance) IsValueNotNil(name string) bool {
	_, ok := i.Get(name)
	return ok
}

// Add stores value under name, replacing any previous value. A nil value
// removes the property.
func (i *Instance) Add(name string, value any) {
	if value == nil {
		delete(i.Properties, name)
		return
	}
	if i.Properties == nil {
		i.Properties = make(map[string]any)
	}
	i.Properties[name] = value
}

// Append adds value to the collection under name, converting a scalar into
// a collection when needed.
func (i *Instance) Append(name string, value any) {
	current, ok := i.Get(name)
	if !ok {
		i.Add(name, []any{value})
		return
	}
	if list, ok := current.([]any); ok {
		i.Properties[name] = append(list, value)
		return
	}
	i.Properties[name] = []any{current, value}
}

// Remove deletes the property and returns its previous value.
func (i *Instance) Remove(name string) any {
	v := i.Properties[name]
	delete(i.Properties, name)
	return v
}

// RemoveValue removes a single value from the property: the element of a
// collection or the scalar itself. It reports whether anything was removed.
func (i *Instance) RemoveValue(name string, value any) bool {
	current, ok := i.Get(name)
	if !ok {
		return false
	}
	list, isList := current.([]any)
	if !isList {
		if !equalValue(current, value) {
			return false
		}
		delete(i.Properties, name)
		return true
	}

	kept := make([]any, 0, len(list))
	for _, v := range list {
		if !equalValue(v, value) {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(list) {
		return false
	}
	if len(kept) == 0 {
		delete(i.Properties, name)
	} else {
		i.Properties[name] = kept
	}
	return true
}

// ContainsValue reports whether the property holds value, either as its
// scalar value or as an element of its collection.
func (i *Instance) ContainsValue(name string, value any) bool {
	current, ok := i.Get(name)
	if !ok {
		return false
	}
	if list, ok := current.([]any); ok {
		for _, v := range list {
			if equalValue(v, value) {
				return true
			}
		}
		return false
	}
	return equalValue(current, value)
}

// Values returns the property as a collection. Scalars yield a single
// element slice and absent properties yield nil.
func (i *Instance) Values(name string) []any {
	current, ok := i.Get(name)
	if !ok {
		return nil
	}
	if list, ok := current.([]any); ok {
		return list
	}
	return []any{current}
}

// References returns the sorted names of the properties holding target.
func (i *Instance) References(target string) []string {
	var names []string
	for name := range i.Properties {
		if i.ContainsValue(name, target) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsUploaded reports whether the instance carries primary content.
func (i *Instance) IsUploaded() bool {
	return i.IsValueNotNil(PropertyContentID)
}

// Clone returns a copy that shares no collections with the original.
func (i *Instance) Clone() *Instance {
	c := &Instance{
		ID:         i.ID,
		Identifier: i.Identifier,
		Revision:   i.Revision,
		Type:       i.Type,
		Properties: make(map[string]any, len(i.Properties)),
	}
	for name, v := range i.Properties {
		c.Properties[name] = CopyValue(v)
	}
	return c
}

// String implements fmt.Stringer.
func (i *Instance) String() string {
	return fmt.Sprintf("%s(%s)", i.ID, i.Identifier)
}

// CopyValue copies collection values so the result can be modified
// independently. Scalars are returned unchanged.
func CopyValue(v any) any {
	if list, ok := v.([]any); ok {
		return append([]any(nil), list...)
	}
	return v
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta.Comparable() && tb.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
