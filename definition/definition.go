// Package definition holds the schemas instances are bound to: their
// property declarations, semantic type and state transitions.
package definition

import (
	"errors"

	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/vocabulary/emf"
)

// ErrNotFound is returned when a definition id does not resolve.
var ErrNotFound = errors.New("definition not found")

// NotUsedURI marks a declaration that has no semantic property behind it.
const NotUsedURI = "FORBIDDEN"

// Kind tells data properties from object properties (relations).
type Kind string

const (
	KindData   Kind = "data"
	KindObject Kind = "object"
)

// PropertyDeclaration is a field of a definition.
type PropertyDeclaration struct {
	Name         string   `yaml:"name" json:"name"`
	URI          string   `yaml:"uri,omitempty" json:"uri,omitempty"`
	Kind         Kind     `yaml:"kind,omitempty" json:"kind,omitempty"`
	CodeList     int      `yaml:"codelist,omitempty" json:"codelist,omitempty"`
	Filters      []string `yaml:"filters,omitempty" json:"filters,omitempty"`
	DefaultValue string   `yaml:"value,omitempty" json:"value,omitempty"`
}

// HasURI reports whether the declaration maps to a semantic property.
func (p PropertyDeclaration) HasURI() bool {
	return p.URI != "" && p.URI != NotUsedURI
}

// IsObject reports whether the declaration is a relation.
func (p PropertyDeclaration) IsObject() bool {
	return p.Kind == KindObject
}

// StateTransition allows moving from a state to another with an operation.
type StateTransition struct {
	From      string `yaml:"from" json:"from"`
	Operation string `yaml:"operation" json:"operation"`
	To        string `yaml:"to,omitempty" json:"to,omitempty"`
}

// Definition is the schema of a family of instances.
type Definition struct {
	ID          string                `yaml:"id" json:"id"`
	Revision    int64                 `yaml:"revision,omitempty" json:"revision,omitempty"`
	Abstract    bool                  `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Fields      []PropertyDeclaration `yaml:"fields" json:"fields"`
	Transitions []StateTransition     `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// Field returns the declaration with the given name.
func (d *Definition) Field(name string) (PropertyDeclaration, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return PropertyDeclaration{}, false
}

// FieldByURI returns the first declaration mapped to the semantic property.
// Compact and full IRIs of the same property match.
func (d *Definition) FieldByURI(uri string) (PropertyDeclaration, bool) {
	if uri == "" || uri == NotUsedURI {
		return PropertyDeclaration{}, false
	}
	uri = emf.Expand(uri)
	for _, f := range d.Fields {
		if f.HasURI() && emf.Expand(f.URI) == uri {
			return f, true
		}
	}
	return PropertyDeclaration{}, false
}

// SemanticType returns the class IRI declared as the default value of the
// semanticType field.
func (d *Definition) SemanticType() (string, bool) {
	f, ok := d.Field(instance.PropertySemanticType)
	if !ok || f.DefaultValue == "" {
		return "", false
	}
	return emf.Expand(f.DefaultValue), true
}

// TransitionsFor returns the transitions triggered by the operation.
func (d *Definition) TransitionsFor(operation string) []StateTransition {
	var result []StateTransition
	for _, t := range d.Transitions {
		if t.Operation == operation {
			result = append(result, t)
		}
	}
	return result
}

// HasTransition reports whether the operation is allowed from the state.
func (d *Definition) HasTransition(from, operation string) bool {
	for _, t := range d.Transitions {
		if t.From == from && t.Operation == operation {
			return true
		}
	}
	return false
}
