// Package semantic models the ontology class hierarchy and the semantic
// property definitions that constrain which instance types a property or
// relation applies to.
package semantic

import "errors"

var (
	// ErrClassNotFound is returned when a class IRI is not part of the hierarchy.
	ErrClassNotFound = errors.New("semantic class not found")

	// ErrPropertyNotFound is returned when a data or object property IRI is unknown.
	ErrPropertyNotFound = errors.New("semantic property not found")
)

// Class is a node of the ontology class hierarchy. Classes are loaded once
// and never modified afterwards.
type Class struct {
	ID         string `yaml:"id" json:"id"`
	Title      string `yaml:"title,omitempty" json:"title,omitempty"`
	Parent     string `yaml:"parent,omitempty" json:"parent,omitempty"`
	Creatable  bool   `yaml:"creatable" json:"creatable"`
	Uploadable bool   `yaml:"uploadable" json:"uploadable"`
}

// Label returns the title of the class, or its IRI when it has none.
func (c *Class) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.ID
}

// Property is a semantic data property (literal valued) or object property
// (relation). Domain and Range are class IRIs and may be empty when the
// ontology declares no constraint.
type Property struct {
	ID     string `yaml:"id" json:"id"`
	Domain string `yaml:"domain,omitempty" json:"domain,omitempty"`
	Range  string `yaml:"range,omitempty" json:"range,omitempty"`
}
