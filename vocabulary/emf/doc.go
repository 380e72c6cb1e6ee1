// Package emf provides the ontology vocabulary used by the type migration
// subsystem.
//
// It has two halves:
//   - IRI constants for the PROTON upper ontology and the EMF domain ontology
//     classes that instances are typed with (iris.go)
//   - Dotted graph predicates describing a type change, registered with the
//     semstreams vocabulary registry in init() (predicates.go)
//
// # Class Hierarchy
//
// The classes referenced here form the hierarchy the migration rules are
// usually exercised against:
//
//	ptop:Entity
//	├── ptop:Happening → ptop:Event → emf:Activity → {emf:Case, emf:Project}
//	└── ptop:Object → ptop:InformationResource → {emf:Document, emf:Media → emf:Image}
//
// The hierarchy itself is data; it is loaded by the semantic package.
package emf
